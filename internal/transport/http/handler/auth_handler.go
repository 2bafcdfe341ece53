package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-rbac/internal/service"
	httpez "go-gin-gorm-rbac/internal/transport/http/ez"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler { return &AuthHandler{auth: a} }

type registerIn struct {
	Email    string `json:"email"    binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"fullName" binding:"omitempty,max=100"`
}

type loginIn struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginOut struct {
	User UserView `json:"user"`
	service.TokenPair
}

type refreshIn struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// MountPublic 挂公共接口（无需登录）
func (h *AuthHandler) MountPublic(g *gin.RouterGroup) {
	ez := httpez.New(g)

	httpez.RegisterAction(ez, httpez.Action[registerIn, UserView]{
		Method: http.MethodPost, Path: "/auth/register", Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *registerIn) (UserView, error) {
			u, err := h.auth.Register(c, in.Email, in.Password, in.FullName)
			if err != nil {
				return UserView{}, err
			}
			return userView(u), nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[loginIn, loginOut]{
		Method: http.MethodPost, Path: "/auth/login", Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			u, pair, err := h.auth.Login(c, in.Email, in.Password)
			if err != nil {
				return loginOut{}, err
			}
			return loginOut{User: userView(u), TokenPair: *pair}, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[refreshIn, service.TokenPair]{
		Method: http.MethodPost, Path: "/auth/refresh", Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *refreshIn) (service.TokenPair, error) {
			pair, err := h.auth.Refresh(c, in.RefreshToken)
			if err != nil {
				return service.TokenPair{}, err
			}
			return *pair, nil
		},
	})
}

// MountAuthed 挂需要登录的接口（/me 必须挂在带 AuthJWT 的分组）
func (h *AuthHandler) MountAuthed(g *gin.RouterGroup) {
	ez := httpez.New(g)

	httpez.RegisterAction(ez, httpez.Action[struct{}, UserView]{
		Method: http.MethodGet, Path: "/me", Binder: httpez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (UserView, error) {
			u, err := h.auth.Me(c, httpez.CallerID(c))
			if err != nil {
				return UserView{}, err
			}
			return userView(u), nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, []HistoryView]{
		Method: http.MethodGet, Path: "/me/role-history", Binder: httpez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]HistoryView, error) {
			hs, err := h.auth.MyRoleHistory(c, httpez.CallerID(c))
			if err != nil {
				return nil, err
			}
			return historyViews(hs), nil
		},
	})
}
