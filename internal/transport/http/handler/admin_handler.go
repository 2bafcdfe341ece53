package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/internal/service"
	httpez "go-gin-gorm-rbac/internal/transport/http/ez"
)

type AdminHandler struct {
	users *service.UserService
}

func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

type listQ struct {
	Offset      int    `form:"offset,default=0"`
	Limit       int    `form:"limit,default=20"`
	Q           string `form:"q"`            // 按 email/name 模糊搜
	Role        string `form:"role"`         // user / admin / superadmin
	WithDeleted bool   `form:"with_deleted"` // 是否包含软删
}

type listOut struct {
	Total int64      `json:"total"`
	Items []UserView `json:"items"`
}

type createIn struct {
	Email    string      `json:"email"    binding:"required,email,max=255"`
	FullName string      `json:"fullName" binding:"required,max=100"`
	Password string      `json:"password" binding:"required,min=8,max=72"`
	Role     domain.Role `json:"role"     binding:"required"`
}

type roleIn struct {
	Role   domain.Role `json:"role"   binding:"required"`
	Reason string      `json:"reason" binding:"max=500"`
}

// Mount 挂到 /admin/v1 分组（分组已走 AuthJWT(admin)）
func (h *AdminHandler) Mount(g *gin.RouterGroup) {
	ez := httpez.New(g)
	adminOnly := domain.RoleAdmin

	// --- GET /users 用户列表 ---
	httpez.RegisterAction(ez, httpez.Action[listQ, listOut]{
		Method: http.MethodGet, Path: "/users", Binder: httpez.BindQuery, MinRole: adminOnly,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			f := domain.UserFilter{Offset: in.Offset, Limit: in.Limit, Query: in.Q, WithDeleted: in.WithDeleted}
			if s := strings.TrimSpace(in.Role); s != "" {
				r, err := domain.ParseRole(s)
				if err != nil {
					return listOut{}, httpez.BadRequest("invalid role")
				}
				f.Role = r
			}
			us, total, err := h.users.ListUsers(c, f)
			if err != nil {
				return listOut{}, err
			}
			return listOut{Total: total, Items: userViews(us)}, nil
		},
	})

	// --- POST /users 创建 ---
	httpez.RegisterAction(ez, httpez.Action[createIn, UserView]{
		Method: http.MethodPost, Path: "/users", Binder: httpez.BindJSON, MinRole: adminOnly,
		Handler: func(c *gin.Context, in *createIn) (UserView, error) {
			u, err := h.users.CreateUser(c, httpez.CallerID(c), service.CreateUserInput{
				Email: in.Email, FullName: in.FullName, Password: in.Password, Role: in.Role,
			})
			if err != nil {
				return UserView{}, err
			}
			return userView(u), nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, UserView]{
		Method: http.MethodGet, Path: "/users/:id", Binder: httpez.BindNone, MinRole: adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) (UserView, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return UserView{}, err
			}
			u, err := h.users.GetUser(c, id)
			if err != nil {
				return UserView{}, err
			}
			return userView(u), nil
		},
	})

	// --- 该用户创建的账号 ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, []UserView]{
		Method: http.MethodGet, Path: "/users/:id/created", Binder: httpez.BindNone, MinRole: adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) ([]UserView, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			us, err := h.users.UsersCreatedBy(c, id)
			if err != nil {
				return nil, err
			}
			return userViews(us), nil
		},
	})

	// --- PUT /users/:id/role 改角色（含审计） ---
	httpez.RegisterAction(ez, httpez.Action[roleIn, HistoryView]{
		Method: http.MethodPut, Path: "/users/:id/role", Binder: httpez.BindJSON, MinRole: adminOnly,
		Handler: func(c *gin.Context, in *roleIn) (HistoryView, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return HistoryView{}, err
			}
			rec, err := h.users.ChangeRole(c, httpez.CallerID(c), id, in.Role, in.Reason)
			if err != nil {
				return HistoryView{}, err
			}
			return historyView(rec), nil
		},
	})

	// --- 状态类操作 ---
	type stateOp func(c *gin.Context, actorID, subjectID int64) (*domain.User, error)
	state := func(method, path string, op stateOp) {
		httpez.RegisterAction(ez, httpez.Action[struct{}, UserView]{
			Method: method, Path: path, Binder: httpez.BindNone, MinRole: adminOnly,
			Handler: func(c *gin.Context, _ *struct{}) (UserView, error) {
				id, err := httpez.ParamID(c, "id")
				if err != nil {
					return UserView{}, err
				}
				u, err := op(c, httpez.CallerID(c), id)
				if err != nil {
					return UserView{}, err
				}
				return userView(u), nil
			},
		})
	}
	state(http.MethodDelete, "/users/:id", func(c *gin.Context, a, s int64) (*domain.User, error) {
		return h.users.SoftDelete(c, a, s)
	})
	state(http.MethodPost, "/users/:id/restore", func(c *gin.Context, a, s int64) (*domain.User, error) {
		return h.users.Restore(c, a, s)
	})
	state(http.MethodPost, "/users/:id/activate", func(c *gin.Context, a, s int64) (*domain.User, error) {
		return h.users.Activate(c, a, s)
	})
	state(http.MethodPost, "/users/:id/deactivate", func(c *gin.Context, a, s int64) (*domain.User, error) {
		return h.users.Deactivate(c, a, s)
	})

	// --- 审计查询 ---
	history := func(path string, list func(c *gin.Context, id int64) ([]domain.UserRoleHistory, error)) {
		httpez.RegisterAction(ez, httpez.Action[struct{}, []HistoryView]{
			Method: http.MethodGet, Path: path, Binder: httpez.BindNone, MinRole: adminOnly,
			Handler: func(c *gin.Context, _ *struct{}) ([]HistoryView, error) {
				id, err := httpez.ParamID(c, "id")
				if err != nil {
					return nil, err
				}
				hs, err := list(c, id)
				if err != nil {
					return nil, err
				}
				return historyViews(hs), nil
			},
		})
	}
	history("/users/:id/role-history", func(c *gin.Context, id int64) ([]domain.UserRoleHistory, error) {
		return h.users.RoleHistory(c, id)
	})
	history("/users/:id/role-changes", func(c *gin.Context, id int64) ([]domain.UserRoleHistory, error) {
		return h.users.RoleChangesBy(c, id)
	})
}
