package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-gorm-rbac/internal/core/auth"
	"go-gin-gorm-rbac/internal/domain"
	mdw "go-gin-gorm-rbac/internal/transport/http/middleware"
	resp "go-gin-gorm-rbac/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func TestMapError(t *testing.T) {
	denied := domain.DenyManage("delete", &domain.User{ID: 2, Role: domain.RoleAdmin}, &domain.User{ID: 1, Role: domain.RoleSuperadmin})
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{denied, resp.CodeForbidden, "insufficient permission"},
		{fmt.Errorf("tx: %w", domain.ErrNotFound), resp.CodeNotFound, "user not found"},
		{domain.ErrEmailTaken, resp.CodeConflict, "email already registered"},
		{domain.ErrUserDeleted, resp.CodeConflict, "user is deleted"},
		{domain.ErrInvalidCredentials, resp.CodeUnauthorized, "invalid credentials"},
		{domain.ErrInactive, resp.CodeUnauthorized, "account is inactive"},
		{fmt.Errorf("%w: expired", auth.ErrInvalidToken), resp.CodeUnauthorized, "invalid token"},
		{domain.ErrReasonTooLong, resp.CodeBadRequest, "reason too long"},
		{BadRequest("invalid id"), resp.CodeBadRequest, "invalid id"},
		{Internal("db down", errors.New("dial tcp")), resp.CodeServerError, "internal error"},
		{errors.New("boom"), resp.CodeServerError, "internal error"},
	}
	for _, tc := range cases {
		code, msg := MapError(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.msg, msg, tc.err.Error())
	}
}

type echoIn struct {
	Name string `json:"name" binding:"required"`
}

func serve(r *gin.Engine, method, path, body string) resp.Resp {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out resp.Resp
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestRegisterActionBindsAndWraps(t *testing.T) {
	r := gin.New()
	RegisterAction(New(r.Group("")), Action[echoIn, gin.H]{
		Method: http.MethodPost, Path: "/echo", Binder: BindJSON,
		Handler: func(_ *gin.Context, in *echoIn) (gin.H, error) { return gin.H{"name": in.Name}, nil },
	})

	out := serve(r, http.MethodPost, "/echo", `{"name":"x"}`)
	assert.Equal(t, resp.CodeOK, out.Code)
	assert.Equal(t, map[string]any{"name": "x"}, out.Data)

	out = serve(r, http.MethodPost, "/echo", `{}`)
	assert.Equal(t, resp.CodeBadRequest, out.Code)
}

func TestRegisterActionRoleGate(t *testing.T) {
	r := gin.New()
	asRole := func(role domain.Role) gin.HandlerFunc {
		return func(c *gin.Context) {
			if role != 0 {
				c.Set(mdw.CtxUserID, int64(7))
				c.Set(mdw.CtxRole, role)
			}
		}
	}
	handler := Action[struct{}, int64]{
		Method: http.MethodGet, Binder: BindNone, MinRole: domain.RoleAdmin,
		Handler: func(c *gin.Context, _ *struct{}) (int64, error) { return CallerID(c), nil },
	}
	for name, role := range map[string]domain.Role{"anon": 0, "user": domain.RoleUser, "admin": domain.RoleAdmin} {
		g := r.Group("/" + name)
		g.Use(asRole(role))
		h := handler
		h.Path = "/x"
		RegisterAction(New(g), h)
	}

	assert.Equal(t, resp.CodeUnauthorized, serve(r, http.MethodGet, "/anon/x", "").Code)
	assert.Equal(t, resp.CodeForbidden, serve(r, http.MethodGet, "/user/x", "").Code)
	out := serve(r, http.MethodGet, "/admin/x", "")
	require.Equal(t, resp.CodeOK, out.Code)
	assert.Equal(t, float64(7), out.Data)
}

func TestParamID(t *testing.T) {
	r := gin.New()
	r.GET("/u/:id", func(c *gin.Context) {
		id, err := ParamID(c, "id")
		if err != nil {
			code, msg := MapError(err)
			c.JSON(http.StatusOK, resp.Error(code, msg))
			return
		}
		c.JSON(http.StatusOK, resp.OK(id))
	})
	assert.Equal(t, float64(12), serve(r, http.MethodGet, "/u/12", "").Data)
	assert.Equal(t, resp.CodeBadRequest, serve(r, http.MethodGet, "/u/0", "").Code)
	assert.Equal(t, resp.CodeBadRequest, serve(r, http.MethodGet, "/u/x", "").Code)
}
