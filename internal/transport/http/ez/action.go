package ez

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-rbac/internal/core/auth"
	"go-gin-gorm-rbac/internal/domain"
	mdw "go-gin-gorm-rbac/internal/transport/http/middleware"
	resp "go-gin-gorm-rbac/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AErr{Code: resp.CodeConflict, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string      // "GET" | "POST" | "PUT" | "DELETE"
	Path    string      // 例："/auth/login"、"/users/:id/role"
	Binder  Binder      // 绑定方式
	Auth    bool        // 是否要求登录（检查 userId）
	MinRole domain.Role // 最低角色（可选，隐含 Auth）
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口。事务由 service 层负责。
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth || a.MinRole != 0 {
			if _, ok := c.Get(mdw.CtxUserID); !ok {
				resp.JSON(c, resp.Error(resp.CodeUnauthorized, "unauthorized"))
				return
			}
			if a.MinRole != 0 {
				role, _ := c.Get(mdw.CtxRole)
				if r, ok := role.(domain.Role); !ok || r < a.MinRole {
					resp.JSON(c, resp.Error(resp.CodeForbidden, domain.ErrPermissionDenied.Error()))
					return
				}
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			resp.JSON(c, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)

		// 4) 统一错误映射
		if err != nil {
			code, msg := MapError(err)
			if code == resp.CodeServerError {
				_ = c.Error(err)
			}
			resp.JSON(c, resp.Error(code, msg))
			return
		}
		resp.JSON(c, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// MapError turns service errors into envelope codes. Permission denials only
// expose the generic message; the diagnostic text stays in server logs.
func MapError(err error) (int, string) {
	var ae *AErr
	switch {
	case errors.As(err, &ae):
		if ae.Code == resp.CodeServerError {
			return ae.Code, "internal error"
		}
		return ae.Code, ae.Error()
	case errors.Is(err, domain.ErrPermissionDenied):
		return resp.CodeForbidden, domain.ErrPermissionDenied.Error()
	case errors.Is(err, domain.ErrNotFound):
		return resp.CodeNotFound, "user not found"
	case errors.Is(err, domain.ErrEmailTaken), errors.Is(err, domain.ErrUserDeleted):
		return resp.CodeConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInactive):
		return resp.CodeUnauthorized, err.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return resp.CodeUnauthorized, auth.ErrInvalidToken.Error()
	case errors.Is(err, domain.ErrInvalidRole), errors.Is(err, domain.ErrReasonTooLong):
		return resp.CodeBadRequest, err.Error()
	default:
		return resp.CodeServerError, "internal error"
	}
}

// ParamID reads a positive int64 path parameter.
func ParamID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, BadRequest("invalid " + name)
	}
	return id, nil
}

// CallerID is the authenticated user id; zero when the route is public.
func CallerID(c *gin.Context) int64 {
	id, _ := mdw.UserID(c)
	return id
}
