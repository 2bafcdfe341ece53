package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-rbac/internal/core/auth"
	"go-gin-gorm-rbac/internal/domain"
	resp "go-gin-gorm-rbac/internal/transport/http/response"
)

// gin.Context keys set by AuthJWT
const (
	CtxUserID = "userId"
	CtxRole   = "role"
)

// AuthJWT 校验 access token；minRole 为 0 时只要求登录。
// token 里的角色只用于粗粒度拦截，写操作在 service 层会重新读库。
func AuthJWT(j *auth.JWTer, minRole domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Abort(c, resp.CodeUnauthorized, "missing token")
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			resp.Abort(c, resp.CodeUnauthorized, "invalid token")
			return
		}
		role, err := domain.ParseRole(claims.Role)
		if err != nil {
			resp.Abort(c, resp.CodeUnauthorized, "invalid token")
			return
		}
		if minRole != 0 && role < minRole {
			resp.Abort(c, resp.CodeForbidden, domain.ErrPermissionDenied.Error())
			return
		}
		c.Set(CtxUserID, claims.UID)
		c.Set(CtxRole, role)
		c.Next()
	}
}

// UserID returns the authenticated caller, if any.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
