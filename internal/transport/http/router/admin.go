// internal/transport/http/router/admin.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-rbac/internal/core/auth"
	"go-gin-gorm-rbac/internal/core/server"
	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/internal/transport/http/handler"
	mdw "go-gin-gorm-rbac/internal/transport/http/middleware"
)

func NewAdminEngine(l *zap.Logger, opt Options, adminH *handler.AdminHandler, jwter *auth.JWTer) *gin.Engine {
	r := server.NewRouter(opt.Origins)

	r.Use(
		mdw.RequestID(),
		mdw.SecureHeaders(opt.Production),
		mdw.Recovery(l),
		mdw.Metrics("admin"),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.AccessLog(l),
	)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "admin", "admin_v1": "/admin/v1"})
	})

	// 管理端 v1（统一要求 admin 及以上）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, domain.RoleAdmin))
	adminH.Mount(admin)

	return r
}
