package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-rbac/internal/core/auth"
	"go-gin-gorm-rbac/internal/core/server"
	"go-gin-gorm-rbac/internal/transport/http/handler"
	mdw "go-gin-gorm-rbac/internal/transport/http/middleware"
)

// Options 两个引擎共用的启动参数
type Options struct {
	Origins    []string // CORS 白名单，空 = 全部放开
	Production bool     // 强制 HTTPS
}

func NewAPIEngine(l *zap.Logger, opt Options, authH *handler.AuthHandler, jwter *auth.JWTer) *gin.Engine {
	r := server.NewRouter(opt.Origins)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.SecureHeaders(opt.Production),
		mdw.Recovery(l),
		mdw.Metrics("api"),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.AccessLog(l),
	)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "api", "api_v1": "/api/v1"})
	})

	// 前缀
	api := r.Group("/api/v1")

	// 公共接口：注册/登录/刷新按 IP 限速
	public := api.Group("")
	public.Use(mdw.RateLimitPerIP(5, 20))
	authH.MountPublic(public)

	// 鉴权分组（⚠️ /me 必须挂这里，才能拿到 userId）
	authUser := api.Group("")
	authUser.Use(mdw.AuthJWT(jwter, 0))
	authH.MountAuthed(authUser)

	return r
}
