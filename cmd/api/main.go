package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-gin-gorm-rbac/internal/app"
	"go-gin-gorm-rbac/internal/core/config"
	"go-gin-gorm-rbac/internal/core/logger"
	"go-gin-gorm-rbac/internal/core/server"
	"go-gin-gorm-rbac/internal/repo"
	"go-gin-gorm-rbac/internal/service"
	"go-gin-gorm-rbac/internal/transport/http/handler"
	"go-gin-gorm-rbac/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 数据库（失败直接 Fatal）
	db, err := app.OpenDB(ctx, cfg, log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	store := repo.NewStore(db)

	// 首次启动创建超级管理员
	if _, _, err := service.EnsureSuperadmin(ctx, store, log,
		cfg.Superadmin.Email, cfg.Superadmin.Password, cfg.Superadmin.FullName); err != nil {
		log.Fatal("bootstrap superadmin", zap.Error(err))
	}

	// 路由（用户端）
	jwter := app.NewJWTer(cfg)
	authH := handler.NewAuthHandler(service.NewAuthService(store, jwter, log))
	r := router.NewAPIEngine(log, router.Options{Origins: cfg.CORSOriginList(), Production: cfg.IsProduction()}, authH, jwter)

	// HTTP Server
	srv := app.NewServer(cfg.App.HTTP, r)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("env", cfg.App.Env),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Fatal("user api FAILED", zap.Error(err))
	}
	log.Info("user api stopped gracefully")
}
