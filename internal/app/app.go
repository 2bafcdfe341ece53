// Package app wires config into the shared runtime pieces used by every
// binary: logger, database, cache and token issuer.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"go-gin-gorm-rbac/internal/core/auth"
	"go-gin-gorm-rbac/internal/core/cache"
	"go-gin-gorm-rbac/internal/core/config"
	"go-gin-gorm-rbac/internal/core/database"
	"go-gin-gorm-rbac/internal/core/logger"
	"go-gin-gorm-rbac/internal/core/server"
)

func NewLogger(cfg *config.Config) (*zap.Logger, func()) {
	return logger.New(cfg.Log, cfg.App)
}

// OpenDB connects and, when db.auto_migrate is set, brings the schema up to date.
func OpenDB(ctx context.Context, cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		SlowThreshold:      time.Duration(cfg.DB.SlowThresholdMs) * time.Millisecond,
		Writer:             logger.NewPrintfWriter(l.Named("gorm"), zapcore.WarnLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		l.Info("migrations applied")
	}
	return db, nil
}

// OpenCache returns nil when redis.addr is empty or unreachable; the
// services then read straight from the database.
func OpenCache(ctx context.Context, cfg *config.Config, l *zap.Logger) *cache.Cache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pctx); err != nil {
		l.Warn("redis unavailable, cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = c.Close()
		return nil
	}
	l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	return c
}

func NewJWTer(cfg *config.Config) *auth.JWTer {
	return &auth.JWTer{
		Secret:     []byte(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		TTL:        cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
		Method:     jwt.GetSigningMethod(cfg.JWT.Algorithm),
	}
}

// NewServer builds the listener for one of the http / admin sections.
func NewServer(h config.HTTP, handler http.Handler) *http.Server {
	return server.BuildServer(server.Addr(h.Host, h.Port), handler, h.ReadTimeout(), h.WriteTimeout(), h.IdleTimeout())
}
