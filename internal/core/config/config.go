package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec" validate:"min=1"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec" validate:"min=1"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout_sec" validate:"min=1"`
}

func (h HTTP) ReadTimeout() time.Duration  { return time.Duration(h.ReadTimeoutSec) * time.Second }
func (h HTTP) WriteTimeout() time.Duration { return time.Duration(h.WriteTimeoutSec) * time.Second }
func (h HTTP) IdleTimeout() time.Duration  { return time.Duration(h.IdleTimeoutSec) * time.Second }

type App struct {
	Name        string    `mapstructure:"name" validate:"required"`
	Env         string    `mapstructure:"env" validate:"oneof=development staging production"`
	Debug       bool      `mapstructure:"debug"`
	HTTP        HTTP      `mapstructure:"http"`
	Admin       HTTP      `mapstructure:"admin"`
	CORSOrigins string    `mapstructure:"cors_origins"` // 逗号分隔；空 = 允许全部
}

type Log struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"` // 非空时启用 lumberjack 切割
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type JWT struct {
	Secret              string `mapstructure:"secret" validate:"min=32"`
	Issuer              string `mapstructure:"issuer" validate:"required"`
	Algorithm           string `mapstructure:"algorithm" validate:"oneof=HS256 HS384 HS512"`
	AccessTokenTTLMin   int    `mapstructure:"access_token_ttl_min" validate:"min=1,max=1440"`
	RefreshTokenTTLDays int    `mapstructure:"refresh_token_ttl_days" validate:"min=1,max=365"`
}

func (j JWT) AccessTTL() time.Duration  { return time.Duration(j.AccessTokenTTLMin) * time.Minute }
func (j JWT) RefreshTTL() time.Duration { return time.Duration(j.RefreshTokenTTLDays) * 24 * time.Hour }

type Redis struct {
	Addr     string `mapstructure:"addr"` // 空 = 不启用缓存
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

type DB struct {
	Driver             string `mapstructure:"driver" validate:"oneof=postgres mysql sqlite"`
	DSN                string `mapstructure:"dsn" validate:"required"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MaxOpenConns       int    `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns" validate:"min=0,ltefield=MaxOpenConns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min" validate:"min=1"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level" validate:"oneof=silent error warn info"`
	SlowThresholdMs    int    `mapstructure:"slow_threshold_ms" validate:"min=0"`
}

// Superadmin is the account created on first start.
type Superadmin struct {
	Email    string `mapstructure:"email" validate:"required,email"`
	Password string `mapstructure:"password" validate:"min=8,strong_password"`
	FullName string `mapstructure:"full_name"`
}

type Config struct {
	App        App        `mapstructure:"app"`
	Log        Log        `mapstructure:"log"`
	JWT        JWT        `mapstructure:"jwt"`
	DB         DB         `mapstructure:"db"`
	Redis      Redis      `mapstructure:"redis"`
	Superadmin Superadmin `mapstructure:"superadmin"`
}

func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// CORSOriginList splits App.CORSOrigins; nil means any origin.
func (c *Config) CORSOriginList() []string {
	var out []string
	for _, o := range strings.Split(c.App.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "go-gin-gorm-rbac")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.read_timeout_sec", 10)
	v.SetDefault("app.http.write_timeout_sec", 15)
	v.SetDefault("app.http.idle_timeout_sec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("app.admin.read_timeout_sec", 5)
	v.SetDefault("app.admin.write_timeout_sec", 10)
	v.SetDefault("app.admin.idle_timeout_sec", 60)
	v.SetDefault("app.cors_origins", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "go-gin-gorm-rbac")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.access_token_ttl_min", 30)
	v.SetDefault("jwt.refresh_token_ttl_days", 7)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.max_open_conns", 30)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime_min", 60)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.log_level", "warn")
	v.SetDefault("db.slow_threshold_ms", 200)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("superadmin.email", "")
	v.SetDefault("superadmin.password", "")
	v.SetDefault("superadmin.full_name", "Super Admin")
}

// Load reads the YAML file at path (CONFIG_PATH, then
// ./configs/config.local.yaml when empty), applies APP_* environment
// overrides and validates the result. A missing file is not an error:
// defaults and environment are enough to start.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return Validate(&c)
}

// MustLoad 启动期专用：配置有误直接退出
func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	return v
}

func strongPassword(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// Validate normalises a copy of raw and checks it. raw is not modified.
func Validate(raw *Config) (*Config, error) {
	c := *raw
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	c.DB.LogLevel = strings.ToLower(strings.TrimSpace(c.DB.LogLevel))
	c.JWT.Algorithm = strings.ToUpper(strings.TrimSpace(c.JWT.Algorithm))
	c.Superadmin.Email = strings.TrimSpace(c.Superadmin.Email)

	var msgs []string
	if err := validate.Struct(&c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
	}
	if c.IsProduction() && c.App.Debug {
		msgs = append(msgs, "app.debug must be off in production")
	}
	if len(msgs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return &c, nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "strong_password":
		return field + " must contain upper case, lower case and digit characters"
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s fails %s", field, fe.Tag())
	}
}
