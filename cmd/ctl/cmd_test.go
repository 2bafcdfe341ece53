package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-gin-gorm-rbac/internal/core/database"
	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/internal/repo"
	"go-gin-gorm-rbac/pkg/utils"
)

func setup(t *testing.T) (configPath, dsn string) {
	t.Helper()
	utils.Cost = bcrypt.MinCost
	t.Cleanup(func() { utils.Cost = bcrypt.DefaultCost })

	dir := t.TempDir()
	dsn = "file:" + filepath.Join(dir, "ctl.db") + "?_foreign_keys=on"
	t.Setenv("APP_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("APP_DB_DRIVER", "sqlite")
	t.Setenv("APP_DB_DSN", dsn)
	t.Setenv("APP_DB_LOG_LEVEL", "silent")
	t.Setenv("APP_LOG_LEVEL", "error")
	t.Setenv("APP_SUPERADMIN_EMAIL", "root@example.com")
	t.Setenv("APP_SUPERADMIN_PASSWORD", "Passw0rd")
	return filepath.Join(dir, "none.yaml"), dsn
}

func run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func addUser(t *testing.T, dsn, email string) int64 {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1, LogLevel: "silent"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	u := domain.NewUser(email, "Alice", "hash", domain.RoleUser, nil)
	require.NoError(t, repo.NewStore(db).Users().Create(context.Background(), u))
	return u.ID
}

func TestCtlWorkflow(t *testing.T) {
	cfg, dsn := setup(t)

	out, err := run("-c", cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")

	out, err = run("-c", cfg, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "superadmin created: id=1 root@example.com")

	out, err = run("-c", cfg, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "superadmin exists: id=1")

	id := addUser(t, dsn, "alice@example.com")

	out, err = run("-c", cfg, "role", "--actor", "1", "--user", itoa(id), "--role", "admin", "--reason", "team lead")
	require.NoError(t, err)
	assert.Contains(t, out, "USER → ADMIN (promotion)")

	_, err = run("-c", cfg, "role", "--actor", itoa(id), "--user", "1", "--role", "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	out, err = run("-c", cfg, "history", "--user", itoa(id))
	require.NoError(t, err)
	assert.Contains(t, out, "by=1")
	assert.Contains(t, out, "team lead")

	out, err = run("-c", cfg, "history", "--actor", itoa(id))
	require.NoError(t, err)
	assert.Contains(t, out, "no role changes")

	_, err = run("-c", cfg, "history", "--user", "1", "--actor", "1")
	assert.Error(t, err)

	_, err = run("-c", cfg, "role", "--actor", "1", "--user", itoa(id), "--role", "owner")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestCtlRollbackNeedsPostgres(t *testing.T) {
	cfg, _ := setup(t)
	_, err := run("-c", cfg, "migrate", "--rollback")
	assert.Error(t, err)
}

func itoa(id int64) string { return fmt.Sprint(id) }
