package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/pkg/utils"
)

// EnsureSuperadmin creates the initial SUPERADMIN unless an account with the
// email already exists. It reports whether a row was created. An existing
// account is left untouched, even if its role or password differ.
func EnsureSuperadmin(ctx context.Context, store domain.Store, l *zap.Logger, email, password, fullName string) (*domain.User, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, false, errors.New("superadmin email is empty")
	}
	existing, err := store.Users().FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.IsSuperadmin() {
			l.Warn("bootstrap account exists without superadmin role",
				zap.String("email", email), zap.Stringer("role", existing.Role))
		}
		return existing, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(fullName) == "" {
		fullName = "Super Admin"
	}
	u := domain.NewUser(email, strings.TrimSpace(fullName), hash, domain.RoleSuperadmin, nil)
	if err := store.Users().Create(ctx, u); err != nil {
		// lost a race with another process
		if errors.Is(err, domain.ErrEmailTaken) {
			existing, err = store.Users().FindByEmail(ctx, email)
			return existing, false, err
		}
		return nil, false, err
	}
	l.Info("superadmin created", zap.Int64("id", u.ID), zap.String("email", u.Email))
	return u, true, nil
}
