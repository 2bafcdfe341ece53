package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"go-gin-gorm-rbac/internal/core/auth"
	"go-gin-gorm-rbac/internal/core/logger"
	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/pkg/utils"
)

type AuthService struct {
	store domain.Store
	jwt   *auth.JWTer
	log   *zap.Logger
}

func NewAuthService(store domain.Store, j *auth.JWTer, l *zap.Logger) *AuthService {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthService{store: store, jwt: j, log: l}
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"` // seconds
}

// Register creates a self-registered USER with no creator.
func (a *AuthService) Register(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			fullName = email[:at]
		} else {
			fullName = "user"
		}
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := domain.NewUser(email, fullName, hash, domain.RoleUser, nil)
	if err := a.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	logger.For(ctx, a.log).Info("user registered", zap.Int64("id", u.ID), zap.String("email", u.Email))
	return u, nil
}

// Login checks the password before the account state, so probing an unknown
// password never reveals whether an account is disabled.
func (a *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	u, err := a.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if !utils.CheckPassword(password, u.HashedPassword) {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if u.IsDeleted() || !u.IsActive {
		return nil, nil, domain.ErrInactive
	}
	pair, err := a.issue(u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Refresh exchanges a refresh token for a new pair. The role is re-read so a
// demotion takes effect at the next refresh.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := a.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := a.active(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	return a.issue(u)
}

func (a *AuthService) Me(ctx context.Context, uid int64) (*domain.User, error) {
	return a.active(ctx, uid)
}

// MyRoleHistory lists the role changes applied to the caller.
func (a *AuthService) MyRoleHistory(ctx context.Context, uid int64) ([]domain.UserRoleHistory, error) {
	if _, err := a.active(ctx, uid); err != nil {
		return nil, err
	}
	return a.store.RoleHistory().ListByUser(ctx, uid)
}

func (a *AuthService) active(ctx context.Context, uid int64) (*domain.User, error) {
	u, err := a.store.Users().FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u.IsDeleted() || !u.IsActive {
		return nil, domain.ErrInactive
	}
	return u, nil
}

func (a *AuthService) issue(u *domain.User) (*TokenPair, error) {
	access, err := a.jwt.Issue(u.ID, u.Role.DisplayName())
	if err != nil {
		return nil, err
	}
	refresh, err := a.jwt.IssueRefresh(u.ID, u.Role.DisplayName())
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(a.jwt.TTL.Seconds()),
	}, nil
}
