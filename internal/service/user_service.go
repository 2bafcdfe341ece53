package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"go-gin-gorm-rbac/internal/core/cache"
	"go-gin-gorm-rbac/internal/core/logger"
	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/pkg/utils"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// UserService runs administrative operations. Every write re-reads the actor
// inside the transaction, so a token minted before a demotion or deletion
// cannot be used to act with stale rights.
type UserService struct {
	store domain.Store
	cache   *cache.Cache // optional
	ttl     time.Duration
	redelay time.Duration // 延迟二次删除
	log     *zap.Logger
}

func NewUserService(store domain.Store, c *cache.Cache, l *zap.Logger) *UserService {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserService{store: store, cache: c, ttl: 5 * time.Minute, redelay: 500 * time.Millisecond, log: l}
}

type CreateUserInput struct {
	Email    string
	FullName string
	Password string
	Role     domain.Role
}

func userKey(id int64) string { return fmt.Sprintf("user:%d", id) }

func (s *UserService) CreateUser(ctx context.Context, actorID int64, in CreateUserInput) (*domain.User, error) {
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	actor, err := loadActor(ctx, s.store, actorID)
	if err != nil {
		return nil, err
	}
	u := domain.NewUser(strings.TrimSpace(in.Email), strings.TrimSpace(in.FullName), "", in.Role, actor)
	if !actor.Role.CanManage(in.Role) {
		return nil, s.denied(ctx, "create", actor, u)
	}
	if u.HashedPassword, err = utils.HashPassword(in.Password); err != nil {
		return nil, err
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	logger.For(ctx, s.log).Info("user created",
		zap.Int64("id", u.ID), zap.String("email", u.Email),
		zap.Stringer("role", u.Role), zap.Int64("by", actor.ID))
	return u, nil
}

// GetUser reads through the cache when one is configured. Deleted users are
// returned; callers decide what to show.
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	load := func(ctx context.Context) (*domain.User, error) { return s.store.Users().FindByID(ctx, id) }
	if s.cache == nil {
		return load(ctx)
	}
	return cache.GetOrLoadJSON(s.cache, ctx, userKey(id), s.ttl, load)
}

func (s *UserService) ListUsers(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	if f.Limit <= 0 || f.Limit > maxLimit {
		f.Limit = defaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Query = strings.TrimSpace(f.Query)
	return s.store.Users().List(ctx, f)
}

func (s *UserService) UsersCreatedBy(ctx context.Context, creatorID int64) ([]domain.User, error) {
	if _, err := s.store.Users().FindByID(ctx, creatorID); err != nil {
		return nil, err
	}
	return s.store.Users().ListCreatedBy(ctx, creatorID)
}

// ChangeRole assigns newRole to the subject and appends the audit row in the
// same transaction. The subject row stays locked from the permission check
// until commit, and a failed history insert rolls the role back.
func (s *UserService) ChangeRole(ctx context.Context, actorID, subjectID int64, newRole domain.Role, reason string) (*domain.UserRoleHistory, error) {
	if !newRole.Valid() {
		return nil, domain.ErrInvalidRole
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > domain.MaxReasonLength {
		return nil, domain.ErrReasonTooLong
	}

	var h *domain.UserRoleHistory
	err := s.store.Transaction(ctx, func(tx domain.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		subject, err := tx.Users().FindByIDForUpdate(ctx, subjectID)
		if err != nil {
			return err
		}
		if !actor.CanManage(subject) {
			return s.denied(ctx, "change role of", actor, subject)
		}
		if !actor.Role.CanManage(newRole) {
			return s.denied(ctx, "grant "+newRole.DisplayName()+" to", actor, subject)
		}
		if subject.IsDeleted() {
			return domain.ErrUserDeleted
		}

		h = domain.NewRoleChange(subject, newRole, actor, reason)
		subject.Role = newRole
		if err := tx.Users().Update(ctx, subject); err != nil {
			return err
		}
		return tx.RoleHistory().Create(ctx, h)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, subjectID)
	roleChanges.WithLabelValues(direction(h)).Inc()
	logger.For(ctx, s.log).Info("role changed",
		zap.Int64("user", h.UserID), zap.Int64("by", actorID),
		zap.String("change", h.Description()))
	return h, nil
}

func (s *UserService) SoftDelete(ctx context.Context, actorID, subjectID int64) (*domain.User, error) {
	return s.mutate(ctx, "delete", actorID, subjectID, func(actor, subject *domain.User) error {
		if subject.IsDeleted() {
			return domain.ErrUserDeleted
		}
		return subject.SoftDelete(actor)
	})
}

// Restore clears the deletion marks. The account stays inactive until it is
// activated separately.
func (s *UserService) Restore(ctx context.Context, actorID, subjectID int64) (*domain.User, error) {
	return s.mutate(ctx, "restore", actorID, subjectID, func(_, subject *domain.User) error {
		subject.Restore()
		return nil
	})
}

func (s *UserService) Activate(ctx context.Context, actorID, subjectID int64) (*domain.User, error) {
	return s.mutate(ctx, "activate", actorID, subjectID, func(_, subject *domain.User) error {
		if subject.IsDeleted() {
			return domain.ErrUserDeleted
		}
		subject.Activate()
		return nil
	})
}

func (s *UserService) Deactivate(ctx context.Context, actorID, subjectID int64) (*domain.User, error) {
	return s.mutate(ctx, "deactivate", actorID, subjectID, func(_, subject *domain.User) error {
		subject.Deactivate()
		return nil
	})
}

func (s *UserService) RoleHistory(ctx context.Context, userID int64) ([]domain.UserRoleHistory, error) {
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.RoleHistory().ListByUser(ctx, userID)
}

func (s *UserService) RoleChangesBy(ctx context.Context, actorID int64) ([]domain.UserRoleHistory, error) {
	if _, err := s.store.Users().FindByID(ctx, actorID); err != nil {
		return nil, err
	}
	return s.store.RoleHistory().ListByActor(ctx, actorID)
}

// mutate locks the subject, checks the actor may manage it, applies fn and
// saves the subject, all in one transaction.
func (s *UserService) mutate(ctx context.Context, action string, actorID, subjectID int64, fn func(actor, subject *domain.User) error) (*domain.User, error) {
	var out *domain.User
	err := s.store.Transaction(ctx, func(tx domain.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		subject, err := tx.Users().FindByIDForUpdate(ctx, subjectID)
		if err != nil {
			return err
		}
		if !actor.CanManage(subject) {
			return s.denied(ctx, action, actor, subject)
		}
		if err := fn(actor, subject); err != nil {
			return err
		}
		if err := tx.Users().Update(ctx, subject); err != nil {
			return err
		}
		out = subject
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, subjectID)
	logger.For(ctx, s.log).Info("user "+action,
		zap.Int64("user", subjectID), zap.Int64("by", actorID), zap.String("status", out.Status()))
	return out, nil
}

// denied builds the diagnostic error, logs it with the request id and counts it. Clients only see
// domain.ErrPermissionDenied's message.
func (s *UserService) denied(ctx context.Context, action string, actor, subject *domain.User) error {
	err := domain.DenyManage(action, actor, subject)
	var pd *domain.PermissionDeniedError
	if errors.As(err, &pd) {
		logger.For(ctx, s.log).Warn("permission denied",
			zap.String("action", pd.Action),
			zap.Int64("actor_id", pd.ActorID), zap.String("actor_email", pd.ActorEmail),
			zap.Stringer("actor_role", pd.ActorRole),
			zap.Int64("subject_id", pd.SubjectID), zap.String("subject_email", pd.SubjectEmail),
			zap.Stringer("subject_role", pd.SubjectRole))
	}
	permissionDenied.WithLabelValues(actionLabel(action)).Inc()
	return err
}

// actionLabel keeps metric cardinality bounded.
func actionLabel(action string) string {
	if strings.HasPrefix(action, "grant ") {
		return "grant"
	}
	return strings.TrimSuffix(action, " of")
}

func (s *UserService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTwice(ctx, s.redelay, userKey(id)); err != nil {
		logger.For(ctx, s.log).Warn("cache invalidate failed", zap.Int64("user", id), zap.Error(err))
	}
}

// loadActor resolves the acting user. Missing, deleted or inactive actors
// are all refused with ErrInactive.
func loadActor(ctx context.Context, st domain.Store, id int64) (*domain.User, error) {
	u, err := st.Users().FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInactive
	}
	if err != nil {
		return nil, err
	}
	if u.IsDeleted() || !u.IsActive {
		return nil, domain.ErrInactive
	}
	return u, nil
}
