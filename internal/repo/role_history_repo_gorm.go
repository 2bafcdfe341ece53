package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/internal/feature/user"
)

type RoleHistoryRepo struct {
	db  *gorm.DB
	now func() time.Time
}

// Create inserts h and assigns its ID. ChangedAt is stamped here when unset.
func (r *RoleHistoryRepo) Create(ctx context.Context, h *domain.UserRoleHistory) error {
	now := r.now()
	if h.ChangedAt.IsZero() {
		h.ChangedAt = now
	}
	h.Touch(now)
	m := user.FromRoleHistory(h)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return fmt.Errorf("create role history: %w", err)
	}
	h.ID = m.ID
	return nil
}

// ListByUser returns the subject's role changes, most recent first.
func (r *RoleHistoryRepo) ListByUser(ctx context.Context, userID int64) ([]domain.UserRoleHistory, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *RoleHistoryRepo) ListByActor(ctx context.Context, actorID int64) ([]domain.UserRoleHistory, error) {
	return r.list(ctx, "changed_by_id = ?", actorID)
}

func (r *RoleHistoryRepo) list(ctx context.Context, query string, arg any) ([]domain.UserRoleHistory, error) {
	var ms []user.RoleHistoryModel
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Where("deleted_at IS NULL").
		Order("changed_at DESC, id DESC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("list role history: %w", err)
	}
	out := make([]domain.UserRoleHistory, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out, nil
}
