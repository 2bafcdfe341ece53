package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/internal/feature/user"
)

type UserRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	u.Touch(r.now())
	m := user.FromUser(u)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.ID = m.ID
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r *UserRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.first(tx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(r.db.WithContext(ctx), "email = ?", email)
}

func (r *UserRepo) first(tx *gorm.DB, query string, arg any) (*domain.User, error) {
	var m user.UserModel
	if err := tx.Where(query, arg).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&user.UserModel{})
	if !f.WithDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + s + "%"
		q = q.Where("email LIKE ? OR full_name LIKE ?", like, like)
	}
	if f.Role != 0 {
		q = q.Where("role = ?", int(f.Role))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var ms []user.UserModel
	if err := q.Order("created_at DESC, id DESC").Offset(f.Offset).Limit(f.Limit).Find(&ms).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return toUsers(ms), total, nil
}

func (r *UserRepo) ListCreatedBy(ctx context.Context, creatorID int64) ([]domain.User, error) {
	var ms []user.UserModel
	err := r.db.WithContext(ctx).
		Where("created_by_id = ?", creatorID).
		Order("id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("list users created by %d: %w", creatorID, err)
	}
	return toUsers(ms), nil
}

// Update writes every column, zero values included.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	u.Touch(r.now())
	m := user.FromUser(u)
	res := r.db.WithContext(ctx).Model(m).Select("*").Omit(clause.Associations).Updates(m)
	if res.Error != nil {
		if isDupKey(res.Error) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("update user %d: %w", u.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// HardDelete removes the row. Foreign keys cascade it to the role history.
func (r *UserRepo) HardDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&user.UserModel{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toUsers(ms []user.UserModel) []domain.User {
	out := make([]domain.User, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out
}
