package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go-gin-gorm-rbac/internal/domain"
)

// Store implements domain.Store on top of gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source used to stamp audit columns.
func (s *Store) WithClock(now func() time.Time) *Store { return &Store{db: s.db, now: now} }

// DB exposes the handle for schema tooling.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Users() domain.UserRepository { return &UserRepo{db: s.db, now: s.now} }

func (s *Store) RoleHistory() domain.RoleHistoryRepository {
	return &RoleHistoryRepo{db: s.db, now: s.now}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, now: s.now})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// drivers without error translation
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
