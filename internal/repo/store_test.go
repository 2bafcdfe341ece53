package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/internal/testutil"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newStore(t *testing.T) (*Store, *fixedClock) {
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(testutil.NewDB(t)).WithClock(clock.now), clock
}

func mustCreate(t *testing.T, s *Store, email string, role domain.Role, creator *domain.User) *domain.User {
	t.Helper()
	u := domain.NewUser(email, "Name "+email, "hash", role, creator)
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestUserRepoCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore(t)

	su := mustCreate(t, s, "root@example.com", domain.RoleSuperadmin, nil)
	assert.NotZero(t, su.ID)
	assert.Equal(t, clock.t, su.CreatedAt)
	assert.Equal(t, clock.t, su.UpdatedAt)

	got, err := s.Users().FindByID(ctx, su.ID)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", got.Email)
	assert.Equal(t, domain.RoleSuperadmin, got.Role)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.CreatedByID)
	assert.True(t, clock.t.Equal(got.CreatedAt))

	byEmail, err := s.Users().FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, su.ID, byEmail.ID)

	_, err = s.Users().FindByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Users().FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepoEmailStaysReservedAfterSoftDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	admin := mustCreate(t, s, "admin@example.com", domain.RoleAdmin, nil)
	u := mustCreate(t, s, "taken@example.com", domain.RoleUser, admin)

	require.NoError(t, u.SoftDelete(admin))
	require.NoError(t, s.Users().Update(ctx, u))

	dup := domain.NewUser("taken@example.com", "Again", "hash", domain.RoleUser, nil)
	assert.ErrorIs(t, s.Users().Create(ctx, dup), domain.ErrEmailTaken)
}

func TestUserRepoUpdateWritesZeroValuesAndTouches(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore(t)

	admin := mustCreate(t, s, "admin@example.com", domain.RoleAdmin, nil)
	u := mustCreate(t, s, "u@example.com", domain.RoleUser, admin)
	created := u.CreatedAt

	clock.t = clock.t.Add(time.Hour)
	require.NoError(t, u.SoftDelete(admin))
	require.NoError(t, s.Users().Update(ctx, u))

	got, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.DeletedAt)
	require.NotNil(t, got.DeletedByID)
	assert.Equal(t, admin.ID, *got.DeletedByID)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.True(t, clock.t.Equal(got.UpdatedAt))

	got.Restore()
	require.NoError(t, s.Users().Update(ctx, got))
	again, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, again.DeletedAt)
	assert.Nil(t, again.DeletedByID)
	assert.False(t, again.IsActive)

	ghost := domain.NewUser("ghost@example.com", "Ghost", "hash", domain.RoleUser, nil)
	ghost.ID = 12345
	assert.ErrorIs(t, s.Users().Update(ctx, ghost), domain.ErrNotFound)
}

func TestUserRepoListFilters(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore(t)

	su := mustCreate(t, s, "root@example.com", domain.RoleSuperadmin, nil)
	clock.t = clock.t.Add(time.Minute)
	a := mustCreate(t, s, "alice@example.com", domain.RoleAdmin, su)
	clock.t = clock.t.Add(time.Minute)
	b := mustCreate(t, s, "bob@example.com", domain.RoleUser, a)
	clock.t = clock.t.Add(time.Minute)
	c := mustCreate(t, s, "carol@example.com", domain.RoleUser, a)

	require.NoError(t, c.SoftDelete(a))
	require.NoError(t, s.Users().Update(ctx, c))

	users, total, err := s.Users().List(ctx, domain.UserFilter{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 3)
	assert.Equal(t, b.ID, users[0].ID, "newest first")

	_, total, err = s.Users().List(ctx, domain.UserFilter{Limit: 10, WithDeleted: true})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)

	users, total, err = s.Users().List(ctx, domain.UserFilter{Limit: 10, Role: domain.RoleUser, WithDeleted: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	users, _, err = s.Users().List(ctx, domain.UserFilter{Limit: 10, Query: "ali"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, a.ID, users[0].ID)

	users, total, err = s.Users().List(ctx, domain.UserFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, a.ID, users[0].ID)

	created, err := s.Users().ListCreatedBy(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, b.ID, created[0].ID)
	assert.Equal(t, c.ID, created[1].ID)
}

func TestRoleHistoryMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore(t)

	su := mustCreate(t, s, "root@example.com", domain.RoleSuperadmin, nil)
	u := mustCreate(t, s, "u@example.com", domain.RoleUser, su)

	first := domain.NewRoleChange(u, domain.RoleAdmin, su, "promote")
	require.NoError(t, s.RoleHistory().Create(ctx, first))
	u.Role = domain.RoleAdmin

	clock.t = clock.t.Add(time.Hour)
	second := domain.NewRoleChange(u, domain.RoleUser, su, "")
	require.NoError(t, s.RoleHistory().Create(ctx, second))

	rows, err := s.RoleHistory().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, "ADMIN → USER (demotion)", rows[0].Description())
	assert.Nil(t, rows[0].Reason)
	assert.Equal(t, first.ID, rows[1].ID)
	require.NotNil(t, rows[1].Reason)
	assert.Equal(t, "promote", *rows[1].Reason)
	assert.True(t, rows[1].ChangedAt.Before(rows[0].ChangedAt))

	byActor, err := s.RoleHistory().ListByActor(ctx, su.ID)
	require.NoError(t, err)
	assert.Len(t, byActor, 2)
}

func TestHardDeleteCascadesHistoryAndNullsReferences(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	su := mustCreate(t, s, "root@example.com", domain.RoleSuperadmin, nil)
	admin := mustCreate(t, s, "admin@example.com", domain.RoleAdmin, su)
	u := mustCreate(t, s, "u@example.com", domain.RoleUser, admin)

	h := domain.NewRoleChange(u, domain.RoleAdmin, admin, "")
	require.NoError(t, s.RoleHistory().Create(ctx, h))

	// removing the actor keeps the subject's history but forgets who did it
	require.NoError(t, s.Users().HardDelete(ctx, admin.ID))
	rows, err := s.RoleHistory().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].ChangedByID)

	got, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CreatedByID)

	// removing the subject removes its history
	require.NoError(t, s.Users().HardDelete(ctx, u.ID))
	rows, err = s.RoleHistory().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.ErrorIs(t, s.Users().HardDelete(ctx, u.ID), domain.ErrNotFound)
}

func TestTransactionRollsBackBothWrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	su := mustCreate(t, s, "root@example.com", domain.RoleSuperadmin, nil)
	u := mustCreate(t, s, "u@example.com", domain.RoleUser, su)
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx domain.Store) error {
		subject, err := tx.Users().FindByIDForUpdate(ctx, u.ID)
		require.NoError(t, err)
		h := domain.NewRoleChange(subject, domain.RoleAdmin, su, "")
		subject.Role = domain.RoleAdmin
		require.NoError(t, tx.Users().Update(ctx, subject))
		require.NoError(t, tx.RoleHistory().Create(ctx, h))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, got.Role)
	rows, err := s.RoleHistory().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

type foreignKey struct {
	Table    string `gorm:"column:table"`
	From     string `gorm:"column:from"`
	To       string `gorm:"column:to"`
	OnDelete string `gorm:"column:on_delete"`
}

func foreignKeys(t *testing.T, s *Store, table string) []foreignKey {
	t.Helper()
	var fks []foreignKey
	require.NoError(t, s.DB().Raw("PRAGMA foreign_key_list("+table+")").Scan(&fks).Error)
	return fks
}

func TestSchemaForeignKeys(t *testing.T) {
	s, _ := newStore(t)

	users := foreignKeys(t, s, "users")
	require.NotEmpty(t, users)
	for _, fk := range users {
		assert.Equal(t, "users", fk.Table, "users.%s must reference users", fk.From)
	}

	hist := foreignKeys(t, s, "user_role_history")
	assert.Contains(t, hist, foreignKey{Table: "users", From: "deleted_by_id", To: "id", OnDelete: "SET NULL"})
	assert.Contains(t, hist, foreignKey{Table: "users", From: "changed_by_id", To: "id", OnDelete: "SET NULL"})
	assert.Contains(t, hist, foreignKey{Table: "users", From: "user_id", To: "id", OnDelete: "CASCADE"})
}

func TestSoftDeleteByActorWithoutHistory(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	for i := 0; i < 5; i++ {
		mustCreate(t, s, fmt.Sprintf("filler%d@example.com", i), domain.RoleUser, nil)
	}
	admin := mustCreate(t, s, "admin@example.com", domain.RoleAdmin, nil)
	u := mustCreate(t, s, "u@example.com", domain.RoleUser, admin)

	require.NoError(t, u.SoftDelete(admin))
	require.NoError(t, s.Users().Update(ctx, u))

	got, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedByID)
	assert.Equal(t, admin.ID, *got.DeletedByID)

	require.NoError(t, s.Users().HardDelete(ctx, admin.ID))
	got, err = s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedByID, "deleter reference is cleared with the deleter")
}
