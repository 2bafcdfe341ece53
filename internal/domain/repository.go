package domain

import "context"

type UserFilter struct {
	Offset      int
	Limit       int
	Query       string // substring of email or full name
	Role        Role   // zero means any
	WithDeleted bool
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id int64) (*User, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, f UserFilter) ([]User, int64, error)
	ListCreatedBy(ctx context.Context, creatorID int64) ([]User, error)
	Update(ctx context.Context, u *User) error
	HardDelete(ctx context.Context, id int64) error
}

// RoleHistoryRepository is append-only: there is no update.
type RoleHistoryRepository interface {
	Create(ctx context.Context, h *UserRoleHistory) error
	ListByUser(ctx context.Context, userID int64) ([]UserRoleHistory, error)
	ListByActor(ctx context.Context, actorID int64) ([]UserRoleHistory, error)
}

// Store is the unit of work. Repositories obtained from the Store passed to
// fn share fn's transaction; any error from fn rolls everything back.
type Store interface {
	Users() UserRepository
	RoleHistory() RoleHistoryRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
