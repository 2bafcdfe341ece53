package domain

import (
	"fmt"
	"time"
)

var now = func() time.Time { return time.Now().UTC() }

// User is a principal. Creator and deleter are id references; resolve them
// through UserRepository rather than holding pointers to other users.
type User struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"fullName"`
	HashedPassword string `json:"-"`
	Role           Role   `json:"role"`
	IsActive       bool   `json:"isActive"`
	CreatedByID    *int64 `json:"createdById,omitempty"`
	Timestamps
}

// NewUser returns an active, unpersisted user. createdBy is nil for
// self-registered and seed accounts.
func NewUser(email, fullName, hashedPassword string, role Role, createdBy *User) *User {
	u := &User{
		Email:          email,
		FullName:       fullName,
		HashedPassword: hashedPassword,
		Role:           role,
		IsActive:       true,
	}
	if createdBy != nil {
		id := createdBy.ID
		u.CreatedByID = &id
	}
	return u
}

func (u *User) IsAdmin() bool      { return u.Role >= RoleAdmin }
func (u *User) IsSuperadmin() bool { return u.Role == RoleSuperadmin }

// CanManage covers profile updates, role changes, (de)activation and deletion.
// Nobody manages themselves, whatever their role.
func (u *User) CanManage(other *User) bool {
	if u == other || u.ID == other.ID {
		return false
	}
	return u.Role.CanManage(other.Role)
}

// SoftDelete marks the user deleted by actor and deactivates it. The caller
// persists the change; on error nothing is modified.
func (u *User) SoftDelete(actor *User) error {
	if !actor.CanManage(u) {
		return newPermissionDenied("delete", actor, u)
	}
	u.markDeleted(now(), actor.ID)
	u.IsActive = false
	return nil
}

// Restore clears the deletion marks only. IsActive stays as it was, so a
// restored account needs a separate Activate.
func (u *User) Restore() { u.clearDeleted() }

func (u *User) Activate()   { u.IsActive = true }
func (u *User) Deactivate() { u.IsActive = false }

func (u *User) Status() string {
	switch {
	case u.IsDeleted():
		return "deleted"
	case u.IsActive:
		return "active"
	default:
		return "inactive"
	}
}

func (u *User) String() string { return fmt.Sprintf("%s (%s)", u.FullName, u.Email) }
