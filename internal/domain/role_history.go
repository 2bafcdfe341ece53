package domain

import (
	"fmt"
	"time"
)

const MaxReasonLength = 500

// UserRoleHistory records one role transition. Rows are append-only.
type UserRoleHistory struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	OldRole     Role      `json:"oldRole"`
	NewRole     Role      `json:"newRole"`
	ChangedByID *int64    `json:"changedById"`
	ChangedAt   time.Time `json:"changedAt"`
	Reason      *string   `json:"reason,omitempty"`
	Timestamps
}

// NewRoleChange snapshots user's current role as OldRole, so it has to run
// before user.Role is reassigned. newRole == OldRole is accepted.
func NewRoleChange(user *User, newRole Role, changedBy *User, reason string) *UserRoleHistory {
	by := changedBy.ID
	h := &UserRoleHistory{
		UserID:      user.ID,
		OldRole:     user.Role,
		NewRole:     newRole,
		ChangedByID: &by,
	}
	if reason != "" {
		h.Reason = &reason
	}
	return h
}

func (h *UserRoleHistory) WasPromotion() bool { return h.NewRole > h.OldRole }
func (h *UserRoleHistory) WasDemotion() bool  { return h.NewRole < h.OldRole }

func (h *UserRoleHistory) Description() string {
	suffix := ""
	switch {
	case h.WasPromotion():
		suffix = " (promotion)"
	case h.WasDemotion():
		suffix = " (demotion)"
	}
	return fmt.Sprintf("%s → %s%s", h.OldRole.Name(), h.NewRole.Name(), suffix)
}

func (h *UserRoleHistory) String() string {
	return fmt.Sprintf("Role change for user %d: %s", h.UserID, h.Description())
}
