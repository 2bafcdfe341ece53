package handler

import (
	"time"

	"go-gin-gorm-rbac/internal/domain"
)

type UserView struct {
	ID          int64       `json:"id"`
	Email       string      `json:"email"`
	FullName    string      `json:"fullName"`
	Role        domain.Role `json:"role"`
	IsActive    bool        `json:"isActive"`
	Status      string      `json:"status"`
	CreatedByID *int64      `json:"createdById"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	DeletedAt   *time.Time  `json:"deletedAt,omitempty"`
	DeletedByID *int64      `json:"deletedById,omitempty"`
}

func userView(u *domain.User) UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		Status:      u.Status(),
		CreatedByID: u.CreatedByID,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		DeletedAt:   u.DeletedAt,
		DeletedByID: u.DeletedByID,
	}
}

func userViews(us []domain.User) []UserView {
	out := make([]UserView, 0, len(us))
	for i := range us {
		out = append(out, userView(&us[i]))
	}
	return out
}

type HistoryView struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"userId"`
	OldRole     domain.Role `json:"oldRole"`
	NewRole     domain.Role `json:"newRole"`
	ChangedByID *int64      `json:"changedById"`
	ChangedAt   time.Time   `json:"changedAt"`
	Reason      *string     `json:"reason"`
	Description string      `json:"description"`
}

func historyView(h *domain.UserRoleHistory) HistoryView {
	return HistoryView{
		ID:          h.ID,
		UserID:      h.UserID,
		OldRole:     h.OldRole,
		NewRole:     h.NewRole,
		ChangedByID: h.ChangedByID,
		ChangedAt:   h.ChangedAt,
		Reason:      h.Reason,
		Description: h.Description(),
	}
}

func historyViews(hs []domain.UserRoleHistory) []HistoryView {
	out := make([]HistoryView, 0, len(hs))
	for i := range hs {
		out = append(out, historyView(&hs[i]))
	}
	return out
}
