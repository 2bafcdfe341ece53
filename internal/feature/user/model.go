package user

import (
	"time"

	"go-gin-gorm-rbac/internal/domain"
)

// AuditColumns mirrors domain.Timestamps. Timestamps are written explicitly
// by the repositories, so gorm's automatic tracking is off.
type AuditColumns struct {
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime:false"`
	DeletedAt   *time.Time `gorm:"index"`
	DeletedByID *int64
}

type UserModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Email          string `gorm:"size:255;not null;uniqueIndex;index:ix_users_email_is_active,priority:1"`
	HashedPassword string `gorm:"size:255;not null"`
	FullName       string `gorm:"size:100;not null"`
	Role           int    `gorm:"not null;index:ix_users_role_is_active,priority:1"`
	IsActive       bool   `gorm:"not null;index:ix_users_role_is_active,priority:2;index:ix_users_email_is_active,priority:2"`
	CreatedByID    *int64
	AuditColumns

	// Only declared so migrations create the foreign keys; never loaded.
	CreatedBy *UserModel `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	DeletedBy *UserModel `gorm:"foreignKey:DeletedByID;constraint:OnDelete:SET NULL"`
}

func (UserModel) TableName() string { return "users" }

type RoleHistoryModel struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	UserID      int64      `gorm:"not null;index:ix_user_role_history_user_changed,priority:1"`
	OldRole     int        `gorm:"not null"`
	NewRole     int        `gorm:"not null"`
	ChangedByID *int64     `gorm:"index:ix_user_role_history_changed_by"`
	ChangedAt   time.Time  `gorm:"not null;index:ix_user_role_history_user_changed,priority:2"`
	Reason      *string    `gorm:"size:500"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime:false"`
	DeletedAt   *time.Time `gorm:"index"`

	// Not named DeletedByID: UserModel has that field too, and gorm would
	// then read Deleter as has-one and put the constraint on users.
	DeleterID *int64 `gorm:"column:deleted_by_id"`

	User      *UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ChangedBy *UserModel `gorm:"foreignKey:ChangedByID;constraint:OnDelete:SET NULL"`
	Deleter   *UserModel `gorm:"foreignKey:DeleterID;constraint:OnDelete:SET NULL"`
}

func (RoleHistoryModel) TableName() string { return "user_role_history" }

// Models lists everything AutoMigrate has to create, parents first.
func Models() []any { return []any{&UserModel{}, &RoleHistoryModel{}} }

func fromAudit(a AuditColumns) domain.Timestamps {
	return domain.Timestamps{
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		DeletedAt:   a.DeletedAt,
		DeletedByID: a.DeletedByID,
	}
}

func toAudit(t domain.Timestamps) AuditColumns {
	return AuditColumns{
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		DeletedAt:   t.DeletedAt,
		DeletedByID: t.DeletedByID,
	}
}

func FromUser(u *domain.User) *UserModel {
	return &UserModel{
		ID:             u.ID,
		Email:          u.Email,
		HashedPassword: u.HashedPassword,
		FullName:       u.FullName,
		Role:           int(u.Role),
		IsActive:       u.IsActive,
		CreatedByID:    u.CreatedByID,
		AuditColumns:   toAudit(u.Timestamps),
	}
}

func (m *UserModel) ToDomain() *domain.User {
	return &domain.User{
		ID:             m.ID,
		Email:          m.Email,
		FullName:       m.FullName,
		HashedPassword: m.HashedPassword,
		Role:           domain.Role(m.Role),
		IsActive:       m.IsActive,
		CreatedByID:    m.CreatedByID,
		Timestamps:     fromAudit(m.AuditColumns),
	}
}

func FromRoleHistory(h *domain.UserRoleHistory) *RoleHistoryModel {
	return &RoleHistoryModel{
		ID:          h.ID,
		UserID:      h.UserID,
		OldRole:     int(h.OldRole),
		NewRole:     int(h.NewRole),
		ChangedByID: h.ChangedByID,
		ChangedAt:   h.ChangedAt,
		Reason:      h.Reason,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
		DeletedAt:   h.DeletedAt,
		DeleterID:   h.DeletedByID,
	}
}

func (m *RoleHistoryModel) ToDomain() *domain.UserRoleHistory {
	return &domain.UserRoleHistory{
		ID:          m.ID,
		UserID:      m.UserID,
		OldRole:     domain.Role(m.OldRole),
		NewRole:     domain.Role(m.NewRole),
		ChangedByID: m.ChangedByID,
		ChangedAt:   m.ChangedAt,
		Reason:      m.Reason,
		Timestamps: domain.Timestamps{
			CreatedAt:   m.CreatedAt,
			UpdatedAt:   m.UpdatedAt,
			DeletedAt:   m.DeletedAt,
			DeletedByID: m.DeleterID,
		},
	}
}
