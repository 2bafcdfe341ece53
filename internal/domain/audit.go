package domain

import "time"

// Timestamps is the audit field group embedded by every persisted entity.
// DeletedAt and DeletedByID are always set or cleared together.
type Timestamps struct {
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	DeletedByID *int64     `json:"deletedById,omitempty"`
}

// Touch is applied by the persistence layer on every write.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

func (t Timestamps) IsDeleted() bool { return t.DeletedAt != nil }

func (t *Timestamps) markDeleted(at time.Time, by int64) {
	t.DeletedAt = &at
	t.DeletedByID = &by
}

func (t *Timestamps) clearDeleted() {
	t.DeletedAt = nil
	t.DeletedByID = nil
}
