package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied   = errors.New("insufficient permission")
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("account is inactive")
	ErrUserDeleted        = errors.New("user is deleted")
	ErrInvalidRole        = errors.New("invalid role")
	ErrReasonTooLong      = errors.New("reason too long")
)

// PermissionDeniedError carries who tried what on whom. The message is meant
// for server-side logs; clients only ever see ErrPermissionDenied's text.
type PermissionDeniedError struct {
	Action       string
	ActorID      int64
	ActorEmail   string
	ActorRole    Role
	SubjectID    int64
	SubjectEmail string
	SubjectRole  Role
}

func newPermissionDenied(action string, actor, subject *User) *PermissionDeniedError {
	return &PermissionDeniedError{
		Action:       action,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		ActorRole:    actor.Role,
		SubjectID:    subject.ID,
		SubjectEmail: subject.Email,
		SubjectRole:  subject.Role,
	}
}

// DenyManage builds the error for an actor that may not manage subject.
func DenyManage(action string, actor, subject *User) error {
	return newPermissionDenied(action, actor, subject)
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("user %s (role=%s) cannot %s user %s (role=%s)",
		e.ActorEmail, e.ActorRole.Name(), e.Action, e.SubjectEmail, e.SubjectRole.Name())
}

func (e *PermissionDeniedError) Is(target error) bool { return target == ErrPermissionDenied }
