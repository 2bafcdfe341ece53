package domain

import (
	"fmt"
	"strings"
)

// Role is the permission level of a user. Higher values out-rank lower ones.
type Role int

const (
	RoleUser       Role = 1
	RoleAdmin      Role = 2
	RoleSuperadmin Role = 3
)

var roleNames = map[Role]string{
	RoleUser:       "USER",
	RoleAdmin:      "ADMIN",
	RoleSuperadmin: "SUPERADMIN",
}

func AllRoles() []Role { return []Role{RoleUser, RoleAdmin, RoleSuperadmin} }

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// CanManage reports whether r strictly out-ranks other. Equal roles never manage each other.
func (r Role) CanManage(other Role) bool { return r > other }

func (r Role) Name() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("ROLE(%d)", int(r))
}

func (r Role) String() string { return r.Name() }

func (r Role) DisplayName() string { return strings.ToLower(r.Name()) }

func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	return []byte(r.DisplayName()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
