package model

import (
	"fmt"
	"strings"
)

// Role is one of the global roles a user can hold. A user may hold any
// non-empty subset of them at the same time.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// allRoles fixes the iteration order for RoleSet.Roles and the flag mapping.
var allRoles = []Role{RoleAdmin, RoleInstructor, RoleStudent}

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleInstructor:
		return RoleInstructor, nil
	case RoleStudent:
		return RoleStudent, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleSet is a set over the three-role domain. It replaces juggling the three
// boolean columns directly at the API level.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	s := RoleSet{}
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// ParseRoleSet builds a RoleSet from role names, rejecting unknown names and
// empty input.
func ParseRoleSet(names []string) (RoleSet, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("role set must not be empty")
	}
	s := RoleSet{}
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return nil, err
		}
		s[r] = struct{}{}
	}
	return s, nil
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s RoleSet) IsEmpty() bool {
	return len(s) == 0
}

// StudentOnly reports whether the set is exactly {student}. Such callers may
// not create, update or delete articles.
func (s RoleSet) StudentOnly() bool {
	return len(s) == 1 && s.Has(RoleStudent)
}

// Roles returns the members in a fixed admin, instructor, student order.
func (s RoleSet) Roles() []Role {
	var out []Role
	for _, r := range allRoles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	var names []string
	for _, r := range s.Roles() {
		names = append(names, string(r))
	}
	return strings.Join(names, ",")
}

// AccessRole is the permission level a user holds on a specific group. It is
// article-scoped and independent from the user's global roles.
type AccessRole string

const (
	AccessViewer AccessRole = "viewer"
	AccessEditor AccessRole = "editor"
	AccessAdmin  AccessRole = "admin"
)

var accessRank = map[AccessRole]int{
	AccessViewer: 1,
	AccessEditor: 2,
	AccessAdmin:  3,
}

func ParseAccessRole(s string) (AccessRole, error) {
	r := AccessRole(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := accessRank[r]; !ok {
		return "", fmt.Errorf("unknown access role %q", s)
	}
	return r, nil
}

// AtLeast reports whether r grants at least the min level.
func (r AccessRole) AtLeast(min AccessRole) bool {
	return accessRank[r] >= accessRank[min]
}
