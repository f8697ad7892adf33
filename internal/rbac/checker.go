package rbac

import (
	"context"
	"strings"
)

// Policy lists the permission patterns granted to each role. A pattern is an
// exact permission, a family such as "attempt:*", or "*" for everything.
type Policy map[string][]string

func (p Policy) Allows(role, perm string) bool {
	for _, pattern := range p[role] {
		if grants(pattern, perm) {
			return true
		}
	}
	return false
}

func (p Policy) AllowsAny(role string, perms ...string) bool {
	for _, perm := range perms {
		if p.Allows(role, perm) {
			return true
		}
	}
	return false
}

func grants(pattern, perm string) bool {
	switch {
	case pattern == "*", pattern == perm:
		return true
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	default:
		return false
	}
}

// Can reports whether the role in ctx holds perm under DefaultPolicy.
func Can(ctx context.Context, perm string) bool {
	return DefaultPolicy.Allows(RoleFromContext(ctx), perm)
}
