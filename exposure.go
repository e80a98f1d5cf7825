package attrbucket

import (
	"fmt"
	"slices"
	"sync"
)

// Exposure asks for the attributes of a bucket to be registered with the
// mass-assignment allow list. Scope is forwarded verbatim; nil means
// unscoped.
type Exposure struct {
	Scope any
}

// AllowList is the mass-assignment collaborator.
type AllowList interface {
	Allow(attr string, scope any)
}

// RoleAllowList is a simple role-based AllowList. A scope can be nil (any
// role), a role name, a list of role names, or a map with the roles under
// the "as" key.
type RoleAllowList struct {
	mu    sync.RWMutex
	any   map[string]bool
	roles map[string][]string
}

func NewRoleAllowList() *RoleAllowList {
	return &RoleAllowList{
		any:   make(map[string]bool),
		roles: make(map[string][]string),
	}
}

func (l *RoleAllowList) Allow(attr string, scope any) {
	roles := scopeRoles(scope)

	l.mu.Lock()
	defer l.mu.Unlock()
	if roles == nil {
		l.any[attr] = true
		return
	}
	for _, role := range roles {
		if !slices.Contains(l.roles[attr], role) {
			l.roles[attr] = append(l.roles[attr], role)
		}
	}
}

func scopeRoles(scope any) []string {
	switch scope := scope.(type) {
	case nil:
		return nil
	case string:
		return []string{scope}
	case []string:
		return scope
	case []any:
		roles := make([]string, len(scope))
		for i, r := range scope {
			roles[i] = fmt.Sprint(r)
		}
		return roles
	case map[string]any:
		return scopeRoles(scope["as"])
	default:
		return []string{fmt.Sprint(scope)}
	}
}

// Allowed reports whether attr may be mass-assigned by role.
func (l *RoleAllowList) Allowed(attr, role string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.any[attr] || slices.Contains(l.roles[attr], role)
}

// Filter splits mass-assignment input into allowed and rejected pairs.
// Multi-part keys like "born(1i)" are judged by their base name.
func (l *RoleAllowList) Filter(pairs map[string]any, role string) (allowed, rejected map[string]any) {
	allowed = make(map[string]any, len(pairs))
	rejected = make(map[string]any)
	for key, v := range pairs {
		name := key
		if base, _, ok := parseMultiparamKey(key); ok {
			name = base
		}
		if l.Allowed(name, role) {
			allowed[key] = v
		} else {
			rejected[key] = v
		}
	}
	return allowed, rejected
}
