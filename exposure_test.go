package attrbucket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andreyvit/attrbucket"
)

func TestRoleAllowList_Scopes(t *testing.T) {
	l := attrbucket.NewRoleAllowList()
	l.Allow("name", nil)
	l.Allow("age", "admin")
	l.Allow("email", []string{"admin", "owner"})
	l.Allow("born", map[string]any{"as": []any{"owner"}})

	tests := []struct {
		attr, role string
		want       bool
	}{
		{"name", "", true},
		{"name", "guest", true},
		{"age", "admin", true},
		{"age", "guest", false},
		{"email", "owner", true},
		{"email", "guest", false},
		{"born", "owner", true},
		{"born", "admin", false},
		{"unknown", "admin", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.Allowed(tt.attr, tt.role), "%s as %q", tt.attr, tt.role)
	}
}

func TestRoleAllowList_Filter(t *testing.T) {
	l := attrbucket.NewRoleAllowList()
	l.Allow("born", nil)
	l.Allow("age", "admin")

	allowed, rejected := l.Filter(map[string]any{
		"born(1i)": "2020",
		"born(2i)": "1",
		"age":      "3",
		"secret":   "x",
	}, "guest")
	assert.Equal(t, map[string]any{"born(1i)": "2020", "born(2i)": "1"}, allowed)
	assert.Equal(t, map[string]any{"age": "3", "secret": "x"}, rejected)
}
