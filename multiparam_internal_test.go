package attrbucket

import "testing"

func TestParseMultiparamKey(t *testing.T) {
	tests := []struct {
		key  string
		base string
		pos  int
		ok   bool
	}{
		{"born(1i)", "born", 1, true},
		{"born(3)", "born", 3, true},
		{"at(6f)", "at", 6, true},
		{"born", "", 0, false},
		{"(1i)", "", 0, false},
		{"born(0i)", "", 0, false},
		{"born(7i)", "", 0, false},
		{"born(01i)", "", 0, false},
		{"born(xi)", "", 0, false},
		{"born(1i", "", 0, false},
		{"born(1s)", "", 0, false},
	}
	for _, tt := range tests {
		base, pos, ok := parseMultiparamKey(tt.key)
		if base != tt.base || pos != tt.pos || ok != tt.ok {
			t.Errorf("parseMultiparamKey(%q) = %q, %d, %v, wanted %q, %d, %v", tt.key, base, pos, ok, tt.base, tt.pos, tt.ok)
		}
	}
}
