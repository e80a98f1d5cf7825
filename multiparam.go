package attrbucket

import (
	"errors"
	"strconv"
	"strings"
)

// parseMultiparamKey splits a multi-part key like "born(1i)" into its base
// name and 1-based position. The position may carry an "i" or "f" type
// suffix. Anything else, including a bare base name, is not a multi-part key.
func parseMultiparamKey(key string) (base string, pos int, ok bool) {
	base, rest, found := splitByte(key, '(')
	if !found || base == "" || !strings.HasSuffix(rest, ")") {
		return "", 0, false
	}
	inner := rest[:len(rest)-1]
	inner = strings.TrimSuffix(strings.TrimSuffix(inner, "i"), "f")
	pos, err := strconv.Atoi(inner)
	if err != nil || pos < 1 || pos > maxParts || strconv.Itoa(pos) != inner {
		return "", 0, false
	}
	return base, pos, true
}

// AssignMultiparameters consumes the multi-part pairs destined for bucketed
// date/time attributes, writes each assembled value through the attribute's
// writer, and returns the remaining pairs for the host's own assignment.
//
// The base name must equal a declared temporal attribute exactly; pairs for
// other attributes, including non-bucketed columns, are returned untouched.
// Assembly itself never fails, so the error is only non-nil if a writer
// rejects the value.
func (rt *RecordType) AssignMultiparameters(e Entity, pairs map[string]any) (map[string]any, error) {
	decl := rt.runtimeDeclaration()
	rest := make(map[string]any, len(pairs))
	groups := make(map[string][]any)
	for key, v := range pairs {
		base, pos, ok := parseMultiparamKey(key)
		var acc *Accessor
		if ok {
			acc = decl.accessors[base]
		}
		if acc == nil || acc.def.Caster != nil || !acc.def.Type.IsTemporal() {
			rest[key] = v
			continue
		}
		parts := groups[base]
		for len(parts) < pos {
			parts = append(parts, nil)
		}
		parts[pos-1] = v
		groups[base] = parts
	}

	var errs []error
	for _, name := range sortedKeys(groups) {
		if err := decl.accessors[name].Set(e, groups[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return rest, errors.Join(errs...)
}
