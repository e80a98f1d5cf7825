package attrbucket

import (
	"strconv"
	"strings"
	"time"
)

// Component positions of a multi-part date/time value.
const (
	PartYear = iota + 1
	PartMonth
	PartDay
	PartHour
	PartMinute
	PartSecond

	maxParts = PartSecond
)

// Assembler reconstructs date/time values from decomposed component fields
// (year, month, day, hour, minute, second), the shape produced by form-style
// date selects.
type Assembler struct {
	// Now supplies the current year for time values without one.
	Now func() time.Time
	// Location of assembled values. Nil means UTC.
	Location *time.Location
}

// Assembly is the result of assembling one value. Blank means every
// component was nil or blank and the attribute should be cleared. Lenient
// means the components did not form a valid calendar value, and Value was
// obtained by rolling the overflow into the following months/days/etc.
type Assembly struct {
	Value   time.Time
	Blank   bool
	Lenient bool
}

// ValueOrNil returns nil for blank assemblies and Value otherwise.
func (a Assembly) ValueOrNil() any {
	if a.Blank {
		return nil
	}
	return a.Value
}

func (asm *Assembler) now() time.Time {
	if asm.Now == nil {
		return time.Now()
	}
	return asm.Now()
}

func (asm *Assembler) location() *time.Location {
	if asm.Location == nil {
		return time.UTC
	}
	return asm.Location
}

// Assemble builds a value of the given temporal type from components ordered
// by position, parts[0] being the year. It never fails.
func (asm *Assembler) Assemble(typ AttrType, parts []any) Assembly {
	var comps [maxParts]int
	var present [maxParts]bool
	blank := true
	for i, p := range parts {
		if i >= maxParts {
			break
		}
		if v, ok := componentValue(p); ok {
			comps[i], present[i] = v, true
			blank = false
		}
	}
	if blank {
		return Assembly{Blank: true}
	}

	if typ == Date {
		for i := PartYear - 1; i < PartDay; i++ {
			if !present[i] {
				comps[i] = 1
			}
		}
		return asm.construct(comps[0], comps[1], comps[2], 0, 0, 0)
	}

	if !present[PartYear-1] {
		comps[PartYear-1] = asm.now().In(asm.location()).Year()
	}
	for _, i := range []int{PartMonth - 1, PartDay - 1} {
		if !present[i] {
			comps[i] = 1
		}
	}
	return asm.construct(comps[0], comps[1], comps[2], comps[3], comps[4], comps[5])
}

// construct builds the value, and flags it as lenient when time.Date had to
// normalize any of the components.
func (asm *Assembler) construct(year, month, day, hour, min, sec int) Assembly {
	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, asm.location())
	y, m, d := t.Date()
	strict := y == year && int(m) == month && d == day &&
		t.Hour() == hour && t.Minute() == min && t.Second() == sec
	return Assembly{Value: t, Lenient: !strict}
}

// componentValue converts one component to an int. Nil, blank and
// unparseable components are reported as absent.
func componentValue(v any) (int, bool) {
	switch v := v.(type) {
	case nil:
		return 0, false
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if i, ok := truncateFloat(f); ok {
				return int(i), true
			}
		}
		return 0, false
	}
	if i, ok := integerOf(v); ok {
		return int(i), true
	}
	if f, ok := floatOf(v); ok {
		if i, ok := truncateFloat(f); ok {
			return int(i), true
		}
	}
	return 0, false
}
