package attrbucket

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AttrType is the declared type of a bucketed attribute.
type AttrType int

const (
	InvalidType AttrType = iota
	String
	Text
	Integer
	Float
	Decimal
	Datetime
	Timestamp
	Time
	Date
	Binary
	Boolean
)

var attrTypeNames = [...]string{
	InvalidType: "invalid",
	String:      "string",
	Text:        "text",
	Integer:     "integer",
	Float:       "float",
	Decimal:     "decimal",
	Datetime:    "datetime",
	Timestamp:   "timestamp",
	Time:        "time",
	Date:        "date",
	Binary:      "binary",
	Boolean:     "boolean",
}

var (
	timeType    = reflect.TypeFor[time.Time]()
	decimalType = reflect.TypeFor[decimal.Decimal]()
	bytesType   = reflect.TypeFor[[]byte]()
)

func (typ AttrType) String() string {
	if typ.IsValid() {
		return attrTypeNames[typ]
	}
	return fmt.Sprintf("invalid type %d", int(typ))
}

func (typ AttrType) IsValid() bool {
	return typ > InvalidType && int(typ) < len(attrTypeNames)
}

// IsTemporal reports whether values of this type can be assembled from
// multi-part input.
func (typ AttrType) IsTemporal() bool {
	switch typ {
	case Datetime, Timestamp, Time, Date:
		return true
	default:
		return false
	}
}

// GoType is the runtime type every successfully cast value of typ has.
func (typ AttrType) GoType() reflect.Type {
	switch typ {
	case String, Text:
		return reflect.TypeFor[string]()
	case Integer:
		return reflect.TypeFor[int64]()
	case Float:
		return reflect.TypeFor[float64]()
	case Decimal:
		return decimalType
	case Binary:
		return bytesType
	case Boolean:
		return reflect.TypeFor[bool]()
	case Datetime, Timestamp, Time, Date:
		return timeType
	default:
		return nil
	}
}

func (typ AttrType) accepts(value any) bool {
	gt := typ.GoType()
	return gt != nil && reflect.TypeOf(value) == gt
}

func (typ AttrType) MarshalText() ([]byte, error) {
	if !typ.IsValid() {
		return nil, fmt.Errorf("cannot marshal %v", typ)
	}
	return []byte(typ.String()), nil
}

func (typ *AttrType) UnmarshalText(b []byte) error {
	v, err := ParseAttrType(string(b))
	if err != nil {
		return err
	}
	*typ = v
	return nil
}

// ParseAttrType maps a declared-type tag like "integer" to its AttrType.
// Tags are case-insensitive; "int", "bool" and "bytes" are accepted aliases.
func ParseAttrType(tag string) (AttrType, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch tag {
	case "int":
		return Integer, nil
	case "bool":
		return Boolean, nil
	case "bytes", "blob":
		return Binary, nil
	}
	for i, name := range attrTypeNames {
		if i > 0 && name == tag {
			return AttrType(i), nil
		}
	}
	return InvalidType, fmt.Errorf("unknown attribute type %q", tag)
}

// CasterFunc is a custom coercion callable. Its result is stored as-is,
// without any kind validation.
type CasterFunc func(value any) any

// AttrDef is one entry of a bucket declaration.
type AttrDef struct {
	Name   string
	Type   AttrType
	Caster CasterFunc
}

func (def AttrDef) IsCustom() bool {
	return def.Caster != nil
}

func (def AttrDef) String() string {
	if def.Caster != nil {
		return def.Name + ":custom"
	}
	return def.Name + ":" + def.Type.String()
}

// Names declares one or more string attributes.
func Names(names ...string) []AttrDef {
	defs := make([]AttrDef, len(names))
	for i, name := range names {
		defs[i] = AttrDef{Name: name, Type: String}
	}
	return defs
}

func Typed(name string, typ AttrType) AttrDef {
	return AttrDef{Name: name, Type: typ}
}

func Custom(name string, fn CasterFunc) AttrDef {
	return AttrDef{Name: name, Caster: fn}
}
