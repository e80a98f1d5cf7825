package attrbucket

import "fmt"

// CastOutcome describes which path Cast took to produce its result.
type CastOutcome int

const (
	CastOK CastOutcome = iota
	CastNil
	CastCustom
	CastIntegerFallback
	CastLenient
	CastBlank
	CastFailed
)

func (v CastOutcome) String() string {
	switch v {
	case CastOK:
		return "ok"
	case CastNil:
		return "nil"
	case CastCustom:
		return "custom"
	case CastIntegerFallback:
		return "integer_fallback"
	case CastLenient:
		return "lenient"
	case CastBlank:
		return "blank"
	case CastFailed:
		return "failed"
	default:
		return fmt.Sprintf("invalid outcome %d", int(v))
	}
}

// Cast converts value to the declared type of def and validates the kind of
// the result.
//
// A nil value is returned as nil without consulting p. A custom caster's
// result is returned as-is. Integer parse failures resolve to 1 for truthy
// values and 0 otherwise; composite ([]any) values of temporal types are
// assembled by asm. Both fallbacks are reported through the outcome, never as
// errors. Everything else that does not end up with the expected kind yields
// a *CastError.
func Cast(value any, def AttrDef, p CoercionProvider, asm *Assembler) (any, CastOutcome, error) {
	if value == nil {
		return nil, CastNil, nil
	}
	if def.Caster != nil {
		return def.Caster(value), CastCustom, nil
	}

	typ := def.Type
	outcome := CastOK
	var coerced any
	var err error
	switch typ {
	case String, Text:
		coerced, err = p.CoerceString(value)
	case Integer:
		coerced, err = p.CoerceInteger(value)
		if err != nil {
			coerced, err, outcome = integerFallback(value), nil, CastIntegerFallback
		}
	case Float:
		coerced, err = p.CoerceFloat(value)
	case Decimal:
		coerced, err = p.CoerceDecimal(value)
	case Binary:
		coerced, err = p.CoerceBinary(value)
	case Boolean:
		coerced, err = p.CoerceBoolean(value)
	case Datetime, Timestamp, Time, Date:
		if parts, ok := value.([]any); ok {
			a := asm.Assemble(typ, parts)
			switch {
			case a.Blank:
				return nil, CastBlank, nil
			case a.Lenient:
				outcome = CastLenient
			}
			coerced = a.Value
		} else {
			switch typ {
			case Date:
				coerced, err = p.CoerceDate(value)
			case Time:
				coerced, err = p.CoerceTime(value)
			default:
				coerced, err = p.CoerceDatetime(value)
			}
		}
	default:
		return nil, CastFailed, castErrf(def.Name, value, typ, nil, "invalid declared type")
	}

	if err != nil {
		return nil, CastFailed, castErrf(def.Name, value, typ, err, "")
	}
	if !typ.accepts(coerced) {
		return nil, CastFailed, castErrf(def.Name, value, typ, nil, "coerced to %T", coerced)
	}
	return coerced, outcome, nil
}

func integerFallback(value any) int64 {
	if truthy(value) {
		return 1
	}
	return 0
}
