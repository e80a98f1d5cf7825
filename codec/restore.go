package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreyvit/attrbucket"
)

// restore converts a freshly decoded value back to the Go kind of typ.
func restore(v any, typ attrbucket.AttrType) (any, error) {
	switch typ {
	case attrbucket.String, attrbucket.Text:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case attrbucket.Integer:
		return restoreInt(v)
	case attrbucket.Float:
		return restoreFloat(v)
	case attrbucket.Decimal:
		switch v := v.(type) {
		case string:
			return decimal.NewFromString(v)
		case json.Number:
			return decimal.NewFromString(v.String())
		}
		f, err := restoreFloat(v)
		if err != nil {
			return nil, err
		}
		return decimal.NewFromFloat(f.(float64)), nil
	case attrbucket.Binary:
		switch v := v.(type) {
		case []byte:
			return v, nil
		case string:
			return base64.StdEncoding.DecodeString(v)
		}
	case attrbucket.Boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case attrbucket.Datetime, attrbucket.Timestamp, attrbucket.Time, attrbucket.Date:
		switch v := v.(type) {
		case time.Time:
			// MsgPack time decodes into the local zone
			return v.UTC(), nil
		case string:
			return time.Parse(time.RFC3339Nano, v)
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("stored %T cannot hold %v", v, typ)
}

func restoreInt(v any) (any, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows integer", v)
		}
		return int64(v), nil
	case float64:
		if math.IsNaN(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return nil, fmt.Errorf("%v overflows integer", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return nil, fmt.Errorf("stored %T cannot hold integer", v)
}

func restoreFloat(v any) (any, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return nil, fmt.Errorf("stored %T cannot hold float", v)
}
