// Package codec serializes bucket mappings for storage in a single text or
// binary column, and restores the declared Go kinds of attributes on load.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/andreyvit/attrbucket"
)

type Encoding int

const (
	YAML Encoding = iota
	JSON
	MsgPack

	Default = YAML
)

var encodingNames = [...]string{
	YAML:    "yaml",
	JSON:    "json",
	MsgPack: "msgpack",
}

func (enc Encoding) String() string {
	if enc >= 0 && int(enc) < len(encodingNames) {
		return encodingNames[enc]
	}
	return fmt.Sprintf("invalid encoding %d", int(enc))
}

// IsText reports whether the encoding produces valid UTF-8 text.
func (enc Encoding) IsText() bool {
	return enc == YAML || enc == JSON
}

// ParseEncoding maps a configuration name to an Encoding. An empty name
// means Default.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return Default, nil
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	case "msgpack", "messagepack":
		return MsgPack, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", name)
	}
}

func (enc Encoding) MarshalText() ([]byte, error) {
	return []byte(enc.String()), nil
}

func (enc *Encoding) UnmarshalText(b []byte) error {
	v, err := ParseEncoding(string(b))
	if err != nil {
		return err
	}
	*enc = v
	return nil
}

// TypeFunc reports the declared type of an attribute. Attributes it does not
// know about, as well as custom-cast ones, are decoded as-is.
type TypeFunc func(attr string) (attrbucket.AttrType, bool)

// EncodeBucket serializes a bucket mapping. Map keys are always sorted, so
// equal mappings produce equal bytes.
func (enc Encoding) EncodeBucket(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	norm := make(map[string]any, len(m))
	for k, v := range m {
		norm[k] = enc.normalize(v)
	}

	switch enc {
	case YAML:
		raw, err := yaml.Marshal(norm)
		if err != nil {
			return nil, fmt.Errorf("failed to encode bucket to YAML: %w", err)
		}
		return raw, nil
	case JSON:
		raw, err := json.Marshal(norm)
		if err != nil {
			return nil, fmt.Errorf("failed to encode bucket to JSON: %w", err)
		}
		return raw, nil
	case MsgPack:
		var buf bytes.Buffer
		e := msgpack.GetEncoder()
		e.Reset(&buf)
		e.SetSortMapKeys(true)
		err := e.Encode(norm)
		msgpack.PutEncoder(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode bucket using MsgPack: %w", err)
		}
		return buf.Bytes(), nil
	default:
		panic("unsupported encoding")
	}
}

// normalize maps values to kinds every encoding can represent losslessly.
// MsgPack has native time and binary types, the text encodings do not.
func (enc Encoding) normalize(v any) any {
	switch v := v.(type) {
	case decimal.Decimal:
		return v.String()
	case time.Time:
		if enc.IsText() {
			return v.Format(time.RFC3339Nano)
		}
	case []byte:
		if enc.IsText() {
			return base64.StdEncoding.EncodeToString(v)
		}
	}
	return v
}

// DecodeBucket deserializes a bucket mapping and restores declared kinds via
// typeOf, which may be nil. Empty or blank input decodes to an empty mapping.
func (enc Encoding) DecodeBucket(data []byte, typeOf TypeFunc) (map[string]any, error) {
	m := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	switch enc {
	case YAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, dataErrf(data, enc, err)
		}
	case JSON:
		d := json.NewDecoder(bytes.NewReader(data))
		d.UseNumber()
		if err := d.Decode(&m); err != nil {
			return nil, dataErrf(data, enc, err)
		}
	case MsgPack:
		d := msgpack.GetDecoder()
		d.Reset(bytes.NewReader(data))
		d.UseLooseInterfaceDecoding(true)
		err := d.Decode(&m)
		msgpack.PutDecoder(d)
		if err != nil {
			return nil, dataErrf(data, enc, err)
		}
	default:
		panic("unsupported encoding")
	}
	if m == nil {
		m = make(map[string]any)
	}

	if typeOf != nil {
		for k, v := range m {
			typ, ok := typeOf(k)
			if !ok || v == nil {
				continue
			}
			restored, err := restore(v, typ)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, dataErrf(data, enc, err))
			}
			m[k] = restored
		}
	}
	return m, nil
}

// DataError reports a stored bucket that cannot be decoded.
type DataError struct {
	Data     []byte
	Encoding Encoding
	Err      error
}

func dataErrf(data []byte, enc Encoding, err error) error {
	return &DataError{data, enc, err}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const maxShown = 64
	shown := e.Data
	suffix := ""
	if len(shown) > maxShown {
		shown, suffix = shown[:maxShown], "..."
	}
	if e.Encoding.IsText() {
		return fmt.Sprintf("invalid %v bucket %q%s: %v", e.Encoding, shown, suffix, e.Err)
	}
	return fmt.Sprintf("invalid %v bucket %x%s: %v", e.Encoding, shown, suffix, e.Err)
}
