package attrbucket

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnableToCast is wrapped by every *CastError.
	ErrUnableToCast = errors.New("unable to cast value to type")
	// ErrSealed is returned when declaring on a record type already in use.
	ErrSealed = errors.New("record type is sealed")
	// ErrUnknownAttribute is returned by Set for undeclared attribute names.
	ErrUnknownAttribute = errors.New("unknown bucketed attribute")
)

// ConfigurationError reports an invalid declaration. It is returned at
// declare time and aborts the rest of the declare call.
type ConfigurationError struct {
	RecordType string
	Column     string
	Attr       string
	Msg        string
	Err        error
}

func configErrf(rt *RecordType, column, attr string, err error, format string, args ...any) error {
	return &ConfigurationError{rt.name, column, attr, fmt.Sprintf(format, args...), err}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.RecordType)
	if e.Column != "" {
		buf.WriteByte('.')
		buf.WriteString(e.Column)
	}
	if e.Attr != "" {
		buf.WriteByte('[')
		buf.WriteString(e.Attr)
		buf.WriteByte(']')
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// CastError reports a value that could not be converted to the declared type
// of an attribute. Value is the original, uncoerced input.
type CastError struct {
	Attr  string
	Value any
	Type  AttrType
	Msg   string
	Err   error
}

func castErrf(attr string, value any, typ AttrType, err error, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &CastError{attr, value, typ, msg, err}
}

func (e *CastError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnableToCast}
	}
	return []error{ErrUnableToCast, e.Err}
}

func (e *CastError) Error() string {
	var buf strings.Builder
	if e.Attr != "" {
		buf.WriteString(e.Attr)
		buf.WriteString(": ")
	}
	fmt.Fprintf(&buf, "%v: %#v (%T) to %v", ErrUnableToCast, e.Value, e.Value, e.Type)
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
