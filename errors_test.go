package attrbucket

import (
	"errors"
	"testing"
)

func TestConfigurationError(t *testing.T) {
	rt := &RecordType{name: "users"}
	cause := errors.New("boom")
	err := configErrf(rt, "settings", "age", cause, "cannot %s", "serialize")

	if s, e := err.Error(), "users.settings[age]: cannot serialize: boom"; s != e {
		t.Fatalf("Error() = %q, wanted %q", s, e)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(cause) = false, wanted true")
	}
	var ce *ConfigurationError
	if !errors.As(err, &ce) || ce.Column != "settings" {
		t.Fatalf("errors.As = %v, wanted *ConfigurationError for settings", ce)
	}

	err = configErrf(rt, "", "", nil, "bare")
	if s, e := err.Error(), "users: bare"; s != e {
		t.Fatalf("Error() = %q, wanted %q", s, e)
	}
}

func TestCastError(t *testing.T) {
	err := castErrf("age", "x", Float, errNotNumeric, "")
	if s, e := err.Error(), `age: unable to cast value to type: "x" (string) to float: not a number`; s != e {
		t.Fatalf("Error() = %q, wanted %q", s, e)
	}
	if !errors.Is(err, ErrUnableToCast) {
		t.Fatalf("errors.Is(ErrUnableToCast) = false, wanted true")
	}
	if !errors.Is(err, errNotNumeric) {
		t.Fatalf("errors.Is(errNotNumeric) = false, wanted true")
	}

	err = castErrf("born", 12, Date, nil, "coerced to %T", "")
	if s, e := err.Error(), "born: unable to cast value to type: 12 (int) to date: coerced to string"; s != e {
		t.Fatalf("Error() = %q, wanted %q", s, e)
	}
}
