package attrbucket

import (
	"errors"
	"fmt"
)

// Entity is implemented by record types that hold bucketed attributes.
// Typically a record embeds Buckets and ChangeTracker and adds a
// BucketRecordType method returning its package-level *RecordType.
type Entity interface {
	BucketRecordType() *RecordType
	AttrBuckets() *Buckets
	MarkChanged(column string)
}

// Accessor provides the reader, presence and writer operations of one
// declared attribute.
type Accessor struct {
	rt       *RecordType
	def      AttrDef
	column   string
	exposure *Exposure
}

func (a *Accessor) Name() string   { return a.def.Name }
func (a *Accessor) Column() string { return a.column }
func (a *Accessor) Def() AttrDef   { return a.def }

func (a *Accessor) Exposure() (Exposure, bool) {
	if a.exposure == nil {
		return Exposure{}, false
	}
	return *a.exposure, true
}

func (a *Accessor) String() string {
	return a.rt.name + "." + a.column + "." + a.def.Name
}

// Get returns the stored value, or nil when the attribute was never written.
func (a *Accessor) Get(e Entity) any {
	a.check(e)
	v, _ := e.AttrBuckets().Lookup(a.column, a.def.Name)
	return v
}

// Present is false for nil and blank values.
func (a *Accessor) Present(e Entity) bool {
	return !IsBlank(a.Get(e))
}

// Set marks the bucket column as changed, casts raw to the declared type and
// stores the result. On a cast error the stored value is left untouched.
func (a *Accessor) Set(e Entity, raw any) error {
	a.check(e)
	a.rt.notifyChange(e, a.column, a.def.Name)

	v, outcome, err := Cast(raw, a.def, a.rt.coercion, &a.rt.asm)
	a.rt.observeCast(a.def, outcome)
	if err != nil {
		a.rt.logger.Debug().Err(err).Str("record", a.rt.name).Str("attr", a.def.Name).Msg("cast failed")
		return err
	}
	e.AttrBuckets().Bucket(a.column)[a.def.Name] = v
	return nil
}

func (a *Accessor) check(e Entity) {
	if rt := e.BucketRecordType(); rt != a.rt {
		panic(fmt.Errorf("accessor %v used with %T of record type %v", a, e, rt))
	}
	a.rt.runtimeDeclaration()
}

// Get reads a bucketed attribute by name. It panics when the attribute is not
// declared on the entity's record type.
func Get(e Entity, name string) any {
	return e.BucketRecordType().MustAccessor(name).Get(e)
}

// Present reports whether a bucketed attribute holds a non-blank value. It
// panics when the attribute is not declared.
func Present(e Entity, name string) bool {
	return e.BucketRecordType().MustAccessor(name).Present(e)
}

// Set writes a bucketed attribute by name.
func Set(e Entity, name string, raw any) error {
	rt := e.BucketRecordType()
	acc := rt.Accessor(name)
	if acc == nil {
		return fmt.Errorf("%s: %w %q", rt.name, ErrUnknownAttribute, name)
	}
	return acc.Set(e, raw)
}

// GetAs reads a bucketed attribute and asserts its type. It returns false for
// absent values and values of another type.
func GetAs[T any](e Entity, name string) (T, bool) {
	v, ok := Get(e, name).(T)
	return v, ok
}

// Load installs a mapping decoded by the persistence layer as the content of
// a declared bucket column, replacing whatever the entity held. It does not
// mark anything as changed.
func Load(e Entity, column string, m map[string]any) error {
	rt := e.BucketRecordType()
	if rt.runtimeDeclaration().Bucket(column) == nil {
		return fmt.Errorf("%s: column %q is not a declared bucket", rt.name, column)
	}
	e.AttrBuckets().Replace(column, m)
	return nil
}

// SetAll writes every pair through Set and reports all failures together.
// Pairs naming undeclared attributes are returned untouched.
func SetAll(e Entity, pairs map[string]any) (rest map[string]any, err error) {
	rt := e.BucketRecordType()
	rest = make(map[string]any)
	var errs []error
	for _, name := range sortedKeys(pairs) {
		acc := rt.Accessor(name)
		if acc == nil {
			rest[name] = pairs[name]
			continue
		}
		if err := acc.Set(e, pairs[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return rest, errors.Join(errs...)
}
