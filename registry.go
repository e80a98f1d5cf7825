package attrbucket

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Schema is the part of the persistence layer the registry talks to at
// declare time.
type Schema interface {
	// ColumnType returns the declared type of the named column, or false if
	// the backing store has no such column.
	ColumnType(column string) (ColumnType, bool)

	// SerializeColumn tells the store that the column holds a structured
	// mapping to be serialized as a unit. Called once per bucket column.
	SerializeColumn(column string) error
}

// ColumnType is the storage type of a column as reported by a Schema.
type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnString   ColumnType = "string"
	ColumnJSON     ColumnType = "json"
	ColumnBinary   ColumnType = "binary"
	ColumnInteger  ColumnType = "integer"
	ColumnFloat    ColumnType = "float"
	ColumnDecimal  ColumnType = "decimal"
	ColumnDatetime ColumnType = "datetime"
	ColumnDate     ColumnType = "date"
	ColumnTime     ColumnType = "time"
	ColumnBoolean  ColumnType = "boolean"
)

// IsSerializable reports whether a column of this type can hold a serialized
// bucket mapping.
func (ct ColumnType) IsSerializable() bool {
	switch ct {
	case ColumnText, ColumnString, ColumnJSON:
		return true
	default:
		return false
	}
}

type Options struct {
	// Coercion defaults to NativeCoercion{Location: Location}.
	Coercion CoercionProvider

	// AllowList receives attributes declared with an Exposure.
	AllowList AllowList

	Observer Observer

	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger

	// Now and Location configure multi-part date/time assembly.
	Now      func() time.Time
	Location *time.Location
}

// RecordType holds the bucket declarations of one record type. Create it
// once per type, declare buckets during initialization, then share it between
// all instances.
//
// Declaring is single-writer: calls are serialized, and the first runtime
// use of any accessor seals the type, after which Declare fails with
// ErrSealed. Sealing waits for a declare call in progress. Readers of a
// sealed type never lock; they see an immutable *Declaration.
type RecordType struct {
	name     string
	schema   Schema
	coercion CoercionProvider
	allow    AllowList
	observer Observer
	logger   zerolog.Logger
	asm      Assembler

	declMu sync.Mutex
	decl   atomic.Pointer[Declaration]
	sealed atomic.Bool
}

// BucketDef is one bucket entry of a DeclareBuckets call.
type BucketDef struct {
	Column   string
	Attrs    []AttrDef
	Exposure *Exposure
}

// Declaration is an immutable snapshot of everything declared on a record
// type. Every Declare call publishes a new one.
type Declaration struct {
	buckets   []*BucketDecl
	byColumn  map[string]*BucketDecl
	accessors map[string]*Accessor
	order     []*Accessor
}

// BucketDecl describes one declared bucket column.
type BucketDecl struct {
	column     string
	columnType ColumnType
	attrs      []*Accessor
}

var emptyDeclaration = &Declaration{
	byColumn:  map[string]*BucketDecl{},
	accessors: map[string]*Accessor{},
}

func NewRecordType(name string, schema Schema, opt Options) *RecordType {
	if schema == nil {
		panic(fmt.Errorf("NewRecordType(%s): nil schema", name))
	}
	rt := &RecordType{
		name:     name,
		schema:   schema,
		coercion: opt.Coercion,
		allow:    opt.AllowList,
		observer: opt.Observer,
		asm: Assembler{
			Now:      opt.Now,
			Location: opt.Location,
		},
	}
	if rt.coercion == nil {
		rt.coercion = NativeCoercion{Location: opt.Location}
	}
	if opt.Logger != nil {
		rt.logger = *opt.Logger
	} else {
		rt.logger = zerolog.Nop()
	}
	rt.decl.Store(emptyDeclaration)
	return rt
}

func (rt *RecordType) Name() string {
	return rt.name
}

func (rt *RecordType) String() string {
	return rt.name
}

// Declare declares a single bucket column holding attrs. At most one
// exposure may be given; it is forwarded to the AllowList for every
// attribute of this call.
func (rt *RecordType) Declare(column string, attrs []AttrDef, exposure ...Exposure) error {
	def := BucketDef{Column: column, Attrs: attrs}
	switch len(exposure) {
	case 0:
	case 1:
		def.Exposure = &exposure[0]
	default:
		return configErrf(rt, column, "", nil, "at most one exposure allowed, got %d", len(exposure))
	}
	return rt.DeclareBuckets(def)
}

// DeclareBuckets declares several buckets in order. The first failing bucket
// aborts the call: it and everything after it are not declared, while the
// buckets before it remain declared.
func (rt *RecordType) DeclareBuckets(defs ...BucketDef) error {
	rt.declMu.Lock()
	defer rt.declMu.Unlock()

	for _, def := range defs {
		if rt.sealed.Load() {
			return configErrf(rt, def.Column, "", ErrSealed, "cannot declare after first use")
		}
		next, err := rt.declareBucket(rt.decl.Load(), def)
		if err != nil {
			rt.logger.Debug().Err(err).Str("record", rt.name).Str("column", def.Column).Msg("bucket declaration rejected")
			return err
		}
		rt.decl.Store(next)

		names := make([]string, len(def.Attrs))
		for i, a := range def.Attrs {
			names[i] = a.Name
		}
		rt.logger.Debug().Str("record", rt.name).Str("column", def.Column).Strs("attrs", names).Bool("exposed", def.Exposure != nil).Msg("declared bucket")
	}
	return nil
}

func (rt *RecordType) declareBucket(cur *Declaration, def BucketDef) (*Declaration, error) {
	ct, ok := rt.schema.ColumnType(def.Column)
	if !ok {
		return nil, configErrf(rt, def.Column, "", nil, "no such column")
	}
	if !ct.IsSerializable() {
		return nil, configErrf(rt, def.Column, "", nil, "column type %s cannot hold a serialized bucket", ct)
	}
	if def.Exposure != nil && rt.allow == nil {
		return nil, configErrf(rt, def.Column, "", nil, "exposure requested but no allow list configured")
	}

	seen := make(map[string]bool, len(def.Attrs))
	for _, a := range def.Attrs {
		switch {
		case a.Name == "":
			return nil, configErrf(rt, def.Column, "", nil, "empty attribute name")
		case !isValidAttrName(a.Name):
			return nil, configErrf(rt, def.Column, a.Name, nil, "invalid attribute name")
		case a.Caster == nil && !a.Type.IsValid():
			return nil, configErrf(rt, def.Column, a.Name, nil, "invalid attribute type %v", a.Type)
		case seen[a.Name]:
			return nil, configErrf(rt, def.Column, a.Name, nil, "attribute listed twice")
		}
		if prior := cur.accessors[a.Name]; prior != nil {
			return nil, configErrf(rt, def.Column, a.Name, nil, "attribute already declared in bucket %s", prior.column)
		}
		seen[a.Name] = true
	}

	bucket := cur.byColumn[def.Column]
	if bucket == nil {
		if err := rt.schema.SerializeColumn(def.Column); err != nil {
			return nil, configErrf(rt, def.Column, "", err, "cannot serialize column")
		}
		bucket = &BucketDecl{column: def.Column, columnType: ct}
	}

	next := &Declaration{
		buckets:   slices.Clone(cur.buckets),
		byColumn:  maps.Clone(cur.byColumn),
		accessors: maps.Clone(cur.accessors),
		order:     slices.Clone(cur.order),
	}
	nb := &BucketDecl{
		column:     bucket.column,
		columnType: bucket.columnType,
		attrs:      slices.Clone(bucket.attrs),
	}
	if i := slices.Index(next.buckets, bucket); i >= 0 {
		next.buckets[i] = nb
	} else {
		next.buckets = append(next.buckets, nb)
	}
	next.byColumn[nb.column] = nb

	for _, a := range def.Attrs {
		acc := &Accessor{rt: rt, def: a, column: def.Column}
		if def.Exposure != nil {
			exp := *def.Exposure
			acc.exposure = &exp
			rt.allow.Allow(a.Name, exp.Scope)
		}
		nb.attrs = append(nb.attrs, acc)
		next.accessors[a.Name] = acc
		next.order = append(next.order, acc)
	}
	return next, nil
}

func isValidAttrName(name string) bool {
	for _, c := range name {
		if c == '(' || c == ')' {
			return false
		}
	}
	return true
}

// Seal ends the declaration phase. It is called implicitly on first use of
// any accessor, and waits for an in-flight declare call to publish first.
func (rt *RecordType) Seal() {
	rt.declMu.Lock()
	defer rt.declMu.Unlock()
	rt.sealed.Store(true)
}

func (rt *RecordType) IsSealed() bool {
	return rt.sealed.Load()
}

// Declaration returns the current declaration snapshot without sealing.
func (rt *RecordType) Declaration() *Declaration {
	return rt.decl.Load()
}

func (rt *RecordType) runtimeDeclaration() *Declaration {
	if !rt.sealed.Load() {
		rt.Seal()
	}
	return rt.decl.Load()
}

// Accessor returns the accessor of the named attribute, or nil.
func (rt *RecordType) Accessor(name string) *Accessor {
	return rt.decl.Load().accessors[name]
}

func (rt *RecordType) MustAccessor(name string) *Accessor {
	acc := rt.Accessor(name)
	if acc == nil {
		panic(fmt.Errorf("%s: %w %q", rt.name, ErrUnknownAttribute, name))
	}
	return acc
}

func (decl *Declaration) Buckets() []*BucketDecl {
	return slices.Clone(decl.buckets)
}

func (decl *Declaration) Bucket(column string) *BucketDecl {
	return decl.byColumn[column]
}

func (decl *Declaration) Columns() []string {
	columns := make([]string, len(decl.buckets))
	for i, b := range decl.buckets {
		columns[i] = b.column
	}
	return columns
}

// Attrs returns accessors of all declared attributes in declaration order.
func (decl *Declaration) Attrs() []*Accessor {
	return slices.Clone(decl.order)
}

func (decl *Declaration) Attr(name string) *Accessor {
	return decl.accessors[name]
}

// BucketOf returns the column holding the named attribute.
func (decl *Declaration) BucketOf(name string) (string, bool) {
	if acc := decl.accessors[name]; acc != nil {
		return acc.column, true
	}
	return "", false
}

// TypeOf returns the declared type of the named attribute. Custom-cast and
// unknown attributes report false.
func (decl *Declaration) TypeOf(name string) (AttrType, bool) {
	acc := decl.accessors[name]
	if acc == nil || acc.def.Caster != nil {
		return InvalidType, false
	}
	return acc.def.Type, true
}

func (b *BucketDecl) Column() string         { return b.column }
func (b *BucketDecl) ColumnType() ColumnType { return b.columnType }
func (b *BucketDecl) Attrs() []*Accessor     { return slices.Clone(b.attrs) }
