/*
Package attrbucket stores many loosely-typed logical attributes of a record
inside a single serialized text column (a “bucket”) instead of giving each
attribute its own schema column.

We implement:

1. Declarations, mapping bucket columns to typed logical attributes, built once
per record type (RecordType.Declare).

2. Accessors, providing get, set and presence operations per attribute, either
through an *Accessor handle or by name (Get, Set, Present).

3. A type caster, converting raw input to the declared type via a
CoercionProvider that mirrors native column coercion, and validating the
result.

4. Multi-part date/time assembly from form-style decomposed input
(RecordType.AssignMultiparameters).

5. Change notification: every write marks the whole bucket column as changed on
the owning record, since storage only ever sees the column.

# Usage

A record type embeds Buckets and ChangeTracker and returns its shared
*RecordType:

	var userType = attrbucket.NewRecordType("users", usersSchema, attrbucket.Options{})

	func init() {
		ensure(userType.Declare("settings", []attrbucket.AttrDef{
			attrbucket.Typed("age", attrbucket.Integer),
			attrbucket.Typed("born", attrbucket.Date),
		}))
	}

	type User struct {
		ID string
		attrbucket.Buckets
		attrbucket.ChangeTracker
	}

	func (*User) BucketRecordType() *attrbucket.RecordType { return userType }

	func (u *User) Age() (int64, bool) { return attrbucket.GetAs[int64](u, "age") }

The record's own methods take precedence; they call into the generic
accessors as needed.

# Technical Details

**Declarations** are immutable. Each declare call publishes a new snapshot,
and the first runtime use of an accessor seals the record type, so the
declaration phase must finish during initialization.

**Absent vs nil.** A bucket only has keys for attributes ever written. Absent
keys read as nil, not as a typed zero value. Writing nil stores nil.

**Multi-part keys** have the form name(Ni), where N is the 1-based component
position (year, month, day, hour, minute, second). The base name before “(”
must match a declared attribute exactly.

**Serialization** of bucket mappings belongs to the persistence layer; see
the codec, boltstore and sqlstore packages.
*/
package attrbucket
