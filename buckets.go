package attrbucket

import (
	"maps"
)

// Buckets holds the bucket mappings of one record instance, keyed by bucket
// column. Embed it into a record struct to get the AttrBuckets method of
// Entity. Mappings are created lazily on first write.
type Buckets struct {
	m map[string]map[string]any
}

func (b *Buckets) AttrBuckets() *Buckets {
	return b
}

// Bucket returns the live mapping of the column, creating it if needed.
func (b *Buckets) Bucket(column string) map[string]any {
	if b.m == nil {
		b.m = make(map[string]map[string]any)
	}
	bucket := b.m[column]
	if bucket == nil {
		bucket = make(map[string]any)
		b.m[column] = bucket
	}
	return bucket
}

func (b *Buckets) Lookup(column, attr string) (any, bool) {
	v, ok := b.m[column][attr]
	return v, ok
}

// Has reports whether the column's mapping has been created.
func (b *Buckets) Has(column string) bool {
	_, ok := b.m[column]
	return ok
}

// Replace installs m as the column's mapping. A nil m resets the column to
// an empty mapping.
func (b *Buckets) Replace(column string, m map[string]any) {
	if m == nil {
		m = make(map[string]any)
	}
	if b.m == nil {
		b.m = make(map[string]map[string]any)
	}
	b.m[column] = m
}

// Snapshot returns a shallow copy of the column's mapping, or an empty
// mapping if it was never created.
func (b *Buckets) Snapshot(column string) map[string]any {
	if bucket := b.m[column]; bucket != nil {
		return maps.Clone(bucket)
	}
	return map[string]any{}
}

// Columns returns the columns whose mappings exist, sorted.
func (b *Buckets) Columns() []string {
	return sortedKeys(b.m)
}
