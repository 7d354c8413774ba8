// Package cache holds the decoded collections of a single student-data
// fetch, keyed so records can follow their foreign keys into other
// collections. A fetch builds one Cache and every record it produces
// resolves against that same instance, so snapshots from different fetches
// never see each other's data.
package cache

// Cache maps a collection name to its records, indexed by a per-collection
// key. Collections declared with a non-unique key (final grades by course,
// scores by assignment) keep every record stored under that key.
//
// A Cache is written once, by the fetch that creates it, and read-only
// afterwards. It never evicts.
type Cache struct {
	collections map[string]*collection
}

type collection struct {
	byKey map[int64][]any
	all   []any
}

// New returns an empty cache ready for Store calls.
func New() *Cache {
	return &Cache{collections: make(map[string]*collection)}
}

// Store replaces the collection under name with a fresh index built from
// records, keyed by the value key extracts from each record. Records sharing
// a key are all retained, in the order they appear in records.
func Store[T any](c *Cache, name string, records []T, key func(T) int64) {
	col := &collection{
		byKey: make(map[int64][]any, len(records)),
		all:   make([]any, 0, len(records)),
	}
	for _, record := range records {
		k := key(record)
		col.byKey[k] = append(col.byKey[k], record)
		col.all = append(col.all, record)
	}
	c.collections[name] = col
}

// One returns the record stored under key in the named collection. The
// second return is false when the collection or key is absent, which is the
// normal outcome for an optional or dangling reference.
func One[T any](c *Cache, name string, key int64) (T, bool) {
	var zero T
	col, ok := c.collections[name]
	if !ok {
		return zero, false
	}
	bucket := col.byKey[key]
	if len(bucket) == 0 {
		return zero, false
	}
	record, ok := bucket[0].(T)
	if !ok {
		return zero, false
	}
	return record, true
}

// Many returns every record stored under key in the named collection, in
// insertion order. Unknown collections and keys yield an empty slice.
func Many[T any](c *Cache, name string, key int64) []T {
	col, ok := c.collections[name]
	if !ok {
		return nil
	}
	bucket := col.byKey[key]
	if len(bucket) == 0 {
		return nil
	}
	records := make([]T, 0, len(bucket))
	for _, r := range bucket {
		if record, ok := r.(T); ok {
			records = append(records, record)
		}
	}
	return records
}

// All returns every record in the named collection in insertion order,
// regardless of key. Unknown collections yield an empty slice.
func All[T any](c *Cache, name string) []T {
	col, ok := c.collections[name]
	if !ok {
		return nil
	}
	records := make([]T, 0, len(col.all))
	for _, r := range col.all {
		if record, ok := r.(T); ok {
			records = append(records, record)
		}
	}
	return records
}
