// Package cache stores materialised query results keyed by data access and
// parameter values.
package cache

import (
	"maps"
	"net/url"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Key identifies one query result.
type Key struct {
	DataAccessID string
	Params       map[string]string
}

// NewKey returns a key over a copy of params.
func NewKey(dataAccessID string, params map[string]string) Key {
	return Key{DataAccessID: dataAccessID, Params: maps.Clone(params)}
}

// Hash returns a digest that is independent of parameter map order.
func (k Key) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(k.DataAccessID)
	for _, name := range slices.Sorted(maps.Keys(k.Params)) {
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(name)
		_, _ = d.Write([]byte{'='})
		_, _ = d.WriteString(k.Params[name])
	}
	return d.Sum64()
}

// Equal reports whether k and other name the same query.
func (k Key) Equal(other Key) bool {
	return k.DataAccessID == other.DataAccessID && maps.Equal(k.Params, other.Params)
}

// String renders the key as "id?name=value&..." with sorted names.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.DataAccessID
	}
	v := make(url.Values, len(k.Params))
	for name, value := range k.Params {
		v.Set(name, value)
	}
	return k.DataAccessID + "?" + v.Encode()
}
