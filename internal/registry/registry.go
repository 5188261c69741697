// Package registry holds the static product catalog the service answers for.
package registry

import (
	"slices"
)

// Product is the display metadata for a registered Gumroad product.
type Product struct {
	Key  string
	Name string
	ID   int64
}

// Registry is an immutable product-permalink -> metadata mapping, fixed at
// process start. Iteration order is deterministic (sorted keys) so that
// unscoped verification and listings are stable across runs.
type Registry struct {
	products map[string]Product
	keys     []string
}

// New builds a Registry from the configured product map.
func New(products map[string]Product) *Registry {
	byKey := make(map[string]Product, len(products))
	keys := make([]string, 0, len(products))
	for key, p := range products {
		p.Key = key
		byKey[key] = p
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return &Registry{products: byKey, keys: keys}
}

// Lookup returns the metadata for a product key.
func (r *Registry) Lookup(key string) (Product, bool) {
	p, ok := r.products[key]
	return p, ok
}

// Keys returns all registered product keys in deterministic order.
// The returned slice must not be modified.
func (r *Registry) Keys() []string {
	return r.keys
}

// Len returns the number of registered products.
func (r *Registry) Len() int {
	return len(r.keys)
}
