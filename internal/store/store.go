// Package store provides an interface for per-product subscriber persistence.
package store

import (
	"context"
	"strings"
)

// SubscriberStore is an interface for subscriber set storage operations.
// It abstracts the underlying data store, allowing for different implementations
// (flat-file today, a keyed database store behind the same contract).
type SubscriberStore interface {
	// Load retrieves the subscriber emails for a product in insertion order.
	// A missing or unreadable record loads as an empty set, never an error.
	Load(ctx context.Context, product string) ([]string, error)

	// Save writes the full subscriber set for a product. The write is atomic
	// from a reader's perspective: a concurrent Load observes either the old
	// or the new set, never a partial one.
	Save(ctx context.Context, product string, emails []string) error

	// Add inserts a normalized email into a product's set.
	// Returns false when the email was already present (no-op).
	Add(ctx context.Context, product, email string) (bool, error)

	// Remove deletes a normalized email from a product's set.
	// Returns false when the email was absent (no-op).
	Remove(ctx context.Context, product, email string) (bool, error)
}

// NormalizeEmail maps an email to its canonical stored form: trimmed and
// lowercased. "Foo@Bar.COM  " and "foo@bar.com" are the same subscriber.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
