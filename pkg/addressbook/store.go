package addressbook

import (
	"context"
	"errors"
	"time"
)

// Store errors. Implementations must return these so the Book can tell
// a cache miss from a genuine failure.
var (
	// ErrNotFound indicates no registration exists for the key.
	ErrNotFound = errors.New("registration not found")

	// ErrDuplicateKey indicates a registration already exists for the
	// key. The store's uniqueness constraint is the final backstop
	// against duplicate creation when the in-process serialization is
	// bypassed, e.g. by a second gateway instance.
	ErrDuplicateKey = errors.New("registration already exists")
)

// Registration is one cached carrier address-book entry.
type Registration struct {
	AddressHash      string    `json:"address_hash"`
	Carrier          string    `json:"carrier"`
	CanonicalAddress string    `json:"canonical_address"`
	ExternalID       string    `json:"external_id"`
	UsageCount       int64     `json:"usage_count"`
	CreatedAt        time.Time `json:"created_at"`
	LastUsedAt       time.Time `json:"last_used_at"`
}

// Stats is a best-effort aggregate over the store, used for
// cache-hit-rate observability. Not transactionally consistent with
// concurrent writes.
type Stats struct {
	Count        int64   `json:"count"`
	TotalUsage   int64   `json:"total_usage"`
	AverageUsage float64 `json:"average_usage"`
}

// Store abstracts durable persistence of address registrations, keyed
// by address hash with a uniqueness constraint on that hash and an
// ordering index on last_used_at for retention cleanup.
type Store interface {
	// Get returns the registration for hash, or ErrNotFound.
	Get(ctx context.Context, hash string) (*Registration, error)

	// Create inserts a new registration, or ErrDuplicateKey when the
	// hash is already present.
	Create(ctx context.Context, reg *Registration) error

	// Touch increments the registration's usage count and moves its
	// last_used_at forward. ErrNotFound when the hash is absent.
	Touch(ctx context.Context, hash string, usedAt time.Time) error

	// DeleteLastUsedBefore removes registrations last used strictly
	// before cutoff and reports how many were removed.
	DeleteLastUsedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Stats returns aggregate usage numbers.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases any resources (no-op for in-memory).
	Close() error
}
