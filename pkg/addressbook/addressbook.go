// Package addressbook deduplicates carrier address-book registrations
// behind a content-addressed durable cache. A physical address is
// registered with a carrier at most once and the resulting identifier
// is reused by every tenant from then on.
package addressbook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrRegistrarUnavailable indicates a transient registrar failure.
	// The caller may retry; this layer does not.
	ErrRegistrarUnavailable = errors.New("registrar unavailable")

	// ErrConflictUnresolved indicates the carrier reported the address
	// as already registered but did not disclose its identifier. Not
	// retryable without manual reconciliation.
	ErrConflictUnresolved = errors.New("registration conflict unresolved")

	// ErrNoRegistrar indicates no registrar is wired for the carrier.
	ErrNoRegistrar = errors.New("no registrar for carrier")

	// ErrInvalidRetention indicates a negative retention was given to
	// Cleanup.
	ErrInvalidRetention = errors.New("invalid retention period")
)

// DefaultRetention is how long unused registrations are kept before
// Cleanup removes them. Deletion is safe: the external registration
// stays valid and is re-cached on next use at the cost of one extra
// registrar call.
const DefaultRetention = 90 * 24 * time.Hour

// Book is the address registration cache. Lookups by hash are the hot
// path and never perform network I/O; a miss triggers at most one
// in-flight registrar call per hash, with concurrent callers for the
// same hash waiting on that call's result instead of issuing their own.
type Book struct {
	store   Store
	contact Contact
	logger  *otelzap.Logger

	mu         sync.RWMutex
	registrars map[string]Registrar

	group singleflight.Group

	// now is overridable for tests.
	now func() time.Time
}

// New creates a Book over the given store. contact is attached to
// every registration the Book creates.
func New(store Store, contact Contact, logger *otelzap.Logger) *Book {
	return &Book{
		store:      store,
		contact:    contact,
		logger:     logger,
		registrars: make(map[string]Registrar),
		now:        time.Now,
	}
}

// RegisterCarrier wires the registrar used for a carrier's misses.
func (b *Book) RegisterCarrier(carrier string, r Registrar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registrars[carrier] = r
}

func (b *Book) registrar(carrier string) (Registrar, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if r, ok := b.registrars[carrier]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoRegistrar, carrier)
}

// GetOrCreate resolves the carrier's address-book identifier for a raw
// address, registering it with the carrier only if no cached
// registration exists. Every call, hit or miss, counts as one usage of
// the registration.
func (b *Book) GetOrCreate(ctx context.Context, carrier, rawAddress string) (string, error) {
	canonical, err := Canonicalize(rawAddress)
	if err != nil {
		return "", err
	}
	hash := Key(carrier, canonical)

	// Hot path: single keyed read plus usage bump.
	if reg, err := b.store.Get(ctx, hash); err == nil {
		b.recordUse(ctx, hash)
		return reg.ExternalID, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("looking up address registration: %w", err)
	}

	// Miss: at most one registration call per hash. Callers arriving
	// while one is in flight share its result; if the leading call
	// fails, every waiter sees that failure.
	ch := b.group.DoChan(hash, func() (any, error) {
		return b.ensure(context.WithoutCancel(ctx), carrier, canonical, hash)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		b.recordUse(ctx, hash)
		return res.Val.(string), nil
	}
}

// ensure performs the registrar call and persists the result. Runs at
// most once per hash at a time, inside the singleflight group.
func (b *Book) ensure(ctx context.Context, carrier, canonical, hash string) (string, error) {
	// A concurrent flight or another process may have won already.
	if reg, err := b.store.Get(ctx, hash); err == nil {
		return reg.ExternalID, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("looking up address registration: %w", err)
	}

	registrar, err := b.registrar(carrier)
	if err != nil {
		return "", err
	}

	externalID, err := registrar.RegisterAddress(ctx, canonical, b.contact)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			if conflict.ExternalID == "" {
				b.logger.Warn("Address conflict without recoverable identifier",
					zap.String("carrier", carrier),
					zap.String("address_hash", hash),
				)
				return "", fmt.Errorf("%w (%s): %s", ErrConflictUnresolved, carrier, conflict.Message)
			}
			// The address exists remotely under different ownership;
			// adopt the disclosed identifier as if we created it.
			b.logger.Info("Recovered existing address registration from conflict",
				zap.String("carrier", carrier),
				zap.String("external_id", conflict.ExternalID),
			)
			externalID = conflict.ExternalID
		} else {
			return "", fmt.Errorf("%w (%s): %w", ErrRegistrarUnavailable, carrier, err)
		}
	}

	now := b.now()
	reg := &Registration{
		AddressHash:      hash,
		Carrier:          carrier,
		CanonicalAddress: canonical,
		ExternalID:       externalID,
		UsageCount:       0, // bumped by the caller's recordUse
		CreatedAt:        now,
		LastUsedAt:       now,
	}
	if err := b.store.Create(ctx, reg); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			// Lost a cross-process race; the store's uniqueness
			// constraint is the backstop. Reuse the winner's row.
			if existing, getErr := b.store.Get(ctx, hash); getErr == nil {
				return existing.ExternalID, nil
			}
		}
		return "", fmt.Errorf("persisting address registration: %w", err)
	}

	b.logger.Info("Registered address",
		zap.String("carrier", carrier),
		zap.String("external_id", externalID),
		zap.String("address_hash", hash),
	)
	return externalID, nil
}

// recordUse bumps the registration's usage counter. A missing row
// means retention cleanup removed it between resolution and the bump;
// the identifier is still valid, so the bump is simply dropped.
func (b *Book) recordUse(ctx context.Context, hash string) {
	if err := b.store.Touch(ctx, hash, b.now()); err != nil && !errors.Is(err, ErrNotFound) {
		b.logger.Warn("Failed to record address usage",
			zap.String("address_hash", hash),
			zap.Error(err),
		)
	}
}

// Cleanup deletes registrations unused for longer than retention and
// reports how many were removed. Idempotent.
func (b *Book) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRetention, retention)
	}
	cutoff := b.now().Add(-retention)
	removed, err := b.store.DeleteLastUsedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up address registrations: %w", err)
	}
	if removed > 0 {
		b.logger.Info("Removed stale address registrations",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

// Stats returns a best-effort aggregate over the store.
func (b *Book) Stats(ctx context.Context) (*Stats, error) {
	return b.store.Stats(ctx)
}

// SetClock overrides the Book's time source. Tests only.
func (b *Book) SetClock(now func() time.Time) {
	b.now = now
}
