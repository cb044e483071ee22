package addressbook

import (
	"context"
	"fmt"
)

// Contact is the default contact attached to address-book
// registrations. Carrier address books require an owner contact even
// though the cached entry is shared across tenants.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Registrar is a carrier's address-book service. Implementations live
// next to the carrier client and translate to its wire format.
type Registrar interface {
	// RegisterAddress registers the canonical address and returns the
	// carrier-assigned identifier. When the address is already known
	// to the carrier under different ownership, implementations return
	// a *ConflictError carrying the existing identifier if the carrier
	// disclosed one.
	RegisterAddress(ctx context.Context, canonicalAddress string, contact Contact) (string, error)
}

// ConflictError reports that the carrier already has the address in
// its address book. ExternalID is the existing identifier when the
// conflict response disclosed it, otherwise empty.
type ConflictError struct {
	Carrier    string
	ExternalID string
	Message    string
}

func (e *ConflictError) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("%s address conflict (existing id %s): %s", e.Carrier, e.ExternalID, e.Message)
	}
	return fmt.Sprintf("%s address conflict: %s", e.Carrier, e.Message)
}
