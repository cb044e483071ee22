package gateway

import (
	"context"

	"github.com/shipmux/shipmux/pkg/addressbook"
	"github.com/shipmux/shipmux/pkg/quota"
	"github.com/shipmux/shipmux/pkg/shipper"
)

// LimitedRegistrar admits address-book registrations through the same
// per-provider quota window as the carrier's other API calls. A denial
// surfaces as a QuotaError before any network I/O.
type LimitedRegistrar struct {
	carrier   string
	registrar addressbook.Registrar
	limiter   *quota.Limiter
}

// LimitRegistrar wraps r so its registrations count against carrier's
// quota.
func LimitRegistrar(carrier string, r addressbook.Registrar, limiter *quota.Limiter) *LimitedRegistrar {
	return &LimitedRegistrar{carrier: carrier, registrar: r, limiter: limiter}
}

// RegisterAddress implements addressbook.Registrar.
func (l *LimitedRegistrar) RegisterAddress(ctx context.Context, canonicalAddress string, contact addressbook.Contact) (string, error) {
	d := l.limiter.Admit(l.carrier)
	if !d.Allowed {
		return "", &shipper.QuotaError{Carrier: l.carrier, RetryAfter: d.RetryAfter}
	}
	return l.registrar.RegisterAddress(ctx, canonicalAddress, contact)
}
