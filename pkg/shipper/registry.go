package shipper

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered shipping carriers.
type Registry struct {
	mu       sync.RWMutex
	shippers map[string]Shipper
}

// NewRegistry creates a new shipper registry.
func NewRegistry() *Registry {
	return &Registry{
		shippers: make(map[string]Shipper),
	}
}

// Register adds a shipper to the registry, replacing any shipper
// already registered under the same name.
func (r *Registry) Register(s Shipper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shippers[s.Name()] = s
}

// Get returns a shipper by name.
func (r *Registry) Get(name string) (Shipper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.shippers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// All returns all registered shippers.
func (r *Registry) All() []Shipper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Shipper, 0, len(r.shippers))
	for _, s := range r.shippers {
		result = append(result, s)
	}
	return result
}

// Names returns the names of all registered shippers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.shippers))
	for name := range r.shippers {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered shippers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shippers)
}

// GetQuotes fetches quotes in parallel from the carriers named in
// req.Carriers, or from every registered carrier when the list is
// empty. A failing carrier contributes an error without failing the
// whole request; a carrier denied by its quota shows up here as a
// QuotaError.
func (r *Registry) GetQuotes(ctx context.Context, req *QuoteRequest) ([]*QuoteResponse, []error) {
	shippers, errs := r.resolve(req.Carriers)
	if len(shippers) == 0 {
		if len(errs) == 0 {
			errs = append(errs, ErrCarrierNotFound)
		}
		return nil, errs
	}

	// One slot per carrier; compacted after the group finishes.
	responses := make([]*QuoteResponse, len(shippers))
	quoteErrs := make([]error, len(shippers))

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range shippers {
		g.Go(func() error {
			resp, err := s.GetQuote(ctx, req)
			if err != nil {
				quoteErrs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return nil // keep going with the other carriers
			}
			responses[i] = resp
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	results := make([]*QuoteResponse, 0, len(responses))
	for _, resp := range responses {
		if resp != nil {
			results = append(results, resp)
		}
	}
	for _, err := range quoteErrs {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errs
}

// resolve maps carrier names to shippers, collecting lookup errors.
// An empty list means all registered carriers.
func (r *Registry) resolve(names []string) ([]Shipper, []error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	shippers := make([]Shipper, 0, len(names))
	var errs []error
	for _, name := range names {
		s, err := r.Get(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		shippers = append(shippers, s)
	}
	return shippers, errs
}
