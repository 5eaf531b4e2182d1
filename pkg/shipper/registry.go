package shipper

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered fulfillment providers.
type Registry struct {
	shippers map[string]Shipper
	mu       sync.RWMutex
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		shippers: make(map[string]Shipper),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(s Shipper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shippers[s.Name()] = s
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Shipper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.shippers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
}

// All returns all registered providers ordered by name.
func (r *Registry) All() []Shipper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Shipper, 0, len(r.shippers))
	for _, s := range r.shippers {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Names returns the sorted names of all registered providers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.shippers))
	for name := range r.shippers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shippers)
}

// AllShippingMethods fetches shipping methods from all registered providers in parallel.
// Errors from individual providers are collected but don't fail the entire request.
func (r *Registry) AllShippingMethods(ctx context.Context, req *ShippingMethodsRequest) ([]ShippingMethod, []error) {
	shippers := r.All()
	if len(shippers) == 0 {
		return nil, []error{ErrProviderNotFound}
	}

	results := make([]ShippingMethod, 0)
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, s := range shippers {
		g.Go(func() error {
			methods, err := s.ShippingMethods(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				return nil
			}
			results = append(results, methods...)
			return nil
		})
	}

	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Provider != results[j].Provider {
			return results[i].Provider < results[j].Provider
		}
		return results[i].ID < results[j].ID
	})
	return results, errs
}

// PingAll checks every registered provider and returns the result per name.
func (r *Registry) PingAll(ctx context.Context) map[string]bool {
	shippers := r.All()
	status := make(map[string]bool, len(shippers))
	mu := &sync.Mutex{}

	var g errgroup.Group
	for _, s := range shippers {
		g.Go(func() error {
			ok := s.Ping(ctx)
			mu.Lock()
			status[s.Name()] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return status
}
