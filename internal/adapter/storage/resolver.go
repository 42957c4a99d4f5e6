package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/nisthourly/internal/support/configbinder"
	"github.com/tigerroll/nisthourly/internal/support/exception"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// Resolver maps connection names to connections using the named storage sections.
type Resolver struct {
	sections  map[string]interface{}
	providers map[string]Provider
	mu        sync.Mutex
}

// NewResolver creates a Resolver over the storage sections of the configuration.
func NewResolver(sections map[string]interface{}, providers []Provider) *Resolver {
	byType := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &Resolver{sections: sections, providers: byType}
}

// Resolve returns the connection configured under name.
func (r *Resolver) Resolve(ctx context.Context, name string) (Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cfg Config
	if err := configbinder.BindNamed(r.sections, name, &cfg); err != nil {
		return nil, exception.NewBatchError("storage", fmt.Sprintf("storage connection '%s' is not configured", name), err, false, false)
	}
	provider, ok := r.providers[cfg.Type]
	if !ok {
		return nil, exception.NewBatchErrorf("storage", "no storage provider found for type '%s' (connection '%s')", cfg.Type, name)
	}
	conn, err := provider.GetConnection(ctx, name, cfg)
	if err != nil {
		return nil, exception.NewBatchError("storage", fmt.Sprintf("failed to open storage connection '%s'", name), err, false, false)
	}
	logger.Debugf("Resolved storage connection '%s' (type %s).", name, cfg.Type)
	return conn, nil
}

// CloseAll closes the connections of every provider.
func (r *Resolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
