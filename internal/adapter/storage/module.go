package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/nisthourly/internal/config"
)

// ResolverParams collects every Provider registered in the "storage_providers" group.
type ResolverParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Providers []Provider `group:"storage_providers"`
}

// NewResolverFromConfig builds the Resolver and closes its connections on stop.
func NewResolverFromConfig(p ResolverParams) *Resolver {
	r := NewResolver(p.Config.NistHourly.Storage, p.Providers)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
	return r
}

// Module provides the storage Resolver. Backend modules add providers to the group.
var Module = fx.Options(
	fx.Provide(NewResolverFromConfig),
)
