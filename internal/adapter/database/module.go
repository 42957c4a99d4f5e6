package database

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/nisthourly/internal/config"
)

// NewProviderFromConfig builds the Provider and closes its connections on stop.
func NewProviderFromConfig(lc fx.Lifecycle, cfg *config.Config) *Provider {
	p := NewProvider(cfg.NistHourly.Database)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.CloseAll()
		},
	})
	return p
}

// Module provides the database Provider. Dialect packages must be imported for their init.
var Module = fx.Options(
	fx.Provide(NewProviderFromConfig),
)
