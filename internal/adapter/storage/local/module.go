package local

import (
	"go.uber.org/fx"

	storage "github.com/tigerroll/nisthourly/internal/adapter/storage"
)

// Module registers the LocalProvider in the "storage_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.As(new(storage.Provider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
