package inmemory

import "go.uber.org/fx"

// Module provides the in-memory JobRepository.
var Module = fx.Options(
	fx.Provide(NewInMemoryJobRepository),
)
