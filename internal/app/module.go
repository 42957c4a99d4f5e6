package app

import (
	"io/fs"

	"go.uber.org/fx"

	"github.com/tigerroll/nisthourly/internal/adapter/database"
	"github.com/tigerroll/nisthourly/internal/adapter/storage"
	"github.com/tigerroll/nisthourly/internal/adapter/storage/gcs"
	"github.com/tigerroll/nisthourly/internal/adapter/storage/local"
	batchjob "github.com/tigerroll/nisthourly/internal/batch/job"
	"github.com/tigerroll/nisthourly/internal/batch/listener"
	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/repository/inmemory"
	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/job"
	"github.com/tigerroll/nisthourly/internal/step/tasklet"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// MigrationsFSName tags the raw embedded migrations file system supplied by main.
const MigrationsFSName = `name:"migrationsFS"`

// NewMigrationSource exposes the embedded migrations to the export step.
// Files are laid out as <dialect>/<version>_<name>.(up|down).sql below the root.
func NewMigrationSource(p struct {
	fx.In
	FS fs.FS `name:"migrationsFS" optional:"true"`
}) database.MigrationSource {
	if p.FS == nil {
		logger.Debugf("No embedded migrations supplied.")
	}
	return database.MigrationSource{FS: p.FS}
}

// Module wires the engine, the adapters and nistHourlyJob. *config.Config is supplied by the caller.
var Module = fx.Options(
	logger.Module,
	config.Module,
	metrics.Module,

	storage.Module,
	local.Module,
	gcs.Module,
	database.Module,
	fx.Provide(NewMigrationSource),

	inmemory.Module,
	listener.Module,
	batchjob.Module,

	tasklet.Module,
	job.Module,
)
