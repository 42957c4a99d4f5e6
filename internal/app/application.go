// Package app starts the fx application that runs nistHourlyJob once and exits.
package app

import (
	"context"
	"io/fs"
	"os"

	"go.uber.org/fx"

	batchjob "github.com/tigerroll/nisthourly/internal/batch/job"
	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/batch/port"
	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// Exit codes of the process.
const (
	ExitOK     = 0
	ExitFailed = 1
)

// RunApplication loads the configuration, runs the job and returns the process exit code.
// ctx cancellation stops the job at the next step or file boundary.
func RunApplication(ctx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, migrations fs.FS) int {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		return ExitFailed
	}

	logging := cfg.NistHourly.System.Logging
	logger.SetOutput(os.Stderr, logging.Format)
	logger.SetLogLevel(logging.Level)
	logger.Infof("Log level set to: %s", logging.Level)

	app := fx.New(Options(ctx, cfg, migrations))
	if err := app.Err(); err != nil {
		logger.Errorf("Failed to build application: %v", err)
		return ExitFailed
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return ExitFailed
	}

	sig := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Failed to stop application cleanly: %v", err)
		if sig.ExitCode == ExitOK {
			return ExitFailed
		}
	}
	return sig.ExitCode
}

// Options returns every fx option of the application. Tests build the graph from it directly.
func Options(ctx context.Context, cfg *config.Config, migrations fs.FS) fx.Option {
	supplied := []interface{}{
		cfg,
		fx.Annotate(ctx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
	}
	if migrations != nil {
		supplied = append(supplied, fx.Annotate(migrations, fx.As(new(fs.FS)), fx.ResultTags(MigrationsFSName)))
	}
	return fx.Options(
		fx.Supply(supplied...),
		Module,
		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags("", "", "", "", `name:"appCtx"`))),
	)
}

// startJobExecution launches the job once the application has started and
// shuts the application down with the job's exit code.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	launcher *batchjob.JobLauncher,
	job port.Job,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				code := ExitFailed
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in job execution: %v", r)
						code = ExitFailed
					}
					logger.Infof("Requesting application shutdown after job completion (exit code %d).", code)
					if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				logger.Infof("Starting job '%s'...", job.JobName())
				execution, err := launcher.Launch(appCtx, job, model.NewJobParameters())
				code = ExitCode(execution, err)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application stopped.")
			return nil
		},
	})
}

// ExitCode maps a finished job execution to the process exit code.
func ExitCode(execution *model.JobExecution, err error) int {
	if err != nil {
		logger.Errorf("Job failed: %v", err)
		return ExitFailed
	}
	if execution == nil {
		return ExitFailed
	}
	logger.Infof("Job '%s' (Execution ID: %s) finished with status %s, exit status %s in %s.",
		execution.JobName, execution.ID, execution.Status, execution.ExitStatus, execution.Duration())
	if execution.Status != model.BatchStatusCompleted {
		return ExitFailed
	}
	return ExitOK
}
