package main

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	_ "github.com/tigerroll/nisthourly/internal/adapter/database/mysql"
	_ "github.com/tigerroll/nisthourly/internal/adapter/database/postgres"
	_ "github.com/tigerroll/nisthourly/internal/adapter/database/sqlite"
	"github.com/tigerroll/nisthourly/internal/app"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// embeddedConfig is the application YAML loaded at startup.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// migrationsFS holds the schema of the hourly_observation export table, one directory per dialect.
//
//go:embed all:resources/migrations
var migrationsFS embed.FS

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C stops the job at the next step or file boundary.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	migrations, err := fs.Sub(migrationsFS, "resources/migrations")
	if err != nil {
		logger.Fatalf("Failed to open embedded migrations: %v", err)
	}

	code := app.RunApplication(ctx, envFilePath, embeddedConfig, migrations)
	cancel()
	os.Exit(code)
}
