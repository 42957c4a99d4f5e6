package config

import "go.uber.org/fx"

// NewPipelineConfigProvider exposes the pipeline section on its own.
func NewPipelineConfigProvider(cfg *Config) *PipelineConfig {
	return &cfg.NistHourly.Pipeline
}

// NewExportConfigProvider exposes the export section on its own.
func NewExportConfigProvider(cfg *Config) *ExportConfig {
	return &cfg.NistHourly.Export
}

// NewLoggingConfigProvider exposes the logging section on its own.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.NistHourly.System.Logging
}

// Module provides the configuration sections. *Config itself is supplied by the application.
var Module = fx.Options(
	fx.Provide(NewPipelineConfigProvider),
	fx.Provide(NewExportConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
)
