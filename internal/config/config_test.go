package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/support/exception"
)

const sampleYAML = `
nisthourly:
  batch:
    job_name: nistHourlyJob
  system:
    logging:
      level: DEBUG
  pipeline:
    year: 2018
    months: [1, 2]
    timezone: Etc/GMT+5
  storage:
    input:
      type: local
      base_dir: ${NISTHOURLY_TEST_DATA_DIR}
`

// TestNewConfig_Defaults verifies the defaults reproduce the NIST 2017 run.
func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()
	p := cfg.NistHourly.Pipeline

	assert.Equal(t, 2017, p.Year)
	assert.Len(t, p.Months, 12)
	assert.Equal(t, "Etc/GMT+5", p.Timezone)
	assert.Equal(t, "NIST_weather_hourly.txt", p.WeatherOutput.FileName)
	assert.Equal(t, "\t", p.WeatherOutput.Delimiter)
	assert.Equal(t, []string{"GHI", "DIF", "Temp", "WS"}, p.WeatherOutput.Columns)
	assert.Len(t, p.GroundOutput.Columns, 12)
	assert.Len(t, p.Filters, 5)
	assert.NoError(t, cfg.Validate())
}

// TestLoadConfig_YAMLAndPlaceholders verifies YAML overrides defaults and ${VAR} is expanded.
func TestLoadConfig_YAMLAndPlaceholders(t *testing.T) {
	t.Setenv("NISTHOURLY_TEST_DATA_DIR", "/data/nist")

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 2018, cfg.NistHourly.Pipeline.Year)
	assert.Equal(t, []int{1, 2}, cfg.NistHourly.Pipeline.Months)
	assert.Equal(t, "DEBUG", cfg.NistHourly.System.Logging.Level)
	// Untouched defaults survive the merge.
	assert.Equal(t, "TIMESTAMP", cfg.NistHourly.Pipeline.TimestampColumn)

	input, ok := cfg.NistHourly.Storage["input"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/data/nist", input["base_dir"])
}

// TestLoadConfig_EnvOverrides verifies scalar, slice and section overrides from the environment.
func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("NISTHOURLY_PIPELINE_YEAR", "2019")
	t.Setenv("NISTHOURLY_PIPELINE_MONTHS", "3, 4,5")
	t.Setenv("NISTHOURLY_PIPELINE_STRICT_ALIGNMENT", "true")
	t.Setenv("NISTHOURLY_STORAGE_OUTPUT_BASE_DIR", "/tmp/out")

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 2019, cfg.NistHourly.Pipeline.Year)
	assert.Equal(t, []int{3, 4, 5}, cfg.NistHourly.Pipeline.Months)
	assert.True(t, cfg.NistHourly.Pipeline.StrictAlignment)
	output := cfg.NistHourly.Storage["output"].(map[string]interface{})
	assert.Equal(t, "/tmp/out", output["base_dir"])
}

// TestLoadConfig_DotEnv verifies that variables from the .env file take part in overrides.
func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("NISTHOURLY_BATCH_JOB_NAME=fromDotEnv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("NISTHOURLY_BATCH_JOB_NAME") })

	cfg, err := config.LoadConfig(envFile, config.EmbeddedConfig(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "fromDotEnv", cfg.NistHourly.Batch.JobName)
}

// TestLoadConfig_InvalidYAML returns a config BatchError.
func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig("nisthourly: [unclosed"))
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
	assert.Contains(t, err.Error(), "[config]")
}

// TestValidate_Rejects covers the settings the pipeline cannot run without.
func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"month out of range": func(c *config.Config) { c.NistHourly.Pipeline.Months = []int{13} },
		"unknown timezone":   func(c *config.Config) { c.NistHourly.Pipeline.Timezone = "Mars/Olympus" },
		"bad policy":         func(c *config.Config) { c.NistHourly.Pipeline.MissingPolicy = "interpolate" },
		"bad filter op":      func(c *config.Config) { c.NistHourly.Pipeline.Filters[0].Op = "ge" },
		"bad delimiter":      func(c *config.Config) { c.NistHourly.Pipeline.WeatherOutput.Delimiter = "::" },
		"bad metrics":        func(c *config.Config) { c.NistHourly.Metrics.Provider = "statsd" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.NewConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
