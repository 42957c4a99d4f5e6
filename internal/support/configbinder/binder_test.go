package configbinder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nisthourly/internal/support/configbinder"
)

type sampleConfig struct {
	Type     string        `yaml:"type"`
	Port     int           `yaml:"port"`
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// TestBindProperties_WeakTypes verifies string to int, bool and duration conversion.
func TestBindProperties_WeakTypes(t *testing.T) {
	var cfg sampleConfig
	err := configbinder.BindProperties(map[string]interface{}{
		"type":     "sqlite",
		"port":     "5432",
		"enabled":  "true",
		"interval": "15s",
	}, &cfg)
	require.NoError(t, err)
	assert.Equal(t, sampleConfig{Type: "sqlite", Port: 5432, Enabled: true, Interval: 15 * time.Second}, cfg)
}

// TestBindProperties_Invalid reports the target type on failure.
func TestBindProperties_Invalid(t *testing.T) {
	var cfg sampleConfig
	err := configbinder.BindProperties(map[string]interface{}{"port": "not-a-number"}, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampleConfig")
}

// TestBindNamed covers lookup of a named section.
func TestBindNamed(t *testing.T) {
	sections := map[string]interface{}{
		"output": map[string]interface{}{"type": "local"},
		"broken": "local",
	}

	var cfg sampleConfig
	require.NoError(t, configbinder.BindNamed(sections, "output", &cfg))
	assert.Equal(t, "local", cfg.Type)

	assert.Error(t, configbinder.BindNamed(sections, "missing", &cfg))
	assert.Error(t, configbinder.BindNamed(sections, "broken", &cfg))
}
