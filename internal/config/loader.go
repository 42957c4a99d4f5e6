package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/nisthourly/internal/support/exception"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

const moduleName = "config"

// LoadConfig builds the configuration in four layers: defaults, the .env file,
// the embedded YAML (with ${VAR} placeholders expanded) and environment overrides.
// Override names are the upper-cased yaml path joined with "_", e.g. NISTHOURLY_PIPELINE_YEAR.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	}

	cfg := NewConfig()

	expanded, err := NewOsEnvironmentExpander().Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
	}
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	p := c.NistHourly.Pipeline
	if p.Year <= 0 {
		return exception.NewBatchErrorf(moduleName, "pipeline.year must be positive, got %d", p.Year)
	}
	if len(p.Months) == 0 {
		return exception.NewBatchErrorf(moduleName, "pipeline.months must not be empty")
	}
	for _, m := range p.Months {
		if m < 1 || m > 12 {
			return exception.NewBatchErrorf(moduleName, "pipeline.months contains invalid month %d", m)
		}
	}
	for _, zone := range []string{p.SourceTimezone, p.Timezone} {
		if _, err := time.LoadLocation(zone); err != nil {
			return exception.NewBatchErrorf(moduleName, "unknown timezone %q: %v", zone, err)
		}
	}
	switch p.MissingPolicy {
	case "drop_hour", "skip_missing":
	default:
		return exception.NewBatchErrorf(moduleName, "pipeline.missing_policy must be drop_hour or skip_missing, got %q", p.MissingPolicy)
	}
	for i, f := range p.Filters {
		if f.Source != "weather" && f.Source != "ground" {
			return exception.NewBatchErrorf(moduleName, "pipeline.filters[%d].source must be weather or ground, got %q", i, f.Source)
		}
		if f.Op != "gt" && f.Op != "lt" {
			return exception.NewBatchErrorf(moduleName, "pipeline.filters[%d].op must be gt or lt, got %q", i, f.Op)
		}
		if f.Name == "" || f.Column == "" {
			return exception.NewBatchErrorf(moduleName, "pipeline.filters[%d] needs a name and a column", i)
		}
	}
	for _, out := range []OutputFileConfig{p.WeatherOutput, p.GroundOutput} {
		if out.FileName == "" {
			return exception.NewBatchErrorf(moduleName, "output file name must not be empty")
		}
		if len([]rune(out.Delimiter)) != 1 {
			return exception.NewBatchErrorf(moduleName, "output %s: delimiter must be a single character, got %q", out.FileName, out.Delimiter)
		}
		if len(out.Columns) == 0 {
			return exception.NewBatchErrorf(moduleName, "output %s: columns must not be empty", out.FileName)
		}
	}
	switch c.NistHourly.Metrics.Provider {
	case "prometheus", "otel", "none":
	default:
		return exception.NewBatchErrorf(moduleName, "metrics.provider must be prometheus, otel or none, got %q", c.NistHourly.Metrics.Provider)
	}
	return nil
}

// loadStructFromEnv walks val and overrides fields from environment variables
// named after the upper-cased yaml tags joined with "_".
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch {
		case field.Kind() == reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case field.Kind() == reflect.Map && field.Type().Elem().Kind() == reflect.Interface:
			loadSectionsFromEnv(field, envVarName+"_")
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadSectionsFromEnv overrides keys of existing named sections, such as
// NISTHOURLY_STORAGE_INPUT_BASE_DIR for storage.input.base_dir.
// Only sections already present in the configuration are touched.
func loadSectionsFromEnv(mapField reflect.Value, prefix string) {
	if mapField.IsNil() {
		return
	}
	for _, key := range mapField.MapKeys() {
		name, ok := key.Interface().(string)
		if !ok {
			continue
		}
		section, ok := mapField.MapIndex(key).Interface().(map[string]interface{})
		if !ok {
			continue
		}
		sectionPrefix := prefix + strings.ToUpper(name) + "_"
		for _, env := range os.Environ() {
			if !strings.HasPrefix(env, sectionPrefix) {
				continue
			}
			parts := strings.SplitN(strings.TrimPrefix(env, sectionPrefix), "=", 2)
			if len(parts) != 2 || parts[0] == "" {
				continue
			}
			section[strings.ToLower(parts[0])] = parts[1]
		}
	}
}

// setField converts value to the kind of field. Slices of scalars are comma separated.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float32, reflect.Float64:
		floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		elemKind := field.Type().Elem().Kind()
		if elemKind == reflect.Struct {
			return nil
		}
		parts := strings.Split(value, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setField(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return err
			}
		}
		field.Set(slice)
	}
	return nil
}
