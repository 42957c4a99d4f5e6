// Package config holds the application configuration and its defaults.
package config

// EmbeddedConfig holds the raw bytes of the application YAML embedded in the binary.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (DEBUG, INFO, WARN, ERROR).
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// BatchConfig holds settings of the batch engine.
type BatchConfig struct {
	// JobName selects the job to launch.
	JobName string `yaml:"job_name"`
}

// ColumnMapping renames a source column to its projected name.
type ColumnMapping struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// SourceConfig describes one family of monthly input files.
type SourceConfig struct {
	// Directory is the directory below the input storage holding the monthly files.
	Directory string `yaml:"directory"`
	// Prefix is the file name prefix; files are named <prefix>-<year>-<MM>.csv.
	Prefix string `yaml:"prefix"`
	// Columns is the projection applied after filtering.
	Columns []ColumnMapping `yaml:"columns"`
}

// FilterRuleConfig is one exclusion criterion.
type FilterRuleConfig struct {
	// Name groups rules into criteria (night, outage, negative_irradiance).
	Name string `yaml:"name"`
	// Source is "weather" or "ground".
	Source string `yaml:"source"`
	// Column is the raw column the rule reads.
	Column string `yaml:"column"`
	// Op is "gt" or "lt".
	Op string `yaml:"op"`
	// Threshold is compared against the column value.
	Threshold float64 `yaml:"threshold"`
}

// OutputFileConfig describes one delimited output file.
type OutputFileConfig struct {
	FileName   string   `yaml:"file_name"`
	Delimiter  string   `yaml:"delimiter"`
	IndexName  string   `yaml:"index_name"`
	TimeLayout string   `yaml:"time_layout"`
	Columns    []string `yaml:"columns"`
}

// PipelineConfig holds the transformation settings.
type PipelineConfig struct {
	// InputStorageRef names the storage connection holding the monthly files.
	InputStorageRef string `yaml:"input_storage_ref"`
	// OutputStorageRef names the storage connection receiving the output files.
	OutputStorageRef string `yaml:"output_storage_ref"`
	Year             int    `yaml:"year"`
	Months           []int  `yaml:"months"`
	TimestampColumn  string `yaml:"timestamp_column"`
	// SourceTimezone is the zone the naive input timestamps are labelled with.
	SourceTimezone string `yaml:"source_timezone"`
	// Timezone is the zone the index is converted to before aggregation.
	Timezone string `yaml:"timezone"`
	// StrictAlignment fails the job when weather and ground timestamps differ.
	StrictAlignment bool `yaml:"strict_alignment"`
	// MissingPolicy is "drop_hour" or "skip_missing".
	MissingPolicy string             `yaml:"missing_policy"`
	Weather       SourceConfig       `yaml:"weather"`
	Ground        SourceConfig       `yaml:"ground"`
	Filters       []FilterRuleConfig `yaml:"filters"`
	WeatherOutput OutputFileConfig   `yaml:"weather_output"`
	GroundOutput  OutputFileConfig   `yaml:"ground_output"`
}

// FileExportConfig describes an optional file export of the hourly table.
type FileExportConfig struct {
	Enabled    bool   `yaml:"enabled"`
	StorageRef string `yaml:"storage_ref"`
	Object     string `yaml:"object"`
}

// DatabaseExportConfig describes the optional relational sink.
type DatabaseExportConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DBRef     string `yaml:"db_ref"`
	BatchSize int    `yaml:"batch_size"`
}

// ExportConfig groups the optional sinks run after the delimited files are written.
type ExportConfig struct {
	Parquet  FileExportConfig     `yaml:"parquet"`
	XLSX     FileExportConfig     `yaml:"xlsx"`
	Report   FileExportConfig     `yaml:"report"`
	Database DatabaseExportConfig `yaml:"database"`
}

// OTLPConfig holds an OTLP exporter endpoint.
type OTLPConfig struct {
	Endpoint string `yaml:"endpoint"`
	// Protocol is "http" or "grpc".
	Protocol string `yaml:"protocol"`
	Insecure bool   `yaml:"insecure"`
}

// MetricsConfig selects the metric recorder.
type MetricsConfig struct {
	// Provider is "prometheus", "otel" or "none".
	Provider string `yaml:"provider"`
	// TextfilePath receives the Prometheus registry in text format when the job ends.
	TextfilePath string     `yaml:"textfile_path"`
	OTLP         OTLPConfig `yaml:"otlp"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool       `yaml:"enabled"`
	ServiceName string     `yaml:"service_name"`
	OTLP        OTLPConfig `yaml:"otlp"`
}

// NistHourlyConfig holds everything under the "nisthourly" top-level key.
type NistHourlyConfig struct {
	Batch    BatchConfig    `yaml:"batch"`
	System   SystemConfig   `yaml:"system"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Export   ExportConfig   `yaml:"export"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	// Storage holds named storage connections, decoded by the storage adapters.
	Storage map[string]interface{} `yaml:"storage"`
	// Database holds named database connections, decoded by the database providers.
	Database map[string]interface{} `yaml:"database"`
}

// Config is the root of the application configuration.
type Config struct {
	NistHourly NistHourlyConfig `yaml:"nisthourly"`
}

// Default filter criteria names.
const (
	CriterionNight              = "night"
	CriterionOutage             = "outage"
	CriterionNegativeIrradiance = "negative_irradiance"
)

// NewConfig returns a Config populated with the defaults of the NIST 2017 run.
func NewConfig() *Config {
	return &Config{
		NistHourly: NistHourlyConfig{
			Batch: BatchConfig{JobName: "nistHourlyJob"},
			System: SystemConfig{
				Logging: LoggingConfig{Level: "INFO", Format: "text"},
			},
			Pipeline: PipelineConfig{
				InputStorageRef:  "input",
				OutputStorageRef: "output",
				Year:             2017,
				Months:           []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
				TimestampColumn:  "TIMESTAMP",
				SourceTimezone:   "UTC",
				Timezone:         "Etc/GMT+5",
				MissingPolicy:    "drop_hour",
				Weather: SourceConfig{
					Directory: "onemin-WS_1-2017",
					Prefix:    "onemin-WS_1",
					Columns: []ColumnMapping{
						{Source: "Pyra1_Wm2_Avg", Target: "GHI"},
						{Source: "Pyrad1_Wm2_Avg", Target: "DIF"},
						{Source: "AirTemp_C_Avg", Target: "Temp"},
						{Source: "WindSpeedAve_ms", Target: "WS"},
						{Source: "SolarAzFromSouth_deg_Avg", Target: "AZ"},
						{Source: "SolarZenith_deg_Avg", Target: "ZE"},
					},
				},
				Ground: SourceConfig{
					Directory: "onemin-Ground-2017",
					Prefix:    "onemin-Ground",
					Columns: []ColumnMapping{
						{Source: "Pyra1_Wm2_Avg", Target: "GHI_GND"},
						{Source: "Pyra2_Wm2_Avg", Target: "POA_GND"},
						{Source: "AmbTemp_C_Avg", Target: "T_GND"},
						{Source: "InvPDC_kW_Avg", Target: "PDC_GND"},
						{Source: "InvPAC_kW_Avg", Target: "PAC_GND"},
						{Source: "InvVDCin_Avg", Target: "VDC_GND"},
						{Source: "InvIDCin_Avg", Target: "IDC_GND"},
						{Source: "InvVPVin_Avg", Target: "VPV_GND"},
					},
				},
				Filters: []FilterRuleConfig{
					{Name: CriterionNight, Source: "weather", Column: "SolarZenith_deg_Avg", Op: "gt", Threshold: 90},
					{Name: CriterionOutage, Source: "ground", Column: "InvPAC_kW_Avg", Op: "lt", Threshold: 0},
					{Name: CriterionOutage, Source: "ground", Column: "InvPDC_kW_Avg", Op: "lt", Threshold: 0},
					{Name: CriterionNegativeIrradiance, Source: "weather", Column: "Pyra1_Wm2_Avg", Op: "lt", Threshold: 0},
					{Name: CriterionNegativeIrradiance, Source: "weather", Column: "Pyrad1_Wm2_Avg", Op: "lt", Threshold: 0},
				},
				WeatherOutput: OutputFileConfig{
					FileName:   "NIST_weather_hourly.txt",
					Delimiter:  "\t",
					IndexName:  "Date/Time",
					TimeLayout: "2006-01-02 15:04:05",
					Columns:    []string{"GHI", "DIF", "Temp", "WS"},
				},
				GroundOutput: OutputFileConfig{
					FileName:   "NIST_ground_hourly.csv",
					Delimiter:  ",",
					IndexName:  "TIMESTAMP",
					TimeLayout: "2006-01-02 15:04:05-07:00",
					Columns: []string{
						"GHI", "DIF", "Temp", "WS",
						"GHI_GND", "POA_GND", "T_GND", "PDC_GND", "PAC_GND", "VDC_GND", "IDC_GND", "VPV_GND",
					},
				},
			},
			Export: ExportConfig{
				Parquet:  FileExportConfig{StorageRef: "output", Object: "NIST_hourly.parquet"},
				XLSX:     FileExportConfig{StorageRef: "output", Object: "NIST_hourly.xlsx"},
				Report:   FileExportConfig{StorageRef: "output", Object: "NIST_hourly_report.pdf"},
				Database: DatabaseExportConfig{DBRef: "warehouse", BatchSize: 500},
			},
			Metrics: MetricsConfig{
				Provider: "prometheus",
				OTLP:     OTLPConfig{Protocol: "http", Insecure: true},
			},
			Tracing: TracingConfig{
				ServiceName: "nisthourly",
				OTLP:        OTLPConfig{Protocol: "http", Insecure: true},
			},
			Storage: map[string]interface{}{
				"input":  map[string]interface{}{"type": "local", "base_dir": "."},
				"output": map[string]interface{}{"type": "local", "base_dir": "."},
			},
			Database: map[string]interface{}{},
		},
	}
}
