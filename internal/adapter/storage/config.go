package storage

// Config holds configuration for a single storage connection.
type Config struct {
	// Type selects the provider: "local" or "gcs".
	Type string `yaml:"type"`
	// BucketName is the default bucket used when an operation passes an empty bucket.
	BucketName string `yaml:"bucket_name"`
	// CredentialsFile is a service account key for GCS. Empty uses application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
	// Endpoint overrides the GCS endpoint, e.g. for an emulator. Authentication is disabled when set.
	Endpoint string `yaml:"endpoint"`
	// BaseDir is the root directory of a local connection.
	BaseDir string `yaml:"base_dir"`
}
