// Package storage defines the storage connections the pipeline reads its
// monthly files from and writes its outputs to. Backends (local file system,
// Google Cloud Storage) register a Provider; a Resolver picks the provider
// named by the "type" key of each storage section.
package storage

import (
	"context"
	"io"
)

// Executor defines the object operations of a storage backend.
type Executor interface {
	// Upload writes data to objectName in bucket. An empty bucket uses the connection default.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens objectName in bucket. The caller must close the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object whose name starts with prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
}

// Connection is a named, open storage connection.
type Connection interface {
	Executor
	// Name returns the configured name of the connection.
	Name() string
	// Type returns the backend type, such as "local" or "gcs".
	Type() string
	// Close releases the connection.
	Close() error
}

// Provider creates and caches the connections of one backend type.
type Provider interface {
	// GetConnection returns the connection configured under name, creating it on first use.
	GetConnection(ctx context.Context, name string, cfg Config) (Connection, error)
	// CloseAll closes every connection created by the provider.
	CloseAll() error
	// Type returns the backend type served by the provider.
	Type() string
}
