package local_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/tigerroll/nisthourly/internal/adapter/storage"
	"github.com/tigerroll/nisthourly/internal/adapter/storage/local"
)

// TestLocalAdapter_RoundTrip uploads, lists and downloads an object.
func TestLocalAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	conn, err := local.NewLocalAdapter(storage.Config{Type: "local", BaseDir: t.TempDir()}, "input")
	require.NoError(t, err)

	require.NoError(t, conn.Upload(ctx, "", "onemin-WS_1-2017/onemin-WS_1-2017-01.csv", strings.NewReader("TIMESTAMP\n"), "text/csv"))
	require.NoError(t, conn.Upload(ctx, "", "other/file.txt", strings.NewReader("x"), "text/plain"))

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "", "onemin-WS_1-2017/", func(name string) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"onemin-WS_1-2017/onemin-WS_1-2017-01.csv"}, names)

	rc, err := conn.Download(ctx, "", "onemin-WS_1-2017/onemin-WS_1-2017-01.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "TIMESTAMP\n", string(data))

	_, err = conn.Download(ctx, "", "onemin-WS_1-2017/onemin-WS_1-2017-02.csv")
	assert.Error(t, err)
}

// TestLocalAdapter_RejectsEscape refuses object names leaving base_dir.
func TestLocalAdapter_RejectsEscape(t *testing.T) {
	conn, err := local.NewLocalAdapter(storage.Config{Type: "local", BaseDir: t.TempDir()}, "output")
	require.NoError(t, err)
	err = conn.Upload(context.Background(), "", "../escape.txt", strings.NewReader("x"), "text/plain")
	assert.ErrorContains(t, err, "outside of base_dir")
}

// TestLocalAdapter_RequiresBaseDir rejects a connection without base_dir.
func TestLocalAdapter_RequiresBaseDir(t *testing.T) {
	_, err := local.NewLocalAdapter(storage.Config{Type: "local"}, "output")
	assert.Error(t, err)
}

// TestResolver_ResolvesByType picks the provider from the section's type and caches connections.
func TestResolver_ResolvesByType(t *testing.T) {
	sections := map[string]interface{}{
		"output": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
		"remote": map[string]interface{}{"type": "s3", "bucket_name": "b"},
		"broken": "not a map",
	}
	r := storage.NewResolver(sections, []storage.Provider{local.NewLocalProvider()})
	ctx := context.Background()

	first, err := r.Resolve(ctx, "output")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "output")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "local", first.Type())

	_, err = r.Resolve(ctx, "remote")
	assert.ErrorContains(t, err, "no storage provider found for type 's3'")
	_, err = r.Resolve(ctx, "broken")
	assert.Error(t, err)
	_, err = r.Resolve(ctx, "missing")
	assert.Error(t, err)

	assert.NoError(t, r.CloseAll())
}
