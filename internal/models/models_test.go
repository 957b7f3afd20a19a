package models

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzip(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestResolvePlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.onnx")
	require.NoError(t, os.WriteFile(path, []byte("model"), 0644))

	got, err := Resolve(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveExtractsOnce(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, "cache")
	src := filepath.Join(dir, "layout.onnx.gz")
	writeGzip(t, src, []byte("weights"))

	got, err := Resolve(src, cache)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "layout.onnx"), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))

	// a second call reuses the extracted file
	require.NoError(t, os.WriteFile(got, []byte("cached"), 0644))
	again, err := Resolve(src, cache)
	require.NoError(t, err)
	data, err = os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))
}

func TestResolveErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Resolve(filepath.Join(dir, "missing.onnx"), "")
	assert.Error(t, err)

	_, err = Resolve(dir, "")
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.onnx.gz")
	require.NoError(t, os.WriteFile(bad, []byte("not gzip"), 0644))
	_, err = Resolve(bad, "")
	assert.Error(t, err)
}
