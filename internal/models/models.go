// Package models locates the layout detection model, unpacking gzip
// compressed releases into a cache directory on first use.
package models

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/types"
)

// compressedSuffix marks a model shipped as gzip.
const compressedSuffix = ".gz"

// Resolve returns a loadable model path for path. Plain files are returned
// as is. A ".gz" file is extracted once into cacheDir (or next to it when
// cacheDir is empty) and the extracted path is returned.
func Resolve(path, cacheDir string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", types.NewAppError(types.ErrLayoutModel, "layout model not found", err)
	}
	if info.IsDir() {
		return "", types.NewAppErrorWithDetails(types.ErrLayoutModel, "layout model is a directory", path, nil)
	}
	if !strings.HasSuffix(path, compressedSuffix) {
		return path, nil
	}

	if cacheDir == "" {
		cacheDir = filepath.Dir(path)
	}
	target := filepath.Join(cacheDir, strings.TrimSuffix(filepath.Base(path), compressedSuffix))

	// already extracted and not older than the archive
	if out, err := os.Stat(target); err == nil && out.Size() > 0 && !out.ModTime().Before(info.ModTime()) {
		return target, nil
	}
	if err := extract(path, target); err != nil {
		return "", types.NewAppError(types.ErrLayoutModel, "failed to extract layout model", err)
	}
	logger.Info("layout model extracted", logger.String("path", target))
	return target, nil
}

func extract(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	// write to a temp file so a partial model is never picked up
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, gz); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
