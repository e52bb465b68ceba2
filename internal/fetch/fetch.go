// Package fetch retrieves reference datasets from remote storage and unpacks
// archived artifacts. It is used only by the offline batch paths; the query
// path never reaches the network for flat resources.
package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

var httpClient = &http.Client{Timeout: 10 * time.Minute}

// get issues a GET with retry on transient failures and returns the response
// body stream. The caller closes it.
func get(ctx context.Context, url string) (io.ReadCloser, error) {
	var body io.ReadCloser
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		body = resp.Body
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return body, nil
}

// File downloads url to dest, writing through a temp file so a partial
// download never shadows a complete one.
func File(ctx context.Context, url, dest string) error {
	body, err := get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return os.Rename(tmp.Name(), dest)
}

// TarGz downloads a gzipped tarball and extracts it under destDir.
func TarGz(ctx context.Context, url, destDir string) error {
	body, err := get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()
	return ExtractTarGz(body, destDir)
}

// ExtractTarGz unpacks a gzipped tar stream under destDir, refusing entries
// that would escape it.
func ExtractTarGz(r io.Reader, destDir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar stream: %w", err)
		}

		dest, err := securePath(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dest, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dest, err)
			}
			f, err := os.Create(dest)
			if err != nil {
				return fmt.Errorf("create %s: %w", dest, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("extract %s: %w", dest, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", dest, err)
			}
		}
	}
}

// Unzip unpacks a zip archive under destDir and removes the archive.
func Unzip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	for _, entry := range zr.File {
		dest, err := securePath(destDir, entry.Name)
		if err != nil {
			zr.Close()
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				zr.Close()
				return fmt.Errorf("create %s: %w", dest, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			zr.Close()
			return fmt.Errorf("create %s: %w", dest, err)
		}
		src, err := entry.Open()
		if err != nil {
			zr.Close()
			return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
		}
		f, err := os.Create(dest)
		if err != nil {
			src.Close()
			zr.Close()
			return fmt.Errorf("create %s: %w", dest, err)
		}
		_, err = io.Copy(f, src)
		src.Close()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			zr.Close()
			return fmt.Errorf("extract %s: %w", dest, err)
		}
	}
	if err := zr.Close(); err != nil {
		return fmt.Errorf("close archive %s: %w", archivePath, err)
	}
	return os.Remove(archivePath)
}

func securePath(destDir, name string) (string, error) {
	dest := filepath.Join(destDir, name)
	if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return dest, nil
}
