// Package content downloads remote resources to local storage and computes
// content digests for deduplication.
package content

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// DownloadError indicates a fetch failed, carrying the URL and the cause.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed for %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Store downloads files into a directory with content-addressed names.
// Files are written to a temporary path and renamed on success so a partial
// download is never mistaken for a complete file.
type Store struct {
	dir    string
	client *http.Client
}

// NewStore creates a content store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("could not create content directory: %w", err)
	}
	return &Store{dir: dir, client: http.DefaultClient}, nil
}

// Fetch retrieves a remote resource, streaming it to disk in bounded chunks.
// The digest is computed during the single streaming pass and the final file
// is named <digest><ext>, so fetching the same content twice yields the same
// path. Returns the local path and the SHA3-256 digest.
func (s *Store) Fetch(ctx context.Context, url, fileName string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", &DownloadError{URL: url, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", &DownloadError{URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	tmpPath := filepath.Join(s.dir, "."+uuid.NewString()+".tmp")
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return "", "", &DownloadError{URL: url, Err: err}
	}

	hasher := sha3.New256()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", "", &DownloadError{URL: url, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", "", &DownloadError{URL: url, Err: err}
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	finalPath := filepath.Join(s.dir, digest+filepath.Ext(fileName))

	// Same digest means same content; keep the existing file.
	if _, err := os.Stat(finalPath); err == nil {
		os.Remove(tmpPath)
		return finalPath, digest, nil
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", "", &DownloadError{URL: url, Err: err}
	}

	return finalPath, digest, nil
}

// Hash computes the SHA3-256 digest of a local file, reading it exactly once.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not open file: %w", err)
	}
	defer f.Close()

	hasher := sha3.New256()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("could not hash file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
