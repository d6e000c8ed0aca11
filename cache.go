package veloscout

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DatasetCache holds downloaded bulk extracts on disk. Acquisition is
// idempotent: an already cached, verified file is never re-downloaded.
// Downloads land in a temporary file first and are renamed into place only
// after verification, so a partially written file is never taken as valid.
type DatasetCache struct {
	dir        string
	httpClient *http.Client
}

// NewDatasetCache creates a cache rooted at dir.
func NewDatasetCache(dir string) *DatasetCache {
	return &DatasetCache{
		dir:        dir,
		httpClient: &http.Client{},
	}
}

// Dir returns the cache root directory.
func (cache *DatasetCache) Dir() string {
	return cache.dir
}

// Ensure returns the local path of the region's extract, downloading it
// first when absent. Any acquisition failure is DatasetUnavailableError.
func (cache *DatasetCache) Ensure(ctx context.Context, region Region) (string, error) {
	path := filepath.Join(cache.dir, region.FileName())
	if stat, err := os.Stat(path); err == nil && stat.Size() > 0 {
		zap.L().Info("using cached extract", zap.String("file", path), zap.Int64("size", stat.Size()))
		return path, nil
	}
	if err := os.MkdirAll(cache.dir, 0o755); err != nil {
		return "", &DatasetUnavailableError{Path: path, Reason: err.Error()}
	}
	if err := cache.download(ctx, region.PBFURL, path); err != nil {
		return "", &DatasetUnavailableError{Path: path, Reason: err.Error()}
	}
	return path, nil
}

func (cache *DatasetCache) download(ctx context.Context, rawURL, path string) error {
	zap.L().Info("downloading extract", zap.String("url", rawURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "Can't prepare download request")
	}
	resp, err := cache.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "Can't download extract")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("Download returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(cache.dir, filepath.Base(path)+".part-*")
	if err != nil {
		return errors.Wrap(err, "Can't create temporary file")
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(err, "Can't write extract")
	}
	if written == 0 {
		return errors.New("Downloaded extract is empty")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "Can't place extract into cache")
	}
	zap.L().Info("extract cached", zap.String("file", path), zap.Int64("size", written))
	return nil
}

// Clear removes cached extracts older than maxAge and returns how many
// files were deleted.
func (cache *DatasetCache) Clear(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(cache.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "Can't read cache directory")
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".osm.pbf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(cache.dir, entry.Name())); err != nil {
			return removed, errors.Wrapf(err, "Can't remove '%s'", entry.Name())
		}
		removed++
	}
	return removed, nil
}
