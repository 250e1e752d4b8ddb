package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/table"
)

// DiskCache persists tables as CSV under {dir}/{year}/{dataset}/{survey}
type DiskCache struct {
	dir          string
	onDisk       bool
	loadExisting bool
}

// NewDiskCache prepares the cache directory for the dataset.
// When existing data is not trusted the dataset's own directory is purged
// first; other datasets and unrelated files under the root are left alone.
// A disabled cache never touches the filesystem.
func NewDiskCache(cfg model.CacheConfig, dataset model.Dataset) (*DiskCache, error) {
	c := &DiskCache{
		dir:          filepath.Join(cfg.Dir, strconv.Itoa(dataset.Year), dataset.DatasetType, dataset.SurveyType),
		onDisk:       cfg.OnDisk,
		loadExisting: cfg.LoadExisting,
	}

	if !c.onDisk {
		return c, nil
	}

	if !c.loadExisting {
		if err := os.RemoveAll(c.dir); err != nil {
			return nil, fmt.Errorf("purge cache dir: %w", err)
		}
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return c, nil
}

// Dir returns the dataset-scoped cache directory
func (c *DiskCache) Dir() string {
	return c.dir
}

// Put stores a table unless caching is off or the resource already exists
func (c *DiskCache) Put(resource string, t *table.Table) (written bool, err error) {
	if !c.onDisk {
		return false, nil
	}

	path := c.path(resource)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create cache dir: %w", err)
	}

	// O_EXCL makes the first writer win
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create cache file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close cache file: %w", closeErr)
		}
	}()

	if err := t.WriteCSV(f); err != nil {
		_ = os.Remove(path)
		return false, fmt.Errorf("write cache file %s: %w", resource, err)
	}

	return true, nil
}

// Get retrieves a table from the cache
func (c *DiskCache) Get(resource string) (*table.Table, error) {
	if !c.onDisk || !c.loadExisting {
		return table.New(), nil
	}

	f, err := os.Open(c.path(resource))
	if errors.Is(err, os.ErrNotExist) {
		return table.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := table.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read cache file %s: %w", resource, err)
	}
	return t, nil
}

// path generates the file path for a resource
func (c *DiskCache) path(resource string) string {
	return filepath.Join(c.dir, filepath.FromSlash(resource))
}
