// Package pagecache stores page descriptors fetched from devices so each
// page is requested only once per device.
//
// Layout on disk:
//
//	<root>/<a_b_c_d_port>/<page id>.json
//
// Each file holds the descriptor record exactly as the device sent it.
// Files are checked against an embedded JSON schema when written and when
// read; a file that fails the check is treated as absent so the page is
// fetched again.
package pagecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "embed"

	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/remote"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

//go:embed schema/page-descriptor-v1.json
var descriptorSchemaJSON string

const (
	schemaURL = "page-descriptor-v1.json"
	fileExt   = ".json"
)

// Cache is a page descriptor store rooted at one directory.
type Cache struct {
	root   string
	schema *jsonschema.Schema
}

// Open returns a cache rooted at root. The directory is created lazily on
// the first Store.
func Open(root string) (*Cache, error) {
	if root == "" {
		return nil, errors.New("page cache root is empty")
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(descriptorSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Cache{root: root, schema: schema}, nil
}

// Root returns the cache directory.
func (c *Cache) Root() string {
	return c.root
}

// Dir returns the directory holding addr's pages.
func (c *Cache) Dir(addr remote.Address) string {
	return filepath.Join(c.root, addr.CacheKey())
}

// Path returns the file holding page id of addr.
func (c *Cache) Path(addr remote.Address, id int) string {
	return filepath.Join(c.Dir(addr), strconv.Itoa(id)+fileExt)
}

// Validate checks raw against the descriptor schema.
func (c *Cache) Validate(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return protocol.NewValidationError("descriptor is not valid JSON", err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return protocol.NewValidationError("descriptor does not match schema", err)
	}
	return nil
}

// Load returns the cached descriptor for page id of addr.
// A missing or invalid file reports ok == false with a nil error; only
// unexpected filesystem failures are returned as errors.
func (c *Cache) Load(addr remote.Address, id int) (raw []byte, ok bool, err error) {
	path := c.Path(addr, id)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached page %d: %w", id, err)
	}

	if err := c.Validate(data); err != nil {
		logging.Warn("Ignoring invalid cached page",
			zap.String("path", path),
			zap.Int("page_id", id),
			zap.Error(err),
		)
		return nil, false, nil
	}

	return data, true, nil
}

// Store validates raw and writes it as page id of addr, creating
// directories as needed. The write is not atomic.
func (c *Cache) Store(addr remote.Address, id int, raw []byte) error {
	if err := c.Validate(raw); err != nil {
		return fmt.Errorf("refusing to cache page %d: %w", id, err)
	}

	if err := os.MkdirAll(c.Dir(addr), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := c.Path(addr, id)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write cached page %d: %w", id, err)
	}

	logging.Debug("Cached page description",
		zap.String("path", path),
		zap.Int("page_id", id),
		zap.Int("bytes", len(raw)),
	)
	return nil
}

// Invalidate removes page id of addr. A missing file is not an error.
func (c *Cache) Invalidate(addr remote.Address, id int) error {
	if err := os.Remove(c.Path(addr, id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cached page %d: %w", id, err)
	}
	return nil
}

// ClearRemote removes every cached page of addr.
func (c *Cache) ClearRemote(addr remote.Address) error {
	if err := os.RemoveAll(c.Dir(addr)); err != nil {
		return fmt.Errorf("failed to clear cache for %s: %w", addr, err)
	}
	return nil
}

// Clear removes every cached page of every device.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.root); err != nil {
		return fmt.Errorf("failed to clear page cache: %w", err)
	}
	return nil
}

// Entry describes one cached page.
type Entry struct {
	Remote string
	PageID int
	Size   int64
}

// List returns the cached pages found under the root, skipping files that
// do not look like cache entries.
func (c *Cache) List() ([]Entry, error) {
	dirs, err := os.ReadDir(c.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read page cache: %w", err)
	}

	var entries []Entry
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(c.root, dir.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read page cache: %w", err)
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, fileExt) {
				continue
			}
			id, err := strconv.Atoi(strings.TrimSuffix(name, fileExt))
			if err != nil {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			entries = append(entries, Entry{Remote: dir.Name(), PageID: id, Size: info.Size()})
		}
	}
	return entries, nil
}
