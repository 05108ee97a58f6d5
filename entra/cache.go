// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package entra

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/hashicorp/go-hclog"
)

// FileCache persists MSAL's token cache in a file readable only by the
// current user.
type FileCache struct {
	path   string
	logger hclog.Logger
	mu     sync.Mutex
}

var _ cache.ExportReplace = (*FileCache)(nil)

// NewFileCache creates a FileCache stored at path. The file is created on
// the first export.
//
// Supported options:
//   - WithLogger
func NewFileCache(path string, opt ...Option) (*FileCache, error) {
	const op = "NewFileCache"
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%s: path is empty: %w", op, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	return &FileCache{
		path:   filepath.Clean(path),
		logger: opts.withLogger.Named("cache").With("path", path),
	}, nil
}

// Path returns the cache file location.
func (c *FileCache) Path() string {
	return c.path
}

// Replace loads the cache file into MSAL's cache. A missing file leaves the
// cache empty.
func (c *FileCache) Replace(ctx context.Context, u cache.Unmarshaler, _ cache.ReplaceHints) error {
	const op = "FileCache.Replace"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("%s: unable to read cache: %w", op, err)
	case len(data) == 0:
		return nil
	}
	if err := u.Unmarshal(data); err != nil {
		c.logger.Warn("ignoring unreadable token cache", "error", err)
		return nil
	}
	return nil
}

// Export writes MSAL's cache to the cache file, replacing it atomically.
func (c *FileCache) Export(ctx context.Context, m cache.Marshaler, _ cache.ExportHints) error {
	const op = "FileCache.Export"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("%s: unable to marshal cache: %w", op, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%s: unable to create cache dir: %w", op, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: unable to create cache file: %w", op, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: unable to restrict cache file: %w", op, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: unable to write cache file: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: unable to write cache file: %w", op, err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("%s: unable to replace cache file: %w", op, err)
	}
	c.logger.Trace("token cache exported", "bytes", len(data))
	return nil
}

// Clear removes the cache file.
func (c *FileCache) Clear() error {
	const op = "FileCache.Clear"
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
