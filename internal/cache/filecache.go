// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// filecache.go provides the in-memory derived-representation cache (L1).
// Each file read from disk is memoized under its pre-resolution path
// string, together with any derived representations (currently the
// gzip-compressed bytes). Entries live for the lifetime of the process:
// there is no TTL, no mtime check, and no eviction. A representation,
// once stored, is immutable; the only permitted mutation is adding a
// missing derived representation to an existing entry.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"renderpress/internal/compress"
)

// Options controls a single cache lookup.
type Options struct {
	// Cache persists the computed representations into the store.
	// When false the call computes fresh and stores nothing.
	Cache bool
	// Zip requests the compressed representation instead of the raw
	// bytes. The compressed form is derived lazily on first request.
	Zip bool
}

// ReadFunc reads a resource fully into memory. The default is
// os.ReadFile; tests inject counting or failing readers.
type ReadFunc func(path string) ([]byte, error)

// ReadError wraps a failed resource read with the path that failed.
// errors.Is(err, fs.ErrNotExist) sees through it for missing files.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// fileEntry holds the representations derived from one file. raw is set
// exactly once; gzip may be added later under the entry lock.
type fileEntry struct {
	mu   sync.Mutex
	raw  []byte
	gzip []byte
}

// FileCache is a concurrency-safe read-through cache of raw and
// compressed file contents, keyed by path string exactly as given
// (aliases that resolve to the same file are distinct entries).
type FileCache struct {
	mu      sync.RWMutex
	entries map[string]*fileEntry

	enabled bool
	read    ReadFunc
	comp    compress.Compressor

	// group collapses concurrent reads for the same key so a cached
	// resource is read from disk at most once.
	group singleflight.Group
}

// NewFileCache creates a file cache. enabled gates all persistence:
// when false every lookup computes fresh and retains nothing. read may
// be nil, in which case os.ReadFile is used.
func NewFileCache(enabled bool, read ReadFunc, comp compress.Compressor) *FileCache {
	if read == nil {
		read = os.ReadFile
	}
	return &FileCache{
		entries: make(map[string]*fileEntry),
		enabled: enabled,
		read:    read,
		comp:    comp,
	}
}

// Enabled reports whether this cache persists entries.
func (c *FileCache) Enabled() bool { return c.enabled }

// Get returns the requested representation of the file at path, reading
// and deriving only what is not already cached. Callers must not modify
// the returned slice.
func (c *FileCache) Get(ctx context.Context, path string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.enabled {
		c.mu.RLock()
		e := c.entries[path]
		c.mu.RUnlock()
		if e != nil {
			return c.fromEntry(path, e, opts)
		}
	}

	raw, err := c.readThrough(path)
	if err != nil {
		return nil, err
	}

	var zipped []byte
	if opts.Zip {
		zipped, err = c.comp.Compress(raw)
		if err != nil {
			return nil, err
		}
	}

	// Persist only after every computation succeeded, and only when
	// both the call and the process ask for it.
	if opts.Cache && c.enabled {
		c.store(path, raw, zipped)
	}

	if opts.Zip {
		return zipped, nil
	}
	return raw, nil
}

// fromEntry serves a lookup from an existing entry, deriving the
// compressed representation under the entry lock when it is missing.
func (c *FileCache) fromEntry(path string, e *fileEntry, opts Options) ([]byte, error) {
	if !opts.Zip {
		return e.raw, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gzip == nil {
		zipped, err := c.comp.Compress(e.raw)
		if err != nil {
			return nil, err
		}
		e.gzip = zipped
		slog.Debug("compressed representation derived", "path", path, "size", len(zipped))
	}
	return e.gzip, nil
}

// readThrough performs the underlying read. When caching is enabled,
// concurrent misses for the same path collapse into a single read.
func (c *FileCache) readThrough(path string) ([]byte, error) {
	if !c.enabled {
		data, err := c.read(path)
		if err != nil {
			return nil, &ReadError{Path: path, Err: err}
		}
		return data, nil
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		return c.read(path)
	})
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return v.([]byte), nil
}

// store records a fully computed entry. An entry that appeared in the
// meantime is kept; representations are never replaced once set.
func (c *FileCache) store(path string, raw, zipped []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok {
		c.entries[path] = &fileEntry{raw: raw, gzip: zipped}
		slog.Debug("file cached", "path", path, "size", len(raw), "zipped", zipped != nil, "entries", len(c.entries))
		return
	}

	e.mu.Lock()
	if e.gzip == nil && zipped != nil {
		e.gzip = zipped
	}
	e.mu.Unlock()
}
