// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"

	"renderpress/internal/compress"
)

// countingReader records how many times each path was read and serves
// fixed content per path.
type countingReader struct {
	mu      sync.Mutex
	reads   map[string]int
	content map[string][]byte
	err     error
}

func newCountingReader(content map[string][]byte) *countingReader {
	return &countingReader{reads: make(map[string]int), content: content}
}

func (r *countingReader) read(path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads[path]++
	if r.err != nil {
		return nil, r.err
	}
	data, ok := r.content[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (r *countingReader) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads[path]
}

// countingCompressor wraps the gzip compressor and counts invocations.
type countingCompressor struct {
	inner compress.Compressor
	calls atomic.Int64
}

func newCountingCompressor() *countingCompressor {
	return &countingCompressor{inner: compress.NewGzip()}
}

func (c *countingCompressor) Compress(data []byte) ([]byte, error) {
	c.calls.Add(1)
	return c.inner.Compress(data)
}

func (c *countingCompressor) Encoding() string { return c.inner.Encoding() }

func gunzip(t *testing.T, data []byte) []byte {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	return out
}

func TestGetCachedReadsOnce(t *testing.T) {
	reader := newCountingReader(map[string][]byte{
		"views/app.md": []byte("# hello"),
	})
	c := NewFileCache(true, reader.read, compress.NewGzip())

	ctx := context.Background()
	opts := Options{Cache: true}

	first, err := c.Get(ctx, "views/app.md", opts)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	second, err := c.Get(ctx, "views/app.md", opts)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("cached content differs between calls")
	}
	if got := reader.count("views/app.md"); got != 1 {
		t.Errorf("underlying reads = %d, want 1", got)
	}
}

func TestGetDerivesCompressedFromCachedRaw(t *testing.T) {
	reader := newCountingReader(map[string][]byte{
		"public/site.css": []byte("body { margin: 0 }"),
	})
	comp := newCountingCompressor()
	c := NewFileCache(true, reader.read, comp)

	ctx := context.Background()

	// First call caches the raw representation only.
	raw, err := c.Get(ctx, "public/site.css", Options{Cache: true})
	if err != nil {
		t.Fatalf("raw Get: %v", err)
	}
	if comp.calls.Load() != 0 {
		t.Fatalf("compression ran during raw-only request")
	}

	// Requesting the compressed representation derives it without
	// touching disk again.
	zipped, err := c.Get(ctx, "public/site.css", Options{Cache: true, Zip: true})
	if err != nil {
		t.Fatalf("zip Get: %v", err)
	}
	if got := reader.count("public/site.css"); got != 1 {
		t.Errorf("underlying reads = %d, want 1", got)
	}
	if got := comp.calls.Load(); got != 1 {
		t.Errorf("compression calls = %d, want 1", got)
	}
	if !bytes.Equal(gunzip(t, zipped), raw) {
		t.Error("compressed representation does not match raw content")
	}

	// A second compressed request serves the stored derivation.
	if _, err := c.Get(ctx, "public/site.css", Options{Cache: true, Zip: true}); err != nil {
		t.Fatalf("second zip Get: %v", err)
	}
	if got := comp.calls.Load(); got != 1 {
		t.Errorf("compression calls after second request = %d, want 1", got)
	}
}

func TestGetDisabledBypassesCache(t *testing.T) {
	reader := newCountingReader(map[string][]byte{
		"views/app.md": []byte("# hello"),
	})
	c := NewFileCache(false, reader.read, compress.NewGzip())

	ctx := context.Background()
	opts := Options{Cache: true}

	for i := 0; i < 3; i++ {
		if _, err := c.Get(ctx, "views/app.md", opts); err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
	}

	if got := reader.count("views/app.md"); got != 3 {
		t.Errorf("underlying reads = %d, want 3 (caching disabled)", got)
	}
}

func TestGetNoCacheOptionSkipsStore(t *testing.T) {
	reader := newCountingReader(map[string][]byte{
		"views/app.md": []byte("# hello"),
	})
	c := NewFileCache(true, reader.read, compress.NewGzip())

	ctx := context.Background()

	// cache:false computes fresh and stores nothing.
	if _, err := c.Get(ctx, "views/app.md", Options{Cache: false}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Get(ctx, "views/app.md", Options{Cache: false}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := reader.count("views/app.md"); got != 2 {
		t.Errorf("underlying reads = %d, want 2", got)
	}
}

func TestGetReadFailureLeavesNoEntry(t *testing.T) {
	reader := newCountingReader(map[string][]byte{})
	c := NewFileCache(true, reader.read, compress.NewGzip())

	ctx := context.Background()
	opts := Options{Cache: true}

	_, err := c.Get(ctx, "views/missing.md", opts)
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	var rerr *ReadError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *ReadError, got %T", err)
	}
	if rerr.Path != "views/missing.md" {
		t.Errorf("ReadError.Path = %q", rerr.Path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("ReadError should preserve fs.ErrNotExist")
	}

	// A later successful retry performs a real read; no stale failure
	// is served from the cache.
	reader.mu.Lock()
	reader.content["views/missing.md"] = []byte("# found now")
	reader.mu.Unlock()

	data, err := c.Get(ctx, "views/missing.md", opts)
	if err != nil {
		t.Fatalf("retry Get: %v", err)
	}
	if string(data) != "# found now" {
		t.Errorf("retry content = %q", data)
	}
	if got := reader.count("views/missing.md"); got != 2 {
		t.Errorf("underlying reads = %d, want 2", got)
	}
}

func TestGetZipOnMissStoresBothRepresentations(t *testing.T) {
	reader := newCountingReader(map[string][]byte{
		"public/app.js": []byte("console.log('hi')"),
	})
	comp := newCountingCompressor()
	c := NewFileCache(true, reader.read, comp)

	ctx := context.Background()

	zipped, err := c.Get(ctx, "public/app.js", Options{Cache: true, Zip: true})
	if err != nil {
		t.Fatalf("zip Get: %v", err)
	}
	if !bytes.Equal(gunzip(t, zipped), []byte("console.log('hi')")) {
		t.Error("compressed content mismatch")
	}

	// Both representations should now be served without new work.
	if _, err := c.Get(ctx, "public/app.js", Options{Cache: true}); err != nil {
		t.Fatalf("raw Get: %v", err)
	}
	if _, err := c.Get(ctx, "public/app.js", Options{Cache: true, Zip: true}); err != nil {
		t.Fatalf("second zip Get: %v", err)
	}
	if got := reader.count("public/app.js"); got != 1 {
		t.Errorf("underlying reads = %d, want 1", got)
	}
	if got := comp.calls.Load(); got != 1 {
		t.Errorf("compression calls = %d, want 1", got)
	}
}

func TestGetConcurrentMissesCollapse(t *testing.T) {
	reader := newCountingReader(map[string][]byte{
		"views/big.md": bytes.Repeat([]byte("x"), 1024),
	})
	c := NewFileCache(true, reader.read, compress.NewGzip())

	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Get(ctx, "views/big.md", Options{Cache: true})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}

	// Concurrent misses for the same key collapse into one read.
	// Allow a small margin for goroutines that miss the in-flight
	// window after the first flight completes but before the store.
	if got := reader.count("views/big.md"); got > 2 {
		t.Errorf("underlying reads = %d, want at most 2", got)
	}
}

func TestGetContextCancelled(t *testing.T) {
	reader := newCountingReader(map[string][]byte{
		"views/app.md": []byte("# hello"),
	})
	c := NewFileCache(true, reader.read, compress.NewGzip())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Get(ctx, "views/app.md", Options{Cache: true}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got := reader.count("views/app.md"); got != 0 {
		t.Errorf("underlying reads = %d, want 0", got)
	}
}
