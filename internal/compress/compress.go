// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package compress provides the compression capability used by the
// derived-representation cache. The cache orchestrates compression but
// does not implement it; this package supplies the gzip implementation.
package compress

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
)

// Compressor turns a byte slice into its compressed representation.
type Compressor interface {
	// Compress returns the compressed form of data. A failure is
	// terminal for the calling operation; nothing is retried.
	Compress(data []byte) ([]byte, error)

	// Encoding returns the HTTP content-coding name this compressor
	// produces, e.g. "gzip". Used for Content-Encoding headers and
	// Accept-Encoding negotiation.
	Encoding() string
}

// Error wraps a compression failure with the encoding that failed.
type Error struct {
	Encoding string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("compress %s: %v", e.Encoding, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Gzip compresses with klauspost gzip at a fixed level. The zero value
// uses gzip.DefaultCompression.
type Gzip struct {
	Level int
}

// NewGzip returns a Gzip compressor at the default level.
func NewGzip() *Gzip {
	return &Gzip{Level: gzip.DefaultCompression}
}

// Compress gzips data into a fresh buffer.
func (g *Gzip) Compress(data []byte) ([]byte, error) {
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, &Error{Encoding: g.Encoding(), Err: err}
	}
	if _, err := zw.Write(data); err != nil {
		return nil, &Error{Encoding: g.Encoding(), Err: err}
	}
	if err := zw.Close(); err != nil {
		return nil, &Error{Encoding: g.Encoding(), Err: err}
	}
	return buf.Bytes(), nil
}

// Encoding returns "gzip".
func (g *Gzip) Encoding() string { return "gzip" }
