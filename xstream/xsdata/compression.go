// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xsdata

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"go.chromium.org/luci/common/errors"
)

// CompressionScheme selects the transform layer placed between a raw byte
// sink and the structured writer.
type CompressionScheme byte

// These are the currently supported compressions schemes.
const (
	CompressionNone CompressionScheme = iota + 1
	CompressionGzip
	CompressionBrotli
	CompressionFlate
	CompressionZstd
)

// DefaultLevel asks every scheme for its own default compression level.
const DefaultLevel = -1

var schemeNames = map[CompressionScheme]string{
	CompressionNone:   "none",
	CompressionGzip:   "gzip",
	CompressionBrotli: "brotli",
	CompressionFlate:  "flate",
	CompressionZstd:   "zstd",
}

var schemeExts = map[CompressionScheme]string{
	CompressionNone:   "xml",
	CompressionGzip:   "gzip",
	CompressionBrotli: "brotli",
	CompressionFlate:  "flate",
	CompressionZstd:   "zst",
}

// ParseCompressionScheme maps a scheme name (as printed by String) back to
// the scheme.
func ParseCompressionScheme(name string) (CompressionScheme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range schemeNames {
		if n == name {
			return c, nil
		}
	}
	return 0, errors.Reason("unknown compression scheme %q", name).Err()
}

func (c CompressionScheme) String() string {
	if n, ok := schemeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("CompressionScheme(%d)", byte(c))
}

// Ext returns the file extension conventionally used for files written with
// this scheme, without the leading dot.
func (c CompressionScheme) Ext() string {
	return schemeExts[c]
}

// Writer returns a new compressing writer for the given scheme.
//
// Closing the returned writer flushes the compressed framing to w, but does
// not close w.
func (c CompressionScheme) Writer(w io.Writer, level int) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return writeCloseHook{w, nil}, nil
	case CompressionGzip:
		return gzip.NewWriterLevel(w, level)
	case CompressionBrotli:
		if level == DefaultLevel {
			level = brotli.DefaultCompression
		}
		return brotli.NewWriterLevel(w, level), nil
	case CompressionFlate:
		return flate.NewWriter(w, level)
	case CompressionZstd:
		opts := []zstd.EOption{}
		if level != DefaultLevel {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		return zstd.NewWriter(w, opts...)
	}
	return nil, c.Valid()
}

// Reader returns a new decompressing reader for the given scheme.
//
// Closing the returned reader releases the decompressor, but does not close
// r.
func (c CompressionScheme) Reader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return readCloseHook{r, nil}, nil
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionBrotli:
		return readCloseHook{brotli.NewReader(r), nil}, nil
	case CompressionFlate:
		return flate.NewReader(r), nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	}
	return nil, c.Valid()
}

// Valid returns a nil err iff this CompressionScheme is valid.
func (c CompressionScheme) Valid() error {
	if _, ok := schemeNames[c]; ok {
		return nil
	}
	return errors.Reason("unknown compression scheme 0x%x", byte(c)).Err()
}
