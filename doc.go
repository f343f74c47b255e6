// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package streamdemo demonstrates stream-based I/O by writing a fixed roster
// of call-signs as plain text, as XML, and as compressed XML.
//
// The interesting part is the layering. A stream is built from the outside in:
//   - a raw byte sink or source (a file)
//   - optionally, a checksum trailer layer (see xsdata.ChecksumScheme)
//   - a compression layer: none, gzip, brotli, flate or zstd
//   - an XML encoder or decoder
//
// Each layer only needs an io.Writer (or io.Reader) from the layer below, so
// the XML layer doesn't know or care whether compression is present. Layers
// are released in the reverse order they were acquired, on every exit path,
// by an xsdata.Stack.
//
// The XML document is:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<nameUsers>
//	  <nameUsers>Пушкин</nameUsers>
//	  ...
//	</nameUsers>
//
// When a checksum layer is used, the stored bytes are followed by:
//   - the checksum scheme (one byte)
//   - the digest of everything before the scheme byte
//   - the digest length (one byte), so the trailer can be parsed from the end
//
// Compression does not necessarily make tiny documents smaller; the framing
// overhead can exceed the savings.
package streamdemo
