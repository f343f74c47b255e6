// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xstream

import (
	"context"
	"encoding/xml"
	"io"
	"iter"
	"os"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/riannucci/streamdemo/xstream/xsdata"
)

// Open returns a lazy sequence of the call-signs stored in the file at path.
// Nothing is opened until the sequence is ranged over, and everything is
// released when the range loop ends, including on break.
//
// A failure is yielded once, with an empty name, and ends the sequence.
func Open(ctx context.Context, path string, options ...Option) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield("", errors.Annotate(err, "opening %q", path).Tag(IOFailure).Err())
			return
		}
		for name, err := range Decode(ctx, f, options...) {
			if !yield(name, err) {
				return
			}
		}
	}
}

// Decode returns a lazy sequence of the call-signs stored in src, which must
// have been produced by Encode with the same compression and checksum options.
//
// Decode takes ownership of src; it is closed when the sequence ends. If
// WithChecksum is used, src must also implement io.Seeker.
//
// A call-sign is the text of any element with an accepted tag which has no
// child elements. The root element usually shares the tag, but since it holds
// other elements it never counts.
func Decode(ctx context.Context, src io.ReadCloser, options ...Option) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stack := xsdata.NewStack(ctx)
		stack.Push("source", src)

		stopped := false
		emit := func(name string, err error) bool {
			if stopped {
				return false
			}
			if !yield(name, err) || err != nil {
				stopped = true
			}
			return !stopped
		}
		defer func() {
			uerr := stack.Unwind()
			if uerr == nil {
				return
			}
			uerr = firstError(uerr)
			if !FormatFailure.In(uerr) {
				uerr = errors.Annotate(uerr, "releasing read layers").Tag(IOFailure).Err()
			}
			if stopped {
				logging.Warningf(ctx, "releasing read layers: %s", uerr)
				return
			}
			emit("", uerr)
		}()

		opts := newOptions(options)
		stack.OnRelease = opts.onRelease
		if err := opts.validate(); err != nil {
			emit("", err)
			return
		}

		r := io.Reader(src)
		if opts.checksumKind != 0 {
			rs, ok := src.(io.ReadSeeker)
			if !ok {
				emit("", errors.New("checksum verification needs a seekable source"))
				return
			}
			cr, found, err := xsdata.ChecksumReader(rs)
			if err != nil {
				emit("", readFailure(err, "reading checksum trailer"))
				return
			}
			stack.Push("checksum", xsdata.CloserFunc(func() error {
				return errors.Annotate(cr.Close(), "verifying checksum").Tag(FormatFailure).Err()
			}))
			if found != opts.checksumKind {
				emit("", errors.Reason("checksum is %s, expected %s", found, opts.checksumKind).
					Tag(FormatFailure).Err())
				return
			}
			r = cr
		}

		dr, err := opts.compressKind.Reader(r)
		if err != nil {
			emit("", readFailure(err, "opening "+opts.compressKind.String()+" layer"))
			return
		}
		stack.Push(opts.compressKind.String(), dr)

		accepted := opts.acceptedSet()
		dec := xml.NewDecoder(dr)

		// capturing is true between the start of an accepted element and the
		// next start or end token.
		capturing := false
		var text []byte
		for {
			tok, err := dec.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				emit("", readFailure(err, "reading XML"))
				return
			}

			switch t := tok.(type) {
			case xml.StartElement:
				capturing = accepted.Has(t.Name.Local)
				text = text[:0]
			case xml.CharData:
				if capturing {
					text = append(text, t...)
				}
			case xml.EndElement:
				if capturing {
					capturing = false
					if !emit(string(text), nil) {
						return
					}
				}
			}
		}
	}
}
