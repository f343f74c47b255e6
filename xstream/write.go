// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package xstream writes and reads call-sign rosters as XML documents over a
// stack of byte layers:
//
//	file -> [checksum] -> [compression] -> XML
//
// The XML layer only ever sees an io.Writer (or io.Reader), so it works the
// same whether or not compression is present.
package xstream

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/iotools"
	"go.chromium.org/luci/common/logging"

	"github.com/riannucci/streamdemo/xstream/xsdata"
	"github.com/riannucci/streamdemo/xstream/xsdata/callsign"
)

// Stats describes a finished write.
type Stats struct {
	// Names is the number of call-sign elements written.
	Names int
	// XMLBytes is the size of the XML document before compression.
	XMLBytes int64
}

// Create creates (or truncates) the file at path and writes names to it as
// described by Encode.
func Create(ctx context.Context, path string, names []string, options ...Option) (Stats, error) {
	f, err := os.Create(path)
	if err != nil {
		return Stats{}, errors.Annotate(err, "creating %q", path).Tag(IOFailure).Err()
	}
	return Encode(ctx, f, names, options...)
}

// Encode writes names to sink as an XML document: a declaration, one root
// element, and one child element per name, in order.
//
// Encode takes ownership of sink. Every layer it opens, sink included, is
// closed before it returns, innermost first, whether or not the write
// succeeded.
func Encode(ctx context.Context, sink io.WriteCloser, names []string, options ...Option) (st Stats, err error) {
	opts := newOptions(options)
	stack := xsdata.NewStack(ctx)
	stack.OnRelease = opts.onRelease
	stack.Push("sink", sink)
	defer func() {
		if uerr := stack.Unwind(); uerr != nil {
			logging.Warningf(ctx, "releasing layers after failed write: %s", uerr)
		}
	}()

	if err = opts.validate(); err != nil {
		return
	}
	if err = callsign.Record(names).Validate(); err != nil {
		if callsign.Unrepresentable.In(err) {
			err = errors.Annotate(err, "validating names").Tag(FormatFailure).Err()
		}
		return
	}

	w := io.Writer(sink)
	if opts.checksumKind != 0 {
		cw := opts.checksumKind.Writer(w)
		stack.Push("checksum", cw)
		w = cw
	}

	cw, err := opts.compressKind.Writer(w, opts.compressLevel)
	if err != nil {
		err = errors.Annotate(err, "opening %s layer", opts.compressKind).Err()
		return
	}
	stack.Push(opts.compressKind.String(), cw)

	counter := &iotools.CountingWriter{Writer: cw}
	enc := xml.NewEncoder(counter)
	if opts.indent != "" {
		enc.Indent("", opts.indent)
	}
	stack.Push("xml", xsdata.CloserFunc(enc.Close))

	if err = writeDocument(enc, opts, names); err != nil {
		err = errors.Annotate(err, "writing XML").Tag(IOFailure).Err()
		return
	}

	if err = stack.Unwind(); err != nil {
		err = errors.Annotate(firstError(err), "finishing write").Tag(IOFailure).Err()
		return
	}
	st = Stats{Names: len(names), XMLBytes: counter.Count}
	logging.Debugf(ctx, "wrote %d names (%d XML bytes, %s)", st.Names, st.XMLBytes, opts.compressKind)
	return
}

func writeDocument(enc *xml.Encoder, opts optionData, names []string) error {
	decl := xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}
	if err := enc.EncodeToken(decl); err != nil {
		return err
	}
	root := xml.StartElement{Name: xml.Name{Local: opts.rootName}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	elem := xml.StartElement{Name: xml.Name{Local: opts.elementName}}
	for _, name := range names {
		if err := enc.EncodeElement(name, elem); err != nil {
			return err
		}
	}
	return enc.EncodeToken(root.End())
}

// WriteLines creates (or truncates) the file at path and writes each line to
// it, newline terminated. Of the options, only WithReleaseNotify applies.
func WriteLines(ctx context.Context, path string, lines []string, options ...Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Annotate(err, "creating %q", path).Tag(IOFailure).Err()
	}
	stack := xsdata.NewStack(ctx)
	stack.OnRelease = newOptions(options).onRelease
	stack.Push("file", f)
	defer func() {
		if uerr := stack.Unwind(); uerr != nil {
			logging.Warningf(ctx, "releasing layers after failed write: %s", uerr)
		}
	}()

	bw := bufio.NewWriter(f)
	stack.Push("text", xsdata.CloserFunc(bw.Flush))
	for _, line := range lines {
		if _, err = fmt.Fprintln(bw, line); err != nil {
			return errors.Annotate(err, "writing %q", path).Tag(IOFailure).Err()
		}
	}

	if err = stack.Unwind(); err != nil {
		return errors.Annotate(firstError(err), "finishing %q", path).Tag(IOFailure).Err()
	}
	return nil
}
