// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package demo holds the stream demos and the runner which executes them
// in order without letting one failure stop the rest.
package demo

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/riannucci/streamdemo/xstream"
	"github.com/riannucci/streamdemo/xstream/xsdata"
	"github.com/riannucci/streamdemo/xstream/xsdata/callsign"
)

// WelcomeLine is the single line written by the TextStream demo.
const WelcomeLine = "Добро пожаловать  .Net Core!"

// Env is everything a demo may touch.
type Env struct {
	// Dir is where artifacts are written.
	Dir string
	// Names is the roster to write.
	Names callsign.Record
	// Out receives the demo's console output.
	Out io.Writer
	// UseBrotli picks brotli (true) or gzip (false) for the Toggle demo.
	UseBrotli bool
	// Compression, if set, overrides UseBrotli for the Toggle demo.
	Compression xsdata.CompressionScheme
	// Checksum, if set, adds a checksum trailer to the compressed artifacts
	// and verifies it when reading them back.
	Checksum xsdata.ChecksumScheme
	// Verbose makes the Text and XML demos report every layer they release.
	Verbose bool
}

func (e *Env) path(name string) string {
	return filepath.Join(e.Dir, name)
}

// releaseReport returns the options which make a write report its layer
// releases on e.Out, if e.Verbose is set.
func (e *Env) releaseReport(path string) []xstream.Option {
	if !e.Verbose {
		return nil
	}
	return []xstream.Option{xstream.WithReleaseNotify(func(layer string, err error) {
		if err != nil {
			fmt.Fprintf(e.Out, "Releasing the %s layer of %s failed: %s\n", layer, path, err)
			return
		}
		fmt.Fprintf(e.Out, "Released the %s layer of %s.\n", layer, path)
	})}
}

// Demo is a single named demo routine.
type Demo struct {
	Name string
	Run  func(ctx context.Context, env *Env) error
}

// All returns the five demos in the order they are meant to run.
func All() []Demo {
	return []Demo{
		{"text", Text},
		{"xml", XML},
		{"text-stream", TextStream},
		{"compression", Compression},
		{"toggle", Toggle},
	}
}

// Outcome records how one demo went.
type Outcome struct {
	Demo string
	Err  error
}

// Kind is the failure category of the outcome, or "" if it succeeded.
func (o Outcome) Kind() string {
	return xstream.Classify(o.Err)
}

var failColor = color.New(color.FgRed)

// RunAll runs demos strictly in sequence. A failing demo gets a
// "<category>: <message>" line on env.Out and the next demo runs anyway.
func RunAll(ctx context.Context, env *Env, demos []Demo) []Outcome {
	ret := make([]Outcome, 0, len(demos))
	for _, d := range demos {
		logging.Infof(ctx, "running demo %q", d.Name)
		o := Outcome{Demo: d.Name, Err: d.Run(ctx, env)}
		if o.Err != nil {
			logging.Errorf(ctx, "demo %q failed: %s", d.Name, o.Err)
			failColor.Fprintf(env.Out, "%s: %s\n", o.Kind(), o.Err)
		}
		ret = append(ret, o)
	}
	return ret
}

// Text writes the roster one name per line to streams.txt and prints it.
func Text(ctx context.Context, env *Env) error {
	path := env.path("streams.txt")
	if err := xstream.WriteLines(ctx, path, env.Names, env.releaseReport(path)...); err != nil {
		return err
	}
	return printFile(env.Out, path)
}

// XML writes the roster as an indented XML document to streams.xml and
// prints it.
func XML(ctx context.Context, env *Env) error {
	path := env.path("streams.xml")
	opts := append(env.releaseReport(path), xstream.WithIndent("  "))
	if _, err := xstream.Create(ctx, path, env.Names, opts...); err != nil {
		return err
	}
	return printFile(env.Out, path)
}

// TextStream writes WelcomeLine to file2.txt.
func TextStream(ctx context.Context, env *Env) error {
	return xstream.WriteLines(ctx, env.path("file2.txt"), []string{WelcomeLine})
}

// Compression writes the roster as gzip-compressed XML to stream.gzip, dumps
// the compressed bytes and reads the roster back.
func Compression(ctx context.Context, env *Env) error {
	return compressed(ctx, env, "stream", xsdata.CompressionGzip)
}

// Toggle does what Compression does, with brotli or gzip depending on
// env.UseBrotli, writing streams.brotli or streams.gzip. env.Compression
// replaces that choice when set.
func Toggle(ctx context.Context, env *Env) error {
	scheme := xsdata.CompressionGzip
	switch {
	case env.Compression == xsdata.CompressionNone:
		// streams.xml belongs to the XML demo.
		return errors.Reason("toggle demo needs a compressing scheme, got %s", env.Compression).Err()
	case env.Compression != 0:
		scheme = env.Compression
	case env.UseBrotli:
		scheme = xsdata.CompressionBrotli
	}
	return compressed(ctx, env, "streams", scheme)
}

func compressed(ctx context.Context, env *Env, base string, scheme xsdata.CompressionScheme) error {
	path := env.path(base + "." + scheme.Ext())
	opts := []xstream.Option{xstream.WithCompression(scheme, xsdata.DefaultLevel)}
	if env.Checksum != 0 {
		opts = append(opts, xstream.WithChecksum(env.Checksum))
	}

	st, err := xstream.Create(ctx, path, env.Names, opts...)
	if err != nil {
		return err
	}
	logging.Debugf(ctx, "%s: %s of XML before compression", path, humanize.Bytes(uint64(st.XMLBytes)))
	if err := printFile(env.Out, path); err != nil {
		return err
	}

	fmt.Fprintln(env.Out, "Reading compressed XML:")
	for name, err := range xstream.Open(ctx, path, opts...) {
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, name)
	}
	return nil
}

// printFile prints the size of the file at path and its contents. Contents
// which aren't text are hex dumped.
func printFile(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotate(err, "reading back %q", path).Tag(xstream.IOFailure).Err()
	}
	fmt.Fprintf(out, "File %s contains %s bytes.\n", path, humanize.Comma(int64(len(data))))
	if utf8.Valid(data) {
		fmt.Fprintln(out, "Contents:")
		fmt.Fprintln(out, string(data))
		return nil
	}
	fmt.Fprintln(out, "Compressed contents:")
	fmt.Fprint(out, hex.Dump(data))
	return nil
}
