// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command streamdemo writes a roster of call-signs as text, XML, and
// compressed XML into a directory, printing each artifact as it goes.
//
// Failures are reported and skipped; the command always exits 0 once the
// demos start. Bad flags exit 2 before anything is written.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/riannucci/streamdemo/demo"
	"github.com/riannucci/streamdemo/xstream/xsdata"
	"github.com/riannucci/streamdemo/xstream/xsdata/callsign"
)

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	dir := fs.String("dir", ".", "directory to write the artifacts into")
	useBrotli := fs.Bool("brotli", true, "compress the toggle demo with brotli instead of gzip")
	compression := fs.String("compression", "", "compression for the toggle demo (gzip, brotli, flate, zstd); overrides --brotli")
	checksum := fs.String("checksum", "", "checksum trailer for the compressed demos (SHA2-256, SHA2-512, BLAKE2s, BLAKE2b, SHA3-256, SHA3-512, NULL)")
	verbose := fs.BoolP("verbose", "v", false, "report every layer acquisition and release")
	fs.Parse(os.Args[1:])

	ctx := gologger.StdConfig.Use(context.Background())
	ctx = logging.SetLevel(ctx, logging.Warning)
	if *verbose {
		ctx = logging.SetLevel(ctx, logging.Debug)
	}

	env := &demo.Env{
		Dir:       *dir,
		Names:     callsign.Default(),
		Out:       os.Stdout,
		UseBrotli: *useBrotli,
		Verbose:   *verbose,
	}
	var err error
	if *compression != "" {
		if env.Compression, err = xsdata.ParseCompressionScheme(*compression); err != nil {
			fmt.Fprintf(os.Stderr, "--compression: %s\n", err)
			os.Exit(2)
		}
	}
	if *checksum != "" {
		if env.Checksum, err = xsdata.ParseChecksumScheme(*checksum); err != nil {
			fmt.Fprintf(os.Stderr, "--checksum: %s\n", err)
			os.Exit(2)
		}
	}
	failed := 0
	for _, o := range demo.RunAll(ctx, env, demo.All()) {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		logging.Warningf(ctx, "%d of %d demos failed", failed, len(demo.All()))
	}
}
