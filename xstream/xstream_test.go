// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"

	"github.com/riannucci/streamdemo/xstream/xsdata"
	"github.com/riannucci/streamdemo/xstream/xsdata/callsign"
)

// failingSink accepts budget bytes and then fails every write.
type failingSink struct {
	buf    bytes.Buffer
	budget int
	closes int
}

func (f *failingSink) Write(p []byte) (int, error) {
	if len(p) > f.budget {
		n, _ := f.buf.Write(p[:f.budget])
		f.budget = 0
		return n, errors.New("disk full")
	}
	f.budget -= len(p)
	return f.buf.Write(p)
}

func (f *failingSink) Close() error {
	f.closes++
	return nil
}

type countingSource struct {
	io.ReadSeeker
	closes int
}

func (c *countingSource) Close() error {
	c.closes++
	return nil
}

func collect(seq func(func(string, error) bool)) (names []string, err error) {
	for name, e := range seq {
		if e != nil {
			return names, e
		}
		names = append(names, name)
	}
	return names, nil
}

func releasedLayers(ml *memlogger.MemLogger) []string {
	var ret []string
	for _, m := range ml.Messages() {
		rest, ok := strings.CutPrefix(m.Msg, `released layer "`)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, `"`)
		ret = append(ret, name)
	}
	return ret
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	Convey("round trip", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		names := []string(callsign.Default())

		schemes := []xsdata.CompressionScheme{
			xsdata.CompressionNone,
			xsdata.CompressionGzip,
			xsdata.CompressionBrotli,
			xsdata.CompressionFlate,
			xsdata.CompressionZstd,
		}
		for _, scheme := range schemes {
			for _, csum := range []xsdata.ChecksumScheme{0, xsdata.ChecksumSHA2_256, xsdata.ChecksumBLAKE2b} {
				Convey(fmt.Sprintf("%s checksum=%d", scheme, csum), func() {
					opts := []Option{WithCompression(scheme, xsdata.DefaultLevel)}
					if csum != 0 {
						opts = append(opts, WithChecksum(csum))
					}
					path := filepath.Join(dir, "roster."+scheme.Ext())

					st, err := Create(ctx, path, names, opts...)
					So(err, ShouldBeNil)
					So(st.Names, ShouldEqual, len(names))
					So(st.XMLBytes, ShouldBeGreaterThan, 0)

					got, err := collect(Open(ctx, path, opts...))
					So(err, ShouldBeNil)
					So(got, ShouldResemble, names)
				})
			}
		}

		Convey("gzip roster", func() {
			path := filepath.Join(dir, "stream.gzip")
			_, err := Create(ctx, path, callsign.Default(), WithCompression(xsdata.CompressionGzip, xsdata.DefaultLevel))
			So(err, ShouldBeNil)

			got, err := collect(Open(ctx, path, WithCompression(xsdata.CompressionGzip, xsdata.DefaultLevel)))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []string{
				"Пушкин", "Альберт", "Молодой", "Щегол",
				"Садовод", "Араннгел", "Ворон", "Вожак",
			})
		})

		Convey("indented, with escaping", func() {
			path := filepath.Join(dir, "streams.xml")
			tricky := []string{"a<b", "Tom & Jerry", "  padded  ", "\"quoted\""}
			_, err := Create(ctx, path, tricky, WithIndent("  "))
			So(err, ShouldBeNil)

			raw, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(raw), ShouldStartWith, `<?xml version="1.0" encoding="UTF-8"?>`)
			So(string(raw), ShouldContainSubstring, "\n  <nameUsers>a&lt;b</nameUsers>\n")
			So(string(raw), ShouldContainSubstring, "Tom &amp; Jerry")

			got, err := collect(Open(ctx, path))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, tricky)
		})

		Convey("whitespace controls XML allows", func() {
			path := filepath.Join(dir, "controls.xml")
			ws := []string{"tab\there", "cr\r\nlf", "emoji 📡"}
			_, err := Create(ctx, path, ws)
			So(err, ShouldBeNil)

			got, err := collect(Open(ctx, path))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, ws)
		})

		Convey("custom tags", func() {
			path := filepath.Join(dir, "custom.xml")
			_, err := Create(ctx, path, []string{"x", "y"}, WithRootName("roster"), WithElementName("callsign"))
			So(err, ShouldBeNil)

			raw, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, "<roster><callsign>x</callsign>")

			got, err := collect(Open(ctx, path, WithElementName("callsign")))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []string{"x", "y"})

			got, err = collect(Open(ctx, path))
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)

			got, err = collect(Open(ctx, path, WithAcceptedNames("nameUsers", "callsign")))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []string{"x", "y"})
		})

		Convey("overwrite truncates", func() {
			path := filepath.Join(dir, "again.xml")
			_, err := Create(ctx, path, []string{"one", "two", "three", "four"}, WithIndent("    "))
			So(err, ShouldBeNil)
			_, err = Create(ctx, path, []string{"five"})
			So(err, ShouldBeNil)

			got, err := collect(Open(ctx, path))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []string{"five"})
		})

		Convey("hand-written documents", func() {
			src := &countingSource{ReadSeeker: strings.NewReader(
				`<nameUsers><nameUsers/><other>skip</other><nameUsers>Ворон</nameUsers></nameUsers>`)}
			got, err := collect(Decode(ctx, src))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []string{"", "Ворон"})
			So(src.closes, ShouldEqual, 1)
		})

		Convey("breaking early releases the source", func() {
			sink := &failingSink{budget: 1 << 20}
			_, err := Encode(ctx, sink, names, WithCompression(xsdata.CompressionBrotli, xsdata.DefaultLevel))
			So(err, ShouldBeNil)
			So(sink.closes, ShouldEqual, 1)

			src := &countingSource{ReadSeeker: bytes.NewReader(sink.buf.Bytes())}
			var first []string
			for name, err := range Decode(ctx, src, WithCompression(xsdata.CompressionBrotli, xsdata.DefaultLevel)) {
				So(err, ShouldBeNil)
				first = append(first, name)
				break
			}
			So(first, ShouldResemble, []string{"Пушкин"})
			So(src.closes, ShouldEqual, 1)
		})
	})
}

func TestFailures(t *testing.T) {
	t.Parallel()

	Convey("failures", t, func() {
		ctx := memlogger.Use(context.Background())
		ctx = logging.SetLevel(ctx, logging.Debug)
		ml := logging.Get(ctx).(*memlogger.MemLogger)
		dir := t.TempDir()
		names := []string(callsign.Default())

		Convey("missing parent directory", func() {
			path := filepath.Join(dir, "no", "such", "dir", "streams.xml")
			_, err := Create(ctx, path, names)
			So(err, ShouldErrLike, "creating")
			So(IOFailure.In(err), ShouldBeTrue)
			So(Classify(err), ShouldEqual, "I/O failure")

			err = WriteLines(ctx, path, names)
			So(Classify(err), ShouldEqual, "I/O failure")

			_, err = collect(Open(ctx, path))
			So(Classify(err), ShouldEqual, "I/O failure")
		})

		Convey("sink fails mid-stream", func() {
			sink := &failingSink{budget: 5}
			_, err := Encode(ctx, sink, names,
				WithCompression(xsdata.CompressionGzip, xsdata.DefaultLevel),
				WithChecksum(xsdata.ChecksumSHA2_512))
			So(err, ShouldErrLike, "disk full")
			So(Classify(err), ShouldEqual, "I/O failure")

			So(sink.closes, ShouldEqual, 1)
			So(releasedLayers(ml), ShouldResemble, []string{"xml", "gzip", "checksum", "sink"})
		})

		Convey("sink fails while encoding", func() {
			sink := &failingSink{budget: 0}
			many := make([]string, 2000)
			for i := range many {
				many[i] = fmt.Sprintf("callsign-%04d", i)
			}
			_, err := Encode(ctx, sink, many)
			So(err, ShouldErrLike, "disk full")
			So(Classify(err), ShouldEqual, "I/O failure")
			So(sink.closes, ShouldEqual, 1)
			So(releasedLayers(ml), ShouldResemble, []string{"xml", "none", "sink"})
		})

		Convey("bad options still release the sink", func() {
			sink := &failingSink{budget: 100}
			_, err := Encode(ctx, sink, names, WithCompression(xsdata.CompressionScheme(77), 0))
			So(err, ShouldErrLike, "unknown compression scheme")
			So(sink.closes, ShouldEqual, 1)

			sink = &failingSink{budget: 100}
			_, err = Encode(ctx, sink, []string{"ok", ""})
			So(err, ShouldErrLike, "call-sign #1 is empty")
			So(sink.closes, ShouldEqual, 1)
		})

		Convey("names XML cannot carry are refused", func() {
			for _, bad := range []string{"bell\x07", "bad\xffutf8"} {
				path := filepath.Join(dir, "refused.xml")
				st, err := Create(ctx, path, []string{"ok", bad})
				So(err, ShouldErrLike, "call-sign #1")
				So(FormatFailure.In(err), ShouldBeTrue)
				So(Classify(err), ShouldEqual, "format failure")
				So(st, ShouldResemble, Stats{})
			}

			sink := &failingSink{budget: 100}
			_, err := Encode(ctx, sink, []string{"bell\x07"})
			So(err, ShouldErrLike, "contains U+0007")
			So(sink.closes, ShouldEqual, 1)
			So(sink.buf.Len(), ShouldEqual, 0)
		})

		Convey("corrupt and mismatched input", func() {
			path := filepath.Join(dir, "streams.brotli")
			brotli := WithCompression(xsdata.CompressionBrotli, xsdata.DefaultLevel)
			_, err := Create(ctx, path, names, brotli)
			So(err, ShouldBeNil)

			Convey("wrong selector", func() {
				_, err := collect(Open(ctx, path, WithCompression(xsdata.CompressionGzip, xsdata.DefaultLevel)))
				So(err, ShouldNotBeNil)
				So(Classify(err), ShouldEqual, "format failure")
			})

			Convey("no selector", func() {
				gzPath := filepath.Join(dir, "streams.gzip")
				_, err := Create(ctx, gzPath, names, WithCompression(xsdata.CompressionGzip, xsdata.DefaultLevel))
				So(err, ShouldBeNil)

				_, err = collect(Open(ctx, gzPath))
				So(err, ShouldNotBeNil)
				So(Classify(err), ShouldEqual, "format failure")
			})

			Convey("truncated", func() {
				raw, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(os.WriteFile(path, raw[:len(raw)/2], 0666), ShouldBeNil)

				_, err = collect(Open(ctx, path, brotli))
				So(err, ShouldNotBeNil)
				So(Classify(err), ShouldEqual, "format failure")
			})

			Convey("malformed XML", func() {
				src := &countingSource{ReadSeeker: strings.NewReader("<nameUsers><nameUsers>x</nameUsers>")}
				got, err := collect(Decode(ctx, src))
				So(got, ShouldResemble, []string{"x"})
				So(err, ShouldErrLike, "reading XML")
				So(Classify(err), ShouldEqual, "format failure")
				So(src.closes, ShouldEqual, 1)
			})
		})

		Convey("checksums", func() {
			path := filepath.Join(dir, "streams.gzip")
			opts := []Option{
				WithCompression(xsdata.CompressionGzip, xsdata.DefaultLevel),
				WithChecksum(xsdata.ChecksumBLAKE2s),
			}
			_, err := Create(ctx, path, names, opts...)
			So(err, ShouldBeNil)

			Convey("flipped byte", func() {
				raw, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				// inside the gzip OS byte, which decoders ignore
				raw[9] ^= 0xff
				So(os.WriteFile(path, raw, 0666), ShouldBeNil)

				got, err := collect(Open(ctx, path, opts...))
				So(got, ShouldResemble, names)
				So(err, ShouldErrLike, "mismatched checksum (BLAKE2s)")
				So(Classify(err), ShouldEqual, "format failure")
			})

			Convey("wrong scheme", func() {
				_, err := collect(Open(ctx, path,
					WithCompression(xsdata.CompressionGzip, xsdata.DefaultLevel),
					WithChecksum(xsdata.ChecksumSHA3_256)))
				So(err, ShouldErrLike, "checksum is BLAKE2s, expected SHA3-256")
				So(Classify(err), ShouldEqual, "format failure")
			})

			Convey("unseekable source", func() {
				f, err := os.Open(path)
				So(err, ShouldBeNil)
				_, err = collect(Decode(ctx, io.NopCloser(f), opts...))
				So(err, ShouldErrLike, "needs a seekable source")
				So(f.Close(), ShouldBeNil)
			})
		})

		Convey("Classify", func() {
			So(Classify(nil), ShouldEqual, "")
			So(Classify(errors.New("boom")), ShouldEqual, "failure")
			So(Classify(errors.New("boom", FormatFailure)), ShouldEqual, "format failure")
		})
	})
}

func TestWriteLines(t *testing.T) {
	t.Parallel()

	Convey("WriteLines", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "streams.txt")

		So(WriteLines(ctx, path, callsign.Default()), ShouldBeNil)
		raw, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(raw), ShouldEqual,
			"Пушкин\nАльберт\nМолодой\nЩегол\nСадовод\nАраннгел\nВорон\nВожак\n")

		So(WriteLines(ctx, path, []string{"short"}), ShouldBeNil)
		raw, err = os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(raw), ShouldEqual, "short\n")

		Convey("reports releases, buffer before file", func() {
			var released []string
			err := WriteLines(ctx, path, []string{"a"}, WithReleaseNotify(func(layer string, err error) {
				So(err, ShouldBeNil)
				released = append(released, layer)
			}))
			So(err, ShouldBeNil)
			So(released, ShouldResemble, []string{"text", "file"})
		})
	})
}
