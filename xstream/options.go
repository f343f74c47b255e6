// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xstream

import (
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/riannucci/streamdemo/xstream/xsdata"
)

// DefaultElementName is the tag used for both the root element and every
// call-sign element.
const DefaultElementName = "nameUsers"

type optionData struct {
	compressKind  xsdata.CompressionScheme
	compressLevel int
	checksumKind  xsdata.ChecksumScheme
	indent        string
	rootName      string
	elementName   string
	accepted      []string
	onRelease     func(layer string, err error)
}

// Option tweaks how Create, Encode, Open and Decode build their layers.
//
// Readers must be given the same compression and checksum options the
// matching writer used.
type Option func(*optionData)

// WithCompression inserts a compression layer between the raw stream and the
// XML layer. level may be xsdata.DefaultLevel.
func WithCompression(kind xsdata.CompressionScheme, level int) Option {
	return func(o *optionData) {
		o.compressKind = kind
		o.compressLevel = level
	}
}

// WithChecksum inserts a checksum trailer layer directly above the raw stream,
// so the checksum covers the bytes as they are stored.
func WithChecksum(kind xsdata.ChecksumScheme) Option {
	return func(o *optionData) {
		o.checksumKind = kind
	}
}

// WithIndent makes the writer put every element on its own line, indented by
// indent per nesting level.
func WithIndent(indent string) Option {
	return func(o *optionData) {
		o.indent = indent
	}
}

// WithRootName overrides the root element's tag.
func WithRootName(name string) Option {
	return func(o *optionData) {
		o.rootName = name
	}
}

// WithElementName overrides the tag of the per-call-sign elements. On the read
// side this is the tag which is accepted, unless WithAcceptedNames is also
// given.
func WithElementName(name string) Option {
	return func(o *optionData) {
		o.elementName = name
	}
}

// WithAcceptedNames makes the reader treat leaf elements with any of these tags
// as call-signs.
func WithAcceptedNames(names ...string) Option {
	return func(o *optionData) {
		o.accepted = append(o.accepted, names...)
	}
}

// WithReleaseNotify calls fn each time a layer is released, innermost first.
// It is the only option WriteLines honors.
func WithReleaseNotify(fn func(layer string, err error)) Option {
	return func(o *optionData) {
		o.onRelease = fn
	}
}

func newOptions(options []Option) optionData {
	opts := optionData{
		compressKind:  xsdata.CompressionNone,
		compressLevel: xsdata.DefaultLevel,
		rootName:      DefaultElementName,
		elementName:   DefaultElementName,
	}
	for _, o := range options {
		o(&opts)
	}
	return opts
}

func (o optionData) validate() error {
	if err := o.compressKind.Valid(); err != nil {
		return err
	}
	if o.checksumKind != 0 {
		if err := o.checksumKind.Valid(); err != nil {
			return err
		}
	}
	if o.rootName == "" || o.elementName == "" {
		return errors.New("element names must not be empty")
	}
	return nil
}

func (o optionData) acceptedSet() stringset.Set {
	if len(o.accepted) == 0 {
		return stringset.NewFromSlice(o.elementName)
	}
	return stringset.NewFromSlice(o.accepted...)
}
