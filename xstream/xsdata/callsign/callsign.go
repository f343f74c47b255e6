// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package callsign holds the roster of user call-signs written by the
// stream demos.
package callsign

import (
	"slices"
	"unicode/utf8"

	"go.chromium.org/luci/common/errors"
)

// Record is an ordered list of call-signs. Order matters only for output
// ordering.
type Record []string

// roster is never mutated; Default hands out copies.
var roster = Record{
	"Пушкин", "Альберт", "Молодой", "Щегол",
	"Садовод", "Араннгел", "Ворон", "Вожак",
}

// Default returns a copy of the built-in eight-name roster.
func Default() Record {
	return slices.Clone(roster)
}

// Unrepresentable tags Validate errors for call-signs which an XML 1.0
// document cannot carry unchanged.
var Unrepresentable = errors.BoolTag{Key: errors.NewTagKey("unrepresentable call-sign")}

// Validate returns an error if r is empty, contains an empty call-sign, or
// contains a call-sign which is not valid UTF-8 or holds a character outside
// the XML 1.0 Char production.
func (r Record) Validate() error {
	if len(r) == 0 {
		return errors.New("empty call-sign record")
	}
	for i, name := range r {
		if name == "" {
			return errors.Reason("call-sign #%d is empty", i).Err()
		}
		if !utf8.ValidString(name) {
			return errors.Reason("call-sign #%d is not valid UTF-8", i).Tag(Unrepresentable).Err()
		}
		for _, c := range name {
			if !isXMLChar(c) {
				return errors.Reason("call-sign #%d contains %U, which XML cannot carry", i, c).
					Tag(Unrepresentable).Err()
			}
		}
	}
	return nil
}

// isXMLChar reports whether c matches the Char production of XML 1.0.
func isXMLChar(c rune) bool {
	switch {
	case c == '\t', c == '\n', c == '\r':
		return true
	case c >= 0x20 && c <= 0xD7FF:
		return true
	case c >= 0xE000 && c <= 0xFFFD:
		return true
	case c >= 0x10000 && c <= utf8.MaxRune:
		return true
	}
	return false
}
