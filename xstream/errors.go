// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xstream

import (
	"io/fs"

	"go.chromium.org/luci/common/errors"
)

var (
	// IOFailure tags errors caused by the environment: bad paths, permissions,
	// full disks, failing sinks.
	IOFailure = errors.BoolTag{Key: errors.NewTagKey("I/O failure")}

	// FormatFailure tags errors caused by the bytes themselves: malformed XML,
	// corrupt compression frames, checksum mismatches, a wrong selector.
	FormatFailure = errors.BoolTag{Key: errors.NewTagKey("format failure")}
)

// Classify names the failure category of err, for reports.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case FormatFailure.In(err):
		return "format failure"
	case IOFailure.In(err):
		return "I/O failure"
	}
	return "failure"
}

// readFailure tags an error surfaced while pulling bytes through the read
// layers. Errors from the file itself are I/O failures; anything raised by a
// decoding layer is a format failure.
func readFailure(err error, reason string) error {
	tag := FormatFailure
	if _, ok := err.(*fs.PathError); ok {
		tag = IOFailure
	}
	return errors.Annotate(err, "%s", reason).Tag(tag).Err()
}

func firstError(err error) error {
	if merr, ok := err.(errors.MultiError); ok && len(merr) > 0 {
		return merr[0]
	}
	return err
}
