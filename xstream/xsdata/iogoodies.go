// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xsdata

import "io"

// CloserFunc adapts a plain function to io.Closer, so that things like
// (*xml.Encoder).Close can be pushed onto a Stack.
type CloserFunc func() error

// Close implements io.Closer.
func (f CloserFunc) Close() error { return f() }

type writeCloseHook struct {
	io.Writer

	clsFn func() error
}

func (c writeCloseHook) Close() error {
	if c.clsFn != nil {
		return c.clsFn()
	}
	return nil
}

type readCloseHook struct {
	io.Reader

	clsFn func() error
}

func (c readCloseHook) Close() error {
	if c.clsFn != nil {
		return c.clsFn()
	}
	return nil
}
