// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xsdata

import (
	"context"
	"io"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

type acquired struct {
	name string
	c    io.Closer
}

// Stack holds the layers acquired while building a stream, outermost
// (usually the file) first.
//
// A Stack is not safe for concurrent use.
type Stack struct {
	// OnRelease, if set, is called by Unwind right after each layer is closed,
	// with the layer's name and the error (if any) its Close returned.
	OnRelease func(name string, err error)

	ctx    context.Context
	layers []acquired
	done   bool
}

// NewStack returns an empty Stack which logs its releases to ctx.
func NewStack(ctx context.Context) *Stack {
	return &Stack{ctx: ctx}
}

// Push records (and logs) a newly acquired layer. The layer will be closed by
// Unwind before any layer pushed earlier.
//
// Pushing onto an unwound Stack closes c immediately.
func (s *Stack) Push(name string, c io.Closer) {
	if s.done {
		logging.Warningf(s.ctx, "layer %q acquired after unwind, releasing now", name)
		if err := c.Close(); err != nil {
			logging.Warningf(s.ctx, "releasing layer %q: %s", name, err)
		}
		return
	}
	s.layers = append(s.layers, acquired{name, c})
	logging.Debugf(s.ctx, "acquired layer %q", name)
}

// Len returns the number of layers currently held.
func (s *Stack) Len() int {
	return len(s.layers)
}

// Unwind closes every held layer, innermost first. Every layer is closed
// exactly once, even if closing an inner layer fails.
//
// The returned error is nil or an errors.MultiError holding every release
// failure in release order. Calling Unwind again does nothing and returns
// nil.
func (s *Stack) Unwind() error {
	if s.done {
		return nil
	}
	s.done = true

	var merr errors.MultiError
	for i := len(s.layers) - 1; i >= 0; i-- {
		l := s.layers[i]
		err := l.c.Close()
		if s.OnRelease != nil {
			s.OnRelease(l.name, err)
		}
		if err != nil {
			logging.Debugf(s.ctx, "released layer %q with error: %s", l.name, err)
			merr = append(merr, errors.Annotate(err, "releasing %s", l.name).Err())
			continue
		}
		logging.Debugf(s.ctx, "released layer %q", l.name)
	}
	s.layers = nil

	if len(merr) > 0 {
		return merr
	}
	return nil
}
