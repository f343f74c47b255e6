// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package xsdata implements the byte-level layers which sit between a raw
// file and a structured (XML) writer or reader: compression schemes,
// a checksum trailer, and the Stack which releases acquired layers in
// reverse order.
//
// None of the layers here close the layer beneath them. Ownership of every
// layer belongs to the Stack it was pushed onto.
package xsdata
