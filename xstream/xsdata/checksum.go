// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xsdata

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"

	"go.chromium.org/luci/common/errors"
)

// ChecksumScheme are the checksum types which may trail a stream.
type ChecksumScheme byte

// These are the available checksum algorithms.
const (
	ChecksumSHA2_256 ChecksumScheme = iota + 1
	ChecksumSHA2_512
	ChecksumBLAKE2s
	ChecksumBLAKE2b
	ChecksumSHA3_256
	ChecksumSHA3_512

	// Bypasses ALL checksum verification.
	ChecksumNULL ChecksumScheme = 255
)

func (c ChecksumScheme) String() string {
	switch c {
	case ChecksumSHA2_256:
		return "SHA2-256"
	case ChecksumSHA2_512:
		return "SHA2-512"
	case ChecksumBLAKE2s:
		return "BLAKE2s"
	case ChecksumBLAKE2b:
		return "BLAKE2b"
	case ChecksumSHA3_256:
		return "SHA3-256"
	case ChecksumSHA3_512:
		return "SHA3-512"
	case ChecksumNULL:
		return "NULL"
	}
	return fmt.Sprintf("ChecksumScheme(%d)", byte(c))
}

var checksumSchemes = []ChecksumScheme{
	ChecksumSHA2_256, ChecksumSHA2_512,
	ChecksumBLAKE2s, ChecksumBLAKE2b,
	ChecksumSHA3_256, ChecksumSHA3_512,
	ChecksumNULL,
}

// ParseChecksumScheme maps a scheme name (as printed by String, in any case)
// back to the scheme.
func ParseChecksumScheme(name string) (ChecksumScheme, error) {
	name = strings.TrimSpace(name)
	for _, c := range checksumSchemes {
		if strings.EqualFold(c.String(), name) {
			return c, nil
		}
	}
	return 0, errors.Reason("unknown checksum scheme %q", name).Err()
}

// Valid returns nil iff the ChecksumScheme is valid.
func (c ChecksumScheme) Valid() error {
	switch c {
	case ChecksumSHA2_256:
	case ChecksumSHA2_512:
	case ChecksumBLAKE2s:
	case ChecksumBLAKE2b:
	case ChecksumSHA3_256:
	case ChecksumSHA3_512:
	case ChecksumNULL:
	default:
		return errors.Reason("unknown checksum scheme 0x%x", byte(c)).Err()
	}
	return nil
}

// nullHash is so that ChecksumScheme.Hash returns a valid hash.Hash.
type nullHash struct{}

var _ hash.Hash = nullHash{}

func (nullHash) Reset()                    {}
func (nullHash) BlockSize() int            { return 0 }
func (nullHash) Size() int                 { return 0 }
func (nullHash) Sum(buf []byte) []byte     { return buf }
func (nullHash) Write([]byte) (int, error) { return 0, nil }

// Hash gets the Hash interface associated with this scheme.
func (c ChecksumScheme) Hash() hash.Hash {
	var h hash.Hash
	switch c {
	case ChecksumSHA2_256:
		h = sha256.New()
	case ChecksumSHA2_512:
		h = sha512.New()
	case ChecksumBLAKE2s:
		h, _ = blake2s.New256(nil)
	case ChecksumBLAKE2b:
		h, _ = blake2b.New512(nil)
	case ChecksumSHA3_256:
		h = sha3.New256()
	case ChecksumSHA3_512:
		h = sha3.New512()
	case ChecksumNULL:
		h = nullHash{}
	}
	if h == nil {
		panic(c.Valid())
	}
	if h.Size() > 255 {
		panic("selected checksum has a size over 255?")
	}
	return h
}

// Writer returns a WriteCloser which hashes everything written through it to
// w. Close appends the checksum trailer to w:
//
//	scheme byte | digest | len(digest) byte
//
// Close does not close w.
func (c ChecksumScheme) Writer(w io.Writer) io.WriteCloser {
	h := c.Hash()

	return writeCloseHook{
		io.MultiWriter(w, h),
		func() error {
			buf := make([]byte, 0, h.Size()+2)
			buf = append(buf, byte(c))
			buf = h.Sum(buf)
			buf = append(buf, byte(h.Size()))
			_, err := w.Write(buf)
			return err
		},
	}
}

// ErrMismatchedChecksum is returned when closing a ChecksumReader if the
// checksum doesn't match up.
type ErrMismatchedChecksum struct {
	Scheme  ChecksumScheme
	Nominal []byte
	Actual  []byte
}

func (e *ErrMismatchedChecksum) Error() string {
	return fmt.Sprintf("mismatched checksum (%s): %x expected %x", e.Scheme,
		e.Actual, e.Nominal)
}

// ParseTrailer seeks to the end of r, parses the checksum trailer, and returns
// the pertinent details. r is left at the position it had on entry.
//
// Note that nominalEnd is an offset from the beginning of the FILE (not the
// current position of r!), as defined by io.Seeker.
func ParseTrailer(r io.ReadSeeker) (c ChecksumScheme, h hash.Hash, nominalEnd int64, nominalChecksum []byte, err error) {
	curOffset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return
	}
	if _, err = r.Seek(-1, io.SeekEnd); err != nil {
		err = errors.Annotate(err, "stream too short for a checksum trailer").Err()
		return
	}
	one := []byte{0}
	if _, err = io.ReadFull(r, one); err != nil {
		return
	}

	nominalSize := one[0]
	// +1 for nominalSize (we just read)
	// +nominalSize for checksum
	// +1 for ChecksumScheme
	if nominalEnd, err = r.Seek(-(int64(nominalSize) + 2), io.SeekCurrent); err != nil {
		err = errors.Annotate(err, "checksum trailer claims %d bytes", nominalSize).Err()
		return
	}
	if nominalEnd < curOffset {
		err = errors.Reason("checksum trailer overlaps payload start").Err()
		return
	}
	buf := make([]byte, int(nominalSize)+1)
	if _, err = io.ReadFull(r, buf); err != nil {
		return
	}

	c = ChecksumScheme(buf[0])
	nominalChecksum = buf[1:]
	if err = c.Valid(); err != nil {
		return
	}
	h = c.Hash()
	if int(nominalSize) != h.Size() {
		err = errors.Reason("mismatched hash size (%s): %d expected %d",
			c, nominalSize, h.Size()).Err()
		return
	}

	// finally seek back to where we started
	_, err = r.Seek(curOffset, io.SeekStart)
	return
}

// ChecksumReader returns a ReadCloser which yields the payload preceding the
// checksum trailer of r. It assumes the beginning of the checksum range is the
// current position of r.
//
// The checksum verification happens when the returned reader is Close()'d.
// Any payload which wasn't read by then is drained into the hash first. Close
// does not close r.
func ChecksumReader(r io.ReadSeeker) (ret io.ReadCloser, c ChecksumScheme, err error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return
	}
	c, h, nominalEnd, nominalChecksum, err := ParseTrailer(r)
	if err != nil {
		return
	}

	payload := io.TeeReader(io.LimitReader(r, nominalEnd-start), h)
	ret = readCloseHook{
		payload,
		func() error {
			if _, err := io.Copy(io.Discard, payload); err != nil {
				return errors.Annotate(err, "draining payload").Err()
			}
			if c == ChecksumNULL {
				return nil
			}
			actualChecksum := h.Sum(nil)
			if !bytes.Equal(actualChecksum, nominalChecksum) {
				return &ErrMismatchedChecksum{c, nominalChecksum, actualChecksum}
			}
			return nil
		},
	}
	return
}
