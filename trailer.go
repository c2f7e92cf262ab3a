// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"crypto/sha1" //nolint:gosec // Trailer format requires SHA1.
	"hash"
	"io"
)

// trailerWriter hashes everything written through it so a PBO SHA1
// trailer (0x00 + 20-byte digest) can be appended at the end.
type trailerWriter struct {
	w io.Writer
	h hash.Hash
}

// newTrailerWriter wraps w; a disabled writer passes bytes through unhashed.
func newTrailerWriter(w io.Writer, enabled bool) *trailerWriter {
	tw := &trailerWriter{w: w}
	if enabled {
		tw.h = sha1.New() //nolint:gosec // Trailer format requires SHA1.
	}

	return tw
}

func (tw *trailerWriter) Write(p []byte) (int, error) {
	n, err := tw.w.Write(p)
	if tw.h != nil {
		_, _ = tw.h.Write(p[:n])
	}

	return n, err
}

// finish appends the trailer when hashing is enabled.
func (tw *trailerWriter) finish() error {
	if tw.h == nil {
		return nil
	}

	var trailer [1 + pboShaSize]byte
	copy(trailer[1:], tw.h.Sum(nil))
	_, err := tw.w.Write(trailer[:])
	return err
}

// readTrailer returns the stored SHA1 trailer when src ends with one.
func readTrailer(ra io.ReaderAt, size int64) ([pboShaSize]byte, bool) {
	var tail [1 + pboShaSize]byte
	var sum [pboShaSize]byte
	if size < int64(len(tail)) {
		return sum, false
	}

	if _, err := ra.ReadAt(tail[:], size-int64(len(tail))); err != nil || tail[0] != 0 {
		return sum, false
	}

	copy(sum[:], tail[1:])
	return sum, true
}
