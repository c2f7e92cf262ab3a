// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Entry property keys used by container backends.
const (
	// PropOffset is the payload offset inside the archive source (int64).
	PropOffset = "offset"
	// PropPackedSize is the stored payload size when it differs from the entry size (int64).
	PropPackedSize = "packed_size"
)

// layoutRecord is one entry's placement in a freshly written container.
type layoutRecord struct {
	entry  *Entry
	offset int64
	size   int
}

// bindLayout returns a Commit pointing entries at their new offsets.
func bindLayout(records []layoutRecord) Commit {
	return func(Source) error {
		for _, rec := range records {
			rec.entry.Props()[PropOffset] = rec.offset
			rec.entry.size = rec.size
			rec.entry.sourced = true
		}

		return nil
	}
}

// payload returns entry bytes without caching a load into the entry.
func (a *Archive) payload(e *Entry) ([]byte, error) {
	if e.loaded {
		return e.data.Bytes(), nil
	}

	if e.size == 0 {
		return nil, nil
	}

	if !e.sourced {
		return nil, fmt.Errorf("%s: %w", e.Path(), ErrNoSource)
	}

	return a.backend.LoadEntryData(a, e)
}

// loadAtOffset reads e's payload using its offset property.
func (a *Archive) loadAtOffset(e *Entry) ([]byte, error) {
	off, ok := prop[int64](e, PropOffset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", e.Path(), ErrNoSource)
	}

	return a.readSource(off, int64(e.size))
}

// readHeader reads n bytes at offset 0, mapping short input to ErrInvalidHeader.
func readHeader(src Source, n int) ([]byte, error) {
	if src.Size < int64(n) {
		return nil, fmt.Errorf("%w: short header", ErrInvalidHeader)
	}

	header := make([]byte, n)
	if _, err := src.ReaderAt.ReadAt(header, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}

	return header, nil
}

// readTable reads a directory table, validating it against source bounds.
func readTable(src Source, offset int64, size int64) ([]byte, error) {
	if offset < 0 || size < 0 || offset+size > src.Size || offset+size < offset {
		return nil, fmt.Errorf("%w: directory [%d+%d] of %d", ErrInvalidEntryOffset, offset, size, src.Size)
	}

	table := make([]byte, size)
	if n, err := src.ReaderAt.ReadAt(table, offset); err != nil && (!errors.Is(err, io.EOF) || int64(n) != size) {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	return table, nil
}

// fixedName decodes a NUL-padded name field.
func fixedName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}

	return string(field)
}

// putFixedName writes name into a NUL-padded field.
func putFixedName(field []byte, name string) error {
	if len(name) > len(field) {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrFileNameTooLong, name, len(field))
	}

	clear(field)
	copy(field, name)
	return nil
}

// checkedSize validates a payload size for 32-bit container fields.
func checkedSize(e *Entry, size int, offset int64) (uint32, error) {
	if uint64(size) > math.MaxUint32 || offset+int64(size) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s", ErrSizeOverflow, e.Path())
	}

	return uint32(size), nil //nolint:gosec // bounded above
}

// offsetWriter tracks bytes written to w.
type offsetWriter struct {
	w   io.Writer
	off int64
}

func (ow *offsetWriter) Write(p []byte) (int, error) {
	n, err := ow.w.Write(p)
	ow.off += int64(n)
	return n, err
}

// writeLE writes little-endian fixed-size values.
func (ow *offsetWriter) writeLE(values ...any) error {
	for _, v := range values {
		if err := binary.Write(ow, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	return nil
}
