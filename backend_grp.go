// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/woozymasta/lumpkit/dataformat"
)

const (
	// grpMagic opens every Build engine group file.
	grpMagic = "KenSilverman"
	// grpHeaderSize is magic[12] + file count.
	grpHeaderSize = 16
	// grpDirEntrySize is name[12] + size.
	grpDirEntrySize = 16
	// grpNameSize is the fixed file name width.
	grpNameSize = 12
)

// grpBackend handles Build engine GRP files: header, name/size table,
// then file data in table order.
type grpBackend struct{}

func newGRPBackend(*Options) Backend {
	return grpBackend{}
}

func (grpBackend) Info() FormatInfo {
	return FormatInfo{
		ID:                  FormatGRP,
		Name:                "Build GRP",
		EntryFormat:         dataformat.IDArchiveGRP,
		Extensions:          []string{"grp"},
		MaxNameLength:       grpNameSize,
		NamesHaveExtensions: true,
		PreferUppercase:     true,
		AllowDuplicates:     true,
	}
}

func (grpBackend) Read(a *Archive, src Source) (*Dir, error) {
	header, err := readHeader(src, grpHeaderSize)
	if err != nil {
		return nil, err
	}

	if string(header[:12]) != grpMagic {
		return nil, ErrInvalidHeader
	}

	count := int64(binary.LittleEndian.Uint32(header[12:16]))
	table, err := readTable(src, grpHeaderSize, count*grpDirEntrySize)
	if err != nil {
		return nil, err
	}

	root := newRoot(a)
	offset := int64(grpHeaderSize) + count*grpDirEntrySize
	for i := range count {
		rec := table[i*grpDirEntrySize : (i+1)*grpDirEntrySize]
		name := fixedName(rec[:grpNameSize])
		size := int64(binary.LittleEndian.Uint32(rec[12:16]))

		if offset+size > src.Size {
			// Data is sequential, so nothing after a truncated file can be located.
			a.logger.Warn("grp file truncated", slog.String("entry", name), slog.Int64("size", size))
			break
		}

		e := newSourcedEntry(name, int(size))
		e.Props()[PropOffset] = offset
		root.AddEntry(e, -1)
		offset += size
	}

	return root, nil
}

func (grpBackend) Write(a *Archive, w io.Writer) (Commit, error) {
	entries := a.root.entries
	ow := &offsetWriter{w: w}

	if _, err := io.WriteString(ow, grpMagic); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	if err := ow.writeLE(uint32(len(entries))); err != nil { //nolint:gosec // entry count fits 32 bits
		return nil, fmt.Errorf("write header: %w", err)
	}

	offset := int64(grpHeaderSize) + int64(len(entries))*grpDirEntrySize
	var rec [grpDirEntrySize]byte
	for _, e := range entries {
		size, err := checkedSize(e, e.Size(), offset)
		if err != nil {
			return nil, err
		}

		if err := putFixedName(rec[:grpNameSize], e.name); err != nil {
			return nil, err
		}

		binary.LittleEndian.PutUint32(rec[12:16], size)
		if _, err := ow.Write(rec[:]); err != nil {
			return nil, fmt.Errorf("write directory: %w", err)
		}

		offset += int64(size)
	}

	records := make([]layoutRecord, 0, len(entries))
	for _, e := range entries {
		data, err := a.payload(e)
		if err != nil {
			return nil, err
		}

		if len(data) != e.Size() {
			return nil, fmt.Errorf("write %s: payload size changed during write", e.Path())
		}

		records = append(records, layoutRecord{entry: e, offset: ow.off, size: len(data)})
		if _, err := ow.Write(data); err != nil {
			return nil, fmt.Errorf("write %s: %w", e.name, err)
		}
	}

	return bindLayout(records), nil
}

func (grpBackend) LoadEntryData(a *Archive, e *Entry) ([]byte, error) {
	return a.loadAtOffset(e)
}
