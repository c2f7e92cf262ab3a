// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/woozymasta/lumpkit/dataformat"
)

const (
	// wadHeaderSize is magic + lump count + directory offset.
	wadHeaderSize = 12
	// wadDirEntrySize is offset + size + name[8].
	wadDirEntrySize = 16
	// wadNameSize is the fixed lump name width.
	wadNameSize = 8
)

// wadBackend handles Doom IWAD/PWAD files: a 12-byte header, raw lump
// data, and a trailing directory of 16-byte records.
type wadBackend struct {
	iwad bool
}

func newWADBackend(*Options) Backend {
	return &wadBackend{}
}

func (b *wadBackend) Info() FormatInfo {
	return FormatInfo{
		ID:               FormatWAD,
		Name:             "Doom WAD",
		EntryFormat:      dataformat.IDArchiveWAD,
		Extensions:       []string{"wad"},
		MaxNameLength:    wadNameSize,
		PreferUppercase:  true,
		AllowDuplicates:  true,
		MarkerNamespaces: true,
	}
}

// IsIWAD reports whether the archive is written with the IWAD magic.
func (b *wadBackend) IsIWAD() bool {
	return b.iwad
}

// SetIWAD selects the IWAD magic for writes.
func (b *wadBackend) SetIWAD(iwad bool) {
	b.iwad = iwad
}

func (b *wadBackend) Read(a *Archive, src Source) (*Dir, error) {
	header, err := readHeader(src, wadHeaderSize)
	if err != nil {
		return nil, err
	}

	magic := string(header[0:4])
	if magic != "IWAD" && magic != "PWAD" {
		return nil, fmt.Errorf("%w: magic %q", ErrInvalidHeader, magic)
	}

	count := int64(binary.LittleEndian.Uint32(header[4:8]))
	dirOffset := int64(binary.LittleEndian.Uint32(header[8:12]))
	table, err := readTable(src, dirOffset, count*wadDirEntrySize)
	if err != nil {
		return nil, err
	}

	root := newRoot(a)
	for i := range count {
		rec := table[i*wadDirEntrySize : (i+1)*wadDirEntrySize]
		offset := int64(binary.LittleEndian.Uint32(rec[0:4]))
		size := int64(binary.LittleEndian.Uint32(rec[4:8]))
		name := fixedName(rec[8:16])

		if size > 0 && (offset < wadHeaderSize || offset+size > src.Size) {
			a.logger.Warn("wad lump skipped: data out of bounds",
				slog.String("entry", name),
				slog.Int64("offset", offset),
				slog.Int64("size", size))
			continue
		}

		e := newSourcedEntry(name, int(size))
		e.Props()[PropOffset] = offset
		root.AddEntry(e, -1)
	}

	b.iwad = magic == "IWAD"
	return root, nil
}

func (b *wadBackend) Write(a *Archive, w io.Writer) (Commit, error) {
	entries := a.root.entries
	ow := &offsetWriter{w: w}

	dataSize := int64(0)
	for _, e := range entries {
		dataSize += int64(e.Size())
	}

	magic := []byte("PWAD")
	if b.iwad {
		magic = []byte("IWAD")
	}

	dirOffset := int64(wadHeaderSize) + dataSize
	if dirOffset > math.MaxUint32 {
		return nil, fmt.Errorf("%w: wad data %d bytes", ErrSizeOverflow, dataSize)
	}

	if _, err := ow.Write(magic); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	if err := ow.writeLE(uint32(len(entries)), uint32(dirOffset)); err != nil { //nolint:gosec // bounded above
		return nil, fmt.Errorf("write header: %w", err)
	}

	records := make([]layoutRecord, 0, len(entries))
	for _, e := range entries {
		data, err := a.payload(e)
		if err != nil {
			return nil, err
		}

		records = append(records, layoutRecord{entry: e, offset: ow.off, size: len(data)})
		if _, err := ow.Write(data); err != nil {
			return nil, fmt.Errorf("write lump %s: %w", e.name, err)
		}
	}

	var rec [wadDirEntrySize]byte
	for _, r := range records {
		binary.LittleEndian.PutUint32(rec[0:4], uint32(r.offset)) //nolint:gosec // bounded by dirOffset check
		binary.LittleEndian.PutUint32(rec[4:8], uint32(r.size))   //nolint:gosec // bounded by dirOffset check

		name := r.entry.name
		if len(name) > wadNameSize {
			a.logger.Warn("wad lump name truncated", slog.String("entry", name))
			name = name[:wadNameSize]
		}

		if err := putFixedName(rec[8:16], name); err != nil {
			return nil, err
		}

		if _, err := ow.Write(rec[:]); err != nil {
			return nil, fmt.Errorf("write directory: %w", err)
		}
	}

	return bindLayout(records), nil
}

func (b *wadBackend) LoadEntryData(a *Archive, e *Entry) ([]byte, error) {
	return a.loadAtOffset(e)
}
