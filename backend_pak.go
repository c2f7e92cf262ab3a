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
	// pakHeaderSize is magic + directory offset + directory size.
	pakHeaderSize = 12
	// pakDirEntrySize is name[56] + offset + size.
	pakDirEntrySize = 64
	// pakNameSize is the fixed path width including the NUL terminator.
	pakNameSize = 56
)

// pakBackend handles Quake PAK files with slash-separated paths.
type pakBackend struct{}

func newPakBackend(*Options) Backend {
	return pakBackend{}
}

func (pakBackend) Info() FormatInfo {
	return FormatInfo{
		ID:                  FormatPak,
		Name:                "Quake PAK",
		EntryFormat:         dataformat.IDArchivePak,
		Extensions:          []string{"pak"},
		NamesHaveExtensions: true,
		SupportsDirs:        true,
	}
}

func (pakBackend) Read(a *Archive, src Source) (*Dir, error) {
	header, err := readHeader(src, pakHeaderSize)
	if err != nil {
		return nil, err
	}

	if string(header[:4]) != "PACK" {
		return nil, ErrInvalidHeader
	}

	dirOffset := int64(binary.LittleEndian.Uint32(header[4:8]))
	dirSize := int64(binary.LittleEndian.Uint32(header[8:12]))
	if dirSize%pakDirEntrySize != 0 {
		return nil, fmt.Errorf("%w: directory size %d", ErrInvalidHeader, dirSize)
	}

	table, err := readTable(src, dirOffset, dirSize)
	if err != nil {
		return nil, err
	}

	root := newRoot(a)
	for i := range dirSize / pakDirEntrySize {
		rec := table[i*pakDirEntrySize : (i+1)*pakDirEntrySize]
		p := NormalizePath(fixedName(rec[:pakNameSize]))
		offset := int64(binary.LittleEndian.Uint32(rec[56:60]))
		size := int64(binary.LittleEndian.Uint32(rec[60:64]))

		if offset+size > src.Size || p == "" {
			a.logger.Warn("pak entry skipped: invalid record",
				slog.String("entry", p),
				slog.Int64("offset", offset),
				slog.Int64("size", size))
			continue
		}

		dirPath, name := splitPath(p)
		dir, _ := root.AddChild(dirPath)
		e := newSourcedEntry(name, int(size))
		e.Props()[PropOffset] = offset
		dir.AddEntry(e, -1)
	}

	return root, nil
}

func (pakBackend) Write(a *Archive, w io.Writer) (Commit, error) {
	entries := a.root.AllEntries()
	ow := &offsetWriter{w: w}

	dataSize := int64(0)
	for _, e := range entries {
		dataSize += int64(e.Size())
	}

	dirOffset := int64(pakHeaderSize) + dataSize
	dirSize := int64(len(entries)) * pakDirEntrySize
	if dirOffset+dirSize > math.MaxUint32 {
		return nil, fmt.Errorf("%w: pak data %d bytes", ErrSizeOverflow, dataSize)
	}

	if _, err := io.WriteString(ow, "PACK"); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	if err := ow.writeLE(uint32(dirOffset), uint32(dirSize)); err != nil { //nolint:gosec // bounded above
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
			return nil, fmt.Errorf("write %s: %w", e.Path(), err)
		}
	}

	var rec [pakDirEntrySize]byte
	for _, r := range records {
		// Leave room for the NUL terminator.
		if err := putFixedName(rec[:pakNameSize-1], r.entry.Path()); err != nil {
			return nil, err
		}
		rec[pakNameSize-1] = 0

		binary.LittleEndian.PutUint32(rec[56:60], uint32(r.offset)) //nolint:gosec // bounded above
		binary.LittleEndian.PutUint32(rec[60:64], uint32(r.size))   //nolint:gosec // bounded above
		if _, err := ow.Write(rec[:]); err != nil {
			return nil, fmt.Errorf("write directory: %w", err)
		}
	}

	return bindLayout(records), nil
}

func (pakBackend) LoadEntryData(a *Archive, e *Entry) ([]byte, error) {
	return a.loadAtOffset(e)
}
