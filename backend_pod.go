// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/woozymasta/lumpkit/dataformat"
)

const (
	// podIDSize is the fixed volume id width after the file count.
	podIDSize = 80
	// podHeaderSize is file count + id[80].
	podHeaderSize = 4 + podIDSize
	// podDirEntrySize is name[32] + size + offset.
	podDirEntrySize = 40
	// podNameSize is the fixed backslash path width.
	podNameSize = 32
)

// podBackend handles Terminal Velocity POD files. The whole directory is
// one fixed record array read and written in a single pass; offsets are
// recomputed sequentially on every write.
type podBackend struct {
	id string
}

func newPodBackend(*Options) Backend {
	return &podBackend{}
}

func (b *podBackend) Info() FormatInfo {
	return FormatInfo{
		ID:                  FormatPod,
		Name:                "Terminal Velocity POD",
		EntryFormat:         dataformat.IDArchivePod,
		Extensions:          []string{"pod"},
		NamesHaveExtensions: true,
		SupportsDirs:        true,
	}
}

// ID returns the volume id string.
func (b *podBackend) ID() string {
	return b.id
}

// SetID changes the volume id written to the header.
func (b *podBackend) SetID(id string) {
	b.id = id
}

func (b *podBackend) Read(a *Archive, src Source) (*Dir, error) {
	header, err := readHeader(src, podHeaderSize)
	if err != nil {
		return nil, err
	}

	count := int64(binary.LittleEndian.Uint32(header[0:4]))
	table, err := readTable(src, podHeaderSize, count*podDirEntrySize)
	if err != nil {
		return nil, err
	}

	root := newRoot(a)
	for i := range count {
		rec := table[i*podDirEntrySize : (i+1)*podDirEntrySize]
		p := NormalizePath(fixedName(rec[:podNameSize]))
		size := int64(binary.LittleEndian.Uint32(rec[32:36]))
		offset := int64(binary.LittleEndian.Uint32(rec[36:40]))

		if offset+size > src.Size || p == "" {
			a.logger.Warn("pod entry skipped: invalid record",
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

	b.id = strings.TrimRight(fixedName(header[4:podHeaderSize]), " ")
	return root, nil
}

func (b *podBackend) Write(a *Archive, w io.Writer) (Commit, error) {
	entries := a.root.AllEntries()
	ow := &offsetWriter{w: w}

	var header [podHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(entries))) //nolint:gosec // entry count fits 32 bits
	if err := putFixedName(header[4:], b.id); err != nil {
		return nil, err
	}

	if _, err := ow.Write(header[:]); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	offset := int64(podHeaderSize) + int64(len(entries))*podDirEntrySize
	records := make([]layoutRecord, 0, len(entries))
	var rec [podDirEntrySize]byte
	for _, e := range entries {
		size, err := checkedSize(e, e.Size(), offset)
		if err != nil {
			return nil, err
		}

		name := strings.ReplaceAll(e.Path(), "/", `\`)
		if err := putFixedName(rec[:podNameSize], name); err != nil {
			return nil, err
		}

		binary.LittleEndian.PutUint32(rec[32:36], size)
		binary.LittleEndian.PutUint32(rec[36:40], uint32(offset)) //nolint:gosec // bounded by checkedSize
		if _, err := ow.Write(rec[:]); err != nil {
			return nil, fmt.Errorf("write directory: %w", err)
		}

		records = append(records, layoutRecord{entry: e, offset: offset, size: int(size)})
		offset += int64(size)
	}

	for _, r := range records {
		data, err := a.payload(r.entry)
		if err != nil {
			return nil, err
		}

		if len(data) != r.size {
			return nil, fmt.Errorf("write %s: payload size changed during write", r.entry.Path())
		}

		if _, err := ow.Write(data); err != nil {
			return nil, fmt.Errorf("write %s: %w", r.entry.Path(), err)
		}
	}

	return bindLayout(records), nil
}

func (b *podBackend) LoadEntryData(a *Archive, e *Entry) ([]byte, error) {
	return a.loadAtOffset(e)
}
