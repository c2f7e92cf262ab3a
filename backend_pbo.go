// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/woozymasta/lumpkit/dataformat"
)

// PBO entry property keys.
const (
	// PropPBOMime is the stored PBO mime type (MimeType).
	PropPBOMime = "pbo_mime"
	// PropTimestamp is the stored unix timestamp (uint32).
	PropTimestamp = "timestamp"
)

// pboBackend handles Bohemia Interactive PBO files: a "Vers" header
// record with key/value pairs, a NUL-terminated index, payloads, and an
// optional SHA1 trailer. Payloads may be LZSS-compressed.
type pboBackend struct {
	headers    []HeaderPair
	opts       PBOOptions
	trailer    [pboShaSize]byte
	hasTrailer bool
}

func newPBOBackend(opts *Options) Backend {
	b := &pboBackend{}
	if opts != nil {
		b.opts = opts.PBO
		b.headers = slices.Clone(opts.PBO.Headers)
	}

	b.opts.applyDefaults()
	return b
}

func (b *pboBackend) Info() FormatInfo {
	return FormatInfo{
		ID:                  FormatPBO,
		Name:                "Bohemia PBO",
		EntryFormat:         dataformat.IDArchivePBO,
		Extensions:          []string{"pbo", "ebo", "xbo", "ifa"},
		MaxNameLength:       pboMaxNameLen,
		NamesHaveExtensions: true,
		SupportsDirs:        true,
	}
}

// Headers returns a copy of the archive headers in stored order.
func (b *pboBackend) Headers() []HeaderPair {
	return slices.Clone(b.headers)
}

// SetHeaders replaces the headers written on the next save.
func (b *pboBackend) SetHeaders(headers []HeaderPair) {
	b.headers = slices.Clone(headers)
}

// Prefix returns the "prefix" header value, if any.
func (b *pboBackend) Prefix() string {
	for _, h := range b.headers {
		if strings.EqualFold(strings.TrimSpace(h.Key), "prefix") {
			return h.Value
		}
	}

	return ""
}

// Trailer returns the SHA1 trailer seen on the last read or write.
func (b *pboBackend) Trailer() ([pboShaSize]byte, bool) {
	return b.trailer, b.hasTrailer
}

func (b *pboBackend) Read(a *Archive, src Source) (*Dir, error) {
	headers, indexOffset, err := parsePBOHeaders(src.ReaderAt)
	if err != nil {
		return nil, err
	}

	records, dataStart, err := parsePBOIndex(src.ReaderAt, indexOffset, src.Size)
	if err != nil {
		return nil, err
	}

	if err := resolveEntryOffsets(records, dataStart, src.Size, b.opts.OffsetMode); err != nil {
		return nil, err
	}

	if b.opts.JunkFilter {
		records = filterJunkRecords(records)
	}

	root := newRoot(a)
	for i := range records {
		rec := &records[i]
		p := NormalizePath(rec.path)
		if p == "" {
			a.logger.Warn("pbo entry skipped: empty path", slog.Int("index", i))
			continue
		}

		dirPath, name := splitPath(p)
		dir, _ := root.AddChild(dirPath)
		e := newSourcedEntry(name, int(rec.unpackedSize()))
		e.Props()[PropOffset] = int64(rec.offset)
		e.Props()[PropPackedSize] = int64(rec.dataSize)
		e.Props()[PropPBOMime] = rec.mime
		e.Props()[PropTimestamp] = rec.timestamp
		dir.AddEntry(e, -1)
	}

	b.headers = headers
	b.trailer, b.hasTrailer = readTrailer(src.ReaderAt, src.Size)
	return root, nil
}

// storedRecord rebuilds the index record of a sourced entry from its props.
func storedRecord(e *Entry) (pboRecord, bool) {
	off, ok := prop[int64](e, PropOffset)
	if !ok {
		return pboRecord{}, false
	}

	packed, ok := prop[int64](e, PropPackedSize)
	if !ok {
		packed = int64(e.size)
	}

	mime, _ := prop[MimeType](e, PropPBOMime)
	ts, _ := prop[uint32](e, PropTimestamp)
	rec := pboRecord{
		offset:    uint32(off),    //nolint:gosec // read from a 32-bit field
		dataSize:  uint32(packed), //nolint:gosec // read from a 32-bit field
		timestamp: ts,
		mime:      mime,
	}

	if mime == MimeCompress || int64(e.size) > packed {
		rec.originalSize = uint32(e.size) //nolint:gosec // read from a 32-bit field
	}

	return rec, true
}

func (b *pboBackend) LoadEntryData(a *Archive, e *Entry) ([]byte, error) {
	rec, ok := storedRecord(e)
	if !ok {
		return nil, fmt.Errorf("%s: %w", e.Path(), ErrNoSource)
	}

	if rec.mime == MimeEncoded {
		return nil, fmt.Errorf("%s: encrypted entry: %w", e.Path(), ErrUnsupported)
	}

	raw, err := a.readSource(int64(rec.offset), int64(rec.dataSize))
	if err != nil {
		return nil, err
	}

	if !rec.compressed() {
		return raw, nil
	}

	data, err := decompressLZSS(raw, int(rec.originalSize))
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", e.Path(), err)
	}

	return data, nil
}

// pboPlanned is one entry prepared for writing: its record and stored bytes.
type pboPlanned struct {
	entry  *Entry
	stored []byte
	record pboRecord
}

func (b *pboBackend) Write(a *Archive, w io.Writer) (Commit, error) {
	matcher, err := newCompressMatcher(b.opts.Compress, b.opts.CompressMatcherOptions)
	if err != nil {
		return nil, err
	}

	entries := a.root.AllEntries()
	plan := make([]pboPlanned, 0, len(entries))
	for _, e := range entries {
		p, err := b.planEntry(a, e, matcher)
		if err != nil {
			return nil, err
		}

		plan = append(plan, p)
	}

	bw := bufio.NewWriterSize(w, 64*1024)
	tw := newTrailerWriter(bw, !b.opts.SkipTrailer)
	ow := &offsetWriter{w: tw}
	if err := b.writeHeaders(ow); err != nil {
		return nil, err
	}

	indexSize := int64(1 + pboRecordFieldsSize)
	for i := range plan {
		indexSize += int64(len(plan[i].record.path)) + 1 + pboRecordFieldsSize
	}

	offset := ow.off + indexSize
	var fields [pboRecordFieldsSize]byte
	for i := range plan {
		rec := &plan[i].record
		if offset+int64(rec.dataSize) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: entry %s would exceed 4 GiB", ErrSizeOverflow, rec.path)
		}

		rec.offset = uint32(offset) //nolint:gosec // bounded above
		offset += int64(rec.dataSize)

		if _, err := io.WriteString(ow, rec.path+"\x00"); err != nil {
			return nil, fmt.Errorf("write index: %w", err)
		}

		binary.LittleEndian.PutUint32(fields[0:4], uint32(rec.mime))
		binary.LittleEndian.PutUint32(fields[4:8], rec.originalSize)
		// Packers conventionally leave the index offset zero; readers derive it.
		binary.LittleEndian.PutUint32(fields[8:12], 0)
		binary.LittleEndian.PutUint32(fields[12:16], rec.timestamp)
		binary.LittleEndian.PutUint32(fields[16:20], rec.dataSize)
		if _, err := ow.Write(fields[:]); err != nil {
			return nil, fmt.Errorf("write index: %w", err)
		}
	}

	var terminator [1 + pboRecordFieldsSize]byte
	if _, err := ow.Write(terminator[:]); err != nil {
		return nil, fmt.Errorf("write index terminator: %w", err)
	}

	for i := range plan {
		if _, err := ow.Write(plan[i].stored); err != nil {
			return nil, fmt.Errorf("write %s: %w", plan[i].record.path, err)
		}
	}

	if err := tw.finish(); err != nil {
		return nil, fmt.Errorf("write SHA1 trailer: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	var trailer [pboShaSize]byte
	hasTrailer := tw.h != nil
	if hasTrailer {
		copy(trailer[:], tw.h.Sum(nil))
	}

	return func(Source) error {
		for i := range plan {
			p := &plan[i]
			p.entry.size = int(p.record.unpackedSize())
			p.entry.sourced = true
			props := p.entry.Props()
			props[PropOffset] = int64(p.record.offset)
			props[PropPackedSize] = int64(p.record.dataSize)
			props[PropPBOMime] = p.record.mime
			props[PropTimestamp] = p.record.timestamp
		}

		b.trailer, b.hasTrailer = trailer, hasTrailer
		return nil
	}, nil
}

// writeHeaders writes the "Vers" record, key/value headers, and the empty key terminator.
func (b *pboBackend) writeHeaders(w io.Writer) error {
	var header [pboHeaderSize]byte
	binary.LittleEndian.PutUint32(header[1:5], uint32(MimeHeader))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, h := range b.headers {
		value := h.Value
		if strings.EqualFold(strings.TrimSpace(h.Key), "prefix") {
			value = NormalizePrefixHeader(value)
		}

		if _, err := io.WriteString(w, h.Key+"\x00"+value+"\x00"); err != nil {
			return fmt.Errorf("write header %s: %w", h.Key, err)
		}
	}

	if _, err := w.Write([]byte{0}); err != nil {
		return fmt.Errorf("write header terminator: %w", err)
	}

	return nil
}

// planEntry chooses stored bytes for e: raw source bytes for untouched
// entries, otherwise the payload, LZSS-packed when the rules select it.
func (b *pboBackend) planEntry(a *Archive, e *Entry, matcher *compressMatcher) (pboPlanned, error) {
	path := strings.ReplaceAll(e.Path(), "/", `\`)
	if len(path) > pboMaxNameLen {
		return pboPlanned{}, fmt.Errorf("%w: %s", ErrFileNameTooLong, path)
	}

	if e.state == StateUnmodified && e.sourced && !e.loaded {
		if rec, ok := storedRecord(e); ok {
			raw, err := a.readSource(int64(rec.offset), int64(rec.dataSize))
			if err != nil {
				return pboPlanned{}, err
			}

			rec.path = path
			return pboPlanned{entry: e, record: rec, stored: raw}, nil
		}
	}

	data, err := a.payload(e)
	if err != nil {
		return pboPlanned{}, err
	}

	if int64(len(data)) > math.MaxUint32 {
		return pboPlanned{}, fmt.Errorf("%w: %s", ErrEntryTooLarge, path)
	}

	ts, ok := prop[uint32](e, PropTimestamp)
	if !ok || e.state != StateUnmodified {
		ts = timeToUint32(time.Now())
	}

	rec := pboRecord{
		path:      path,
		dataSize:  uint32(len(data)), //nolint:gosec // bounded above
		timestamp: ts,
		mime:      MimeNil,
	}

	if shouldCompress(b.opts, matcher, e.Path(), len(data)) {
		packed, ok, err := compressLZSS(data)
		if err != nil {
			return pboPlanned{}, fmt.Errorf("compress %s: %w", path, err)
		}

		if ok {
			rec.mime = MimeCompress
			rec.originalSize = rec.dataSize
			rec.dataSize = uint32(len(packed)) //nolint:gosec // smaller than data
			return pboPlanned{entry: e, record: rec, stored: packed}, nil
		}
	}

	return pboPlanned{entry: e, record: rec, stored: data}, nil
}
