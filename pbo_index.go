// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"
)

const (
	// pboHeaderSize is the fixed "Vers" record opening every PBO.
	pboHeaderSize = 21
	// pboRecordFieldsSize is mime + original size + offset + timestamp + data size.
	pboRecordFieldsSize = 20
	// pboShaSize is the SHA1 digest size in the trailer.
	pboShaSize = 20
	// pboMaxNameLen is the longest accepted entry path.
	pboMaxNameLen = 512
	// pboScanChunkSize is a chunk size used by the null-terminated string scanner.
	pboScanChunkSize = 256
	// pboIndexBufferSize is a sequential read buffer for index parsing.
	pboIndexBufferSize = 64 * 1024
)

// pboIndexReaderPool reuses buffered readers for sequential index parsing.
var pboIndexReaderPool = sync.Pool{
	New: func() any {
		return bufio.NewReaderSize(bytes.NewReader(nil), pboIndexBufferSize)
	},
}

// pboRecord is one parsed or planned PBO index record.
type pboRecord struct {
	path         string
	offset       uint32
	dataSize     uint32
	originalSize uint32
	timestamp    uint32
	mime         MimeType
}

// compressed reports whether the stored payload is LZSS-packed.
func (r *pboRecord) compressed() bool {
	return r.mime == MimeCompress || (r.originalSize != 0 && r.dataSize < r.originalSize)
}

// unpackedSize returns the entry size after decompression.
func (r *pboRecord) unpackedSize() uint32 {
	if r.compressed() {
		return r.originalSize
	}

	return r.dataSize
}

// parsePBOHeaders parses the fixed header and key-value pairs and returns the index offset.
func parsePBOHeaders(ra io.ReaderAt) ([]HeaderPair, int64, error) {
	var header [pboHeaderSize]byte
	if _, err := ra.ReadAt(header[:], 0); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%w: short header", ErrInvalidHeader)
		}

		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	if header[0] != 0 || MimeType(binary.LittleEndian.Uint32(header[1:5])) != MimeHeader {
		return nil, 0, ErrInvalidHeader
	}

	headers := make([]HeaderPair, 0, 4)
	off := int64(pboHeaderSize)
	for {
		key, n, err := readNullTerminated(ra, off)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: header key: %w", ErrInvalidHeader, err)
		}

		off += int64(n)
		if key == "" {
			break
		}

		value, n, err := readNullTerminated(ra, off)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: header value: %w", ErrInvalidHeader, err)
		}

		off += int64(n)
		headers = append(headers, HeaderPair{Key: key, Value: value})
	}

	return headers, off, nil
}

// parsePBOIndex parses index records and returns them with the payload start offset.
func parsePBOIndex(ra io.ReaderAt, indexOffset int64, size int64) ([]pboRecord, int64, error) {
	if indexOffset >= size {
		return nil, 0, fmt.Errorf("%w: missing index", ErrInvalidHeader)
	}

	sr := io.NewSectionReader(ra, indexOffset, size-indexOffset)
	br := pboIndexReaderPool.Get().(*bufio.Reader) //nolint:forcetypeassert // pool contains only *bufio.Reader
	br.Reset(sr)
	defer pboIndexReaderPool.Put(br)

	off := indexOffset
	records := make([]pboRecord, 0, estimateRecordCapacity(size-indexOffset))
	var spill []byte
	for {
		name, nameBytes, err := readNullTerminatedBuffered(br, &spill)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: entry name: %w", ErrInvalidHeader, err)
		}

		off += int64(nameBytes)
		var fields [pboRecordFieldsSize]byte
		if _, err := io.ReadFull(br, fields[:]); err != nil {
			return nil, 0, fmt.Errorf("%w: entry fields: %w", ErrInvalidHeader, err)
		}

		off += pboRecordFieldsSize
		rec := pboRecord{
			path:         name,
			mime:         MimeType(binary.LittleEndian.Uint32(fields[0:4])),
			originalSize: binary.LittleEndian.Uint32(fields[4:8]),
			offset:       binary.LittleEndian.Uint32(fields[8:12]),
			timestamp:    binary.LittleEndian.Uint32(fields[12:16]),
			dataSize:     binary.LittleEndian.Uint32(fields[16:20]),
		}

		if name == "" {
			// Terminator record; its fields may carry junk in some packers.
			return records, off, nil
		}

		if len(name) > pboMaxNameLen {
			return nil, 0, ErrFileNameTooLong
		}

		records = append(records, rec)
	}
}

// estimateRecordCapacity returns a conservative initial capacity for parsed records.
func estimateRecordCapacity(remainingBytes int64) int {
	const (
		minCap = 128
		maxCap = 8192
		// remainingBytes includes the payload region.
		avgEntryBytes = 512
	)

	estimated := remainingBytes / avgEntryBytes
	switch {
	case estimated < minCap:
		return minCap
	case estimated > maxCap:
		return maxCap
	default:
		return int(estimated)
	}
}

// resolveEntryOffsets applies the selected offset policy and validates payload bounds.
func resolveEntryOffsets(records []pboRecord, dataStart int64, totalSize int64, mode OffsetMode) error {
	switch mode {
	case OffsetModeSequential:
		if err := assignSequentialOffsets(records, dataStart); err != nil {
			return err
		}
	case OffsetModeStoredCompat:
		usedStored, err := tryAssignStoredOffsets(records, dataStart, totalSize)
		if err != nil || !usedStored {
			if err := assignSequentialOffsets(records, dataStart); err != nil {
				return err
			}
		}
	case OffsetModeStoredStrict:
		usedStored, err := tryAssignStoredOffsets(records, dataStart, totalSize)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEntryOffset, err)
		}
		if !usedStored {
			if err := assignSequentialOffsets(records, dataStart); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown offset mode %q", ErrInvalidEntryOffset, mode)
	}

	return validateResolvedOffsets(records, dataStart, totalSize)
}

// assignSequentialOffsets derives payload offsets from dataStart and previous record sizes.
func assignSequentialOffsets(records []pboRecord, dataStart int64) error {
	if dataStart < 0 || uint64(dataStart) > uint64(math.MaxUint32) {
		return fmt.Errorf("%w: data start offset %d", ErrSizeOverflow, dataStart)
	}

	current := uint32(dataStart) //nolint:gosec // bounded above
	for i := range records {
		records[i].offset = current
		if uint64(records[i].dataSize) > uint64(math.MaxUint32-current) {
			return fmt.Errorf("%w: entry %s size would exceed 4 GiB", ErrSizeOverflow, records[i].path)
		}

		current += records[i].dataSize
	}

	return nil
}

// tryAssignStoredOffsets tries to apply stored non-zero index offsets in relative or absolute form.
func tryAssignStoredOffsets(records []pboRecord, dataStart int64, totalSize int64) (bool, error) {
	hasStored := false
	for i := range records {
		if records[i].offset != 0 {
			hasStored = true
			break
		}
	}

	if !hasStored {
		return false, nil
	}

	// A first offset below dataStart usually means relative offsets.
	absoluteFirst := int64(records[0].offset) >= dataStart
	for _, absolute := range []bool{absoluteFirst, !absoluteFirst} {
		candidate := append([]pboRecord(nil), records...)
		if err := assignStoredOffsets(candidate, dataStart, totalSize, absolute); err == nil {
			copy(records, candidate)
			return true, nil
		}
	}

	return false, errors.New("stored offsets are malformed")
}

// assignStoredOffsets applies stored offsets as absolute or relative-to-dataStart values.
func assignStoredOffsets(records []pboRecord, dataStart int64, totalSize int64, absolute bool) error {
	prev := int64(-1)
	adjust := dataStart
	if absolute {
		adjust = 0
	}

	for i := range records {
		resolved := int64(records[i].offset) + adjust
		if resolved < dataStart {
			return fmt.Errorf("entry %s offset before data start", records[i].path)
		}
		if uint64(resolved) > uint64(math.MaxUint32) {
			return fmt.Errorf("entry %s offset out of range", records[i].path)
		}
		if resolved < prev {
			return fmt.Errorf("entry %s offset is not monotonic", records[i].path)
		}

		end := resolved + int64(records[i].dataSize)
		if end > totalSize {
			return fmt.Errorf("entry %s payload out of file bounds", records[i].path)
		}

		records[i].offset = uint32(resolved) //nolint:gosec // bounded above
		prev = resolved
	}

	return nil
}

// validateResolvedOffsets validates final offsets regardless of policy branch.
func validateResolvedOffsets(records []pboRecord, dataStart int64, totalSize int64) error {
	for i := range records {
		offset := int64(records[i].offset)
		if offset < dataStart {
			return fmt.Errorf("%w: entry %s offset before data start", ErrInvalidEntryOffset, records[i].path)
		}

		if end := offset + int64(records[i].dataSize); end > totalSize {
			return fmt.Errorf("%w: entry %s payload out of file bounds", ErrInvalidEntryOffset, records[i].path)
		}
	}

	return nil
}

// readNullTerminatedBuffered reads a NUL-terminated string from a buffered stream.
func readNullTerminatedBuffered(br *bufio.Reader, spill *[]byte) (string, int, error) {
	consumed := 0
	*spill = (*spill)[:0]

	for {
		chunk, err := br.ReadSlice(0)
		consumed += len(chunk)

		if errors.Is(err, bufio.ErrBufferFull) {
			*spill = append(*spill, chunk...)
			continue
		}

		if err != nil {
			return "", 0, err
		}

		segment := chunk[:len(chunk)-1]
		if len(*spill) == 0 {
			return string(segment), consumed, nil
		}

		*spill = append(*spill, segment...)
		return string(*spill), consumed, nil
	}
}

// readNullTerminated reads a zero-terminated string from ReaderAt starting at offset.
func readNullTerminated(ra io.ReaderAt, offset int64) (string, int, error) {
	total := 0
	var out []byte

	var chunk [pboScanChunkSize]byte
	for {
		n, err := ra.ReadAt(chunk[:], offset+int64(total))
		if n > 0 {
			part := chunk[:n]
			if idx := bytes.IndexByte(part, 0); idx >= 0 {
				consumed := total + idx + 1
				if len(out) == 0 {
					return string(part[:idx]), consumed, nil
				}

				out = append(out, part[:idx]...)
				return string(out), consumed, nil
			}

			out = append(out, part...)
			total += n
		}

		if err != nil {
			return "", 0, err
		}

		if n == 0 {
			return "", 0, io.EOF
		}
	}
}

// timeToUint32 converts a time to a clamped unix timestamp.
func timeToUint32(t time.Time) uint32 {
	u := t.Unix()
	if u < 0 {
		return 0
	}

	if u > math.MaxUint32 {
		return math.MaxUint32
	}

	return uint32(u)
}
