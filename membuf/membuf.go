// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

// Package membuf provides a growable, seekable byte buffer used to hold
// archive and entry payloads in memory.
package membuf

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// Sentinel errors for buffer operations.
var (
	// ErrNegativeOffset means a seek or read position resolved below zero.
	ErrNegativeOffset = errors.New("negative buffer offset")
	// ErrOutOfRange means a requested sub-range exceeds buffer bounds.
	ErrOutOfRange = errors.New("range exceeds buffer bounds")
)

// Buffer is a growable byte buffer with a read/write cursor.
// The zero value is an empty buffer ready to use.
type Buffer struct {
	data []byte
	pos  int64
}

// New returns an empty buffer with reserved capacity.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}

	return &Buffer{data: make([]byte, 0, capacity)}
}

// FromBytes returns a buffer holding a copy of data.
func FromBytes(data []byte) *Buffer {
	b := &Buffer{data: make([]byte, len(data))}
	copy(b.data, data)
	return b
}

// Bytes returns the buffer content. The slice aliases internal storage
// and is valid until the next mutating call.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}

	return b.data
}

// Len returns the content size in bytes.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}

	return len(b.data)
}

// Size returns the content size as int64.
func (b *Buffer) Size() int64 {
	return int64(b.Len())
}

// Empty reports whether the buffer holds no data.
func (b *Buffer) Empty() bool {
	return b.Len() == 0
}

// Tell returns the current cursor position.
func (b *Buffer) Tell() int64 {
	return b.pos
}

// Clear drops content and rewinds the cursor.
func (b *Buffer) Clear() {
	b.data = b.data[:0]
	b.pos = 0
}

// Reserve grows capacity to at least n bytes without changing content.
func (b *Buffer) Reserve(n int) {
	if n <= cap(b.data) {
		return
	}

	grown := make([]byte, len(b.data), n)
	copy(grown, b.data)
	b.data = grown
}

// Resize changes content size. New bytes are zeroed; the cursor is clamped.
func (b *Buffer) Resize(n int) {
	if n < 0 {
		n = 0
	}

	if n <= len(b.data) {
		b.data = b.data[:n]
	} else {
		b.Reserve(n)
		extra := b.data[len(b.data):n]
		clear(extra)
		b.data = b.data[:n]
	}

	if b.pos > int64(n) {
		b.pos = int64(n)
	}
}

// Import replaces content with a copy of data and rewinds the cursor.
func (b *Buffer) Import(data []byte) {
	b.data = append(b.data[:0], data...)
	b.pos = 0
}

// ImportReader replaces content with everything read from r.
func (b *Buffer) ImportReader(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("import reader: %w", err)
	}

	b.data = data
	b.pos = 0
	return nil
}

// ImportFile replaces content with the whole file at path.
func (b *Buffer) ImportFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import file: %w", err)
	}

	b.data = data
	b.pos = 0
	return nil
}

// ImportFileRange replaces content with size bytes from path starting at offset.
func (b *Buffer) ImportFileRange(path string, offset int64, size int) error {
	if offset < 0 || size < 0 {
		return ErrNegativeOffset
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("import file range: %w", err)
	}
	defer func() { _ = f.Close() }()

	data := make([]byte, size)
	if _, err := f.ReadAt(data, offset); err != nil {
		return fmt.Errorf("import file range %s [%d+%d]: %w", path, offset, size, err)
	}

	b.data = data
	b.pos = 0
	return nil
}

// ExportFile writes the whole content to path, truncating any existing file.
func (b *Buffer) ExportFile(path string) error {
	if err := os.WriteFile(path, b.data, 0o644); err != nil { //nolint:gosec // exported entries are regular user files
		return fmt.Errorf("export file: %w", err)
	}

	return nil
}

// SubRange returns a copy of size bytes starting at offset.
func (b *Buffer) SubRange(offset int64, size int) (*Buffer, error) {
	if offset < 0 || size < 0 {
		return nil, ErrNegativeOffset
	}
	if offset+int64(size) > int64(len(b.data)) {
		return nil, fmt.Errorf("%w: [%d+%d] of %d", ErrOutOfRange, offset, size, len(b.data))
	}

	return FromBytes(b.data[offset : offset+int64(size)]), nil
}

// Read implements io.Reader from the cursor.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		if len(p) == 0 {
			return 0, nil
		}

		return 0, io.EOF
	}

	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

// ReadAt implements io.ReaderAt without moving the cursor.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}

	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// Write implements io.Writer at the cursor, growing content as needed.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		b.Resize(int(end))
	}

	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

// WriteAt writes p at off without moving the cursor, growing content as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}

	end := off + int64(len(p))
	if end > int64(len(b.data)) {
		pos := b.pos
		b.Resize(int(end))
		b.pos = pos
	}

	copy(b.data[off:end], p)
	return len(p), nil
}

// Seek implements io.Seeker. Seeking past the end is allowed; a following
// write zero-fills the gap.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = b.pos + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return b.pos, fmt.Errorf("invalid whence %d", whence)
	}

	if next < 0 {
		return b.pos, ErrNegativeOffset
	}

	b.pos = next
	return next, nil
}

// CRC32 returns IEEE CRC32 of the content.
func (b *Buffer) CRC32() uint32 {
	return crc32.ChecksumIEEE(b.Bytes())
}

// Equal reports whether both buffers hold identical bytes.
func (b *Buffer) Equal(other *Buffer) bool {
	if b.Len() != other.Len() {
		return false
	}

	bd, od := b.Bytes(), other.Bytes()
	for i := range bd {
		if bd[i] != od[i] {
			return false
		}
	}

	return true
}
