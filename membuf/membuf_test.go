// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package membuf

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestBufferWriteSeekRead(t *testing.T) {
	t.Parallel()

	b := New(4)
	if _, err := b.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if b.Len() != 5 {
		t.Fatalf("Len=%d, want 5", b.Len())
	}

	if _, err := b.Seek(1, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := b.Write([]byte("EL")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := string(b.Bytes()); got != "hELlo" {
		t.Fatalf("Bytes=%q, want %q", got, "hELlo")
	}

	if _, err := b.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	got, err := io.ReadAll(b)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hELlo" {
		t.Fatalf("ReadAll=%q, want %q", got, "hELlo")
	}
}

func TestBufferSeekPastEndZeroFills(t *testing.T) {
	t.Parallel()

	var b Buffer
	if _, err := b.Seek(3, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := b.Write([]byte{7}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := []byte{0, 0, 0, 7}
	if !b.Equal(FromBytes(want)) {
		t.Fatalf("Bytes=%v, want %v", b.Bytes(), want)
	}

	if _, err := b.Seek(-10, io.SeekCurrent); !errors.Is(err, ErrNegativeOffset) {
		t.Fatalf("expected ErrNegativeOffset, got %v", err)
	}
}

func TestBufferSubRange(t *testing.T) {
	t.Parallel()

	b := FromBytes([]byte("0123456789"))
	sub, err := b.SubRange(2, 3)
	if err != nil {
		t.Fatalf("SubRange: %v", err)
	}
	if string(sub.Bytes()) != "234" {
		t.Fatalf("SubRange=%q, want %q", sub.Bytes(), "234")
	}

	if _, err := b.SubRange(8, 5); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestBufferFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.bin")
	src := FromBytes([]byte("lump payload"))
	if err := src.ExportFile(path); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}

	var dst Buffer
	if err := dst.ImportFile(path); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if !dst.Equal(src) {
		t.Fatalf("imported=%q, want %q", dst.Bytes(), src.Bytes())
	}
	if dst.CRC32() != src.CRC32() {
		t.Fatal("CRC32 mismatch after round trip")
	}

	var part Buffer
	if err := part.ImportFileRange(path, 5, 7); err != nil {
		t.Fatalf("ImportFileRange: %v", err)
	}
	if string(part.Bytes()) != "payload" {
		t.Fatalf("range=%q, want %q", part.Bytes(), "payload")
	}

	if err := part.ImportFile(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestBufferResizeClampsCursor(t *testing.T) {
	t.Parallel()

	b := FromBytes([]byte("abcdef"))
	if _, err := b.Seek(0, io.SeekEnd); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	b.Resize(2)
	if b.Tell() != 2 {
		t.Fatalf("Tell=%d, want 2", b.Tell())
	}

	b.Resize(4)
	if got := b.Bytes(); string(got[:2]) != "ab" || got[2] != 0 || got[3] != 0 {
		t.Fatalf("Bytes=%v, want ab + zero fill", got)
	}
}
