// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package dataformat

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildWAD assembles a minimal PWAD with the given lump payloads.
func buildWAD(lumps ...[]byte) []byte {
	var body bytes.Buffer
	offsets := make([]uint32, len(lumps))
	for i, lump := range lumps {
		offsets[i] = uint32(wadHeaderSize + body.Len())
		body.Write(lump)
	}

	dirOffset := uint32(wadHeaderSize + body.Len())
	out := make([]byte, 0, int(dirOffset)+len(lumps)*wadDirEntrySize)
	out = append(out, magicPWAD...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(lumps)))
	out = binary.LittleEndian.AppendUint32(out, dirOffset)
	out = append(out, body.Bytes()...)
	for i, lump := range lumps {
		out = binary.LittleEndian.AppendUint32(out, offsets[i])
		out = binary.LittleEndian.AppendUint32(out, uint32(len(lump)))
		var name [8]byte
		copy(name[:], "LUMP")
		out = append(out, name[:]...)
	}

	return out
}

func TestEmptyInputNeverMatches(t *testing.T) {
	t.Parallel()

	reg := NewBuiltin()
	for _, id := range reg.IDs() {
		if got := reg.Get(id).IsThisFormat(nil); got != No {
			t.Fatalf("%s on empty input=%v, want no", id, got)
		}
	}
}

func TestWADMatcher(t *testing.T) {
	t.Parallel()

	valid := buildWAD([]byte("abc"), []byte("defgh"))
	if got := matchWAD(valid); got != Yes {
		t.Fatalf("valid WAD=%v, want yes", got)
	}

	truncated := valid[:len(valid)-4]
	if got := matchWAD(truncated); got != No {
		t.Fatalf("truncated WAD=%v, want no", got)
	}

	badLump := bytes.Clone(valid)
	// first directory record: bump size past end of file
	binary.LittleEndian.PutUint32(badLump[wadHeaderSize+8+4:], 1<<20)
	if got := matchWAD(badLump); got != No {
		t.Fatalf("WAD with out-of-range lump=%v, want no", got)
	}

	hugeCount := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(hugeCount[4:], 0xffffffff)
	if got := matchWAD(hugeCount); got != No {
		t.Fatalf("WAD with huge count=%v, want no", got)
	}
}

func TestGetFallsBackToAny(t *testing.T) {
	t.Parallel()

	reg := New()
	f := reg.Get("no_such_format")
	if f == nil || f.ID != IDAny {
		t.Fatalf("Get(unknown)=%v, want any", f)
	}
	if got := f.IsThisFormat([]byte{1, 2, 3}); got != Unconfirmed {
		t.Fatalf("any verdict=%v, want unconfirmed", got)
	}
}

func TestIdentify(t *testing.T) {
	t.Parallel()

	reg := NewBuiltin()
	testCases := []struct {
		name string
		data []byte
		want string
	}{
		{name: "wad", data: buildWAD([]byte("x")), want: IDArchiveWAD},
		{name: "ogg", data: []byte("OggS\x00\x02rest"), want: IDSoundOgg},
		{name: "midi", data: append([]byte("MThd"), make([]byte, 10)...), want: IDMidiMIDI},
		{name: "pbo", data: append([]byte{0, 's', 'r', 'e', 'V'}, make([]byte, 16)...), want: IDArchivePBO},
		{name: "zip", data: append(append([]byte{}, magicZip...), append(make([]byte, 26), magicEOCD...)...), want: IDArchiveZip},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f, ok := reg.Identify(tc.data)
			if !ok {
				t.Fatalf("Identify: no match, want %s", tc.want)
			}
			if f.ID != tc.want {
				t.Fatalf("Identify=%s, want %s", f.ID, tc.want)
			}
		})
	}

	if f, ok := reg.Identify([]byte("plain text")); ok {
		t.Fatalf("Identify(text)=%s, want no match", f.ID)
	}
}

func TestDoomGfxIsUnconfirmed(t *testing.T) {
	t.Parallel()

	// 1x1 patch: header, one column offset, one post.
	data := make([]byte, 0, 18)
	data = binary.LittleEndian.AppendUint16(data, 1)
	data = binary.LittleEndian.AppendUint16(data, 1)
	data = binary.LittleEndian.AppendUint16(data, 0)
	data = binary.LittleEndian.AppendUint16(data, 0)
	data = binary.LittleEndian.AppendUint32(data, 12)
	data = append(data, 0, 1, 0, 5, 0, 0xff)

	if got := matchDoomGfx(data); got != Unconfirmed {
		t.Fatalf("doom gfx=%v, want unconfirmed", got)
	}

	binary.LittleEndian.PutUint32(data[8:], 400)
	if got := matchDoomGfx(data); got != No {
		t.Fatalf("doom gfx bad column=%v, want no", got)
	}
}

func TestAnyMatchesNonEmptyInput(t *testing.T) {
	t.Parallel()

	reg := NewBuiltin()
	for _, id := range []string{IDAny, IDText} {
		if got := reg.Get(id).IsThisFormat([]byte{0}); got != Unconfirmed {
			t.Fatalf("%s on one byte=%v, want unconfirmed", id, got)
		}
	}
}
