// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // PBO trailer format
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/zstd"
)

// reopen serializes a and opens the bytes as a fresh archive of the same format.
func reopen(t *testing.T, a *Archive, opts *Options) (*Archive, []byte) {
	t.Helper()

	data, err := a.WriteBytes()
	if err != nil {
		t.Fatalf("WriteBytes(%s): %v", a.Format().ID, err)
	}

	b := newTestArchive(t, a.Format().ID, opts)
	if err := b.OpenBytes(data); err != nil {
		t.Fatalf("OpenBytes(%s): %v", a.Format().ID, err)
	}

	return b, data
}

// entryPaths returns every entry path of a in tree order.
func entryPaths(a *Archive) []string {
	out := make([]string, 0, a.NumEntries())
	for _, e := range a.Entries() {
		out = append(out, e.Path())
	}

	return out
}

func TestFormatRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		format string
		add    []string
		want   []string
	}{
		{
			format: FormatWAD,
			add:    []string{"MAP01", "THINGS", "LINEDEFS", "THINGS"},
			want:   []string{"MAP01", "THINGS", "LINEDEFS", "THINGS"},
		},
		{
			format: FormatGRP,
			add:    []string{"tiles000.art", "game.con", "palette.dat"},
			want:   []string{"TILES000.ART", "GAME.CON", "PALETTE.DAT"},
		},
		{
			format: FormatPak,
			add:    []string{"default.cfg", "maps/e1m1.bsp", "sound/misc/talk.wav"},
			want:   []string{"default.cfg", "maps/e1m1.bsp", "sound/misc/talk.wav"},
		},
		{
			format: FormatPod,
			add:    []string{"readme.txt", "art/ship.raw", "art/fx/boom.raw"},
			want:   []string{"readme.txt", "art/ship.raw", "art/fx/boom.raw"},
		},
		{
			format: FormatZip,
			add:    []string{"zscript.txt", "sprites/a.png", "sprites/deep/b.png"},
			want:   []string{"zscript.txt", "sprites/a.png", "sprites/deep/b.png"},
		},
		{
			format: FormatPBO,
			add:    []string{"config.cpp", "data/a.paa", "data/sub/b.paa"},
			want:   []string{"config.cpp", "data/a.paa", "data/sub/b.paa"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()

			a := newTestArchive(t, tc.format, nil)
			for i, p := range tc.add {
				mustAdd(t, a, p, bytes.Repeat([]byte{byte('a' + i)}, 32+i))
			}

			b, _ := reopen(t, a, nil)
			if got := entryPaths(b); !slices.Equal(got, tc.want) {
				t.Fatalf("paths=%v, want %v", got, tc.want)
			}

			for i, e := range b.Entries() {
				if e.State() != StateUnmodified {
					t.Fatalf("%s state=%s, want unmodified", e.Path(), e.State())
				}

				if e.IsLoaded() {
					t.Fatalf("%s must load lazily", e.Path())
				}

				want := bytes.Repeat([]byte{byte('a' + i)}, 32+i)
				if got := e.Data(); !bytes.Equal(got, want) {
					t.Fatalf("%s data mismatch", e.Path())
				}
			}

			if b.IsModified() {
				t.Fatal("reopened archive must be clean")
			}
		})
	}
}

func TestOpenBytesDetectsFormat(t *testing.T) {
	t.Parallel()

	for _, format := range []string{FormatWAD, FormatZip, FormatPak, FormatGRP, FormatPod, FormatPBO} {
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			a := newTestArchive(t, format, nil)
			mustAdd(t, a, "lump.txt", []byte("some lump text"))
			data, err := a.WriteBytes()
			if err != nil {
				t.Fatalf("WriteBytes: %v", err)
			}

			b, err := OpenBytes(data, "", nil)
			if err != nil {
				t.Fatalf("OpenBytes: %v", err)
			}
			t.Cleanup(func() { _ = b.Close() })

			if b.Format().ID != format {
				t.Fatalf("format=%s, want %s", b.Format().ID, format)
			}
		})
	}
}

func TestOpenBytesUnknown(t *testing.T) {
	t.Parallel()

	if _, err := OpenBytes([]byte("plain text, not a container"), "notes.txt", nil); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("OpenBytes=%v, want ErrUnknownFormat", err)
	}
}

func TestOpenBytesKeepsStateOnFailure(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatWAD, nil)
	mustAdd(t, a, "THINGS", []byte("x"))

	if err := a.OpenBytes([]byte("PWAD\xff\xff\xff\x00\x00\x00\x00\x10")); err == nil {
		t.Fatal("OpenBytes(truncated) must fail")
	}
	if a.NumEntries() != 1 || !a.IsModified() {
		t.Fatal("failed open must keep prior tree")
	}
}

func TestWADMarkersAndNamespaces(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatWAD, nil)
	mustAdd(t, a, "PLAYPAL", []byte("pal"))
	mustAdd(t, a, "S_START", nil)
	troo := mustAdd(t, a, "TROOA1", []byte("sprite"))
	mustAdd(t, a, "S_END", nil)
	mustAdd(t, a, "F_START", nil)
	flat := mustAdd(t, a, "FLOOR0_1", []byte("flat"))
	mustAdd(t, a, "F_END", nil)

	b, _ := reopen(t, a, nil)
	checks := map[string]string{
		"PLAYPAL":  NamespaceGlobal,
		"S_START":  NamespaceGlobal,
		"TROOA1":   NamespaceSprites,
		"FLOOR0_1": NamespaceFlats,
	}
	for name, want := range checks {
		e := b.EntryAtPath(name)
		if e == nil {
			t.Fatalf("%s missing after round trip", name)
		}

		if got := b.DetectNamespace(e); got != want {
			t.Fatalf("namespace(%s)=%q, want %q", name, got, want)
		}
	}

	if got := a.DetectNamespace(troo); got != NamespaceSprites {
		t.Fatalf("namespace(TROOA1)=%q before save", got)
	}
	if ns, ok := flat.Namespace(); !ok || ns != NamespaceFlats {
		t.Fatalf("Namespace()=(%q,%v), want flats", ns, ok)
	}

	if err := b.AddEntryToNamespace(NewEntry("TROOB1", []byte("b")), NamespaceSprites); err != nil {
		t.Fatalf("AddEntryToNamespace: %v", err)
	}

	want := []string{"PLAYPAL", "S_START", "TROOA1", "TROOB1", "S_END", "F_START", "FLOOR0_1", "F_END"}
	if got := entryNames(b.Root()); !slices.Equal(got, want) {
		t.Fatalf("entries=%v, want %v", got, want)
	}

	if err := b.AddEntryToNamespace(NewEntry("HIRES1", []byte("h")), NamespaceHires); err != nil {
		t.Fatalf("AddEntryToNamespace(new ns): %v", err)
	}

	tail := entryNames(b.Root())[len(want):]
	if !slices.Equal(tail, []string{"HI_START", "HIRES1", "HI_END"}) {
		t.Fatalf("new namespace entries=%v", tail)
	}
}

func TestTreeNamespaces(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatZip, nil)
	top := mustAdd(t, a, "decorate.txt", []byte("actor"))
	deep := mustAdd(t, a, "Sprites/monsters/imp.png", []byte("imp"))

	if got := a.DetectNamespace(top); got != NamespaceGlobal {
		t.Fatalf("root namespace=%q, want global", got)
	}
	if got := a.DetectNamespace(deep); got != NamespaceSprites {
		t.Fatalf("deep namespace=%q, want sprites", got)
	}

	e := NewEntry("floor.png", []byte("f"))
	if err := a.AddEntryToNamespace(e, "Flats"); err != nil {
		t.Fatalf("AddEntryToNamespace: %v", err)
	}
	if e.Path() != "flats/floor.png" {
		t.Fatalf("path=%q, want flats/floor.png", e.Path())
	}
}

func TestWADIWADFlagPreserved(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatWAD, nil)
	mustAdd(t, a, "E1M1", nil)
	wb, ok := a.Backend().(*wadBackend)
	if !ok {
		t.Fatalf("backend=%T, want *wadBackend", a.Backend())
	}
	wb.SetIWAD(true)

	b, data := reopen(t, a, nil)
	if string(data[:4]) != "IWAD" {
		t.Fatalf("magic=%q, want IWAD", data[:4])
	}
	if !b.Backend().(*wadBackend).IsIWAD() {
		t.Fatal("reopened archive must keep IWAD flag")
	}
}

func TestGRPNameTooLong(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatGRP, nil)
	e := mustAdd(t, a, "averyverylongname.dat", []byte("x"))
	if len(e.Name()) > grpNameSize {
		t.Fatalf("name %q exceeds %d chars", e.Name(), grpNameSize)
	}
}

func TestPodVolumeID(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatPod, nil)
	mustAdd(t, a, "a.txt", []byte("a"))
	a.Backend().(*podBackend).SetID("Terminal Velocity")

	b, _ := reopen(t, a, nil)
	if got := b.Backend().(*podBackend).ID(); got != "Terminal Velocity" {
		t.Fatalf("ID=%q, want Terminal Velocity", got)
	}
}

func TestSaveReopenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.pak")
	a := newTestArchive(t, FormatPak, nil)
	mustAdd(t, a, "maps/start.bsp", []byte("bsp"))

	if err := a.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if a.Filename() != path || !a.IsOnDisk() || a.IsModified() {
		t.Fatal("SaveAs must bind the file and clear modified")
	}

	e := a.EntryAtPath("maps/start.bsp")
	if e.State() != StateUnmodified {
		t.Fatalf("state=%s after save, want unmodified", e.State())
	}

	mustAdd(t, a, "progs.dat", []byte("progs"))
	if err := a.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	if got := entryPaths(b); !slices.Equal(got, []string{"progs.dat", "maps/start.bsp"}) {
		t.Fatalf("paths=%v", got)
	}
	if string(b.EntryAtPath("maps/start.bsp").Data()) != "bsp" {
		t.Fatal("saved payload mismatch")
	}
}

func TestSaveWritesBackup(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.wad")
	opts := &Options{Save: SaveOptions{Backup: true}}
	a := newTestArchive(t, FormatWAD, opts)
	mustAdd(t, a, "ONE", []byte("1"))
	if err := a.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	mustAdd(t, a, "TWO", []byte("2"))
	if err := a.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !bytes.Equal(backup, first) {
		t.Fatal("backup must hold the previous file")
	}
}

func TestSaveRotatesBackups(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.wad")
	opts := &Options{Save: SaveOptions{Backup: true, BackupKeep: 3}}
	a := newTestArchive(t, FormatWAD, opts)

	var versions [][]byte
	for i, name := range []string{"E0", "E1", "E2", "E3", "E4"} {
		mustAdd(t, a, name, []byte(name))

		save := a.Save
		if i == 0 {
			save = func() error { return a.SaveAs(path) }
		}
		if err := save(); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		versions = append(versions, data)
	}

	for gen, want := range [][]byte{versions[3], versions[2], versions[1]} {
		got, err := os.ReadFile(backupName(path, gen))
		if err != nil {
			t.Fatalf("read backup %d: %v", gen, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("backup %d holds the wrong generation", gen)
		}
	}

	if _, err := os.Stat(backupName(path, 3)); !os.IsNotExist(err) {
		t.Fatalf("backup 3 must be dropped, stat err=%v", err)
	}
}

// resizedGRPBackend returns payloads longer than the recorded entry size.
type resizedGRPBackend struct{ grpBackend }

func (resizedGRPBackend) LoadEntryData(*Archive, *Entry) ([]byte, error) {
	return []byte("longer than recorded"), nil
}

func TestGRPWriteRejectsResizedPayload(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatGRP, nil)
	e := mustAdd(t, a, "A.TXT", []byte("abc"))
	e.data, e.loaded, e.sourced, e.size = nil, false, true, 3
	a.backend = resizedGRPBackend{}

	if _, err := a.WriteBytes(); err == nil {
		t.Fatal("WriteBytes must fail when a payload differs from its recorded size")
	}
}

func TestZipEntryLimit(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatZip, nil)
	mustAdd(t, a, "big.bin", bytes.Repeat([]byte{1}, 64))
	data, err := a.WriteBytes()
	if err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	b := newTestArchive(t, FormatZip, &Options{Zip: ZipOptions{EntryLimit: 16}})
	if err := b.OpenBytes(data); !errors.Is(err, ErrEntryTooLarge) {
		t.Fatalf("OpenBytes=%v, want ErrEntryTooLarge", err)
	}
}

func TestZipMethods(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("compressible zip payload "), 64)
	cases := []struct {
		name string
		opts ZipOptions
	}{
		{name: "deflate", opts: ZipOptions{}},
		{name: "store", opts: ZipOptions{Store: true}},
		{name: "zstd", opts: ZipOptions{Method: zstd.ZipMethodWinZip}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := &Options{Zip: tc.opts}
			a := newTestArchive(t, FormatZip, opts)
			mustAdd(t, a, "docs/readme.txt", payload)

			b, data := reopen(t, a, opts)
			if tc.opts.Store && len(data) < len(payload) {
				t.Fatalf("stored zip smaller than payload: %d", len(data))
			}
			if !tc.opts.Store && len(data) >= len(payload) {
				t.Fatalf("compressed zip not smaller: %d", len(data))
			}
			if got := b.EntryAtPath("docs/readme.txt").Data(); !bytes.Equal(got, payload) {
				t.Fatal("payload mismatch")
			}
		})
	}
}

func TestZipInPlaceSaveCopiesUnmodified(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mod.pk3")
	a := newTestArchive(t, FormatZip, nil)
	mustAdd(t, a, "keep.txt", bytes.Repeat([]byte("keep "), 100))
	mustAdd(t, a, "edit.txt", []byte("old"))
	if err := a.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}

	if err := a.EntryAtPath("edit.txt").ImportData([]byte("new")); err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	if err := a.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	if b.Format().ID != FormatZip {
		t.Fatalf("format=%s, want zip", b.Format().ID)
	}
	if got := string(b.EntryAtPath("edit.txt").Data()); got != "new" {
		t.Fatalf("edit.txt=%q, want new", got)
	}
	if got := b.EntryAtPath("keep.txt").Data(); !bytes.Equal(got, bytes.Repeat([]byte("keep "), 100)) {
		t.Fatal("raw-copied entry mismatch")
	}
	if got := string(a.EntryAtPath("edit.txt").Data()); got != "new" {
		t.Fatal("saved archive must keep serving entries")
	}
}

func TestPBOHeadersAndPrefix(t *testing.T) {
	t.Parallel()

	opts := &Options{PBO: PBOOptions{Headers: []HeaderPair{
		{Key: "prefix", Value: "x/my_mod/addons"},
		{Key: "product", Value: "dayz"},
	}}}
	a := newTestArchive(t, FormatPBO, opts)
	mustAdd(t, a, "config.cpp", []byte("class CfgPatches {};"))

	b, data := reopen(t, a, nil)
	headers, err := b.PBOHeaders()
	if err != nil {
		t.Fatalf("PBOHeaders: %v", err)
	}

	want := []HeaderPair{{Key: "prefix", Value: `x\my_mod\addons`}, {Key: "product", Value: "dayz"}}
	if !slices.Equal(headers, want) {
		t.Fatalf("headers=%v, want %v", headers, want)
	}
	if got := b.Backend().(*pboBackend).Prefix(); got != `x\my_mod\addons` {
		t.Fatalf("Prefix=%q", got)
	}

	path := filepath.Join(t.TempDir(), "mod.pbo")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fromFile, err := ReadPBOHeaders(path)
	if err != nil {
		t.Fatalf("ReadPBOHeaders: %v", err)
	}
	if !slices.Equal(fromFile, want) {
		t.Fatalf("ReadPBOHeaders=%v, want %v", fromFile, want)
	}

	if err := b.SetPBOHeaders([]HeaderPair{{Key: "version", Value: "2"}}); err != nil {
		t.Fatalf("SetPBOHeaders: %v", err)
	}
	if !b.IsModified() {
		t.Fatal("SetPBOHeaders must mark the archive modified")
	}

	z := newTestArchive(t, FormatZip, nil)
	if _, err := z.PBOHeaders(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("PBOHeaders(zip)=%v, want ErrUnsupported", err)
	}
}

func TestPBOCompression(t *testing.T) {
	t.Parallel()

	opts := &Options{PBO: PBOOptions{Compress: includeRules("*.txt")}}
	a := newTestArchive(t, FormatPBO, opts)
	text := bytes.Repeat([]byte("compress me please "), 100)
	mustAdd(t, a, "scripts/big.txt", text)
	mustAdd(t, a, "scripts/big.bin", text)
	mustAdd(t, a, "scripts/small.txt", []byte("tiny"))

	b, _ := reopen(t, a, nil)
	cases := []struct {
		path string
		mime MimeType
	}{
		{path: "scripts/big.txt", mime: MimeCompress},
		{path: "scripts/big.bin", mime: MimeNil},
		{path: "scripts/small.txt", mime: MimeNil},
	}

	for _, tc := range cases {
		e := b.EntryAtPath(tc.path)
		if e == nil {
			t.Fatalf("%s missing", tc.path)
		}

		mime, _ := prop[MimeType](e, PropPBOMime)
		if mime != tc.mime {
			t.Fatalf("%s mime=%#x, want %#x", tc.path, mime, tc.mime)
		}
	}

	big := b.EntryAtPath("scripts/big.txt")
	if big.Size() != len(text) {
		t.Fatalf("Size=%d, want %d", big.Size(), len(text))
	}
	if !bytes.Equal(big.Data(), text) {
		t.Fatal("decompressed payload mismatch")
	}

	again, _ := reopen(t, b, nil)
	if !bytes.Equal(again.EntryAtPath("scripts/big.txt").Data(), text) {
		t.Fatal("payload mismatch after rewrite")
	}
}

func TestPBOTrailer(t *testing.T) {
	t.Parallel()

	payload := []byte("trailing payload bytes for the trailer check")

	a := newTestArchive(t, FormatPBO, nil)
	mustAdd(t, a, "a.txt", payload)
	b, data := reopen(t, a, nil)

	sum := sha1.Sum(data[:len(data)-21]) //nolint:gosec // PBO trailer format
	if data[len(data)-21] != 0 || !bytes.Equal(data[len(data)-20:], sum[:]) {
		t.Fatal("trailer must be NUL plus SHA1 of preceding bytes")
	}

	got, ok := b.Backend().(*pboBackend).Trailer()
	if !ok || got != sum {
		t.Fatal("reopened archive must expose the trailer")
	}

	skip := &Options{PBO: PBOOptions{SkipTrailer: true}}
	c := newTestArchive(t, FormatPBO, skip)
	mustAdd(t, c, "a.txt", payload)
	_, plain := reopen(t, c, skip)
	if len(plain) != len(data)-21 {
		t.Fatalf("len without trailer=%d, want %d", len(plain), len(data)-21)
	}
}

func TestPBOJunkFilter(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatPBO, nil)
	mustAdd(t, a, "empty.txt", nil)
	mustAdd(t, a, "real.txt", []byte("real"))

	b, _ := reopen(t, a, nil)
	if b.NumEntries() != 2 {
		t.Fatalf("NumEntries=%d, want 2", b.NumEntries())
	}

	filtered, _ := reopen(t, a, &Options{PBO: PBOOptions{JunkFilter: true}})
	if got := entryPaths(filtered); !slices.Equal(got, []string{"real.txt"}) {
		t.Fatalf("filtered=%v, want [real.txt]", got)
	}
}

func TestFilterByPrefix(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatZip, nil)
	mustAdd(t, a, "Data/a.txt", nil)
	mustAdd(t, a, "data/sub/b.txt", nil)
	mustAdd(t, a, "database.txt", nil)

	got := FilterByPrefix(a.Entries(), `DATA\`)
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}

	if all := FilterByPrefix(a.Entries(), ""); len(all) != 3 {
		t.Fatalf("empty prefix len=%d, want 3", len(all))
	}
}
