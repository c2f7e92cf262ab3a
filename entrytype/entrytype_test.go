// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package entrytype

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/woozymasta/lumpkit/dataformat"
)

// subject is a static Subject for detection tests.
type subject struct {
	name      string
	archive   string
	namespace string
	data      []byte
}

func (s subject) Name() string { return s.name }
func (s subject) Size() int    { return len(s.data) }
func (s subject) Data() []byte { return s.data }

func (s subject) ArchiveFormat() (string, bool) {
	return s.archive, s.archive != ""
}

func (s subject) Namespace() (string, bool) {
	return s.namespace, s.namespace != ""
}

func mustRegister(t *testing.T, r *Registry, typ *Type) {
	t.Helper()

	if err := r.Register(typ); err != nil {
		t.Fatalf("Register(%s): %v", typ.ID, err)
	}
}

func TestDetectPrefersReliableSignature(t *testing.T) {
	t.Parallel()

	r := New(dataformat.NewBuiltin())

	byExt := NewType("t1")
	byExt.Reliability = 50
	byExt.MatchExt = []string{"ogg"}
	mustRegister(t, r, byExt)

	bySignature := NewType("t2")
	bySignature.Reliability = 200
	bySignature.Format = dataformat.IDSoundOgg
	mustRegister(t, r, bySignature)

	s := subject{name: "song.ogg", data: []byte("OggS\x00\x02payload")}
	m, ok := r.Detect(s, nil)
	if !ok {
		t.Fatal("Detect: no match")
	}
	if m.Type.ID != "t2" || m.Confidence != 200 {
		t.Fatalf("Detect=%s/%d, want t2/200", m.Type.ID, m.Confidence)
	}
}

func TestDetectSkipsLessReliableAfterMatch(t *testing.T) {
	t.Parallel()

	r := New(dataformat.NewBuiltin())

	strong := NewType("strong")
	strong.Reliability = 200
	strong.MatchExt = []string{"lmp"}
	mustRegister(t, r, strong)

	weak := NewType("weak")
	weak.Reliability = 200
	weak.MatchExt = []string{"lmp"}
	mustRegister(t, r, weak)

	s := subject{name: "demo.lmp", data: []byte{1, 2, 3}}
	for range 3 {
		m, ok := r.Detect(s, nil)
		if !ok || m.Type.ID != "strong" {
			t.Fatalf("Detect=%v, want strong", m.Type)
		}
	}
}

func TestDetectZeroSizeIsMarker(t *testing.T) {
	t.Parallel()

	r := Default()
	m, ok := r.Detect(subject{name: "empty.png"}, nil)
	if ok {
		t.Fatal("Detect on empty entry must report false")
	}
	if m.Type.ID != IDMarker {
		t.Fatalf("type=%s, want %s", m.Type.ID, IDMarker)
	}
}

func TestDetectKeepsFolderAndMap(t *testing.T) {
	t.Parallel()

	r := Default()
	for _, current := range []*Type{r.Folder(), r.MapMarker()} {
		m, ok := r.Detect(subject{name: "x", data: []byte("OggS")}, current)
		if ok || m.Type != current {
			t.Fatalf("Detect replaced %s with %s", current.ID, m.Type.ID)
		}
	}
}

func TestDetectUnconfirmedHalvesConfidence(t *testing.T) {
	t.Parallel()

	r := New(dataformat.NewBuiltin())
	typ := NewType("patch")
	typ.Format = dataformat.IDImageDoom
	typ.Reliability = 200
	mustRegister(t, r, typ)

	data := make([]byte, 0, 18)
	data = binary.LittleEndian.AppendUint16(data, 1)
	data = binary.LittleEndian.AppendUint16(data, 1)
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = binary.LittleEndian.AppendUint32(data, 12)
	data = append(data, 0, 1, 0, 5, 0, 0xff)

	m, ok := r.Detect(subject{name: "PATCH", data: data}, nil)
	if !ok || m.Type.ID != "patch" || m.Confidence != 100 {
		t.Fatalf("Detect=%s/%d, want patch/100", m.Type.ID, m.Confidence)
	}
}

func TestHasEmbeddedNUL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		data []byte
		want bool
	}{
		{name: "plain", data: []byte("abc"), want: false},
		{name: "inner nul", data: []byte("a\x00c"), want: true},
		{name: "trailing terminator", data: []byte("abc\x00"), want: false},
		{name: "double padding", data: []byte("abc\x00\x00"), want: false},
		{name: "nul before padding", data: []byte("a\x00c\x00\x00"), want: true},
		{name: "single nul", data: []byte{0}, want: false},
		{name: "empty", data: nil, want: false},
	}

	for _, tc := range testCases {
		if got := hasEmbeddedNUL(tc.data); got != tc.want {
			t.Fatalf("%s: hasEmbeddedNUL=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTextTypeRejectsBinary(t *testing.T) {
	t.Parallel()

	r := Default()

	m, ok := r.Detect(subject{name: "README", data: []byte("hello world\n")}, nil)
	if !ok || m.Type.ID != "text" {
		t.Fatalf("text Detect=%v, want text", m.Type)
	}

	m, _ = r.Detect(subject{name: "README", data: []byte("hel\x00lo world")}, nil)
	if m.Type.ID == "text" {
		t.Fatal("binary payload detected as text")
	}
}

func TestDetectNameExtOrName(t *testing.T) {
	t.Parallel()

	r := Default()

	testCases := []struct {
		name string
		want string
	}{
		{name: "DECORATE", want: "decorate"},
		{name: "monsters.dec", want: "decorate"},
		{name: "zscript.txt", want: "zscript"},
		{name: "mod.cpp", want: "config_cpp"},
		{name: "other.cpp", want: "text"},
	}

	for _, tc := range testCases {
		m, ok := r.Detect(subject{name: tc.name, data: []byte("actor Foo {}\n")}, nil)
		if !ok || m.Type.ID != tc.want {
			t.Fatalf("Detect(%s)=%v, want %s", tc.name, m.Type, tc.want)
		}
	}
}

func TestDetectArchiveAndSectionConstraints(t *testing.T) {
	t.Parallel()

	r := Default()
	things := make([]byte, 20)

	m, ok := r.Detect(subject{name: "THINGS", archive: "wad", data: things}, nil)
	if !ok || m.Type.ID != "map_things" {
		t.Fatalf("THINGS in wad=%v, want map_things", m.Type)
	}

	m, _ = r.Detect(subject{name: "THINGS", archive: "zip", data: things}, nil)
	if m.Type.ID == "map_things" {
		t.Fatal("THINGS outside wad must not be map_things")
	}

	flat := make([]byte, 4096)
	flat[0] = 0x7f
	m, ok = r.Detect(subject{name: "FLOOR0_1", archive: "wad", namespace: "flats", data: flat}, nil)
	if !ok || m.Type.ID != "gfx_flat" {
		t.Fatalf("flat=%v, want gfx_flat", m.Type)
	}

	m, _ = r.Detect(subject{name: "FLOOR0_1", archive: "wad", namespace: "global", data: flat}, nil)
	if m.Type.ID == "gfx_flat" {
		t.Fatal("flat outside flats namespace must not be gfx_flat")
	}
}

func TestBuiltinDetectsContainers(t *testing.T) {
	t.Parallel()

	r := Default()
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13}, []byte("IHDR")...)
	png = binary.BigEndian.AppendUint32(png, 16)
	png = binary.BigEndian.AppendUint32(png, 16)
	png = append(png, make([]byte, 13)...)

	m, ok := r.Detect(subject{name: "TITLEPIC", data: png}, nil)
	if !ok || m.Type.ID != "png" || m.Confidence != MaxReliability {
		t.Fatalf("png Detect=%v/%d", m.Type, m.Confidence)
	}
}

func TestLoadInheritance(t *testing.T) {
	t.Parallel()

	r := New(dataformat.NewBuiltin())
	doc := []byte(`
base:
  name: Base
  format: snd_ogg
  match_ext: [ogg, oga]
  reliability: 150
  category: Audio
  editor: audio
derived:
  inherits: base
  name: Derived
  section: music
orphan:
  inherits: missing
  name: Orphan
`)
	if err := r.Load(doc); err != nil {
		t.Fatalf("Load: %v", err)
	}

	derived, ok := r.Lookup("derived")
	if !ok {
		t.Fatal("derived type not registered")
	}
	if derived.Name != "Derived" || derived.Format != dataformat.IDSoundOgg || derived.Reliability != 150 {
		t.Fatalf("derived=%+v, want base fields with name override", derived)
	}
	if derived.Parent != "base" || derived.Extra["editor"] != "audio" {
		t.Fatalf("derived parent=%q extra=%v", derived.Parent, derived.Extra)
	}
	if len(derived.Sections) != 1 || derived.Sections[0] != "music" {
		t.Fatalf("derived sections=%v, want [music]", derived.Sections)
	}

	base, _ := r.Lookup("base")
	if len(base.Sections) != 0 {
		t.Fatal("override leaked into parent type")
	}

	orphan, ok := r.Lookup("orphan")
	if !ok {
		t.Fatal("orphan type not registered")
	}
	if orphan.Format != dataformat.IDAny || orphan.Reliability != MaxReliability || orphan.Parent != "" {
		t.Fatalf("orphan=%+v, want defaults", orphan)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	t.Parallel()

	r := New(nil)
	for _, doc := range []string{"- a\n- b\n", "x: [1\n", "x: scalar\n", "x:\n  reliability: 999\n"} {
		if err := r.Load([]byte(doc)); err == nil {
			t.Fatalf("Load(%q) succeeded, want error", doc)
		}
	}
}

func TestLoadFileOverlayReplacesType(t *testing.T) {
	t.Parallel()

	r, err := NewBuiltin(nil)
	if err != nil {
		t.Fatalf("NewBuiltin: %v", err)
	}
	before := len(r.Types())
	png, _ := r.Lookup("png")

	path := filepath.Join(t.TempDir(), "overlay.yaml")
	if err := os.WriteFile(path, []byte("png:\n  name: Portable Network Graphic\n  format: img_png\n"), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	replaced, _ := r.Lookup("png")
	if len(r.Types()) != before || replaced.Index() != png.Index() {
		t.Fatal("overlay must replace in place")
	}
	if replaced.Name != "Portable Network Graphic" {
		t.Fatalf("name=%q", replaced.Name)
	}

	if err := r.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadFile(missing) succeeded")
	}
}

func TestBuiltinOrderIsStable(t *testing.T) {
	t.Parallel()

	types := Default().Types()
	if types[0].ID != IDUnknown {
		t.Fatalf("first type=%s, want unknown", types[0].ID)
	}

	var ids bytes.Buffer
	for i, typ := range types {
		if typ.Index() != i {
			t.Fatalf("%s index=%d, want %d", typ.ID, typ.Index(), i)
		}
		ids.WriteString(typ.ID)
	}
	if ids.Len() == 0 {
		t.Fatal("no types")
	}
}
