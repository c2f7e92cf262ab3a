// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/woozymasta/pathrules"
)

// writeTree creates files under root from a slash path to content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}

		if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

// openFolder opens root as a folder archive.
func openFolder(t *testing.T, root string, opts *Options) *Archive {
	t.Helper()

	a, err := OpenFile(root, opts)
	if err != nil {
		t.Fatalf("OpenFile(%s): %v", root, err)
	}
	t.Cleanup(func() { _ = a.Close() })

	return a
}

func TestFolderOpen(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":       "a",
		"sub/b.txt":   "b",
		".git/config": "hidden",
	})

	a := openFolder(t, root, nil)
	if a.Format().ID != FormatFolder {
		t.Fatalf("format=%s, want folder", a.Format().ID)
	}
	if got := entryPaths(a); !slices.Equal(got, []string{"a.txt", "sub/b.txt"}) {
		t.Fatalf("paths=%v", got)
	}
	if got := string(a.EntryAtPath("sub/b.txt").Data()); got != "b" {
		t.Fatalf("b.txt=%q, want b", got)
	}
	if _, err := a.WriteBytes(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("WriteBytes=%v, want ErrUnsupported", err)
	}
}

func TestFolderSaveSyncsDisk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":      "a",
		"keep.txt":   "keep",
		"gone/c.txt": "c",
	})

	a := openFolder(t, root, nil)
	if err := a.RenameEntry(a.EntryAtPath("a.txt"), "renamed.txt"); err != nil {
		t.Fatalf("RenameEntry: %v", err)
	}
	if err := a.RemoveDirAtPath("gone"); err != nil {
		t.Fatalf("RemoveDirAtPath: %v", err)
	}
	mustAdd(t, a, "docs/new.txt", []byte("new"))

	if err := a.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a.IsModified() {
		t.Fatal("archive must be clean after save")
	}

	checks := map[string]string{
		"renamed.txt":  "a",
		"keep.txt":     "keep",
		"docs/new.txt": "new",
	}
	for p, want := range checks {
		got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
		if err != nil || string(got) != want {
			t.Fatalf("%s=(%q,%v), want %q", p, got, err, want)
		}
	}

	for _, p := range []string{"a.txt", "gone"} {
		if _, err := os.Stat(filepath.Join(root, p)); !os.IsNotExist(err) {
			t.Fatalf("%s must be removed, stat err=%v", p, err)
		}
	}
}

func TestFolderSaveAsCopies(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"maps/m.txt": "m"})
	a := openFolder(t, src, nil)

	dst := filepath.Join(t.TempDir(), "copy")
	if err := a.SaveAs(dst); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if a.Filename() != dst {
		t.Fatalf("Filename=%q, want %q", a.Filename(), dst)
	}

	got, err := os.ReadFile(filepath.Join(dst, "maps", "m.txt"))
	if err != nil || string(got) != "m" {
		t.Fatalf("copy=(%q,%v), want m", got, err)
	}
	if _, err := os.Stat(filepath.Join(src, "maps", "m.txt")); err != nil {
		t.Fatalf("source must stay intact: %v", err)
	}
}

func TestFolderCheckAndApplyChanges(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "a",
		"sub/b.txt": "b",
	})

	a := openFolder(t, root, nil)
	changes, err := a.CheckChanges()
	if err != nil {
		t.Fatalf("CheckChanges: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("fresh folder changes=%v, want none", changes)
	}

	later := time.Now().Add(time.Hour)
	writeTree(t, root, map[string]string{"a.txt": "changed", "new.txt": "n"})
	if err := os.Chtimes(filepath.Join(root, "a.txt"), later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(root, "sub")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "extra"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	changes, err = a.CheckChanges()
	if err != nil {
		t.Fatalf("CheckChanges: %v", err)
	}

	type change struct {
		path string
		kind ChangeKind
	}
	got := make([]change, 0, len(changes))
	for _, c := range changes {
		got = append(got, change{path: c.Path, kind: c.Kind})
	}

	want := []change{
		{path: "a.txt", kind: ChangeUpdated},
		{path: "extra", kind: ChangeAddedDir},
		{path: "new.txt", kind: ChangeAddedFile},
		{path: "sub", kind: ChangeDeletedDir},
		{path: "sub/b.txt", kind: ChangeDeletedFile},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("changes=%v, want %v", got, want)
	}

	newFile := changes[2]
	if err := a.IgnoreChange(newFile); err != nil {
		t.Fatalf("IgnoreChange: %v", err)
	}

	applied := slices.DeleteFunc(slices.Clone(changes), func(c DirChange) bool { return c.Path == newFile.Path })
	if err := a.ApplyChanges(applied); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}
	if err := a.ApplyChanges(applied); err != nil {
		t.Fatalf("ApplyChanges twice: %v", err)
	}

	if a.IsModified() {
		t.Fatal("ApplyChanges must keep the modified flag")
	}
	if got := string(a.EntryAtPath("a.txt").Data()); got != "changed" {
		t.Fatalf("a.txt=%q, want changed", got)
	}
	if a.Dir("sub") != nil || a.Dir("extra") == nil {
		t.Fatal("directory changes not applied")
	}
	if a.EntryAtPath("new.txt") != nil {
		t.Fatal("ignored change must not be applied")
	}

	changes, err = a.CheckChanges()
	if err != nil {
		t.Fatalf("CheckChanges: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("changes after apply=%v, want none", changes)
	}
}

func TestFolderChangesUnsupportedForFiles(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatZip, nil)
	if _, err := a.CheckChanges(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("CheckChanges(zip)=%v, want ErrUnsupported", err)
	}
}

func TestOpenFSMemory(t *testing.T) {
	t.Parallel()

	fs := memfs.New()
	if err := util.WriteFile(fs, "scripts/main.zs", []byte("script"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	a, err := OpenFS(fs, nil)
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if got := string(a.EntryAtPath("scripts/main.zs").Data()); got != "script" {
		t.Fatalf("main.zs=%q, want script", got)
	}
}

func TestImportFS(t *testing.T) {
	t.Parallel()

	fs := memfs.New()
	files := map[string]string{
		"maps/e1m1.txt": "map",
		"maps/old.bak":  "backup",
		"readme.txt":    "readme",
		".hidden":       "secret",
	}
	for p, content := range files {
		if err := util.WriteFile(fs, p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	opts := &Options{Import: ImportOptions{Ignore: []pathrules.Rule{
		{Action: pathrules.ActionExclude, Pattern: "*.bak"},
	}}}
	a := newTestArchive(t, FormatZip, opts)
	if err := a.ImportFS(fs); err != nil {
		t.Fatalf("ImportFS: %v", err)
	}

	got := entryPaths(a)
	slices.Sort(got)
	if !slices.Equal(got, []string{"maps/e1m1.txt", "readme.txt"}) {
		t.Fatalf("imported=%v", got)
	}
	if a.IsModified() {
		t.Fatal("import must leave the archive clean")
	}
	if e := a.EntryAtPath("readme.txt"); e.State() != StateUnmodified {
		t.Fatalf("state=%s, want unmodified", e.State())
	}

	flat := newTestArchive(t, FormatGRP, nil)
	if err := flat.ImportFS(fs); err != nil {
		t.Fatalf("ImportFS(grp): %v", err)
	}

	got = entryNames(flat.Root())
	slices.Sort(got)
	if !slices.Equal(got, []string{"E1M1.TXT", "OLD.BAK", "README.TXT"}) {
		t.Fatalf("grp imported=%v", got)
	}
}

func TestImportDirRejectsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "file.txt")
	writeTree(t, filepath.Dir(path), map[string]string{"file.txt": "x"})

	a := newTestArchive(t, FormatZip, nil)
	if err := a.ImportDir(path); err == nil {
		t.Fatal("ImportDir(file) must fail")
	}
}
