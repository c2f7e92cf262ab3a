// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"slices"
	"testing"

	"github.com/woozymasta/lumpkit/undo"
)

// newUndoArchive returns a zip archive recording into a fresh manager.
func newUndoArchive(t *testing.T) (*Archive, *undo.Manager) {
	t.Helper()

	mgr := undo.NewManager(nil)
	return newTestArchive(t, FormatZip, &Options{Undo: mgr}), mgr
}

// record runs fn inside one named undo level.
func record(t *testing.T, mgr *undo.Manager, name string, fn func() error) {
	t.Helper()

	mgr.BeginRecord(name)
	err := fn()
	mgr.EndRecord(err == nil)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
}

func TestUndoRedoAddEntry(t *testing.T) {
	t.Parallel()

	a, mgr := newUndoArchive(t)
	record(t, mgr, "add", func() error {
		_, err := a.AddEntryAtPath("docs/readme.txt", []byte("hello"))
		return err
	})

	name, ok := mgr.Undo()
	if !ok || name != "add" {
		t.Fatalf("Undo=(%q,%v), want (add,true)", name, ok)
	}
	if a.EntryAtPath("docs/readme.txt") != nil || a.Dir("docs") != nil {
		t.Fatal("undo must remove entry and created dir")
	}
	if !mgr.CanRedo() {
		t.Fatal("CanRedo must be true after undo")
	}

	if _, ok := mgr.Redo(); !ok {
		t.Fatal("Redo failed")
	}

	e := a.EntryAtPath("docs/readme.txt")
	if e == nil || string(e.Data()) != "hello" {
		t.Fatal("redo must restore entry with payload")
	}
}

func TestUndoRename(t *testing.T) {
	t.Parallel()

	a, mgr := newUndoArchive(t)
	e := mustAdd(t, a, "old.txt", []byte("x"))
	record(t, mgr, "rename", func() error { return a.RenameEntry(e, "new.txt") })

	if _, ok := mgr.Undo(); !ok {
		t.Fatal("Undo failed")
	}
	if e.Name() != "old.txt" {
		t.Fatalf("name after undo=%q, want old.txt", e.Name())
	}

	if _, ok := mgr.Redo(); !ok {
		t.Fatal("Redo failed")
	}
	if e.Name() != "new.txt" {
		t.Fatalf("name after redo=%q, want new.txt", e.Name())
	}
}

func TestUndoRemoveDir(t *testing.T) {
	t.Parallel()

	a, mgr := newUndoArchive(t)
	mustAdd(t, a, "gfx/a.png", []byte("a"))
	mustAdd(t, a, "gfx/ui/b.png", []byte("b"))
	mustAdd(t, a, "other.txt", []byte("o"))

	record(t, mgr, "remove dir", func() error { return a.RemoveDirAtPath("gfx") })
	if a.Dir("gfx") != nil {
		t.Fatal("gfx must be removed")
	}

	if _, ok := mgr.Undo(); !ok {
		t.Fatal("Undo failed")
	}

	want := []string{"other.txt", "gfx/a.png", "gfx/ui/b.png"}
	if got := entryPaths(a); !slices.Equal(got, want) {
		t.Fatalf("paths after undo=%v, want %v", got, want)
	}
	if got := string(a.EntryAtPath("gfx/ui/b.png").Data()); got != "b" {
		t.Fatalf("restored payload=%q, want b", got)
	}
}

func TestUndoSwapAndMove(t *testing.T) {
	t.Parallel()

	a, mgr := newUndoArchive(t)
	mustAdd(t, a, "a", nil)
	mustAdd(t, a, "b", nil)
	mustAdd(t, a, "c", nil)

	record(t, mgr, "swap", func() error { return a.SwapEntriesAt(0, 2, nil) })
	if got := entryNames(a.Root()); !slices.Equal(got, []string{"c", "b", "a"}) {
		t.Fatalf("after swap=%v", got)
	}

	record(t, mgr, "move", func() error { return a.MoveEntry(a.EntryAtPath("c"), nil, 2) })
	if got := entryNames(a.Root()); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Fatalf("after move=%v", got)
	}

	if got := mgr.Levels(); !slices.Equal(got, []string{"swap", "move"}) {
		t.Fatalf("Levels=%v", got)
	}

	for range 2 {
		if _, ok := mgr.Undo(); !ok {
			t.Fatal("Undo failed")
		}
	}

	if got := entryNames(a.Root()); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("after undo=%v", got)
	}
	if mgr.CanUndo() {
		t.Fatal("CanUndo must be false after undoing every level")
	}
}

func TestUndoDoesNotRecordOutsideLevel(t *testing.T) {
	t.Parallel()

	a, mgr := newUndoArchive(t)
	mustAdd(t, a, "a.txt", nil)
	if mgr.CanUndo() {
		t.Fatal("mutations outside a level must not be recorded")
	}

	mgr.BeginRecord("discarded")
	mustAdd(t, a, "b.txt", nil)
	mgr.EndRecord(false)
	if mgr.CanUndo() {
		t.Fatal("failed level must be discarded")
	}
}

// snapshot lists every entry as "path=payload" in tree order.
func snapshot(a *Archive) []string {
	out := make([]string, 0, a.NumEntries())
	for _, e := range a.Entries() {
		out = append(out, e.Path()+"="+string(e.Data()))
	}

	return out
}

func TestUndoRedoCycles(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		files  []string
		mutate func(a *Archive) error
	}{
		{
			name:   "remove nested dir",
			files:  []string{"gfx/a.png", "gfx/ui/b.png", "gfx/ui/icons/c.png", "other.txt"},
			mutate: func(a *Archive) error { return a.RemoveDirAtPath("gfx") },
		},
		{
			name:   "rename dir",
			files:  []string{"maps/e1m1.txt", "maps/sub/e1m2.txt", "readme.txt"},
			mutate: func(a *Archive) error { return a.RenameDir(a.Dir("maps"), "levels") },
		},
		{
			name:   "swap entries",
			files:  []string{"a", "b", "c"},
			mutate: func(a *Archive) error { return a.SwapEntriesAt(0, 2, nil) },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a, mgr := newUndoArchive(t)
			for _, p := range tc.files {
				mustAdd(t, a, p, []byte("data of "+p))
			}

			before := snapshot(a)
			record(t, mgr, tc.name, func() error { return tc.mutate(a) })
			after := snapshot(a)
			if slices.Equal(before, after) {
				t.Fatal("mutation did not change the tree")
			}

			steps := []struct {
				op   func() (string, bool)
				want []string
			}{
				{op: mgr.Undo, want: before},
				{op: mgr.Redo, want: after},
				{op: mgr.Undo, want: before},
			}
			for i, step := range steps {
				if _, ok := step.op(); !ok {
					t.Fatalf("step %d failed", i)
				}
				if got := snapshot(a); !slices.Equal(got, step.want) {
					t.Fatalf("step %d tree=%v, want %v", i, got, step.want)
				}
			}
		})
	}
}

func TestUndoFailsWhenTargetGone(t *testing.T) {
	t.Parallel()

	a, mgr := newUndoArchive(t)
	e := mustAdd(t, a, "x/a.txt", []byte("a"))
	mustAdd(t, a, "keep.txt", []byte("k"))
	record(t, mgr, "rename", func() error { return a.RenameEntry(e, "b.txt") })

	if err := a.RemoveDirAtPath("x"); err != nil {
		t.Fatalf("RemoveDirAtPath: %v", err)
	}

	before := snapshot(a)
	name, ok := mgr.Undo()
	if ok || name != "rename" {
		t.Fatalf("Undo=(%q,%v), want (rename,false)", name, ok)
	}
	if got := snapshot(a); !slices.Equal(got, before) {
		t.Fatalf("tree=%v, want %v", got, before)
	}
	if a.Dir("x") != nil {
		t.Fatal("failed undo must not recreate the directory")
	}
}
