// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"slices"
	"testing"
)

// searchFixture builds a zip tree with repeated names at several depths.
func searchFixture(t *testing.T) *Archive {
	t.Helper()

	a := newTestArchive(t, FormatZip, nil)
	for _, p := range []string{"a.txt", "b.lmp", "sub1/a.txt", "sub1/deep/a.txt", "sub2/a.txt"} {
		mustAdd(t, a, p, []byte(p))
	}
	mustAdd(t, a, "sub2/empty", nil)

	return a
}

// paths returns entry paths in order.
func paths(entries []*Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path())
	}

	return out
}

func TestFindFirstLast(t *testing.T) {
	t.Parallel()

	a := searchFixture(t)
	cases := []struct {
		name      string
		opts      SearchOptions
		wantFirst string
		wantLast  string
	}{
		{
			name:      "recursive",
			opts:      SearchOptions{Name: "A.TXT", Recursive: true},
			wantFirst: "a.txt",
			wantLast:  "sub2/a.txt",
		},
		{
			name:      "flat",
			opts:      SearchOptions{Name: "a.txt"},
			wantFirst: "a.txt",
			wantLast:  "a.txt",
		},
		{
			name:      "start dir",
			opts:      SearchOptions{Name: "*.txt", Dir: a.Dir("sub1"), Recursive: true},
			wantFirst: "sub1/a.txt",
			wantLast:  "sub1/deep/a.txt",
		},
		{
			name:      "ignore ext",
			opts:      SearchOptions{Name: "b", IgnoreExt: true},
			wantFirst: "b.lmp",
			wantLast:  "b.lmp",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first := a.FindFirst(tc.opts)
			if first == nil || first.Path() != tc.wantFirst {
				t.Fatalf("FindFirst=%v, want %s", first, tc.wantFirst)
			}

			last := a.FindLast(tc.opts)
			if last == nil || last.Path() != tc.wantLast {
				t.Fatalf("FindLast=%v, want %s", last, tc.wantLast)
			}
		})
	}
}

func TestFindAll(t *testing.T) {
	t.Parallel()

	a := searchFixture(t)
	got := paths(a.FindAll(SearchOptions{Name: "a.*", Recursive: true}))
	want := []string{"a.txt", "sub1/a.txt", "sub1/deep/a.txt", "sub2/a.txt"}
	if !slices.Equal(got, want) {
		t.Fatalf("FindAll=%v, want %v", got, want)
	}

	got = paths(a.FindAll(SearchOptions{Namespace: "SUB1", Recursive: true}))
	if !slices.Equal(got, []string{"sub1/a.txt", "sub1/deep/a.txt"}) {
		t.Fatalf("FindAll(namespace)=%v", got)
	}

	got = paths(a.FindAll(SearchOptions{Type: a.Types().Marker(), Recursive: true}))
	if !slices.Equal(got, []string{"sub2/empty"}) {
		t.Fatalf("FindAll(marker)=%v", got)
	}

	if all := a.FindAll(SearchOptions{Recursive: true}); len(all) != a.NumEntries() {
		t.Fatalf("unfiltered FindAll=%d, want %d", len(all), a.NumEntries())
	}
}

func TestFindNoMatch(t *testing.T) {
	t.Parallel()

	a := searchFixture(t)
	if e := a.FindFirst(SearchOptions{Name: "missing*", Recursive: true}); e != nil {
		t.Fatalf("FindFirst=%v, want nil", e)
	}
	if e := a.FindLast(SearchOptions{Dir: NewDir("foreign")}); e != nil {
		t.Fatalf("FindLast(foreign dir)=%v, want nil", e)
	}
	if got := a.FindAll(SearchOptions{Name: "*.wad", Recursive: true}); len(got) != 0 {
		t.Fatalf("FindAll=%v, want none", paths(got))
	}
}

func TestSearchOrderAcrossSubdir(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t, FormatZip, nil)
	for _, p := range []string{"A", "B", "S/C", "S/D"} {
		mustAdd(t, a, p, []byte(p))
	}

	opts := SearchOptions{Recursive: true}
	if got := paths(a.FindAll(opts)); !slices.Equal(got, []string{"A", "B", "S/C", "S/D"}) {
		t.Fatalf("FindAll=%v, want [A B S/C S/D]", got)
	}
	if e := a.FindFirst(opts); e == nil || e.Path() != "A" {
		t.Fatalf("FindFirst=%v, want A", e)
	}
	if e := a.FindLast(opts); e == nil || e.Path() != "S/D" {
		t.Fatalf("FindLast=%v, want S/D", e)
	}
}
