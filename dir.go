// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/woozymasta/lumpkit/entrytype"
)

// Dir is one node of an archive directory tree. Methods on Dir edit the
// tree directly without notifications, undo records or policy checks;
// archive-level changes go through Archive methods.
type Dir struct {
	archive  *Archive
	parent   *Dir
	marker   *Entry
	entries  []*Entry
	subdirs  []*Dir
	allowDup bool
}

// NewDir returns a detached directory node.
func NewDir(name string) *Dir {
	d := &Dir{allowDup: true}
	d.marker = &Entry{name: name, loaded: true, state: StateNew}
	d.marker.typ = entrytype.Default().Folder()
	return d
}

// newRoot returns a root node bound to a.
func newRoot(a *Archive) *Dir {
	d := NewDir("")
	d.archive = a
	d.allowDup = a == nil || a.format.AllowDuplicates
	if a != nil {
		d.marker.typ = a.types.Folder()
	}

	return d
}

// Name returns the directory name; empty for root.
func (d *Dir) Name() string {
	return d.marker.name
}

// Marker returns the synthetic entry representing this directory.
func (d *Dir) Marker() *Entry {
	return d.marker
}

// Parent returns the parent directory or nil for root.
func (d *Dir) Parent() *Dir {
	return d.parent
}

// IsRoot reports whether d has no parent.
func (d *Dir) IsRoot() bool {
	return d.parent == nil
}

// Root returns the topmost ancestor.
func (d *Dir) Root() *Dir {
	for d.parent != nil {
		d = d.parent
	}

	return d
}

// Archive returns the owning archive or nil for a detached tree.
func (d *Dir) Archive() *Archive {
	return d.Root().archive
}

// AllowDuplicates reports whether siblings may share a name.
func (d *Dir) AllowDuplicates() bool {
	return d.allowDup
}

// SetAllowDuplicates changes duplicate-name policy for this node.
func (d *Dir) SetAllowDuplicates(allow bool) {
	d.allowDup = allow
}

// Path returns the slash-separated path from root; "" for root.
func (d *Dir) Path() string {
	if d.parent == nil {
		return ""
	}

	return joinPath(d.parent.Path(), d.marker.name)
}

// Entries returns a copy of the entry list.
func (d *Dir) Entries() []*Entry {
	return slices.Clone(d.entries)
}

// Subdirs returns a copy of the child directory list.
func (d *Dir) Subdirs() []*Dir {
	return slices.Clone(d.subdirs)
}

// NumEntries returns entry count, optionally including all descendants.
func (d *Dir) NumEntries(recursive bool) int {
	n := len(d.entries)
	if recursive {
		for _, sub := range d.subdirs {
			n += sub.NumEntries(true)
		}
	}

	return n
}

// NumSubdirs returns direct child directory count.
func (d *Dir) NumSubdirs() int {
	return len(d.subdirs)
}

// EntryAt returns the entry at index or nil.
func (d *Dir) EntryAt(index int) *Entry {
	if index < 0 || index >= len(d.entries) {
		return nil
	}

	return d.entries[index]
}

// EntryIndex returns the position of e or -1.
func (d *Dir) EntryIndex(e *Entry) int {
	return slices.Index(d.entries, e)
}

// Entry returns the first entry named name, compared case-insensitively.
func (d *Dir) Entry(name string) *Entry {
	for _, e := range d.entries {
		if strings.EqualFold(e.name, name) {
			return e
		}
	}

	return nil
}

// Subdir returns the direct child named name, compared case-insensitively.
func (d *Dir) Subdir(name string) *Dir {
	for _, sub := range d.subdirs {
		if strings.EqualFold(sub.Name(), name) {
			return sub
		}
	}

	return nil
}

// Child resolves a relative path of directory names. It creates nothing
// and returns nil when any segment is missing.
func (d *Dir) Child(p string) *Dir {
	p = NormalizePath(p)
	if p == "" {
		return d
	}

	cur := d
	for seg := range strings.SplitSeq(p, "/") {
		cur = cur.Subdir(seg)
		if cur == nil {
			return nil
		}
	}

	return cur
}

// AddChild resolves p like Child but creates every missing segment. It
// returns the leaf node and the nodes created, outermost first.
func (d *Dir) AddChild(p string) (*Dir, []*Dir) {
	p = NormalizePath(p)
	if p == "" {
		return d, nil
	}

	var created []*Dir
	cur := d
	for seg := range strings.SplitSeq(p, "/") {
		next := cur.Subdir(seg)
		if next == nil {
			next = NewDir(seg)
			cur.attachSubdir(next, -1)
			created = append(created, next)
		}

		cur = next
	}

	return cur, created
}

// attachSubdir inserts sub at pos, clamping out-of-range positions to append.
func (d *Dir) attachSubdir(sub *Dir, pos int) {
	sub.parent = d
	sub.archive = nil
	sub.allowDup = d.allowDup
	if a := d.Archive(); a != nil {
		sub.marker.typ = a.types.Folder()
	}

	if pos < 0 || pos > len(d.subdirs) {
		pos = len(d.subdirs)
	}

	d.subdirs = slices.Insert(d.subdirs, pos, sub)
}

// AddSubdir attaches a detached directory at pos.
func (d *Dir) AddSubdir(sub *Dir, pos int) error {
	if sub.parent != nil || sub.archive != nil {
		return fmt.Errorf("add dir %q: already attached", sub.Name())
	}

	if d.Subdir(sub.Name()) != nil {
		return fmt.Errorf("add dir %q: %w", sub.Name(), ErrInvalidName)
	}

	d.attachSubdir(sub, pos)
	return nil
}

// RemoveChild detaches sub and returns false when it is not a direct child.
func (d *Dir) RemoveChild(sub *Dir) bool {
	i := slices.Index(d.subdirs, sub)
	if i < 0 {
		return false
	}

	d.subdirs = slices.Delete(d.subdirs, i, i+1)
	sub.parent = nil
	return true
}

// SubdirIndex returns the position of sub among children or -1.
func (d *Dir) SubdirIndex(sub *Dir) int {
	return slices.Index(d.subdirs, sub)
}

// AddEntry inserts e at pos. Out-of-range positions append. When duplicates
// are disallowed a clashing name gets a numeric suffix. It returns the
// final position.
func (d *Dir) AddEntry(e *Entry, pos int) int {
	if e.parent != nil {
		e.parent.RemoveEntry(e.parent.EntryIndex(e))
	}

	if !d.allowDup {
		e.name = d.uniqueName(e.name, nil)
	}

	if pos < 0 || pos > len(d.entries) {
		pos = len(d.entries)
	}

	d.entries = slices.Insert(d.entries, pos, e)
	e.parent = d
	return pos
}

// RemoveEntry detaches the entry at index and returns it.
func (d *Dir) RemoveEntry(index int) *Entry {
	if index < 0 || index >= len(d.entries) {
		return nil
	}

	e := d.entries[index]
	d.entries = slices.Delete(d.entries, index, index+1)
	e.parent = nil
	return e
}

// SwapEntries exchanges two positions. It fails on bad indices and locked entries.
func (d *Dir) SwapEntries(i, j int) error {
	if i < 0 || j < 0 || i >= len(d.entries) || j >= len(d.entries) {
		return fmt.Errorf("swap %d,%d of %d: %w", i, j, len(d.entries), ErrIndexOutOfRange)
	}

	if d.entries[i].locked || d.entries[j].locked {
		return ErrLocked
	}

	d.entries[i], d.entries[j] = d.entries[j], d.entries[i]
	return nil
}

// uniqueName returns name or a `name_N.ext` variant not used by siblings other than self.
func (d *Dir) uniqueName(name string, self *Entry) string {
	taken := func(candidate string) bool {
		for _, e := range d.entries {
			if e != self && strings.EqualFold(e.name, candidate) {
				return true
			}
		}

		return false
	}

	if !taken(name) {
		return name
	}

	base, ext := splitExt(name)
	for n := 1; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if ext != "" {
			candidate += "." + ext
		}

		if !taken(candidate) {
			return candidate
		}
	}
}

// Merge moves every entry and subdirectory of other into d. Entries land
// at pos in their original order; subdirectories merge into existing
// children of the same name or are created. Merged entries take state.
// It returns the merged entries in tree order.
func (d *Dir) Merge(other *Dir, pos int, state EntryState) []*Entry {
	if pos < 0 || pos > len(d.entries) {
		pos = len(d.entries)
	}

	moved := make([]*Entry, 0, other.NumEntries(true))
	for _, e := range other.Entries() {
		other.RemoveEntry(other.EntryIndex(e))
		e.state = state
		pos = d.AddEntry(e, pos) + 1
		moved = append(moved, e)
	}

	for _, sub := range other.Subdirs() {
		other.RemoveChild(sub)
		dest, _ := d.AddChild(sub.Name())
		dest.marker.state = state
		moved = append(moved, dest.Merge(sub, -1, state)...)
	}

	return moved
}

// Clone deep-copies the subtree. Copies are detached and new.
func (d *Dir) Clone() *Dir {
	c := NewDir(d.Name())
	c.allowDup = d.allowDup
	c.marker.typ = d.marker.typ
	c.marker.props = maps.Clone(d.marker.props)

	for _, e := range d.entries {
		ce := e.Clone()
		ce.parent = c
		c.entries = append(c.entries, ce)
	}

	for _, sub := range d.subdirs {
		cs := sub.Clone()
		cs.parent = c
		c.subdirs = append(c.subdirs, cs)
	}

	return c
}

// AllEntries returns every entry of the subtree: own entries first, then
// each subdirectory in order.
func (d *Dir) AllEntries() []*Entry {
	out := make([]*Entry, 0, d.NumEntries(true))
	return d.appendEntries(out)
}

func (d *Dir) appendEntries(out []*Entry) []*Entry {
	out = append(out, d.entries...)
	for _, sub := range d.subdirs {
		out = sub.appendEntries(out)
	}

	return out
}

// AllDirs returns every descendant directory in pre-order, excluding d.
func (d *Dir) AllDirs() []*Dir {
	var out []*Dir
	for _, sub := range d.subdirs {
		out = append(out, sub)
		out = append(out, sub.AllDirs()...)
	}

	return out
}

// String returns the directory path.
func (d *Dir) String() string {
	return d.Path()
}
