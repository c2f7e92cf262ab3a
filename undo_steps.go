// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import "maps"

// Undo steps resolve their targets by directory path and index when they
// run, so they stay valid across unrelated edits and report false once the
// location is gone.

// entryRenameStep reverts an entry rename.
type entryRenameStep struct {
	a       *Archive
	dir     string
	oldName string
	newName string
	index   int
}

func (s *entryRenameStep) apply(name string) bool {
	d := s.a.root.Child(s.dir)
	if d == nil {
		return false
	}

	e := d.EntryAt(s.index)
	if e == nil {
		return false
	}

	return s.a.RenameEntry(e, name) == nil
}

func (s *entryRenameStep) Undo() bool { return s.apply(s.oldName) }
func (s *entryRenameStep) Redo() bool { return s.apply(s.newName) }

// dirRenameStep reverts a directory rename.
type dirRenameStep struct {
	a       *Archive
	parent  string
	oldName string
	newName string
}

func (s *dirRenameStep) apply(from string, to string) bool {
	d := s.a.root.Child(joinPath(s.parent, from))
	if d == nil {
		return false
	}

	return s.a.RenameDir(d, to) == nil
}

func (s *dirRenameStep) Undo() bool { return s.apply(s.newName, s.oldName) }
func (s *dirRenameStep) Redo() bool { return s.apply(s.oldName, s.newName) }

// swapStep replays a swap; it is its own inverse.
type swapStep struct {
	a   *Archive
	dir string
	i   int
	j   int
}

func (s *swapStep) swap() bool {
	d := s.a.root.Child(s.dir)
	if d == nil {
		return false
	}

	return s.a.SwapEntriesAt(s.i, s.j, d) == nil
}

func (s *swapStep) Undo() bool { return s.swap() }
func (s *swapStep) Redo() bool { return s.swap() }

// entryCreateDeleteStep inserts or removes a copy of an entry at a fixed location.
type entryCreateDeleteStep struct {
	a       *Archive
	backup  *Entry
	dir     string
	index   int
	created bool
}

// newEntryCreateStep records that e was inserted at its current location.
func newEntryCreateStep(a *Archive, e *Entry) *entryCreateDeleteStep {
	return &entryCreateDeleteStep{a: a, dir: e.parent.Path(), index: e.Index(), backup: e.Clone(), created: true}
}

// newEntryDeleteStep records that e is about to be removed from its current location.
func newEntryDeleteStep(a *Archive, e *Entry) *entryCreateDeleteStep {
	return &entryCreateDeleteStep{a: a, dir: e.parent.Path(), index: e.Index(), backup: e.Clone()}
}

func (s *entryCreateDeleteStep) insert() bool {
	d := s.a.root.Child(s.dir)
	if d == nil {
		return false
	}

	return s.a.AddEntry(s.backup.Clone(), d, s.index) == nil
}

func (s *entryCreateDeleteStep) remove() bool {
	d := s.a.root.Child(s.dir)
	if d == nil {
		return false
	}

	e := d.EntryAt(s.index)
	if e == nil {
		return false
	}

	return s.a.RemoveEntry(e) == nil
}

func (s *entryCreateDeleteStep) Undo() bool {
	if s.created {
		return s.remove()
	}

	return s.insert()
}

func (s *entryCreateDeleteStep) Redo() bool {
	if s.created {
		return s.insert()
	}

	return s.remove()
}

// dirCreateDeleteStep creates or removes a directory, restoring its
// content from a deep copy.
type dirCreateDeleteStep struct {
	a       *Archive
	backup  *Dir
	parent  string
	name    string
	index   int
	created bool
}

// newDirCreateStep records that d was created empty.
func newDirCreateStep(a *Archive, d *Dir) *dirCreateDeleteStep {
	return &dirCreateDeleteStep{
		a:       a,
		parent:  d.parent.Path(),
		name:    d.Name(),
		index:   d.parent.SubdirIndex(d),
		created: true,
	}
}

// newDirDeleteStep records d and its subtree before removal.
func newDirDeleteStep(a *Archive, d *Dir) *dirCreateDeleteStep {
	return &dirCreateDeleteStep{
		a:      a,
		parent: d.parent.Path(),
		name:   d.Name(),
		index:  d.parent.SubdirIndex(d),
		backup: d.Clone(),
	}
}

func (s *dirCreateDeleteStep) insert() bool {
	parent := s.a.root.Child(s.parent)
	if parent == nil || parent.Subdir(s.name) != nil || s.a.checkMutable() != nil {
		return false
	}

	d := NewDir(s.name)
	parent.attachSubdir(d, s.index)
	if s.backup != nil {
		d.marker.props = maps.Clone(s.backup.marker.props)
		d.Merge(s.backup.Clone(), 0, StateNew)
	}

	s.a.setModified(true)
	s.a.emit(Event{Kind: EventDirAdded, Dir: d, NewIndex: parent.SubdirIndex(d)})
	return true
}

func (s *dirCreateDeleteStep) remove() bool {
	d := s.a.root.Child(joinPath(s.parent, s.name))
	if d == nil {
		return false
	}

	return s.a.RemoveDir(d) == nil
}

func (s *dirCreateDeleteStep) Undo() bool {
	if s.created {
		return s.remove()
	}

	return s.insert()
}

func (s *dirCreateDeleteStep) Redo() bool {
	if s.created {
		return s.insert()
	}

	return s.remove()
}
