// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"fmt"
	"slices"
	"strings"
)

// checkMutable rejects changes to closed or read-only archives.
func (a *Archive) checkMutable() error {
	if a.closed {
		return ErrClosed
	}

	if a.readOnly {
		return ErrReadOnly
	}

	return nil
}

// checkEntry validates that e is a mutable entry of this archive.
func (a *Archive) checkEntry(e *Entry) error {
	if err := a.checkMutable(); err != nil {
		return err
	}

	if !a.owns(e) {
		return ErrNotInArchive
	}

	if e.locked {
		return fmt.Errorf("%s: %w", e.Path(), ErrLocked)
	}

	return nil
}

// resolveDir maps nil to root and validates ownership.
func (a *Archive) resolveDir(d *Dir) (*Dir, error) {
	if d == nil {
		return a.root, nil
	}

	if !a.ownsDir(d) {
		return nil, ErrNotInArchive
	}

	return d, nil
}

// recording reports whether mutations should record undo steps.
func (a *Archive) recording() bool {
	return a.undo.IsRecording()
}

// AddEntry inserts a detached entry into dir (root when nil) at pos.
// Out-of-range positions append. The entry becomes new.
func (a *Archive) AddEntry(e *Entry, dir *Dir, pos int) error {
	if err := a.checkMutable(); err != nil {
		return err
	}

	if e.parent != nil {
		return fmt.Errorf("add %s: %w", e.name, ErrEntryAttached)
	}

	dir, err := a.resolveDir(dir)
	if err != nil {
		return err
	}

	e.name = a.format.FormatName(e.name)
	e.state = StateNew
	pos = dir.AddEntry(e, pos)
	if e.typ == nil {
		e.DetectType()
	}

	if a.recording() {
		a.undo.RecordStep(newEntryCreateStep(a, e))
	}
	a.setModified(true)
	a.emit(Event{Kind: EventEntryAdded, Entry: e, Dir: dir, OldIndex: -1, NewIndex: pos})
	return nil
}

// AddNewEntry creates an empty entry named name in dir at pos.
func (a *Archive) AddNewEntry(name string, dir *Dir, pos int) (*Entry, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	e := NewEntry(name, nil)
	if err := a.AddEntry(e, dir, pos); err != nil {
		return nil, err
	}

	return e, nil
}

// AddEntryAtPath creates an entry from data at a slash path, creating
// missing directories.
func (a *Archive) AddEntryAtPath(p string, data []byte) (*Entry, error) {
	dirPath, name := splitPath(p)
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntryPath, p)
	}

	dir := a.root
	if dirPath != "" {
		var err error
		if dir, err = a.CreateDir(dirPath, nil); err != nil {
			return nil, err
		}
	}

	e := NewEntry(name, data)
	if err := a.AddEntry(e, dir, -1); err != nil {
		return nil, err
	}

	return e, nil
}

// RemoveEntry detaches e. Listeners see EventEntryRemoving while e is still attached.
func (a *Archive) RemoveEntry(e *Entry) error {
	if err := a.checkEntry(e); err != nil {
		return err
	}

	dir := e.parent
	index := dir.EntryIndex(e)
	if a.recording() {
		a.undo.RecordStep(newEntryDeleteStep(a, e))
	}
	a.emit(Event{Kind: EventEntryRemoving, Entry: e, Dir: dir, OldIndex: index, NewIndex: -1})

	dir.RemoveEntry(index)
	a.setModified(true)
	return nil
}

// RenameEntry changes e's name, applying format naming rules.
func (a *Archive) RenameEntry(e *Entry, name string) error {
	if err := a.checkEntry(e); err != nil {
		return err
	}

	if err := validateName(name); err != nil {
		return err
	}

	name = a.format.FormatName(name)
	if !e.parent.allowDup {
		name = e.parent.uniqueName(name, e)
	}

	if name == e.name {
		return nil
	}

	old := e.name
	if a.recording() {
		a.undo.RecordStep(&entryRenameStep{a: a, dir: e.parent.Path(), index: e.Index(), oldName: old, newName: name})
	}

	e.name = name
	e.setState(StateModified)
	e.DetectType()

	a.setModified(true)
	a.emit(Event{Kind: EventEntryRenamed, Entry: e, Dir: e.parent, OldName: old, OldIndex: e.Index(), NewIndex: e.Index()})
	return nil
}

// MoveEntry relocates e to dir (its own when nil) at pos, as a removal
// followed by an insertion.
func (a *Archive) MoveEntry(e *Entry, dir *Dir, pos int) error {
	if err := a.checkEntry(e); err != nil {
		return err
	}

	if dir == nil {
		dir = e.parent
	}

	if !a.ownsDir(dir) {
		return ErrNotInArchive
	}

	from := e.parent
	oldIndex := from.EntryIndex(e)
	if from == dir && pos == oldIndex {
		return nil
	}

	if a.recording() {
		a.undo.RecordStep(newEntryDeleteStep(a, e))
	}
	a.emit(Event{Kind: EventEntryRemoving, Entry: e, Dir: from, OldIndex: oldIndex, NewIndex: -1})
	from.RemoveEntry(oldIndex)

	newIndex := dir.AddEntry(e, pos)
	e.setState(StateModified)
	if a.recording() {
		a.undo.RecordStep(newEntryCreateStep(a, e))
	}

	a.setModified(true)
	a.emit(Event{Kind: EventEntryAdded, Entry: e, Dir: dir, OldIndex: oldIndex, NewIndex: newIndex})
	return nil
}

// SwapEntries exchanges two entries of the same directory.
func (a *Archive) SwapEntries(e1 *Entry, e2 *Entry) error {
	if err := a.checkEntry(e1); err != nil {
		return err
	}

	if err := a.checkEntry(e2); err != nil {
		return err
	}

	if e1.parent != e2.parent {
		return fmt.Errorf("swap %s and %s: different directories", e1.Path(), e2.Path())
	}

	return a.SwapEntriesAt(e1.Index(), e2.Index(), e1.parent)
}

// SwapEntriesAt exchanges two positions in dir (root when nil).
func (a *Archive) SwapEntriesAt(i int, j int, dir *Dir) error {
	if err := a.checkMutable(); err != nil {
		return err
	}

	dir, err := a.resolveDir(dir)
	if err != nil {
		return err
	}

	if err := dir.SwapEntries(i, j); err != nil {
		return err
	}

	if a.recording() {
		a.undo.RecordStep(&swapStep{a: a, dir: dir.Path(), i: i, j: j})
	}
	a.setModified(true)
	a.emit(Event{Kind: EventEntryModified, Entry: dir.entries[j], Dir: dir, OldIndex: i, NewIndex: j})
	a.emit(Event{Kind: EventEntryModified, Entry: dir.entries[i], Dir: dir, OldIndex: j, NewIndex: i})
	return nil
}

// RevertEntry reloads e from the archive source when it was modified.
func (a *Archive) RevertEntry(e *Entry) error {
	if !a.owns(e) {
		return ErrNotInArchive
	}

	if e.state != StateModified {
		return nil
	}

	if !e.sourced {
		return fmt.Errorf("revert %s: %w", e.Path(), ErrNoSource)
	}

	prevData, prevLoaded := e.data, e.loaded
	e.loaded = false
	e.data = nil
	if err := e.LoadData(); err != nil {
		e.data, e.loaded = prevData, prevLoaded
		return fmt.Errorf("revert %s: %w", e.Path(), err)
	}

	e.state = StateUnmodified
	e.DetectType()
	a.emit(Event{Kind: EventEntryModified, Entry: e, Dir: e.parent, OldIndex: e.Index(), NewIndex: e.Index()})
	return nil
}

// CreateDir returns the directory at p below base (root when nil),
// creating every missing segment. Existing paths return the existing node.
func (a *Archive) CreateDir(p string, base *Dir) (*Dir, error) {
	if err := a.checkMutable(); err != nil {
		return nil, err
	}

	base, err := a.resolveDir(base)
	if err != nil {
		return nil, err
	}

	if !a.format.SupportsDirs && NormalizePath(p) != "" {
		return nil, fmt.Errorf("create dir %q: %w", p, ErrUnsupported)
	}

	dir, created := base.AddChild(p)
	for _, d := range created {
		if a.recording() {
			a.undo.RecordStep(newDirCreateStep(a, d))
		}
		a.emit(Event{Kind: EventDirAdded, Dir: d, NewIndex: d.parent.SubdirIndex(d)})
	}

	if len(created) > 0 {
		a.setModified(true)
	}

	return dir, nil
}

// RemoveDir detaches d and its subtree. The root cannot be removed and
// a subtree holding locked entries is rejected.
func (a *Archive) RemoveDir(d *Dir) error {
	if err := a.checkMutable(); err != nil {
		return err
	}

	if !a.ownsDir(d) {
		return ErrNotInArchive
	}

	if d.IsRoot() {
		return ErrRootDir
	}

	if slices.ContainsFunc(d.AllEntries(), func(e *Entry) bool { return e.locked }) {
		return fmt.Errorf("remove dir %s: %w", d.Path(), ErrLocked)
	}

	if a.recording() {
		a.undo.RecordStep(newDirDeleteStep(a, d))
	}
	a.emit(Event{Kind: EventDirRemoving, Dir: d, OldIndex: d.parent.SubdirIndex(d), NewIndex: -1})

	d.parent.RemoveChild(d)
	a.setModified(true)
	return nil
}

// RemoveDirAtPath removes the directory at p.
func (a *Archive) RemoveDirAtPath(p string) error {
	d := a.root.Child(p)
	if d == nil {
		return fmt.Errorf("%w: %q", ErrDirNotFound, p)
	}

	return a.RemoveDir(d)
}

// RenameDir renames d. A case-insensitively equal name is a no-op.
func (a *Archive) RenameDir(d *Dir, name string) error {
	if err := a.checkMutable(); err != nil {
		return err
	}

	if !a.ownsDir(d) {
		return ErrNotInArchive
	}

	if d.IsRoot() {
		return ErrRootDir
	}

	if strings.EqualFold(d.Name(), name) {
		return nil
	}

	if err := validateName(name); err != nil {
		return err
	}

	if slices.ContainsFunc(d.AllEntries(), func(e *Entry) bool { return e.locked }) {
		return fmt.Errorf("rename dir %s: %w", d.Path(), ErrLocked)
	}

	if d.parent.Subdir(name) != nil {
		return fmt.Errorf("rename dir %s: %w", d.Path(), ErrDirExists)
	}

	old := d.Name()
	if a.recording() {
		a.undo.RecordStep(&dirRenameStep{a: a, parent: d.parent.Path(), oldName: old, newName: name})
	}

	d.marker.name = name
	d.marker.setState(StateModified)

	a.setModified(true)
	a.emit(Event{Kind: EventDirRenamed, Dir: d, OldName: old, OldIndex: -1, NewIndex: -1})
	return nil
}

// Paste merges a copy of tree into base (root when nil) at pos and returns
// the inserted entries. Flat formats ignore nested structure and put every
// entry into root.
func (a *Archive) Paste(tree *Dir, base *Dir, pos int) ([]*Entry, error) {
	if err := a.checkMutable(); err != nil {
		return nil, err
	}

	base, err := a.resolveDir(base)
	if err != nil {
		return nil, err
	}

	src := tree.Clone()
	if !a.format.SupportsDirs {
		flat := NewDir("")
		for _, e := range src.AllEntries() {
			e.parent.RemoveEntry(e.parent.EntryIndex(e))
			flat.AddEntry(e, -1)
		}

		src = flat
		base = a.root
	}

	for _, e := range src.AllEntries() {
		e.name = a.format.FormatName(e.name)
	}

	existing := base.AllDirs()
	merged := base.Merge(src, pos, StateNew)

	for _, d := range base.AllDirs() {
		if slices.Contains(existing, d) {
			continue
		}

		if a.recording() {
			a.undo.RecordStep(newDirCreateStep(a, d))
		}
		a.emit(Event{Kind: EventDirAdded, Dir: d, NewIndex: d.parent.SubdirIndex(d)})
	}

	for _, e := range merged {
		if a.recording() {
			a.undo.RecordStep(newEntryCreateStep(a, e))
		}
		a.emit(Event{Kind: EventEntryAdded, Entry: e, Dir: e.parent, OldIndex: -1, NewIndex: e.Index()})
	}

	if len(merged) > 0 {
		a.setModified(true)
	}

	return merged, nil
}
