// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/util"

	"github.com/woozymasta/lumpkit/membuf"
)

// ChangeKind classifies an external change to a folder archive.
type ChangeKind uint8

// External change kinds.
const (
	ChangeUpdated ChangeKind = iota
	ChangeDeletedFile
	ChangeDeletedDir
	ChangeAddedDir
	ChangeAddedFile
)

var changeKindNames = [...]string{"updated", "deleted_file", "deleted_dir", "added_dir", "added_file"}

func (k ChangeKind) String() string {
	if int(k) < len(changeKindNames) {
		return changeKindNames[k]
	}

	return fmt.Sprintf("change(%d)", k)
}

// DirChange is one difference between a folder archive and its directory.
type DirChange struct {
	// ModTime is the file time on disk; zero for deletions and directories.
	ModTime time.Time `json:"mod_time,omitzero" yaml:"mod_time,omitempty"`
	// Path is the slash path relative to the folder root.
	Path string `json:"path" yaml:"path"`
	// Kind classifies the change.
	Kind ChangeKind `json:"kind" yaml:"kind"`
}

// folder returns the folder backend of a.
func (a *Archive) folder() (*folderBackend, error) {
	b, ok := a.backend.(*folderBackend)
	if !ok || b.fs == nil {
		return nil, fmt.Errorf("%s archive: %w", a.format.ID, ErrUnsupported)
	}

	return b, nil
}

// CheckChanges compares a folder archive with its directory and reports
// changes made outside the archive since the last open or save. Changes
// passed to IgnoreChange are skipped until the file changes again.
func (a *Archive) CheckChanges() ([]DirChange, error) {
	b, err := a.folder()
	if err != nil {
		return nil, err
	}

	w, err := newFSWalker(b.fs, b.opts)
	if err != nil {
		return nil, err
	}

	diskFiles := make(map[string]time.Time)
	diskDirs := make(map[string]struct{})
	err = w.walk("", func(p string, info os.FileInfo) error {
		if info.IsDir() {
			diskDirs[p] = struct{}{}
		} else {
			diskFiles[p] = info.ModTime()
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	var changes []DirChange
	add := func(c DirChange) {
		if t, ok := b.ignored[c.Path]; ok && t.Equal(c.ModTime) {
			return
		}

		changes = append(changes, c)
	}

	treeFiles := make(map[string]struct{})
	for _, e := range a.root.AllEntries() {
		p := e.Path()
		treeFiles[p] = struct{}{}

		diskPath, ok := prop[string](e, PropDiskPath)
		if !ok || diskPath != p || !e.sourced {
			continue
		}

		mt, onDisk := diskFiles[p]
		switch {
		case !onDisk:
			add(DirChange{Path: p, Kind: ChangeDeletedFile})
		case b.fileChanged(e, mt):
			add(DirChange{Path: p, Kind: ChangeUpdated, ModTime: mt})
		}
	}

	treeDirs := make(map[string]struct{})
	for _, d := range a.root.AllDirs() {
		if d.IsRoot() {
			continue
		}

		p := d.Path()
		treeDirs[p] = struct{}{}
		if _, synced := b.dirs[p]; !synced {
			continue
		}

		if _, onDisk := diskDirs[p]; !onDisk {
			add(DirChange{Path: p, Kind: ChangeDeletedDir})
		}
	}

	for p := range diskDirs {
		_, inTree := treeDirs[p]
		_, synced := b.dirs[p]
		if !inTree && !synced {
			add(DirChange{Path: p, Kind: ChangeAddedDir})
		}
	}

	for p, mt := range diskFiles {
		_, inTree := treeFiles[p]
		_, synced := b.files[p]
		if !inTree && !synced {
			add(DirChange{Path: p, Kind: ChangeAddedFile, ModTime: mt})
		}
	}

	slices.SortFunc(changes, func(x, y DirChange) int {
		return cmp.Or(strings.Compare(x.Path, y.Path), cmp.Compare(x.Kind, y.Kind))
	})

	return changes, nil
}

// fileChanged reports whether the disk time of e's file moved since sync.
func (b *folderBackend) fileChanged(e *Entry, diskTime time.Time) bool {
	synced, ok := prop[time.Time](e, PropModTime)
	return !ok || !synced.Equal(diskTime)
}

// IgnoreChange suppresses c in later CheckChanges results until the file
// time on disk differs from c.ModTime.
func (a *Archive) IgnoreChange(c DirChange) error {
	b, err := a.folder()
	if err != nil {
		return err
	}

	b.ignored[c.Path] = c.ModTime
	return nil
}

// ApplyChanges updates the tree to match external changes. Applying the
// same changes again is a no-op. The archive modified flag is unchanged.
func (a *Archive) ApplyChanges(changes []DirChange) error {
	b, err := a.folder()
	if err != nil {
		return err
	}

	if err := a.checkMutable(); err != nil {
		return err
	}

	wasModified := a.modified
	defer a.setModified(wasModified)

	for _, c := range changes {
		if err := b.applyChange(a, c); err != nil {
			return fmt.Errorf("apply %s %s: %w", c.Kind, c.Path, err)
		}

		delete(b.ignored, c.Path)
	}

	return nil
}

func (b *folderBackend) applyChange(a *Archive, c DirChange) error {
	switch c.Kind {
	case ChangeUpdated:
		e := a.EntryAtPath(c.Path)
		if e == nil {
			return nil
		}

		return b.reloadEntry(a, e, c.Path)

	case ChangeDeletedFile:
		delete(b.files, c.Path)
		if e := a.EntryAtPath(c.Path); e != nil {
			return a.RemoveEntry(e)
		}

	case ChangeDeletedDir:
		for p := range b.dirs {
			if p == c.Path || strings.HasPrefix(p, c.Path+"/") {
				delete(b.dirs, p)
			}
		}

		for p := range b.files {
			if strings.HasPrefix(p, c.Path+"/") {
				delete(b.files, p)
			}
		}

		if d := a.Dir(c.Path); d != nil && !d.IsRoot() {
			return a.RemoveDir(d)
		}

	case ChangeAddedDir:
		d, err := a.CreateDir(c.Path, nil)
		if err != nil {
			return err
		}

		d.marker.state = StateUnmodified
		b.dirs[c.Path] = struct{}{}

	case ChangeAddedFile:
		if a.EntryAtPath(c.Path) != nil {
			return nil
		}

		info, err := b.fs.Stat(c.Path)
		if err != nil {
			if isNotExist(err) {
				return nil
			}

			return err
		}

		return b.addDiskEntry(a, c.Path, info)
	}

	return nil
}

// reloadEntry replaces e's payload with the file contents on disk.
func (b *folderBackend) reloadEntry(a *Archive, e *Entry, p string) error {
	if err := a.checkEntry(e); err != nil {
		return err
	}

	info, err := b.fs.Stat(p)
	if err != nil {
		return err
	}

	data, err := util.ReadFile(b.fs, p)
	if err != nil {
		return err
	}

	e.data = membuf.FromBytes(data)
	e.loaded = true
	e.size = len(data)
	e.sourced = true
	e.state = StateUnmodified
	e.Props()[PropDiskPath] = p
	e.Props()[PropModTime] = info.ModTime()
	b.files[p] = info.ModTime()
	e.DetectType()
	a.entryModified(e)
	return nil
}

// addDiskEntry adds an unmodified entry backed by the file at p.
func (b *folderBackend) addDiskEntry(a *Archive, p string, info os.FileInfo) error {
	dirPath, name := splitPath(p)
	dir := a.root
	if dirPath != "" {
		var err error
		if dir, err = a.CreateDir(dirPath, nil); err != nil {
			return err
		}
	}

	e := newDiskEntry(name, p, info)
	if err := a.AddEntry(e, dir, -1); err != nil {
		return err
	}

	e.state = StateUnmodified
	b.files[p] = info.ModTime()
	return nil
}
