// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// PropDiskPath is the slash path of a folder entry relative to the folder root (string).
const PropDiskPath = "disk_path"

// folderBackend treats a filesystem directory as the container. It keeps
// the on-disk state seen at the last sync so saves can delete files whose
// entries were removed or renamed, and so external edits can be detected.
type folderBackend struct {
	fs      billy.Filesystem
	files   map[string]time.Time
	dirs    map[string]struct{}
	ignored map[string]time.Time
	root    string
	opts    ImportOptions
}

func newFolderBackend(opts *Options) Backend {
	b := &folderBackend{
		files:   make(map[string]time.Time),
		dirs:    make(map[string]struct{}),
		ignored: make(map[string]time.Time),
	}

	if opts != nil {
		b.opts = opts.Import
	}

	return b
}

func (b *folderBackend) Info() FormatInfo {
	return FormatInfo{
		ID:                  FormatFolder,
		Name:                "Directory",
		NamesHaveExtensions: true,
		SupportsDirs:        true,
		OnDiskDir:           true,
	}
}

// OpenFS opens a billy filesystem as a folder archive. Saves write back to fsys.
func OpenFS(fsys billy.Filesystem, opts *Options) (*Archive, error) {
	a, err := New(FormatFolder, opts)
	if err != nil {
		return nil, err
	}

	b, ok := a.backend.(*folderBackend)
	if !ok {
		return nil, fmt.Errorf("open %s: %w", FormatFolder, ErrUnsupported)
	}

	root, err := b.readFS(a, fsys, fsys.Root())
	if err != nil {
		return nil, err
	}

	a.adopt(a.backend, root, Source{Path: fsys.Root()}, nil, fsys.Root())
	return a, nil
}

func (b *folderBackend) ReadPath(a *Archive, path string) (*Dir, error) {
	path = filepath.Clean(path)
	return b.readFS(a, osfs.New(path), path)
}

// readFS builds the tree from fsys and records it as the synced disk state.
func (b *folderBackend) readFS(a *Archive, fsys billy.Filesystem, rootPath string) (*Dir, error) {
	w, err := newFSWalker(fsys, b.opts)
	if err != nil {
		return nil, err
	}

	files := make(map[string]time.Time)
	dirs := make(map[string]struct{})
	root := newRoot(a)
	err = w.walk("", func(p string, info os.FileInfo) error {
		if info.IsDir() {
			root.AddChild(p)
			dirs[p] = struct{}{}
			return nil
		}

		dirPath, name := splitPath(p)
		dir, _ := root.AddChild(dirPath)
		dir.AddEntry(newDiskEntry(name, p, info), -1)
		files[p] = info.ModTime()
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.fs = fsys
	b.root = rootPath
	b.files = files
	b.dirs = dirs
	clear(b.ignored)
	return root, nil
}

// newDiskEntry returns a sourced entry backed by the file at p.
func newDiskEntry(name string, p string, info os.FileInfo) *Entry {
	e := newSourcedEntry(name, int(info.Size()))
	e.Props()[PropDiskPath] = p
	e.Props()[PropModTime] = info.ModTime()
	return e
}

// Read is unsupported; folder archives open through ReadPath.
func (b *folderBackend) Read(*Archive, Source) (*Dir, error) {
	return nil, fmt.Errorf("read %s stream: %w", FormatFolder, ErrUnsupported)
}

// Write is unsupported; folder archives save through WritePath.
func (b *folderBackend) Write(*Archive, io.Writer) (Commit, error) {
	return nil, fmt.Errorf("write %s stream: %w", FormatFolder, ErrUnsupported)
}

func (b *folderBackend) LoadEntryData(_ *Archive, e *Entry) ([]byte, error) {
	p, ok := prop[string](e, PropDiskPath)
	if !ok || b.fs == nil {
		return nil, fmt.Errorf("%s: %w", e.Path(), ErrNoSource)
	}

	data, err := util.ReadFile(b.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	return data, nil
}

// folderWrite is one file to be written on save.
type folderWrite struct {
	path string
	data []byte
}

// WritePath syncs the tree to path. Saving to the current folder writes
// only changed entries and removes files no longer in the tree; any other
// path receives a full copy and becomes the archive folder.
func (b *folderBackend) WritePath(a *Archive, path string) error {
	target := b.fs
	path = filepath.Clean(path)
	sameRoot := target != nil && path == filepath.Clean(b.root)
	if !sameRoot {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}

		target = osfs.New(path)
	}

	dirs := make(map[string]struct{})
	for _, d := range a.root.AllDirs() {
		if d.IsRoot() {
			continue
		}

		p := d.Path()
		dirs[p] = struct{}{}
		if err := target.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", p, err)
		}
	}

	// Read every pending payload before touching files, so renamed entries
	// still load from their old paths.
	entries := a.root.AllEntries()
	writes := make([]folderWrite, 0, len(entries))
	keep := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		p := e.Path()
		keep[p] = struct{}{}
		if sameRoot && !b.needsWrite(e, p) {
			continue
		}

		data, err := a.payload(e)
		if err != nil {
			return err
		}

		writes = append(writes, folderWrite{path: p, data: data})
	}

	for _, w := range writes {
		if err := util.WriteFile(target, w.path, w.data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", w.path, err)
		}
	}

	if sameRoot {
		b.removeStale(a, keep, dirs)
	}

	files := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		p := e.Path()
		info, err := target.Stat(p)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}

		e.size = int(info.Size())
		e.sourced = true
		e.Props()[PropDiskPath] = p
		e.Props()[PropModTime] = info.ModTime()
		files[p] = info.ModTime()
	}

	b.fs = target
	b.root = path
	b.files = files
	b.dirs = dirs
	return nil
}

// needsWrite reports whether e differs from its synced file at p.
func (b *folderBackend) needsWrite(e *Entry, p string) bool {
	if e.state != StateUnmodified || !e.sourced {
		return true
	}

	diskPath, ok := prop[string](e, PropDiskPath)
	return !ok || diskPath != p
}

// removeStale deletes synced files and directories missing from the tree.
func (b *folderBackend) removeStale(a *Archive, keep map[string]struct{}, dirs map[string]struct{}) {
	for p := range b.files {
		if _, ok := keep[p]; ok {
			continue
		}

		if err := b.fs.Remove(p); err != nil && !isNotExist(err) {
			a.logger.Warn("stale file not removed", slog.String("path", p), slog.Any("error", err))
		}
	}

	stale := make([]string, 0)
	for p := range b.dirs {
		if _, ok := dirs[p]; !ok {
			stale = append(stale, p)
		}
	}

	// Deepest first so parents are empty when reached.
	slices.SortFunc(stale, func(x, y string) int {
		return strings.Count(y, "/") - strings.Count(x, "/")
	})

	for _, p := range stale {
		if err := util.RemoveAll(b.fs, p); err != nil && !isNotExist(err) {
			a.logger.Warn("stale directory not removed", slog.String("path", p), slog.Any("error", err))
		}
	}
}
