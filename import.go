// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/lumpkit/internal/wildcard"
)

// fsWalker visits files and directories of a billy filesystem, applying
// hidden-file and ignore-rule filtering. Paths are slash-separated and
// relative to the filesystem root.
type fsWalker struct {
	fs            billy.Filesystem
	ignore        *pathrules.Matcher
	includeHidden bool
}

// newFSWalker compiles opts.Ignore for walking fsys.
func newFSWalker(fsys billy.Filesystem, opts ImportOptions) (*fsWalker, error) {
	ignore, err := wildcard.NewRuleMatcher(opts.Ignore, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionInclude,
	})
	if err != nil {
		return nil, fmt.Errorf("compile ignore rules: %w", err)
	}

	return &fsWalker{fs: fsys, ignore: ignore, includeHidden: opts.IncludeHidden}, nil
}

// skip reports whether p is filtered out.
func (w *fsWalker) skip(p string, name string, isDir bool) bool {
	if !w.includeHidden && strings.HasPrefix(name, ".") {
		return true
	}

	return w.ignore != nil && !w.ignore.Included(p, isDir)
}

// walk calls fn for every kept entry below dir in lexical order, parents
// before children. Skipped directories are not descended into.
func (w *fsWalker) walk(dir string, fn func(p string, info os.FileInfo) error) error {
	infos, err := w.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, info := range infos {
		p := joinPath(dir, info.Name())
		if w.skip(p, info.Name(), info.IsDir()) {
			continue
		}

		if !info.IsDir() && !info.Mode().IsRegular() {
			continue
		}

		if err := fn(p, info); err != nil {
			return err
		}

		if info.IsDir() {
			if err := w.walk(p, fn); err != nil {
				return err
			}
		}
	}

	return nil
}

// ImportDir imports a filesystem directory as entries under the archive
// root, keeping relative structure. Imported entries are detected and left
// unmodified, becoming the archive's clean baseline.
func (a *Archive) ImportDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("import %s: %w", path, fs.ErrInvalid)
	}

	return a.ImportFS(osfs.New(filepath.Clean(path)))
}

// ImportFS imports every file of fsys like ImportDir.
func (a *Archive) ImportFS(fsys billy.Filesystem) error {
	if err := a.checkMutable(); err != nil {
		return err
	}

	w, err := newFSWalker(fsys, a.opts.Import)
	if err != nil {
		return err
	}

	tree := NewDir("")
	err = w.walk("", func(p string, info os.FileInfo) error {
		if info.IsDir() {
			if a.format.SupportsDirs {
				tree.AddChild(p)
			}

			return nil
		}

		data, err := util.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("import %s: %w", p, err)
		}

		dir := tree
		dirPath, name := splitPath(p)
		if a.format.SupportsDirs {
			dir, _ = tree.AddChild(dirPath)
		}

		e := NewEntry(a.format.FormatName(name), data)
		dir.AddEntry(e, -1)
		return nil
	})
	if err != nil {
		return err
	}

	wasModified := a.modified
	added, err := a.Paste(tree, nil, -1)
	if err != nil {
		return err
	}

	for _, e := range added {
		e.state = StateUnmodified
		e.DetectType()
	}

	a.setModified(wasModified)
	return nil
}

// isNotExist reports whether err is a missing-file error from any filesystem.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}
