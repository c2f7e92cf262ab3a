// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/woozymasta/lumpkit/entrytype"
	"github.com/woozymasta/lumpkit/membuf"
	"github.com/woozymasta/lumpkit/undo"
)

// Archive owns one directory tree and the backend that reads and writes it.
// An Archive is not safe for concurrent use.
type Archive struct {
	backend      Backend
	srcCloser    io.Closer
	logger       *slog.Logger
	types        *entrytype.Registry
	formats      *Formats
	undo         *undo.Manager
	root         *Dir
	parentEntry  *Entry
	src          Source
	filename     string
	listeners    []listenerSlot
	format       FormatInfo
	opts         Options
	nextListener int
	readOnly     bool
	modified     bool
	onDisk       bool
	closed       bool
}

// New returns an empty archive of the given format id.
func New(format string, opts *Options) (*Archive, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.applyDefaults()

	backend, err := o.Formats.newBackend(format, &o)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		opts:     o,
		logger:   o.Logger,
		types:    o.Types,
		formats:  o.Formats,
		undo:     o.Undo,
		backend:  backend,
		format:   backend.Info(),
		readOnly: o.ReadOnly,
	}
	a.root = newRoot(a)
	return a, nil
}

// OpenFile detects the container format of path and opens it. Directories
// open as folder archives.
func OpenFile(path string, opts *Options) (*Archive, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if info.IsDir() {
		a, err := New(FormatFolder, opts)
		if err != nil {
			return nil, err
		}

		return a, a.Open(path)
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	o.applyDefaults()

	head, err := readSniff(path, info.Size())
	if err != nil {
		return nil, err
	}

	format, ok := o.Formats.Detect(head, filepath.Base(path), o.Types.Formats())
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, ErrUnknownFormat)
	}

	a, err := New(format.ID, &o)
	if err != nil {
		return nil, err
	}

	if err := a.Open(path); err != nil {
		return nil, err
	}

	return a, nil
}

// OpenBytes detects the container format of data and opens it. name only
// feeds the extension fallback and may be empty.
func OpenBytes(data []byte, name string, opts *Options) (*Archive, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.applyDefaults()

	format, ok := o.Formats.Detect(data, name, o.Types.Formats())
	if !ok {
		return nil, ErrUnknownFormat
	}

	a, err := New(format.ID, &o)
	if err != nil {
		return nil, err
	}

	if err := a.OpenBytes(data); err != nil {
		return nil, err
	}

	return a, nil
}

// OpenEntry detects the container format of an entry payload and opens it
// as a nested archive. The entry stays locked until the nested archive closes.
func OpenEntry(e *Entry, opts *Options) (*Archive, error) {
	data, err := entryBytes(e)
	if err != nil {
		return nil, err
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	o.applyDefaults()

	format, ok := o.Formats.Detect(data, e.Name(), o.Types.Formats())
	if !ok {
		return nil, fmt.Errorf("open %s: %w", e.Path(), ErrUnknownFormat)
	}

	a, err := New(format.ID, &o)
	if err != nil {
		return nil, err
	}

	if err := a.OpenEntry(e); err != nil {
		return nil, err
	}

	return a, nil
}

// readSniff reads the leading bytes of path used for format detection.
func readSniff(path string, size int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	n := min(size, DefaultSniffLimit)
	head := make([]byte, n)
	if _, err := io.ReadFull(f, head); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return head, nil
}

// entryBytes loads e and returns its payload.
func entryBytes(e *Entry) ([]byte, error) {
	if err := e.LoadData(); err != nil {
		return nil, err
	}

	return e.data.Bytes(), nil
}

// Format returns the format descriptor.
func (a *Archive) Format() FormatInfo {
	return a.format
}

// Backend returns the format backend.
func (a *Archive) Backend() Backend {
	return a.backend
}

// Root returns the root directory.
func (a *Archive) Root() *Dir {
	return a.root
}

// Filename returns the on-disk path; empty for in-memory and nested archives.
func (a *Archive) Filename() string {
	return a.filename
}

// ParentEntry returns the entry this archive was opened from, if any.
func (a *Archive) ParentEntry() *Entry {
	return a.parentEntry
}

// Types returns the entry type registry.
func (a *Archive) Types() *entrytype.Registry {
	return a.types
}

// Logger returns the archive logger.
func (a *Archive) Logger() *slog.Logger {
	return a.logger
}

// UndoManager returns the attached undo manager or nil.
func (a *Archive) UndoManager() *undo.Manager {
	return a.undo
}

// IsReadOnly reports whether mutation is rejected.
func (a *Archive) IsReadOnly() bool {
	return a.readOnly
}

// SetReadOnly toggles mutation policy.
func (a *Archive) SetReadOnly(ro bool) {
	a.readOnly = ro
}

// IsModified reports unsaved changes.
func (a *Archive) IsModified() bool {
	return a.modified
}

// IsOnDisk reports whether the archive was opened from or saved to a file.
func (a *Archive) IsOnDisk() bool {
	return a.onDisk
}

// NumEntries returns the recursive entry count.
func (a *Archive) NumEntries() int {
	return a.root.NumEntries(true)
}

// Entries returns every entry in tree order.
func (a *Archive) Entries() []*Entry {
	return a.root.AllEntries()
}

// setModified updates the dirty flag and notifies on change.
func (a *Archive) setModified(mod bool) {
	if a.modified == mod {
		return
	}

	a.modified = mod
	a.emit(Event{Kind: EventModified})
}

// entryModified records a payload change made through an Entry method.
func (a *Archive) entryModified(e *Entry) {
	a.setModified(true)
	a.emit(Event{Kind: EventEntryModified, Entry: e, Dir: e.parent, OldIndex: e.Index(), NewIndex: e.Index()})
}

// Open reads path into the archive. On failure prior state is kept.
func (a *Archive) Open(path string) error {
	if a.closed {
		return ErrClosed
	}

	if a.format.OnDiskDir {
		pb, ok := a.backend.(pathBackend)
		if !ok {
			return fmt.Errorf("open %s: %w", path, ErrUnsupported)
		}

		root, err := pb.ReadPath(a, path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}

		a.adopt(a.backend, root, Source{Path: path}, nil, path)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", path, err)
	}

	return a.open(Source{ReaderAt: f, Path: path, Size: info.Size()}, f, path)
}

// OpenBytes reads an in-memory container.
func (a *Archive) OpenBytes(data []byte) error {
	if a.closed {
		return ErrClosed
	}

	buf := membuf.FromBytes(data)
	return a.open(Source{ReaderAt: buf, Size: buf.Size()}, nil, "")
}

// OpenEntry reads e as a nested archive and locks e while open.
func (a *Archive) OpenEntry(e *Entry) error {
	data, err := entryBytes(e)
	if err != nil {
		return err
	}

	if err := a.OpenBytes(data); err != nil {
		return fmt.Errorf("open %s: %w", e.Path(), err)
	}

	a.parentEntry = e
	e.Lock()
	return nil
}

// open runs a fresh backend over src and swaps state in only on success.
func (a *Archive) open(src Source, closer io.Closer, filename string) error {
	backend, err := a.formats.newBackend(a.format.ID, &a.opts)
	if err != nil {
		closeQuietly(closer)
		return err
	}

	root, err := backend.Read(a, src)
	if err != nil {
		closeQuietly(closer)
		closeBackend(backend)

		name := filename
		if name == "" {
			name = a.format.ID + " data"
		}

		return fmt.Errorf("open %s: %w", name, err)
	}

	a.adopt(backend, root, src, closer, filename)
	return nil
}

// adopt installs a freshly read tree and runs type detection.
func (a *Archive) adopt(backend Backend, root *Dir, src Source, closer io.Closer, filename string) {
	if backend != a.backend {
		closeBackend(a.backend)
	}
	closeQuietly(a.srcCloser)
	a.releaseParent()

	root.archive = a
	a.backend = backend
	a.root = root
	a.src = src
	a.srcCloser = closer
	a.filename = filename
	a.onDisk = filename != ""
	a.modified = false

	for _, d := range root.AllDirs() {
		d.marker.state = StateUnmodified
		d.marker.typ = a.types.Folder()
	}

	for _, e := range root.AllEntries() {
		e.state = StateUnmodified
		if !a.opts.SkipDetect {
			e.DetectType()
		}

		if !a.opts.KeepLoaded {
			e.Unload()
		}
	}
}

// loadEntryData delegates to the backend.
func (a *Archive) loadEntryData(e *Entry) ([]byte, error) {
	if a.closed {
		return nil, ErrClosed
	}

	return a.backend.LoadEntryData(a, e)
}

// readSource reads size bytes at offset from the archive source.
func (a *Archive) readSource(offset int64, size int64) ([]byte, error) {
	if a.src.ReaderAt == nil {
		return nil, ErrNoSource
	}

	if offset < 0 || size < 0 || offset+size > a.src.Size {
		return nil, fmt.Errorf("%w: [%d+%d] of %d", ErrInvalidEntryOffset, offset, size, a.src.Size)
	}

	buf := make([]byte, size)
	if n, err := a.src.ReaderAt.ReadAt(buf, offset); err != nil && (!errors.Is(err, io.EOF) || int64(n) != size) {
		return nil, fmt.Errorf("read source [%d+%d]: %w", offset, size, err)
	}

	return buf, nil
}

// Write serializes the tree to w without touching archive state.
func (a *Archive) Write(w io.Writer) error {
	if a.format.OnDiskDir {
		return fmt.Errorf("write %s stream: %w", a.format.ID, ErrUnsupported)
	}

	_, err := a.backend.Write(a, w)
	return err
}

// WriteBytes serializes the tree into memory.
func (a *Archive) WriteBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.Write(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteFile serializes the tree to path. The archive keeps its current file.
func (a *Archive) WriteFile(path string) error {
	if a.format.OnDiskDir {
		pb, ok := a.backend.(pathBackend)
		if !ok {
			return ErrUnsupported
		}

		return pb.WritePath(a, path)
	}

	tmpPath, err := writeTempFile(path, func(w *bufio.Writer) error {
		_, err := a.backend.Write(a, w)
		return err
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return installFile(tmpPath, path, false, 0)
}

// Save writes the archive back to its origin. A nested archive writes into
// its parent entry; otherwise the current file is replaced, keeping a
// `.bak` copy when backups are enabled.
func (a *Archive) Save() error {
	if err := a.checkSavable(); err != nil {
		return err
	}

	if a.parentEntry != nil {
		return a.saveToParent()
	}

	if a.filename == "" {
		return ErrNoFilename
	}

	return a.saveFile(a.filename, a.opts.Save.Backup)
}

// SaveAs writes the archive to path and makes path its file.
func (a *Archive) SaveAs(path string) error {
	if err := a.checkSavable(); err != nil {
		return err
	}

	if path == "" {
		return a.Save()
	}

	return a.saveFile(path, false)
}

// checkSavable rejects saves of read-only or closed archives.
func (a *Archive) checkSavable() error {
	if a.closed {
		return ErrClosed
	}

	if a.readOnly {
		return ErrReadOnly
	}

	return nil
}

// saveToParent writes the tree into the parent entry.
func (a *Archive) saveToParent() error {
	var buf bytes.Buffer
	commit, err := a.backend.Write(a, &buf)
	if err != nil {
		return fmt.Errorf("save %s: %w", a.parentEntry.Path(), err)
	}

	parent := a.parentEntry
	parent.Unlock()
	err = parent.ImportData(buf.Bytes())
	parent.Lock()
	if err != nil {
		return fmt.Errorf("save %s: %w", parent.Path(), err)
	}

	src := membuf.FromBytes(buf.Bytes())
	return a.finishSave(commit, Source{ReaderAt: src, Size: src.Size()}, nil, "")
}

// saveFile writes the tree to path through a temp file and rebinds the source.
func (a *Archive) saveFile(path string, backup bool) error {
	if a.format.OnDiskDir {
		pb, ok := a.backend.(pathBackend)
		if !ok {
			return ErrUnsupported
		}

		if err := pb.WritePath(a, path); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}

		a.filename = path
		a.src.Path = path
		return a.finishSave(nil, a.src, nil, path)
	}

	var commit Commit
	tmpPath, err := writeTempFile(path, func(w *bufio.Writer) error {
		var werr error
		commit, werr = a.backend.Write(a, w)
		return werr
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	if err := installFile(tmpPath, path, backup, a.opts.Save.BackupKeep); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", path, err)
	}

	return a.finishSave(commit, Source{ReaderAt: f, Path: path, Size: info.Size()}, f, path)
}

// finishSave binds entries to the new source and resets dirty state.
func (a *Archive) finishSave(commit Commit, src Source, closer io.Closer, filename string) error {
	if commit != nil {
		if err := commit(src); err != nil {
			closeQuietly(closer)
			return fmt.Errorf("rebind saved archive: %w", err)
		}
	}

	if closer != a.srcCloser {
		closeQuietly(a.srcCloser)
	}

	a.src = src
	a.srcCloser = closer
	if filename != "" {
		a.filename = filename
		a.onDisk = true
	}

	for _, d := range a.root.AllDirs() {
		d.marker.state = StateUnmodified
	}

	for _, e := range a.root.AllEntries() {
		e.state = StateUnmodified
	}

	a.setModified(false)
	a.emit(Event{Kind: EventSaved})
	return nil
}

// Close releases the source and unlocks the parent entry.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}

	a.releaseParent()

	a.emit(Event{Kind: EventClosed})
	a.closed = true

	closeBackend(a.backend)
	err := closeErr(a.srcCloser)
	a.srcCloser = nil
	a.src = Source{}
	return err
}

// releaseParent unlocks and forgets the entry this archive was opened from.
func (a *Archive) releaseParent() {
	if a.parentEntry != nil {
		a.parentEntry.Unlock()
		a.parentEntry = nil
	}
}

// closeBackend releases backend resources when it holds any.
func closeBackend(b Backend) {
	if c, ok := b.(io.Closer); ok {
		_ = c.Close()
	}
}

func closeQuietly(c io.Closer) {
	_ = closeErr(c)
}

func closeErr(c io.Closer) error {
	if c == nil {
		return nil
	}

	return c.Close()
}

// EntryAtPath resolves a slash path to an entry.
func (a *Archive) EntryAtPath(p string) *Entry {
	dirPath, name := splitPath(p)
	if name == "" {
		return nil
	}

	d := a.root.Child(dirPath)
	if d == nil {
		return nil
	}

	return d.Entry(name)
}

// Dir resolves a slash path to a directory. "" is root.
func (a *Archive) Dir(p string) *Dir {
	return a.root.Child(p)
}

// EntryIndex returns e's position in dir, or in its own parent when dir is nil.
func (a *Archive) EntryIndex(e *Entry, dir *Dir) int {
	if dir == nil {
		dir = e.parent
	}

	if dir == nil || dir.Archive() != a {
		return -1
	}

	return dir.EntryIndex(e)
}

// owns reports whether e is attached to this archive.
func (a *Archive) owns(e *Entry) bool {
	return e != nil && e.parent != nil && e.parent.Archive() == a
}

// ownsDir reports whether d belongs to this archive.
func (a *Archive) ownsDir(d *Dir) bool {
	return d != nil && d.Archive() == a
}
