// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"fmt"
	"io"
	"maps"
	"os"

	"github.com/woozymasta/lumpkit/entrytype"
	"github.com/woozymasta/lumpkit/membuf"
)

// Entry is one named payload inside an archive directory.
type Entry struct {
	props       map[string]any
	typ         *entrytype.Type
	parent      *Dir
	data        *membuf.Buffer
	name        string
	size        int
	reliability uint8
	state       EntryState
	loaded      bool
	locked      bool
	sourced     bool
}

// NewEntry returns a detached entry in the new state holding a copy of data.
func NewEntry(name string, data []byte) *Entry {
	return &Entry{
		name:   name,
		data:   membuf.FromBytes(data),
		size:   len(data),
		loaded: true,
		state:  StateNew,
	}
}

// newSourcedEntry returns an entry whose payload is read on demand from the archive source.
func newSourcedEntry(name string, size int) *Entry {
	return &Entry{name: name, size: size, sourced: true}
}

// Name returns the entry name including any extension.
func (e *Entry) Name() string {
	return e.name
}

// NameNoExt returns the name without its last extension.
func (e *Entry) NameNoExt() string {
	base, _ := splitExt(e.name)
	return base
}

// Ext returns the last extension without the dot.
func (e *Entry) Ext() string {
	_, ext := splitExt(e.name)
	return ext
}

// Path returns the slash-separated archive path including the name.
func (e *Entry) Path() string {
	if e.parent == nil {
		return e.name
	}

	return joinPath(e.parent.Path(), e.name)
}

// Parent returns the owning directory or nil for a detached entry.
func (e *Entry) Parent() *Dir {
	return e.parent
}

// Archive returns the owning archive or nil.
func (e *Entry) Archive() *Archive {
	if e.parent == nil {
		return nil
	}

	return e.parent.Archive()
}

// Index returns the position in the parent directory or -1.
func (e *Entry) Index() int {
	if e.parent == nil {
		return -1
	}

	return e.parent.EntryIndex(e)
}

// Size returns payload size without forcing a load.
func (e *Entry) Size() int {
	if e.loaded {
		return e.data.Len()
	}

	return e.size
}

// State returns the modification state.
func (e *Entry) State() EntryState {
	return e.state
}

// setState changes state. A new entry stays new when modified.
func (e *Entry) setState(s EntryState) {
	if s == StateModified && e.state == StateNew {
		return
	}

	e.state = s
}

// IsLoaded reports whether payload bytes are held in memory.
func (e *Entry) IsLoaded() bool {
	return e.loaded
}

// IsLocked reports whether mutation is blocked.
func (e *Entry) IsLocked() bool {
	return e.locked
}

// Lock blocks rename, removal, reorder and data import.
func (e *Entry) Lock() {
	e.locked = true
}

// Unlock lifts a Lock.
func (e *Entry) Unlock() {
	e.locked = false
}

// Type returns the classified type; unknown when never detected.
func (e *Entry) Type() *entrytype.Type {
	if e.typ == nil {
		return e.registry().Unknown()
	}

	return e.typ
}

// Reliability returns the confidence of the last classification.
func (e *Entry) Reliability() uint8 {
	return e.reliability
}

// SetType assigns a type directly.
func (e *Entry) SetType(t *entrytype.Type, confidence uint8) {
	e.typ = t
	e.reliability = confidence
}

// DetectType classifies the entry against the archive's type registry.
// It returns false for marker and unknown results.
func (e *Entry) DetectType() bool {
	match, ok := e.registry().Detect(e, e.typ)
	e.typ = match.Type
	e.reliability = match.Confidence
	return ok
}

// registry returns the owning archive registry or the process default.
func (e *Entry) registry() *entrytype.Registry {
	if a := e.Archive(); a != nil {
		return a.types
	}

	return entrytype.Default()
}

// ArchiveFormat returns the owning archive format id.
func (e *Entry) ArchiveFormat() (string, bool) {
	a := e.Archive()
	if a == nil {
		return "", false
	}

	return a.Format().ID, true
}

// Namespace returns the entry namespace in its archive.
func (e *Entry) Namespace() (string, bool) {
	a := e.Archive()
	if a == nil {
		return "", false
	}

	return a.DetectNamespace(e), true
}

// Data returns payload bytes, loading them when needed. A failed load is
// logged and yields nil; use LoadData to observe the error.
func (e *Entry) Data() []byte {
	if err := e.LoadData(); err != nil {
		if a := e.Archive(); a != nil {
			a.logger.Warn("entry load failed", "entry", e.Path(), "error", err)
		}

		return nil
	}

	return e.data.Bytes()
}

// Reader returns a reader over the payload.
func (e *Entry) Reader() (io.ReadSeeker, error) {
	if err := e.LoadData(); err != nil {
		return nil, err
	}

	return membuf.FromBytes(e.data.Bytes()), nil
}

// LoadData materializes the payload from the archive source.
func (e *Entry) LoadData() error {
	if e.loaded {
		return nil
	}

	if e.size == 0 {
		e.data = membuf.New(0)
		e.loaded = true
		return nil
	}

	a := e.Archive()
	if a == nil || !e.sourced {
		return fmt.Errorf("load %s: %w", e.name, ErrNoSource)
	}

	data, err := a.loadEntryData(e)
	if err != nil {
		return fmt.Errorf("load %s: %w", e.Path(), err)
	}

	e.data = membuf.FromBytes(data)
	e.loaded = true
	return nil
}

// Unload frees the payload while keeping metadata. Only unmodified entries
// backed by the archive source can be unloaded.
func (e *Entry) Unload() bool {
	if !e.loaded || !e.sourced || e.state != StateUnmodified || e.Archive() == nil {
		return false
	}

	e.size = e.data.Len()
	e.data = nil
	e.loaded = false
	return true
}

// checkMutable rejects changes to locked entries and read-only archives.
func (e *Entry) checkMutable() error {
	if e.locked {
		return fmt.Errorf("%s: %w", e.name, ErrLocked)
	}

	if a := e.Archive(); a != nil && a.readOnly {
		return ErrReadOnly
	}

	return nil
}

// ImportData replaces the payload, marks the entry modified and re-runs detection.
func (e *Entry) ImportData(data []byte) error {
	if err := e.checkMutable(); err != nil {
		return err
	}

	e.data = membuf.FromBytes(data)
	e.size = len(data)
	e.loaded = true
	e.afterImport()
	return nil
}

// ImportBuffer replaces the payload with buffer content.
func (e *Entry) ImportBuffer(b *membuf.Buffer) error {
	return e.ImportData(b.Bytes())
}

// ImportReader replaces the payload with everything read from r.
func (e *Entry) ImportReader(r io.Reader) error {
	if err := e.checkMutable(); err != nil {
		return err
	}

	b := membuf.New(0)
	if err := b.ImportReader(r); err != nil {
		return err
	}

	e.data = b
	e.size = b.Len()
	e.loaded = true
	e.afterImport()
	return nil
}

// ImportFile replaces the payload with a file from disk.
func (e *Entry) ImportFile(path string) error {
	if err := e.checkMutable(); err != nil {
		return err
	}

	b := membuf.New(0)
	if err := b.ImportFile(path); err != nil {
		return err
	}

	e.data = b
	e.size = b.Len()
	e.loaded = true
	e.afterImport()
	return nil
}

// afterImport updates state, type and archive status after a payload change.
func (e *Entry) afterImport() {
	e.setState(StateModified)
	e.DetectType()
	if a := e.Archive(); a != nil {
		a.entryModified(e)
	}
}

// ExportFile writes the payload to a file on disk.
func (e *Entry) ExportFile(path string) error {
	if err := e.LoadData(); err != nil {
		return err
	}

	if err := os.WriteFile(path, e.data.Bytes(), 0o644); err != nil { //nolint:gosec // exported entries are regular user files
		return fmt.Errorf("export %s: %w", e.name, err)
	}

	return nil
}

// CRC32 returns IEEE CRC32 of the payload.
func (e *Entry) CRC32() (uint32, error) {
	if err := e.LoadData(); err != nil {
		return 0, err
	}

	return e.data.CRC32(), nil
}

// Props returns the property map for format bookkeeping and caller data.
// The map is live; edits are visible to the owning backend.
func (e *Entry) Props() map[string]any {
	if e.props == nil {
		e.props = make(map[string]any)
	}

	return e.props
}

// prop returns a typed property value.
func prop[T any](e *Entry, key string) (T, bool) {
	v, ok := e.props[key]
	if !ok {
		var zero T
		return zero, false
	}

	typed, ok := v.(T)
	return typed, ok
}

// Clone returns a detached copy in the new state. Payload is loaded and copied;
// locks are not copied.
func (e *Entry) Clone() *Entry {
	c := &Entry{
		name:        e.name,
		typ:         e.typ,
		reliability: e.reliability,
		state:       StateNew,
		props:       maps.Clone(e.props),
	}

	if err := e.LoadData(); err == nil {
		c.data = membuf.FromBytes(e.data.Bytes())
		c.size = c.data.Len()
		c.loaded = true
	} else {
		c.data = membuf.New(0)
		c.loaded = true
	}

	return c
}

// String returns the entry path.
func (e *Entry) String() string {
	return e.Path()
}
