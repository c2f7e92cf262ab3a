// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"log/slog"

	"github.com/klauspost/compress/zip"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/lumpkit/entrytype"
	"github.com/woozymasta/lumpkit/undo"
)

// Namespace names with special meaning.
const (
	// NamespaceGlobal is the namespace of entries in the root directory.
	NamespaceGlobal = "global"
)

// Default tuning values.
const (
	// DefaultZipEntryLimit is the per-entry uncompressed ceiling enforced when opening zip archives.
	DefaultZipEntryLimit = 250 * 1024 * 1024
	// DefaultMinCompressSize disables PBO compression for smaller entries.
	DefaultMinCompressSize = 512
	// DefaultMaxCompressSize disables PBO compression for larger entries.
	DefaultMaxCompressSize = 16 * 1024 * 1024
	// DefaultSniffLimit bounds how many bytes of a file are read for format detection.
	DefaultSniffLimit = 64 * 1024 * 1024
)

// EntryState tracks an entry's modification relative to its backing store.
type EntryState uint8

// Entry states.
const (
	// StateUnmodified means entry data matches the backing store.
	StateUnmodified EntryState = iota
	// StateModified means entry data or name changed since open or save.
	StateModified
	// StateNew means entry was created after open or save.
	StateNew
)

// String returns a state label.
func (s EntryState) String() string {
	switch s {
	case StateModified:
		return "modified"
	case StateNew:
		return "new"
	default:
		return "unmodified"
	}
}

// Options configures an Archive.
type Options struct {
	// Logger receives structured warnings. Nil discards.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// Types classifies entries. Nil uses entrytype.Default.
	Types *entrytype.Registry `json:"-" yaml:"-"`
	// Formats resolves backends. Nil uses DefaultFormats.
	Formats *Formats `json:"-" yaml:"-"`
	// Undo records reversible steps while it is recording. Nil disables recording.
	Undo *undo.Manager `json:"-" yaml:"-"`
	// Save configures backups for in-place saves.
	Save SaveOptions `json:"save,omitzero" yaml:"save,omitzero"`
	// Zip configures the zip backend.
	Zip ZipOptions `json:"zip,omitzero" yaml:"zip,omitzero"`
	// PBO configures the PBO backend.
	PBO PBOOptions `json:"pbo,omitzero" yaml:"pbo,omitzero"`
	// Import configures directory imports and directory archives.
	Import ImportOptions `json:"import,omitzero" yaml:"import,omitzero"`
	// ReadOnly rejects every mutation and save.
	ReadOnly bool `json:"read_only,omitempty" yaml:"read_only,omitempty"`
	// SkipDetect leaves entries typed unknown on open.
	SkipDetect bool `json:"skip_detect,omitempty" yaml:"skip_detect,omitempty"`
	// KeepLoaded keeps entry payloads in memory after open-time detection.
	KeepLoaded bool `json:"keep_loaded,omitempty" yaml:"keep_loaded,omitempty"`
}

// SaveOptions configures in-place save backups.
type SaveOptions struct {
	// Backup copies the existing file to `<archive>.bak` before an in-place save.
	Backup bool `json:"backup,omitempty" yaml:"backup,omitempty"`
	// BackupKeep controls how many backup generations are kept.
	// 1 keeps only `<archive>.bak`, N keeps `.bak` + `.bak.1..N-1`.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
}

// ZipOptions configures the zip backend.
type ZipOptions struct {
	// Method is the compression method for rewritten entries:
	// zip.Deflate (default) or zstd.ZipMethodWinZip.
	Method uint16 `json:"method,omitempty" yaml:"method,omitempty"`
	// Store writes rewritten entries uncompressed, overriding Method.
	Store bool `json:"store,omitempty" yaml:"store,omitempty"`
	// Level is the deflate level; zero keeps the library default.
	Level int `json:"level,omitempty" yaml:"level,omitempty"`
	// EntryLimit is the per-entry uncompressed ceiling on open.
	EntryLimit uint64 `json:"entry_limit,omitempty" yaml:"entry_limit,omitempty"`
}

// MimeType is the 4-byte PBO entry type (stored little-endian).
type MimeType uint32

// PBO entry mime constants.
const (
	// MimeHeader marks the first header record ("Vers").
	MimeHeader MimeType = 0x56657273
	// MimeCompress marks LZSS-compressed data ("Cprs").
	MimeCompress MimeType = 0x43707273
	// MimeEncoded marks VBS-encrypted data ("Enco").
	MimeEncoded MimeType = 0x456e6372
	// MimeNil marks uncompressed or terminator entry.
	MimeNil MimeType = 0x00000000
)

// HeaderPair is a PBO header key-value pair written in provided order.
type HeaderPair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// OffsetMode controls how the PBO backend resolves payload offsets from its index table.
type OffsetMode string

// PBO offset resolution modes.
const (
	// OffsetModeSequential ignores stored index offsets and derives payload offsets sequentially.
	OffsetModeSequential OffsetMode = "sequential"
	// OffsetModeStoredCompat tries to use non-zero stored offsets and falls back to sequential on malformed data.
	OffsetModeStoredCompat OffsetMode = "stored_compat"
	// OffsetModeStoredStrict requires stored non-zero offsets to be valid and fails otherwise.
	OffsetModeStoredStrict OffsetMode = "stored_strict"
)

// PBOOptions configures the PBO backend.
type PBOOptions struct {
	// Headers replace the archive headers on write when set.
	Headers []HeaderPair `json:"headers,omitempty" yaml:"headers,omitempty"`
	// Compress defines ordered path rules for LZSS compression of rewritten entries.
	Compress []pathrules.Rule `json:"compress,omitempty" yaml:"compress,omitempty"`
	// CompressMatcherOptions control compression path rule matching.
	CompressMatcherOptions pathrules.MatcherOptions `json:"compress_matcher_options,omitzero" yaml:"compress_matcher_options,omitzero"`
	// OffsetMode controls whether stored index offsets are used on open.
	OffsetMode OffsetMode `json:"offset_mode,omitempty" yaml:"offset_mode,omitempty"`
	// MinCompressSize disables compression for entries smaller than this size.
	MinCompressSize uint32 `json:"min_compress_size,omitempty" yaml:"min_compress_size,omitempty"`
	// MaxCompressSize disables compression for entries larger than this size.
	MaxCompressSize uint32 `json:"max_compress_size,omitempty" yaml:"max_compress_size,omitempty"`
	// JunkFilter drops empty, malformed, and unsafe-path records on open.
	JunkFilter bool `json:"junk_filter,omitempty" yaml:"junk_filter,omitempty"`
	// SkipTrailer omits the SHA1 trailer on write.
	SkipTrailer bool `json:"skip_trailer,omitempty" yaml:"skip_trailer,omitempty"`
}

// ImportOptions configures filesystem imports.
type ImportOptions struct {
	// Ignore lists ordered path rules; paths resolving to exclude are skipped.
	Ignore []pathrules.Rule `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	// IncludeHidden imports dot-files and dot-directories.
	IncludeHidden bool `json:"include_hidden,omitempty" yaml:"include_hidden,omitempty"`
}

// ExportFileMode controls output file open behavior during export.
type ExportFileMode string

// Output file creation policies for export.
const (
	// ExportFileModeTruncate opens existing files with truncate and creates missing files.
	ExportFileModeTruncate ExportFileMode = "truncate"
	// ExportFileModeCreateOnly creates files only when absent and fails on existing files.
	ExportFileModeCreateOnly ExportFileMode = "create_only"
)

// ExportOptions configures ExportEntries.
type ExportOptions struct {
	// OnEntryDone is called from writer goroutines after one entry is written to disk.
	OnEntryDone func(e *Entry, outputPath string) `json:"-" yaml:"-"`
	// Entries limits export to a selection; nil exports every entry.
	Entries []*Entry `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExportFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// MaxWorkers is number of writer workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// RawNames disables path sanitization.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
	// TypeExtensions appends the entry type export extension to names without one.
	TypeExtensions bool `json:"type_extensions,omitempty" yaml:"type_extensions,omitempty"`
}

// applyDefaults fills zero-valued archive options with defaults.
func (opts *Options) applyDefaults() {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Types == nil {
		opts.Types = entrytype.Default()
	}
	if opts.Formats == nil {
		opts.Formats = DefaultFormats()
	}

	opts.Save.applyDefaults()
	opts.Zip.applyDefaults()
	opts.PBO.applyDefaults()
}

// applyDefaults fills zero-valued save options with defaults.
func (opts *SaveOptions) applyDefaults() {
	if opts.BackupKeep < 1 {
		opts.BackupKeep = 1
	}
}

// applyDefaults fills zero-valued zip options with defaults.
func (opts *ZipOptions) applyDefaults() {
	switch {
	case opts.Store:
		opts.Method = zip.Store
	case opts.Method == zip.Store:
		opts.Method = zip.Deflate
	}
	if opts.EntryLimit == 0 {
		opts.EntryLimit = DefaultZipEntryLimit
	}
}

// applyDefaults fills zero-valued PBO options with defaults.
func (opts *PBOOptions) applyDefaults() {
	if opts.OffsetMode == "" {
		opts.OffsetMode = OffsetModeSequential
	}

	if opts.MinCompressSize == 0 {
		opts.MinCompressSize = DefaultMinCompressSize
	}

	if opts.MaxCompressSize == 0 || opts.MaxCompressSize <= opts.MinCompressSize {
		opts.MaxCompressSize = DefaultMaxCompressSize
	}

	if opts.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.CompressMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.CompressMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// applyDefaults fills zero-valued export options with defaults.
func (opts *ExportOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExportFileModeTruncate
	}
}
