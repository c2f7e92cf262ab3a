// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import "errors"

// Sentinel errors for archive operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the container is missing or has a bad header.
	ErrInvalidHeader = errors.New("invalid archive: missing or bad header")
	// ErrInvalidEntryOffset means one or more entry offsets point outside the container.
	ErrInvalidEntryOffset = errors.New("invalid entry offset")
	// ErrEntryTooLarge means an entry exceeds the format or reader size ceiling.
	ErrEntryTooLarge = errors.New("entry exceeds size limit")
	// ErrFileNameTooLong means the entry filename exceeds the format maximum.
	ErrFileNameTooLong = errors.New("entry filename exceeds maximum length")
	// ErrSizeOverflow means a size exceeds the 32-bit fields of the container format.
	ErrSizeOverflow = errors.New("size exceeds format limit")
	// ErrUnknownFormat means no registered backend recognizes the container.
	ErrUnknownFormat = errors.New("unknown archive format")
	// ErrReadOnly means the archive rejects mutation.
	ErrReadOnly = errors.New("archive is read-only")
	// ErrLocked means the entry is locked against mutation.
	ErrLocked = errors.New("entry is locked")
	// ErrNotInArchive means the entry or directory belongs to another archive or none.
	ErrNotInArchive = errors.New("entry does not belong to this archive")
	// ErrEntryAttached means an entry being added already belongs to a directory.
	ErrEntryAttached = errors.New("entry already attached to a directory")
	// ErrDirExists means a sibling directory already uses the name.
	ErrDirExists = errors.New("directory already exists")
	// ErrIndexOutOfRange means an entry index is outside its directory.
	ErrIndexOutOfRange = errors.New("entry index out of range")
	// ErrRootDir means the root directory cannot be removed or renamed.
	ErrRootDir = errors.New("root directory cannot be removed or renamed")
	// ErrDirNotFound means a directory path does not resolve.
	ErrDirNotFound = errors.New("directory not found")
	// ErrEntryNotFound means an entry path does not resolve.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrNoFilename means the archive has no on-disk file to save to.
	ErrNoFilename = errors.New("archive has no file name")
	// ErrNoSource means entry data has no backing store to load from.
	ErrNoSource = errors.New("entry has no backing data")
	// ErrUnsupported means the backend cannot perform the operation.
	ErrUnsupported = errors.New("operation not supported by archive format")
	// ErrInvalidName means an entry or directory name is empty or contains separators.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidEntryPath means an entry path is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrInvalidExtractPath means an entry path is invalid for an export destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidCompressPattern means one or more compression rules are invalid.
	ErrInvalidCompressPattern = errors.New("invalid compress rules")
	// ErrClosed means the archive was already closed.
	ErrClosed = errors.New("archive already closed")
)
