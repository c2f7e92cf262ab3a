// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package entrytype

import "errors"

var (
	// ErrEmptyID indicates type registration without an id.
	ErrEmptyID = errors.New("entry type id is empty")
	// ErrInvalidDefinition indicates malformed type definition document.
	ErrInvalidDefinition = errors.New("invalid entry type definition")
)
