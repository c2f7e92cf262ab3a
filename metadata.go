// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"fmt"
	"io"
	"os"
)

// ReadPBOHeaders returns the header pairs of the PBO at path without
// parsing its index.
func ReadPBOHeaders(path string) ([]HeaderPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadPBOHeadersFrom(f)
}

// ReadPBOHeadersFrom reads only PBO header pairs from a random-access source.
func ReadPBOHeadersFrom(ra io.ReaderAt) ([]HeaderPair, error) {
	headers, _, err := parsePBOHeaders(ra)
	if err != nil {
		return nil, err
	}

	return headers, nil
}

// PBOHeaders returns the headers of a PBO archive.
func (a *Archive) PBOHeaders() ([]HeaderPair, error) {
	b, ok := a.backend.(*pboBackend)
	if !ok {
		return nil, fmt.Errorf("%s archive: %w", a.format.ID, ErrUnsupported)
	}

	return b.Headers(), nil
}

// SetPBOHeaders replaces the headers a PBO archive writes on save.
func (a *Archive) SetPBOHeaders(headers []HeaderPair) error {
	if err := a.checkMutable(); err != nil {
		return err
	}

	b, ok := a.backend.(*pboBackend)
	if !ok {
		return fmt.Errorf("%s archive: %w", a.format.ID, ErrUnsupported)
	}

	b.SetHeaders(headers)
	a.setModified(true)
	return nil
}
