// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// exportWorkItem is one loaded entry with its prepared output path.
type exportWorkItem struct {
	entry   *Entry
	relPath string
	data    []byte
}

// ExportEntries writes entries to files under dstDir, keeping directory
// structure. Payloads load sequentially on the calling goroutine and are
// written by MaxWorkers writers; the first error stops the export.
func (a *Archive) ExportEntries(ctx context.Context, dstDir string, opts ExportOptions) error {
	if a.closed {
		return ErrClosed
	}

	opts.applyDefaults()
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	entries := opts.Entries
	if entries == nil {
		entries = a.root.AllEntries()
	}

	if len(entries) == 0 {
		return nil
	}

	relPaths, err := exportPaths(entries, opts)
	if err != nil {
		return err
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := prepareExportDirs(dstRootAbs, relPaths); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan exportWorkItem, workers)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for task := range taskCh {
				if err := writeExportFile(dstRootAbs, task, opts); err != nil {
					select {
					case errCh <- err:
					default:
					}

					cancel()
					return
				}
			}
		})
	}

	loadErr := func() error {
		defer close(taskCh)
		for i, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := a.payload(e)
			if err != nil {
				return err
			}

			select {
			case taskCh <- exportWorkItem{entry: e, relPath: relPaths[i], data: data}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return nil
	}()

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return err
	}

	return loadErr
}

// exportPaths returns validated, OS-specific relative output paths.
func exportPaths(entries []*Entry, opts ExportOptions) ([]string, error) {
	paths := make([]string, len(entries))
	for i, e := range entries {
		p := e.Path()
		if opts.TypeExtensions && e.Ext() == "" {
			if ext := e.Type().ExportExt; ext != "" {
				p += "." + strings.TrimPrefix(ext, ".")
			}
		}

		paths[i] = p
	}

	if !opts.RawNames {
		sanitized, err := sanitizeExportPaths(paths)
		if err != nil {
			return nil, err
		}

		paths = sanitized
	}

	for i, p := range paths {
		normalized, err := normalizeExportPath(p)
		if err != nil {
			return nil, fmt.Errorf("export path %s: %w", p, err)
		}

		paths[i] = filepath.FromSlash(normalized)
	}

	return paths, nil
}

// prepareExportDirs creates all unique parent directories of relPaths.
func prepareExportDirs(dstRootAbs string, relPaths []string) error {
	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	seen := make(map[string]struct{}, len(relPaths))
	for _, rel := range relPaths {
		relDir := filepath.Dir(rel)
		if relDir == "." {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, relDir)
		key := strings.ToLower(dirPath)
		if _, exists := seen[key]; exists {
			continue
		}

		seen[key] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// writeExportFile writes one work item under dstRootAbs.
func writeExportFile(dstRootAbs string, task exportWorkItem, opts ExportOptions) error {
	outPath := filepath.Join(dstRootAbs, task.relPath)
	file, err := openExportFile(outPath, opts.FileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", outPath, err)
	}

	_, writeErr := file.Write(task.data)
	closeErr := file.Close()
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", outPath, writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", outPath, closeErr)
	}

	if opts.OnEntryDone != nil {
		opts.OnEntryDone(task.entry, outPath)
	}

	return nil
}

// openExportFile opens path according to the export file mode.
func openExportFile(path string, mode ExportFileMode) (*os.File, error) {
	switch mode {
	case ExportFileModeTruncate:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExportFileModeCreateOnly:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	default:
		return nil, fmt.Errorf("unknown export file mode %q", mode)
	}
}
