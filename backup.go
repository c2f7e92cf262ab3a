// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// writeTempFile creates a temp file next to path and fills it via write.
// On error the temp file is removed.
func writeTempFile(path string, write func(w *bufio.Writer) error) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}

	bw := bufio.NewWriterSize(tmp, 1<<20)
	if err := write(bw); err != nil {
		return fail(err)
	}

	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("flush temp file: %w", err))
	}

	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync temp file: %w", err))
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmpPath, nil
}

// installFile moves tmpPath over path. With backup the existing file
// becomes `<path>.bak` first and is put back when the final rename fails.
func installFile(tmpPath string, path string, backup bool, keep int) error {
	bak := ""
	if backup && fileExists(path) {
		bak = backupName(path, 0)
		if err := rotateBackups(path, keep); err != nil {
			_ = os.Remove(tmpPath)
			return err
		}

		if err := os.Rename(path, bak); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("move %s to backup: %w", path, err)
		}
	}

	err := os.Rename(tmpPath, path)
	if err == nil {
		return nil
	}

	_ = os.Remove(tmpPath)
	if bak != "" {
		if restoreErr := os.Rename(bak, path); restoreErr != nil {
			return fmt.Errorf("replace %s: %w (restore backup: %v)", path, err, restoreErr)
		}
	}

	return fmt.Errorf("replace %s: %w", path, err)
}

// backupName returns the name of backup generation gen of path:
// `<path>.bak` for 0, `<path>.bak.N` after that.
func backupName(path string, gen int) string {
	if gen == 0 {
		return path + ".bak"
	}

	return path + ".bak." + strconv.Itoa(gen)
}

// rotateBackups shifts existing generations up by one and drops the
// oldest, leaving generation 0 free. keep below 1 counts as 1.
func rotateBackups(path string, keep int) error {
	keep = max(keep, 1)
	if err := os.Remove(backupName(path, keep-1)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("drop oldest backup: %w", err)
	}

	for gen := keep - 2; gen >= 0; gen-- {
		from, to := backupName(path, gen), backupName(path, gen+1)
		if err := os.Rename(from, to); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("rotate backup %s: %w", from, err)
		}
	}

	return nil
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
