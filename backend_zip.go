// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/woozymasta/lumpkit/dataformat"
)

// Zip entry property keys.
const (
	// PropZipIndex is the entry's file index in the source zip (int).
	PropZipIndex = "zip_index"
	// PropModTime is the entry modification time (time.Time).
	PropModTime = "mtime"
)

// zipBackend handles zip and pk3 archives. File-backed archives are read
// from a private temp copy so unmodified entries can be copied raw into a
// rewritten archive even while the original path is replaced.
type zipBackend struct {
	reader *zip.Reader
	temp   *os.File
	opts   ZipOptions
}

func newZipBackend(opts *Options) Backend {
	b := &zipBackend{}
	if opts != nil {
		b.opts = opts.Zip
	}

	b.opts.applyDefaults()
	return b
}

func (b *zipBackend) Info() FormatInfo {
	return FormatInfo{
		ID:                  FormatZip,
		Name:                "Zip",
		EntryFormat:         dataformat.IDArchiveZip,
		Extensions:          []string{"zip", "pk3", "pke", "ipk3", "pk7"},
		NamesHaveExtensions: true,
		SupportsDirs:        true,
	}
}

func (b *zipBackend) Read(a *Archive, src Source) (*Dir, error) {
	zr, temp, err := b.openSource(src)
	if err != nil {
		return nil, err
	}

	root := newRoot(a)
	for i, f := range zr.File {
		if f.UncompressedSize64 > b.opts.EntryLimit {
			closeTemp(temp)
			return nil, fmt.Errorf("%w: %s is %d bytes", ErrEntryTooLarge, f.Name, f.UncompressedSize64)
		}

		p := NormalizePath(f.Name)
		if p == "" || strings.HasPrefix(p, "../") || p == ".." {
			a.logger.Warn("zip entry skipped: invalid path", slog.String("entry", f.Name))
			continue
		}

		if strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
			root.AddChild(p)
			continue
		}

		dirPath, name := splitPath(p)
		dir, _ := root.AddChild(dirPath)
		e := newSourcedEntry(name, int(f.UncompressedSize64)) //nolint:gosec // bounded by EntryLimit
		e.Props()[PropZipIndex] = i
		e.Props()[PropModTime] = f.Modified
		dir.AddEntry(e, -1)
	}

	b.swap(zr, temp)
	return root, nil
}

// openSource opens a zip reader over src, through a temp copy for files.
func (b *zipBackend) openSource(src Source) (*zip.Reader, *os.File, error) {
	ra := src.ReaderAt
	var temp *os.File
	if src.Path != "" {
		var err error
		if temp, err = copyToTemp(src); err != nil {
			return nil, nil, err
		}

		ra = temp
	}

	zr, err := zip.NewReader(ra, src.Size)
	if err != nil {
		closeTemp(temp)
		if errors.Is(err, zip.ErrFormat) {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
		}

		return nil, nil, fmt.Errorf("read zip: %w", err)
	}

	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	return zr, temp, nil
}

// swap installs a new reader and releases the previous temp copy.
func (b *zipBackend) swap(zr *zip.Reader, temp *os.File) {
	closeTemp(b.temp)
	b.reader = zr
	b.temp = temp
}

// copyToTemp copies the source container into a private temp file.
func copyToTemp(src Source) (*os.File, error) {
	temp, err := os.CreateTemp("", "lumpkit-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create zip temp copy: %w", err)
	}

	if _, err := io.Copy(temp, io.NewSectionReader(src.ReaderAt, 0, src.Size)); err != nil {
		closeTemp(temp)
		return nil, fmt.Errorf("copy zip to temp: %w", err)
	}

	return temp, nil
}

// closeTemp closes and removes a temp copy.
func closeTemp(f *os.File) {
	if f == nil {
		return
	}

	_ = f.Close()
	_ = os.Remove(f.Name())
}

// Close releases the temp copy.
func (b *zipBackend) Close() error {
	closeTemp(b.temp)
	b.temp = nil
	b.reader = nil
	return nil
}

// sourceFile returns the source zip file backing e.
func (b *zipBackend) sourceFile(e *Entry) (*zip.File, bool) {
	idx, ok := prop[int](e, PropZipIndex)
	if !ok || b.reader == nil || idx < 0 || idx >= len(b.reader.File) {
		return nil, false
	}

	return b.reader.File[idx], true
}

func (b *zipBackend) LoadEntryData(_ *Archive, e *Entry) ([]byte, error) {
	f, ok := b.sourceFile(e)
	if !ok {
		return nil, fmt.Errorf("%s: %w", e.Path(), ErrNoSource)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, int64(b.opts.EntryLimit)+1)) //nolint:gosec // limit fits int64
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}

	if uint64(len(data)) > b.opts.EntryLimit {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, f.Name)
	}

	return data, nil
}

// zipRecord maps a written entry to its index in the new zip.
type zipRecord struct {
	entry *Entry
	index int
	size  int
}

func (b *zipBackend) Write(a *Archive, w io.Writer) (Commit, error) {
	zw := zip.NewWriter(w)
	level := b.opts.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	zwr := &zipTreeWriter{b: b, a: a, zw: zw}
	if err := zwr.writeDir(a.root); err != nil {
		_ = zw.Close()
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish zip: %w", err)
	}

	records := zwr.records
	return func(src Source) error {
		zr, temp, err := b.openSource(src)
		if err != nil {
			return err
		}

		b.swap(zr, temp)
		for _, rec := range records {
			rec.entry.Props()[PropZipIndex] = rec.index
			rec.entry.size = rec.size
			rec.entry.sourced = true
		}

		return nil
	}, nil
}

// zipTreeWriter writes a directory tree in entries-then-subdirectories order.
type zipTreeWriter struct {
	b       *zipBackend
	a       *Archive
	zw      *zip.Writer
	records []zipRecord
	index   int
}

func (t *zipTreeWriter) writeDir(d *Dir) error {
	for _, e := range d.entries {
		if err := t.writeEntry(e); err != nil {
			return err
		}
	}

	for _, sub := range d.subdirs {
		fh := &zip.FileHeader{Name: sub.Path() + "/", Method: zip.Store}
		fh.Modified = time.Now()
		if _, err := t.zw.CreateHeader(fh); err != nil {
			return fmt.Errorf("write zip dir %s: %w", sub.Path(), err)
		}
		t.index++

		if err := t.writeDir(sub); err != nil {
			return err
		}
	}

	return nil
}

func (t *zipTreeWriter) writeEntry(e *Entry) error {
	name := e.Path()
	if e.state == StateUnmodified && e.sourced {
		if f, ok := t.b.sourceFile(e); ok {
			return t.copyRaw(e, f, name)
		}
	}

	data, err := t.a.payload(e)
	if err != nil {
		return err
	}

	fh := &zip.FileHeader{Name: name, Method: t.b.opts.Method}
	fh.Modified = time.Now()
	if mt, ok := prop[time.Time](e, PropModTime); ok && e.state == StateUnmodified && !mt.IsZero() {
		fh.Modified = mt
	}

	fw, err := t.zw.CreateHeader(fh)
	if err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}

	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}

	t.records = append(t.records, zipRecord{entry: e, index: t.index, size: len(data)})
	t.index++
	return nil
}

// copyRaw copies compressed bytes of an unmodified entry without recompression.
func (t *zipTreeWriter) copyRaw(e *Entry, f *zip.File, name string) error {
	raw, err := f.OpenRaw()
	if err != nil {
		return fmt.Errorf("open raw zip entry %s: %w", f.Name, err)
	}

	fh := f.FileHeader
	fh.Name = name
	fw, err := t.zw.CreateRaw(&fh)
	if err != nil {
		return fmt.Errorf("write raw zip entry %s: %w", name, err)
	}

	if _, err := io.Copy(fw, raw); err != nil {
		return fmt.Errorf("copy raw zip entry %s: %w", name, err)
	}

	t.records = append(t.records, zipRecord{entry: e, index: t.index, size: int(f.UncompressedSize64)}) //nolint:gosec // bounded on read
	t.index++
	return nil
}
