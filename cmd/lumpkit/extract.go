// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package main

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/woozymasta/lumpkit"
)

func extractCmd() *cobra.Command {
	var (
		output     string
		prefix     string
		workers    int
		rawNames   bool
		createOnly bool
		typeExts   bool
	)

	cmd := &cobra.Command{
		Use:     "extract <archive>",
		Aliases: []string{"x"},
		Short:   "Extract archive entries to a directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var done atomic.Int64
			opts := lumpkit.ExportOptions{
				MaxWorkers:     workers,
				RawNames:       rawNames,
				TypeExtensions: typeExts,
				OnEntryDone: func(e *lumpkit.Entry, out string) {
					done.Add(1)
					a.Logger().Debug("extracted", "entry", e.Path(), "path", out)
				},
			}
			if prefix != "" {
				opts.Entries = lumpkit.FilterByPrefix(a.Entries(), prefix)
			}
			if createOnly {
				opts.FileMode = lumpkit.ExportFileModeCreateOnly
			}

			if err := a.ExportEntries(cmd.Context(), output, opts); err != nil {
				return err
			}

			fmt.Printf("Extracted %d entries to %s\n", done.Load(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "Output directory")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Only extract entries under this path prefix")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Writer workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&rawNames, "raw-names", false, "Keep entry names without sanitizing")
	cmd.Flags().BoolVar(&createOnly, "create-only", false, "Fail instead of overwriting existing files")
	cmd.Flags().BoolVar(&typeExts, "type-ext", false, "Append type extensions to names without one")

	return cmd
}

func convertCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Copy every entry of an archive into a new archive",
		Long: "Copy every entry of an archive into a new archive. The target format " +
			"comes from --format or the destination extension; flat formats flatten directories.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openArchive(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			opts, err := loadOptions()
			if err != nil {
				return err
			}
			formats := lumpkit.DefaultFormats()

			if format == "" {
				info, ok := formats.ByExtension(filepath.Ext(args[1]))
				if !ok {
					return fmt.Errorf("%w: cannot infer format of %s, use --format", lumpkit.ErrUnknownFormat, args[1])
				}
				format = info.ID
			}

			dst, err := lumpkit.New(format, opts)
			if err != nil {
				return err
			}
			defer func() { _ = dst.Close() }()

			pasted, err := dst.Paste(src.Root(), nil, -1)
			if err != nil {
				return fmt.Errorf("copy entries: %w", err)
			}
			if err := dst.SaveAs(args[1]); err != nil {
				return err
			}

			fmt.Printf("Wrote %d entries to %s (%s)\n", len(pasted), args[1], dst.Format().Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Target format id (wad, zip, pak, grp, pod, pbo, folder)")

	return cmd
}
