// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/woozymasta/lumpkit"
)

func typesCmd() *cobra.Command {
	var formats bool

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List known entry types or archive formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

			if formats {
				fmt.Fprintln(w, "ID\tNAME\tEXTENSIONS\tDIRS")
				for _, info := range lumpkit.DefaultFormats().Infos() {
					fmt.Fprintf(w, "%s\t%s\t%v\t%t\n", info.ID, info.Name, info.Extensions, info.SupportsDirs)
				}

				return w.Flush()
			}

			reg, err := loadTypes(newLogger())
			if err != nil {
				return err
			}

			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tEXT")
			for _, t := range reg.Types() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Category, t.ExportExt)
			}

			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&formats, "formats", "f", false, "List archive formats instead of entry types")

	return cmd
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>...",
		Short: "Detect the entry type of loose files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}

			a, err := lumpkit.New(lumpkit.FormatZip, opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			for _, path := range args {
				e, err := a.AddNewEntry(filepath.Base(path), nil, -1)
				if err != nil {
					return err
				}
				if err := e.ImportFile(path); err != nil {
					return err
				}

				e.DetectType()
				fmt.Printf("%s\t%s\t%s\n", path, e.Type().ID, e.Type().Name)
			}

			return nil
		},
	}
}
