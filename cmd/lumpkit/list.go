// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/woozymasta/lumpkit"
)

func listCmd() *cobra.Command {
	var (
		prefix   string
		showType bool
	)

	cmd := &cobra.Command{
		Use:     "list <archive>",
		Aliases: []string{"ls"},
		Short:   "List archive entries",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			entries := lumpkit.FilterByPrefix(a.Entries(), prefix)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
			for _, e := range entries {
				if showType {
					fmt.Fprintf(w, "%d\t%s\t %s\n", e.Size(), e.Type().ID, lumpkit.DisplayPath(e.Path()))
					continue
				}
				fmt.Fprintf(w, "%d\t %s\n", e.Size(), lumpkit.DisplayPath(e.Path()))
			}

			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("%d entries\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Only list entries under this path prefix")
	cmd.Flags().BoolVarP(&showType, "types", "t", false, "Show detected entry types")

	return cmd
}
