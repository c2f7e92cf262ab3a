// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/woozymasta/lumpkit"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <archive>",
		Short: "Show archive format and summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			info := a.Format()
			fmt.Printf("Format:      %s (%s)\n", info.Name, info.ID)
			fmt.Printf("Entries:     %d\n", a.NumEntries())
			fmt.Printf("Directories: %d\n", len(a.Root().AllDirs()))

			var total int64
			types := make(map[string]int)
			for _, e := range a.Entries() {
				total += int64(e.Size())
				types[e.Type().ID]++
			}
			fmt.Printf("Data size:   %d bytes\n", total)

			if info.ID == lumpkit.FormatPBO {
				headers, err := a.PBOHeaders()
				if err != nil {
					return err
				}
				for _, h := range headers {
					fmt.Printf("Header:      %s=%s\n", h.Key, h.Value)
				}
			}

			ids := make([]string, 0, len(types))
			for _, t := range a.Types().Types() {
				if n := types[t.ID]; n > 0 {
					ids = append(ids, fmt.Sprintf("%s:%d", t.ID, n))
				}
			}
			if len(ids) > 0 {
				fmt.Printf("Types:       %s\n", strings.Join(ids, " "))
			}

			return nil
		},
	}
}
