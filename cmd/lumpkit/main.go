// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

// Command lumpkit inspects, extracts, and converts game resource archives.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/lumpkit"
	"github.com/woozymasta/lumpkit/entrytype"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// global flags
var (
	verbose    bool
	configPath string
	typesPath  string
)

var rootCmd = &cobra.Command{
	Use:           "lumpkit",
	Short:         "lumpkit - game resource archive toolkit",
	Long:          "lumpkit lists, extracts, and converts WAD, zip/pk3, PAK, GRP, POD, and PBO archives.",
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log warnings and progress to stderr")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML file with archive options")
	rootCmd.PersistentFlags().StringVar(&typesPath, "types", "", "YAML file with extra entry type definitions")

	rootCmd.AddCommand(
		versionCmd(),
		listCmd(),
		infoCmd(),
		typesCmd(),
		detectCmd(),
		extractCmd(),
		convertCmd(),
	)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lumpkit %s\n", rootCmd.Version)
		},
	}
}

// newLogger returns a stderr text logger, or a discarding one unless verbose.
func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// loadTypes returns the built-in type registry extended by --types.
func loadTypes(logger *slog.Logger) (*entrytype.Registry, error) {
	if typesPath == "" {
		return entrytype.Default(), nil
	}

	reg, err := entrytype.NewBuiltin(nil, entrytype.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := reg.LoadFile(typesPath); err != nil {
		return nil, err
	}

	return reg, nil
}

// loadOptions builds archive options from --config and global flags.
func loadOptions() (*lumpkit.Options, error) {
	opts := &lumpkit.Options{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	opts.Logger = newLogger()
	types, err := loadTypes(opts.Logger)
	if err != nil {
		return nil, err
	}
	opts.Types = types

	return opts, nil
}

// openArchive opens path read-only with options from flags.
func openArchive(path string) (*lumpkit.Archive, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}
	opts.ReadOnly = true

	a, err := lumpkit.OpenFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return a, nil
}
