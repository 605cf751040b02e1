package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/stablekit/stablekit/internal/format"
	"github.com/stablekit/stablekit/region/root"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <region-file>",
		Short: "Report region size and root header fields",
		Long: `The info command opens a region file and reports its page count and
the two root header fields.

Example:
  stablectl info region.dat
  stablectl info region.dat --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}
}

type regionInfo struct {
	File       string `json:"file"`
	SizeBytes  uint64 `json:"size_bytes"`
	Pages      uint64 `json:"pages"`
	HasRoot    bool   `json:"has_root"`
	RootOffset uint64 `json:"root_offset"`
	RootLength uint64 `json:"root_length"`
}

func runInfo(path string) error {
	printVerbose("Opening region: %s\n", path)

	f, err := openRegion(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info := regionInfo{
		File:      path,
		SizeBytes: f.SizeBytes(),
		Pages:     format.PageCount(f.SizeBytes()),
	}
	off, length, err := root.NewStore(f, nil).Head()
	switch {
	case err == nil:
		info.HasRoot = true
		info.RootOffset = off
		info.RootLength = length
	case errors.Is(err, root.ErrNoSnapshot):
		// fresh region
	default:
		return err
	}

	if jsonOut {
		return printJSON(info)
	}

	printInfo("Region Information:\n")
	printInfo("  File: %s\n", info.File)
	printInfo("  Size: %d bytes (%d pages)\n", info.SizeBytes, info.Pages)
	if info.HasRoot {
		printInfo("  Root snapshot: offset=%d length=%d\n", info.RootOffset, info.RootLength)
	} else {
		printInfo("  Root snapshot: none\n")
	}
	return nil
}
