package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/stablekit/stablekit/internal/format"
)

func init() {
	rootCmd.AddCommand(newSnapshotCmd())
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <region-file>",
		Short: "Report allocator occupancy from the committed snapshot",
		Long: `The snapshot command decodes the committed root snapshot and reports
the allocator's boundary, free list, and occupancy.

Example:
  stablectl snapshot region.dat
  stablectl snapshot region.dat --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(args[0])
		},
	}
}

type snapshotReport struct {
	SnapshotOffset uint64  `json:"snapshot_offset"`
	SnapshotLength uint64  `json:"snapshot_length"`
	Boundary       uint64  `json:"boundary"`
	FreeSegments   int     `json:"free_segments"`
	FreeBytes      uint64  `json:"free_bytes"`
	LiveBytes      uint64  `json:"live_bytes"`
	Occupancy      float64 `json:"occupancy"`
}

func runSnapshot(path string) error {
	f, err := openRegion(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, off, length, err := readSnapshot(f)
	if err != nil {
		return err
	}
	state, err := findAllocatorState(data)
	if err != nil {
		return err
	}

	var free uint64
	for _, n := range state.Segments {
		free += n
	}
	// Managed space is everything between the header and the boundary.
	managed := state.Boundary - format.HeaderSize
	report := snapshotReport{
		SnapshotOffset: off,
		SnapshotLength: length,
		Boundary:       state.Boundary,
		FreeSegments:   len(state.Segments),
		FreeBytes:      free,
		LiveBytes:      managed - free,
	}
	if managed > 0 {
		report.Occupancy = float64(report.LiveBytes) / float64(managed)
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("Snapshot: offset=%d length=%d\n", off, length)
	printInfo("Allocator:\n")
	printInfo("  Boundary: %d\n", report.Boundary)
	printInfo("  Free: %d bytes in %d segments\n", report.FreeBytes, report.FreeSegments)
	printInfo("  Live: %d bytes (%.1f%% occupancy)\n", report.LiveBytes, report.Occupancy*100)

	if verbose && len(state.Segments) > 0 {
		starts := make([]uint64, 0, len(state.Segments))
		for start := range state.Segments {
			starts = append(starts, start)
		}
		sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
		printVerbose("Free list:\n")
		for _, start := range starts {
			printVerbose("  [%d,%d)\n", start, start+state.Segments[start])
		}
	}
	return nil
}
