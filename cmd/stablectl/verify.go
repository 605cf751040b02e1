package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stablekit/stablekit/region/root"
)

func init() {
	rootCmd.AddCommand(newVerifyCmd())
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <region-file>",
		Short: "Check the root header and snapshot decode",
		Long: `The verify command checks that the root header points inside the
region, that the snapshot it points at decodes, and that the embedded
allocator state is self-consistent.

Example:
  stablectl verify region.dat`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args[0])
		},
	}
}

func runVerify(path string) error {
	f, err := openRegion(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, off, length, err := readSnapshot(f)
	if errors.Is(err, root.ErrNoSnapshot) {
		printInfo("✓ Empty region, no snapshot to verify\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("header check failed: %w", err)
	}
	printVerbose("Snapshot at [%d,%d)\n", off, off+length)
	printInfo("✓ Header points inside the region\n")

	state, err := findAllocatorState(data)
	if err != nil {
		return fmt.Errorf("snapshot check failed: %w", err)
	}
	printInfo("✓ Snapshot decodes\n")
	printInfo("✓ Allocator state is consistent (boundary=%d, %d free segments)\n",
		state.Boundary, len(state.Segments))
	return nil
}
