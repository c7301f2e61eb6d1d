package main

import (
	"time"

	"github.com/ropekit/ropekit/chain"
	"github.com/spf13/cobra"
)

var (
	benchTotal    int
	benchChunk    int
	benchSizeHint bool
	benchPrepend  bool
	benchIters    int
	benchMinBlock int
	benchMaxBlock int
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVar(&benchTotal, "total", 16<<20, "Total bytes per iteration")
	cmd.Flags().IntVar(&benchChunk, "chunk", 117, "Bytes per append")
	cmd.Flags().IntVar(&benchIters, "iters", 5, "Iterations")
	cmd.Flags().BoolVar(&benchSizeHint, "size-hint", false, "Pass the total size as a hint")
	cmd.Flags().BoolVar(&benchPrepend, "prepend", false, "Prepend instead of append")
	cmd.Flags().IntVar(&benchMinBlock, "min-block", 0, "Minimum block size (0 = default)")
	cmd.Flags().IntVar(&benchMaxBlock, "max-block", 0, "Maximum block size (0 = default)")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Measure chain append throughput",
		Long: `The bench command builds chains from fixed-size chunks and reports
throughput and the resulting block layout, for comparing sizing options.

Example:
  chainctl bench --chunk 64 --total 33554432
  chainctl bench --chunk 64 --size-hint --min-block 256`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
}

func runBench() error {
	chunk := make([]byte, benchChunk)
	for i := range chunk {
		chunk[i] = byte(i)
	}
	opts := chain.Options{MinBlockSize: benchMinBlock, MaxBlockSize: benchMaxBlock}
	if benchSizeHint {
		opts.SizeHint = benchTotal
	}

	var best time.Duration
	var lastBlocks, lastMemory int
	for iter := 0; iter < benchIters; iter++ {
		start := time.Now()
		c := &chain.Chain{}
		for c.Size() < benchTotal {
			if benchPrepend {
				c.Prepend(chunk, opts)
			} else {
				c.Append(chunk, opts)
			}
		}
		elapsed := time.Since(start)
		lastBlocks = c.BlockCount()
		lastMemory = c.EstimateMemory()
		if best == 0 || elapsed < best {
			best = elapsed
		}
		printVerbose("iter %d: %v\n", iter, elapsed)
	}

	mbPerSec := float64(benchTotal) / (1 << 20) / best.Seconds()
	printInfo("best:         %v (%.1f MiB/s)\n", best, mbPerSec)
	printInfo("blocks:       %d\n", lastBlocks)
	printInfo("est. memory:  %d\n", lastMemory)
	return nil
}
