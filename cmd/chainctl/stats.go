package main

import (
	"github.com/spf13/cobra"
)

var statsBlockSize int

func init() {
	cmd := newStatsCmd()
	cmd.Flags().IntVar(&statsBlockSize, "block-size", 64<<10,
		"Split the file into blocks of this many bytes")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Show block statistics for a file wrapped as a chain",
		Long: `The stats command maps a file as a chain and reports block counts,
size distribution and the estimated memory footprint.

Example:
  chainctl stats data.bin
  chainctl stats data.bin --block-size 4096`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args[0])
		},
	}
}

func runStats(path string) error {
	c, err := chainFromFile(path, statsBlockSize)
	if err != nil {
		return err
	}
	defer c.Clear()

	blocks := 0
	minBlock, maxBlock := -1, 0
	for it := c.Blocks(); it.Next(); {
		n := len(it.Bytes())
		blocks++
		if minBlock < 0 || n < minBlock {
			minBlock = n
		}
		if n > maxBlock {
			maxBlock = n
		}
	}
	if minBlock < 0 {
		minBlock = 0
	}

	printInfo("size:         %d\n", c.Size())
	printInfo("blocks:       %d\n", blocks)
	printInfo("min block:    %d\n", minBlock)
	printInfo("max block:    %d\n", maxBlock)
	if blocks > 0 {
		printInfo("avg block:    %d\n", c.Size()/blocks)
	}
	printInfo("est. memory:  %d\n", c.EstimateMemory())
	return nil
}
