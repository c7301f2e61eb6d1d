package main

import (
	"os"

	"github.com/spf13/cobra"
)

var dumpBlockSize int

func init() {
	cmd := newDumpCmd()
	cmd.Flags().IntVar(&dumpBlockSize, "block-size", 0,
		"Split the file into blocks of this many bytes (0 = one block)")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file>",
		Short: "Show the block structure of a file wrapped as a chain",
		Long: `The dump command maps a file into memory, wraps it as a chain
without copying, and prints the resulting block structure.

Example:
  chainctl dump data.bin
  chainctl dump data.bin --block-size 65536`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args[0])
		},
	}
}

func runDump(path string) error {
	printVerbose("mapping %s\n", path)
	c, err := chainFromFile(path, dumpBlockSize)
	if err != nil {
		return err
	}
	defer c.Clear()
	c.DumpStructure(os.Stdout)
	return nil
}
