// Command f12c compiles and runs an F12 source file (spec.md §1, §6: the
// driver is intentionally thin -- flag parsing and wiring only, never
// language logic, which stays in compile and its sub-packages).
package main

import (
	"fmt"
	"os"

	"fortio.org/log"
	"github.com/spf13/cobra"

	"github.com/f12lang/f12/compile"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		includeDirs []string
		memSize     int
		heapSize    int
		trace       bool
	)

	cmd := &cobra.Command{
		Use:   "f12c <file.f12>",
		Short: "Compile and run an F12 program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("f12c: %w", err)
			}
			defer f.Close()

			result, err := compile.CompileFile(f, path, compile.WithIncludeDirs(includeDirs...))
			if err != nil {
				log.Errf("%v", err)
				return err
			}

			runOpts := []compile.RunOption{
				compile.WithStdin(os.Stdin),
				compile.WithStdout(os.Stdout),
				compile.WithTrace(trace),
			}
			if memSize > 0 {
				runOpts = append(runOpts, compile.WithMemorySize(memSize))
			}
			if heapSize > 0 {
				runOpts = append(runOpts, compile.WithHeapSize(heapSize))
			}

			if err := compile.Run(result.Code, runOpts...); err != nil {
				log.Errf("%v", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&includeDirs, "include", "I", nil, "additional directory to search for >include files")
	cmd.Flags().IntVar(&memSize, "mem-size", 0, "override the VM's total memory region size in bytes")
	cmd.Flags().IntVar(&heapSize, "heap-size", 0, "override the portion of memory reserved for the heap")
	cmd.Flags().BoolVar(&trace, "trace", false, "enable per-instruction Debug-level trace logging")

	return cmd
}
