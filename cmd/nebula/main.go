package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/nebula-profiler/pkg/registry"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "nebula",
		Short: "Nebula - partitioned data profiler",
		Long: `Nebula profiles data sets with configurable analyzers. Rows can be split into
partitions that are profiled in parallel; the partial results are merged into one
report that does not depend on the number of partitions.`,
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Nebula profiler v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "components",
		Short: "List available component types",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available Components:")
			for _, d := range registry.Default().List() {
				reducible := "reducible"
				if !d.Reducible() {
					reducible = "single partition only"
				}
				fmt.Fprintf(out, "  - %-13s %s (%s)\n", d.Type, d.Description, reducible)
			}
		},
	})

	root.AddCommand(newProfileCommand())
	return root
}
