package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var showMatrix bool

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the registered file formats",
	Long: `Lists every format known to the configuration, sorted by pretty name.

With --matrix, prints a FROM \ TO reachability matrix across every
registered format instead, the same relation convert and path query
against, so a host can audit its configuration for gaps.`,
	RunE: runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
	formatsCmd.Flags().BoolVar(&showMatrix, "matrix", false, "print a FROM \\ TO reachability matrix instead of the format list")
}

func runFormats(cmd *cobra.Command, args []string) error {
	formats, convs, err := mustRegistries()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if showMatrix {
		return runMatrix(formats, convs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPRETTY\tEXTENSIONS\tVIEWER\tEDITOR")
	for _, f := range formats.Sorted() {
		viewer := formats.ResolveViewer(f.Name)
		editor := formats.ResolveEditor(f.Name)
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", f.Name, f.Pretty, f.Extensions, viewer, editor)
	}
	return w.Flush()
}
