package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Print the shortest converter chain between two formats",
	Long: `Resolves the shortest chain of configured converters from one
format to another without running anything, useful for diagnosing why a
conversion falls back to the default converter or fails with no path.`,
	Args: cobra.ExactArgs(2),
	RunE: runPath,
}

func init() {
	rootCmd.AddCommand(pathCmd)
}

func runPath(cmd *cobra.Command, args []string) error {
	from, to := args[0], args[1]

	formats, convs, err := mustRegistries()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if _, ok := formats.Get(from); !ok {
		return fmt.Errorf("unknown format: %s", from)
	}
	if _, ok := formats.Get(to); !ok {
		return fmt.Errorf("unknown format: %s", to)
	}

	if from == to {
		fmt.Printf("%s == %s (no conversion needed)\n", from, to)
		return nil
	}

	edges := convs.ShortestPath(from, to)
	if len(edges) == 0 {
		fmt.Printf("no configured path from %s to %s\n", from, to)
		return nil
	}

	current := from
	for _, edgeID := range edges {
		c, ok := convs.ConverterForEdge(edgeID)
		if !ok {
			return fmt.Errorf("internal error: edge %d has no converter", edgeID)
		}
		fmt.Printf("%s --[%s]--> %s\n", current, c.Command, c.To)
		current = c.To
	}
	return nil
}
