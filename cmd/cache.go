package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	clearFrom string
	clearTo   string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the conversion cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every cached conversion result",
	RunE:  runCacheList,
}

var cacheEvictCmd = &cobra.Command{
	Use:     "evict",
	Short:   "Evict cached results for a (from, to) format pair",
	Aliases: []string{"clear"},
	RunE:    runCacheEvict,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report aggregate cache counts and size",
	RunE:  runCacheStats,
}

var cacheGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Evict every cached result older than the configured max age",
	RunE:  runCacheGC,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheGCCmd)

	cacheEvictCmd.Flags().StringVar(&clearFrom, "from", "", "source format to evict (required)")
	cacheEvictCmd.Flags().StringVar(&clearTo, "to", "", "target format to evict (required)")
	cacheEvictCmd.MarkFlagRequired("from")
	cacheEvictCmd.MarkFlagRequired("to")
}

func runCacheList(cmd *cobra.Command, args []string) error {
	_, c, err := engineMover()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORIGIN\tFROM\tTO\tCACHED\tTIMESTAMP")
	for _, e := range c.Entries() {
		ts := time.Unix(e.Item.Timestamp, 0).Format(time.RFC3339)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Origin, e.FromFormat, e.Target, e.Item.CacheName, ts)
	}
	return w.Flush()
}

func runCacheEvict(cmd *cobra.Command, args []string) error {
	_, c, err := engineMover()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := c.RemoveAll(clearFrom, clearTo); err != nil {
		return fmt.Errorf("evicting cache: %w", err)
	}
	fmt.Printf("evicted cached %s -> %s results\n", clearFrom, clearTo)
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	_, c, err := engineMover()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	s := c.Stats()

	fmt.Printf("origins:  %d\n", s.Origins)
	fmt.Printf("entries:  %d\n", s.Entries)
	fmt.Printf("bytes:    %d\n", s.Bytes)
	if s.Entries > 0 {
		fmt.Printf("oldest:   %s\n", time.Unix(s.OldestTimestamp, 0).Format(time.RFC3339))
		fmt.Printf("newest:   %s\n", time.Unix(s.NewestTimestamp, 0).Format(time.RFC3339))
	}
	return nil
}

func runCacheGC(cmd *cobra.Command, args []string) error {
	_, c, err := engineMover()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	evicted, err := c.GC()
	if err != nil {
		return fmt.Errorf("running cache gc: %w", err)
	}
	fmt.Printf("evicted %d expired cache entries\n", evicted)
	return nil
}
