package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/uscensus/internal/worker"
	"github.com/spf13/cobra"
)

var (
	statsFor     string
	statsIn      []string
	statsGroups  []string
	statsFile    string
	renameColumn bool
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <code...>",
	Short: "Fetch variables for a geography",
	Long: `Fetch one or more variables for a geography and print them as CSV.

The groups of the requested variables are loaded first: either name them
with --group, or they are derived from the variable codes (B17015_001E
belongs to group B17015).

Requests are split into batches of 49 variables and merged on the
geography columns.

Example:
  census stats B17015_001E B17015_002E --for state
  census stats B17015_001E --for county --in state:01 --rename
  census stats --file codes.txt --for "congressional district" --in state:06`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsFor, "for", "", "geography name or name:code (required)")
	statsCmd.Flags().StringArrayVar(&statsIn, "in", nil, "parent geography name:code (repeatable)")
	statsCmd.Flags().StringSliceVar(&statsGroups, "group", nil, "groups to load before querying")
	statsCmd.Flags().StringVar(&statsFile, "file", "", "read variable codes from a file, one per line")
	statsCmd.Flags().BoolVar(&renameColumn, "rename", false, "name columns by cleaned variable names instead of codes")
	_ = statsCmd.MarkFlagRequired("for")
}

func runStats(cmd *cobra.Command, args []string) error {
	codes := append([]string(nil), args...)
	if statsFile != "" {
		lines, err := worker.ReadLinesFromFile(statsFile)
		if err != nil {
			return err
		}
		codes = append(codes, lines...)
	}
	if len(codes) == 0 {
		return fmt.Errorf("no variable codes given")
	}

	forDomain, err := parseDomain(statsFor)
	if err != nil {
		return err
	}
	in, err := parseDomains(statsIn)
	if err != nil {
		return err
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	groups := statsGroups
	if len(groups) == 0 {
		groups = groupsOf(codes)
	}

	ctx := context.Background()
	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Loading groups %s...\n", strings.Join(groups, ", "))
	}
	if _, err := client.GetVariablesByGroup(ctx, groups...); err != nil {
		return fmt.Errorf("load variables: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Fetching %d variables for %s...\n", len(codes), forDomain)
	}
	t, err := client.GetStats(ctx, codes, forDomain, in, renameColumn)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d rows, %d columns\n", t.Len(), len(t.Columns()))
	}
	return writeTable(t)
}

// groupsOf derives group codes from variable codes (B17015_001E -> B17015)
func groupsOf(codes []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range codes {
		g := c
		if i := strings.LastIndex(c, "_"); i > 0 {
			g = c[:i]
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}
