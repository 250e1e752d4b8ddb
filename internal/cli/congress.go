package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/uscensus/internal/congress"
	"github.com/spf13/cobra"
)

var (
	congressNumber  int
	congressChamber string
	congressState   string
)

var congressCmd = &cobra.Command{
	Use:   "congress",
	Short: "Query the ProPublica Congress API",
	Long: `Query the ProPublica Congress API. Requires CENSUS_CONGRESS_API_KEY
(or congress_api_key in the config file).`,
}

var congressMembersCmd = &cobra.Command{
	Use:   "members",
	Short: "List members of the House or Senate",
	Example: `  census congress members --congress 116 --chamber senate
  census congress members --chamber house --state AL`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chamber, err := congress.ParseChamber(congressChamber)
		if err != nil {
			return err
		}

		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		t, err := client.CongressMembers(context.Background(), congressNumber, chamber, congressState)
		if err != nil {
			return fmt.Errorf("congress members: %w", err)
		}
		return writeTable(t)
	},
}

func init() {
	rootCmd.AddCommand(congressCmd)
	congressCmd.AddCommand(congressMembersCmd)

	congressMembersCmd.Flags().IntVar(&congressNumber, "congress", 116, "congress number (ignored with --state)")
	congressMembersCmd.Flags().StringVar(&congressChamber, "chamber", "senate", "house or senate")
	congressMembersCmd.Flags().StringVar(&congressState, "state", "", "two-letter state code: list current members for that state")
}
