package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchGroupCodes []string

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search groups or variables by regular expression",
	Long: `Search matches a case-insensitive regular expression against group
descriptions, variable labels and their cleaned names.

Example:
  census search groups "poverty status"
  census search variables "below poverty" --group B17015`,
}

var searchGroupsCmd = &cobra.Command{
	Use:   "groups <pattern>",
	Short: "Search groups by description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		t, err := client.SearchGroups(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("search groups: %w", err)
		}
		return writeTable(t)
	},
}

var searchVariablesCmd = &cobra.Command{
	Use:   "variables <pattern>",
	Short: "Search variables by label (whole dataset unless --group is given)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		t, err := client.SearchVariables(context.Background(), args[0], searchGroupCodes...)
		if err != nil {
			return fmt.Errorf("search variables: %w", err)
		}
		return writeTable(t)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchGroupsCmd)
	searchCmd.AddCommand(searchVariablesCmd)

	searchVariablesCmd.Flags().StringSliceVar(&searchGroupCodes, "group", nil, "restrict the search to these groups (repeatable)")
}
