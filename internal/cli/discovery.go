package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/uscensus/internal/model"
	"github.com/spf13/cobra"
)

var (
	allVariables bool
	inDomains    []string
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List the variable groups of the dataset",
	Example: `  census groups
  census groups --year 2018 --survey acs5 -o groups.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		t, err := client.GetGroups(context.Background())
		if err != nil {
			return fmt.Errorf("get groups: %w", err)
		}
		return writeTable(t)
	},
}

var variablesCmd = &cobra.Command{
	Use:   "variables [group...]",
	Short: "List the variables of one or more groups",
	Long: `List the variables of the given groups, or of the whole dataset with --all.

Example:
  census variables B17015 B18104
  census variables --all -o variables.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !allVariables {
			return fmt.Errorf("name at least one group, or pass --all")
		}

		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if allVariables {
			t, err := client.GetAllVariables(ctx)
			if err != nil {
				return fmt.Errorf("get all variables: %w", err)
			}
			return writeTable(t)
		}

		t, err := client.GetVariablesByGroup(ctx, args...)
		if err != nil {
			return fmt.Errorf("get variables: %w", err)
		}
		return writeTable(t)
	},
}

var geographiesCmd = &cobra.Command{
	Use:   "geographies",
	Short: "List supported geography levels and their for/in clauses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		t, err := client.GetSupportedGeographies(context.Background())
		if err != nil {
			return fmt.Errorf("get supported geographies: %w", err)
		}
		return writeTable(t)
	},
}

var codesCmd = &cobra.Command{
	Use:   "codes <for>",
	Short: "List the codes and names of a geography level",
	Long: `List the codes and names of a geography level.

Domains are written name:code; a bare name means every code (name:*).

Example:
  census codes state
  census codes "congressional district" --in state:01
  census codes tract --in state:06 --in county:037`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		forDomain, err := parseDomain(args[0])
		if err != nil {
			return err
		}
		in, err := parseDomains(inDomains)
		if err != nil {
			return err
		}

		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		t, err := client.GetGeographyCodes(context.Background(), forDomain, in...)
		if err != nil {
			return fmt.Errorf("get geography codes: %w", err)
		}
		if t.Len() == 0 {
			fmt.Fprintf(os.Stderr, "No codes found for %s\n", forDomain)
		}
		return writeTable(t)
	},
}

func parseDomain(raw string) (model.GeoDomain, error) {
	d := model.ParseGeoDomain(raw)
	if d.Name == "" {
		return model.GeoDomain{}, fmt.Errorf("invalid geography %q (want name or name:code)", raw)
	}
	return d, nil
}

// parseDomains parses repeated --in values
func parseDomains(raw []string) ([]model.GeoDomain, error) {
	out := make([]model.GeoDomain, 0, len(raw))
	for _, r := range raw {
		d, err := parseDomain(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(variablesCmd)
	rootCmd.AddCommand(geographiesCmd)
	rootCmd.AddCommand(codesCmd)

	variablesCmd.Flags().BoolVar(&allVariables, "all", false, "list every variable of the dataset")
	codesCmd.Flags().StringArrayVar(&inDomains, "in", nil, "parent geography name:code (repeatable)")
}
