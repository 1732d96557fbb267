package cmd

import (
	"encoding/json"
	"sort"

	"github.com/spf13/cobra"

	"github.com/plantops/safesearch/internal/output"
)

func newFacetsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "facets",
		Short: "List equipment facets grouped by family",
		Long: `List the equipment tags present in the corpus, grouped by
equipment family. Useful for building facet pickers and for finding the
exact tag to pass to search --equipment.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			byFamily := rt.engine.EquipmentByFamily()

			families := make([]string, 0, len(byFamily))
			for family := range byFamily {
				families = append(families, family)
			}
			sort.Strings(families)

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(byFamily)
			}

			out := output.New(cmd.OutOrStdout(), noColor)
			out.Facets(byFamily, families)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
