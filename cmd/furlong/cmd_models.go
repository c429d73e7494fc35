package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/furlong/internal/adapters/registry"
	"github.com/okian/furlong/pkg/logger"
)

func newModelsCommand(g *globals) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Validate the manifest and list its models",
		Long: `Load the manifest with every artifact it references, reporting the first
problem found, then list the models and whether the tier is entitled to each.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			reg, err := registry.Load(cmd.Context(), cfg.ManifestPath, registry.WithLogger(logger.Get().Named("registry")))
			if err != nil {
				return err
			}
			tier := g.tier
			if tier == "" {
				tier = cfg.DefaultTier
			}
			catalog := reg.Info(tier)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), catalog, false)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "manifest %s (version %s), tier %s\n\n", cfg.ManifestPath, catalog.Version, catalog.Tier)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tFORMAT\tFEATURES\tWEIGHT\tENTITLED")
			for _, m := range catalog.Models {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%g\t%s\n", m.ID, m.Kind, m.Format, m.FeatureCount, m.Weight, yesNo(m.Entitled))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(reg.Entitled(tier)) == 0 {
				fmt.Fprintf(out, "\ntier %q is not entitled to any model\n", catalog.Tier)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")

	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
