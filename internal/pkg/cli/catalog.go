package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
)

func newCatalogCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the SKU catalog",
	}
	cmd.AddCommand(newCatalogCheckCommand(opts))
	return cmd
}

func newCatalogCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the catalog and summarize its tables",
		Long: `Load the catalog with the same validation the gateway runs at startup and
print a summary: agents per level, primary and fallback SKU counts, and the
legacy SKUs that only resolve while the fallback table is enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := opts.loadCatalog(cmd)
			if err != nil {
				return fmt.Errorf("catalog invalid: %w", err)
			}
			resolver := catalog.NewResolver(c.Table, cfg.AgentFallbackEnabled, nil)

			levels := map[catalog.Level]int{}
			for _, a := range c.Agents() {
				levels[a.Level]++
			}

			out := cmd.OutOrStdout()
			source := cfg.SkuCatalogPath
			if source == "" {
				source = "embedded"
			}
			fmt.Fprintf(out, "catalog: %s\n", source)
			fmt.Fprintf(out, "agents: %d (standard %d, plus %d, premium %d)\n",
				len(c.Agents()), levels[catalog.LevelStandard], levels[catalog.LevelPlus], levels[catalog.LevelPremium])
			fmt.Fprintf(out, "primary skus: %d\n", len(c.Table.Primary))
			fmt.Fprintf(out, "fallback skus: %d (enabled: %t)\n", len(c.Table.Fallback), cfg.AgentFallbackEnabled)

			fallbackOnly := resolver.FallbackOnly()
			fmt.Fprintf(out, "fallback-only skus: %d\n", len(fallbackOnly))
			for _, sku := range fallbackOnly {
				fmt.Fprintf(out, "  %s\n", sku)
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}
