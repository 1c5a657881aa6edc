package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/apperror"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
)

type resolveOutput struct {
	Sku    string              `json:"sku"`
	Source string              `json:"source"`
	Agents []catalog.AgentSlug `json:"agents"`
}

func newResolveCommand(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve SKU [SKU...]",
		Short: "Show which agents a SKU grants",
		Long: `Resolve one or more SKUs exactly as the webhook processor does and print
the answering table (primary or fallback) with the granted agents.

Exits non-zero when any SKU is unknown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := opts.loadCatalog(cmd)
			if err != nil {
				return err
			}
			resolver := catalog.NewResolver(c.Table, cfg.AgentFallbackEnabled, nil)

			var (
				results []resolveOutput
				unknown []string
			)
			for _, sku := range args {
				res, err := resolver.Resolve(catalog.Sku(sku))
				if err != nil && !errors.Is(err, apperror.ErrUnknownSku) {
					return err
				}
				if err != nil {
					unknown = append(unknown, sku)
				}
				agents := res.Agents
				if agents == nil {
					agents = []catalog.AgentSlug{}
				}
				results = append(results, resolveOutput{Sku: sku, Source: res.Source.String(), Agents: agents})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SKU\tSOURCE\tAGENTS")
				for _, r := range results {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Sku, r.Source, joinSlugs(r.Agents))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			if len(unknown) > 0 {
				return fmt.Errorf("%s: %w", strings.Join(unknown, ", "), apperror.ErrUnknownSku)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func joinSlugs(slugs []catalog.AgentSlug) string {
	if len(slugs) == 0 {
		return "-"
	}
	parts := make([]string, len(slugs))
	for i, s := range slugs {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
