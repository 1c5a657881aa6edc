package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
	"github.com/thanya-aura/thanyaaura-gateway/app/repository"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/config"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/database"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/entitlements"
)

// EntitlementReader is satisfied by *entitlements.Store.
type EntitlementReader interface {
	EffectiveAgents(ctx context.Context, email string) ([]catalog.AgentSlug, error)
	ListSubscriptions(ctx context.Context, email string) ([]models.Subscription, error)
}

func openStore(cfg config.Config, resolver *catalog.Resolver) (EntitlementReader, error) {
	db, err := database.SetupDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	repos := repository.NewFactory(db).GetRepositories()
	return entitlements.NewStore(repos.Subscription, resolver), nil
}

func newEntitlementsCommand(opts *options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "entitlements EMAIL",
		Short: "Show a buyer's effective agents and subscriptions",
		Long: `Read the subscriptions stored for a buyer and print the agents they are
entitled to right now, computed the same way /v1/run checks access.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := opts.loadCatalog(cmd)
			if err != nil {
				return err
			}
			store, err := opts.openStore(cfg, catalog.NewResolver(c.Table, cfg.AgentFallbackEnabled, nil))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			email := entitlements.NormalizeEmail(args[0])
			agents, err := store.EffectiveAgents(ctx, email)
			if err != nil {
				return err
			}
			subs, err := store.ListSubscriptions(ctx, email)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "buyer: %s\n", email)
			fmt.Fprintf(out, "agents (%d): %s\n\n", len(agents), joinSlugs(agents))

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SKU\tORDER\tPROVIDER\tSTATUS\tUPDATED")
			for _, s := range subs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Sku, s.OrderID, s.Provider, s.Status, s.UpdatedAt.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "query timeout")
	return cmd
}
