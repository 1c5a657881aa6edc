// Package cli holds the gatewayctl commands: offline checks of the SKU
// catalog and read access to stored entitlements.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/config"
)

// options are the flags shared by every subcommand.
type options struct {
	catalogPath string
	fallback    bool
	loadConfig  func() (config.Config, error)
	openStore   func(cfg config.Config, resolver *catalog.Resolver) (EntitlementReader, error)
}

func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(version, &options{loadConfig: config.Load, openStore: openStore})
}

func newRootCommand(version string, opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gatewayctl",
		Short: "Operator tool for the Thanyaaura agent gateway",
		Long: `gatewayctl inspects the SKU catalog the gateway resolves purchases with
and reads the entitlements stored for a buyer.

Settings come from the same environment (and .env file) as the gateway.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "catalog YAML file (default: SKU_CATALOG_PATH or the embedded catalog)")
	rootCmd.PersistentFlags().BoolVar(&opts.fallback, "fallback", true, "resolve legacy SKUs (default: AGENT_FALLBACK_ENABLED)")

	rootCmd.AddCommand(
		newResolveCommand(opts),
		newCatalogCommand(opts),
		newEntitlementsCommand(opts),
	)
	return rootCmd
}

// resolveSettings applies environment defaults to flags the user did not set.
func (o *options) resolveSettings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("catalog") {
		cfg.SkuCatalogPath = o.catalogPath
	}
	if cmd.Flags().Changed("fallback") {
		cfg.AgentFallbackEnabled = o.fallback
	}
	return cfg, nil
}

func (o *options) loadCatalog(cmd *cobra.Command) (*catalog.Catalog, config.Config, error) {
	cfg, err := o.resolveSettings(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	c, err := catalog.LoadFile(cfg.SkuCatalogPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	return c, cfg, nil
}
