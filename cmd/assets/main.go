// ABOUTME: Main entry point for the filter-assets command line tool
// ABOUTME: Provides the update daemon and one-shot asset maintenance commands

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"filter-assets/core/assets"
	"filter-assets/core/domain"
	"filter-assets/pkg/config"
	"filter-assets/pkg/utils/duration"
	utiltime "filter-assets/pkg/utils/time"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "assets",
		Short:        "Filter list and resource asset manager",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("store", "", "store backend: memory, redis or sqlite (overrides STORE_TYPE)")
	rootCmd.PersistentFlags().String("bootstrap", "", "manifest location used on a cold start (overrides BOOTSTRAP_LOCATION)")

	rootCmd.AddCommand(
		newRunCmd(),
		newGetCmd(),
		newMetadataCmd(),
		newUpdateCmd(),
		newPurgeCmd(),
	)
	return rootCmd
}

// withApp loads configuration, applies flag overrides and runs fn against
// an initialized service
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Type = v
	}
	if v, _ := cmd.Flags().GetString("bootstrap"); v != "" {
		cfg.Assets.BootstrapLocation = v
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.service.Initialize(ctx); err != nil {
		return err
	}
	defer a.service.Shutdown(context.Background())

	return fn(ctx, a)
}

func newGetCmd() *cobra.Command {
	var noCache bool
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the content of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res := a.service.Get(ctx, args[0], assets.GetOptions{DontCache: noCache})
				if !res.OK() {
					return fmt.Errorf("%s: %s", res.Code, res.Err)
				}
				fmt.Fprint(cmd.OutOrStdout(), res.Content)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not cache remotely fetched content")
	return cmd
}

func newMetadataCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "List registered assets with their cache state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				meta, err := a.service.Metadata(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(meta)
				}
				printMetadata(cmd, meta)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print metadata as JSON")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var delay string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Run one update cycle and wait for it to finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := duration.Parse(delay)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				finished, err := a.service.RunCycle(ctx, d)
				if err != nil {
					a.service.UpdateStop()
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cycle %s updated %d asset(s)\n", finished.CycleID, len(finished.UpdatedKeys))
				for _, key := range finished.UpdatedKeys {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", key)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&delay, "delay", "1s", "pause between two fetches")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "give up waiting after this long")
	return cmd
}

func newPurgeCmd() *cobra.Command {
	var all, dirty bool
	cmd := &cobra.Command{
		Use:   "purge [key...]",
		Short: "Remove cached assets, or only mark them for refresh with --dirty",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("name at least one asset key or pass --all")
			}
			var m domain.Matcher = domain.Keys(args...)
			if all {
				m = domain.All()
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if dirty {
					return a.service.MarkDirty(ctx, m, nil)
				}
				return a.service.Remove(ctx, m)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "apply to every cached asset")
	cmd.Flags().BoolVar(&dirty, "dirty", false, "keep content but force a refresh on the next cycle")
	return cmd
}

func printMetadata(cmd *cobra.Command, meta map[string]domain.AssetMetadata) {
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	for _, key := range keys {
		m := meta[key]
		state := "uncached"
		if m.Cached {
			state = "cached " + utiltime.FormatMillis(m.WriteTime)
		}
		if m.Obsolete {
			state += " (obsolete)"
		}
		fmt.Fprintf(out, "%-32s %-8s %s\n", key, m.Kind(), state)
		if m.LastError != nil {
			fmt.Fprintf(out, "%-32s error: %s\n", "", m.LastError.Message)
		}
	}
}
