package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plantkeep/application"
	"github.com/felixgeelhaar/plantkeep/domain/cache"
)

// newCacheCmd creates the cache command group.
func (a *App) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Read and write timestamped cache entries",
	}
	cmd.AddCommand(
		a.newCacheSaveCmd(),
		a.newCacheLoadCmd(),
		a.newCacheStaleCmd(),
		a.newCacheMetaCmd(),
		a.newCacheInfoCmd(),
		a.newCacheClearCmd(),
		a.newCacheSizeCmd(),
	)
	return cmd
}

// expiryFor returns d, or the key's default window when d is zero.
func expiryFor(key string, d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return cache.DefaultExpiry(key)
}

type cacheSaveOptions struct {
	expiry time.Duration
}

func (a *App) newCacheSaveCmd() *cobra.Command {
	opts := &cacheSaveOptions{}

	cmd := &cobra.Command{
		Use:   "save <key> <json>",
		Short: "Store a JSON value under key",
		Long: `Store a JSON value under key with the current time.

Examples:
  plantkeep cache save weather_cache '{"temp": 21}'
  plantkeep cache save cached_plants "$(cat plants.json)" --expiry 48h`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, payload := args[0], args[1]
			if !json.Valid([]byte(payload)) {
				return fmt.Errorf("value for %s is not valid JSON", key)
			}

			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			var saveOpts []application.SaveOption
			if opts.expiry > 0 {
				saveOpts = append(saveOpts, application.WithExpiry(opts.expiry))
			}
			if !s.cache.Save(cmd.Context(), key, json.RawMessage(payload), saveOpts...) {
				return fmt.Errorf("failed to save %s", key)
			}
			fmt.Fprintf(a.stdout, "Saved %s\n", key)
			return nil
		},
	}

	cmd.Flags().DurationVar(&opts.expiry, "expiry", 0, "Custom expiry stored with the entry")
	return cmd
}

type cacheLoadOptions struct {
	expiry time.Duration
}

func (a *App) newCacheLoadCmd() *cobra.Command {
	opts := &cacheLoadOptions{}

	cmd := &cobra.Command{
		Use:   "load <key>",
		Short: "Print a fresh cache entry, evicting it if expired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			var v any
			if !s.cache.Load(cmd.Context(), key, expiryFor(key, opts.expiry), &v) {
				return fmt.Errorf("no fresh entry for %s", key)
			}
			return a.print(v)
		},
	}

	cmd.Flags().DurationVar(&opts.expiry, "expiry", 0, "Expiry window (default: the key's window)")
	return cmd
}

func (a *App) newCacheStaleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stale <key>",
		Short: "Print a cache entry regardless of age",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			var v any
			if !s.cache.LoadStale(cmd.Context(), args[0], &v) {
				return fmt.Errorf("no entry for %s", args[0])
			}
			return a.print(v)
		},
	}
}

func (a *App) newCacheMetaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meta <key>",
		Short: "Print the metadata of a cache entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			meta, ok := s.cache.Metadata(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("no entry for %s", args[0])
			}
			return a.print(meta)
		},
	}
}

func (a *App) newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print metadata for every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(s.cache.Info(cmd.Context()))
		},
	}
}

type cacheClearOptions struct {
	all bool
}

func (a *App) newCacheClearCmd() *cobra.Command {
	opts := &cacheClearOptions{}

	cmd := &cobra.Command{
		Use:   "clear [keys...]",
		Short: "Remove cache entries",
		Long: `Remove the given cache entries, or every recognised cache key with --all.

Examples:
  plantkeep cache clear weather_cache
  plantkeep cache clear --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.all && len(args) == 0 {
				return fmt.Errorf("give keys to clear or --all")
			}

			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			var ok bool
			switch {
			case opts.all:
				ok = s.cache.ClearAll(cmd.Context())
			case len(args) == 1:
				ok = s.cache.Clear(cmd.Context(), args[0])
			default:
				ok = s.cache.ClearMultiple(cmd.Context(), args)
			}
			if !ok {
				return fmt.Errorf("failed to clear cache")
			}
			fmt.Fprintln(a.stdout, "Cache cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Clear every recognised cache key")
	return cmd
}

func (a *App) newCacheSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Print the bytes held by recognised cache keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(s.cache.Size(cmd.Context()))
		},
	}
}
