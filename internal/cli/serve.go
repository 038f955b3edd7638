package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghindex/ghindex/internal/config"
	"github.com/ghindex/ghindex/internal/index"
	"github.com/ghindex/ghindex/internal/server"
	"github.com/ghindex/ghindex/pkg/cache"
)

// newServeCmd creates the "serve" command, which runs the index server
// until interrupted.
func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the package index server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			store, err := newStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("cache backend %q: %w", cfg.Cache.Backend, err)
			}
			defer store.Close()

			renderer, err := server.NewRenderer(cfg.Templates.Index, cfg.Templates.Repository)
			if err != nil {
				return fmt.Errorf("load templates: %w", err)
			}

			listing := index.NewListing(store, cfg.Cache.TTL.Duration, cfg.Identities())
			srv := server.New(logger, cfg.GitHub.APIURL, listing, renderer)

			logger.Info("starting server",
				"addr", cfg.Server.Addr,
				"accounts", len(cfg.Accounts),
				"cache", cfg.Cache.Backend,
			)
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the TOML config file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// newStore builds the listing cache store selected by the config.
func newStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "file":
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = defaultCacheDir(); err != nil {
				return nil, err
			}
		}
		return cache.NewFileStore(dir)
	case "redis":
		return cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	default:
		return cache.NewNullStore(), nil
	}
}
