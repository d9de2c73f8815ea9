package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stocksim/api"
	"stocksim/config"
	"stocksim/marketdata"
	"stocksim/sim"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the simulation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if opts.configPath != "" {
				loaded, err := config.LoadFromFile(opts.configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}

			log := newLogger(cfg.Log.Level)

			var provider marketdata.Provider = marketdata.NewYahooClient(
				cfg.Provider.BaseURL, cfg.Provider.RequestsPerMinute)
			if cfg.Provider.CachePath != "" {
				cache, err := marketdata.NewCache(cfg.Provider.CachePath, provider)
				if err != nil {
					return fmt.Errorf("open bar cache: %w", err)
				}
				defer cache.Close()
				provider = cache
			}

			timeout, err := cfg.Server.ParseRequestTimeout()
			if err != nil {
				return err
			}

			engine := sim.NewEngine(provider, log)
			srv := api.NewServer(cfg.Server.Addr, engine, log, timeout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("starting server", "addr", cfg.Server.Addr)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
