package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Raniani-lab/enterpriise-sub000/internal/config"
	"github.com/Raniani-lab/enterpriise-sub000/internal/server"
	"github.com/Raniani-lab/enterpriise-sub000/packages/store"
	"github.com/Raniani-lab/enterpriise-sub000/packages/store/memory"
	"github.com/Raniani-lab/enterpriise-sub000/packages/store/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves workbooks over a JSON HTTP API. Workbooks are saved to Redis when configured, in memory otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}

		st, closeStore := newStore(cfg)
		defer closeStore()

		s := server.New(st, server.WithLogger(logger), server.WithModelOptions(cfg.ModelOptions()...))
		defer s.Close()

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server", "addr", srv.Addr, "redis", cfg.Redis.Addr != "")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "error", err)
				return srv.Close()
			}
			return nil
		}
	},
}

func newStore(cfg config.Config) (store.WorkbookStore, func()) {
	if cfg.Redis.Addr == "" {
		return memory.NewStore(), func() {}
	}
	rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		redis.WithPrefix(cfg.Redis.Prefix),
		redis.WithTTL(cfg.Redis.TTL),
	)
	return rs, func() { _ = rs.Close() }
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on, overrides the configuration")
}
