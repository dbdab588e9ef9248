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
	"go.uber.org/zap"

	"fundgate/config"
	"fundgate/disputes"
	"fundgate/events"
	"fundgate/host"
	"fundgate/proposals"
	"fundgate/rest"
	"fundgate/state"
)

func newServeCommand() *cobra.Command {
	var (
		listen        string
		dataDir       string
		blockInterval time.Duration
		startBlock    uint64
		authorities   []string
		juryPanel     []string
		devMode       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the engines and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(devMode)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			params, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := params.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			var store state.Store
			if devMode {
				store = state.NewMemoryStore()
			} else {
				bs, err := state.OpenBadgerStore(dataDir)
				if err != nil {
					return fmt.Errorf("open store at %s: %w", dataDir, err)
				}
				defer bs.Close() //nolint:errcheck
				store = bs
			}

			clock := host.NewCounter(startBlock)
			sink := events.NewZapSink(log.Named("events"))
			ledger := host.NewMockLedger()
			authority := host.NewStaticAuthority(toAddresses(authorities)...)

			juries := disputes.NewEngine(store, clock, sink, log.Named("disputes"), authority, params)
			projects := proposals.NewEngine(
				store, clock, ledger, sink, log.Named("proposals"),
				juries, proposals.StaticJury(toAddresses(juryPanel)),
				proposals.NoopRefundHandler{}, params,
			)
			juries.SetCompletionHandler(projects)
			if err := projects.EnsureStorageVersion(); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              listen,
				Handler:           rest.NewServer(projects, juries, log.Named("rest")),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Block production: one tick, one block, both sweeps.
			ticker := time.NewTicker(blockInterval)
			defer ticker.Stop()
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						block := clock.Advance()
						projects.OnInitialize(block)
						juries.OnInitialize(block)
					}
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", zap.String("addr", listen), zap.Duration("block_interval", blockInterval))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8480", "HTTP listen address")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./fundgate-data", "badger database directory")
	cmd.Flags().DurationVar(&blockInterval, "block-interval", 6*time.Second, "wall-clock length of one block")
	cmd.Flags().Uint64Var(&startBlock, "start-block", 0, "block height to resume counting from")
	cmd.Flags().StringSliceVar(&authorities, "authority", []string{"system:root"}, "accounts allowed to force-settle disputes")
	cmd.Flags().StringSliceVar(&juryPanel, "jury", nil, "static jury panel for raised disputes")
	cmd.Flags().BoolVar(&devMode, "dev", false, "in-memory store and console logging")
	return cmd
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func toAddresses(ss []string) []host.Address {
	out := make([]host.Address, len(ss))
	for i, s := range ss {
		out[i] = host.Address(s)
	}
	return out
}
