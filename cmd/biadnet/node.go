package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/biadnet/go-biadnet/cmd"
	"github.com/biadnet/go-biadnet/config"
	"github.com/biadnet/go-biadnet/metrics"
	"github.com/biadnet/go-biadnet/sql"
	"github.com/biadnet/go-biadnet/store"
	"github.com/biadnet/go-biadnet/updater"
)

const connectTimeout = 30 * time.Second

func nodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "node",
		Short: "start the node",
		RunE: func(c *cobra.Command, _ []string) error {
			conf, err := cmd.LoadConfig(c)
			if err != nil {
				return err
			}
			logger, err := conf.Logging.Build()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runNode(ctx, logger, conf)
		},
	}
}

func openStore(logger *zap.Logger, conf *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(conf.Store.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data folder: %w", err)
	}
	db, err := sql.Open("file:"+conf.Store.Path(),
		sql.WithSchema(store.Schema),
		sql.WithConnections(conf.Store.Connections),
		sql.WithLogger(logger.Named("db")))
	if err != nil {
		return nil, err
	}
	st, err := store.New(db, conf.Sketch.Params(),
		store.WithLogger(logger.Named("store")),
		store.WithCacheSize(conf.Store.CacheSize))
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return st, nil
}

func runNode(ctx context.Context, logger *zap.Logger, conf *config.Config) (err error) {
	st, err := openStore(logger, conf)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()

	listen, err := conf.P2P.ListenAddrs()
	if err != nil {
		return err
	}
	bootnodes, err := conf.P2P.BootnodeAddrs()
	if err != nil {
		return err
	}
	h, err := libp2p.New(libp2p.ListenAddrs(listen...))
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}
	defer h.Close()

	u, err := updater.New(h, st, conf.Updater,
		updater.WithLogger(logger.Named("updater")),
		updater.WithServerOpts(conf.Server.Opts(conf.Metrics.Enable)...))
	if err != nil {
		return err
	}
	u.Start()
	defer u.Stop()

	eg, ctx := errgroup.WithContext(ctx)
	if conf.Metrics.Enable {
		eg.Go(func() error {
			return metrics.Serve(ctx, logger.Named("metrics"), conf.Metrics.Listen)
		})
		if conf.Metrics.PushURL != "" {
			eg.Go(func() error {
				metrics.Push(ctx, logger.Named("metrics"), clockwork.NewRealClock(), metrics.PushConfig{
					URL:    conf.Metrics.PushURL,
					Period: conf.Metrics.PushPeriod,
					Grouping: map[string]string{
						"network": conf.Sketch.Network,
						"node":    h.ID().String(),
					},
				})
				return nil
			})
		}
	}
	connectBootnodes(ctx, logger, h, bootnodes)

	logger.Info("node started",
		zap.Stringer("id", h.ID()),
		zap.Any("addrs", h.Addrs()),
		zap.Int("content", st.Count()))
	<-ctx.Done()
	logger.Info("shutting down")
	return eg.Wait()
}

// connectBootnodes connects to the bootnodes in the background. The updater
// polls every peer as soon as it is connected.
func connectBootnodes(ctx context.Context, logger *zap.Logger, h host.Host, bootnodes []peer.AddrInfo) {
	for _, info := range bootnodes {
		go func() {
			ctx, cancel := context.WithTimeout(ctx, connectTimeout)
			defer cancel()
			if err := h.Connect(ctx, info); err != nil {
				logger.Warn("failed to connect to bootnode",
					zap.Stringer("peer", info.ID),
					zap.Error(err))
				return
			}
			logger.Debug("connected to bootnode", zap.Stringer("peer", info.ID))
		}()
	}
}
