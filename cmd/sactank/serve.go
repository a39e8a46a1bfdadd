// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danjacques/gotracebuf/convert"
	"github.com/danjacques/gotracebuf/support/logging"
	"github.com/danjacques/gotracebuf/tank"
	"github.com/danjacques/gotracebuf/transfer"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		listen      string
		metricsAddr string
		batchSize   int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive SAC files and batch them into tank files",
		Long: `Receive SAC files from senders, convert each into the tank stream, and
rotate the stream into a numbered tank file after every batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("listen") {
				a.cfg.Server.Listen = listen
			}
			if flags.Changed("metrics-addr") {
				a.cfg.Metrics.Address = metricsAddr
			}
			if flags.Changed("batch-size") {
				a.cfg.Tank.BatchSize = batchSize
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&listen, "listen", "", "Address to receive files on. Overrides the configuration.")
	flags.StringVar(&metricsAddr, "metrics-addr", "",
		"If set, serve Prometheus metrics over HTTP on this address.")
	flags.IntVar(&batchSize, "batch-size", 0, "Files per tank file. Overrides the configuration.")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg

	b, closeBatcher, err := newBatcher(cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeBatcher()

	if cfg.Metrics.Address != "" {
		srv, err := startMetrics(cfg.Metrics.Address, a.logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	l, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", cfg.Server.Listen)
	}

	srv := transfer.Server{
		Logger:      a.logger,
		Dir:         cfg.Server.SACDir,
		TempDir:     cfg.Server.TempDir,
		MaxFileSize: cfg.Server.MaxFileSize,
		Timeout:     cfg.Server.Timeout,
		Handler: transfer.HandlerFunc(func(ctx context.Context, path string) error {
			res, err := b.Add(ctx, path)
			if err != nil {
				return err
			}
			a.logger.Info(res)
			return nil
		}),
	}
	if err := srv.Serve(ctx, l); err != nil {
		return err
	}

	a.logger.Infof("Shutting down with %d file(s) pending rotation.", b.Pending())
	return nil
}

func startMetrics(addr string, logger logging.L) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	convert.RegisterMonitoring(reg)
	tank.RegisterMonitoring(reg)
	transfer.RegisterMonitoring(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening for metrics on %s", addr)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics server failed: %s", err)
		}
	}()
	logger.Infof("Serving metrics on http://%s/metrics", l.Addr())
	return srv, nil
}
