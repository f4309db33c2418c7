// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bangumi-sync/bangumi-sync/internal/api"
	"github.com/bangumi-sync/bangumi-sync/internal/filter"
	"github.com/bangumi-sync/bangumi-sync/internal/logger"
	"github.com/bangumi-sync/bangumi-sync/internal/manager"
	"github.com/bangumi-sync/bangumi-sync/internal/metrics"
	"github.com/bangumi-sync/bangumi-sync/internal/orchestrator"
	"github.com/bangumi-sync/bangumi-sync/internal/renamer"
	"github.com/bangumi-sync/bangumi-sync/internal/rss"
	"github.com/bangumi-sync/bangumi-sync/internal/store"
	"github.com/bangumi-sync/bangumi-sync/internal/torrentmeta"
)

var (
	fetchIntervalSeconds int
	sweepIntervalSeconds int
	archivePathFlag      string
	pathRewriteFlag      string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run or manage the bangumi-sync daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon: FetchLoop, PollLoop, the completion hook, and the embedded HTTP API",
	RunE:  runDaemonStart,
}

func init() {
	daemonStartCmd.Flags().IntVar(&fetchIntervalSeconds, "interval", 0, "override the configured feed fetch interval, in seconds")
	daemonStartCmd.Flags().IntVar(&sweepIntervalSeconds, "resweep-interval", 0, "re-drive completed-but-unrenamed tasks on this interval, in seconds (0 disables)")
	daemonStartCmd.Flags().StringVarP(&archivePathFlag, "archived-path", "a", "", "override the configured archive root")
	daemonStartCmd.Flags().StringVarP(&pathRewriteFlag, "path-rewrite", "m", "", "src:dst download-path rewrite rule")
	daemonCmd.AddCommand(daemonStartCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadAppConfig()
	if err != nil {
		return err
	}
	if fetchIntervalSeconds > 0 {
		cfg.FetchIntervalSeconds = fetchIntervalSeconds
	}
	if archivePathFlag != "" {
		cfg.ArchivePath = archivePathFlag
	}
	if pathRewriteFlag != "" {
		cfg.PathRewrite = pathRewriteFlag
	}
	if sweepIntervalSeconds > 0 {
		cfg.SweepIntervalSeconds = sweepIntervalSeconds
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	subs := store.NewSubscriptionStore(db)
	tasks := store.NewTaskStore(db)

	adapter, err := buildDownloader(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build downloader: %w", err)
	}

	cache := torrentmeta.New(torrentmeta.NewHTTPFetcher(), torrentmeta.DefaultCapacity)
	filters := filter.New(logger.Component(log, "filter"), cache)
	mgr := manager.New(logger.Component(log, "downloader"), adapter, cache, tasks)
	ren := renamer.New(nil)
	notif := buildNotifier(cfg)

	orchCfg := orchestrator.Config{
		FetchInterval: durationOrDefault(cfg.FetchIntervalSeconds, 300),
		PollInterval:  durationOrDefault(cfg.PollIntervalSeconds, 60),
		SweepInterval: durationOrDefault(cfg.SweepIntervalSeconds, 0),
		ArchivePath:   cfg.ArchivePath,
		PathRewrite:   cfg.PathRewrite,
	}
	orch := orchestrator.New(log, orchCfg, subs, tasks, rss.NewFetcher(), filters, mgr, ren, notif)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		orch.Run(ctx)
	}()

	go watchConfigLevel(ctx, logger.Component(log, "config"), configFile)

	apiHandler := api.New(logger.Component(log, "api"), subs, tasks)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: apiHandler.Router(),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", apiSrv.Addr).Msg("starting api server")
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api server stopped unexpectedly")
		}
	}()

	var metricsSrv *http.Server
	if cfg.MetricsEnabled {
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.MetricsHost, cfg.MetricsPort),
			Handler: metrics.Handler(),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Str("addr", metricsSrv.Addr).Msg("starting metrics exporter")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics exporter stopped unexpectedly")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	wg.Wait()
	return nil
}

func durationOrDefault(seconds, def int) time.Duration {
	if seconds <= 0 {
		seconds = def
	}
	return time.Duration(seconds) * time.Second
}
