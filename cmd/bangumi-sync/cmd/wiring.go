// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bangumi-sync/bangumi-sync/internal/config"
	"github.com/bangumi-sync/bangumi-sync/internal/domain"
	"github.com/bangumi-sync/bangumi-sync/internal/downloader"
	"github.com/bangumi-sync/bangumi-sync/internal/downloader/dummy"
	"github.com/bangumi-sync/bangumi-sync/internal/downloader/qbittorrent"
	"github.com/bangumi-sync/bangumi-sync/internal/logger"
	"github.com/bangumi-sync/bangumi-sync/internal/notifier"
	"github.com/bangumi-sync/bangumi-sync/internal/notifier/telegram"
	"github.com/bangumi-sync/bangumi-sync/internal/store"
)

// loadAppConfig reads the daemon's Config from --config plus environment
// overrides.
func loadAppConfig() (domain.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return domain.Config{}, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)
	return cfg, log, nil
}

// openDatabase opens and migrates the sqlite handle named by cfg.
func openDatabase(ctx context.Context, cfg domain.Config) (*sql.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = domain.Defaults().DatabaseURL
	}
	return store.Open(ctx, dsn)
}

// buildDownloader selects the downloader.Adapter variant named by
// cfg.DownloaderType.
func buildDownloader(ctx context.Context, cfg domain.Config) (downloader.Adapter, error) {
	switch cfg.DownloaderType {
	case "qbittorrent":
		return qbittorrent.New(ctx, cfg.DownloaderHost, cfg.DownloaderUsername, cfg.DownloaderPassword)
	case "dummy", "":
		return dummy.New(), nil
	default:
		return nil, fmt.Errorf("unknown downloader type %q", cfg.DownloaderType)
	}
}

// buildNotifier selects the notifier.Notifier variant named by
// cfg.NotificationType. An unset type suppresses notifications entirely.
func buildNotifier(cfg domain.Config) notifier.Notifier {
	switch cfg.NotificationType {
	case "telegram":
		return telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID)
	default:
		return notifier.Noop{}
	}
}
