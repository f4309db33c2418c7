// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the daemon's Config from a TOML file on disk with
// environment-variable overrides layered on top.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// envBindings maps the supported environment variables onto their Config
// fields.
var envBindings = map[string]string{
	"DATABASE_URL":        "databaseUrl",
	"DOWNLOADER_TYPE":     "downloaderType",
	"DOWNLOADER_HOST":     "downloaderHost",
	"DOWNLOADER_USERNAME": "downloaderUsername",
	"DOWNLOADER_PASSWORD": "downloaderPassword",
	"NOTIFICATION_TYPE":   "notificationType",
	"TELEGRAM_BOT_TOKEN":  "telegramBotToken",
	"TELEGRAM_CHAT_ID":    "telegramChatId",
}

// Load reads configPath (a TOML file; missing is not an error) and layers
// environment overrides from envBindings on top of domain.Defaults().
func Load(configPath string) (domain.Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	defaults := domain.Defaults()
	v.SetDefault("host", defaults.Host)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("logLevel", defaults.LogLevel)
	v.SetDefault("logMaxSize", defaults.LogMaxSize)
	v.SetDefault("logMaxBackups", defaults.LogMaxBackups)
	v.SetDefault("dataDir", defaults.DataDir)
	v.SetDefault("databaseUrl", defaults.DatabaseURL)
	v.SetDefault("metricsEnabled", defaults.MetricsEnabled)
	v.SetDefault("metricsHost", defaults.MetricsHost)
	v.SetDefault("metricsPort", defaults.MetricsPort)
	v.SetDefault("archivePath", defaults.ArchivePath)
	v.SetDefault("fetchIntervalSeconds", defaults.FetchIntervalSeconds)
	v.SetDefault("pollIntervalSeconds", defaults.PollIntervalSeconds)
	v.SetDefault("downloaderType", defaults.DownloaderType)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return domain.Config{}, err
			}
		}
	}

	for env, key := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return domain.Config{}, err
		}
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// SubscriptionEnvKey reports the Config key an environment variable is
// bound to, if any. Exposed so tests can confirm the binding table covers
// the documented environment surface.
func SubscriptionEnvKey(env string) (string, bool) {
	key, ok := envBindings[strings.ToUpper(env)]
	return key, ok
}
