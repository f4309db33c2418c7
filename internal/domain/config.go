// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// Config represents the daemon's full runtime configuration, loaded from a
// TOML file on disk with environment-variable overrides layered on top.
type Config struct {
	Version string

	// Host/Port/BaseURL govern the embedded HTTP API (subscription CRUD + status).
	Host    string `toml:"host" mapstructure:"host"`
	Port    int    `toml:"port" mapstructure:"port"`
	BaseURL string `toml:"baseUrl" mapstructure:"baseUrl"`

	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	DataDir     string `toml:"dataDir" mapstructure:"dataDir"`
	DatabaseURL string `toml:"databaseUrl" mapstructure:"databaseUrl"`

	MetricsEnabled bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost    string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort    int    `toml:"metricsPort" mapstructure:"metricsPort"`

	ArchivePath string `toml:"archivePath" mapstructure:"archivePath"`
	// PathRewrite is a "src:dst" rule translating the downloader's filesystem
	// view into the renamer's view; empty means no translation.
	PathRewrite string `toml:"pathRewrite" mapstructure:"pathRewrite"`

	FetchIntervalSeconds int `toml:"fetchIntervalSeconds" mapstructure:"fetchIntervalSeconds"`
	PollIntervalSeconds  int `toml:"pollIntervalSeconds" mapstructure:"pollIntervalSeconds"`
	// SweepIntervalSeconds is 0 by default: the stale-completion resweep is
	// opt-in.
	SweepIntervalSeconds int `toml:"sweepIntervalSeconds" mapstructure:"sweepIntervalSeconds"`

	DownloaderType     string `toml:"downloaderType" mapstructure:"downloaderType"`
	DownloaderHost     string `toml:"downloaderHost" mapstructure:"downloaderHost"`
	DownloaderUsername string `toml:"downloaderUsername" mapstructure:"downloaderUsername"`
	DownloaderPassword string `toml:"downloaderPassword" mapstructure:"downloaderPassword"`

	NotificationType string `toml:"notificationType" mapstructure:"notificationType"`
	TelegramBotToken string `toml:"telegramBotToken" mapstructure:"telegramBotToken"`
	TelegramChatID   string `toml:"telegramChatId" mapstructure:"telegramChatId"`
}

// Defaults returns a Config populated with the values the daemon falls back
// to when neither the TOML file nor the environment set a field.
func Defaults() Config {
	return Config{
		Host:                 "127.0.0.1",
		Port:                 7475,
		LogLevel:             "info",
		LogMaxSize:           50,
		LogMaxBackups:        3,
		DataDir:              "./data",
		DatabaseURL:          "./data/bangumi-sync.db",
		MetricsEnabled:       false,
		MetricsHost:          "127.0.0.1",
		MetricsPort:          9091,
		ArchivePath:          "/downloads/bangumi",
		FetchIntervalSeconds: 300,
		PollIntervalSeconds:  60,
		DownloaderType:       "dummy",
	}
}
