// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package logger wires up the daemon's zerolog output: a human-readable
// console writer plus, when configured, a rotated file sink via lumberjack.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// New builds the root logger for the process from the daemon's config.
func New(cfg domain.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	writers = append(writers, zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
		// Move the component field into a bracketed message prefix, e.g. "[rss] ...".
		FormatPrepare: func(evt map[string]interface{}) error {
			component, ok := evt["component"].(string)
			if !ok {
				return nil
			}
			delete(evt, "component")
			msg, _ := evt[zerolog.MessageFieldName].(string)
			evt[zerolog.MessageFieldName] = strings.TrimSpace("[" + component + "] " + msg)
			return nil
		},
	})

	if cfg.LogPath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    maxOrDefault(cfg.LogMaxSize, 50),
			MaxBackups: maxOrDefault(cfg.LogMaxBackups, 3),
			Compress:   true,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the given component name,
// rendered in console mode as a bracketed prefix, e.g. "[rss] ...".
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

func maxOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
