// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/bangumi-sync/bangumi-sync/internal/config"
)

// watchConfigLevel watches path for writes and applies the file's logLevel
// to the global zerolog level, letting an operator raise or lower verbosity
// without restarting the daemon. Every other field requires a restart: the
// loops and adapters built from them are not safely swappable at runtime.
func watchConfigLevel(ctx context.Context, log zerolog.Logger, path string) {
	if path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable, log level hot-reload disabled")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not watch config file")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reloaded, err := config.Load(path)
			if err != nil {
				log.Warn().Err(err).Msg("config reload failed")
				continue
			}
			level, err := zerolog.ParseLevel(strings.ToLower(reloaded.LogLevel))
			if err != nil {
				log.Warn().Err(err).Str("logLevel", reloaded.LogLevel).Msg("config reload: invalid log level")
				continue
			}
			zerolog.SetGlobalLevel(level)
			log.Info().Str("logLevel", level.String()).Msg("log level reloaded from config")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		}
	}
}
