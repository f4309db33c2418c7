// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package cmd implements the bangumi-sync CLI surface: "daemon start",
// "rss feed", "rss add" and the supplementary "rss list"/"rss remove".
package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "bangumi-sync",
	Short: "Ingests anime RSS feeds, dispatches torrents, and renames completed media.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file path")
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(rssCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
