// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
	"github.com/bangumi-sync/bangumi-sync/internal/logger"
	"github.com/bangumi-sync/bangumi-sync/internal/rss"
	"github.com/bangumi-sync/bangumi-sync/internal/store"
)

var (
	rssTypeFlag     string
	rssTitleFlag    string
	rssSeasonFlag   int
	rssCategoryFlag string
)

var rssCmd = &cobra.Command{
	Use:   "rss",
	Short: "Inspect and manage RSS subscriptions",
}

var rssFeedCmd = &cobra.Command{
	Use:   "feed <url>",
	Short: "Fetch and parse a feed without persisting a subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  runRSSFeed,
}

var rssAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a new RSS subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  runRSSAdd,
}

var rssListCmd = &cobra.Command{
	Use:   "list",
	Short: "List RSS subscriptions",
	Args:  cobra.NoArgs,
	RunE:  runRSSList,
}

var rssRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an RSS subscription by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runRSSRemove,
}

func init() {
	rssFeedCmd.Flags().StringVar(&rssTypeFlag, "rss-type", string(domain.ParserMikan), "parser variant")

	rssAddCmd.Flags().StringVar(&rssTypeFlag, "rss-type", string(domain.ParserMikan), "parser variant")
	rssAddCmd.Flags().StringVar(&rssTitleFlag, "title", "", "display title for this subscription")
	rssAddCmd.Flags().IntVar(&rssSeasonFlag, "season", 0, "season override (0 leaves it unset)")
	rssAddCmd.Flags().StringVar(&rssCategoryFlag, "category", "", "downloader category for dispatched torrents")

	rssCmd.AddCommand(rssFeedCmd)
	rssCmd.AddCommand(rssAddCmd)
	rssCmd.AddCommand(rssListCmd)
	rssCmd.AddCommand(rssRemoveCmd)
}

func runRSSFeed(cmd *cobra.Command, args []string) error {
	url := args[0]

	_, log, err := loadAppConfig()
	if err != nil {
		return err
	}

	parser, err := rss.ByVariant(logger.Component(log, "parser"), domain.ParserVariant(rssTypeFlag))
	if err != nil {
		return err
	}

	fetcher := rss.NewFetcher()
	body, err := fetcher.Fetch(cmd.Context(), url)
	if err != nil {
		return err
	}

	sub := domain.Subscription{URL: url, ParserType: domain.ParserVariant(rssTypeFlag)}
	items, err := parser.Parse(sub, body)
	if err != nil {
		return err
	}

	for _, item := range items {
		fmt.Fprintf(cmd.OutOrStdout(), "S%02dE%02d %s [%s] -> %s\n", item.Season, item.Episode, item.Title, item.Fansub, item.Torrent.URL)
	}
	return nil
}

func runRSSAdd(cmd *cobra.Command, args []string) error {
	url := args[0]
	cfg, log, err := loadAppConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	subs := store.NewSubscriptionStore(db)

	sub := domain.Subscription{
		URL:        url,
		Title:      rssTitleFlag,
		ParserType: domain.ParserVariant(rssTypeFlag),
		Category:   rssCategoryFlag,
		Enabled:    true,
	}
	if rssSeasonFlag > 0 {
		sub.Season = &rssSeasonFlag
	}

	id, err := subs.Insert(ctx, sub)
	if err != nil {
		return err
	}
	log.Info().Int64("id", id).Str("url", url).Msg("subscription added")
	fmt.Fprintf(cmd.OutOrStdout(), "added subscription %d\n", id)
	return nil
}

func runRSSList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadAppConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	subs := store.NewSubscriptionStore(db)
	list, err := subs.List(ctx)
	if err != nil {
		return err
	}

	for _, sub := range list {
		state := "enabled"
		if !sub.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", sub.ID, sub.Title, sub.URL, state)
	}
	return nil
}

func runRSSRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid subscription id %q: %w", args[0], err)
	}

	cfg, log, err := loadAppConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	subs := store.NewSubscriptionStore(db)
	if err := subs.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int64("id", id).Msg("subscription removed")
	fmt.Fprintf(cmd.OutOrStdout(), "removed subscription %d\n", id)
	return nil
}
