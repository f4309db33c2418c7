// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package orchestrator spawns and supervises the daemon's cooperating
// loops: FetchLoop, PollLoop, the completion hook's renaming path, and the
// optional SweepLoop.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
	"github.com/bangumi-sync/bangumi-sync/internal/filter"
	"github.com/bangumi-sync/bangumi-sync/internal/manager"
	"github.com/bangumi-sync/bangumi-sync/internal/metrics"
	"github.com/bangumi-sync/bangumi-sync/internal/notifier"
	"github.com/bangumi-sync/bangumi-sync/internal/renamer"
	"github.com/bangumi-sync/bangumi-sync/internal/rss"
)

// interItemDelay is the rate-limiting sleep between dispatches within one
// FetchLoop iteration, so the tracker isn't hammered.
const interItemDelay = 200 * time.Millisecond

// SubscriptionStore is the subset of store.SubscriptionStore FetchLoop needs.
type SubscriptionStore interface {
	List(ctx context.Context) ([]domain.Subscription, error)
}

// TaskStore is the subset of store.TaskStore the completion path needs.
type TaskStore interface {
	IsRenamed(ctx context.Context, hash string) (renamed bool, found bool, err error)
	GetBangumiInfo(ctx context.Context, hash string) (domain.BangumiInfo, bool, error)
	GetTask(ctx context.Context, hash string) (domain.DownloadTask, bool, error)
	UpdateTaskRenamed(ctx context.Context, hash string) error
	SweepStaleCompletions(ctx context.Context) ([]domain.DownloadTask, error)
}

// Fetcher retrieves a feed's raw XML body over HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Renamer materializes a completed download into the archive layout.
type Renamer interface {
	Rename(info domain.BangumiInfo, src, dstRoot string) error
}

// Manager is the subset of manager.Manager the Orchestrator drives.
type Manager interface {
	Dispatch(ctx context.Context, rssID *int64, ref domain.TorrentRef, info domain.BangumiInfo) error
	Reconcile(ctx context.Context) error
	AddHook(h manager.Hook)
}

// Config bundles the Orchestrator's tunables, sourced from domain.Config.
type Config struct {
	FetchInterval time.Duration
	PollInterval  time.Duration
	SweepInterval time.Duration // 0 disables the sweep loop
	ArchivePath   string
	PathRewrite   string
}

// Orchestrator owns the loop lifecycles and routes completion events to the
// Renamer and Notifier.
type Orchestrator struct {
	log zerolog.Logger
	cfg Config

	subs     SubscriptionStore
	tasks    TaskStore
	fetcher  Fetcher
	filters  *filter.Chain
	mgr      Manager
	renamer  Renamer
	notifier notifier.Notifier

	wg sync.WaitGroup
}

// New builds an Orchestrator and installs its completion hook on mgr.
func New(
	log zerolog.Logger,
	cfg Config,
	subs SubscriptionStore,
	tasks TaskStore,
	fetcher Fetcher,
	filters *filter.Chain,
	mgr Manager,
	ren Renamer,
	notif notifier.Notifier,
) *Orchestrator {
	o := &Orchestrator{
		log:      log,
		cfg:      cfg,
		subs:     subs,
		tasks:    tasks,
		fetcher:  fetcher,
		filters:  filters,
		mgr:      mgr,
		renamer:  ren,
		notifier: notif,
	}
	mgr.AddHook(o.onTransition)
	return o
}

// Run starts FetchLoop, PollLoop, and — if cfg.SweepInterval > 0 —
// SweepLoop, blocking until ctx is cancelled. In-flight iterations finish;
// new ones do not start once ctx is done.
func (o *Orchestrator) Run(ctx context.Context) {
	o.wg.Add(2)
	go o.fetchLoop(ctx)
	go o.pollLoop(ctx)

	if o.cfg.SweepInterval > 0 {
		o.wg.Add(1)
		go o.sweepLoop(ctx)
	}

	o.wg.Wait()
}

func (o *Orchestrator) fetchLoop(ctx context.Context) {
	defer o.wg.Done()
	log := o.log.With().Str("component", "rss").Logger()

	ticker := time.NewTicker(o.cfg.FetchInterval)
	defer ticker.Stop()

	for {
		o.fetchOnce(ctx, log)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) fetchOnce(ctx context.Context, log zerolog.Logger) {
	subs, err := o.subs.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list subscriptions")
		return
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		if !sub.Enabled {
			continue
		}
		o.processSubscription(ctx, log, sub)
	}
}

func (o *Orchestrator) processSubscription(ctx context.Context, log zerolog.Logger, sub domain.Subscription) {
	parser, err := rss.ByVariant(o.log.With().Str("component", "parser").Logger(), sub.ParserType)
	if err != nil {
		log.Error().Err(err).Int64("rssId", sub.ID).Msg("unsupported parser variant")
		return
	}

	body, err := o.fetcher.Fetch(ctx, sub.URL)
	if err != nil {
		log.Error().Err(err).Str("url", sub.URL).Msg("failed to fetch feed")
		return
	}

	items, err := parser.Parse(sub, body)
	if err != nil {
		log.Error().Err(err).Str("url", sub.URL).Msg("failed to parse feed")
		return
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		o.dispatchItem(ctx, log, sub, item)
		time.Sleep(interItemDelay)
	}
}

func (o *Orchestrator) dispatchItem(ctx context.Context, log zerolog.Logger, sub domain.Subscription, item domain.SubscriptionItem) {
	if !o.filters.IsAdmitted(ctx, sub.Filters, item) {
		metrics.FeedItemsTotal.WithLabelValues("filtered").Inc()
		return
	}

	info := bangumiInfoFromItem(item)
	rssID := sub.ID
	if err := o.mgr.Dispatch(ctx, &rssID, item.Torrent, info); err != nil {
		log.Error().Err(err).Str("url", item.Torrent.URL).Msg("dispatch failed")
		return
	}
	metrics.FeedItemsTotal.WithLabelValues("dispatched").Inc()
}

func bangumiInfoFromItem(item domain.SubscriptionItem) domain.BangumiInfo {
	display := item.Fansub + item.MediaInfo
	return domain.BangumiInfo{
		ShowName:    item.Title,
		EpisodeName: item.EpisodeTitle,
		DisplayName: display,
		Season:      item.Season,
		Episode:     item.Episode,
		Category:    item.Category,
	}
}

func (o *Orchestrator) pollLoop(ctx context.Context) {
	defer o.wg.Done()
	log := o.log.With().Str("component", "downloader").Logger()

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := o.mgr.Reconcile(ctx); err != nil {
			log.Error().Err(err).Msg("reconcile failed")
		}
		metrics.ReconcileTicksTotal.Inc()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) sweepLoop(ctx context.Context) {
	defer o.wg.Done()
	log := o.log.With().Str("component", "store").Logger()

	ticker := time.NewTicker(o.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		stale, err := o.tasks.SweepStaleCompletions(ctx)
		if err != nil {
			log.Error().Err(err).Msg("sweep failed")
		} else {
			for _, task := range stale {
				o.completeTask(ctx, task.TorrentHash)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// onTransition is the completion hook installed on the Manager. It fires
// synchronously on every observed transition but immediately spawns the
// actual renaming work onto its own goroutine, keeping long work out of
// the reconciler's critical section.
func (o *Orchestrator) onTransition(ctx context.Context, status domain.TaskStatus, torrent domain.DownloadingTorrent) {
	metrics.StatusTransitionsTotal.WithLabelValues(string(status)).Inc()
	if status != domain.TaskStatusCompleted {
		return
	}
	go o.completeTask(context.Background(), torrent.Hash)
}

// completeTask drives one finished download through the completion path:
// skip if already renamed or untracked, resolve the renaming snapshot,
// invoke the Renamer, and on success mark renamed and notify.
func (o *Orchestrator) completeTask(ctx context.Context, hash string) {
	log := o.log.With().Str("component", "rename").Str("hash", hash).Logger()

	renamed, found, err := o.tasks.IsRenamed(ctx, hash)
	if err != nil {
		log.Error().Err(err).Msg("failed to check renamed flag")
		return
	}
	if !found {
		log.Debug().Msg("task not tracked, skipping rename (downloaded manually)")
		return
	}
	if renamed {
		return
	}

	info, found, err := o.tasks.GetBangumiInfo(ctx, hash)
	if err != nil {
		log.Error().Err(err).Msg("failed to load bangumi info")
		return
	}
	if !found {
		log.Debug().Msg("no bangumi info recorded, skipping rename")
		return
	}

	task, found, err := o.tasks.GetTask(ctx, hash)
	if err != nil {
		log.Error().Err(err).Msg("failed to load task for rename source path")
		return
	}
	if !found || task.DownloadPath == nil {
		log.Debug().Msg("no download path recorded, skipping rename")
		return
	}

	src := renamer.ReplacePath(*task.DownloadPath, o.cfg.PathRewrite)
	if err := o.renamer.Rename(info, src, o.cfg.ArchivePath); err != nil {
		log.Error().Err(err).Str("src", src).Msg("rename failed")
		metrics.RenameOutcomesTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.RenameOutcomesTotal.WithLabelValues("ok").Inc()

	if err := o.tasks.UpdateTaskRenamed(ctx, hash); err != nil {
		log.Error().Err(err).Msg("failed to mark renamed")
		return
	}

	msg := notifier.CompletionMessage(info.ShowName, info.Season, info.Episode)
	if err := o.notifier.Notify(ctx, msg); err != nil {
		log.Warn().Err(err).Msg("notification failed")
	}
}
