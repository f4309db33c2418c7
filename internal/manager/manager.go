// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package manager implements the Download Manager's dispatch and reconcile
// operations: the state-reconciliation loop that diffs the downloader
// adapter's live snapshot against the Task Store and fires completion
// hooks on observed transitions.
package manager

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
	"github.com/bangumi-sync/bangumi-sync/internal/metrics"
	"github.com/bangumi-sync/bangumi-sync/internal/torrentmeta"
)

const (
	defaultSavePath = "/downloads/bangumi"
	defaultCategory = "Bangumi"
)

// Adapter is the subset of downloader.Adapter the Manager drives.
type Adapter interface {
	Dispatch(ctx context.Context, ref domain.TorrentRef) error
	Snapshot(ctx context.Context) ([]domain.DownloadingTorrent, error)
}

// HashResolver resolves a torrent-file URL to its parsed metadata,
// satisfied by *torrentmeta.Cache.
type HashResolver interface {
	Get(ctx context.Context, url string) (torrentmeta.Meta, error)
}

// TaskStore is the subset of store.TaskStore the Manager needs.
type TaskStore interface {
	AddTask(ctx context.Context, rssID *int64, task domain.DownloadTask, info domain.BangumiInfo) (int, error)
	GetTask(ctx context.Context, hash string) (domain.DownloadTask, bool, error)
	UpdateTaskStatus(ctx context.Context, hash string, status domain.TaskStatus, downloadPath string) error
}

// Hook is invoked synchronously, in insertion order, on every observed
// status transition for a torrent_hash during Reconcile.
type Hook func(ctx context.Context, status domain.TaskStatus, torrent domain.DownloadingTorrent)

// Manager holds the adapter handle and drives dispatch/reconcile. Adapter
// access and reconciliation are serialised by a single mutex: concurrent
// reconciliations never overlap, and a reconcile and a dispatch interleave
// only through that same lock.
type Manager struct {
	log     zerolog.Logger
	adapter Adapter
	hashes  HashResolver
	tasks   TaskStore

	mu    sync.Mutex
	hooks []Hook
}

// New builds a Manager.
func New(log zerolog.Logger, adapter Adapter, hashes HashResolver, tasks TaskStore) *Manager {
	return &Manager{log: log, adapter: adapter, hashes: hashes, tasks: tasks}
}

// AddHook registers a completion hook, appended to the invocation list.
func (m *Manager) AddHook(h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, h)
}

// Dispatch resolves ref's info-hash, records the intent in the Task Store
// via AddTask's at-most-once guard, and — only if that guard accepted the
// row — hands ref to the adapter. rssID may be nil for manually dispatched
// torrents.
func (m *Manager) Dispatch(ctx context.Context, rssID *int64, ref domain.TorrentRef, info domain.BangumiInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ref.SavePath == "" {
		ref.SavePath = defaultSavePath
	}
	if ref.Category == "" {
		ref.Category = defaultCategory
	}

	meta, err := m.hashes.Get(ctx, ref.URL)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return err
	}
	hash := meta.HashHex()

	task := domain.DownloadTask{
		TorrentHash: hash,
		TorrentURL:  ref.URL,
		Status:      domain.TaskStatusDownloading,
		ShowName:    info.ShowName,
		EpisodeName: info.EpisodeName,
		DisplayName: info.DisplayName,
		Season:      info.Season,
		Episode:     info.Episode,
		Category:    info.Category,
	}

	n, err := m.tasks.AddTask(ctx, rssID, task, info)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return err
	}
	if n == 0 {
		m.log.Debug().Str("hash", hash).Str("url", ref.URL).Msg("already tracked, skipping dispatch")
		metrics.DispatchesTotal.WithLabelValues("deduped").Inc()
		return nil
	}

	if err := m.adapter.Dispatch(ctx, ref); err != nil {
		metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return err
	}
	m.log.Info().Str("hash", hash).Str("url", ref.URL).Msg("dispatched")
	metrics.DispatchesTotal.WithLabelValues("dispatched").Inc()
	return nil
}

// Reconcile pulls a snapshot from the adapter and diffs it against the Task
// Store, updating stored status/download_path and firing hooks on every
// observed transition. Entries whose hash is absent from the Task Store
// were created by another process and are skipped silently.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, err := m.adapter.Snapshot(ctx)
	if err != nil {
		return err
	}

	for _, torrent := range snapshot {
		task, found, err := m.tasks.GetTask(ctx, torrent.Hash)
		if err != nil {
			return err
		}
		if !found {
			m.log.Debug().Str("hash", torrent.Hash).Msg("torrent not tracked by this pipeline, skipping")
			continue
		}
		if task.Status == torrent.Status {
			continue
		}

		if err := m.tasks.UpdateTaskStatus(ctx, torrent.Hash, torrent.Status, torrent.SavePath); err != nil {
			return err
		}
		m.log.Info().Str("hash", torrent.Hash).Str("from", string(task.Status)).Str("to", string(torrent.Status)).Msg("status transition observed")

		for _, hook := range m.hooks {
			hook(ctx, torrent.Status, torrent)
		}
	}
	return nil
}
