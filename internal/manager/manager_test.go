// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package manager

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
	"github.com/bangumi-sync/bangumi-sync/internal/downloader/dummy"
	"github.com/bangumi-sync/bangumi-sync/internal/torrentmeta"
)

// memTaskStore is a minimal in-memory TaskStore stub for exercising the
// Manager without a real database.
type memTaskStore struct {
	rows map[string]domain.DownloadTask
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{rows: make(map[string]domain.DownloadTask)}
}

func (s *memTaskStore) AddTask(_ context.Context, _ *int64, task domain.DownloadTask, _ domain.BangumiInfo) (int, error) {
	existing, ok := s.rows[task.TorrentHash]
	if ok && (existing.Status == domain.TaskStatusCompleted || existing.Status == domain.TaskStatusDownloading || existing.Status == domain.TaskStatusPaused) {
		return 0, nil
	}
	s.rows[task.TorrentHash] = task
	return 1, nil
}

func (s *memTaskStore) GetTask(_ context.Context, hash string) (domain.DownloadTask, bool, error) {
	t, ok := s.rows[hash]
	return t, ok, nil
}

func (s *memTaskStore) UpdateTaskStatus(_ context.Context, hash string, status domain.TaskStatus, path string) error {
	t := s.rows[hash]
	t.Status = status
	t.DownloadPath = &path
	s.rows[hash] = t
	return nil
}

// stubResolver maps every URL to the same fixed Meta, so tests can control
// the resulting hash deterministically.
type stubResolver struct {
	meta torrentmeta.Meta
}

func (r stubResolver) Get(_ context.Context, _ string) (torrentmeta.Meta, error) {
	return r.meta, nil
}

func fixedMeta(hash byte) torrentmeta.Meta {
	var id [20]byte
	id[0] = hash
	return torrentmeta.Meta{TorrentID: id, Name: "Show.S01E07.mkv"}
}

func TestManager_DispatchDefaultsSavePathAndCategory(t *testing.T) {
	adapter := dummy.New()
	tasks := newMemTaskStore()
	m := New(zerolog.Nop(), adapter, stubResolver{meta: fixedMeta(1)}, tasks)

	ref := domain.TorrentRef{URL: "https://mikan.example/t/1.torrent"}
	info := domain.BangumiInfo{ShowName: "Show", Season: 1, Episode: 7}

	err := m.Dispatch(context.Background(), nil, ref, info)
	require.NoError(t, err)

	dispatched := adapter.Dispatched()
	require.Len(t, dispatched, 1)
	require.Equal(t, "/downloads/bangumi", dispatched[0].SavePath)
	require.Equal(t, "Bangumi", dispatched[0].Category)
}

func TestManager_DispatchDedupSkipsAdapterOnSecondCall(t *testing.T) {
	adapter := dummy.New()
	tasks := newMemTaskStore()
	m := New(zerolog.Nop(), adapter, stubResolver{meta: fixedMeta(2)}, tasks)

	ref := domain.TorrentRef{URL: "https://mikan.example/t/2.torrent"}
	info := domain.BangumiInfo{ShowName: "Show", Season: 1, Episode: 1}

	require.NoError(t, m.Dispatch(context.Background(), nil, ref, info))
	require.NoError(t, m.Dispatch(context.Background(), nil, ref, info))

	require.Len(t, adapter.Dispatched(), 1)
}

func TestManager_ReconcileFiresHooksOnTransitionOnly(t *testing.T) {
	adapter := dummy.New()
	tasks := newMemTaskStore()
	m := New(zerolog.Nop(), adapter, stubResolver{meta: fixedMeta(3)}, tasks)

	var fired []domain.TaskStatus
	m.AddHook(func(_ context.Context, status domain.TaskStatus, _ domain.DownloadingTorrent) {
		fired = append(fired, status)
	})

	ref := domain.TorrentRef{URL: "https://mikan.example/t/3.torrent"}
	info := domain.BangumiInfo{ShowName: "Show", Season: 1, Episode: 3}
	require.NoError(t, m.Dispatch(context.Background(), nil, ref, info))

	meta := fixedMeta(3)
	hash := meta.HashHex()

	adapter.Seed(domain.DownloadingTorrent{Hash: hash, Status: domain.TaskStatusDownloading, Name: "Show.S01E03.mkv"})
	require.NoError(t, m.Reconcile(context.Background()))
	require.Empty(t, fired) // no transition: task already Downloading

	adapter.SetState(hash, domain.TaskStatusCompleted)
	require.NoError(t, m.Reconcile(context.Background()))
	require.Equal(t, []domain.TaskStatus{domain.TaskStatusCompleted}, fired)

	// no further transition on a second reconcile of the same state
	require.NoError(t, m.Reconcile(context.Background()))
	require.Equal(t, []domain.TaskStatus{domain.TaskStatusCompleted}, fired)
}

func TestManager_ReconcileSkipsUntrackedTorrentsSilently(t *testing.T) {
	adapter := dummy.New()
	tasks := newMemTaskStore()
	m := New(zerolog.Nop(), adapter, stubResolver{meta: fixedMeta(4)}, tasks)

	var fired int
	m.AddHook(func(_ context.Context, _ domain.TaskStatus, _ domain.DownloadingTorrent) { fired++ })

	adapter.Seed(domain.DownloadingTorrent{Hash: "unknown-hash", Status: domain.TaskStatusDownloading})
	require.NoError(t, m.Reconcile(context.Background()))
	require.Zero(t, fired)
}

func TestManager_ReconcileEmptySnapshotNoOp(t *testing.T) {
	adapter := dummy.New()
	tasks := newMemTaskStore()
	m := New(zerolog.Nop(), adapter, stubResolver{meta: fixedMeta(5)}, tasks)
	require.NoError(t, m.Reconcile(context.Background()))
}
