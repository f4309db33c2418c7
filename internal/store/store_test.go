// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSubscriptionStore_InsertListRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := NewSubscriptionStore(db)
	ctx := context.Background()

	season := 2
	sub := domain.Subscription{
		URL:        "https://mikan.example/feed/1",
		Title:      "Show A",
		ParserType: domain.ParserMikan,
		Season:     &season,
		Category:   "Anime",
		Enabled:    true,
		Filters: domain.FilterChain{
			{Type: domain.FilterFilenameRegex, Pattern: `\.mp4$`},
		},
		Description: "a test feed",
	}

	id, err := s.Insert(ctx, sub)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, sub.URL, got.URL)
	require.Equal(t, sub.Title, got.Title)
	require.Equal(t, sub.Filters, got.Filters)
	require.NotNil(t, got.Season)
	require.Equal(t, 2, *got.Season)
}

func TestSubscriptionStore_InsertURLCollisionReturnsExistingID(t *testing.T) {
	db := openTestDB(t)
	s := NewSubscriptionStore(db)
	ctx := context.Background()

	sub := domain.Subscription{URL: "https://mikan.example/feed/dup", ParserType: domain.ParserMikan}
	id1, err := s.Insert(ctx, sub)
	require.NoError(t, err)

	id2, err := s.Insert(ctx, sub)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSubscriptionStore_ListOrdering(t *testing.T) {
	db := openTestDB(t)
	s := NewSubscriptionStore(db)
	ctx := context.Background()

	seasonOne, seasonTwo := 1, 2
	_, err := s.Insert(ctx, domain.Subscription{URL: "u1", Title: "Zeta", Enabled: false, Season: &seasonOne})
	require.NoError(t, err)
	_, err = s.Insert(ctx, domain.Subscription{URL: "u2", Title: "Alpha", Enabled: true, Season: &seasonTwo})
	require.NoError(t, err)
	_, err = s.Insert(ctx, domain.Subscription{URL: "u3", Title: "Alpha", Enabled: true, Season: &seasonOne})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// enabled rows first
	require.True(t, list[0].Enabled)
	require.True(t, list[1].Enabled)
	require.False(t, list[2].Enabled)
	// then title ascending, then season ascending among the enabled rows
	require.Equal(t, "Alpha", list[0].Title)
	require.Equal(t, "Alpha", list[1].Title)
	require.Equal(t, 1, *list[0].Season)
	require.Equal(t, 2, *list[1].Season)
}

func TestTaskStore_AddTaskDedup(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()

	task := domain.DownloadTask{
		TorrentHash: "hash1",
		TorrentURL:  "https://mikan.example/t/1.torrent",
		Status:      domain.TaskStatusDownloading,
		ShowName:    "Show A",
		Season:      1,
		Episode:     1,
	}
	info := task.BangumiInfo()

	n, err := ts.AddTask(ctx, nil, task, info)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// second dispatch of the same hash while Downloading is a no-op
	n, err = ts.AddTask(ctx, nil, task, info)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	got, found, err := ts.GetTask(ctx, "hash1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.TaskStatusDownloading, got.Status)
}

func TestTaskStore_AddTaskReplacesErrorRow(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()

	task := domain.DownloadTask{
		TorrentHash: "hash2",
		TorrentURL:  "https://mikan.example/t/2.torrent",
		Status:      domain.TaskStatusError,
		ShowName:    "Show B",
		Season:      1,
		Episode:     1,
	}
	n, err := ts.AddTask(ctx, nil, task, task.BangumiInfo())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	task.Status = domain.TaskStatusDownloading
	n, err = ts.AddTask(ctx, nil, task, task.BangumiInfo())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, found, err := ts.GetTask(ctx, "hash2")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.TaskStatusDownloading, got.Status)
}

func TestTaskStore_IsRenamedDistinguishesNotFound(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()

	_, found, err := ts.IsRenamed(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	task := domain.DownloadTask{
		TorrentHash: "hash3",
		TorrentURL:  "https://mikan.example/t/3.torrent",
		Status:      domain.TaskStatusCompleted,
		ShowName:    "Show C",
		Season:      1,
		Episode:     1,
		StartTime:   time.Now(),
	}
	_, err = ts.AddTask(ctx, nil, task, task.BangumiInfo())
	require.NoError(t, err)

	renamed, found, err := ts.IsRenamed(ctx, "hash3")
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, renamed)

	require.NoError(t, ts.UpdateTaskRenamed(ctx, "hash3"))
	renamed, found, err = ts.IsRenamed(ctx, "hash3")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, renamed)
}

func TestTaskStore_SweepStaleCompletions(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()

	done := domain.DownloadTask{
		TorrentHash: "hash4",
		TorrentURL:  "https://mikan.example/t/4.torrent",
		Status:      domain.TaskStatusCompleted,
		ShowName:    "Show D",
		Season:      1,
		Episode:     1,
	}
	_, err := ts.AddTask(ctx, nil, done, done.BangumiInfo())
	require.NoError(t, err)

	stale, err := ts.SweepStaleCompletions(ctx)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, "hash4", stale[0].TorrentHash)

	require.NoError(t, ts.UpdateTaskRenamed(ctx, "hash4"))
	stale, err = ts.SweepStaleCompletions(ctx)
	require.NoError(t, err)
	require.Empty(t, stale)
}
