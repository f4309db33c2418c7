// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// TaskStore persists DownloadTask rows and anchors at-most-once dispatch.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore wraps db.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// stickyStatuses are the statuses that make an existing row "still
// tracked" for the purposes of AddTask's at-most-once guard.
var stickyStatuses = map[domain.TaskStatus]bool{
	domain.TaskStatusCompleted:   true,
	domain.TaskStatusDownloading: true,
	domain.TaskStatusPaused:      true,
}

// AddTask is the anchor for at-most-once dispatch. If a row with
// task.TorrentHash exists and its status is sticky, it returns 0 and
// leaves the row untouched. Otherwise any existing (necessarily Error) row
// is deleted and the new one inserted, and it returns 1. The whole
// operation runs inside one transaction so two racing dispatchers can't
// both win past the UNIQUE constraint on torrent_hash.
func (s *TaskStore) AddTask(ctx context.Context, rssID *int64, task domain.DownloadTask, info domain.BangumiInfo) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: add_task begin: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	var existingStatus string
	err = tx.QueryRowContext(ctx, `SELECT status FROM download_task WHERE torrent_hash = ?`, task.TorrentHash).Scan(&existingStatus)
	switch {
	case err == nil:
		if stickyStatuses[domain.TaskStatus(existingStatus)] {
			return 0, nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM download_task WHERE torrent_hash = ?`, task.TorrentHash); err != nil {
			return 0, fmt.Errorf("%w: add_task delete stale row: %v", domain.ErrStorage, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		// no existing row; fall through to insert.
	default:
		return 0, fmt.Errorf("%w: add_task lookup: %v", domain.ErrStorage, err)
	}

	startTime := task.StartTime
	if startTime.IsZero() {
		startTime = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO download_task (
			rss_id, torrent_hash, torrent_url, start_time, status,
			show_name, episode_name, display_name, season, episode, category,
			renamed, download_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		nullInt64Ptr(rssID), task.TorrentHash, task.TorrentURL, startTime.Format(time.RFC3339), string(task.Status),
		info.ShowName, nullString(info.EpisodeName), nullString(info.DisplayName), info.Season, info.Episode,
		nullString(info.Category), nullStringPtr(task.DownloadPath))
	if err != nil {
		return 0, fmt.Errorf("%w: add_task insert: %v", domain.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: add_task commit: %v", domain.ErrStorage, err)
	}
	return 1, nil
}

// IsTaskExist reports whether a row with the given torrent_url exists.
func (s *TaskStore) IsTaskExist(ctx context.Context, url string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM download_task WHERE torrent_url = ?`, url).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: is_task_exist %s: %v", domain.ErrStorage, url, err)
	}
	return n > 0, nil
}

// GetTask reads a row by torrent hash.
func (s *TaskStore) GetTask(ctx context.Context, hash string) (domain.DownloadTask, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rss_id, torrent_hash, torrent_url, start_time, status,
			show_name, episode_name, display_name, season, episode, category,
			renamed, download_path
		FROM download_task WHERE torrent_hash = ?`, hash)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DownloadTask{}, false, nil
	}
	if err != nil {
		return domain.DownloadTask{}, false, fmt.Errorf("%w: get_task %s: %v", domain.ErrStorage, hash, err)
	}
	return task, true, nil
}

// UpdateTaskStatus unconditionally updates status and download_path for
// the row with the given hash.
func (s *TaskStore) UpdateTaskStatus(ctx context.Context, hash string, status domain.TaskStatus, downloadPath string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE download_task SET status = ?, download_path = ? WHERE torrent_hash = ?`,
		string(status), nullString(downloadPath), hash)
	if err != nil {
		return fmt.Errorf("%w: update_task_status %s: %v", domain.ErrStorage, hash, err)
	}
	return nil
}

// UpdateTaskRenamed sets renamed=true for the row with the given hash.
func (s *TaskStore) UpdateTaskRenamed(ctx context.Context, hash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE download_task SET renamed = 1 WHERE torrent_hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("%w: update_task_renamed %s: %v", domain.ErrStorage, hash, err)
	}
	return nil
}

// IsRenamed reports the row's renamed flag. The second return distinguishes
// "not found" (the task was created outside this process) from a found row
// with renamed=false; callers MUST check it.
func (s *TaskStore) IsRenamed(ctx context.Context, hash string) (renamed bool, found bool, err error) {
	var n int
	err = s.db.QueryRowContext(ctx, `SELECT renamed FROM download_task WHERE torrent_hash = ?`, hash).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("%w: is_renamed %s: %v", domain.ErrStorage, hash, err)
	}
	return n != 0, true, nil
}

// GetBangumiInfo reads the renaming snapshot frozen onto the row.
func (s *TaskStore) GetBangumiInfo(ctx context.Context, hash string) (domain.BangumiInfo, bool, error) {
	task, found, err := s.GetTask(ctx, hash)
	if err != nil || !found {
		return domain.BangumiInfo{}, found, err
	}
	return task.BangumiInfo(), true, nil
}

// SweepStaleCompletions finds every row with status=Completed AND
// renamed=false: downloads whose completion was observed but whose rename
// never committed, typically because the process died or the archive root
// was unavailable. The Orchestrator's optional sweep loop re-drives them.
func (s *TaskStore) SweepStaleCompletions(ctx context.Context) ([]domain.DownloadTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rss_id, torrent_hash, torrent_url, start_time, status,
			show_name, episode_name, display_name, season, episode, category,
			renamed, download_path
		FROM download_task WHERE status = ? AND renamed = 0`, string(domain.TaskStatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("%w: sweep_stale_completions: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var out []domain.DownloadTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: sweep_stale_completions scan: %v", domain.ErrStorage, err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sweep_stale_completions: %v", domain.ErrStorage, err)
	}
	return out, nil
}

func scanTask(row rowScanner) (domain.DownloadTask, error) {
	var (
		task         domain.DownloadTask
		rssID        sql.NullInt64
		startTime    string
		status       string
		episodeName  sql.NullString
		displayName  sql.NullString
		category     sql.NullString
		renamed      int
		downloadPath sql.NullString
	)
	if err := row.Scan(&task.ID, &rssID, &task.TorrentHash, &task.TorrentURL, &startTime, &status,
		&task.ShowName, &episodeName, &displayName, &task.Season, &task.Episode, &category,
		&renamed, &downloadPath); err != nil {
		return domain.DownloadTask{}, err
	}
	if rssID.Valid {
		v := rssID.Int64
		task.SubscriptionID = &v
	}
	t, err := time.Parse(time.RFC3339, startTime)
	if err != nil {
		return domain.DownloadTask{}, fmt.Errorf("parse start_time: %w", err)
	}
	task.StartTime = t
	task.Status = domain.TaskStatus(status)
	task.EpisodeName = episodeName.String
	task.DisplayName = displayName.String
	task.Category = category.String
	task.Renamed = renamed != 0
	if downloadPath.Valid {
		v := downloadPath.String
		task.DownloadPath = &v
	}
	return task, nil
}

func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullStringPtr(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
