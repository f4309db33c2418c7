// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package qbittorrent adapts *qbt.Client to the downloader.Adapter
// capability interface.
package qbittorrent

import (
	"context"
	"fmt"

	qbt "github.com/autobrr/go-qbittorrent"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// Adapter wraps a qBittorrent WebUI client.
type Adapter struct {
	client *qbt.Client
}

// New builds an Adapter and performs the initial authenticated login.
func New(ctx context.Context, host, username, password string) (*Adapter, error) {
	client := qbt.NewClient(qbt.Config{
		Host:     host,
		Username: username,
		Password: password,
	})
	if err := client.LoginCtx(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAuthentication, err)
	}
	return &Adapter{client: client}, nil
}

// Dispatch adds ref to qBittorrent. Re-adding an already-present hash is a
// qBittorrent no-op, satisfying the adapter's idempotence requirement.
func (a *Adapter) Dispatch(ctx context.Context, ref domain.TorrentRef) error {
	savePath := ref.SavePath
	if savePath == "" {
		savePath = "/downloads/bangumi"
	}
	category := ref.Category
	if category == "" {
		category = "Bangumi"
	}

	opts := map[string]string{
		"savepath": savePath,
		"category": category,
	}
	if err := a.client.AddTorrentFromUrlCtx(ctx, ref.URL, opts); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrTorrentInaccessible, ref.URL, err)
	}
	return nil
}

// Snapshot lists every torrent known to the client, mapped onto the core
// TaskStatus enum via Status.
func (a *Adapter) Snapshot(ctx context.Context) ([]domain.DownloadingTorrent, error) {
	torrents, err := a.client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: list torrents: %v", domain.ErrClientError, err)
	}

	out := make([]domain.DownloadingTorrent, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, domain.DownloadingTorrent{
			Hash:     t.Hash,
			Status:   MapState(t.State),
			SavePath: t.SavePath,
			Name:     t.Name,
		})
	}
	return out, nil
}

// RenameFile asks qBittorrent to rename a file inside an existing torrent.
func (a *Adapter) RenameFile(ctx context.Context, hash, oldPath, newPath string) error {
	if err := a.client.RenameFileCtx(ctx, hash, oldPath, newPath); err != nil {
		return fmt.Errorf("%w: rename %s in %s: %v", domain.ErrClientError, oldPath, hash, err)
	}
	return nil
}

// MapState maps qBittorrent's torrent states onto the core status enum:
// queued/checking/downloading/forced -> Downloading; uploading/paused-up/
// queued-up/stalled-up -> Completed; paused-dl -> Paused; everything else
// (error/missing-files/moving/unknown) -> Error.
func MapState(state qbt.TorrentState) domain.TaskStatus {
	switch state {
	case qbt.TorrentStateDownloading,
		qbt.TorrentStateMetaDl,
		qbt.TorrentStateQueuedDl,
		qbt.TorrentStateCheckingDl,
		qbt.TorrentStateCheckingResumeData,
		qbt.TorrentStateAllocating,
		qbt.TorrentStateStalledDl,
		qbt.TorrentStateForcedDl:
		// stalledDL has no listed bucket in the mapping contract; treated as
		// still-downloading rather than paused or error.
		return domain.TaskStatusDownloading

	case qbt.TorrentStateUploading,
		qbt.TorrentStatePausedUp,
		qbt.TorrentStateStoppedUp,
		qbt.TorrentStateQueuedUp,
		qbt.TorrentStateStalledUp,
		qbt.TorrentStateCheckingUp,
		qbt.TorrentStateForcedUp:
		return domain.TaskStatusCompleted

	case qbt.TorrentStatePausedDl,
		qbt.TorrentStateStoppedDl:
		// qBittorrent 5.x renamed pausedDL to stoppedDL; both land here.
		return domain.TaskStatusPaused

	default: // error, missingFiles, moving, unknown
		return domain.TaskStatusError
	}
}
