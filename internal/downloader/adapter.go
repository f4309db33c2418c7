// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package downloader defines the capability interface to the external
// torrent client. Concrete variants live in the qbittorrent and dummy
// subpackages.
package downloader

import (
	"context"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// Adapter is the capability interface the Download Manager drives. It MAY
// tolerate repeated Dispatch calls for the same URL silently.
type Adapter interface {
	// Dispatch adds ref to the external client. Idempotent per URL.
	Dispatch(ctx context.Context, ref domain.TorrentRef) error
	// Snapshot returns every torrent currently known to the client, mapped
	// onto the core's TaskStatus enum per the status mapping contract.
	Snapshot(ctx context.Context) ([]domain.DownloadingTorrent, error)
	// RenameFile asks the client to rename a file inside an existing
	// torrent. Adapters that can't support this return domain.ErrClientError.
	RenameFile(ctx context.Context, hash, oldPath, newPath string) error
}
