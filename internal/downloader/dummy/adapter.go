// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package dummy implements an in-memory downloader.Adapter for tests and
// the DOWNLOADER_TYPE=dummy configuration.
package dummy

import (
	"context"
	"sync"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// Adapter is an in-memory torrent client double. Dispatch only records the
// ref (see Dispatched); it adds nothing to the snapshot, so tests put
// torrents into the snapshot with Seed and move them along with SetState.
type Adapter struct {
	mu         sync.Mutex
	torrents   map[string]domain.DownloadingTorrent
	dispatched []domain.TorrentRef
}

// New builds an empty Adapter.
func New() *Adapter {
	return &Adapter{torrents: make(map[string]domain.DownloadingTorrent)}
}

// Dispatch records ref. Re-dispatching the same URL is tolerated silently.
func (a *Adapter) Dispatch(_ context.Context, ref domain.TorrentRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatched = append(a.dispatched, ref)
	return nil
}

// Snapshot returns every torrent currently seeded into the adapter.
func (a *Adapter) Snapshot(_ context.Context) ([]domain.DownloadingTorrent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.DownloadingTorrent, 0, len(a.torrents))
	for _, t := range a.torrents {
		out = append(out, t)
	}
	return out, nil
}

// RenameFile is a no-op acknowledgement; the dummy adapter keeps no file
// tree of its own.
func (a *Adapter) RenameFile(_ context.Context, _, _, _ string) error {
	return nil
}

// Seed injects a torrent into the adapter's live snapshot, as if the
// external client had begun tracking it.
func (a *Adapter) Seed(t domain.DownloadingTorrent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.torrents[t.Hash] = t
}

// SetState mutates an existing seeded torrent's status, simulating the
// external client progressing a download.
func (a *Adapter) SetState(hash string, status domain.TaskStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.torrents[hash]; ok {
		t.Status = status
		a.torrents[hash] = t
	}
}

// Dispatched returns every TorrentRef handed to Dispatch, in call order.
func (a *Adapter) Dispatched() []domain.TorrentRef {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.TorrentRef, len(a.dispatched))
	copy(out, a.dispatched)
	return out
}
