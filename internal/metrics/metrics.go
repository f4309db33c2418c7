// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics exposes prometheus counters for the daemon's loops.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DispatchesTotal counts Download Manager dispatch outcomes, labeled by
	// result: "dispatched", "deduped", or "error".
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bangumi_sync_dispatches_total",
			Help: "Total Download Manager dispatch attempts by outcome.",
		},
		[]string{"result"},
	)

	// ReconcileTicksTotal counts PollLoop reconcile invocations.
	ReconcileTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bangumi_sync_reconcile_ticks_total",
			Help: "Total number of PollLoop reconcile invocations.",
		},
	)

	// StatusTransitionsTotal counts observed torrent status transitions
	// during reconcile, labeled by the new status.
	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bangumi_sync_status_transitions_total",
			Help: "Total observed torrent status transitions, by new status.",
		},
		[]string{"status"},
	)

	// RenameOutcomesTotal counts Renamer.Rename outcomes, labeled by result:
	// "ok" or "error".
	RenameOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bangumi_sync_rename_outcomes_total",
			Help: "Total rename attempts by outcome.",
		},
		[]string{"result"},
	)

	// FeedItemsTotal counts parsed feed items, labeled by outcome:
	// "dispatched" or "filtered".
	FeedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bangumi_sync_feed_items_total",
			Help: "Total RSS feed items processed by FetchLoop, by outcome.",
		},
		[]string{"outcome"},
	)
)

// Handler returns the HTTP handler serving the default prometheus registry,
// mounted by the daemon's metrics exporter when MetricsEnabled is set.
func Handler() http.Handler {
	return promhttp.Handler()
}
