// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "errors"

// Parser errors.
var (
	// ErrDownloadFailed wraps an HTTP/timeout failure fetching a feed or a
	// torrent file. The caller should attach the URL and underlying cause.
	ErrDownloadFailed = errors.New("download failed")
	// ErrInvalidRSS signals malformed XML or an unsupported channel shape.
	ErrInvalidRSS = errors.New("invalid rss")
	// ErrUnrecognisedEpisode signals a single item that matched neither the
	// primary nor the fallback title grammar. Callers log and skip; it must
	// never abort the surrounding feed.
	ErrUnrecognisedEpisode = errors.New("unrecognised episode title")
	// ErrUnsupportedParser is returned when a Subscription names a parser
	// variant this build does not implement.
	ErrUnsupportedParser = errors.New("unsupported rss parser variant")
)

// Downloader adapter errors.
var (
	ErrInvalidAuthentication = errors.New("invalid downloader authentication")
	ErrClientError           = errors.New("downloader client error")
	ErrTorrentInaccessible   = errors.New("torrent inaccessible")
)

// Renamer errors.
var (
	ErrNotExist        = errors.New("rename source does not exist")
	ErrNoExtension     = errors.New("path has no file extension")
	ErrUnsupportedType = errors.New("unsupported source type for rename")
	ErrLinkFailed      = errors.New("hard link failed")
)

// ErrStorage unifies every store operation failure other than "not found"
// under one kind so loops can apply a single retry policy.
var ErrStorage = errors.New("storage error")
