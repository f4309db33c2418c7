// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "time"

// TaskStatus mirrors the lowercase enum stored in the download_task table.
type TaskStatus string

const (
	TaskStatusDownloading TaskStatus = "downloading"
	TaskStatusPaused      TaskStatus = "paused"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusError       TaskStatus = "error"
)

// BangumiInfo is the renaming snapshot handed to the Renamer. It is frozen
// at dispatch time onto the DownloadTask row it accompanies.
type BangumiInfo struct {
	ShowName    string `json:"showName"`
	EpisodeName string `json:"episodeName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Season      int    `json:"season"`
	Episode     int    `json:"episode"`
	Category    string `json:"category,omitempty"`
}

// DownloadTask is the persistent record of one dispatched torrent.
type DownloadTask struct {
	ID             int64      `json:"id"`
	SubscriptionID *int64     `json:"subscriptionId,omitempty"`
	TorrentHash    string     `json:"torrentHash"`
	TorrentURL     string     `json:"torrentUrl"`
	StartTime      time.Time  `json:"startTime"`
	Status         TaskStatus `json:"status"`

	ShowName    string `json:"showName"`
	EpisodeName string `json:"episodeName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Season      int    `json:"season"`
	Episode     int    `json:"episode"`
	Category    string `json:"category,omitempty"`

	Renamed      bool    `json:"renamed"`
	DownloadPath *string `json:"downloadPath,omitempty"`
}

// BangumiInfo extracts the renaming snapshot frozen onto this task.
func (t DownloadTask) BangumiInfo() BangumiInfo {
	return BangumiInfo{
		ShowName:    t.ShowName,
		EpisodeName: t.EpisodeName,
		DisplayName: t.DisplayName,
		Season:      t.Season,
		Episode:     t.Episode,
		Category:    t.Category,
	}
}

// TorrentRef is the ephemeral reference to a .torrent resource, handed to
// the Downloader Adapter's dispatch operation.
type TorrentRef struct {
	URL      string `json:"url"`
	SavePath string `json:"savePath,omitempty"`
	Category string `json:"category,omitempty"`
}

// DownloadingTorrent is the ephemeral per-torrent snapshot reported by the
// Downloader Adapter's Snapshot operation.
type DownloadingTorrent struct {
	Hash     string
	Status   TaskStatus
	SavePath string
	Name     string
}

// SubscriptionItem is one parsed entry from a feed, ready for filtering and
// dispatch.
type SubscriptionItem struct {
	URL          string
	Title        string
	EpisodeTitle string
	Season       int
	Episode      int
	Fansub       string
	MediaInfo    string
	Category     string
	Torrent      TorrentRef
}
