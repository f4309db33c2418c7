// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package torrentmeta parses .torrent bytes into Meta values and caches
// them behind a bounded LRU keyed by torrent-file URL.
package torrentmeta

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/anacrolix/torrent/metainfo"
)

// Meta is a fully parsed, immutable view of a .torrent file.
type Meta struct {
	Raw       []byte
	InfoBytes []byte
	TorrentID [20]byte
	Name      string
}

// Clone returns a value with its own copies of the byte fields, so callers
// mutating the returned bytes never corrupt the cached entry.
func (m Meta) Clone() Meta {
	raw := make([]byte, len(m.Raw))
	copy(raw, m.Raw)
	info := make([]byte, len(m.InfoBytes))
	copy(info, m.InfoBytes)
	return Meta{Raw: raw, InfoBytes: info, TorrentID: m.TorrentID, Name: m.Name}
}

// HashHex returns the lowercase hex encoding of TorrentID.
func (m Meta) HashHex() string {
	return fmt.Sprintf("%x", m.TorrentID[:])
}

// Parse decodes raw .torrent bytes and computes the info-hash over the
// file's raw info dictionary: SHA-1 for v1 torrents (the default when
// "meta version" is absent), SHA-256 truncated to 20 bytes when "meta
// version" is 2. Any other "meta version" value is a hard error.
func Parse(raw []byte) (Meta, error) {
	mi, err := metainfo.Load(bytes.NewReader(raw))
	if err != nil {
		return Meta{}, fmt.Errorf("torrentmeta: decode: %w", err)
	}
	if len(mi.InfoBytes) == 0 {
		return Meta{}, fmt.Errorf("torrentmeta: missing info dictionary")
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return Meta{}, fmt.Errorf("torrentmeta: decode info: %w", err)
	}

	var id [20]byte
	switch info.MetaVersion {
	case 0, 1:
		hash := mi.HashInfoBytes()
		copy(id[:], hash[:])
	case 2:
		sum := sha256.Sum256(mi.InfoBytes)
		copy(id[:], sum[:20])
	default:
		return Meta{}, fmt.Errorf("torrentmeta: unsupported meta version %d", info.MetaVersion)
	}

	return Meta{Raw: raw, InfoBytes: mi.InfoBytes, TorrentID: id, Name: info.Name}, nil
}
