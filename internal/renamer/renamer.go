// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package renamer computes archive-relative paths for completed downloads
// and materializes them as hard links.
package renamer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// LinkFS isolates the filesystem operations Rename needs, so tests can
// substitute an in-memory stub without touching a real filesystem.
type LinkFS interface {
	Stat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
	Link(oldname, newname string) error
}

// OSFS is the default LinkFS, backed directly by the os package.
type OSFS struct{}

func (OSFS) Stat(path string) (os.FileInfo, error)        { return os.Stat(path) }
func (OSFS) ReadDir(path string) ([]os.DirEntry, error)   { return os.ReadDir(path) }
func (OSFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (OSFS) Link(oldname, newname string) error           { return os.Link(oldname, newname) }

// Renamer plans and materializes the archive layout
// "<archived_root>/<show_name>/Season <n>/<show_name> S<nn>E<nn>
// [ <episode_name>][ <display_name>].<ext>".
type Renamer struct {
	fs LinkFS
}

// New builds a Renamer. A nil fs defaults to OSFS{}.
func New(fs LinkFS) *Renamer {
	if fs == nil {
		fs = OSFS{}
	}
	return &Renamer{fs: fs}
}

// Plan returns the path of info's media file, relative to the archive
// root. The episode_name/display_name suffix is omitted entirely when both
// are empty.
func Plan(info domain.BangumiInfo, ext string) string {
	base := fmt.Sprintf("%s S%02dE%02d", info.ShowName, info.Season, info.Episode)
	if info.EpisodeName != "" {
		base += " " + info.EpisodeName
	}
	if display := strings.TrimSpace(info.DisplayName); display != "" {
		base += " " + display
	}
	name := base + "." + ext
	return filepath.Join(info.ShowName, fmt.Sprintf("Season %d", info.Season), name)
}

// Rename materializes info's media file(s) as hard link(s) under dstRoot.
//
// If src is a file, its own extension is used and one link is created. If
// src is a directory, its immediate (non-recursive) regular-file children
// are each linked under their own extension; subdirectories are skipped.
// An already-existing target is treated as a successful no-op, making the
// whole operation idempotent.
func (r *Renamer) Rename(info domain.BangumiInfo, src, dstRoot string) error {
	fi, err := r.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrNotExist, src, err)
	}

	if !fi.IsDir() && !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedType, src)
	}

	if fi.IsDir() {
		entries, err := r.fs.ReadDir(src)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrNotExist, src, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			childSrc := filepath.Join(src, entry.Name())
			if err := r.linkOne(info, childSrc, entry.Name(), dstRoot); err != nil {
				return err
			}
		}
		return nil
	}

	return r.linkOne(info, src, filepath.Base(src), dstRoot)
}

func (r *Renamer) linkOne(info domain.BangumiInfo, src, name, dstRoot string) error {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return fmt.Errorf("%w: %s", domain.ErrNoExtension, name)
	}

	dst := filepath.Join(dstRoot, Plan(info, ext))
	if _, err := r.fs.Stat(dst); err == nil {
		return nil // idempotent no-op: target already exists
	}

	if err := r.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", domain.ErrLinkFailed, filepath.Dir(dst), err)
	}
	if err := r.fs.Link(src, dst); err != nil {
		return fmt.Errorf("%w: link %s -> %s: %v", domain.ErrLinkFailed, src, dst, err)
	}
	return nil
}

// ReplacePath rewrites the prefix of p per rule "src:dst", translating the
// downloader's filesystem view into the renamer's. An empty rule returns p
// unchanged.
func ReplacePath(p, rule string) string {
	if rule == "" {
		return p
	}
	src, dst, ok := strings.Cut(rule, ":")
	if !ok {
		return p
	}
	if strings.HasPrefix(p, src) {
		return dst + strings.TrimPrefix(p, src)
	}
	return p
}
