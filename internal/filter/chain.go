// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package filter evaluates a Subscription's FilterChain against the
// canonical torrent name resolved through the torrent-meta cache, not the
// RSS-supplied title, which is unreliable.
package filter

import (
	"context"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
	"github.com/bangumi-sync/bangumi-sync/internal/torrentmeta"
)

// NameResolver fetches the canonical name of the torrent a SubscriptionItem
// references. It is satisfied by *torrentmeta.Cache.
type NameResolver interface {
	Get(ctx context.Context, url string) (torrentmeta.Meta, error)
}

// Chain evaluates a domain.FilterChain against items, resolving each
// item's canonical torrent name through a NameResolver. Compiled regexes
// are cached per pattern so repeated evaluations don't recompile them.
type Chain struct {
	log      zerolog.Logger
	resolver NameResolver

	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

// New builds a Chain.
func New(log zerolog.Logger, resolver NameResolver) *Chain {
	return &Chain{log: log, resolver: resolver, compiled: make(map[string]*regexp.Regexp)}
}

// IsAdmitted reports whether item passes chain: true iff no predicate
// matches the torrent's canonical name. An empty chain always admits.
// Predicate construction errors and name-resolution errors both fail open
// (the item is admitted).
func (c *Chain) IsAdmitted(ctx context.Context, chain domain.FilterChain, item domain.SubscriptionItem) bool {
	if len(chain) == 0 {
		return true
	}

	meta, err := c.resolver.Get(ctx, item.Torrent.URL)
	if err != nil {
		c.log.Warn().Err(err).Str("url", item.Torrent.URL).Msg("could not resolve torrent name for filtering, admitting item")
		return true
	}

	for _, pred := range chain {
		if c.matches(pred, meta.Name) {
			return false
		}
	}
	return true
}

func (c *Chain) matches(pred domain.FilterPredicate, name string) bool {
	switch pred.Type {
	case domain.FilterFilenameRegex:
		re, err := c.compile(pred.Pattern)
		if err != nil {
			c.log.Warn().Err(err).Str("pattern", pred.Pattern).Msg("invalid filter regex, treating as no match")
			return false
		}
		return re.MatchString(name)
	default:
		c.log.Warn().Str("type", string(pred.Type)).Msg("unknown filter predicate type, treating as no match")
		return false
	}
}

func (c *Chain) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	c.compiled[pattern] = re
	return re, nil
}
