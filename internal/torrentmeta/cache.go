// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentmeta

import (
	"container/list"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity bounds the LRU.
const DefaultCapacity = 100

// FetchTimeout bounds the HTTP GET used to fetch a .torrent on a cache
// miss.
const FetchTimeout = 10 * time.Second

// Fetcher retrieves the raw bytes of a .torrent resource.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the default Fetcher, a thin wrapper over net/http.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher with FetchTimeout applied per request.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: FetchTimeout}}
}

// retryAttempts bounds the total number of .torrent fetch attempts,
// including the first, before Fetch gives up. FetchTimeout applies per
// attempt.
const retryAttempts = 3

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	var body []byte
	err := retry.Do(
		func() error {
			if ctx.Err() != nil {
				return retry.Unrecoverable(ctx.Err())
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("torrentmeta: build request: %w", err))
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("torrentmeta: fetch %s: %w", url, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("torrentmeta: fetch %s: unexpected status %s", url, resp.Status)
			}
			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("torrentmeta: read body of %s: %w", url, err)
			}
			body = b
			return nil
		},
		retry.Attempts(retryAttempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Cache is a bounded LRU from torrent-file URL to parsed Meta, with a
// single-flight guard so a cache miss never stampedes concurrent fetchers
// for the same key.
type Cache struct {
	fetcher  Fetcher
	capacity int

	mu      sync.Mutex
	ll      *list.List
	entries map[string]*list.Element

	group singleflight.Group
}

type cacheEntry struct {
	key  string
	meta Meta
}

// New builds a Cache with the given capacity (DefaultCapacity if <= 0).
func New(fetcher Fetcher, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		fetcher:  fetcher,
		capacity: capacity,
		ll:       list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns a clone of the cached Meta for url, fetching and parsing it on
// a miss. Concurrent Get calls for the same url share one fetch.
func (c *Cache) Get(ctx context.Context, url string) (Meta, error) {
	if meta, ok := c.lookup(url); ok {
		return meta.Clone(), nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		if meta, ok := c.lookup(url); ok {
			return meta, nil
		}
		raw, err := c.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		meta, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		c.insert(url, meta)
		return meta, nil
	})
	if err != nil {
		return Meta{}, err
	}
	return v.(Meta).Clone(), nil
}

func (c *Cache) lookup(url string) (Meta, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[url]
	if !ok {
		return Meta{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).meta, true
}

func (c *Cache) insert(url string, meta Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[url]; ok {
		el.Value.(*cacheEntry).meta = meta
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&cacheEntry{key: url, meta: meta})
	c.entries[url] = el

	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len reports the current number of cached entries, for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
