// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentmeta

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTorrentBytes(name string) []byte {
	return []byte(fmt.Sprintf("d8:announce3:foo4:infod6:lengthi1e4:name%d:%see", len(name), name))
}

type stubFetcher struct {
	mu    sync.Mutex
	calls map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{calls: make(map[string]int)}
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls[url]++
	s.mu.Unlock()
	return sampleTorrentBytes(url), nil
}

func (s *stubFetcher) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func TestCache_MissThenHit(t *testing.T) {
	f := newStubFetcher()
	c := New(f, DefaultCapacity)

	meta, err := c.Get(context.Background(), "http://x/1.torrent")
	require.NoError(t, err)
	assert.Equal(t, "http://x/1.torrent", meta.Name)
	assert.Equal(t, 1, f.callCount("http://x/1.torrent"))

	_, err = c.Get(context.Background(), "http://x/1.torrent")
	require.NoError(t, err)
	assert.Equal(t, 1, f.callCount("http://x/1.torrent"), "second Get must be served from cache")
}

func TestCache_CloneIsIndependent(t *testing.T) {
	f := newStubFetcher()
	c := New(f, DefaultCapacity)

	a, err := c.Get(context.Background(), "http://x/1.torrent")
	require.NoError(t, err)
	a.Raw[0] = 'X'

	b, err := c.Get(context.Background(), "http://x/1.torrent")
	require.NoError(t, err)
	assert.NotEqual(t, a.Raw[0], b.Raw[0])
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	f := newStubFetcher()
	c := New(f, 100)

	for i := 0; i < 100; i++ {
		_, err := c.Get(context.Background(), fmt.Sprintf("http://x/%d.torrent", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 100, c.Len())

	// Inserting the 101st distinct URL evicts the least-recently-used entry (url 0).
	_, err := c.Get(context.Background(), "http://x/100.torrent")
	require.NoError(t, err)
	assert.Equal(t, 100, c.Len())

	_, ok := c.lookup("http://x/0.torrent")
	assert.False(t, ok, "least-recently-used entry should have been evicted")

	_, ok = c.lookup("http://x/99.torrent")
	assert.True(t, ok, "recently used entries should survive eviction")
}

func TestCache_ConcurrentMissesShareOneFetch(t *testing.T) {
	f := newStubFetcher()
	c := New(f, DefaultCapacity)

	var wg sync.WaitGroup
	var errs int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background(), "http://x/shared.torrent"); err != nil {
				atomic.AddInt32(&errs, 1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, errs)
	assert.Equal(t, 1, f.callCount("http://x/shared.torrent"))
}
