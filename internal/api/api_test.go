// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
	"github.com/bangumi-sync/bangumi-sync/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *store.SubscriptionStore, *store.TaskStore) {
	t.Helper()
	db, err := store.Open(context.Background(), "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	subs := store.NewSubscriptionStore(db)
	tasks := store.NewTaskStore(db)
	return New(zerolog.Nop(), subs, tasks), subs, tasks
}

func TestAPI_CreateAndListSubscriptions(t *testing.T) {
	h, _, _ := newTestHandler(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	body, err := json.Marshal(domain.Subscription{URL: "http://mikan.example/feed", ParserType: domain.ParserMikan, Enabled: true})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/subscriptions/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/subscriptions/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var subs []domain.Subscription
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&subs))
	require.Len(t, subs, 1)
	require.Equal(t, "http://mikan.example/feed", subs[0].URL)
}

func TestAPI_GetSubscriptionNotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/subscriptions/999/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_DeleteSubscription(t *testing.T) {
	h, subs, _ := newTestHandler(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	id, err := subs.Insert(context.Background(), domain.Subscription{URL: "http://mikan.example/del", ParserType: domain.ParserMikan})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/subscriptions/%d/", srv.URL, id), nil)
	require.NoError(t, err)
	require.NotZero(t, id)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, err = subs.Get(context.Background(), id)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAPI_GetTaskNotFoundMapsTo404(t *testing.T) {
	h, _, _ := newTestHandler(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/tasks/doesnotexist")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
