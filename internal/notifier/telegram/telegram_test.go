// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifier_NotifyPostsExpectedForm(t *testing.T) {
	var gotPath string
	var gotChatID, gotText string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChatID = r.Form.Get("chat_id")
		gotText = r.Form.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New("TESTTOKEN", "12345")
	n.baseURL = srv.URL

	err := n.Notify(context.Background(), "Show S01E07 download finished.")
	require.NoError(t, err)
	require.Equal(t, "/botTESTTOKEN/sendMessage", gotPath)
	require.Equal(t, "12345", gotChatID)
	require.Equal(t, "Show S01E07 download finished.", gotText)
}

func TestNotifier_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := New("TESTTOKEN", "12345")
	n.baseURL = srv.URL

	err := n.Notify(context.Background(), "hello")
	require.Error(t, err)
}
