// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package telegram implements notifier.Notifier against the Telegram Bot
// API's sendMessage endpoint. A single form POST doesn't warrant a client
// SDK.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiBase = "https://api.telegram.org"

// sendTimeout bounds the outbound HTTP call, matching the budget the other
// outbound HTTP clients use.
const sendTimeout = 10 * time.Second

// Notifier posts completion messages to a single Telegram chat via a bot.
type Notifier struct {
	client  *http.Client
	token   string
	chatID  string
	baseURL string
}

// New builds a Notifier. botToken and chatID come from the
// TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID environment variables.
func New(botToken, chatID string) *Notifier {
	return &Notifier{
		client:  &http.Client{Timeout: sendTimeout},
		token:   botToken,
		chatID:  chatID,
		baseURL: apiBase,
	}
}

// Notify posts message to the configured chat.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	form := url.Values{
		"chat_id": {n.chatID},
		"text":    {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notifier/telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifier/telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notifier/telegram: unexpected status %s", resp.Status)
	}
	return nil
}
