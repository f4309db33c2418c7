// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package notifier defines the capability interface for end-user
// messaging and the concrete variants selected by NOTIFICATION_TYPE.
package notifier

import (
	"context"
	"fmt"
)

// Notifier is the capability interface the completion path drives once a
// rename succeeds. Implementations are shared and immutable after
// construction; internal thread-safety is the implementation's own
// responsibility.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Noop suppresses every notification. It is selected when NOTIFICATION_TYPE
// is unset.
type Noop struct{}

func (Noop) Notify(context.Context, string) error { return nil }

// CompletionMessage formats the standard "download finished" notification
// body for show/season/episode, e.g. "Show S01E07 download finished.".
func CompletionMessage(showName string, season, episode int) string {
	return fmt.Sprintf("%s S%02dE%02d download finished.", showName, season, episode)
}
