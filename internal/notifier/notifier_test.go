// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompletionMessage(t *testing.T) {
	require.Equal(t, "Show S01E07 download finished.", CompletionMessage("Show", 1, 7))
	require.Equal(t, "Show S10E12 download finished.", CompletionMessage("Show", 10, 12))
}

func TestNoop_NeverErrors(t *testing.T) {
	var n Noop
	require.NoError(t, n.Notify(context.Background(), "anything"))
}
