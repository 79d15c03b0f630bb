// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_Concatenates(t *testing.T) {
	d := NewDraft()

	for _, text := range []string{"Hel", "lo", ", ", "world"} {
		changed, err := d.Apply(ContentDelta(text))
		require.NoError(t, err)
		assert.True(t, changed)
	}
	assert.Equal(t, "Hello, world", d.Content())
	assert.Equal(t, 4, d.Deltas())
	assert.False(t, d.Finalized())
}

func TestDraft_NoOpFrames(t *testing.T) {
	d := NewDraft()
	_, _ = d.Apply(ContentDelta("x"))

	for _, f := range []Frame{ContentDelta(""), Unparseable("{bad", errors.New("syntax"))} {
		changed, err := d.Apply(f)
		require.NoError(t, err)
		assert.False(t, changed, "%s should not change the draft", f.Kind)
	}
	assert.Equal(t, "x", d.Content())
}

func TestDraft_StreamEndFinalizes(t *testing.T) {
	d := NewDraft()
	_, _ = d.Apply(ContentDelta("done"))

	changed, err := d.Apply(StreamEnd())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, d.Finalized())

	changed, err = d.Apply(ContentDelta("more"))
	assert.ErrorIs(t, err, ErrDraftFinalized)
	assert.False(t, changed)
	assert.Equal(t, "done", d.Content())
}

func TestDraft_Finalize(t *testing.T) {
	d := NewDraft()
	d.Finalize()
	_, err := d.Apply(ContentDelta("x"))
	assert.ErrorIs(t, err, ErrDraftFinalized)
}

func TestDraft_TimeToFirstDelta(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	d := &Draft{now: func() time.Time { return clock }, started: base}

	clock = base.Add(300 * time.Millisecond)
	_, _ = d.Apply(ContentDelta(""))
	assert.Zero(t, d.TimeToFirstDelta(), "empty deltas do not count")

	clock = base.Add(500 * time.Millisecond)
	_, _ = d.Apply(ContentDelta("a"))
	clock = base.Add(900 * time.Millisecond)
	_, _ = d.Apply(ContentDelta("b"))

	assert.Equal(t, 500*time.Millisecond, d.TimeToFirstDelta())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "content_delta", KindContentDelta.String())
	assert.Equal(t, "stream_end", KindStreamEnd.String())
	assert.Equal(t, "unparseable", KindUnparseable.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
