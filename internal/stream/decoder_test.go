// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample is a realistic stream: a role-only first chunk, content chunks
// (one with a multi-byte rune), keep-alive comments and the sentinel.
const sample = ": keep-alive\n" +
	"data: {\"id\":\"c1\",\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
	"data: {\"id\":\"c1\",\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
	"data: {\"id\":\"c1\",\"choices\":[{\"delta\":{\"content\":\"lo, wörld \"}}]}\r\n\r\n" +
	"event: message\n" +
	"data: {\"id\":\"c1\",\"choices\":[{\"delta\":{\"content\":\"日本 👋\"},\"finish_reason\":null}]}\n\n" +
	"data: [DONE]\n\n"

const sampleText = "Hello, wörld 日本 👋"

func concat(frames []Frame) string {
	var b strings.Builder
	for _, f := range frames {
		if f.Kind == KindContentDelta {
			b.WriteString(f.Text)
		}
	}
	return b.String()
}

func feedChunks(chunks [][]byte) []Frame {
	d := NewDecoder()
	var frames []Frame
	for _, c := range chunks {
		frames = append(frames, d.Feed(c)...)
	}
	d.Finish()
	return frames
}

// =============================================================================
// LINE DECODING
// =============================================================================

func TestDecoder_Feed_SingleChunk(t *testing.T) {
	frames := feedChunks([][]byte{[]byte(sample)})

	require.Len(t, frames, 5)
	assert.Equal(t, ContentDelta(""), frames[0], "role-only chunk has no content")
	assert.Equal(t, ContentDelta("Hel"), frames[1])
	assert.Equal(t, ContentDelta("lo, wörld "), frames[2])
	assert.Equal(t, ContentDelta("日本 👋"), frames[3])
	assert.Equal(t, KindStreamEnd, frames[4].Kind)
	assert.Equal(t, sampleText, concat(frames))
}

func TestDecoder_LineVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Frame
	}{
		{"blank lines", "\n\r\n   \n", nil},
		{"comment", ": ping\n", nil},
		{"ignored fields", "event: delta\nid: 7\nretry: 1000\n", nil},
		{"done with prefix", "data: [DONE]\n", []Frame{StreamEnd()}},
		{"done without space", "data:[DONE]\n", []Frame{StreamEnd()}},
		{"bare done", "[DONE]\n", []Frame{StreamEnd()}},
		{"data without space", "data:{\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n", []Frame{ContentDelta("x")}},
		{"bare json line", "{\"choices\":[{\"delta\":{\"content\":\"y\"}}]}\n", []Frame{ContentDelta("y")}},
		{"empty data", "data:\n", nil},
		{"missing choices", "data: {\"id\":\"1\"}\n", []Frame{ContentDelta("")}},
		{"empty choices", "data: {\"choices\":[]}\n", []Frame{ContentDelta("")}},
		{"null content", "data: {\"choices\":[{\"delta\":{\"content\":null}}]}\n", []Frame{ContentDelta("")}},
		{"missing delta", "data: {\"choices\":[{\"finish_reason\":\"stop\"}]}\n", []Frame{ContentDelta("")}},
		{"error object", "data: {\"error\":{\"message\":\"overloaded\"}}\n", []Frame{ContentDelta("")}},
		{"unknown fields", "data: {\"x\":1,\"choices\":[{\"delta\":{\"content\":\"z\",\"extra\":true}}]}\n", []Frame{ContentDelta("z")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NewDecoder().Feed([]byte(tc.input))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecoder_Unparseable(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("data: {not json\ndata: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n"))

	require.Len(t, frames, 2)
	assert.Equal(t, KindUnparseable, frames[0].Kind)
	assert.Equal(t, "{not json", frames[0].Raw)
	require.NotNil(t, frames[0].Err)
	assert.Contains(t, frames[0].Err.Error(), "undecodable")
	assert.Equal(t, ContentDelta("ok"), frames[1], "decoding continues after a bad line")

	lines, bad := d.Stats()
	assert.Equal(t, 2, lines)
	assert.Equal(t, 1, bad)
}

func TestDecoder_WrongFieldTypeIsUnparseable(t *testing.T) {
	frames := NewDecoder().Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":42}}]}\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, KindUnparseable, frames[0].Kind)
}

// =============================================================================
// REMAINDER HANDLING
// =============================================================================

func TestDecoder_RetainsRemainder(t *testing.T) {
	d := NewDecoder()

	frames := d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\ndata: {\"choi"))
	assert.Equal(t, []Frame{ContentDelta("a")}, frames)
	assert.Greater(t, d.Pending(), 0)

	frames = d.Feed([]byte("ces\":[{\"delta\":{\"content\":\"b\"}}]}\n"))
	assert.Equal(t, []Frame{ContentDelta("b")}, frames)
	assert.Equal(t, 0, d.Pending())
}

func TestDecoder_FinishDiscardsUnterminatedLine(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"kept\"}}]}\ndata: {\"choices\":[{\"delta\":{\"content\":\"lost\"}}]}"))

	assert.Equal(t, []Frame{ContentDelta("kept")}, frames)
	assert.Greater(t, d.Finish(), 0)
	assert.Equal(t, 0, d.Pending())
}

func TestDecoder_IgnoresInputAfterStreamEnd(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("data: [DONE]\ndata: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n"))

	assert.Equal(t, []Frame{StreamEnd()}, frames)
	assert.True(t, d.Ended())
	assert.Nil(t, d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"later\"}}]}\n")))
}

func TestDecoder_SplitMultiByteRune(t *testing.T) {
	line := []byte("data: {\"choices\":[{\"delta\":{\"content\":\"👋\"}}]}\n")
	idx := strings.Index(string(line), "👋")
	require.GreaterOrEqual(t, idx, 0)

	// Split inside the 4-byte emoji at every interior offset.
	for cut := idx + 1; cut < idx+4; cut++ {
		frames := feedChunks([][]byte{line[:cut], line[cut:]})
		assert.Equal(t, []Frame{ContentDelta("👋")}, frames, "cut at %d", cut)
	}
}

// =============================================================================
// CHUNKING INVARIANCE
// =============================================================================

func TestDecoder_ChunkingInvariance_EverySplitPoint(t *testing.T) {
	data := []byte(sample)
	for i := 0; i <= len(data); i++ {
		for j := i; j <= len(data); j += 7 {
			frames := feedChunks([][]byte{data[:i], data[i:j], data[j:]})
			require.Equal(t, sampleText, concat(frames), "split at %d,%d", i, j)
		}
	}
}

func TestDecoder_ChunkingInvariance_Random(t *testing.T) {
	data := []byte(sample)
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		var chunks [][]byte
		for rest := data; len(rest) > 0; {
			n := 1 + rng.Intn(len(rest))
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}
		require.Equal(t, sampleText, concat(feedChunks(chunks)), "round %d", round)
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	var chunks [][]byte
	for i := 0; i < len(sample); i++ {
		chunks = append(chunks, []byte{sample[i]})
	}
	frames := feedChunks(chunks)
	assert.Equal(t, sampleText, concat(frames))
	assert.Equal(t, KindStreamEnd, frames[len(frames)-1].Kind)
}

// =============================================================================
// READ LOOP
// =============================================================================

func collect(t *testing.T, r io.Reader) ([]Frame, error) {
	t.Helper()
	var frames []Frame
	err := Consume(context.Background(), r, func(f Frame) error {
		frames = append(frames, f)
		return nil
	})
	return frames, err
}

func TestConsume_StopsAtStreamEnd(t *testing.T) {
	r := strings.NewReader(sample + "data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n")
	frames, err := collect(t, r)
	require.NoError(t, err)
	assert.Equal(t, sampleText, concat(frames))
	assert.Equal(t, KindStreamEnd, frames[len(frames)-1].Kind)
}

func TestConsume_OneByteReader(t *testing.T) {
	frames, err := collect(t, iotest.OneByteReader(strings.NewReader(sample)))
	require.NoError(t, err)
	assert.Equal(t, sampleText, concat(frames))
}

func TestConsume_DataWithEOF(t *testing.T) {
	frames, err := collect(t, iotest.DataErrReader(strings.NewReader(sample)))
	require.NoError(t, err)
	assert.Equal(t, sampleText, concat(frames))
}

func TestConsume_EOFWithoutSentinel(t *testing.T) {
	frames, err := collect(t, strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n"))
	require.NoError(t, err)
	assert.Equal(t, []Frame{ContentDelta("partial")}, frames)
}

func TestConsume_ReadFailure(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(
		strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"before\"}}]}\n"),
		iotest.ErrReader(boom),
	)

	frames, err := collect(t, r)
	require.Error(t, err)

	var fatal *FatalStreamError
	require.True(t, errors.As(err, &fatal))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Frame{ContentDelta("before")}, frames, "frames before the failure are kept")
}

func TestConsume_CallbackErrorStops(t *testing.T) {
	stop := errors.New("session gone")
	calls := 0
	err := Consume(context.Background(), strings.NewReader(sample), func(f Frame) error {
		calls++
		return stop
	})
	assert.Same(t, stop, err)
	assert.Equal(t, 1, calls)
}

func TestConsume_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Consume(ctx, strings.NewReader(sample), func(Frame) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var fatal *FatalStreamError
	assert.True(t, errors.As(err, &fatal))
}
