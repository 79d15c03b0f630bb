// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// =============================================================================
// PAYLOAD SCHEMA
// =============================================================================

// chunkPayload is the subset of a streamed completion chunk we read. Every
// field is optional; unknown fields are ignored.
type chunkPayload struct {
	Choices []struct {
		Delta *struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *chunkPayload) content() string {
	if len(p.Choices) == 0 || p.Choices[0].Delta == nil || p.Choices[0].Delta.Content == nil {
		return ""
	}
	return *p.Choices[0].Delta.Content
}

var (
	dataPrefix   = []byte("data:")
	doneSentinel = []byte("[DONE]")
	// Non-data SSE fields carry nothing we use.
	ignoredFields = [][]byte{[]byte("event:"), []byte("id:"), []byte("retry:")}
)

// =============================================================================
// DECODER
// =============================================================================

// Decoder converts stream bytes into frames. It keeps one pending buffer:
// each Feed appends to it, decodes every complete line and retains the
// unterminated remainder for the next call. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	pending []byte
	ended   bool
	log     *slog.Logger

	lines       int
	unparseable int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used for decode warnings.
func WithLogger(l *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDecoder returns an empty decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends chunk and returns the frames for every line it completes.
// Once StreamEnd has been produced, further input is ignored.
func (d *Decoder) Feed(chunk []byte) []Frame {
	if d.ended {
		return nil
	}
	d.pending = append(d.pending, chunk...)

	var frames []Frame
	start := 0
	for {
		nl := bytes.IndexByte(d.pending[start:], '\n')
		if nl < 0 {
			break
		}
		line := d.pending[start : start+nl]
		start += nl + 1

		f, ok := d.decodeLine(line)
		if !ok {
			continue
		}
		frames = append(frames, f)
		if f.Kind == KindStreamEnd {
			d.ended = true
			d.pending = d.pending[:0]
			return frames
		}
	}

	// Shift the incomplete tail to the front of the buffer.
	d.pending = append(d.pending[:0], d.pending[start:]...)
	return frames
}

// Finish ends decoding. An unterminated trailing line is discarded, not
// parsed; Finish returns how many bytes were dropped.
func (d *Decoder) Finish() int {
	dropped := len(bytes.TrimSpace(d.pending))
	if dropped > 0 {
		d.log.Debug("discarding unterminated trailing line", "bytes", dropped)
	}
	d.pending = d.pending[:0]
	return dropped
}

// Ended reports whether StreamEnd has been decoded.
func (d *Decoder) Ended() bool {
	return d.ended
}

// Pending returns the number of buffered bytes awaiting a line break.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// Stats returns the number of lines seen and how many were unparseable.
func (d *Decoder) Stats() (lines, unparseable int) {
	return d.lines, d.unparseable
}

// decodeLine maps one line to at most one frame.
func (d *Decoder) decodeLine(line []byte) (Frame, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] == ':' {
		return Frame{}, false
	}
	for _, field := range ignoredFields {
		if bytes.HasPrefix(line, field) {
			return Frame{}, false
		}
	}
	d.lines++

	payload := line
	if bytes.HasPrefix(payload, dataPrefix) {
		payload = payload[len(dataPrefix):]
		if len(payload) > 0 && payload[0] == ' ' {
			payload = payload[1:]
		}
		payload = bytes.TrimSpace(payload)
		if len(payload) == 0 {
			return Frame{}, false
		}
	}

	if bytes.Equal(payload, doneSentinel) {
		return StreamEnd(), true
	}

	var chunk chunkPayload
	if err := json.Unmarshal(payload, &chunk); err != nil {
		d.unparseable++
		f := Unparseable(string(payload), err)
		d.log.Warn("skipping undecodable stream line", "error", f.Err)
		return f, true
	}
	if chunk.Error != nil && chunk.Error.Message != "" {
		d.log.Warn("service reported an error inside the stream", "message", chunk.Error.Message)
	}
	return ContentDelta(chunk.content()), true
}

// =============================================================================
// READ LOOP
// =============================================================================

const readBufferSize = 4 * 1024

var readBufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, readBufferSize)
		return &buf
	},
}

// Consume reads r to completion with a fresh Decoder, calling fn for every
// frame in order. See Decoder.Consume.
func Consume(ctx context.Context, r io.Reader, fn func(Frame) error) error {
	return NewDecoder().Consume(ctx, r, fn)
}

// Consume reads r sequentially, feeding each chunk to the decoder and
// handing frames to fn. It returns nil after StreamEnd or at EOF, the error
// from fn unchanged if fn fails, and a *FatalStreamError if a read fails or
// ctx is cancelled.
func (d *Decoder) Consume(ctx context.Context, r io.Reader, fn func(Frame) error) error {
	bufp := readBufPool.Get().(*[]byte)
	defer readBufPool.Put(bufp)
	buf := *bufp

	for {
		if err := ctx.Err(); err != nil {
			return &FatalStreamError{Err: err}
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			for _, f := range d.Feed(buf[:n]) {
				if err := fn(f); err != nil {
					return err
				}
				if f.Kind == KindStreamEnd {
					return nil
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				d.Finish()
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return &FatalStreamError{Err: ctxErr}
			}
			return &FatalStreamError{Err: readErr}
		}
	}
}
