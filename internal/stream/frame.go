// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"

	"github.com/jeranaias/llmchat/internal/util"
)

// =============================================================================
// FRAMES
// =============================================================================

// Kind identifies the kind of a decoded frame.
type Kind int

const (
	// KindContentDelta carries a text fragment to append.
	KindContentDelta Kind = iota
	// KindStreamEnd is the "[DONE]" sentinel.
	KindStreamEnd
	// KindUnparseable is a line whose payload could not be decoded.
	KindUnparseable
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindContentDelta:
		return "content_delta"
	case KindStreamEnd:
		return "stream_end"
	case KindUnparseable:
		return "unparseable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is one logical unit decoded from the stream.
type Frame struct {
	Kind Kind
	// Text is the delta for KindContentDelta; it may be empty.
	Text string
	// Raw is the offending payload for KindUnparseable.
	Raw string
	// Err is the decode failure for KindUnparseable.
	Err *DecodeError
}

// ContentDelta returns a delta frame.
func ContentDelta(text string) Frame {
	return Frame{Kind: KindContentDelta, Text: text}
}

// StreamEnd returns the end-of-stream frame.
func StreamEnd() Frame {
	return Frame{Kind: KindStreamEnd}
}

// Unparseable returns a frame for a payload that failed to decode.
func Unparseable(raw string, err error) Frame {
	return Frame{Kind: KindUnparseable, Raw: raw, Err: &DecodeError{Payload: raw, Err: err}}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrDraftFinalized is returned by Draft.Apply after StreamEnd was applied.
var ErrDraftFinalized = errors.New("draft already finalized")

// DecodeError describes a single undecodable payload. It is logged and
// reported through an Unparseable frame; it never ends the stream.
type DecodeError struct {
	Payload string
	Err     error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("undecodable stream payload %q: %v", util.TruncateRunes(e.Payload, 80), e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FatalStreamError is a failure to read the underlying stream. Everything
// decoded before it remains valid.
type FatalStreamError struct {
	Err error
}

// Error implements the error interface.
func (e *FatalStreamError) Error() string {
	return fmt.Sprintf("stream read failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *FatalStreamError) Unwrap() error {
	return e.Err
}
