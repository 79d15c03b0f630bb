// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a streamed chat completion body into frames and
// folds those frames into one assistant reply.
//
// # Key Types
//
//   - Decoder: bytes to frames, holding back an incomplete trailing line
//   - Frame: ContentDelta, StreamEnd or Unparseable
//   - Draft: concatenation of ContentDelta text, finalized by StreamEnd
//
// The decoder works on bytes, never on decoded strings, so the text a
// stream produces does not depend on how the transport chunks it. A
// multi-byte character split across two reads is rejoined before any JSON
// is parsed.
//
// # Usage
//
//	draft := stream.NewDraft()
//	err := stream.Consume(ctx, body, func(f stream.Frame) error {
//	    changed, err := draft.Apply(f)
//	    if changed {
//	        render(draft.Content())
//	    }
//	    return err
//	})
package stream
