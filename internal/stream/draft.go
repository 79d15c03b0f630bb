// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"time"
)

// Draft accumulates one assistant reply from ContentDelta frames.
type Draft struct {
	content   strings.Builder
	finalized bool

	deltas     int
	started    time.Time
	firstDelta time.Duration
	now        func() time.Time
}

// NewDraft returns an empty draft. The time-to-first-delta clock starts now.
func NewDraft() *Draft {
	d := &Draft{now: time.Now}
	d.started = d.now()
	return d
}

// Apply folds one frame into the draft and reports whether the content
// changed. Empty deltas and Unparseable frames leave it untouched;
// StreamEnd finalizes it. After finalization Apply returns
// ErrDraftFinalized and changes nothing.
func (d *Draft) Apply(f Frame) (bool, error) {
	if d.finalized {
		return false, ErrDraftFinalized
	}

	switch f.Kind {
	case KindContentDelta:
		if f.Text == "" {
			return false, nil
		}
		if d.deltas == 0 {
			d.firstDelta = d.now().Sub(d.started)
		}
		d.deltas++
		d.content.WriteString(f.Text)
		return true, nil
	case KindStreamEnd:
		d.finalized = true
		return false, nil
	default:
		return false, nil
	}
}

// Finalize marks the draft complete without a StreamEnd frame (EOF).
func (d *Draft) Finalize() {
	d.finalized = true
}

// Content returns the text accumulated so far.
func (d *Draft) Content() string {
	return d.content.String()
}

// Finalized reports whether the draft accepts no more frames.
func (d *Draft) Finalized() bool {
	return d.finalized
}

// Deltas returns the number of non-empty deltas applied.
func (d *Draft) Deltas() int {
	return d.deltas
}

// TimeToFirstDelta returns the delay between NewDraft and the first
// non-empty delta, or zero if none arrived.
func (d *Draft) TimeToFirstDelta() time.Duration {
	return d.firstDelta
}
