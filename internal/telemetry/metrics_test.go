// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Frames(t *testing.T) {
	m := New()
	m.ObserveFrame("content_delta")
	m.ObserveFrame("content_delta")
	m.ObserveFrame("unparseable")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.frames.WithLabelValues("content_delta")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frames.WithLabelValues("unparseable")))
}

func TestMetrics_Requests(t *testing.T) {
	m := New()
	m.RequestStarted()
	m.RequestStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.inFlight))

	m.ObserveDelta(5)
	m.ObserveDelta(7)
	m.ObserveRequest(OutcomeCompleted, 2*time.Second, 300*time.Millisecond)
	m.ObserveRequest(OutcomeFailed, time.Second, 0)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.timeToFirstDelta))

	assert.Equal(t, Summary{Completed: 1, Failed: 1, Deltas: 2, Bytes: 12}, m.Summary())
}

func TestMetrics_Errors(t *testing.T) {
	m := New()
	m.ObserveSave(nil)
	m.ObserveSave(errors.New("disk full"))
	m.ObserveModelList(errors.New("timeout"))
	m.ObserveModelList(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelListErrors))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFrame("content_delta")
		m.ObserveDelta(3)
		m.RequestStarted()
		m.ObserveRequest(OutcomeCompleted, time.Second, time.Second)
		m.ObserveSave(errors.New("x"))
		m.ObserveModelList(errors.New("x"))
	})
	assert.Equal(t, Summary{}, m.Summary())
	assert.Nil(t, m.Registry())
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.ObserveFrame("stream_end")

	srv := httptest.NewServer(Handler(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `llmchat_stream_frames_total{kind="stream_end"} 1`))
}

func TestHandler_NilMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
