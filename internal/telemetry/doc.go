// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records stream and request metrics for llmchat.
//
// Metrics live in a private Prometheus registry owned by a Metrics value,
// so several instances (tests, one per process) never collide. A nil
// *Metrics is valid and records nothing.
//
// # Usage
//
//	m := telemetry.New()
//	m.ObserveFrame(frame.Kind.String())
//	m.ObserveRequest(telemetry.OutcomeCompleted, elapsed, ttfd)
//
// Expose them over HTTP:
//
//	srv := telemetry.NewServer("127.0.0.1:9090", m)
//	err := srv.Run(ctx) // returns when ctx is done
//
// # Privacy
//
// Only counts and durations are recorded. Message content never leaves the
// process.
package telemetry
