// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the full-screen chat interface.
//
// The model only reads: it renders session.Store snapshots and chat.Event
// values, and forwards user intent to the chat.Orchestrator. Store and
// orchestrator callbacks never block; they drop messages into a mailbox
// that the Bubble Tea loop drains.
//
// Layout:
//
//	+-----------+--------------------------------+
//	| sessions  | conversation (viewport)        |
//	|           |                                |
//	|           +--------------------------------+
//	|           | input (textarea)               |
//	+-----------+--------------------------------+
//	| status: model, state, hints                |
//	+--------------------------------------------+
package tui
