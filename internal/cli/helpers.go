// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/llmchat/internal/session"
)

// formatDuration formats a time.Duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// formatBytes formats a byte count for display.
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

// shortID abbreviates a session id for tables.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// resolveSession finds a session by 1-based list position, exact id or
// unique id prefix.
func resolveSession(sessions []session.ChatSession, ref string) (session.ChatSession, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return session.ChatSession{}, fmt.Errorf("%w: empty reference", session.ErrSessionNotFound)
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(sessions) {
			return sessions[n-1], nil
		}
	}

	var matches []session.ChatSession
	for _, c := range sessions {
		if c.ID == ref {
			return c, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return session.ChatSession{}, fmt.Errorf("%w: %s", session.ErrSessionNotFound, ref)
	default:
		return session.ChatSession{}, fmt.Errorf("session reference %q is ambiguous (%d matches)", ref, len(matches))
	}
}
