// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"
	"unicode/utf8"

	"github.com/jeranaias/llmchat/internal/util"
)

// Match is one search hit.
type Match struct {
	SessionID string
	Title     string
	// Snippet is the matching title or message excerpt on one line.
	Snippet string
	// MessageIndex is the index of the matching message, or -1 for a title
	// match.
	MessageIndex int
}

const snippetRadius = 30

// Search returns sessions whose title or any message contains query,
// case-insensitively, one match per session in collection order. The first
// matching location wins, the title before messages.
func (s *Store) Search(query string) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var matches []Match
	for _, c := range s.Sessions() {
		if strings.Contains(strings.ToLower(c.Title), q) {
			matches = append(matches, Match{SessionID: c.ID, Title: c.Title, Snippet: c.Title, MessageIndex: -1})
			continue
		}
		for i, m := range c.Messages {
			if snippet, ok := excerpt(m.Content, q); ok {
				matches = append(matches, Match{SessionID: c.ID, Title: c.Title, Snippet: snippet, MessageIndex: i})
				break
			}
		}
	}
	return matches
}

// excerpt returns the text around the first occurrence of lowered query.
func excerpt(content, query string) (string, bool) {
	lower := strings.ToLower(content)
	idx := strings.Index(lower, query)
	if idx < 0 {
		return "", false
	}

	runes := []rune(content)
	if utf8.RuneCountInString(lower) != len(runes) {
		// Case mapping changed the rune count; offsets no longer line up.
		return util.SingleLine(util.TruncateRunes(content, 2*snippetRadius)), true
	}

	at := utf8.RuneCountInString(lower[:idx])
	start := max(0, at-snippetRadius)
	end := min(len(runes), at+utf8.RuneCountInString(query)+snippetRadius)

	snippet := util.SingleLine(string(runes[start:end]))
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet, true
}
