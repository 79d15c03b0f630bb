// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_WritesAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "ai-chat-history.json")

	if err := AtomicWriteFile(path, []byte(`[]`), 0600); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte(`[{"id":"a"}]`), 0600); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(content) != `[{"id":"a"}]` {
		t.Errorf("content = %q, want replaced payload", content)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("perm = %o, want 600", info.Mode().Perm())
		}
	}
}

func TestAtomicWriteFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	for i := 0; i < 5; i++ {
		if err := AtomicWriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestAtomicWriteFileWithDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newdir", "test.txt")

	if err := AtomicWriteFileWithDir(path, []byte("test"), 0600, 0700); err != nil {
		t.Fatalf("AtomicWriteFileWithDir failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not created: %v", err)
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"ellipsis", "hello world", 8, "hello..."},
		{"tiny", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
		{"utf8", "héllo wörld", 7, "héll..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateRunes(tc.in, tc.max); got != tc.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"fits", "New Chat", 20, "New Chat"},
		{"ascii", "Tell me about quantum...", 10, "Tell me..."},
		{"wide runes", "日本語のテキスト", 7, "日本..."},
		{"zero", "abc", 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateWidth(tc.in, tc.max)
			if got != tc.want {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
			if StringWidth(got) > tc.max {
				t.Errorf("width %d exceeds max %d", StringWidth(got), tc.max)
			}
		})
	}
}

func TestPadWidth(t *testing.T) {
	if got := PadWidth("ab", 5); got != "ab   " {
		t.Errorf("PadWidth = %q", got)
	}
	if got := PadWidth("日本", 5); StringWidth(got) != 5 {
		t.Errorf("PadWidth width = %d, want 5", StringWidth(got))
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("line one\r\nline  two\n"); got != "line one line two" {
		t.Errorf("SingleLine = %q", got)
	}
}
