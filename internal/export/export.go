// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/llmchat/internal/session"
	"github.com/jeranaias/llmchat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a session to one format.
type Exporter interface {
	// Export renders the session.
	Export(c session.ChatSession) ([]byte, error)

	// FileExtension returns the extension including the dot (".md").
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatHTML     Format = "html"
)

// Formats lists the supported formats.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatYAML, FormatHTML}

// ErrEmptySession is returned when exporting a session without messages to
// a transcript format.
var ErrEmptySession = errors.New("session has no messages")

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where ToFile writes. Default: current directory.
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds a metadata header (model, dates, counts).
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark"). Default: "dark".
	Theme string

	// Now is the export timestamp source (tests).
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Theme:           "dark",
		Now:             time.Now,
	}
}

func (o *Options) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// New returns the exporter for f.
func New(f Format, opts *Options) (Exporter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch f {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(), nil
	case FormatYAML:
		return NewYAMLExporter(opts), nil
	case FormatHTML:
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", f)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile exports c with exporter into opts.OutputDir and returns the path.
// The file name is derived from the title and the export time.
func ToFile(c session.ChatSession, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(c)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	filename := fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(c.Title),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	outputPath := filepath.Join(dir, filename)

	if err := util.AtomicWriteFileWithDir(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// The file exists; failing to open it is not an export failure.
			return outputPath, fmt.Errorf("exported to %s but could not open it: %w", outputPath, err)
		}
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), "...")
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			out = append(out, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			out = append(out, '_')
		case r < 32 || r == 127:
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "session"
	}
	return string(out)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// roleLabel returns the display label for a role.
func roleLabel(r session.Role) string {
	switch r {
	case session.RoleUser:
		return "User"
	case session.RoleAssistant:
		return "Assistant"
	case session.RoleSystem:
		return "System"
	case "":
		return "Unknown"
	default:
		runes := []rune(string(r))
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
