// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates any failure
	ExitGeneralError = 1
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "sessions"
	Action  string // e.g. "export"
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError wraps err with the command and action that failed.
func NewCommandError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError prints err as "Error: ..." to w.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// GetExitCode maps an error to the process exit status.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitGeneralError
}
