// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme_ForcedBackground(t *testing.T) {
	var buf bytes.Buffer

	dark := NewTheme("dark", &buf)
	assert.True(t, dark.IsDark)
	assert.Equal(t, "dark", dark.Name)

	light := NewTheme("LIGHT", &buf)
	assert.False(t, light.IsDark)

	auto := NewTheme("something-else", &buf)
	assert.Equal(t, "auto", auto.Name)
}

func TestGlamourStyle_NonTTY(t *testing.T) {
	// A bytes.Buffer is not a terminal, so the profile is ASCII.
	theme := NewTheme("dark", &bytes.Buffer{})
	assert.Equal(t, "notty", theme.GlamourStyle())
}

func TestRoleLabel(t *testing.T) {
	theme := NewTheme("dark", &bytes.Buffer{})
	assert.Equal(t, "You", theme.RoleLabel("user"))
	assert.Equal(t, "Assistant", theme.RoleLabel("assistant"))
	assert.Equal(t, "System", theme.RoleLabel("system"))
	assert.Equal(t, "Unknown", theme.RoleLabel(""))
}
