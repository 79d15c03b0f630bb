// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - assistant messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - brand, user messages, commands
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - success, completed streams
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - warnings, in-flight requests
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT
// =============================================================================

var (
	SurfaceDim    = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	Overlay       = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
	SelectionBg   = lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A5F"}
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
)

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet holds ASCII markers shown next to colored status text,
// so state is readable without color.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Active  string
}

// StatusIndicators is the marker set used everywhere.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Active:  "[*]",
}
