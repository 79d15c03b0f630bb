// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the fixed palette and the lipgloss styles shared by
the TUI and the line-mode REPL.

All colors are lipgloss AdaptiveColor values. A Theme binds them to a
renderer whose background is either detected ("auto") or forced ("dark",
"light"), so the same palette serves both terminal kinds.

	theme := styles.NewTheme("auto", os.Stdout)
	fmt.Println(theme.UserLabel.Render("You"))
*/
package styles
