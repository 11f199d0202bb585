// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrPromptCancelled indicates the user aborted the confirmation prompt
// (Esc/Ctrl+C) without choosing either option.
var ErrPromptCancelled = fmt.Errorf("prompt cancelled")

// confirmModel is a minimal yes/no bubbletea prompt.
type confirmModel struct {
	title     string
	selection bool // true = yes highlighted
	result    bool
	done      bool
	cancelled bool
}

// Init implements tea.Model.
func (m confirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.done = true
			m.cancelled = true
			return m, tea.Quit
		case "y":
			m.result = true
			m.done = true
			return m, tea.Quit
		case "n":
			m.result = false
			m.done = true
			return m, tea.Quit
		case "left", "h":
			m.selection = true
		case "right", "l":
			m.selection = false
		case "up", "down", "tab", "shift+tab":
			m.selection = !m.selection
		case "enter", " ":
			m.result = m.selection
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m confirmModel) View() string {
	if m.done {
		return ""
	}

	activeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(ColorPrimary).
		Bold(true).
		Padding(0, 1)
	inactiveStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF")).
		Padding(0, 1)

	yesView := inactiveStyle.Render("Yes")
	noView := inactiveStyle.Render("No")
	if m.selection {
		yesView = activeStyle.Render("Yes")
	} else {
		noView = activeStyle.Render("No")
	}

	lines := []string{
		TitleStyle.Render(m.title),
		yesView + "  " + noView,
		SubtitleStyle.Render("enter submit • y yes • n no • esc cancel"),
	}

	return strings.Join(lines, "\n")
}

// confirm prompts the user with a yes/no question. Returns
// ErrPromptCancelled when the user aborts without answering.
func confirm(title string) (bool, error) {
	p := tea.NewProgram(confirmModel{title: title, selection: true})

	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running confirmation prompt: %w", err)
	}

	m := final.(confirmModel)
	if m.cancelled {
		return false, ErrPromptCancelled
	}
	return m.result, nil
}
