// Рендер
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ilkoid/appforge/internal/app"
	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/utils"
)

func (m MainModel) View() string {
	if !m.ready {
		return "Initializing UI..."
	}

	status := statusLine(m.state)
	if m.state.IsProcessing() {
		status = m.spinner.View() + " generating… " + status
	}

	header := headerStyle.
		Width(m.width).
		Render(status)

	border := lipgloss.NewStyle().
		Foreground(grayColor).
		Width(m.width).
		Render(strings.Repeat("─", max(m.width, 1)))

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.log.viewport.View(),
		border,
		m.textarea.View(),
	)
}

// statusLine: провайдер, ключи, выбранное приложение, стиль и вложения.
func statusLine(state *app.AppState) string {
	var keys []string
	for _, k := range llm.Kinds() {
		mark := "✗"
		if state.Orchestrator.HasAPIKey(k) {
			mark = "✓"
		}
		keys = append(keys, string(k)+mark)
	}

	selected := "none"
	if a, ok := state.Selected(); ok {
		selected = a.Icon + " " + utils.Truncate(a.Name, 24)
	}

	parts := []string{
		"PROVIDER: " + state.Orchestrator.CurrentProvider().DisplayName(),
		"KEYS: " + strings.Join(keys, " "),
		"APP: " + selected,
	}
	if hint := state.StyleHint(); hint != "" {
		parts = append(parts, "STYLE: "+utils.Truncate(hint, 20))
	}
	if n := state.PendingAttachments(); n > 0 {
		parts = append(parts, fmt.Sprintf("FILES: %d", n))
	}
	return " " + strings.Join(parts, " | ") + " "
}
