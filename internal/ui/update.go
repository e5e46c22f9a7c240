// Логика - Обрабатывает нажатия клавиш и результаты команд.

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/appforge/internal/app"
	"github.com/ilkoid/appforge/pkg/utils"
)

const headerHeight = 1

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {

	// 1. Изменение размера окна терминала
	case tea.WindowSizeMsg:
		footerHeight := m.textarea.Height() + 2 // + граница
		m.width = msg.Width
		m.log.resize(msg.Width, msg.Height-headerHeight-footerHeight)
		m.textarea.SetWidth(msg.Width)
		m.ready = true
		return m, nil

	// 2. Клавиши
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.log.append(userMsgStyle("USER > ") + maskInput(input))
			return m, dispatch(input, m.state)
		}

	// 3. Результат выполнения команды (прилетел асинхронно)
	case app.CommandResultMsg:
		if msg.Err != nil {
			utils.Warn("Command failed", "error", msg.Err)
			m.log.append(errorMsgStyle("ERROR: ") + msg.Err.Error())
		} else {
			m.log.append(systemMsgStyle("SYSTEM: ") + msg.Output)
		}
		m.textarea.Focus()
		return m, nil

	case spinner.TickMsg:
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.log.viewport, vpCmd = m.log.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// dispatch: "/команда" идёт в реестр, остальное - описание нового приложения.
func dispatch(input string, state *app.AppState) tea.Cmd {
	if app.IsCommand(input) {
		return state.CommandRegistry.Execute(input, state)
	}
	return app.GenerateCmd(state, input)
}

// maskInput скрывает ключ в эхо "/key <provider> <key>".
func maskInput(input string) string {
	fields := strings.Fields(input)
	if len(fields) < 3 || fields[0] != "/key" {
		return input
	}
	fields[2] = utils.MaskSecret(strings.Join(fields[2:], " "))
	return strings.Join(fields[:3], " ")
}
