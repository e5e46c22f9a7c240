// Package ui реализует Model компонент Bubble Tea TUI.
//
// Содержит структуру UI и функцию инициализации.
package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/appforge/internal/app"
)

// MainModel представляет главную модель UI (Bubble Tea Model).
//
// Содержит все компоненты TUI:
//   - log: лог диалога с переносом строк (только для чтения)
//   - textarea: поле ввода пользователя
//   - spinner: индикатор идущей генерации
//   - state: состояние приложения (оркестратор, библиотека, реестр команд)
//
// log хранится по указателю: Update работает с value receiver, а
// строки лога должны переживать копирование модели.
type MainModel struct {
	log      *transcript
	textarea textarea.Model
	spinner  spinner.Model

	state *app.AppState

	width int
	ready bool
}

// InitialModel создает начальное состояние UI.
//
// Инициализирует поле ввода с placeholder'ом и лог с приветствием.
// Если ни один ключ не задан, сразу показывает подсказку.
func InitialModel(state *app.AppState) MainModel {
	ta := textarea.New()
	ta.Placeholder = "Опишите приложение или введите /help..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	log := newTranscript()
	log.append(systemMsgStyle("AppForge ready. Describe an app to generate it, /help for commands."))
	if !state.Orchestrator.AnyConfigured() {
		log.append(errorMsgStyle("⚠️ ") + "API ключ не задан: /key gemini <key> или /key deepseek <key>")
	}

	return MainModel{
		log:      log,
		textarea: ta,
		spinner:  sp,
		state:    state,
	}
}

// Init запускается один раз при старте Bubble Tea программы.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}
