package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/appforge/pkg/library"
	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/utils"
)

// CommandHandler - тип функции-обработчика команды.
//
// Принимает AppState и аргументы команды, возвращает tea.Cmd
// для асинхронного выполнения в Bubble Tea.
type CommandHandler func(state *AppState, args []string) tea.Cmd

// CommandRegistry - реестр зарегистрированных команд TUI.
//
// Thread-safe: одновременные вызовы безопасны.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]CommandHandler
}

// NewCommandRegistry создает новый пустой реестр команд.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]CommandHandler),
	}
}

// Register регистрирует новую команду в реестре.
//
// Если команда с таким именем уже существует, она будет перезаписана.
func (r *CommandRegistry) Register(name string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = handler
}

// Execute выполняет команду и возвращает tea.Cmd для асинхронного выполнения.
//
// Парсит ввод на имя команды и аргументы, находит соответствующий handler.
// Если команда не найдена, возвращает команду с ошибкой.
func (r *CommandRegistry) Execute(input string, state *AppState) tea.Cmd {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := parts[0]
	args := parts[1:]

	r.mu.RLock()
	handler, exists := r.commands[cmd]
	r.mu.RUnlock()

	if !exists {
		return resultCmd(CommandResultMsg{Err: fmt.Errorf("неизвестная команда: '%s', см. /help", cmd)})
	}

	return handler(state, args)
}

// GetCommands возвращает отсортированный список имен зарегистрированных команд.
func (r *CommandRegistry) GetCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]string, 0, len(r.commands))
	for name := range r.commands {
		cmds = append(cmds, name)
	}
	sort.Strings(cmds)
	return cmds
}

// IsCommand - ввод начинается с '/' и должен идти в реестр, а не в генерацию.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

func resultCmd(msg CommandResultMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

const helpText = `Команды:
  <текст>                  - сгенерировать приложение по описанию
  /provider <deepseek|gemini> - выбрать провайдера
  /key <provider> <key>    - сохранить API ключ
  /status                  - провайдеры и ключи
  /style <описание>        - стиль для следующих генераций (/style без аргументов сбрасывает)
  /attach <файл>           - приложить файл к следующей генерации
  /apps                    - список приложений
  /select <n|id>           - выбрать приложение
  /fix <описание ошибки>   - исправить выбранное приложение
  /delete <n|id>           - удалить приложение
  /export [n|id]           - сохранить HTML в export_dir
  /publish [n|id]          - загрузить HTML в S3
  /help                    - эта справка`

// noKeyGuidance показывается вместо генерации, если ни один ключ не задан.
const noKeyGuidance = `API ключ не настроен ни для одного провайдера.
Задайте ключ: /key gemini <key> или /key deepseek <key>
(или переменные окружения GEMINI_API_KEY / DEEPSEEK_API_KEY).`

// SetupCommands регистрирует все команды TUI.
func SetupCommands(registry *CommandRegistry) {
	registry.Register("/help", func(_ *AppState, _ []string) tea.Cmd {
		return resultCmd(CommandResultMsg{Output: helpText})
	})
	registry.Register("/provider", providerCommand)
	registry.Register("/key", keyCommand)
	registry.Register("/status", func(state *AppState, _ []string) tea.Cmd {
		return resultCmd(CommandResultMsg{Output: StatusReport(state)})
	})
	registry.Register("/style", styleCommand)
	registry.Register("/attach", attachCommand)
	registry.Register("/apps", func(state *AppState, _ []string) tea.Cmd {
		return resultCmd(CommandResultMsg{Output: AppsReport(state)})
	})
	registry.Register("/select", selectCommand)
	registry.Register("/fix", fixCommand)
	registry.Register("/delete", deleteCommand)
	registry.Register("/export", exportCommand)
	registry.Register("/publish", publishCommand)
}

func providerCommand(state *AppState, args []string) tea.Cmd {
	if len(args) != 1 {
		return resultCmd(CommandResultMsg{Err: fmt.Errorf("использование: /provider <%s>", kindList())})
	}
	kind, ok := llm.ParseKind(strings.ToLower(args[0]))
	if !ok || !state.Orchestrator.SwitchProvider(kind) {
		return resultCmd(CommandResultMsg{Err: fmt.Errorf("%w: %s", llm.ErrUnknownProvider, args[0])})
	}

	out := fmt.Sprintf("Провайдер: %s", kind.DisplayName())
	if !state.Orchestrator.HasAPIKey(kind) {
		out += fmt.Sprintf("\n⚠️ ключ не задан, будет использован fallback. /key %s <key>", kind)
	}
	return resultCmd(CommandResultMsg{Output: out})
}

func keyCommand(state *AppState, args []string) tea.Cmd {
	if len(args) != 2 {
		return resultCmd(CommandResultMsg{Err: fmt.Errorf("использование: /key <%s> <api-key>", kindList())})
	}
	kind, ok := llm.ParseKind(strings.ToLower(args[0]))
	if !ok {
		return resultCmd(CommandResultMsg{Err: fmt.Errorf("%w: %s", llm.ErrUnknownProvider, args[0])})
	}
	key := args[1]

	return func() tea.Msg {
		if err := state.Orchestrator.SetAPIKey(kind, key); err != nil {
			return CommandResultMsg{Err: fmt.Errorf("ключ не сохранён: %w", err)}
		}
		return CommandResultMsg{Output: fmt.Sprintf("🔑 Ключ %s сохранён: %s", kind.DisplayName(), utils.MaskSecret(key))}
	}
}

func styleCommand(state *AppState, args []string) tea.Cmd {
	hint := strings.Join(args, " ")
	state.SetStyleHint(hint)
	if hint == "" {
		return resultCmd(CommandResultMsg{Output: "Стиль сброшен"})
	}
	return resultCmd(CommandResultMsg{Output: "🎨 Стиль: " + hint})
}

func attachCommand(state *AppState, args []string) tea.Cmd {
	if len(args) == 0 {
		return resultCmd(CommandResultMsg{Err: fmt.Errorf("использование: /attach <файл>")})
	}
	path := strings.Join(args, " ")

	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return CommandResultMsg{Err: fmt.Errorf("не удалось прочитать файл: %w", err)}
		}
		n := state.AddAttachment(llm.Attachment{Name: filepath.Base(path), Content: string(data)})
		return CommandResultMsg{Output: fmt.Sprintf("📎 %s приложен (файлов к следующей генерации: %d)", filepath.Base(path), n)}
	}
}

func selectCommand(state *AppState, args []string) tea.Cmd {
	if len(args) != 1 {
		return resultCmd(CommandResultMsg{Err: fmt.Errorf("использование: /select <n|id>")})
	}
	app, err := state.ResolveApp(args[0])
	if err != nil {
		return resultCmd(CommandResultMsg{Err: err})
	}
	state.Select(app.ID)
	return resultCmd(CommandResultMsg{Output: fmt.Sprintf("Выбрано: %s %s", app.Icon, app.Name)})
}

func deleteCommand(state *AppState, args []string) tea.Cmd {
	if len(args) != 1 {
		return resultCmd(CommandResultMsg{Err: fmt.Errorf("использование: /delete <n|id>")})
	}
	app, err := state.ResolveApp(args[0])
	if err != nil {
		return resultCmd(CommandResultMsg{Err: err})
	}

	return func() tea.Msg {
		if err := state.Library.Delete(app.ID); err != nil {
			return CommandResultMsg{Err: err}
		}
		if sel, ok := state.Selected(); !ok || sel.ID == app.ID {
			state.Select("")
		}
		return CommandResultMsg{Output: fmt.Sprintf("🗑️ Удалено: %s", app.Name)}
	}
}

func exportCommand(state *AppState, args []string) tea.Cmd {
	app, err := state.ResolveApp(strings.Join(args, ""))
	if err != nil {
		return resultCmd(CommandResultMsg{Err: err})
	}

	return func() tea.Msg {
		path, err := library.ExportHTML(app, state.Config.App.ExportDir)
		if err != nil {
			return CommandResultMsg{Err: err}
		}
		utils.Info("App exported", "id", app.ID, "path", path)
		return CommandResultMsg{Output: "💾 Сохранено: " + path}
	}
}

func publishCommand(state *AppState, args []string) tea.Cmd {
	if state.Publisher == nil {
		return resultCmd(CommandResultMsg{Err: errors.New("публикация выключена: задайте s3.endpoint и s3.bucket")})
	}
	app, err := state.ResolveApp(strings.Join(args, ""))
	if err != nil {
		return resultCmd(CommandResultMsg{Err: err})
	}

	return func() tea.Msg {
		key := library.Slug(app.Name) + "-" + shortID(app.ID)
		full, err := state.Publisher.Publish(state.Context(), key, app.Code)
		if err != nil {
			return CommandResultMsg{Err: err}
		}
		return CommandResultMsg{Output: "☁️ Опубликовано: " + full}
	}
}

// GenerateCmd запускает генерацию нового приложения по тексту пользователя.
//
// Перед запросом проверяет что хотя бы один ключ задан (иначе подсказка
// без сетевого вызова) и что другая генерация не идёт.
func GenerateCmd(state *AppState, prompt string) tea.Cmd {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}
	if !state.Orchestrator.AnyConfigured() {
		return resultCmd(CommandResultMsg{Err: errors.New(noKeyGuidance)})
	}
	if !state.TryStartProcessing() {
		return resultCmd(CommandResultMsg{Err: errors.New("генерация уже выполняется, подождите")})
	}

	req := llm.Request{
		Prompt:      prompt,
		StyleHint:   state.StyleHint(),
		Attachments: state.TakeAttachments(),
	}

	return func() tea.Msg {
		defer state.SetProcessing(false)

		rec, err := state.Orchestrator.GenerateApplication(state.Context(), req)
		if err != nil {
			err = describeError(err)
			if n := len(req.Attachments); n > 0 {
				state.RestoreAttachments(req.Attachments)
				err = fmt.Errorf("%w (прикреплённые файлы сохранены: %d)", err, n)
			}
			return CommandResultMsg{Err: err}
		}
		app, err := state.Library.Add(rec, state.Orchestrator.CurrentProvider())
		if err != nil {
			return CommandResultMsg{Err: err}
		}
		state.Select(app.ID)

		return CommandResultMsg{Output: fmt.Sprintf("✅ Создано: %s %s\n%s\n(%s, id %s) /export чтобы сохранить HTML",
			app.Icon, app.Name, app.Description, app.Provider.DisplayName(), shortID(app.ID))}
	}
}

func fixCommand(state *AppState, args []string) tea.Cmd {
	if len(args) == 0 {
		return resultCmd(CommandResultMsg{Err: fmt.Errorf("использование: /fix <описание ошибки>")})
	}
	app, err := state.ResolveApp("")
	if err != nil {
		return resultCmd(CommandResultMsg{Err: err})
	}
	if !state.Orchestrator.AnyConfigured() {
		return resultCmd(CommandResultMsg{Err: errors.New(noKeyGuidance)})
	}
	if !state.TryStartProcessing() {
		return resultCmd(CommandResultMsg{Err: errors.New("генерация уже выполняется, подождите")})
	}
	description := strings.Join(args, " ")

	return func() tea.Msg {
		defer state.SetProcessing(false)

		rec, err := state.Orchestrator.FixApplication(state.Context(), app.Code, description)
		if err != nil {
			return CommandResultMsg{Err: describeError(err)}
		}
		fixed, err := state.Library.ApplyFix(app.ID, rec)
		if err != nil {
			return CommandResultMsg{Err: err}
		}
		return CommandResultMsg{Output: fmt.Sprintf("🔧 Исправлено: %s %s\n%s", fixed.Icon, fixed.Name, fixed.Description)}
	}
}

// describeError добавляет подсказку к типичным ошибкам провайдеров.
func describeError(err error) error {
	switch {
	case errors.Is(err, llm.ErrNoProviderAvailable):
		return errors.New(noKeyGuidance)
	case errors.Is(err, llm.ErrRateLimited):
		return fmt.Errorf("%w: подождите немного и повторите", err)
	}
	switch llm.StatusCode(err) {
	case 401, 403:
		return fmt.Errorf("%w: проверьте API ключ (/key)", err)
	case 429:
		return fmt.Errorf("%w: превышен лимит запросов провайдера", err)
	}
	return err
}

// StatusReport описывает провайдеров: текущий, ключи, порядок fallback.
func StatusReport(state *AppState) string {
	var sb strings.Builder
	current := state.Orchestrator.CurrentProvider()
	fmt.Fprintf(&sb, "Текущий провайдер: %s\n", current.DisplayName())
	for _, k := range llm.Kinds() {
		mark := "✗ нет ключа"
		if state.Orchestrator.HasAPIKey(k) {
			mark = "✓ ключ задан"
		}
		def := state.Config.Provider(k)
		fmt.Fprintf(&sb, "  • %-9s %s (%s)\n", k, mark, def.ModelName)
	}

	order := make([]string, 0, len(state.Orchestrator.FallbackOrder()))
	for _, k := range state.Orchestrator.FallbackOrder() {
		order = append(order, string(k))
	}
	fmt.Fprintf(&sb, "Fallback: %s\n", strings.Join(order, " → "))
	fmt.Fprintf(&sb, "Приложений в библиотеке: %d", state.Library.Len())
	return sb.String()
}

// AppsReport - нумерованный список приложений библиотеки.
func AppsReport(state *AppState) string {
	apps := state.Library.List()
	if len(apps) == 0 {
		return "Библиотека пуста. Опишите приложение, чтобы создать первое."
	}

	selected, _ := state.Selected()
	var sb strings.Builder
	for i, app := range apps {
		mark := " "
		if app.ID == selected.ID {
			mark = "▶"
		}
		fmt.Fprintf(&sb, "%s %d. %s %s  %s [%s]\n", mark, i+1, app.Icon, app.Name,
			utils.Truncate(app.Description, 60), shortID(app.ID))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func kindList() string {
	kinds := make([]string, 0, len(llm.Kinds()))
	for _, k := range llm.Kinds() {
		kinds = append(kinds, string(k))
	}
	return strings.Join(kinds, "|")
}
