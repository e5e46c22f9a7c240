// Package app предоставляет состояние TUI приложения (AppState) и реестр команд.
//
// Package app следует правилам из dev_manifest.md:
//   - Rule 5: Thread-safe доступ через sync.RWMutex
//   - Rule 6: Application-specific логика, может импортировать pkg/
//   - Rule 7: Все ошибки возвращаются, никаких panic
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ilkoid/appforge/pkg/config"
	"github.com/ilkoid/appforge/pkg/library"
	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/orchestrator"
	"github.com/ilkoid/appforge/pkg/s3storage"
)

// AppState представляет состояние приложения (TUI/CLI specific).
//
// Orchestrator и Library создаются в main() и передаются сюда;
// AppState добавляет только UI-специфичные поля.
type AppState struct {
	Config          *config.AppConfig
	Orchestrator    *orchestrator.Orchestrator
	Library         *library.Library
	Publisher       s3storage.Publisher // nil если s3 не настроен
	CommandRegistry *CommandRegistry

	// ctx отменяется при завершении приложения (SIGINT/SIGTERM)
	ctx context.Context

	// mu защищает selectedID, styleHint, attachments, isProcessing
	mu           sync.RWMutex
	selectedID   string
	styleHint    string
	attachments  []llm.Attachment
	isProcessing bool
}

// NewAppState создает новое состояние приложения.
//
// publisher может быть nil. Реестр команд создаётся пустым;
// команды регистрирует SetupCommands.
func NewAppState(ctx context.Context, cfg *config.AppConfig, orch *orchestrator.Orchestrator, lib *library.Library, publisher s3storage.Publisher) *AppState {
	if ctx == nil {
		ctx = context.Background()
	}
	return &AppState{
		Config:          cfg,
		Orchestrator:    orch,
		Library:         lib,
		Publisher:       publisher,
		CommandRegistry: NewCommandRegistry(),
		ctx:             ctx,
	}
}

// Context возвращает контекст приложения.
func (s *AppState) Context() context.Context {
	return s.ctx
}

// --- Processing (одна генерация за раз) ---

// TryStartProcessing помечает начало генерации.
// Возвращает false если генерация уже идёт.
func (s *AppState) TryStartProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isProcessing {
		return false
	}
	s.isProcessing = true
	return true
}

// SetProcessing меняет статус занятости (для спиннера в UI).
func (s *AppState) SetProcessing(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isProcessing = busy
}

// IsProcessing возвращает текущий статус занятости.
func (s *AppState) IsProcessing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isProcessing
}

// --- Выбранное приложение ---

// Select делает приложение выбранным (цель для /fix, /export, /publish).
func (s *AppState) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
}

// Selected возвращает выбранное приложение, если оно ещё есть в библиотеке.
func (s *AppState) Selected() (library.StoredApp, bool) {
	s.mu.RLock()
	id := s.selectedID
	s.mu.RUnlock()

	if id == "" {
		return library.StoredApp{}, false
	}
	return s.Library.Get(id)
}

// ResolveApp находит приложение по ссылке: номер в /apps (с 1),
// ID или префикс ID. Пустая ссылка - выбранное приложение.
func (s *AppState) ResolveApp(ref string) (library.StoredApp, error) {
	if ref == "" {
		if app, ok := s.Selected(); ok {
			return app, nil
		}
		return library.StoredApp{}, fmt.Errorf("приложение не выбрано, используйте /select <n>")
	}

	apps := s.Library.List()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(apps) {
			return library.StoredApp{}, fmt.Errorf("нет приложения с номером %d (всего %d)", n, len(apps))
		}
		return apps[n-1], nil
	}

	var found []library.StoredApp
	for _, app := range apps {
		if app.ID == ref {
			return app, nil
		}
		if strings.HasPrefix(app.ID, ref) {
			found = append(found, app)
		}
	}
	switch len(found) {
	case 0:
		return library.StoredApp{}, fmt.Errorf("%w: %s", library.ErrNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return library.StoredApp{}, fmt.Errorf("префикс %q неоднозначен (%d совпадений)", ref, len(found))
	}
}

// --- Параметры следующей генерации ---

// SetStyleHint задаёт стиль для следующих генераций ("" - без стиля).
func (s *AppState) SetStyleHint(hint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styleHint = hint
}

// StyleHint возвращает текущий стиль.
func (s *AppState) StyleHint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.styleHint
}

// AddAttachment прикрепляет файл к следующей генерации.
func (s *AppState) AddAttachment(a llm.Attachment) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, a)
	return len(s.attachments)
}

// TakeAttachments возвращает прикреплённые файлы и очищает список.
func (s *AppState) TakeAttachments() []llm.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.attachments
	s.attachments = nil
	return out
}

// RestoreAttachments возвращает файлы в начало списка после неудачной генерации.
func (s *AppState) RestoreAttachments(files []llm.Attachment) {
	if len(files) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(append([]llm.Attachment{}, files...), s.attachments...)
}

// PendingAttachments - количество прикреплённых файлов.
func (s *AppState) PendingAttachments() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attachments)
}

// GetCommandRegistry возвращает реестр команд для использования в UI.
func (s *AppState) GetCommandRegistry() *CommandRegistry {
	return s.CommandRegistry
}
