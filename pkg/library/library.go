// Package library хранит сгенерированные приложения.
//
// Весь список лежит одним JSON массивом в слоте "generated_apps"
// хранилища storage.KeyValue и перезаписывается при каждом изменении.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/storage"
	"github.com/ilkoid/appforge/pkg/utils"
)

// Slot - ключ хранилища со списком приложений.
const Slot = "generated_apps"

// ErrNotFound - приложения с таким ID нет.
var ErrNotFound = errors.New("app not found")

// StoredApp - приложение в библиотеке.
type StoredApp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	Icon        string    `json:"icon"`
	Provider    llm.Kind  `json:"provider"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Record возвращает поля записи генерации.
func (a StoredApp) Record() llm.ApplicationRecord {
	return llm.ApplicationRecord{Name: a.Name, Description: a.Description, Code: a.Code, Icon: a.Icon}
}

// Library - thread-safe список приложений с записью в хранилище.
type Library struct {
	mu   sync.RWMutex
	kv   storage.KeyValue
	apps []StoredApp
	now  func() time.Time
}

// Open загружает список из kv. Повреждённый слот логируется и
// считается пустым; ошибка чтения хранилища возвращается.
func Open(kv storage.KeyValue) (*Library, error) {
	l := &Library{kv: kv, now: time.Now}

	raw, ok, err := kv.Get(Slot)
	if err != nil {
		return nil, fmt.Errorf("library: load: %w", err)
	}
	if !ok || raw == "" {
		return l, nil
	}
	if err := json.Unmarshal([]byte(raw), &l.apps); err != nil {
		utils.Warn("Library: corrupted slot ignored", "slot", Slot, "error", err)
		l.apps = nil
	}
	utils.Info("Library loaded", "apps", len(l.apps))
	return l, nil
}

// Add сохраняет новую запись и возвращает её с ID.
func (l *Library) Add(rec llm.ApplicationRecord, provider llm.Kind) (StoredApp, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	app := StoredApp{
		ID:          uuid.NewString(),
		Name:        rec.Name,
		Description: rec.Description,
		Code:        rec.Code,
		Icon:        rec.Icon,
		Provider:    provider,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	apps := append(append([]StoredApp(nil), l.apps...), app)
	if err := l.persist(apps); err != nil {
		return StoredApp{}, err
	}
	l.apps = apps
	return app, nil
}

// ApplyFix заменяет код и описание приложения результатом исправления.
// Имя и иконка остаются прежними.
func (l *Library) ApplyFix(id string, rec llm.ApplicationRecord) (StoredApp, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return StoredApp{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	apps := append([]StoredApp(nil), l.apps...)
	apps[i].Code = rec.Code
	apps[i].Description = rec.Description
	apps[i].UpdatedAt = l.now()

	if err := l.persist(apps); err != nil {
		return StoredApp{}, err
	}
	l.apps = apps
	return apps[i], nil
}

// Delete удаляет приложение.
func (l *Library) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	apps := make([]StoredApp, 0, len(l.apps)-1)
	apps = append(apps, l.apps[:i]...)
	apps = append(apps, l.apps[i+1:]...)

	if err := l.persist(apps); err != nil {
		return err
	}
	l.apps = apps
	return nil
}

// Get возвращает приложение по ID.
func (l *Library) Get(id string) (StoredApp, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.index(id); i >= 0 {
		return l.apps[i], true
	}
	return StoredApp{}, false
}

// List возвращает копию списка в порядке создания.
func (l *Library) List() []StoredApp {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]StoredApp(nil), l.apps...)
}

// Len - количество приложений.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.apps)
}

// index ищет по ID. Вызывается под мьютексом.
func (l *Library) index(id string) int {
	for i := range l.apps {
		if l.apps[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Library) persist(apps []StoredApp) error {
	data, err := json.Marshal(apps)
	if err != nil {
		return fmt.Errorf("library: encode: %w", err)
	}
	if err := l.kv.Set(Slot, string(data)); err != nil {
		return fmt.Errorf("library: save: %w", err)
	}
	return nil
}
