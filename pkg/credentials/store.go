// Package credentials хранит API ключи провайдеров.
//
// Один ключ на провайдера, запись сквозная: каждый SetAPIKey сразу пишется
// в persistent storage под слотом "<provider>_api_key".
// Отсутствующий ключ и пустая строка эквивалентны ("не настроен").
package credentials

import (
	"fmt"
	"os"
	"sync"

	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/storage"
	"github.com/ilkoid/appforge/pkg/utils"
)

// Store - потокобезопасное хранилище ключей.
type Store struct {
	mu   sync.RWMutex
	keys map[llm.Kind]string
	kv   storage.KeyValue
}

// Проверка что Store реализует llm.CredentialSource
var _ llm.CredentialSource = (*Store)(nil)

// SlotName возвращает имя слота в хранилище для провайдера.
func SlotName(kind llm.Kind) string {
	return string(kind) + "_api_key"
}

// NewStore загружает ключи всех известных провайдеров из kv.
func NewStore(kv storage.KeyValue) (*Store, error) {
	s := &Store{
		keys: make(map[llm.Kind]string),
		kv:   kv,
	}

	for _, kind := range llm.Kinds() {
		v, ok, err := kv.Get(SlotName(kind))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s key: %w", kind, err)
		}
		if ok {
			s.keys[kind] = v
		}
	}

	return s, nil
}

// SetAPIKey сохраняет ключ и сразу пишет его в хранилище.
//
// Формат ключа не проверяется, перезапись безусловная. Значение в памяти
// обновляется даже если запись на диск не удалась - ошибка возвращается.
func (s *Store) SetAPIKey(kind llm.Kind, key string) error {
	s.mu.Lock()
	s.keys[kind] = key
	s.mu.Unlock()

	if err := s.kv.Set(SlotName(kind), key); err != nil {
		utils.Error("Failed to persist API key", "provider", kind, "error", err)
		return fmt.Errorf("persist %s key: %w", kind, err)
	}

	utils.Info("API key updated", "provider", kind, "key", utils.MaskSecret(key))
	return nil
}

// HasAPIKey - true если для провайдера сохранён непустой ключ.
func (s *Store) HasAPIKey(kind llm.Kind) bool {
	return s.APIKey(kind) != ""
}

// APIKey возвращает ключ (пустая строка если не настроен).
func (s *Store) APIKey(kind llm.Kind) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[kind]
}

// SeedFromEnv заполняет ненастроенные ключи из переменных окружения.
//
// envNames: провайдер → имя переменной (например DEEPSEEK_API_KEY).
// Значения из окружения в хранилище не пишутся.
// Возвращает список провайдеров, получивших ключ.
func (s *Store) SeedFromEnv(envNames map[llm.Kind]string) []llm.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seeded []llm.Kind
	for _, kind := range llm.Kinds() {
		name, ok := envNames[kind]
		if !ok || name == "" || s.keys[kind] != "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			s.keys[kind] = v
			seeded = append(seeded, kind)
		}
	}
	return seeded
}
