// Package storage предоставляет персистентное key-value хранилище строк.
//
// Используется для API ключей провайдеров и списка сгенерированных приложений.
// Две реализации: SQLite (файл на диске) и Memory (тесты, --ephemeral).
//
// Rule 5: Все реализации thread-safe.
// Rule 7: Все ошибки возвращаются, никаких panic.
package storage

import "errors"

// ErrClosed возвращается при обращении к закрытому хранилищу.
var ErrClosed = errors.New("storage closed")

// KeyValue - именованные строковые слоты.
type KeyValue interface {
	// Get возвращает значение слота. (значение, true, nil) если слот есть.
	Get(key string) (string, bool, error)

	// Set перезаписывает слот.
	Set(key, value string) error

	// Delete удаляет слот. Отсутствующий слот - не ошибка.
	Delete(key string) error

	// Close освобождает ресурсы.
	Close() error
}
