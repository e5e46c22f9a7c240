// Интерфейс Провайдера через который работает всё приложение.

package llm

import "context"

// Provider - контракт для любого AI-сервиса, генерирующего приложения.
//
// Реализация отвечает только за транспорт: собрать запрос конкретного API,
// выполнить ровно один HTTP вызов и достать сырой текст из конверта ответа.
// Нормализация текста в ApplicationRecord делается выше (pkg/normalizer).
type Provider interface {
	// Kind возвращает идентификатор провайдера.
	Kind() Kind

	// Generate отправляет запрос и возвращает сырой текст ответа модели.
	//
	// Ошибки: ErrMissingCredential (без сетевого вызова), *HTTPError,
	// ErrEmptyResponse, ErrRateLimited.
	Generate(ctx context.Context, req Request) (string, error)
}

// CredentialSource - источник API ключей для провайдеров.
//
// Ключ читается на каждом вызове, поэтому SetAPIKey действует сразу,
// без пересоздания клиентов.
type CredentialSource interface {
	APIKey(kind Kind) string
	HasAPIKey(kind Kind) bool
}
