// Package llm: ошибки провайдеров.
//
// Все ошибки возвращаются вверх по стеку, никаких panic (Rule 7).
// Проверка через errors.Is / errors.As.
package llm

import (
	"errors"
	"fmt"
)

// ErrMissingCredential - для провайдера не настроен API ключ.
//
// Возвращается клиентом до любого сетевого вызова.
// Оборачивается с именем провайдера:
//   fmt.Errorf("%w: %s", ErrMissingCredential, kind)
var ErrMissingCredential = errors.New("api key not configured")

// ErrNoProviderAvailable - ни у одного провайдера нет ключа.
//
// Единственная ошибка, которая обязана проверяться до сетевого вызова
// на уровне оркестратора.
var ErrNoProviderAvailable = errors.New("no api key configured for any provider")

// ErrEmptyResponse - провайдер вернул 2xx, но в конверте нет текста.
var ErrEmptyResponse = errors.New("empty response from provider")

// ErrRateLimited - локальный лимитер отказал в запросе. Запрос не отправлялся.
var ErrRateLimited = errors.New("local rate limit exceeded")

// ErrUnknownProvider - идентификатор провайдера не из списка Kinds().
var ErrUnknownProvider = errors.New("unknown provider")

// HTTPError - провайдер ответил не-2xx статусом. Тело ответа не интерпретируется.
type HTTPError struct {
	Provider   Kind
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s api error: status %d", e.Provider.DisplayName(), e.StatusCode)
}

// MissingCredential оборачивает ErrMissingCredential именем провайдера.
func MissingCredential(kind Kind) error {
	return fmt.Errorf("%w: %s", ErrMissingCredential, kind)
}

// StatusCode извлекает HTTP статус из цепочки ошибок (0 если это не HTTPError).
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
