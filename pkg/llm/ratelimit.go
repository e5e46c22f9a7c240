package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited оборачивает Provider локальным лимитером.
//
// Лимитер не ставит запросы в очередь: если токена нет, вызов сразу
// завершается ErrRateLimited без сетевого запроса.
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// NewRateLimited создаёт обёртку. perMinute <= 0 отключает лимит и
// возвращает исходный провайдер.
func NewRateLimited(next Provider, perMinute, burst int) Provider {
	if perMinute <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	// perMinute в запросах/минуту → rate.Limit в запросах/секунду
	limit := rate.Limit(float64(perMinute) / 60.0)
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Kind возвращает идентификатор обёрнутого провайдера.
func (r *RateLimited) Kind() Kind {
	return r.next.Kind()
}

// Generate пропускает запрос дальше, если лимитер разрешает.
func (r *RateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if !r.limiter.Allow() {
		return "", fmt.Errorf("%w: %s", ErrRateLimited, r.next.Kind())
	}
	return r.next.Generate(ctx, req)
}
