// Package orchestrator выбирает провайдера и превращает запрос в ApplicationRecord.
//
// Один *Orchestrator создаётся в main() и передаётся в UI/CLI. Глобального
// состояния нет. Текущий провайдер меняется только через SwitchProvider
// или при удачном fallback.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/normalizer"
	"github.com/ilkoid/appforge/pkg/utils"
)

// Credentials - хранилище ключей, которым управляет оркестратор.
// Реализуется *credentials.Store.
type Credentials interface {
	llm.CredentialSource
	SetAPIKey(kind llm.Kind, key string) error
}

// Orchestrator держит текущего провайдера и ссылку на ключи.
type Orchestrator struct {
	mu        sync.RWMutex
	current   llm.Kind
	fallback  []llm.Kind
	creds     Credentials
	providers map[llm.Kind]llm.Provider
	normalize normalizer.Func
}

// Option настраивает Orchestrator.
type Option func(*Orchestrator)

// WithDefaultProvider задаёт провайдера на старте. Неизвестный kind игнорируется.
func WithDefaultProvider(kind llm.Kind) Option {
	return func(o *Orchestrator) {
		if kind.Valid() {
			o.current = kind
		}
	}
}

// WithFallbackOrder задаёт порядок перебора провайдеров без ключа у текущего.
// Неизвестные и повторные kind отбрасываются; пустой список игнорируется.
func WithFallbackOrder(kinds ...llm.Kind) Option {
	return func(o *Orchestrator) {
		order := make([]llm.Kind, 0, len(kinds))
		seen := make(map[llm.Kind]bool)
		for _, k := range kinds {
			if k.Valid() && !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			o.fallback = order
		}
	}
}

// WithNormalizer подменяет normalizer.Parse (для тестов).
func WithNormalizer(fn normalizer.Func) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.normalize = fn
		}
	}
}

// New создаёт оркестратор. providers должен содержать клиента для каждого llm.Kinds().
//
// По умолчанию текущий провайдер gemini, порядок fallback: gemini, deepseek.
func New(creds Credentials, providers []llm.Provider, opts ...Option) (*Orchestrator, error) {
	if creds == nil {
		return nil, fmt.Errorf("orchestrator: credentials are required")
	}

	byKind := make(map[llm.Kind]llm.Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		if !p.Kind().Valid() {
			return nil, fmt.Errorf("orchestrator: %w: %q", llm.ErrUnknownProvider, p.Kind())
		}
		byKind[p.Kind()] = p
	}
	for _, k := range llm.Kinds() {
		if _, ok := byKind[k]; !ok {
			return nil, fmt.Errorf("orchestrator: no client for provider %q", k)
		}
	}

	o := &Orchestrator{
		current:   llm.KindGemini,
		fallback:  []llm.Kind{llm.KindGemini, llm.KindDeepSeek},
		creds:     creds,
		providers: byKind,
		normalize: normalizer.Parse,
	}
	for _, opt := range opts {
		opt(o)
	}

	utils.Info("Orchestrator created", "current", o.current, "fallback", o.fallback)
	return o, nil
}

// GenerateApplication генерирует приложение по запросу.
//
// Провайдер: текущий если у него есть ключ, иначе первый с ключом из
// порядка fallback (он становится текущим). Если ключей нет - ErrNoProviderAvailable
// без сетевого вызова. Ошибки провайдера возвращаются как есть, повторов нет.
func (o *Orchestrator) GenerateApplication(ctx context.Context, req llm.Request) (llm.ApplicationRecord, error) {
	provider, err := o.resolve()
	if err != nil {
		utils.Warn("Generate: no provider available")
		return llm.ApplicationRecord{}, err
	}

	utils.Info("Generate: request",
		"provider", provider.Kind(),
		"prompt_len", len(req.Prompt),
		"attachments", len(req.Attachments))

	raw, err := provider.Generate(ctx, req)
	if err != nil {
		utils.Error("Generate: provider failed", "provider", provider.Kind(), "error", err)
		return llm.ApplicationRecord{}, err
	}

	rec := o.normalize(raw)
	utils.Info("Generate: done", "provider", provider.Kind(), "name", rec.Name, "code_len", len(rec.Code))
	return rec, nil
}

// FixApplication просит модель исправить currentCode с учётом описания ошибки.
//
// Возвращает новую запись целиком; сравнение со старым кодом не делается.
func (o *Orchestrator) FixApplication(ctx context.Context, currentCode, errorDescription string) (llm.ApplicationRecord, error) {
	utils.Info("Fix: request", "code_len", len(currentCode), "error", utils.Truncate(errorDescription, 80))
	return o.GenerateApplication(ctx, llm.Request{
		Prompt: llm.BuildFixPrompt(currentCode, errorDescription),
	})
}

// SwitchProvider делает kind текущим. Для неизвестного kind ничего не меняет и
// возвращает false.
func (o *Orchestrator) SwitchProvider(kind llm.Kind) bool {
	if !kind.Valid() {
		utils.Warn("SwitchProvider: unknown provider ignored", "provider", kind)
		return false
	}
	o.mu.Lock()
	o.current = kind
	o.mu.Unlock()
	utils.Info("SwitchProvider", "provider", kind)
	return true
}

// CurrentProvider возвращает текущего провайдера.
func (o *Orchestrator) CurrentProvider() llm.Kind {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

// SetAPIKey сохраняет ключ провайдера (с записью в хранилище).
func (o *Orchestrator) SetAPIKey(kind llm.Kind, key string) error {
	if !kind.Valid() {
		return fmt.Errorf("set api key: %w: %q", llm.ErrUnknownProvider, kind)
	}
	return o.creds.SetAPIKey(kind, key)
}

// HasAPIKey сообщает, настроен ли ключ провайдера.
func (o *Orchestrator) HasAPIKey(kind llm.Kind) bool {
	return o.creds.HasAPIKey(kind)
}

// AnyConfigured - есть ли ключ хотя бы у одного провайдера.
func (o *Orchestrator) AnyConfigured() bool {
	for _, k := range llm.Kinds() {
		if o.creds.HasAPIKey(k) {
			return true
		}
	}
	return false
}

// FallbackOrder возвращает копию порядка перебора.
func (o *Orchestrator) FallbackOrder() []llm.Kind {
	return append([]llm.Kind(nil), o.fallback...)
}

// resolve выбирает провайдера. При fallback выбранный становится текущим
// до сетевого вызова.
func (o *Orchestrator) resolve() (llm.Provider, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.creds.HasAPIKey(o.current) {
		return o.providers[o.current], nil
	}

	for _, k := range o.fallback {
		if o.creds.HasAPIKey(k) {
			utils.Info("Provider fallback", "from", o.current, "to", k)
			o.current = k
			return o.providers[k], nil
		}
	}
	return nil, llm.ErrNoProviderAvailable
}
