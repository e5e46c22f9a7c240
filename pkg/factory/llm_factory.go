package factory

import (
	"fmt"

	"github.com/ilkoid/appforge/pkg/config"
	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/llm/deepseek"
	"github.com/ilkoid/appforge/pkg/llm/gemini"
)

// NewProvider создает провайдера по kind и его конфигурации.
//
// Клиент оборачивается локальным rate limiter если def.RateLimit > 0.
func NewProvider(kind llm.Kind, def config.ProviderDef, keys llm.CredentialSource) (llm.Provider, error) {
	def = def.GetDefaults(kind)
	opts := []llm.GenerateOption{
		llm.WithModel(def.ModelName),
		llm.WithBaseURL(def.BaseURL),
		llm.WithTemperature(def.Temperature),
		llm.WithMaxTokens(def.MaxTokens),
	}

	var p llm.Provider
	switch kind {
	case llm.KindDeepSeek:
		p = deepseek.NewClient(keys, def.Timeout, opts...)
	case llm.KindGemini:
		p = gemini.NewClient(keys, def.Timeout, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, kind)
	}

	return llm.NewRateLimited(p, def.RateLimit, def.BurstLimit), nil
}

// NewProviders создает клиентов для всех llm.Kinds().
func NewProviders(cfg *config.AppConfig, keys llm.CredentialSource) ([]llm.Provider, error) {
	providers := make([]llm.Provider, 0, len(llm.Kinds()))
	for _, k := range llm.Kinds() {
		p, err := NewProvider(k, cfg.Provider(k), keys)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}
