// Package deepseek реализует llm.Provider для DeepSeek (OpenAI-совместимый API).
//
// Аутентификация - bearer токен в заголовке Authorization.
// Транспорт - github.com/sashabaranov/go-openai с custom BaseURL.
// Один вызов Generate = ровно один HTTP запрос: без retry и без streaming.
package deepseek

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

// Значения по умолчанию для DeepSeek.
const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"
)

// Client реализует интерфейс llm.Provider для DeepSeek.
type Client struct {
	keys       llm.CredentialSource
	opts       llm.GenerateOptions
	httpClient *http.Client
}

// NewClient создает DeepSeek клиент.
//
// Ключ не передаётся в конструктор: он читается из keys на каждом вызове,
// чтобы смена ключа в настройках действовала немедленно.
// timeout <= 0 означает отсутствие таймаута на уровне HTTP клиента.
func NewClient(keys llm.CredentialSource, timeout time.Duration, opts ...llm.GenerateOption) *Client {
	defaults := llm.GenerateOptions{
		Model:       DefaultModel,
		Temperature: llm.DefaultTemperature,
		MaxTokens:   llm.DefaultMaxTokens,
		BaseURL:     DefaultBaseURL,
	}

	return &Client{
		keys:       keys,
		opts:       llm.ApplyOptions(defaults, opts...),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Kind возвращает llm.KindDeepSeek.
func (c *Client) Kind() llm.Kind {
	return llm.KindDeepSeek
}

// Generate выполняет chat completion и возвращает content первого choice.
//
// Алгоритм:
//  1. Проверяет наличие ключа (без ключа - ErrMissingCredential, сети нет)
//  2. Собирает запрос: system = llm.SystemInstruction, user = промпт со стилем и файлами
//  3. Вызывает API
//  4. Не-2xx → *llm.HTTPError, тело не разбирается
//  5. Возвращает choices[0].message.content без изменений
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	key := c.keys.APIKey(llm.KindDeepSeek)
	if key == "" {
		return "", llm.MissingCredential(llm.KindDeepSeek)
	}

	startTime := time.Now()
	utils.Debug("LLM request started",
		"provider", llm.KindDeepSeek,
		"model", c.opts.Model,
		"attachments", len(req.Attachments))

	resp, err := c.api(key).CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		mapped := mapError(err)
		utils.Error("LLM API request failed",
			"provider", llm.KindDeepSeek,
			"error", mapped,
			"duration_ms", time.Since(startTime).Milliseconds())
		return "", mapped
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}

	utils.Info("LLM response received",
		"provider", llm.KindDeepSeek,
		"model", c.opts.Model,
		"content_length", len(text),
		"duration_ms", time.Since(startTime).Milliseconds())

	return text, nil
}

// api собирает SDK клиент под текущий ключ.
func (c *Client) api(key string) *openai.Client {
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = c.opts.BaseURL
	cfg.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(cfg)
}

// buildRequest конвертирует llm.Request в формат OpenAI SDK.
func (c *Client) buildRequest(req llm.Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llm.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: llm.BuildUserPrompt(req)},
		},
		Temperature: float32(c.opts.Temperature),
		MaxTokens:   c.opts.MaxTokens,
	}
}

// extractText достаёт текст из конверта ответа.
func extractText(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", llm.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// mapError переводит ошибки SDK в таксономию llm.
//
// SDK возвращает *openai.APIError если тело ответа похоже на OpenAI ошибку,
// иначе *openai.RequestError. Оба несут HTTP статус.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &llm.HTTPError{Provider: llm.KindDeepSeek, StatusCode: apiErr.HTTPStatusCode}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &llm.HTTPError{Provider: llm.KindDeepSeek, StatusCode: reqErr.HTTPStatusCode}
	}

	return fmt.Errorf("deepseek request: %w", err)
}
