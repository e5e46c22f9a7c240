// Package gemini реализует llm.Provider для Google Gemini (generateContent API).
//
// Аутентификация - ключ в query параметре ?key=.
// Инструкция и промпт склеиваются в единственную текстовую часть запроса.
// Один вызов Generate = ровно один HTTP запрос: без retry и без streaming.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/utils"
)

// Значения по умолчанию для Gemini.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

// Client реализует интерфейс llm.Provider для Gemini.
type Client struct {
	keys   llm.CredentialSource
	opts   llm.GenerateOptions
	client *http.Client
}

// NewClient создает Gemini клиент. timeout <= 0 - без таймаута.
func NewClient(keys llm.CredentialSource, timeout time.Duration, opts ...llm.GenerateOption) *Client {
	defaults := llm.GenerateOptions{
		Model:       DefaultModel,
		Temperature: llm.DefaultTemperature,
		MaxTokens:   llm.DefaultMaxTokens,
		BaseURL:     DefaultBaseURL,
	}

	return &Client{
		keys:   keys,
		opts:   llm.ApplyOptions(defaults, opts...),
		client: &http.Client{Timeout: timeout},
	}
}

// Kind возвращает llm.KindGemini.
func (c *Client) Kind() llm.Kind {
	return llm.KindGemini
}

// generateRequest - тело запроса generateContent.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// generateResponse - интересующая нас часть конверта ответа.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate вызывает generateContent и возвращает текст первой части первого кандидата.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	key := c.keys.APIKey(llm.KindGemini)
	if key == "" {
		return "", llm.MissingCredential(llm.KindGemini)
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("gemini encode: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(key), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	utils.Debug("LLM request started",
		"provider", llm.KindGemini,
		"model", c.opts.Model,
		"attachments", len(req.Attachments))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		err = c.redactKey(err, key)
		utils.Error("LLM API request failed",
			"provider", llm.KindGemini,
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds())
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Тело не интерпретируем, только дочитываем для переиспользования соединения
		_, _ = io.Copy(io.Discard, resp.Body)
		utils.Error("LLM API returned error status",
			"provider", llm.KindGemini,
			"status", resp.StatusCode,
			"duration_ms", time.Since(startTime).Milliseconds())
		return "", &llm.HTTPError{Provider: llm.KindGemini, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini read: %w", err)
	}

	text, err := extractText(raw)
	if err != nil {
		return "", err
	}

	utils.Info("LLM response received",
		"provider", llm.KindGemini,
		"model", c.opts.Model,
		"content_length", len(text),
		"duration_ms", time.Since(startTime).Milliseconds())

	return text, nil
}

// endpoint: {base}/models/{model}:generateContent?key={key}
func (c *Client) endpoint(key string) string {
	base := strings.TrimRight(c.opts.BaseURL, "/")
	q := url.Values{}
	q.Set("key", key)
	return fmt.Sprintf("%s/models/%s:generateContent?%s", base, url.PathEscape(c.opts.Model), q.Encode())
}

// redactKey заменяет ключ в URL транспортной ошибки на замаскированный.
// *url.Error печатает полный адрес запроса, а ключ Gemini живёт в query.
func (c *Client) redactKey(err error, key string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = c.endpoint(utils.MaskSecret(key))
		return err
	}
	if !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, utils.MaskSecret(key)))
}

// buildRequest склеивает инструкцию и промпт в одну часть.
func (c *Client) buildRequest(req llm.Request) generateRequest {
	text := llm.SystemInstruction + "\n\nUser request: " + llm.BuildUserPrompt(req)
	return generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.opts.Temperature,
			MaxOutputTokens: c.opts.MaxTokens,
		},
	}
}

// extractText: candidates[0].content.parts[0].text
func extractText(raw []byte) (string, error) {
	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("gemini decode: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", llm.ErrEmptyResponse)
	}
	parts := gr.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: candidate has no parts", llm.ErrEmptyResponse)
	}
	return parts[0].Text, nil
}
