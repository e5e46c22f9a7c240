// Package llm provides options pattern for LLM generation parameters.
//
// Values come from config.yaml at client construction time; the provider
// clients never change them per request.
package llm

// Defaults shared by both providers.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
)

// GenerateOptions holds parameters for LLM generation.
type GenerateOptions struct {
	// Model is the model identifier (e.g., "deepseek-chat", "gemini-1.5-flash")
	Model string

	// Temperature controls randomness in responses (0.0 = deterministic, 1.0 = random)
	Temperature float64

	// MaxTokens limits the response length
	MaxTokens int

	// BaseURL overrides the provider endpoint (tests, proxies, compatible gateways)
	BaseURL string
}

// GenerateOption is a functional option for configuring GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithModel sets the model for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithTemperature sets the temperature for generation.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens sets the maximum tokens for generation.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) GenerateOption {
	return func(o *GenerateOptions) {
		o.BaseURL = url
	}
}

// ApplyOptions returns defaults overridden by opts. Zero values in opts
// are ignored so an empty config section keeps the defaults.
func ApplyOptions(defaults GenerateOptions, opts ...GenerateOption) GenerateOptions {
	var o GenerateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Model == "" {
		o.Model = defaults.Model
	}
	if o.Temperature == 0 {
		o.Temperature = defaults.Temperature
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = defaults.MaxTokens
	}
	if o.BaseURL == "" {
		o.BaseURL = defaults.BaseURL
	}
	return o
}
