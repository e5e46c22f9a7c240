package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/llm/deepseek"
	"github.com/ilkoid/appforge/pkg/llm/gemini"
)

// DefaultPath - где CLI ищет конфиг, если путь не указан.
const DefaultPath = "config.yaml"

// AppConfig - корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Providers    map[string]ProviderDef `yaml:"providers"` // Ключ - llm.Kind ("deepseek", "gemini")
	Orchestrator OrchestratorConfig     `yaml:"orchestrator"`
	Storage      StorageConfig          `yaml:"storage"`
	S3           S3Config               `yaml:"s3"`
	App          AppSpecific            `yaml:"app"`
}

// ProviderDef - параметры клиента одного провайдера.
type ProviderDef struct {
	ModelName   string        `yaml:"model_name"` // Реальное имя в API
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"` // 0 - значение по умолчанию (0.7)
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`     // "60s", "2m"; 0 - без таймаута
	RateLimit   int           `yaml:"rate_limit"`  // Запросов в минуту, 0 - без лимита
	BurstLimit  int           `yaml:"burst_limit"` // Burst для rate limiter
	APIKeyEnv   string        `yaml:"api_key_env"` // Переменная окружения с ключом
}

// OrchestratorConfig - выбор провайдера.
type OrchestratorConfig struct {
	DefaultProvider string   `yaml:"default_provider"`
	FallbackOrder   []string `yaml:"fallback_order"`
}

// StorageConfig - локальное хранилище ключей и библиотеки приложений.
type StorageConfig struct {
	Path string `yaml:"path"` // SQLite файл
}

// S3Config - настройки объектного хранилища для публикации.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled - публикация включена только при заданных endpoint и bucket.
func (s S3Config) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// AppSpecific - общие настройки приложения.
type AppSpecific struct {
	Debug     bool   `yaml:"debug"`
	ExportDir string `yaml:"export_dir"` // Куда /export пишет HTML
	LogDir    string `yaml:"log_dir"`
}

// GetDefaults возвращает копию с заполненными незаданными полями для kind.
func (p ProviderDef) GetDefaults(kind llm.Kind) ProviderDef {
	result := p

	switch kind {
	case llm.KindDeepSeek:
		if result.ModelName == "" {
			result.ModelName = deepseek.DefaultModel
		}
		if result.BaseURL == "" {
			result.BaseURL = deepseek.DefaultBaseURL
		}
		if result.APIKeyEnv == "" {
			result.APIKeyEnv = "DEEPSEEK_API_KEY"
		}
	case llm.KindGemini:
		if result.ModelName == "" {
			result.ModelName = gemini.DefaultModel
		}
		if result.BaseURL == "" {
			result.BaseURL = gemini.DefaultBaseURL
		}
		if result.APIKeyEnv == "" {
			result.APIKeyEnv = "GEMINI_API_KEY"
		}
	}

	if result.Temperature == 0 {
		result.Temperature = llm.DefaultTemperature
	}
	if result.MaxTokens == 0 {
		result.MaxTokens = llm.DefaultMaxTokens
	}
	if result.RateLimit > 0 && result.BurstLimit == 0 {
		result.BurstLimit = 1
	}
	return result
}

// Default возвращает конфигурацию без файла: оба провайдера со значениями
// по умолчанию, gemini первым.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadEnv загружает .env файлы (по умолчанию ".env") в окружение.
// Отсутствующий файл не ошибка; уже заданные переменные не перезаписываются.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Подставляем переменные окружения (${VAR} или $VAR).
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	return parse([]byte(contentWithEnv))
}

// LoadOrDefault загружает path; пустой path означает DefaultPath,
// а отсутствие файла по умолчанию - Default().
func LoadOrDefault(path string) (*AppConfig, error) {
	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			return Default(), nil
		}
		path = DefaultPath
	}
	return Load(path)
}

func parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderDef)
	}
	for _, k := range llm.Kinds() {
		c.Providers[string(k)] = c.Providers[string(k)].GetDefaults(k)
	}
	if c.Orchestrator.DefaultProvider == "" {
		c.Orchestrator.DefaultProvider = string(llm.KindGemini)
	}
	if len(c.Orchestrator.FallbackOrder) == 0 {
		c.Orchestrator.FallbackOrder = []string{string(llm.KindGemini), string(llm.KindDeepSeek)}
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "appforge.db"
	}
	if c.App.ExportDir == "" {
		c.App.ExportDir = "generated"
	}
	if c.App.LogDir == "" {
		c.App.LogDir = "logs"
	}
}

// validate проверяет что все упомянутые провайдеры известны.
func (c *AppConfig) validate() error {
	for name, def := range c.Providers {
		if _, ok := llm.ParseKind(name); !ok {
			return fmt.Errorf("providers.%s: %w", name, llm.ErrUnknownProvider)
		}
		if def.Temperature < 0 || def.Temperature > 2 {
			return fmt.Errorf("providers.%s.temperature must be within [0, 2]", name)
		}
		if def.MaxTokens < 0 || def.RateLimit < 0 || def.BurstLimit < 0 {
			return fmt.Errorf("providers.%s: negative limits are not allowed", name)
		}
	}
	if p := c.Orchestrator.DefaultProvider; p != "" {
		if _, ok := llm.ParseKind(p); !ok {
			return fmt.Errorf("orchestrator.default_provider %q: %w", p, llm.ErrUnknownProvider)
		}
	}
	for _, p := range c.Orchestrator.FallbackOrder {
		if _, ok := llm.ParseKind(p); !ok {
			return fmt.Errorf("orchestrator.fallback_order %q: %w", p, llm.ErrUnknownProvider)
		}
	}
	return nil
}

// Helper методы для удобства доступа (Syntactic sugar)

// Provider возвращает конфигурацию провайдера с заполненными умолчаниями.
func (c *AppConfig) Provider(kind llm.Kind) ProviderDef {
	return c.Providers[string(kind)].GetDefaults(kind)
}

// DefaultKind возвращает провайдера по умолчанию.
func (c *AppConfig) DefaultKind() llm.Kind {
	if k, ok := llm.ParseKind(c.Orchestrator.DefaultProvider); ok {
		return k
	}
	return llm.KindGemini
}

// FallbackKinds возвращает порядок fallback как []llm.Kind.
func (c *AppConfig) FallbackKinds() []llm.Kind {
	kinds := make([]llm.Kind, 0, len(c.Orchestrator.FallbackOrder))
	for _, p := range c.Orchestrator.FallbackOrder {
		if k, ok := llm.ParseKind(p); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// EnvNames возвращает имена переменных окружения с ключами по провайдерам.
func (c *AppConfig) EnvNames() map[llm.Kind]string {
	names := make(map[llm.Kind]string, len(llm.Kinds()))
	for _, k := range llm.Kinds() {
		names[k] = c.Provider(k).APIKeyEnv
	}
	return names
}
