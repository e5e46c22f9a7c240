// Package app собирает компоненты приложения для разных точек входа (TUI, CLI).
//
// Пакет следует правилам из dev_manifest.md:
//   - Работает через llm.Provider интерфейс (Правило 4)
//   - Все ошибки возвращаются, никаких panic (Правило 7)
package app

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ilkoid/appforge/pkg/config"
	"github.com/ilkoid/appforge/pkg/credentials"
	"github.com/ilkoid/appforge/pkg/factory"
	"github.com/ilkoid/appforge/pkg/library"
	"github.com/ilkoid/appforge/pkg/orchestrator"
	"github.com/ilkoid/appforge/pkg/s3storage"
	"github.com/ilkoid/appforge/pkg/storage"
	"github.com/ilkoid/appforge/pkg/utils"
)

// Components содержит все компоненты приложения.
//
// Одна и та же сборка используется TUI и CLI, чтобы не дублировать
// код инициализации.
type Components struct {
	Config       *config.AppConfig
	ConfigPath   string // "" если использован config.Default()
	KV           storage.KeyValue
	Credentials  *credentials.Store
	Orchestrator *orchestrator.Orchestrator
	Library      *library.Library
	Publisher    *s3storage.Client // nil если s3 не настроен
	LogPath      string            // "" если лог не открыт
}

// Options - параметры сборки.
type Options struct {
	// ConfigFlag - значение флага -config, если указан
	ConfigFlag string
	// Ephemeral - хранить ключи и библиотеку только в памяти
	Ephemeral bool
	// Logging - открыть файловый лог до сборки компонентов (каталог и debug из конфига)
	Logging bool
}

// ConfigPathFinder определяет стратегию поиска пути к config.yaml.
type ConfigPathFinder interface {
	FindConfigPath() string
}

// DefaultConfigPathFinder реализует стандартную стратегию поиска config.yaml.
//
// Порядок поиска:
// 1. Флаг -config (если указан)
// 2. Текущая директория (./config.yaml)
// 3. Директория бинарника
//
// Пустая строка - файл не найден, используется config.Default().
type DefaultConfigPathFinder struct {
	ConfigFlag string
}

// FindConfigPath находит путь к config.yaml.
func (f *DefaultConfigPathFinder) FindConfigPath() string {
	if f.ConfigFlag != "" {
		return resolveAbsPath(f.ConfigFlag)
	}

	if _, err := os.Stat(config.DefaultPath); err == nil {
		return resolveAbsPath(config.DefaultPath)
	}

	if execPath, err := os.Executable(); err == nil {
		cfgPath := filepath.Join(filepath.Dir(execPath), config.DefaultPath)
		if _, err := os.Stat(cfgPath); err == nil {
			return cfgPath
		}
	}
	return ""
}

func resolveAbsPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// InitializeConfig загружает .env и конфигурацию.
func InitializeConfig(finder ConfigPathFinder) (*config.AppConfig, string, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, "", err
	}

	cfgPath := finder.FindConfigPath()
	if cfgPath == "" {
		return config.Default(), "", nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}
	return cfg, cfgPath, nil
}

// Initialize собирает все компоненты.
//
// Порядок: конфиг → лог (если opts.Logging) → хранилище → ключи (+ENV) →
// провайдеры → оркестратор → библиотека → S3 (если настроен).
// При ошибке уже открытое хранилище закрывается.
func Initialize(opts Options) (*Components, error) {
	cfg, cfgPath, err := InitializeConfig(&DefaultConfigPathFinder{ConfigFlag: opts.ConfigFlag})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var logPath string
	if opts.Logging {
		// Ошибка лога не фатальна: работаем без файла
		logPath, err = utils.InitLogger(cfg.App.LogDir, cfg.App.Debug)
		if err != nil {
			log.Printf("Warning: failed to init logger: %v", err)
		}
	}

	c, err := Build(cfg, cfgPath, opts.Ephemeral)
	if err != nil {
		return nil, err
	}
	c.LogPath = logPath
	return c, nil
}

// Build собирает компоненты из готовой конфигурации.
func Build(cfg *config.AppConfig, cfgPath string, ephemeral bool) (*Components, error) {
	kv, err := openStorage(cfg, ephemeral)
	if err != nil {
		return nil, err
	}

	c, err := build(cfg, kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	c.ConfigPath = cfgPath
	return c, nil
}

func openStorage(cfg *config.AppConfig, ephemeral bool) (storage.KeyValue, error) {
	if ephemeral {
		utils.Info("Storage: in-memory")
		return storage.NewMemory(), nil
	}
	kv, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	utils.Info("Storage: sqlite", "path", cfg.Storage.Path)
	return kv, nil
}

func build(cfg *config.AppConfig, kv storage.KeyValue) (*Components, error) {
	creds, err := credentials.NewStore(kv)
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}
	if seeded := creds.SeedFromEnv(cfg.EnvNames()); len(seeded) > 0 {
		utils.Info("API keys taken from environment", "providers", seeded)
	}

	providers, err := factory.NewProviders(cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}

	orch, err := orchestrator.New(creds, providers,
		orchestrator.WithDefaultProvider(cfg.DefaultKind()),
		orchestrator.WithFallbackOrder(cfg.FallbackKinds()...),
	)
	if err != nil {
		return nil, err
	}

	lib, err := library.Open(kv)
	if err != nil {
		return nil, err
	}

	c := &Components{
		Config:       cfg,
		KV:           kv,
		Credentials:  creds,
		Orchestrator: orch,
		Library:      lib,
	}

	if cfg.S3.Enabled() {
		pub, err := s3storage.New(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		c.Publisher = pub
		utils.Info("S3 publishing enabled", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
	}

	return c, nil
}

// Close освобождает хранилище.
func (c *Components) Close() error {
	if c == nil || c.KV == nil {
		return nil
	}
	return c.KV.Close()
}

// LogKeysInfo логирует статус ключей (маскированные).
func (c *Components) LogKeysInfo() {
	for _, k := range c.Orchestrator.FallbackOrder() {
		utils.Info("API key status", "provider", k, "key", utils.MaskSecret(c.Credentials.APIKey(k)))
	}
	if c.Config.S3.Enabled() {
		utils.Info("S3 keys", "access_key", utils.MaskSecret(c.Config.S3.AccessKey),
			"secret_key", utils.MaskSecret(c.Config.S3.SecretKey))
	}
}
