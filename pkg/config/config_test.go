package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/appforge/pkg/llm"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	gm := cfg.Provider(llm.KindGemini)
	assert.Equal(t, "gemini-1.5-flash", gm.ModelName)
	assert.Equal(t, 0.7, gm.Temperature)
	assert.Equal(t, 4000, gm.MaxTokens)
	assert.Equal(t, "GEMINI_API_KEY", gm.APIKeyEnv)

	ds := cfg.Provider(llm.KindDeepSeek)
	assert.Equal(t, "deepseek-chat", ds.ModelName)
	assert.Equal(t, "https://api.deepseek.com", ds.BaseURL)

	assert.Equal(t, llm.KindGemini, cfg.DefaultKind())
	assert.Equal(t, []llm.Kind{llm.KindGemini, llm.KindDeepSeek}, cfg.FallbackKinds())
	assert.Equal(t, "appforge.db", cfg.Storage.Path)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoad_ExpandsEnvAndKeepsOverrides(t *testing.T) {
	t.Setenv("APPFORGE_TEST_BUCKET", "apps")
	path := writeFile(t, "config.yaml", `
providers:
  deepseek:
    model_name: deepseek-coder
    temperature: 0.2
    timeout: 45s
    rate_limit: 10
orchestrator:
  default_provider: deepseek
  fallback_order: [deepseek, gemini]
storage:
  path: /tmp/forge.db
s3:
  endpoint: localhost:9000
  bucket: ${APPFORGE_TEST_BUCKET}
app:
  debug: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	ds := cfg.Provider(llm.KindDeepSeek)
	assert.Equal(t, "deepseek-coder", ds.ModelName)
	assert.Equal(t, 0.2, ds.Temperature)
	assert.Equal(t, 45*time.Second, ds.Timeout)
	assert.Equal(t, 10, ds.RateLimit)
	assert.Equal(t, 1, ds.BurstLimit)
	assert.Equal(t, 4000, ds.MaxTokens)

	assert.Equal(t, "gemini-1.5-flash", cfg.Provider(llm.KindGemini).ModelName)
	assert.Equal(t, llm.KindDeepSeek, cfg.DefaultKind())
	assert.Equal(t, []llm.Kind{llm.KindDeepSeek, llm.KindGemini}, cfg.FallbackKinds())
	assert.Equal(t, "/tmp/forge.db", cfg.Storage.Path)
	assert.Equal(t, "apps", cfg.S3.Bucket)
	assert.True(t, cfg.S3.Enabled())
	assert.True(t, cfg.App.Debug)
}

func TestLoad_Validation(t *testing.T) {
	tests := map[string]string{
		"unknown provider section": "providers:\n  openai:\n    model_name: gpt\n",
		"unknown default":          "orchestrator:\n  default_provider: claude\n",
		"unknown fallback":         "orchestrator:\n  fallback_order: [gemini, mistral]\n",
		"bad temperature":          "providers:\n  gemini:\n    temperature: 3\n",
		"negative limit":           "providers:\n  gemini:\n    rate_limit: -1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	testChdir(t, t.TempDir())

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, llm.KindGemini, cfg.DefaultKind())
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, ".env", "APPFORGE_TEST_ENV_KEY=from-dotenv\n")
	t.Setenv("APPFORGE_TEST_ENV_KEY", "")
	os.Unsetenv("APPFORGE_TEST_ENV_KEY")

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("APPFORGE_TEST_ENV_KEY"))
}

func TestEnvNames(t *testing.T) {
	path := writeFile(t, "config.yaml", "providers:\n  gemini:\n    api_key_env: MY_GEMINI\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	names := cfg.EnvNames()
	assert.Equal(t, "MY_GEMINI", names[llm.KindGemini])
	assert.Equal(t, "DEEPSEEK_API_KEY", names[llm.KindDeepSeek])
}

// testChdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func testChdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
