package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runKeyValueSuite - общие проверки для всех реализаций.
func runKeyValueSuite(t *testing.T, kv KeyValue) {
	t.Helper()

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("gemini_api_key", "g1"))
	v, ok, err := kv.Get("gemini_api_key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "g1", v)

	// Перезапись
	require.NoError(t, kv.Set("gemini_api_key", "g2"))
	v, _, _ = kv.Get("gemini_api_key")
	assert.Equal(t, "g2", v)

	// Пустое значение - это значение, а не отсутствие слота
	require.NoError(t, kv.Set("deepseek_api_key", ""))
	v, ok, err = kv.Get("deepseek_api_key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", v)

	require.NoError(t, kv.Delete("gemini_api_key"))
	require.NoError(t, kv.Delete("gemini_api_key"), "deleting a missing key is not an error")
	_, ok, _ = kv.Get("gemini_api_key")
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	runKeyValueSuite(t, NewMemory())
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Set("k", "v"), ErrClosed)
	_, _, err := m.Get("k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	runKeyValueSuite(t, s)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "appforge.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("deepseek_api_key", "sk-1"))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get("deepseek_api_key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sk-1", v)
}
