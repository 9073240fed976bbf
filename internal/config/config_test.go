package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, []string{".pdf", ".docx", ".txt"}, cfg.Docs.Extensions)
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[app]
port = 9090

[rag]
chunk_size = 500
top_k = 5

[store]
backend = "mysql"
`), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, "mysql", cfg.Store.Backend)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap, "unset keys keep their defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[rag]
top_k = 5
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RAG_TOP_K", "7")
	t.Setenv("LLM_MODEL", "some-model")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RAG.TopK)
	assert.Equal(t, "some-model", cfg.LLM.Model)
}

func TestEnvInvalidIntKeepsFallback(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "rag"
	cfg.MySQL.Password = "secret"
	cfg.MySQL.DB = "ragdb"
	assert.Equal(t,
		"rag:secret@tcp(127.0.0.1:3306)/ragdb?parseTime=true&loc=Local&charset=utf8mb4",
		cfg.MySQLDSN())
}
