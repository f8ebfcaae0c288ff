package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://play.ezygamers.com/", cfg.TargetURL)
	assert.Equal(t, "artifacts", cfg.ArtifactsDir)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, filepath.Join(".gauntlet", "gauntlet.db"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(".gauntlet", "knowledge.yaml"), cfg.KnowledgePath)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesLayerOverDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ConfigDirName), 0755))
	content := `
target_url: "http://localhost:3000/"
concurrency: 2
headless: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigDirName, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000/", cfg.TargetURL)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "artifacts", cfg.ArtifactsDir, "unset fields keep their defaults")
	assert.Equal(t, ":8000", cfg.ListenAddr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ConfigDirName), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigDirName, ConfigFileName), []byte("{not yaml"), 0644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.TargetURL = "http://staging.game.test/"
	cfg.Concurrency = 3
	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
