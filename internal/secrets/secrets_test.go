// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idea-engine/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, FastKeyFile, "  sk-abc123  \n")
				writeFile(t, dir, DeepKeyFile, "ak_xyz789")
				writeFile(t, dir, ResearchKeyFile, "pplx-1\n")
				return dir
			},
			want: map[string]string{
				FastKeyFile:     "sk-abc123",
				DeepKeyFile:     "ak_xyz789",
				ResearchKeyFile: "pplx-1",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, DeepKeyFile, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				DeepKeyFile: "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, ResearchKeyFile, "pplx-real")
				return dir
			},
			want: map[string]string{
				ResearchKeyFile: "pplx-real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, DeepKeyFile, "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				DeepKeyFile: "ak_123",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir, nil)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	log, hook := logtest.NewNullLogger()
	got, err := Load(dir, log)
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
	if os.Geteuid() != 0 {
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, "secrets.read.failed", hook.LastEntry().Message)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, dir, ".env", "IDEA_ENGINE_TEST_FROM_FILE=from-file\nIDEA_ENGINE_TEST_PRESET=from-file\n")

	t.Setenv("IDEA_ENGINE_TEST_PRESET", "preset")
	t.Setenv("IDEA_ENGINE_TEST_FROM_FILE", "")
	os.Unsetenv("IDEA_ENGINE_TEST_FROM_FILE")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("IDEA_ENGINE_TEST_FROM_FILE"))
	assert.Equal(t, "preset", os.Getenv("IDEA_ENGINE_TEST_PRESET"), "existing variables win")

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
}

func TestApplyProviderKeys(t *testing.T) {
	t.Setenv(ResearchKeyEnv, "from-env")
	t.Setenv(DeepKeyEnv, "unused-env")

	cfg := types.ReasoningConfig{
		Fast: types.ProviderConfig{APIKey: "configured"},
	}
	ApplyProviderKeys(&cfg, map[string]string{
		FastKeyFile: "ignored",
		DeepKeyFile: "from-file",
	})

	assert.Equal(t, "configured", cfg.Fast.APIKey)
	assert.Equal(t, "from-file", cfg.Deep.APIKey)
	assert.Equal(t, "from-env", cfg.Research.APIKey)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
