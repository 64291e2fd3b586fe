// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
				writeFile(t, dir, "tavily-api-key", "  tvly_abc123  \n")
				writeFile(t, dir, "semantic-scholar-api-key", "sk_xyz789")
				writeFile(t, dir, "anthropic-api-key-1", "ak_one\n")
				return dir
			},
			want: map[string]string{
				"tavily-api-key":           "tvly_abc123",
				"semantic-scholar-api-key": "sk_xyz789",
				"anthropic-api-key-1":      "ak_one",
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
				writeFile(t, dir, "anthropic-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "tavily-api-key", "tvly_real")
				return dir
			},
			want: map[string]string{
				"tavily-api-key": "tvly_real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "ak_123",
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
			got, err := Load(dir)
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
	if os.Geteuid() == 0 {
		t.Skip("root can read mode 0000 files")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestKeys(t *testing.T) {
	for _, n := range []string{"ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY_1", "ANTHROPIC_API_KEY_2", "ANTHROPIC_API_KEY_3", "ANTHROPIC_API_KEY_4", "ANTHROPIC_API_KEY_5"} {
		t.Setenv(n, "")
	}

	tests := []struct {
		name    string
		secrets map[string]string
		env     map[string]string
		want    []string
	}{
		{
			name: "no credentials",
			want: nil,
		},
		{
			name:    "file keys in rotation order",
			secrets: map[string]string{"anthropic-api-key-2": "k2", "anthropic-api-key": "k0", "anthropic-api-key-1": "k1"},
			want:    []string{"k0", "k1", "k2"},
		},
		{
			name:    "environment fills gaps",
			secrets: map[string]string{"anthropic-api-key": "k0"},
			env:     map[string]string{"ANTHROPIC_API_KEY_3": "env3"},
			want:    []string{"k0", "env3"},
		},
		{
			name:    "file wins over environment",
			secrets: map[string]string{"anthropic-api-key": "file"},
			env:     map[string]string{"ANTHROPIC_API_KEY": "env"},
			want:    []string{"file"},
		},
		{
			name:    "duplicates dropped",
			secrets: map[string]string{"anthropic-api-key": "same", "anthropic-api-key-1": "same", "anthropic-api-key-5": "other"},
			want:    []string{"same", "other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, Keys(tt.secrets, AnthropicAPIKey))
		})
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "TAVILY_API_KEY", EnvName(TavilyAPIKey))
	assert.Equal(t, "ANTHROPIC_API_KEY_4", EnvName("anthropic-api-key-4"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
