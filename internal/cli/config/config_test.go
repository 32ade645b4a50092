package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Origin(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		expected      string
		shouldError   bool
		errorContains string
	}{
		{
			name:     "full https URL",
			url:      "https://lend.example.com",
			expected: "https://lend.example.com",
		},
		{
			name:     "trailing path is dropped",
			url:      "https://lend.example.com/dashboard/",
			expected: "https://lend.example.com",
		},
		{
			name:     "bare host defaults to https",
			url:      "lend.example.com",
			expected: "https://lend.example.com",
		},
		{
			name:     "http with port",
			url:      "http://127.0.0.1:8080",
			expected: "http://127.0.0.1:8080",
		},
		{
			name:          "empty URL",
			url:           "  ",
			shouldError:   true,
			errorContains: "server URL is empty",
		},
		{
			name:          "unsupported scheme",
			url:           "ftp://lend.example.com",
			shouldError:   true,
			errorContains: "unsupported scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := Server{URL: tt.url, Alias: "test"}
			origin, err := server.Origin()

			if tt.shouldError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, origin)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := &Config{
		Servers: []Server{
			{URL: "https://lend.example.com", Alias: "production"},
			{URL: "http://localhost:8080", Alias: "local"},
		},
	}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("servers: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestFindConfigFile_SearchesParents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(filepath.Join(root, ConfigFileName), DefaultConfig()))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(originalDir)

	found, err := FindConfigFile()
	require.NoError(t, err)

	// macOS temp dirs resolve through /private
	expected, _ := filepath.EvalSymlinks(filepath.Join(root, ConfigFileName))
	actual, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, expected, actual)
}

func TestConfig_ServerLookup(t *testing.T) {
	cfg := &Config{
		Servers: []Server{
			{URL: "https://a.example.com", Alias: "a"},
			{URL: "https://b.example.com", Alias: "b"},
		},
	}

	server, err := cfg.GetServerByAlias("b")
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com", server.URL)

	_, err = cfg.GetServerByAlias("missing")
	assert.Error(t, err)

	def, err := cfg.GetDefaultServer()
	require.NoError(t, err)
	assert.Equal(t, "a", def.Alias)

	_, err = (&Config{}).GetDefaultServer()
	assert.Error(t, err)
}
