package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freyjatree/pkg/config"
	"freyjatree/pkg/di"
)

func TestUpCommand(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "freyjatree_up_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dataDir := filepath.Join(tmpDir, "data")
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Run("bootstrap and config creation", func(t *testing.T) {
		container := di.NewContainer()
		SetContainer(container)

		cfg, err := config.BootstrapConfig(configPath, dataDir)
		require.NoError(t, err)

		assert.True(t, config.ConfigExists(configPath))

		loadedConfig, err := config.LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, dataDir, loadedConfig.DataDir)
		assert.Equal(t, cfg.Security.ClientAPIKey, loadedConfig.Security.ClientAPIKey)
	})

	t.Run("load existing config", func(t *testing.T) {
		existingConfig := &config.Config{
			DataDir: dataDir,
			Port:    9000,
			Bind:    "0.0.0.0",
			Security: config.Security{
				SystemKey:    "existing-system-key",
				SystemAPIKey: "existing-system-api-key",
				ClientAPIKey: "existing-client-api-key",
			},
			Logging: config.Logging{
				Level: "debug",
			},
			Tree: config.Tree{
				Fanout:     64,
				Comparator: "default",
			},
		}

		err := config.SaveConfig(existingConfig, configPath)
		require.NoError(t, err)

		loadedConfig, err := config.LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, existingConfig, loadedConfig)
	})
}

func TestDefaultConfigPath(t *testing.T) {
	path := config.GetDefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, ".config")
	assert.Contains(t, path, "freyjatree")
	assert.Contains(t, path, "config.yaml")
}

func TestConfigOverride(t *testing.T) {
	// Test that command line flags override config values
	tmpDir, err := os.MkdirTemp("", "freyjatree_override_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")

	baseConfig := &config.Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Security: config.Security{
			SystemKey:    "base-system-key",
			SystemAPIKey: "base-system-api-key",
			ClientAPIKey: "base-client-api-key",
		},
		Logging: config.Logging{
			Level: "info",
		},
	}

	err = config.SaveConfig(baseConfig, configPath)
	require.NoError(t, err)

	loadedConfig, err := config.LoadConfig(configPath)
	require.NoError(t, err)

	// Simulate flag overrides
	customDataDir := "/custom/data/dir"
	customPort := 9000
	customBind := "0.0.0.0"

	if customDataDir != "" {
		loadedConfig.DataDir = customDataDir
	}
	if customPort != 8080 {
		loadedConfig.Port = customPort
	}
	if customBind != "127.0.0.1" {
		loadedConfig.Bind = customBind
	}

	assert.Equal(t, customDataDir, loadedConfig.DataDir)
	assert.Equal(t, customPort, loadedConfig.Port)
	assert.Equal(t, customBind, loadedConfig.Bind)
}

func TestUpCommandFlagHandling(t *testing.T) {
	t.Run("default config path", func(t *testing.T) {
		testConfigPath := ""
		if testConfigPath == "" {
			testConfigPath = config.GetDefaultConfigPath()
		}
		assert.NotEmpty(t, testConfigPath)
		assert.Contains(t, testConfigPath, "freyjatree")
	})

	t.Run("custom config path", func(t *testing.T) {
		customPath := "/custom/config/path.yaml"
		testConfigPath := customPath
		if testConfigPath == "" {
			testConfigPath = config.GetDefaultConfigPath()
		}
		assert.Equal(t, customPath, testConfigPath)
	})

	t.Run("flag override logic", func(t *testing.T) {
		cfg := &config.Config{
			DataDir: "./data",
			Port:    8080,
			Bind:    "127.0.0.1",
		}

		dataDir := "/flag/data/dir"
		port := 9000
		bind := "0.0.0.0"

		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if port != 8080 {
			cfg.Port = port
		}
		if bind != "127.0.0.1" {
			cfg.Bind = bind
		}

		assert.Equal(t, "/flag/data/dir", cfg.DataDir)
		assert.Equal(t, 9000, cfg.Port)
		assert.Equal(t, "0.0.0.0", cfg.Bind)
	})

	t.Run("no overrides", func(t *testing.T) {
		cfg := &config.Config{
			DataDir: "/config/data",
			Port:    8080,
			Bind:    "127.0.0.1",
		}

		dataDir := ""
		port := 8080
		bind := "127.0.0.1"

		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if port != 8080 {
			cfg.Port = port
		}
		if bind != "127.0.0.1" {
			cfg.Bind = bind
		}

		assert.Equal(t, "/config/data", cfg.DataDir)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "127.0.0.1", cfg.Bind)
	})
}

func TestUpCommandErrorHandling(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "freyjatree_error_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	t.Run("invalid config file", func(t *testing.T) {
		invalidConfigPath := filepath.Join(tmpDir, "invalid.yaml")
		err := os.WriteFile(invalidConfigPath, []byte("invalid: yaml: content: ["), 0600)
		require.NoError(t, err)

		_, err = config.LoadConfig(invalidConfigPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("config bootstrap failure", func(t *testing.T) {
		invalidPath := "/invalid/path/config.yaml"
		_, err := config.BootstrapConfig(invalidPath, "/some/data")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create config directory")
	})

	t.Run("config save failure", func(t *testing.T) {
		cfg := config.DefaultConfig()
		invalidPath := "/invalid/path/config.yaml"
		err := config.SaveConfig(cfg, invalidPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create config directory")
	})
}
