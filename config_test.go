package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		bind:              "127.0.0.1",
		defaultDifficulty: 9,
		difficulties:      []int{3, 9},
		port:              8080,
		seed:              1,
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "cert without key",
			mutate:  func(c *Config) { c.tlsCert = "cert.pem" },
			wantErr: "--tls-cert and --tls-key",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.port = 70000 },
			wantErr: "invalid port",
		},
		{
			name:    "no difficulties",
			mutate:  func(c *Config) { c.difficulties = nil },
			wantErr: "at least one difficulty",
		},
		{
			name:    "zero difficulty",
			mutate:  func(c *Config) { c.difficulties = []int{0, 9} },
			wantErr: "invalid difficulty",
		},
		{
			name:    "huge difficulty",
			mutate:  func(c *Config) { c.difficulties = []int{3, maxDifficulty + 1} },
			wantErr: "invalid difficulty",
		},
		{
			name:    "default not offered",
			mutate:  func(c *Config) { c.defaultDifficulty = 4 },
			wantErr: "default difficulty 4",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(cfg)

			err := cfg.validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewCmdDefaults(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.Flags().Parse(nil))

	assert.Equal(t, "0.0.0.0", cfg.bind)
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, []int{3, 9}, cfg.difficulties)
	assert.Equal(t, 9, cfg.defaultDifficulty)
	assert.Equal(t, 60*time.Minute, cfg.sessionTimeout)
	assert.False(t, cfg.hideTitle)
	assert.NoError(t, cfg.validate())
}

func TestNewCmdFlags(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.Flags().Parse([]string{
		"--difficulties", "4,16",
		"--default_difficulty", "16",
		"--hide-title",
		"--seed", "42",
		"-p", "9000",
	}))

	assert.Equal(t, []int{4, 16}, cfg.difficulties)
	assert.Equal(t, 16, cfg.defaultDifficulty)
	assert.True(t, cfg.hideTitle)
	assert.Equal(t, uint64(42), cfg.seed)
	assert.Equal(t, 9000, cfg.port)
	assert.NoError(t, cfg.validate())
}

func TestNewCmdEnv(t *testing.T) {
	t.Setenv("SWATCHES_PORT", "9191")
	t.Setenv("SWATCHES_HIDE_TITLE", "true")

	cfg := &Config{}
	_ = newCmd(cfg)

	assert.Equal(t, 9191, cfg.port)
	assert.True(t, cfg.hideTitle)
}

func TestScheme(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}
