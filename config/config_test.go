package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, ModeLocal, cfg.Server.Mode)
	assert.Equal(t, "bio-mcp-blast", cfg.Server.Name)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Local.MaxFileSize)
	assert.Equal(t, 300*time.Second, cfg.Local.Timeout())
	assert.Equal(t, DefaultNCBIBaseURL, cfg.NCBI.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.NCBI.MinInterval())
	assert.Equal(t, DefaultQueueURL, cfg.Queue.URL)
	assert.Equal(t, 3, cfg.Jobs.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Jobs.Backoff())
	assert.Equal(t, 50, cfg.Jobs.ResultLimit)
	assert.Equal(t, DefaultEUtilsBaseURL, cfg.EUtils.BaseURL)
	assert.Empty(t, cfg.EUtils.APIKey)
	assert.Equal(t, 30*time.Second, cfg.EUtils.Timeout())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blast.toml")
	writeFile(t, path, `
[server]
mode = "remote"

[ncbi]
email = "lab@example.org"
min_interval_seconds = 15

[jobs]
max_attempts = 5
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModeRemote, cfg.Server.Mode)
	assert.Equal(t, "lab@example.org", cfg.NCBI.Email)
	assert.Equal(t, 15, cfg.NCBI.MinIntervalSeconds)
	assert.Equal(t, 5, cfg.Jobs.MaxAttempts)
	// untouched keys keep defaults
	assert.Equal(t, 60, cfg.Jobs.PollIntervalSeconds)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestMergePrecedence(t *testing.T) {
	dir := t.TempDir()
	system := filepath.Join(dir, "etc", "blast.toml")
	user := filepath.Join(dir, "home", "blast.toml")
	project := filepath.Join(dir, "proj", "blast.toml")
	writeFile(t, system, "[local]\nthreads = 2\ntimeout_seconds = 100\n[queue]\npriority = 1\n")
	writeFile(t, user, "[local]\nthreads = 4\n")
	writeFile(t, project, "[local]\nthreads = 8\n")

	v := newViper([]string{system, user, project, filepath.Join(dir, "missing.toml")})
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Local.Threads)
	assert.Equal(t, 100, cfg.Local.TimeoutSeconds)
	assert.Equal(t, 1, cfg.Queue.Priority)
}

func TestEnvOverridesFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "blast.toml")
	writeFile(t, file, "[server]\nmode = \"queue\"\n[local]\ntimeout_seconds = 100\n")

	t.Setenv("BIO_MCP_SERVER_MODE", "remote")
	t.Setenv("BIO_MCP_TIMEOUT", "42")

	cfg, err := LoadWithViper(newViper([]string{file}))
	require.NoError(t, err)
	assert.Equal(t, ModeRemote, cfg.Server.Mode)
	assert.Equal(t, 42, cfg.Local.TimeoutSeconds)
}

func TestEUtilsAPIKeyEnv(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{"unset", "", nil, ""},
		{"file", "[eutils]\napi_key = \"from-file\"\n", nil, "from-file"},
		{"NCBI_API_KEY fallback", "", map[string]string{"NCBI_API_KEY": "plain"}, "plain"},
		{"fallback beats file", "[eutils]\napi_key = \"from-file\"\n", map[string]string{"NCBI_API_KEY": "plain"}, "plain"},
		{"prefixed wins", "", map[string]string{
			"BIO_MCP_EUTILS_API_KEY": "prefixed",
			"NCBI_API_KEY":           "plain",
		}, "prefixed"},
		{"legacy prefixed name", "", map[string]string{
			"BIO_MCP_NCBI_API_KEY": "legacy",
			"NCBI_API_KEY":         "plain",
		}, "legacy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"BIO_MCP_EUTILS_API_KEY", "BIO_MCP_NCBI_API_KEY", "NCBI_API_KEY"} {
				t.Setenv(k, tt.env[k])
			}
			var paths []string
			if tt.file != "" {
				p := filepath.Join(t.TempDir(), "blast.toml")
				writeFile(t, p, tt.file)
				paths = append(paths, p)
			}
			cfg, err := LoadWithViper(newViper(paths))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.EUtils.APIKey)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.EUtils.APIKey = "secret"

	red := cfg.Redacted()
	assert.Equal(t, "********", red.EUtils.APIKey)
	assert.Equal(t, "secret", cfg.EUtils.APIKey)
	assert.NotContains(t, cfg.String(), "secret")

	assert.Empty(t, Default().Redacted().EUtils.APIKey)
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ProjectFileName), "")
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, filepath.Join(root, ProjectFileName), findProjectConfig(nested))
}

func TestParseErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.toml")
	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, good, "[server]\nmode = \"local\"\n")
	writeFile(t, bad, "[server\nmode = ")

	errs := ParseErrors([]string{good, bad, filepath.Join(dir, "absent.toml")})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "bad.toml")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"unknown mode", func(c *Config) { c.Server.Mode = "cluster" }, "server.mode"},
		{"zero local timeout", func(c *Config) { c.Local.TimeoutSeconds = 0 }, "local.timeout_seconds"},
		{"negative threads", func(c *Config) { c.Local.Threads = -1 }, "local.threads"},
		{"zero threads is auto", func(c *Config) { c.Local.Threads = 0 }, ""},
		{"bad ncbi url", func(c *Config) { c.NCBI.BaseURL = "ftp://ncbi" }, "ncbi.base_url"},
		{"zero interval disables pacing", func(c *Config) { c.NCBI.MinIntervalSeconds = 0 }, ""},
		{"queue url checked in queue mode", func(c *Config) {
			c.Server.Mode = ModeQueue
			c.Queue.URL = "not a url"
		}, "queue.url"},
		{"queue url ignored elsewhere", func(c *Config) { c.Queue.URL = "" }, ""},
		{"zero attempts", func(c *Config) { c.Jobs.MaxAttempts = 0 }, "jobs.max_attempts"},
		{"zero poll interval", func(c *Config) { c.Jobs.PollIntervalSeconds = 0 }, "jobs.poll_interval_seconds"},
		{"zero result limit", func(c *Config) { c.Jobs.ResultLimit = 0 }, "jobs.result_limit"},
		{"gene mode", func(c *Config) { c.Server.Mode = ModeGene }, ""},
		{"bad eutils url", func(c *Config) { c.EUtils.BaseURL = "eutils" }, "eutils.base_url"},
		{"zero eutils timeout", func(c *Config) { c.EUtils.TimeoutSeconds = 0 }, "eutils.timeout_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "blast.toml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	err = WriteDefault(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, WriteDefault(path, true))
	_, err = os.Stat(path + ".back1")
	assert.NoError(t, err)
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, toml.Unmarshal(data, &back))
	assert.Contains(t, back, "ncbi")
	assert.Contains(t, string(data), "base_url")
	assert.Contains(t, string(data), "blast.ncbi.nlm.nih.gov")
}
