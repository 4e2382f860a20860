package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bio-mcp/bio-mcp-blast/internal/version"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, VersionCmd, "--json")
	require.NoError(t, err)

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestConfigShowFormats(t *testing.T) {
	t.Setenv("BIO_MCP_SERVER_MODE", "remote")

	out, err := execute(t, ConfigCmd, "show", "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, "[server]")
	assert.Contains(t, out, "remote")

	out, err = execute(t, ConfigCmd, "show", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "mode: remote")

	out, err = execute(t, ConfigCmd, "show", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Mode": "remote"`)

	_, err = execute(t, ConfigCmd, "show", "--format", "ini")
	assert.Error(t, err)
}

func TestConfigShowMasksAPIKey(t *testing.T) {
	t.Setenv("NCBI_API_KEY", "abc123secret")

	for _, format := range []string{"toml", "yaml", "json"} {
		out, err := execute(t, ConfigCmd, "show", "--format", format)
		require.NoError(t, err, format)
		assert.NotContains(t, out, "abc123secret", format)
		assert.Contains(t, out, "********", format)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blast.toml")

	out, err := execute(t, ConfigCmd, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[ncbi]")

	_, err = execute(t, ConfigCmd, "init", path)
	assert.Error(t, err)

	_, err = execute(t, ConfigCmd, "init", "--force", path)
	require.NoError(t, err)
	assert.FileExists(t, path+".back1")
	configForce = false
}

func TestConfigWhere(t *testing.T) {
	out, err := execute(t, ConfigCmd, "where")
	require.NoError(t, err)
	assert.Contains(t, out, "/etc/bio-mcp/blast.toml")
	assert.Contains(t, out, "BIO_MCP_* environment variables")
}

func TestReadQuery(t *testing.T) {
	q, err := readQuery("ACGT")
	require.NoError(t, err)
	assert.Equal(t, "ACGT", q)

	path := filepath.Join(t.TempDir(), "q.fasta")
	require.NoError(t, os.WriteFile(path, []byte(">q\nACGT\n"), 0644))
	q, err = readQuery("@" + path)
	require.NoError(t, err)
	assert.Equal(t, ">q\nACGT\n", q)

	_, err = readQuery("@" + filepath.Join(t.TempDir(), "missing.fasta"))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("x", 70)
	assert.Len(t, truncate(long, 60), 60)
	assert.True(t, strings.HasSuffix(truncate(long, 60), "..."))

	title := strings.Repeat("α-синуклеин ", 8)
	got := truncate(title, 60)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 60, utf8.RuneCountInString(got))
	assert.Equal(t, "naïve", truncate("naïve", 5))
}
