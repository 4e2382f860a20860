package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	i := Info{CommitHash: "0123456789abcdef", BuildTime: "2026-10-01", Version: "v0.3.0", Platform: "linux/amd64"}
	assert.Equal(t, "0123456", i.Short())
	assert.Equal(t, "blastmcp v0.3.0 (commit 0123456, built 2026-10-01, linux/amd64)", i.String())
	assert.Equal(t, "bio-mcp-blast/v0.3.0", i.UserAgent())
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}

func TestGet(t *testing.T) {
	i := Get()
	assert.NotEmpty(t, i.GoVersion)
	assert.Contains(t, i.Platform, "/")
}
