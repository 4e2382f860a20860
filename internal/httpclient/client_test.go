package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bio-mcp/bio-mcp-blast/internal/util"
)

func TestNew(t *testing.T) {
	c := New(30 * time.Second)
	require.NotNil(t, c)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, 10, c.maxRedirects)
	assert.True(t, c.blockPrivateIP)
	assert.Nil(t, c.limiter)
	assert.Equal(t, DefaultUserAgent, c.userAgent)
}

func TestValidateURL(t *testing.T) {
	c := New(time.Second)

	tests := []struct {
		name        string
		url         string
		errContains string
	}{
		{"ncbi https", "https://blast.ncbi.nlm.nih.gov/Blast.cgi", ""},
		{"plain http", "http://example.com", ""},
		{"file scheme", "file:///etc/passwd", "scheme"},
		{"ftp scheme", "ftp://ftp.ncbi.nlm.nih.gov", "scheme"},
		{"localhost", "http://localhost:8000/jobs", "localhost"},
		{"localhost subdomain", "http://api.localhost/", "localhost"},
		{"loopback ip", "http://127.0.0.1/", "private"},
		{"rfc1918", "http://192.168.1.10/", "private"},
		{"metadata endpoint", "http://169.254.169.254/latest", "private"},
		{"ipv6 loopback", "http://[::1]/", "private"},
		{"ipv6 unique local", "http://[fd00::1]/", "private"},
		{"credentials", "http://user:pw@example.com/", "credentials"},
		{"no host", "http:///path", "hostname"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ValidateURL(tt.url)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"10.1.2.3", "172.20.0.1", "127.0.0.1", "0.0.0.0", "224.0.0.1", "::1", "fe80::1", "fd12::1", "2001:db8::1", "::ffff:10.0.0.1"}
	for _, s := range private {
		assert.True(t, isPrivateIP(net.ParseIP(s)), s)
	}
	public := []string{"130.14.29.110", "8.8.8.8", "2607:f220:41e:4290::110"}
	for _, s := range public {
		assert.False(t, isPrivateIP(net.ParseIP(s)), s)
	}
}

func TestOptions(t *testing.T) {
	c := NewWithOptions(time.Second, Options{
		AllowedSchemes: []string{"https"},
		MaxRedirects:   util.Ptr(3),
		BlockPrivateIP: util.Ptr(false),
		UserAgent:      "blast-test/1.0",
	})
	assert.Equal(t, 3, c.maxRedirects)
	assert.False(t, c.blockPrivateIP)
	assert.Equal(t, "blast-test/1.0", c.userAgent)

	_, err := c.ValidateURL("http://example.com")
	assert.Error(t, err)
	_, err = c.ValidateURL("https://127.0.0.1/")
	assert.NoError(t, err)
}

func TestDoSetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := WrapClient(srv.Client())
	c.SetUserAgent("bio-mcp-blast/0.1 (test)")
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "bio-mcp-blast/0.1 (test)", got)
}

func TestDoBlocksLocalhost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := New(time.Second).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSRF")
}

func TestMinIntervalPacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := WrapClient(srv.Client())
	c.SetMinInterval(50 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := c.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestMinIntervalHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := WrapClient(srv.Client())
	c.SetMinInterval(time.Hour)

	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, srv.URL)
	assert.Error(t, err)
}

func TestMaxRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/again", http.StatusFound)
	}))
	defer srv.Close()

	c := NewWithOptions(time.Second, Options{BlockPrivateIP: util.Ptr(false), MaxRedirects: util.Ptr(2)})
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 2 redirects")
}
