// Package testserver runs a full MCP server over HTTP for end-to-end tests.
package testserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ganot/timekeep/internal/app"
	"github.com/ganot/timekeep/internal/config"
	"github.com/ganot/timekeep/internal/mcp"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// TestServer is one device: an App, its controller registry and the MCP
// server in front of them.
type TestServer struct {
	App      *app.App
	Registry *mcp.Registry
	Server   *httptest.Server
}

// Options tweak the configuration of a test server.
type Options struct {
	// DBPath shares a database between servers. Defaults to a fresh file.
	DBPath string
	// AuthEnabled requires bearer tokens.
	AuthEnabled bool
}

// New starts a server backed by files under t.TempDir().
func New(t *testing.T, opts Options) *TestServer {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Transport.Mode = "http"
	cfg.Auth.Enabled = opts.AuthEnabled
	cfg.DB.Path = opts.DBPath
	if cfg.DB.Path == "" {
		cfg.DB.Path = filepath.Join(dir, "timekeep.db")
	}
	cfg.Device.StatePath = filepath.Join(dir, "device.yaml")
	cfg.Timer.WatchInterval = 10 * time.Millisecond

	a, err := app.Open(cfg, nil)
	require.NoError(t, err)

	registry := mcp.NewRegistry(a.NewController, nil)
	server := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Timers:   registry,
			Projects: a.Projects,
			Profiles: a.Profiles,
			Activity: a.Activity,
		},
		Resolver:      a.APIKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		DefaultUser:   cfg.Device.UserID,
	})
	handler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{JSONResponse: true},
	)
	httpServer := httptest.NewServer(handler)

	ts := &TestServer{App: a, Registry: registry, Server: httpServer}
	t.Cleanup(func() {
		httpServer.Close()
		_ = registry.Close()
		_ = a.Close()
	})
	return ts
}

// AddAPIKey registers token for userID.
func (ts *TestServer) AddAPIKey(t *testing.T, token, userID string) {
	t.Helper()
	require.NoError(t, ts.App.APIKeys.Create(context.Background(), userID, token, "test"))
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}

// Connect opens a client session, sending token when it is not empty.
func (ts *TestServer) Connect(t *testing.T, token string) *sdkmcp.ClientSession {
	t.Helper()

	httpClient := ts.Server.Client()
	if token != "" {
		httpClient = &http.Client{Transport: bearerTransport{token: token, base: http.DefaultTransport}}
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "timekeep-test", Version: "0.0.1"}, nil)
	cs, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL,
		HTTPClient: httpClient,
		MaxRetries: -1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// Call invokes a tool and returns its result.
func Call(t *testing.T, cs *sdkmcp.ClientSession, tool string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: tool, Arguments: args})
	require.NoError(t, err)
	return res
}

// Text returns the first text block of res.
func Text(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

// Decode calls tool, requires success and decodes the structured output into T.
func Decode[T any](t *testing.T, cs *sdkmcp.ClientSession, tool string, args map[string]any) T {
	t.Helper()
	res := Call(t, cs, tool, args)
	require.False(t, res.IsError, "%s failed: %s", tool, Text(t, res))
	var out T
	require.NoError(t, json.Unmarshal([]byte(Text(t, res)), &out))
	return out
}
