package google_tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/google"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

func TestRegisterGoogleTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterGoogleTools(s, &common.Services{}))
	assert.Empty(t, s.ListTools())

	creds := google.NewCredentials(google.NewFileTokenProvider(t.TempDir()), "")
	require.NoError(t, RegisterGoogleTools(s, &common.Services{Credentials: creds}))
	assert.Contains(t, s.ListTools(), "google_credentials_status")
}

func TestHandleCredentialsStatus(t *testing.T) {
	dir := t.TempDir()
	provider := google.NewFileTokenProvider(dir)
	creds := google.NewCredentials(provider, "work")

	var got credentialsStatus
	decode(t, creds, &got)
	assert.Equal(t, "work", got.Account)
	assert.False(t, got.Available)
	assert.Contains(t, got.Message, filepath.Join(dir, "work.token"))

	require.NoError(t, os.WriteFile(provider.TokenPath("work"), []byte(`{"access_token":"x"}`), 0o600))
	got = credentialsStatus{}
	decode(t, creds, &got)
	assert.True(t, got.Available)
	assert.Empty(t, got.Message)
}

func decode(t *testing.T, creds common.CredentialsInfo, v any) {
	t.Helper()
	result, err := handleCredentialsStatus(creds)
	require.NoError(t, err)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), v))
}
