package google_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/tools/common"
)

type credentialsStatus struct {
	Account   string `json:"account"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// RegisterGoogleTools registers google_credentials_status. Nothing is
// registered when svc carries no credentials.
func RegisterGoogleTools(s *mcpserver.MCPServer, svc *common.Services) error {
	if svc.Credentials == nil {
		return nil
	}

	statusTool := mcp.NewTool("google_credentials_status",
		mcp.WithDescription("Check whether Google credentials are available for the configured account and how to provide them"),
	)
	s.AddTool(statusTool, common.InstrumentedToolHandler("google_credentials_status", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCredentialsStatus(svc.Credentials)
		}))

	return nil
}

func handleCredentialsStatus(creds common.CredentialsInfo) (*mcp.CallToolResult, error) {
	status := credentialsStatus{
		Account:   creds.Account(),
		Available: creds.CredentialsAvailable(),
	}
	if !status.Available {
		status.Message = creds.MissingMessage()
	}
	return common.JSONResult(status)
}
