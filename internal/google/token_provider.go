package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// DefaultAccount is used when no account name is configured.
	DefaultAccount = "default"

	cacheSubdir    = "inboxpilot"
	tokenExtension = ".token"
)

// ErrNoToken is returned when no credentials are stored for an account.
var ErrNoToken = errors.New("no Google OAuth token found")

var accountPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// TokenProvider supplies OAuth token sources per account.
type TokenProvider interface {
	// TokenSource returns a token source for the account.
	TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error)

	// HasToken reports whether credentials exist for the account.
	HasToken(account string) bool
}

// FileTokenProvider reads credentials from token files in a directory.
type FileTokenProvider struct {
	dir string
}

// NewFileTokenProvider returns a provider reading from dir. An empty dir
// selects inboxpilot/ under the user cache directory.
func NewFileTokenProvider(dir string) *FileTokenProvider {
	if dir == "" {
		dir = defaultTokenDir()
	}
	return &FileTokenProvider{dir: dir}
}

// Dir returns the directory holding the token files.
func (p *FileTokenProvider) Dir() string {
	return p.dir
}

// TokenPath returns the token file path for an account.
func (p *FileTokenProvider) TokenPath(account string) string {
	return filepath.Join(p.dir, account+tokenExtension)
}

// HasToken reports whether a token file exists for the account.
func (p *FileTokenProvider) HasToken(account string) bool {
	if validateAccountName(account) != nil {
		return false
	}
	info, err := os.Stat(p.TokenPath(account))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// TokenSource loads the account's token file.
func (p *FileTokenProvider) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	path := p.TokenPath(account)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w for account %q", ErrNoToken, account)
		}
		return nil, fmt.Errorf("failed to read token file %s: %w", path, err)
	}

	return parseTokenFile(ctx, data)
}

func parseTokenFile(ctx context.Context, data []byte) (oauth2.TokenSource, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}

	if header.Type != "" {
		creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("invalid credentials file: %w", err)
		}
		return creds.TokenSource, nil
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("invalid token file: access_token is empty")
	}
	return oauth2.StaticTokenSource(&token), nil
}

func validateAccountName(account string) error {
	if account == "" {
		return errors.New("account name cannot be empty")
	}
	if !accountPattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphens and underscores are allowed", account)
	}
	return nil
}

func defaultTokenDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, cacheSubdir)
}
