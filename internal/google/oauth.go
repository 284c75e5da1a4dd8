package google

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

// HTTPClientForAccount returns an HTTP client authorized as account.
// HTTP/2 is disabled; Google APIs intermittently reset long-lived HTTP/2
// streams from this client.
func HTTPClientForAccount(ctx context.Context, provider TokenProvider, account string) (*http.Client, error) {
	ts, err := provider.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ForceAttemptHTTP2 = false
	base.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   otelhttp.NewTransport(base),
		},
	}, nil
}

// Credentials reports whether an account has stored credentials.
type Credentials struct {
	provider TokenProvider
	account  string
}

// NewCredentials checks account against provider.
func NewCredentials(provider TokenProvider, account string) *Credentials {
	if account == "" {
		account = DefaultAccount
	}
	return &Credentials{provider: provider, account: account}
}

// Account returns the account name being checked.
func (c *Credentials) Account() string {
	return c.account
}

// CredentialsAvailable reports whether a token is stored for the account.
func (c *Credentials) CredentialsAvailable() bool {
	return c.provider.HasToken(c.account)
}

// MissingMessage explains how to provide credentials for the account.
func (c *Credentials) MissingMessage() string {
	if p, ok := c.provider.(*FileTokenProvider); ok {
		return fmt.Sprintf("no Google OAuth credentials for account %q: write an authorized_user credentials file to %s", c.account, p.TokenPath(c.account))
	}
	return fmt.Sprintf("no Google OAuth credentials for account %q", c.account)
}
