package imagegen

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// TokenSource yields a bearer token for one upstream call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("empty static token")
	}
	return string(t), nil
}

// GoogleTokenSource yields access tokens from Google credentials. Tokens are
// cached by the underlying provider until shortly before they expire.
type GoogleTokenSource struct {
	creds *auth.Credentials
}

// NewGoogleTokenSource loads the credentials file at path, a service account
// key in the usual case. An empty path falls back to application default
// credentials. The key itself is only used on the first Token call.
func NewGoogleTokenSource(path string, httpClient *http.Client) (*GoogleTokenSource, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		Scopes:          []string{cloudPlatformScope},
		CredentialsFile: path,
		Client:          httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("loading google credentials: %w", err)
	}
	return &GoogleTokenSource{creds: creds}, nil
}

func (s *GoogleTokenSource) Token(ctx context.Context) (string, error) {
	tok, err := s.creds.Token(ctx)
	if err != nil {
		return "", err
	}
	if tok.Value == "" {
		return "", fmt.Errorf("token response contained no access token")
	}
	return tok.Value, nil
}

// ProjectID is the project named by the credentials, if any.
func (s *GoogleTokenSource) ProjectID(ctx context.Context) (string, error) {
	return s.creds.ProjectID(ctx)
}
