package ramp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Credentials are resolved once at startup.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	Scopes       []string
}

// Method names the authentication flow the credentials select.
func (c Credentials) Method() (string, error) {
	hasClient := c.ClientID != "" && c.ClientSecret != ""
	hasToken := c.AccessToken != ""
	switch {
	case hasClient && hasToken:
		return "", ErrAmbiguousCredentials
	case hasClient:
		return "client_credentials", nil
	case hasToken:
		return "access_token", nil
	}
	return "", ErrNoCredentials
}

// Authenticate turns credentials into a token source and fetches the first
// token, so that bad credentials fail at startup rather than on the first
// tool call. hc is used for the token request; nil means http.DefaultClient.
func Authenticate(ctx context.Context, baseURL string, creds Credentials, hc *http.Client) (oauth2.TokenSource, error) {
	method, err := creds.Method()
	if err != nil {
		return nil, err
	}
	var (
		ts       oauth2.TokenSource
		tokenURL = strings.TrimSuffix(baseURL, "/") + "/token"
	)
	switch method {
	case "access_token":
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"})
	case "client_credentials":
		cfg := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       creds.Scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		if hc != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
		}
		ts = cfg.TokenSource(ctx)
	}
	if _, err := ts.Token(); err != nil {
		return nil, tokenError(tokenURL, err)
	}
	return ts, nil
}

func tokenError(url string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		code := re.Response.StatusCode
		if code == http.StatusBadRequest {
			// invalid_client and invalid_scope come back as 400
			code = http.StatusUnauthorized
		}
		return fmt.Errorf("token request: %w", statusError(code, url, re.Body, 0))
	}
	return fmt.Errorf("token request: %w", err)
}
