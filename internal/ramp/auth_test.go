package ramp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCredentialsMethod(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  string
		err   error
	}{
		{"client credentials", Credentials{ClientID: "id", ClientSecret: "secret"}, "client_credentials", nil},
		{"access token", Credentials{AccessToken: "tok"}, "access_token", nil},
		{"both", Credentials{ClientID: "id", ClientSecret: "secret", AccessToken: "tok"}, "", ErrAmbiguousCredentials},
		{"neither", Credentials{}, "", ErrNoCredentials},
		{"id without secret", Credentials{ClientID: "id"}, "", ErrNoCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.creds.Method()
			if !errors.Is(err, tt.err) || got != tt.want {
				t.Fatalf("Method() = %q, %v; want %q, %v", got, err, tt.want, tt.err)
			}
		})
	}
}

func TestAuthenticateClientCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/developer/v1/token" {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		if r.Form.Get("scope") != "transactions:read bills:read" {
			t.Errorf("scope = %q", r.Form.Get("scope"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"issued","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	base := srv.URL + "/developer/v1"
	ts, err := Authenticate(context.Background(), base, Credentials{
		ClientID: "id", ClientSecret: "secret", Scopes: []string{"transactions:read", "bills:read"},
	}, srv.Client())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	tok, err := ts.Token()
	if err != nil || tok.AccessToken != "issued" {
		t.Fatalf("Token() = %v, %v", tok, err)
	}

	_, err = Authenticate(context.Background(), base, Credentials{ClientID: "id", ClientSecret: "wrong"}, srv.Client())
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want AuthError", err)
	}
}

func TestAuthenticateAccessToken(t *testing.T) {
	ts, err := Authenticate(context.Background(), "https://demo-api.ramp.com/developer/v1", Credentials{AccessToken: "tok"}, nil)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	tok, _ := ts.Token()
	if tok.AccessToken != "tok" {
		t.Fatalf("token = %q", tok.AccessToken)
	}
}

func TestBaseURL(t *testing.T) {
	u, err := BaseURL("")
	if err != nil || u != "https://demo-api.ramp.com/developer/v1" {
		t.Fatalf("BaseURL(\"\") = %q, %v", u, err)
	}
	u, err = BaseURL("PRD")
	if err != nil || u != "https://api.ramp.com/developer/v1" {
		t.Fatalf("BaseURL(PRD) = %q, %v", u, err)
	}
	_, err = BaseURL("staging")
	if !errors.Is(err, ErrUnknownEnv) || !strings.Contains(err.Error(), "demo, prd, qa") {
		t.Fatalf("BaseURL(staging) err = %v", err)
	}
}
