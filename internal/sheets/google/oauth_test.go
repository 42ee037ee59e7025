package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testOAuthClient = `{"installed":{"client_id":"cid","client_secret":"csecret",` +
	`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
	`"redirect_uris":["http://localhost"]}}`

func TestReadOAuthClient(t *testing.T) {
	file := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(file, []byte(testOAuthClient), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		inline  string
		file    string
		errPart string
	}{
		{"inline", testOAuthClient, "", ""},
		{"file", "", file, ""},
		{"missing file", "", file + ".nope", "read oauth client file"},
		{"none", "", "", "missing OAuth client"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadOAuthClient(tt.inline, tt.file)
			if tt.errPart != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errPart) {
					t.Errorf("ReadOAuthClient() error = %v, want %q", err, tt.errPart)
				}
				return
			}
			if err != nil || !strings.Contains(string(got), "csecret") {
				t.Errorf("ReadOAuthClient() = %q, %v", got, err)
			}
		})
	}
}

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(testOAuthClient), "http://localhost:8085/callback")
	if err != nil {
		t.Fatalf("OAuthConfig() error = %v", err)
	}
	if cfg.ClientID != "cid" {
		t.Errorf("ClientID = %q, want cid", cfg.ClientID)
	}
	if cfg.RedirectURL != "http://localhost:8085/callback" {
		t.Errorf("RedirectURL = %q", cfg.RedirectURL)
	}
	if len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "spreadsheets") {
		t.Errorf("Scopes = %v", cfg.Scopes)
	}

	if _, err := OAuthConfig([]byte(`{"other":{}}`), ""); err == nil {
		t.Error("OAuthConfig() accepted a client without credentials")
	}
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets", "token.json")
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := SaveToken(path, tok); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got.RefreshToken != "refresh" || !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("LoadToken() = %+v", got)
	}
}

func TestLoadTokenRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken(path); err == nil || !strings.Contains(err.Error(), "holds no credentials") {
		t.Errorf("LoadToken() error = %v", err)
	}
}

func TestNew_OAuthMissingToken(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID:   "sheet",
		OAuthClientJSON: testOAuthClient,
		OAuthTokenFile:  filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "read oauth token") {
		t.Errorf("New() error = %v", err)
	}
}
