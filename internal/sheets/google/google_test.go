package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sysfinance/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCredentials(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("inline wins", func(t *testing.T) {
		got, err := credentials(Config{CredentialsJSON: " {\"inline\":true} ", CredentialsFile: file})
		if err != nil || string(got) != `{"inline":true}` {
			t.Errorf("credentials() = %q, %v", got, err)
		}
	})

	t.Run("file", func(t *testing.T) {
		got, err := credentials(Config{CredentialsFile: file})
		if err != nil || !strings.Contains(string(got), "service_account") {
			t.Errorf("credentials() = %q, %v", got, err)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := credentials(Config{CredentialsFile: filepath.Join(dir, "missing.json")})
		if err == nil || !strings.Contains(err.Error(), "read service account file") {
			t.Errorf("credentials() error = %v", err)
		}
	})

	t.Run("none", func(t *testing.T) {
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		_, err := credentials(Config{})
		if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
			t.Errorf("credentials() error = %v", err)
		}
	})
}

func TestClient_ExportRowsValidation(t *testing.T) {
	c := &Client{spreadsheetID: "test"} // svc is nil

	_, err := c.ExportRows(context.Background(), 1, 2024, 13, nil)
	if !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("ExportRows() invalid month error = %v", err)
	}

	_, err = c.ExportRows(context.Background(), 1, 2024, 3, nil)
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("ExportRows() without service error = %v", err)
	}
}
