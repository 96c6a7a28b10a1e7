package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testPrivateKeyPEM generates a throwaway RSA key in PKCS#1 PEM form.
func testPrivateKeyPEM(t *testing.T) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

func TestNewAppAuth_Validation(t *testing.T) {
	keyPEM := testPrivateKeyPEM(t)

	tests := []struct {
		name           string
		appID          string
		installationID int64
		privateKey     []byte
		errContain     string
	}{
		{
			name:           "empty app ID",
			appID:          "",
			installationID: 1,
			privateKey:     keyPEM,
			errContain:     "app ID cannot be empty",
		},
		{
			name:           "zero installation ID",
			appID:          "12345",
			installationID: 0,
			privateKey:     keyPEM,
			errContain:     "installation ID must be positive",
		},
		{
			name:           "garbage private key",
			appID:          "12345",
			installationID: 1,
			privateKey:     []byte("not a pem block"),
			errContain:     "failed to parse private key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAppAuth(tt.appID, tt.installationID, tt.privateKey)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContain) {
				t.Errorf("expected error containing %q, got %q", tt.errContain, err.Error())
			}
		})
	}
}

func TestNewAppAuth_PKCS8Key(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal PKCS#8 key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	if _, err := NewAppAuth("12345", 1, keyPEM); err != nil {
		t.Errorf("unexpected error for PKCS#8 key: %v", err)
	}
}

func TestInstallationToken_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/app/installations/67890/access_tokens" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("expected Bearer JWT auth header, got %s", auth)
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token":      "ghs_test_token_123",
			"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		})
	}))
	defer server.Close()

	auth, err := NewAppAuth("12345", 67890, testPrivateKeyPEM(t), WithAuthBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := auth.InstallationToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "ghs_test_token_123" {
		t.Errorf("expected ghs_test_token_123, got %s", token)
	}
}

func TestInstallationToken_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "A JSON web token could not be decoded"}`))
	}))
	defer server.Close()

	auth, err := NewAppAuth("12345", 67890, testPrivateKeyPEM(t), WithAuthBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = auth.InstallationToken(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("expected unauthorized error, got %q", err.Error())
	}
}

func TestInstallationToken_EmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	auth, err := NewAppAuth("12345", 67890, testPrivateKeyPEM(t), WithAuthBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := auth.InstallationToken(context.Background()); err == nil {
		t.Fatal("expected error for empty token response, got nil")
	}
}
