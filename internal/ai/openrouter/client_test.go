package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shellward/shellward/internal/ai"
)

func newTestClient(url string) *Client {
	c := NewClient("sk-or-v1-test", url, 5*time.Second)
	c.sleep = func(time.Duration) {}
	return c
}

func completionResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestGenerateCommand(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		gotModel, _ = payload["model"].(string)

		if r.Header.Get("Authorization") != "Bearer sk-or-v1-test" {
			t.Errorf("Missing auth header")
		}
		w.Write([]byte(completionResponse("dir C:\\Users")))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	gen, err := client.GenerateCommand(context.Background(), "list user folders")
	if err != nil {
		t.Fatalf("GenerateCommand failed: %v", err)
	}
	if gen.Command != "dir C:\\Users" {
		t.Errorf("Expected command, got %q", gen.Command)
	}
	if gen.Model != DefaultModels[0] || gotModel != DefaultModels[0] {
		t.Errorf("Expected first model to be tried, got %q", gen.Model)
	}
}

func TestGenerateCommandCleansOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("  dir   C:\\Users  \nsecond line ignored")))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	gen, err := client.GenerateCommand(context.Background(), "list")
	if err != nil {
		t.Fatalf("GenerateCommand failed: %v", err)
	}
	if gen.Command != "dir C:\\Users" {
		t.Errorf("Expected cleaned single line, got %q", gen.Command)
	}
}

func TestGenerateCommandModelFallback(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["model"] == DefaultModels[0] {
			// Permanent failure for the first model.
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(completionResponse("whoami")))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	gen, err := client.GenerateCommand(context.Background(), "who am i")
	if err != nil {
		t.Fatalf("GenerateCommand failed: %v", err)
	}
	if gen.Model != DefaultModels[1] {
		t.Errorf("Expected fallback to second model, got %q", gen.Model)
	}
}

func TestGenerateCommandInvalidKeyAborts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GenerateCommand(context.Background(), "anything")
	if !errors.Is(err, ai.ErrInvalidKey) {
		t.Fatalf("Expected ErrInvalidKey, got %v", err)
	}
	if calls != 1 {
		t.Errorf("401 must abort immediately, got %d calls", calls)
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionResponse("hostname")))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	gen, err := client.GenerateCommand(context.Background(), "computer name")
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if gen.Command != "hostname" {
		t.Errorf("Expected hostname, got %q", gen.Command)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestRateLimitExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GenerateCommand(context.Background(), "anything")
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
}

func TestEmptyResponseIsInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GenerateCommand(context.Background(), "anything")
	if !errors.Is(err, ai.ErrInvalidResponse) {
		t.Fatalf("Expected ErrInvalidResponse, got %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("key_validation")))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.ValidateKey(context.Background()); err != nil {
		t.Errorf("ValidateKey failed: %v", err)
	}
}

func TestPreferModel(t *testing.T) {
	client := newTestClient("http://unused")

	if !client.PreferModel(DefaultModels[2]) {
		t.Fatal("Expected known model to be accepted")
	}
	models := client.Models()
	if models[0] != DefaultModels[2] {
		t.Errorf("Expected preferred model first, got %q", models[0])
	}
	if len(models) != len(DefaultModels) {
		t.Errorf("Model list length changed: %d", len(models))
	}

	if client.PreferModel("does/not-exist") {
		t.Error("Unknown model must be rejected")
	}
}
