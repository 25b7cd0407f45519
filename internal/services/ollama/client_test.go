package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	base := []Option{
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	}
	return NewClient(Config{Host: server.URL, Model: "gemma3"}, append(base, opts...)...)
}

func TestGenerateSendsRequestAndDecodesResponse(t *testing.T) {
	var gotBody generateRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "## Notes"})
	})

	text, err := client.Generate(context.Background(), "summarize this")
	if err != nil {
		t.Fatal(err)
	}
	if text != "## Notes" {
		t.Fatalf("response = %q", text)
	}
	if gotBody.Model != "gemma3" || gotBody.Stream {
		t.Fatalf("request body = %+v", gotBody)
	}
}

func TestGenerateRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	})

	text, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatal(err)
	}
	if text != "ok" {
		t.Fatalf("response = %q", text)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	})

	if _, err := client.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Error: "model requires more memory"})
	})

	_, err := client.Generate(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "model requires more memory") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateRequiresPromptAndModel(t *testing.T) {
	client := NewClient(Config{Model: "gemma3"})
	if _, err := client.Generate(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank prompt")
	}
	client = NewClient(Config{})
	if _, err := client.Generate(context.Background(), "hi"); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestGenerateStudyRejectsEmptyTranscript(t *testing.T) {
	client := NewClient(Config{Model: "gemma3"})
	if _, err := client.GenerateStudy(context.Background(), "", "   \n"); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestGenerateStudyRendersTemplate(t *testing.T) {
	var gotPrompt string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body generateRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotPrompt = body.Prompt
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "notes"})
	})

	_, err := client.GenerateStudy(context.Background(), "Notes for: {transcript}", "the lecture text")
	if err != nil {
		t.Fatal(err)
	}
	if gotPrompt != "Notes for: the lecture text" {
		t.Fatalf("prompt = %q", gotPrompt)
	}
}

func TestLoadPromptTemplate(t *testing.T) {
	if tpl, err := LoadPromptTemplate(""); err != nil || !strings.Contains(tpl, TranscriptPlaceholder) {
		t.Fatalf("default template: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(path, []byte("Custom: {transcript}"), 0o644); err != nil {
		t.Fatal(err)
	}
	tpl, err := LoadPromptTemplate(path)
	if err != nil || tpl != "Custom: {transcript}" {
		t.Fatalf("template = %q, err = %v", tpl, err)
	}

	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("no placeholder"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPromptTemplate(bad); err == nil {
		t.Fatal("expected error for missing placeholder")
	}
}

func TestHealthCheck(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestHostNormalization(t *testing.T) {
	client := NewClient(Config{Host: "http://localhost:11434/"})
	if client.cfg.Host != "http://localhost:11434" {
		t.Fatalf("host = %q", client.cfg.Host)
	}
	client = NewClient(Config{})
	if client.cfg.Host != "http://127.0.0.1:11434" {
		t.Fatalf("default host = %q", client.cfg.Host)
	}
}
