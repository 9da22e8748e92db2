package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/llm"
)

func TestClient_Embed(t *testing.T) {
	var got embeddingRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, EmbeddingModel: "nomic-embed-text"}, zap.NewNop())
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 || vec[1] != float32(0.2) {
		t.Errorf("vec = %v", vec)
	}
	if got.Model != "nomic-embed-text" || got.Prompt != "hello" {
		t.Errorf("request = %+v", got)
	}
}

func TestClient_Embed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		text    string
		wantErr error
	}{
		{"empty text", http.StatusOK, `{}`, "  ", llm.ErrEmptyText},
		{"missing embedding", http.StatusOK, `{"embedding":[]}`, "x", llm.ErrInvalidEmbedding},
		{"api error", http.StatusNotFound, `{"error":"model not found"}`, "x", llm.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := New(Config{BaseURL: server.URL}, zap.NewNop())
			_, err := c.Embed(context.Background(), tt.text)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Embed() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_Generate_Stream(t *testing.T) {
	var got generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"response":"Hello","done":false}` + "\n"))
		w.(http.Flusher).Flush()
		w.Write([]byte(`{"response":" world","done":false}` + "\n"))
		w.Write([]byte(`{"response":"","done":true}` + "\n"))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Model: "test-model"}, zap.NewNop())
	s, err := c.Generate(context.Background(), "Hi")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var lines []string
	for {
		line, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		lines = append(lines, string(line))
	}
	s.Close()

	if len(lines) != 3 || lines[0] != `{"response":"Hello","done":false}` {
		t.Errorf("lines = %v", lines)
	}
	if got.Model != "test-model" || got.Prompt != "Hi" || !got.Stream {
		t.Errorf("request = %+v", got)
	}
}

func TestClient_Generate_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'x' not found"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL}, zap.NewNop())
	_, err := c.Generate(context.Background(), "Hi")

	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Generate() error = %v, want *llm.StatusError", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || statusErr.Message != `{"error":"model 'x' not found"}` {
		t.Errorf("StatusError = %+v", statusErr)
	}
}

func TestClient_Generate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(Config{BaseURL: url}, zap.NewNop())
	_, err := c.Generate(context.Background(), "Hi")

	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Generate() error = %v, want 503 StatusError", err)
	}
}

func TestClient_Generate_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"a","done":false}` + "\n"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := New(Config{BaseURL: server.URL}, zap.NewNop())
	s, err := c.Generate(ctx, "Hi")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	defer s.Close()

	if _, err := s.Next(); err != nil {
		t.Fatalf("first Next() error = %v", err)
	}

	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := s.Next()
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Next() after cancel should fail")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next() did not return after context cancel")
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{}, zap.NewNop())
	if c.baseURL != DefaultBaseURL || c.model != DefaultModel || c.embeddingModel != DefaultEmbeddingModel {
		t.Errorf("defaults = %q %q %q", c.baseURL, c.model, c.embeddingModel)
	}
}
