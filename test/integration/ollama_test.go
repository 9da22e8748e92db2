package integration

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/cache/memory"
	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/llm"
	"github.com/kitbuilder587/orbe-search/internal/llm/ollama"
	"github.com/kitbuilder587/orbe-search/internal/metrics"
	"github.com/kitbuilder587/orbe-search/internal/rank"
	"github.com/kitbuilder587/orbe-search/internal/search/mock"
	"github.com/kitbuilder587/orbe-search/internal/server"
	"github.com/kitbuilder587/orbe-search/internal/service"
)

var (
	ollamaURL  string
	genModel   = envOr("OLLAMA_TEST_MODEL", "qwen2.5:0.5b")
	embedModel = envOr("OLLAMA_TEST_EMBED_MODEL", "all-minilm")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestMain(m *testing.M) {
	if os.Getenv("SHORT_TESTS") == "1" {
		os.Exit(0)
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "ollama/ollama:0.5.7",
			ExposedPorts: []string{"11434/tcp"},
			WaitingFor: wait.ForHTTP("/").
				WithPort("11434/tcp").
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}

	for _, model := range []string{genModel, embedModel} {
		code, out, err := container.Exec(ctx, []string{"ollama", "pull", model})
		if err != nil {
			panic(err)
		}
		if code != 0 {
			logs, _ := io.ReadAll(out)
			panic(fmt.Sprintf("ollama pull %s exited with %d: %s", model, code, logs))
		}
	}

	ollamaURL, err = container.PortEndpoint(ctx, "11434/tcp", "http")
	if err != nil {
		panic(err)
	}

	code := m.Run()

	container.Terminate(ctx)

	os.Exit(code)
}

func newClient() *ollama.Client {
	return ollama.New(ollama.Config{
		BaseURL:        ollamaURL,
		Model:          genModel,
		EmbeddingModel: embedModel,
		EmbedTimeout:   time.Minute,
	}, zap.NewNop())
}

func TestOllama_Embed_Integration(t *testing.T) {
	ctx := context.Background()
	client := newClient()

	vec, err := client.Embed(ctx, "golang concurrency patterns")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) == 0 {
		t.Fatal("Embed() returned empty vector")
	}

	other, err := client.Embed(ctx, "golang concurrency patterns")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(other) != len(vec) {
		t.Errorf("dimensions differ: %d vs %d", len(other), len(vec))
	}
}

func TestOllama_Generate_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	stream, err := newClient().Generate(ctx, "Reply with the single word: pong")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	text, err := llm.Collect(stream)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if strings.TrimSpace(text) == "" {
		t.Error("Collect() returned empty answer")
	}
}

func TestOllama_UnknownModel_Integration(t *testing.T) {
	client := ollama.New(ollama.Config{BaseURL: ollamaURL, Model: "does-not-exist:latest"}, zap.NewNop())

	_, err := client.Generate(context.Background(), "hi")
	if err == nil {
		t.Fatal("Generate() with unknown model should fail")
	}

	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("error = %v, want 404 StatusError", err)
	}
}

func TestRanker_Integration(t *testing.T) {
	ranker := rank.New(newClient(), rank.Config{TopK: 2}, nil, zap.NewNop())

	items := []domain.Item{
		{Title: "Chocolate cake recipe", Snippet: "Bake a moist chocolate cake in an hour."},
		{Title: "Goroutines and channels", Snippet: "Concurrency in Go uses goroutines and channels."},
		{Title: "Go memory model", Snippet: "How goroutines observe writes to shared memory."},
	}

	ranking, err := ranker.Rank(context.Background(), "go concurrency with goroutines", items)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(ranking.Results) != 2 {
		t.Fatalf("Rank() returned %d results, want 2", len(ranking.Results))
	}
	for _, r := range ranking.Results {
		if strings.Contains(r.Item.Title, "Chocolate") {
			t.Errorf("unrelated item ranked in top 2: %q", r.Item.Title)
		}
	}
}

func TestSearchAndChat_Integration(t *testing.T) {
	gin.SetMode(gin.TestMode)

	client := newClient()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := memory.New()
	defer c.Stop()

	pipeline := service.NewPipeline(service.PipelineDeps{
		Sources: service.Sources{
			News:  mock.New("newsapi"),
			Books: mock.New("openlibrary"),
			Web: mock.New("serper").WithItems(
				domain.Item{Title: "A Tour of Go", URL: "https://go.dev/tour", Snippet: "An interactive introduction to Go."},
				domain.Item{Title: "Effective Go", URL: "https://go.dev/doc/effective_go", Snippet: "Tips for writing clear, idiomatic Go code."},
			),
		},
		Generator: client,
		Ranker:    rank.New(client, rank.Config{}, m, zap.NewNop()),
		Cache:     c,
		Metrics:   m,
		Logger:    zap.NewNop(),
	})

	srv := httptest.NewServer(server.New(server.Deps{
		Pipeline: pipeline,
		Metrics:  m,
		Gatherer: reg,
		Logger:   zap.NewNop(),
	}).Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	body := bytes.NewBufferString(`{"query":"how do I learn go","mode":"coder"}`)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+server.ChatPath, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, b)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-ndjson") {
		t.Errorf("Content-Type = %q", ct)
	}

	var (
		answer strings.Builder
		done   bool
	)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		chunk, err := llm.DecodeChunk(scanner.Bytes())
		if err != nil {
			t.Fatalf("bad chunk %q: %v", scanner.Text(), err)
		}
		answer.WriteString(chunk.Response)
		if chunk.Done {
			done = true
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("read stream: %v", err)
	}

	if !done {
		t.Error("stream ended without done chunk")
	}
	if strings.TrimSpace(answer.String()) == "" {
		t.Error("empty answer")
	}
}
