package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/llm"
	"github.com/kitbuilder587/orbe-search/internal/llm/mock"
	"github.com/kitbuilder587/orbe-search/internal/ratelimit"
	"github.com/kitbuilder587/orbe-search/internal/service"
)

// StubProcessor returns a fixed outcome and remembers the last request.
type StubProcessor struct {
	Outcome service.Outcome
	Error   error
	Panic   string

	mu          sync.Mutex
	CallCount   int
	LastRequest *domain.QueryRequest
}

func (p *StubProcessor) Process(ctx context.Context, req *domain.QueryRequest) (service.Outcome, error) {
	p.mu.Lock()
	p.CallCount++
	p.LastRequest = req
	p.mu.Unlock()

	if p.Panic != "" {
		panic(p.Panic)
	}
	if p.Error != nil {
		return nil, p.Error
	}
	if p.Outcome != nil {
		return p.Outcome, nil
	}
	stream, err := mock.NewGenerator().Generate(ctx, req.Text)
	if err != nil {
		return nil, err
	}
	return service.GeneratedAnswer{Stream: stream}, nil
}

func createTestBot(p *StubProcessor) (*Bot, *RecordingSender) {
	rec := &RecordingSender{}
	bot := &Bot{
		sender:      rec,
		pipeline:    p,
		logger:      zap.NewNop(),
		rateLimiter: ratelimit.New(ratelimit.Config{RequestsPerMinute: 100}),
	}
	bot.handler = NewHandler(bot)
	return bot, rec
}

func createTestMessage(userID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{
			ID:       userID,
			UserName: "testuser",
		},
		Chat: &tgbotapi.Chat{
			ID: userID,
		},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return msg
}

func TestHandler_PlainText(t *testing.T) {
	p := &StubProcessor{}
	bot, rec := createTestBot(p)
	defer bot.rateLimiter.Stop()

	bot.handler.HandleMessage(context.Background(), createTestMessage(123, "what is a goroutine"))

	if p.CallCount != 1 {
		t.Fatalf("CallCount = %d, want 1", p.CallCount)
	}
	if p.LastRequest.Text != "what is a goroutine" {
		t.Errorf("Text = %q", p.LastRequest.Text)
	}
	if p.LastRequest.Mode != domain.ModeDefault {
		t.Errorf("Mode = %q, want default", p.LastRequest.Mode)
	}
	if rec.Actions != 1 {
		t.Errorf("typing actions = %d, want 1", rec.Actions)
	}

	texts := rec.Texts()
	if len(texts) != 1 || texts[0] != "This is a mock answer." {
		t.Errorf("sent %q, want collected answer", texts)
	}
}

func TestHandler_ModeCommands(t *testing.T) {
	tests := []struct {
		text     string
		wantMode domain.Mode
		wantText string
		wantTag  string
	}{
		{"/coder how do I   reverse a slice", domain.ModeCoder, "how do I reverse a slice", "<i>Coder mode</i>"},
		{"/chat hi there", domain.ModeChat, "hi there", "<i>Chat mode</i>"},
		{"/business market size", domain.ModeBusiness, "market size", "<i>Business mode</i>"},
		{"/creative a poem", domain.ModeCreative, "a poem", "<i>Creative mode</i>"},
		{"/wizard the meaning", domain.ModeWizard, "the meaning", "<i>Wizard mode</i>"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p := &StubProcessor{}
			bot, rec := createTestBot(p)
			defer bot.rateLimiter.Stop()

			bot.handler.HandleMessage(context.Background(), createTestMessage(5, tt.text))

			if p.CallCount != 1 {
				t.Fatalf("CallCount = %d, want 1", p.CallCount)
			}
			if p.LastRequest.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", p.LastRequest.Mode, tt.wantMode)
			}
			if p.LastRequest.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", p.LastRequest.Text, tt.wantText)
			}
			texts := rec.Texts()
			if len(texts) != 1 || !strings.HasPrefix(texts[0], tt.wantTag) {
				t.Errorf("sent %q, want prefix %q", texts, tt.wantTag)
			}
		})
	}
}

func TestHandler_ModeCommandWithoutQuestion(t *testing.T) {
	p := &StubProcessor{}
	bot, rec := createTestBot(p)
	defer bot.rateLimiter.Stop()

	bot.handler.HandleMessage(context.Background(), createTestMessage(5, "/coder"))

	if p.CallCount != 0 {
		t.Errorf("CallCount = %d, want 0", p.CallCount)
	}
	texts := rec.Texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "/coder how do I") {
		t.Errorf("sent %q, want usage hint", texts)
	}
}

func TestHandler_Commands(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/start", "Welcome!"},
		{"/help", "<b>Personas:</b>"},
		{"/unknown", "Unknown command."},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p := &StubProcessor{}
			bot, rec := createTestBot(p)
			defer bot.rateLimiter.Stop()

			bot.handler.HandleMessage(context.Background(), createTestMessage(1, tt.text))

			if p.CallCount != 0 {
				t.Errorf("pipeline called for %s", tt.text)
			}
			texts := rec.Texts()
			if len(texts) != 1 || !strings.Contains(texts[0], tt.want) {
				t.Errorf("sent %q, want %q", texts, tt.want)
			}
		})
	}
}

func TestHandler_DirectAnswer(t *testing.T) {
	p := &StubProcessor{Outcome: service.DirectAnswer{Payload: service.DirectPayload{
		Response: "Based on your query, this direct download link was found:\n[go.pdf](/api/download-proxy?url=https%3A%2F%2Fexample.com%2Fgo.pdf)",
	}}}
	bot, rec := createTestBot(p)
	defer bot.rateLimiter.Stop()
	bot.publicBaseURL = "https://orbe.example.org/"

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "go.pdf"))

	texts := rec.Texts()
	if len(texts) != 1 {
		t.Fatalf("sent %d messages, want 1", len(texts))
	}
	want := `<a href="https://orbe.example.org/api/download-proxy?url=https%3A%2F%2Fexample.com%2Fgo.pdf">go.pdf</a>`
	if !strings.Contains(texts[0], want) {
		t.Errorf("message = %q, want link %q", texts[0], want)
	}
}

func TestHandler_LongAnswerIsSplit(t *testing.T) {
	tokens := make([]string, 0, 1200)
	for i := 0; i < 1200; i++ {
		tokens = append(tokens, "word ")
	}
	stream, _ := mock.NewGenerator().WithTokens(tokens...).Generate(context.Background(), "")
	p := &StubProcessor{Outcome: service.GeneratedAnswer{Stream: stream}}
	bot, rec := createTestBot(p)
	defer bot.rateLimiter.Stop()

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "long"))

	texts := rec.Texts()
	if len(texts) != 2 {
		t.Fatalf("sent %d messages, want 2", len(texts))
	}
	for i, m := range texts {
		if len(m) > MaxMessageLength {
			t.Errorf("message %d is %d bytes", i, len(m))
		}
	}
}

func TestHandler_RateLimit(t *testing.T) {
	p := &StubProcessor{}
	bot, rec := createTestBot(p)
	bot.rateLimiter.Stop()
	bot.rateLimiter = ratelimit.New(ratelimit.Config{RequestsPerMinute: 1})
	defer bot.rateLimiter.Stop()

	bot.handler.HandleMessage(context.Background(), createTestMessage(9, "first"))
	bot.handler.HandleMessage(context.Background(), createTestMessage(9, "second"))
	bot.handler.HandleMessage(context.Background(), createTestMessage(10, "other user"))

	if p.CallCount != 2 {
		t.Errorf("CallCount = %d, want 2", p.CallCount)
	}
	found := false
	for _, m := range rec.Texts() {
		if m == "Too many requests. Please wait a minute." {
			found = true
		}
	}
	if !found {
		t.Error("rate limit message not sent")
	}
}

func TestHandler_ProcessError(t *testing.T) {
	p := &StubProcessor{Error: fmt.Errorf("generate answer: %w", &llm.StatusError{StatusCode: 503, Message: "busy"})}
	bot, rec := createTestBot(p)
	defer bot.rateLimiter.Stop()

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "question"))

	texts := rec.Texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "status 503") {
		t.Errorf("sent %q, want status message", texts)
	}
}

func TestHandler_EmptyAnswer(t *testing.T) {
	stream, _ := mock.NewGenerator().WithTokens().Generate(context.Background(), "")
	p := &StubProcessor{Outcome: service.GeneratedAnswer{Stream: stream}}
	bot, rec := createTestBot(p)
	defer bot.rateLimiter.Stop()

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "question"))

	texts := rec.Texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "empty answer") {
		t.Errorf("sent %q, want empty answer notice", texts)
	}
}

func TestMapErrorToMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"empty", domain.ErrEmptyQuery, "Empty question. Please type what you want to know."},
		{"too long", domain.ErrQueryTooLong, "The question is too long. Maximum 1000 characters."},
		{"no generator", llm.ErrGeneratorUnavailable, "Answer generation is not configured on this server."},
		{"status", &llm.StatusError{StatusCode: 429, Message: "slow down"}, "The answer backend failed (status 429). Please try again later."},
		{"unknown", errors.New("some random error"), "Something went wrong. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErrorToMessage(tt.err)
			if got != tt.want {
				t.Errorf("mapErrorToMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapErrorToMessage_WrappedErrors(t *testing.T) {
	wrappedErr := fmt.Errorf("generate answer: %w", llm.ErrGeneratorUnavailable)
	got := mapErrorToMessage(wrappedErr)
	want := "Answer generation is not configured on this server."
	if got != want {
		t.Errorf("mapErrorToMessage(wrapped) = %v, want %v", got, want)
	}
}
