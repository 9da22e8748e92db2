package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/metrics"
	"github.com/kitbuilder587/orbe-search/internal/ratelimit"
)

// RecordingSender collects everything the bot would send to Telegram.
type RecordingSender struct {
	mu       sync.Mutex
	Messages []tgbotapi.MessageConfig
	Actions  int
}

func (s *RecordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		s.Messages = append(s.Messages, m)
	case tgbotapi.ChatActionConfig:
		s.Actions++
	}
	return tgbotapi.Message{}, nil
}

func (s *RecordingSender) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, m.Text)
	}
	return out
}

func TestBot_Send(t *testing.T) {
	rec := &RecordingSender{}
	bot := &Bot{sender: rec, logger: zap.NewNop()}

	if err := bot.Send(42, "<b>hi</b>"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(rec.Messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(rec.Messages))
	}
	m := rec.Messages[0]
	if m.ChatID != 42 {
		t.Errorf("ChatID = %d, want 42", m.ChatID)
	}
	if m.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("ParseMode = %q, want HTML", m.ParseMode)
	}
	if !m.DisableWebPagePreview {
		t.Error("web page preview should be disabled")
	}
}

func TestBot_SendWithoutAPI(t *testing.T) {
	bot := &Bot{logger: zap.NewNop()}

	if err := bot.Send(1, "text"); err != nil {
		t.Errorf("Send() without api error = %v", err)
	}
	bot.SendTyping(1)
}

func TestBot_SendTyping(t *testing.T) {
	rec := &RecordingSender{}
	bot := &Bot{sender: rec, logger: zap.NewNop()}

	bot.SendTyping(7)

	if rec.Actions != 1 {
		t.Errorf("Actions = %d, want 1", rec.Actions)
	}
}

func TestBot_HandleUpdateRecoversPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rec := &RecordingSender{}
	bot := &Bot{
		sender:      rec,
		pipeline:    &StubProcessor{Panic: "boom"},
		logger:      zap.NewNop(),
		metrics:     m,
		rateLimiter: ratelimit.New(ratelimit.Config{RequestsPerMinute: 10}),
	}
	defer bot.rateLimiter.Stop()
	bot.handler = NewHandler(bot)

	bot.handleUpdate(context.Background(), tgbotapi.Update{Message: createTestMessage(1, "hello")})

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("telegram_query", "panic"))
	if got != 1 {
		t.Errorf("panic requests = %v, want 1", got)
	}
}

func TestBot_HandleUpdateRecordsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rec := &RecordingSender{}
	bot := &Bot{
		sender:      rec,
		pipeline:    &StubProcessor{},
		logger:      zap.NewNop(),
		metrics:     m,
		rateLimiter: ratelimit.New(ratelimit.Config{RequestsPerMinute: 10}),
	}
	defer bot.rateLimiter.Stop()
	bot.handler = NewHandler(bot)

	bot.handleUpdate(context.Background(), tgbotapi.Update{Message: createTestMessage(1, "/help")})

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("telegram_command", "processed"))
	if got != 1 {
		t.Errorf("command requests = %v, want 1", got)
	}
	if texts := rec.Texts(); len(texts) != 1 || !strings.Contains(texts[0], "/coder") {
		t.Errorf("help not sent: %v", texts)
	}
}

func TestBot_RecordRateLimitHit(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	bot := &Bot{logger: zap.NewNop(), metrics: m}

	bot.RecordRateLimitHit()
	bot.RecordRateLimitHit()

	if got := testutil.ToFloat64(m.RateLimitHitsTotal.WithLabelValues("telegram")); got != 2 {
		t.Errorf("rate limit hits = %v, want 2", got)
	}

	// без метрик не паникуем
	(&Bot{}).RecordRateLimitHit()
}
