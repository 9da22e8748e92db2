package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/llm"
	"github.com/kitbuilder587/orbe-search/internal/service"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

const helpText = `<b>Commands:</b>

/start - Welcome message
/help - Show this help

<b>Personas:</b>
/chat question - Friendly conversational answer
/coder question - Programming assistant
/business question - Business analyst
/creative question - Creative writer
/wizard question - Wise wizard

<b>How to use:</b>
Just send a question. News questions are answered from fresh headlines, book questions from the book catalog, everything else from web search.

<b>Examples:</b>
• latest news about electric cars
• /coder how do I reverse a slice in Go?
• find the pdf of the go programming language book`

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if msg.IsCommand() {
		if IsModeCommand(msg.Command()) {
			h.handleQuery(ctx, msg)
			return
		}
		h.handleCommand(ctx, msg)
	} else {
		h.handleQuery(ctx, msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.bot.Send(msg.Chat.ID, "Welcome! Ask me anything and I will search the news, books or the web for an answer.\n\nUse /help to see the available commands.")
	case "help":
		h.bot.Send(msg.Chat.ID, helpText)
	default:
		h.bot.Send(msg.Chat.ID, "Unknown command. Use /help to see the available commands.")
	}
}

func (h *Handler) handleQuery(ctx context.Context, msg *tgbotapi.Message) {
	key := strconv.FormatInt(msg.From.ID, 10)
	if !h.bot.rateLimiter.Allow(key) {
		h.bot.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", msg.From.ID),
			zap.Time("reset_at", h.bot.rateLimiter.ResetTime(key)),
		)
		h.bot.RecordRateLimitHit()
		h.bot.Send(msg.Chat.ID, "Too many requests. Please wait a minute.")
		return
	}

	question, mode := ParseQueryCommand(msg.Text)
	if question == "" && mode != domain.ModeDefault {
		h.bot.Send(msg.Chat.ID, fmt.Sprintf("Add a question after the command, e.g. /%s how do I reverse a slice in Go?", mode))
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	req := &domain.QueryRequest{Text: question, Mode: mode}

	h.bot.logger.Info("processing query",
		zap.Int64("user_id", msg.From.ID),
		zap.String("mode", string(mode)),
	)

	out, err := h.bot.pipeline.Process(ctx, req)
	if err != nil {
		h.bot.logger.Error("query processing failed",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
		)
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	var text string
	switch o := out.(type) {
	case service.DirectAnswer:
		text = o.Payload.Response
	case service.GeneratedAnswer:
		text, err = llm.Collect(o.Stream)
		if err != nil {
			h.bot.logger.Error("answer stream failed", zap.Error(err), zap.Int64("user_id", msg.From.ID))
			if text == "" {
				h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
				return
			}
		}
	}

	if text == "" {
		h.bot.Send(msg.Chat.ID, "The model returned an empty answer. Please rephrase your question.")
		return
	}

	formatted := FormatAnswer(text, mode, h.bot.publicBaseURL)
	for _, m := range SplitMessage(formatted, MaxMessageLength) {
		if err := h.bot.Send(msg.Chat.ID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func mapErrorToMessage(err error) string {
	var statusErr *llm.StatusError
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		return "Empty question. Please type what you want to know."
	case errors.Is(err, domain.ErrQueryTooLong):
		return fmt.Sprintf("The question is too long. Maximum %d characters.", domain.MaxQueryLength)
	case errors.Is(err, llm.ErrGeneratorUnavailable):
		return "Answer generation is not configured on this server."
	case errors.As(err, &statusErr):
		return fmt.Sprintf("The answer backend failed (status %d). Please try again later.", statusErr.StatusCode)
	default:
		return "Something went wrong. Please try again later."
	}
}
