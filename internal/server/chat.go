package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/llm"
	"github.com/kitbuilder587/orbe-search/internal/service"
)

const (
	ndjsonContentType = "application/x-ndjson"
	maxErrorDetails   = 200
)

type chatRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
}

func (s *Server) handleChat(c *gin.Context) {
	log := s.requestLogger(c)

	var body chatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Warn("invalid chat body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}

	req := &domain.QueryRequest{Text: body.Query, Mode: domain.Mode(body.Mode)}
	out, err := s.pipeline.Process(c.Request.Context(), req)
	if err != nil {
		s.writeChatError(c, log, err)
		return
	}

	switch o := out.(type) {
	case service.DirectAnswer:
		s.writeDirect(c, log, o.Payload)
	case service.GeneratedAnswer:
		s.streamAnswer(c, log, o.Stream)
	default:
		log.Error("unknown pipeline outcome")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error processing request."})
	}
}

func (s *Server) writeChatError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'query' in request body"})
	case errors.Is(err, domain.ErrQueryTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is too long"})
	case errors.Is(err, llm.ErrGeneratorUnavailable):
		log.Error("generator unavailable", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal processing error: generation backend is not configured."})
	default:
		status, details := http.StatusBadGateway, err.Error()
		var se *llm.StatusError
		if errors.As(err, &se) {
			details = se.Message
			if se.StatusCode >= 400 {
				status = se.StatusCode
			}
		}
		log.Error("generation backend failed", zap.Int("status", status), zap.Error(err))
		c.JSON(status, gin.H{"error": "Generation backend failed. Details: " + firstRunes(details, maxErrorDetails)})
	}
}

func (s *Server) writeDirect(c *gin.Context, log *zap.Logger, p service.DirectPayload) {
	data, err := json.Marshal(p)
	if err != nil {
		log.Error("encode direct answer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error processing request."})
		return
	}
	c.Header("Content-Type", ndjsonContentType)
	c.Status(http.StatusOK)
	c.Writer.Write(append(data, '\n'))
	c.Writer.Flush()
}

// streamAnswer пишет и флашит каждую строку по мере поступления.
// Отключение клиента отменяет контекст запроса и вместе с ним апстрим.
func (s *Server) streamAnswer(c *gin.Context, log *zap.Logger, stream llm.Stream) {
	defer stream.Close()

	c.Header("Content-Type", ndjsonContentType)
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	lines := 0
	for {
		if c.Request.Context().Err() != nil {
			log.Info("client disconnected during stream", zap.Int("lines", lines))
			return
		}

		line, err := stream.Next()
		if errors.Is(err, io.EOF) {
			log.Debug("stream finished", zap.Int("lines", lines))
			return
		}
		if err != nil {
			log.Warn("stream interrupted", zap.Int("lines", lines), zap.Error(err))
			return
		}

		if _, err := c.Writer.Write(append(line, '\n')); err != nil {
			log.Info("write to client failed", zap.Error(err))
			return
		}
		c.Writer.Flush()
		lines++
	}
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
