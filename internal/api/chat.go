package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio/internal/chat"
	"portfolio/internal/metrics"
	"portfolio/internal/service/ai"
	"portfolio/internal/worker"
)

const notConfiguredMessage = "AI chatbot not configured yet — add your real API key!"

type chatRequest struct {
	Message     string            `json:"message"`
	ChatHistory []json.RawMessage `json:"chat_history"`
}

// decodeHistory keeps the entries that are exactly a prompt and a response.
func decodeHistory(raw []json.RawMessage) []chat.Pair {
	history := make([]chat.Pair, 0, len(raw))
	for _, entry := range raw {
		var p chat.Pair
		if err := json.Unmarshal(entry, &p); err != nil {
			continue
		}
		history = append(history, p)
	}
	return history
}

func (h *Handler) streamChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Message cannot be empty"})
		return
	}
	message := ai.TruncateMessage(req.Message)
	history := decodeHistory(req.ChatHistory)

	if _, ok := c.Writer.(http.Flusher); !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "streaming not supported"})
		return
	}
	if !h.chat.Configured() {
		metrics.ChatStreamsTotal.WithLabelValues("unconfigured").Inc()
		startEventStream(c)
		_ = writeData(c, notConfiguredMessage)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.ChatTimeout)
	defer cancel()

	started := false
	err := h.dispatcher.Do(ctx, "chat:"+c.ClientIP(), func(ctx context.Context) error {
		started = true
		startEventStream(c)
		metrics.ChatStreamsActive.Inc()
		defer metrics.ChatStreamsActive.Dec()
		return h.chat.StreamChat(ctx, message, history, func(token string) error {
			if token == "" {
				return nil
			}
			metrics.ChatTokens.Inc()
			return writeData(c, token)
		})
	})

	switch {
	case err == nil:
		metrics.ChatStreamsTotal.WithLabelValues("done").Inc()
		_ = writeData(c, chat.DoneSentinel)
	case !started && errors.Is(err, worker.ErrDispatcherBusy):
		metrics.DispatcherRejected.Inc()
		c.Header("Retry-After", "5")
		c.JSON(http.StatusTooManyRequests, gin.H{"detail": "Server is busy, please retry"})
	case !started:
		h.logger.Warn().Err(err).Msg("chat request not started")
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Chat is unavailable, please retry"})
	case errors.Is(err, ai.ErrNotConfigured):
		metrics.ChatStreamsTotal.WithLabelValues("unconfigured").Inc()
		_ = writeData(c, notConfiguredMessage)
	default:
		// the body ends without the sentinel; the client keeps what it has
		metrics.ChatStreamsTotal.WithLabelValues("error").Inc()
		h.logger.Warn().Err(err).Str("client", c.ClientIP()).Msg("chat stream failed")
	}
}

func startEventStream(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

// writeData sends one event. A payload spanning several lines is written as
// one data line per line so no line of the body is left unprefixed.
func writeData(c *gin.Context, payload string) error {
	var b strings.Builder
	for _, line := range strings.Split(payload, "\n") {
		b.WriteString(chat.DataPrefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if _, err := c.Writer.WriteString(b.String()); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}
