package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/krau/dermalens/config"
)

type Service struct {
	completer Completer
	model     string
	timeout   time.Duration
}

func NewService(completer Completer, model string, timeout time.Duration) *Service {
	return &Service{
		completer: completer,
		model:     model,
		timeout:   timeout,
	}
}

// NewCompleter returns the client for the configured provider.
func NewCompleter(cfg config.ChatConfig) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderTogether:
		if cfg.APIKey == "" {
			slog.Warn("TOGETHER_API_KEY is not set, chat requests will fail")
		}
		return NewTogetherClient(cfg.BaseURL, cfg.APIKey, &http.Client{}), nil
	case config.ProviderOllama:
		c, err := NewOllamaClient(cfg.BaseURL, &http.Client{})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}

// Ask sends message, with "this" resolved to condition, and returns the reply.
// A blank message returns ErrEmptyMessage without calling the provider.
func (s *Service) Ask(ctx context.Context, message, condition string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.completer.Complete(ctx, Request{
		Model:    s.model,
		Messages: Conversation(message, condition),
	})
	if err != nil {
		slog.Error("Chat completion failed",
			slog.String("model", s.model),
			slog.String("code", Code(err)),
			slog.String("error", err.Error()))
		return "", err
	}
	slog.Debug("Chat completion", slog.String("model", s.model), slog.Duration("took", time.Since(start)))
	return reply, nil
}
