package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/samber/lo"
)

// OllamaClient sends completions to an Ollama server.
type OllamaClient struct {
	client *api.Client
}

func NewOllamaClient(ollamaURL string, httpClient *http.Client) (*OllamaClient, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q", ollamaURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// drop any path such as /api/chat, the client adds its own
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}
	return &OllamaClient{client: api.NewClient(baseURL, httpClient)}, nil
}

func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model: req.Model,
		Messages: lo.Map(req.Messages, func(m Message, _ int) api.Message {
			return api.Message{Role: m.Role, Content: m.Content}
		}),
		Stream: &stream,
	}

	var content string
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", newAPIError(statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return "", transportError(err)
	}
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
