package chat

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model    string
	Messages []Message
}

//go:generate mockgen -destination=../mocks/mock_chat.go -package=mocks github.com/krau/dermalens/chat Completer

// Completer sends one non-streaming chat completion and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
