package server

import (
	"context"
	"fmt"

	"github.com/krau/dermalens/chat"
	"github.com/krau/dermalens/classifier"
	"github.com/krau/dermalens/config"
	"github.com/krau/dermalens/diagnosis"
	"github.com/krau/dermalens/upload"
)

// Init loads the model and wires every dependency of the server. The session
// sweeper stops with ctx; the returned func releases the model sessions.
func Init(ctx context.Context, cfg config.Config) (*Server, func(), error) {
	model, err := classifier.New(cfg.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model: %w", err)
	}

	completer, err := chat.NewCompleter(cfg.Chat)
	if err != nil {
		model.Close()
		return nil, nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	stager, err := upload.NewStager(cfg.Upload.Dir, cfg.Upload.MaxBytes)
	if err != nil {
		model.Close()
		return nil, nil, err
	}

	sessions := diagnosis.NewStore(cfg.Session.TTL.D())
	go sessions.Run(ctx, cfg.Session.SweepInterval.D())

	srv := New(Options{
		Predictor:  model,
		Chat:       chat.NewService(completer, cfg.Chat.Model, cfg.Chat.Timeout.D()),
		Sessions:   sessions,
		Stager:     stager,
		Token:      cfg.Token,
		SharedSlot: cfg.Session.SharedSlot,
	})
	return srv, model.Close, nil
}
