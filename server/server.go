package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/krau/dermalens/chat"
	"github.com/krau/dermalens/classifier"
	"github.com/krau/dermalens/diagnosis"
	"github.com/krau/dermalens/upload"
	"github.com/samber/lo"
)

const SessionHeader = "X-Session-ID"

type Server struct {
	predictor  classifier.Predictor
	chat       *chat.Service
	sessions   *diagnosis.Store
	stager     *upload.Stager
	token      string
	sharedSlot bool
	validate   *validator.Validate
}

type Options struct {
	Predictor classifier.Predictor
	Chat      *chat.Service
	Sessions  *diagnosis.Store
	Stager    *upload.Stager
	// Token enables bearer auth on the API routes when set.
	Token string
	// SharedSlot also records every diagnosis in the process-wide slot read by
	// clients that send no session id.
	SharedSlot bool
}

func New(opts Options) *Server {
	return &Server{
		predictor:  opts.Predictor,
		chat:       opts.Chat,
		sessions:   opts.Sessions,
		stager:     opts.Stager,
		token:      opts.Token,
		sharedSlot: opts.SharedSlot,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Server) Router(corsOrigins []string) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(corsOrigins)))

	r.GET("/health", HealthHandler)
	api := r.Group("/", s.authenticate())
	api.POST("/analyze", s.AnalyzeHandler)
	api.POST("/chat", s.ChatHandler)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", SessionHeader},
		ExposeHeaders: []string{SessionHeader},
	}
	if len(origins) == 0 || lo.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
