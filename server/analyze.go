package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krau/dermalens/classifier"
	"github.com/krau/dermalens/diagnosis"
	"github.com/krau/dermalens/upload"
)

// multipartOverhead covers the form framing and small fields sent next to the
// image.
const multipartOverhead = 64 << 10

type analyzeResponse struct {
	*classifier.Result
	SessionID string `json:"session_id"`
}

func (s *Server) AnalyzeHandler(c *gin.Context) {
	if limit := s.stager.MaxBytes(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	}

	staged, cleanup, err := s.stager.Stage(fileHeader)
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image too large"})
		return
	case errors.Is(err, upload.ErrNotImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image type"})
		return
	case err != nil:
		slog.Error("Failed to stage upload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}
	defer cleanup()

	img, format, err := upload.Decode(staged.Path)
	if err != nil {
		slog.Warn("Failed to decode image",
			slog.String("file", staged.Name),
			slog.String("mime", staged.MIME),
			slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image"})
		return
	}

	result, err := s.predictor.Predict(c.Request.Context(), img)
	if err != nil {
		slog.Error("Prediction failed", slog.String("error", err.Error()))
		if errors.Is(err, classifier.ErrBusy) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model busy"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
		return
	}

	// an invalid id gets a fresh session instead of failing the upload
	sessionID, _ := s.requestedSessionID(c, c.PostForm("session_id"))
	if sessionID == "" {
		sessionID = s.sessions.NewSessionID()
	}
	s.sessions.Set(sessionID, result.Disease)
	if s.sharedSlot {
		s.sessions.Set(diagnosis.Shared, result.Disease)
	}

	slog.Info("Image analyzed",
		slog.String("session", sessionID),
		slog.String("format", format),
		slog.String("disease", result.Disease),
		slog.Float64("confidence", result.Confidence))

	c.Header(SessionHeader, sessionID)
	c.JSON(http.StatusOK, analyzeResponse{Result: result, SessionID: sessionID})
}
