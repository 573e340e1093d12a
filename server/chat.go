package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/krau/dermalens/chat"
	"github.com/krau/dermalens/diagnosis"
)

const emptyMessageReply = "Please enter a question."

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	ErrorCode string `json:"error_code,omitempty"`
}

// ChatHandler always answers 200: failures become a displayable reply.
func (s *Server) ChatHandler(c *gin.Context) {
	var req chatRequest
	// a missing or malformed body is an empty message
	_ = c.ShouldBindJSON(&req)

	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusOK, chatResponse{Reply: emptyMessageReply})
		return
	}

	sessionID, ok := s.requestedSessionID(c, req.SessionID)
	if !ok {
		c.JSON(http.StatusOK, chatResponse{Reply: "Error: invalid session id", ErrorCode: "invalid_request"})
		return
	}
	if sessionID == "" {
		sessionID = diagnosis.Shared
	}
	condition, _ := s.sessions.Latest(sessionID)

	reply, err := s.chat.Ask(c.Request.Context(), req.Message, condition)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusOK, chatResponse{Reply: emptyMessageReply})
	case err != nil:
		c.JSON(http.StatusOK, chatResponse{Reply: "Error: " + err.Error(), ErrorCode: chat.Code(err)})
	default:
		c.JSON(http.StatusOK, chatResponse{Reply: reply})
	}
}
