package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/devflow/internal/assistant"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming websocket message format.
type chatRequest struct {
	Type      string `json:"type"`       // "ask" or "search"
	SessionID string `json:"session_id"` // empty for new sessions
	Content   string `json:"content"`
	TopK      int    `json:"top_k,omitempty"`
}

// chatResponse is the outgoing websocket message format.
type chatResponse struct {
	Type      string   `json:"type"` // "response", "results" or "error"
	SessionID string   `json:"session_id"`
	Content   string   `json:"content"`
	Sources   []string `json:"sources,omitempty"`
	Results   []string `json:"results,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket_upgrade_failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket_read_failed", slog.String("error", err.Error()))
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, "", "invalid message format")
			continue
		}
		if req.Content == "" {
			s.sendError(conn, req.SessionID, "content is required")
			continue
		}
		if req.SessionID == "" {
			req.SessionID = uuid.New().String()
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		switch req.Type {
		case "ask", "message":
			s.handleAskMessage(ctx, conn, req)
		case "search":
			s.handleSearchMessage(ctx, conn, req)
		default:
			s.sendError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
		cancel()
	}
}

func (s *Server) handleAskMessage(ctx context.Context, conn *websocket.Conn, req chatRequest) {
	ans, err := s.svc.Ask(ctx, assistant.AskRequest{
		Query:     req.Content,
		TopK:      req.TopK,
		SessionID: req.SessionID,
	})
	if err != nil {
		s.sendError(conn, req.SessionID, err.Error())
		return
	}
	s.send(conn, chatResponse{
		Type:      "response",
		SessionID: req.SessionID,
		Content:   ans.Answer,
		Sources:   ans.Sources,
	})
}

func (s *Server) handleSearchMessage(ctx context.Context, conn *websocket.Conn, req chatRequest) {
	results, err := s.svc.Search(ctx, req.Content, req.TopK)
	if err != nil {
		s.sendError(conn, req.SessionID, err.Error())
		return
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}
	s.send(conn, chatResponse{Type: "results", SessionID: req.SessionID, Results: texts})
}

func (s *Server) send(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket_write_failed", slog.String("error", err.Error()))
	}
}

func (s *Server) sendError(conn *websocket.Conn, sessionID, message string) {
	s.send(conn, chatResponse{Type: "error", SessionID: sessionID, Content: message})
}
