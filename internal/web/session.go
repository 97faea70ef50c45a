package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"covertype/internal/features"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Websocket actions.
const (
	ActionInit    = "init"
	ActionChange  = "change"
	ActionPredict = "predict"
)

const wsWriteWait = 5 * time.Second

// SessionRequest is one message from the browser: the full form state and
// what to do with it.
type SessionRequest struct {
	Action string `json:"action"`
	features.Input
}

// SessionResponse echoes the normalized state and, after a predict action,
// the outcome.
type SessionResponse struct {
	Action string          `json:"action"`
	Input  *features.Input `json:"input,omitempty"`
	Result *Result         `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// handleWebSocket runs one live form session. Each message is evaluated on
// its own; the session holds no state between messages.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	s.sessionsMu.Lock()
	if s.closing {
		s.sessionsMu.Unlock()
		return
	}
	s.sessions[conn] = struct{}{}
	s.sessionsWG.Add(1)
	s.sessionsMu.Unlock()
	defer s.sessionsWG.Done()

	sessions := s.metrics.WSSessions()
	sessions.Inc()

	defer func() {
		s.sessionsMu.Lock()
		delete(s.sessions, conn)
		s.sessionsMu.Unlock()
		sessions.Dec()
	}()

	initial := s.assets.Form.DefaultInput()
	if err := writeSession(conn, SessionResponse{Action: ActionInit, Input: &initial}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("WebSocket session closed")
			}
			return
		}
		s.metrics.WSMessages().Inc()

		resp := s.handleSessionMessage(r, data)
		if err := writeSession(conn, resp); err != nil {
			log.Debug().Err(err).Msg("Failed to write WebSocket response")
			return
		}
	}
}

func (s *Server) handleSessionMessage(r *http.Request, data []byte) SessionResponse {
	var req SessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return SessionResponse{Error: "invalid message: " + err.Error()}
	}

	switch req.Action {
	case ActionChange:
		norm, err := s.assets.Form.Normalize(req.Input)
		if err != nil {
			return SessionResponse{Action: req.Action, Error: err.Error()}
		}
		return SessionResponse{Action: req.Action, Input: &norm}

	case ActionPredict:
		if !s.limiter.allow() {
			return SessionResponse{Action: req.Action, Error: "rate limit exceeded"}
		}
		result := newResult(s.evaluate(r.Context(), "ws", req.Input))
		resp := SessionResponse{Action: req.Action, Result: &result}
		if norm, err := s.assets.Form.Normalize(req.Input); err == nil {
			resp.Input = &norm
		}
		return resp

	default:
		return SessionResponse{Action: req.Action, Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

func writeSession(conn *websocket.Conn, resp SessionResponse) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(resp)
}
