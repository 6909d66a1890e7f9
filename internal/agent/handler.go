package agent

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// Handler exposes the dialogue over HTTP and WebSocket.
type Handler struct {
	controller *Controller
	sessions   SessionStore
	logger     *logging.Logger
}

// NewHandler wires the chat handler.
func NewHandler(controller *Controller, sessions SessionStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{controller: controller, sessions: sessions, logger: logger.Component("chat")}
}

// ChatRequest is one inbound message. State is optional; when the session is
// known server-side the stored state wins.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	State     *State `json:"state,omitempty"`
}

// ChatResponse mirrors Turn with the session ID attached.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Turn
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.exchange(r, req)
	if err != nil {
		h.logger.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong handling that message")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reset handles POST /chat/reset, discarding a session's state.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if err := h.sessions.Delete(r.Context(), req.SessionID); err != nil {
		h.logger.Error("session reset failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not reset session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": req.SessionID, "status": "reset"})
}

// WebSocket returns the /chat/ws handler. Each frame is one ChatRequest and
// gets one ChatResponse back on the same connection.
func (h *Handler) WebSocket() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			var req ChatRequest
			if err := websocket.JSON.Receive(conn, &req); err != nil {
				return
			}
			if req.Message == "" {
				continue
			}
			resp, err := h.exchange(conn.Request(), req)
			if err != nil {
				h.logger.Error("websocket turn failed", "session_id", req.SessionID, "error", err)
				continue
			}
			if err := websocket.JSON.Send(conn, resp); err != nil {
				return
			}
		}
	})
}

func (h *Handler) exchange(r *http.Request, req ChatRequest) (*ChatResponse, error) {
	ctx := r.Context()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	state, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		if req.State != nil {
			state = *req.State
		}
	}

	turn, err := h.controller.HandleTurn(ctx, req.Message, state)
	if err != nil {
		return nil, err
	}

	if err := h.sessions.Save(ctx, sessionID, turn.State); err != nil {
		h.logger.Warn("session save failed", "session_id", sessionID, "error", err)
	}

	return &ChatResponse{SessionID: sessionID, Turn: *turn}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
