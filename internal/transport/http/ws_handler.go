package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/wmtylerbrown/lingible-sub000/internal/app"
	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

// WSHandler speaks the quiz protocol over a websocket. The caller identity is
// supplied externally (query string here); the handler never sees answer keys,
// only the client-facing projections the service returns.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type getQuestionPayload struct {
	Difficulty string `json:"difficulty"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorCode maps domain errors onto client-distinguishable codes, so clients
// can tell "start a new session" apart from "prompt for upgrade".
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrNotSessionOwner):
		return "forbidden"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrSessionExpired):
		return "expired"
	case errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrQuestionAnswered),
		errors.Is(err, domain.ErrNoAnswersRecorded),
		errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrTermInventory):
		return "validation"
	}
	return "system"
}

// ServeWS upgrades the request and serves quiz messages until the client hangs up.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "getQuestion":
			var payload getQuestionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid getQuestion payload"))
				continue
			}
			response, err := h.service.GetQuestion(r.Context(), userID, payload.Difficulty)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "question", response)
		case "answer":
			var payload app.AnswerSubmission
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid answer payload"))
				continue
			}
			result, err := h.service.SubmitAnswer(r.Context(), userID, payload)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "answerResult", result)
		case "progress":
			var payload sessionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid progress payload"))
				continue
			}
			stats, err := h.service.GetProgress(r.Context(), userID, payload.SessionID)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "progress", stats)
		case "end":
			var payload sessionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid end payload"))
				continue
			}
			summary, err := h.service.EndSession(r.Context(), userID, payload.SessionID)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "summary", summary)
		default:
			h.send(conn, "error", errorPayload{Code: "validation", Message: "unsupported message type"})
		}
	}
}

func (h *WSHandler) send(conn *websocket.Conn, msgType string, payload any) {
	if err := conn.WriteJSON(outboundMessage[any]{Type: msgType, Payload: payload}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}

func (h *WSHandler) sendError(conn *websocket.Conn, err error) {
	h.send(conn, "error", errorPayload{Code: errorCode(err), Message: err.Error()})
}
