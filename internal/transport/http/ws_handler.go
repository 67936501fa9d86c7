package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quizbank-service/internal/app"
	"quizbank-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler drives quiz play over a websocket. Every inbound message is one
// user interaction: the handler applies it to the stored session and replies
// with the resulting snapshot, which makes replayed messages harmless.
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

type startPayload struct {
	User     string   `json:"user"`
	Mode     string   `json:"mode"`
	Chapters []string `json:"chapters"`
	Count    int      `json:"count"`
}

type answerPayload struct {
	Chapter string `json:"chapter"`
	Number  string `json:"number"`
	Label   string `json:"label"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and runs the interaction loop for one
// session key. Messages are handled strictly in order; each one completes
// (state saved, reply written) before the next is read.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionKey := r.URL.Query().Get("session")
	if sessionKey == "" {
		http.Error(w, "missing session key", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, "invalid start payload")
				continue
			}
			mode := domain.ModeFresh
			if payload.Mode == string(domain.ModeRetry) {
				mode = domain.ModeRetry
			}
			view, err := h.service.Start(ctx, sessionKey, payload.User, mode, payload.Chapters, payload.Count)
			if err != nil {
				h.sendError(conn, err.Error())
				continue
			}
			h.send(conn, "session", view)

		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, "invalid answer payload")
				continue
			}
			outcome, err := h.service.Answer(ctx, sessionKey, domain.QuestionKey{
				Chapter: payload.Chapter,
				Number:  payload.Number,
			}, payload.Label)
			if err != nil {
				h.sendError(conn, err.Error())
				continue
			}
			if outcome.LedgerError != "" {
				log.Printf("ledger flush failed for session %s: %s", sessionKey, outcome.LedgerError)
			}
			h.send(conn, "answerResult", outcome)

		case "result":
			result, err := h.service.Result(ctx, sessionKey)
			if err != nil {
				h.sendError(conn, err.Error())
				continue
			}
			h.send(conn, "result", result)

		case "restart":
			view, err := h.service.Restart(ctx, sessionKey)
			if err != nil {
				h.sendError(conn, err.Error())
				continue
			}
			h.send(conn, "session", view)

		case "end":
			h.service.End(ctx, sessionKey)
			h.send(conn, "ended", struct{}{})

		default:
			h.sendError(conn, "unsupported message type")
		}
	}
}

func (h *WSHandler) send(conn *websocket.Conn, msgType string, payload any) {
	if err := conn.WriteJSON(outboundMessage[any]{Type: msgType, Payload: payload}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}

func (h *WSHandler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, "error", errorPayload{Message: message})
}
