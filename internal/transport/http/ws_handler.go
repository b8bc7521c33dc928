package http

import (
	"encoding/json"
	"net/http"

	"case-reasons-training/internal/app"
	"case-reasons-training/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler drives one quiz session over a websocket. It offers the same
// operations as the JSON API as typed messages.
type WSHandler struct {
	service  *app.QuizService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
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

type searchPayload struct {
	Query string `json:"q"`
	Limit int    `json:"limit"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session", http.StatusBadRequest)
		return
	}
	view, err := h.service.Current(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.String("session", sessionID), zap.Error(err))
				// Drain so the reader never blocks on a dead connection.
				for range send {
				}
				return
			}
		}
	}()

	sendError := func(msg string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
	}

	send <- outboundMessage[any]{Type: "scenario", Payload: view}

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var choice domain.Choice
			if err := json.Unmarshal(inbound.Payload, &choice); err != nil {
				sendError("invalid answer payload")
				continue
			}
			result, err := h.service.SubmitAnswer(ctx, sessionID, choice)
			if err != nil {
				sendError(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
		case "next":
			view, done, err := h.service.Advance(ctx, sessionID)
			if err != nil {
				sendError(err.Error())
				continue
			}
			if done != nil {
				send <- outboundMessage[any]{Type: "completed", Payload: done}
				continue
			}
			send <- outboundMessage[any]{Type: "scenario", Payload: view}
		case "restart":
			view, err := h.service.Restart(ctx, sessionID)
			if err != nil {
				sendError(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "scenario", Payload: view}
		case "options":
			var choice domain.Choice
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &choice); err != nil {
					sendError("invalid options payload")
					continue
				}
			}
			send <- outboundMessage[any]{Type: "options", Payload: h.service.Options(choice)}
		case "search":
			var payload searchPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					sendError("invalid search payload")
					continue
				}
			}
			send <- outboundMessage[any]{Type: "search", Payload: h.service.Search(payload.Query, payload.Limit)}
		default:
			sendError("unsupported message type")
		}
	}

	close(send)
	<-writerDone
}
