package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/app"
	"wedding-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger zerolog.Logger) *WSHandler {
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

type answerPayload struct {
	Option domain.OptionLabel `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and binds one guest machine to the socket.
// The server relays snapshots; all quiz state transitions happen in the guest
// machine as broadcast events arrive.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	partyID := r.URL.Query().Get("partyId")
	partyName := r.URL.Query().Get("name")
	if sessionID == "" || partyID == "" || partyName == "" {
		http.Error(w, "missing sessionId, partyId, or name", http.StatusBadRequest)
		return
	}
	gamesBonus := r.URL.Query().Get("gamesBonus") == "true"

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	guest, err := h.service.JoinGuest(r.Context(), sessionID, partyID, partyName, gamesBonus)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer guest.Teardown()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	// Update signals coalesce; the forwarder always snapshots fresh state, so
	// a dropped signal never means a stale client.
	updates := make(chan struct{}, 1)
	guest.SetOnUpdate(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	go func() {
		defer close(updatesDone)
		for {
			select {
			case <-updates:
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: guest.Snapshot()}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "snapshot", Payload: guest.Snapshot()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if err := guest.SubmitAnswer(r.Context(), payload.Option); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "snapshot", Payload: guest.Snapshot()}
		case "snapshot":
			send <- outboundMessage[any]{Type: "snapshot", Payload: guest.Snapshot()}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
