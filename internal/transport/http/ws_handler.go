package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"trivia-room-service/internal/app"
)

// WSHandler upgrades connections and dispatches inbound game events. Every
// inbound request of type T is acknowledged with a "<T>Result" message whose
// payload carries either the result fields or {"error": ...}.
type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
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

type errorPayload struct {
	Error string `json:"error"`
}

type createRoomRequest struct {
	Password string `json:"password"`
}

type joinModeratorRequest struct {
	Password string `json:"password"`
	RoomCode string `json:"roomCode"`
}

type startGameRequest struct {
	RoomCode string `json:"roomCode"`
	Password string `json:"password"`
}

type joinPlayerRequest struct {
	Username string `json:"username"`
	RoomCode string `json:"roomCode"`
}

type submitAnswerRequest struct {
	RoomCode         string  `json:"roomCode"`
	QuestionIndex    int     `json:"questionIndex"`
	Choice           string  `json:"choice"`
	RemainingSeconds float64 `json:"remainingSeconds"`
}

// ServeWS upgrades the request, assigns the connection its channel identity,
// and runs the read loop until the peer goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	channelID := uuid.NewString()
	updates := h.hub.Register(channelID)
	defer h.hub.Unregister(channelID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range updates {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("channel", channelID).Msg("ws write error")
				return
			}
		}
	}()

	log.Debug().Str("channel", channelID).Msg("channel connected")
	ctx := r.Context()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		ack := func(payload any) {
			h.hub.ToChannel(channelID, inbound.Type+"Result", payload)
		}

		switch inbound.Type {
		case "createRoom":
			var req createRoomRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				ack(errorPayload{Error: "invalid payload"})
				continue
			}
			room, err := h.service.CreateRoom(ctx, req.Password, channelID)
			if err != nil {
				ack(errorPayload{Error: err.Error()})
				continue
			}
			h.hub.JoinRoom(room.Code, channelID)
			ack(map[string]any{"roomCode": room.Code})

		case "joinRoomAsModerator":
			var req joinModeratorRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				ack(errorPayload{Error: "invalid payload"})
				continue
			}
			room, err := h.service.JoinAsModerator(ctx, req.Password, req.RoomCode, channelID)
			if err != nil {
				ack(errorPayload{Error: err.Error()})
				continue
			}
			h.hub.JoinRoom(room.Code, channelID)
			ack(map[string]any{"room": room})

		case "startGame":
			var req startGameRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				ack(errorPayload{Error: "invalid payload"})
				continue
			}
			if err := h.service.StartGame(ctx, req.Password, req.RoomCode); err != nil {
				ack(errorPayload{Error: err.Error()})
				continue
			}
			ack(map[string]any{"success": true})

		case "joinAsPlayer":
			var req joinPlayerRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				ack(errorPayload{Error: "invalid payload"})
				continue
			}
			reconnected, err := h.service.JoinAsPlayer(ctx, req.RoomCode, req.Username, channelID)
			if err != nil {
				ack(errorPayload{Error: err.Error()})
				continue
			}
			h.hub.JoinRoom(req.RoomCode, channelID)
			ack(map[string]any{"success": true, "reconnected": reconnected})

		case "submitAnswer":
			var req submitAnswerRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				continue
			}
			// No ack: outcomes arrive as a private answerOutcome event, and
			// stale submissions are dropped without ceremony.
			if err := h.service.SubmitAnswer(ctx, req.RoomCode, channelID, req.QuestionIndex, req.Choice, req.RemainingSeconds); err != nil {
				log.Error().Err(err).Str("room", req.RoomCode).Msg("submit answer")
			}

		default:
			h.hub.ToChannel(channelID, "error", errorPayload{Error: "unsupported message type"})
		}
	}

	h.hub.Unregister(channelID)
	<-writerDone
	log.Debug().Str("channel", channelID).Msg("channel disconnected")
}
