package http

import (
	"encoding/json"
	"net/http"
	"sync"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/pkg/logger"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
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

type createPayload struct {
	GameType   domain.GameType        `json:"gameType"`
	Subject    string                 `json:"subject"`
	Difficulty string                 `json:"difficulty"`
	Settings   *domain.SettingsUpdate `json:"settings,omitempty"`
}

type joinPayload struct {
	Code string `json:"code"`
}

type readyPayload struct {
	Ready bool `json:"ready"`
}

type answerPayload struct {
	Answer              string  `json:"answer"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
}

type roomCreatedPayload struct {
	Code string              `json:"code"`
	Room domain.RoomSnapshot `json:"room"`
}

type roomPayload struct {
	Room domain.RoomSnapshot `json:"room"`
}

type roundAdvancedPayload struct {
	Round int `json:"round"`
}

type gameCompletedPayload struct {
	Ranking []domain.RankEntry `json:"ranking"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// session use cases. One socket serves one participant.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	avatar := r.URL.Query().Get("avatar")
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var pumps sync.WaitGroup
	var cancelSub func()

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("ws write error", "userId", userID, "error", err)
				return
			}
		}
	}()

	sendErr := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	// attach starts pumping room snapshots for the user's current
	// session; re-attaching replaces the previous subscription.
	attach := func() {
		updates, cancel, err := h.service.Subscribe(userID)
		if err != nil {
			return
		}
		if cancelSub != nil {
			cancelSub()
		}
		cancelSub = cancel
		pumps.Add(1)
		go func() {
			defer pumps.Done()
			for {
				select {
				case update, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: "room", Payload: update}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "create":
			var payload createPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errInvalidPayload)
				continue
			}
			room, err := h.service.CreateRoom(r.Context(), userID, displayName, avatar, payload.GameType, payload.Subject, payload.Difficulty, payload.Settings)
			if err != nil {
				sendErr(err)
				continue
			}
			attach()
			send <- outboundMessage[any]{Type: "roomCreated", Payload: roomCreatedPayload{Code: room.RoomCode, Room: room}}
		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errInvalidPayload)
				continue
			}
			room, err := h.service.JoinRoom(r.Context(), payload.Code, userID, displayName, avatar)
			if err != nil {
				sendErr(err)
				continue
			}
			attach()
			send <- outboundMessage[any]{Type: "joined", Payload: roomPayload{Room: room}}
		case "ready":
			var payload readyPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errInvalidPayload)
				continue
			}
			if err := h.service.SetReady(userID, payload.Ready); err != nil {
				sendErr(err)
			}
		case "settings":
			var payload domain.SettingsUpdate
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errInvalidPayload)
				continue
			}
			if err := h.service.UpdateSettings(userID, payload); err != nil {
				sendErr(err)
			}
		case "start":
			room, err := h.service.Start(r.Context(), userID)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage[any]{Type: "gameStarted", Payload: roomPayload{Room: room}}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errInvalidPayload)
				continue
			}
			result, err := h.service.SubmitAnswer(userID, payload.Answer, payload.ResponseTimeSeconds)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
		case "advance":
			hasMore, final, err := h.service.Advance(r.Context(), userID)
			if err != nil {
				sendErr(err)
				continue
			}
			if hasMore {
				snap, err := h.service.Snapshot(userID)
				if err != nil {
					sendErr(err)
					continue
				}
				send <- outboundMessage[any]{Type: "roundAdvanced", Payload: roundAdvancedPayload{Round: snap.Round}}
			} else {
				send <- outboundMessage[any]{Type: "gameCompleted", Payload: gameCompletedPayload{Ranking: final}}
			}
		case "leave":
			if cancelSub != nil {
				cancelSub()
				cancelSub = nil
			}
			if err := h.service.Leave(userID); err != nil {
				sendErr(err)
			}
		default:
			sendErr(errUnsupportedType)
		}
	}

	// A drop mid-game keeps the participant (marked disconnected) so the
	// round is not disrupted; in the lobby it counts as leaving.
	if snap, err := h.service.Snapshot(userID); err == nil {
		if snap.Status == domain.StatusInProgress {
			_ = h.service.SetConnected(userID, false)
		} else {
			_ = h.service.Leave(userID)
		}
	}

	if cancelSub != nil {
		cancelSub()
	}
	close(closeSignals)
	pumps.Wait()
	close(send)
	<-writerDone
}
