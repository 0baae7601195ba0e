package service

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quangdm/studyrag-be/types"
)

// WebsocketService streams retrieval-grounded answers over a websocket so
// the UI can render tokens as they arrive.
type WebsocketService struct {
	rag      *RAGService
	upgrader websocket.Upgrader
}

func NewWebsocketService(rag *RAGService) *WebsocketService {
	return &WebsocketService{
		rag: rag,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

func (s *WebsocketService) HandleAsk(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024) // 512KB max message size
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Websocket read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			log.Println("Unmarshal error:", err)
			s.writeError(conn, "invalid message")
			continue
		}

		switch req.Type {
		case types.TypeWebsocketAsk:
			payloadBytes, err := json.Marshal(req.Payload)
			if err != nil {
				s.writeError(conn, "invalid payload")
				continue
			}
			var payload types.WebsocketAskPayload
			if err := json.Unmarshal(payloadBytes, &payload); err != nil {
				log.Println("Unmarshal error:", err)
				s.writeError(conn, "invalid payload")
				continue
			}
			s.streamAnswer(ctx, conn, payload)

		case types.TypeWebsocketPing:
			pong := types.WebsocketResponse{
				Type: types.TypeWebsocketPong,
			}
			if err := conn.WriteJSON(pong); err != nil {
				log.Println("Write error:", err)
			}

		default:
			log.Println("Invalid message type:", req.Type)
		}
	}
}

func (s *WebsocketService) streamAnswer(ctx context.Context, conn *websocket.Conn, payload types.WebsocketAskPayload) {
	sources, err := s.rag.AskStream(ctx, payload.Question, payload.UserID, payload.CourseID, func(delta string) {
		if delta == "" {
			return
		}
		res := types.WebsocketResponse{
			Type:    types.TypeWebsocketAnswer,
			Payload: types.WebsocketAnswerPayload{Delta: delta},
		}
		if err := conn.WriteJSON(res); err != nil {
			log.Println("Write error:", err)
		}
	})
	if err != nil {
		log.Println("Ask error:", err)
		s.writeError(conn, "failed to answer question")
		return
	}

	done := types.WebsocketResponse{
		Type: types.TypeWebsocketAnswer,
		Payload: struct {
			types.WebsocketAnswerPayload
			Sources []types.SearchResult `json:"sources"`
		}{
			WebsocketAnswerPayload: types.WebsocketAnswerPayload{Done: true},
			Sources:                sources,
		},
	}
	if err := conn.WriteJSON(done); err != nil {
		log.Println("Write error:", err)
	}
}

func (s *WebsocketService) writeError(conn *websocket.Conn, message string) {
	res := types.WebsocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: map[string]string{"message": message},
	}
	if err := conn.WriteJSON(res); err != nil {
		log.Println("Write error:", err)
	}
}

func (s *WebsocketService) Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}
