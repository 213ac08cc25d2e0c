package gateway

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oipromot/office-optimizer/internal/auth"
	"github.com/oipromot/office-optimizer/internal/language"
	"github.com/oipromot/office-optimizer/internal/metrics"
	"github.com/oipromot/office-optimizer/internal/session"
	"github.com/oipromot/office-optimizer/internal/store"
)

var wsTracer = otel.Tracer("chat-socket")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking for production
		return true
	},
}

// Inbound frame types accepted on the chat socket.
const (
	FrameUserInput       = "user_input"
	FrameNewConversation = "new_conversation"
)

type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ChatSocket owns the WebSocket chat endpoint. Each connection gets its own
// session.Manager; the single read loop below is what keeps envelopes for a
// session in order.
type ChatSocket struct {
	optimizer session.RequirementOptimizer
	store     *store.Store
	metrics   *metrics.OptimizerMetrics
	tracer    trace.Tracer
}

// NewChatSocket creates the chat WebSocket handler.
func NewChatSocket(opt session.RequirementOptimizer, st *store.Store, m *metrics.OptimizerMetrics) *ChatSocket {
	return &ChatSocket{
		optimizer: opt,
		store:     st,
		metrics:   m,
		tracer:    wsTracer,
	}
}

// HandleChat handles WebSocket /ws/chat
// @Summary Chat over WebSocket
// @Description Bidirectional chat: frames in are {type: user_input|new_conversation, content}, frames out carry type, content, response_time, mode and error fields
// @Tags chat
// @Success 101 "Switching Protocols"
// @Router /ws/chat [get]
func (s *ChatSocket) HandleChat(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "chat_socket.handle_chat")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"error","message":"Failed to upgrade connection","error":"%v"}`, err)
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	userID := c.GetString(auth.UserIDKey)
	span.SetAttributes(attribute.String("session.id", connID))

	log.Printf(`{"level":"info","message":"Chat session opened","session_id":"%s"}`, connID)
	s.metrics.SessionOpened(ctx)
	defer func() {
		s.metrics.SessionClosed(ctx)
		log.Printf(`{"level":"info","message":"Chat session closed","session_id":"%s"}`, connID)
	}()

	mgr := session.NewManager(s.optimizer)

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				span.RecordError(err)
				log.Printf(`{"level":"warn","message":"Chat read error","session_id":"%s","error":"%v"}`, connID, err)
			}
			return
		}

		if err := s.handleFrame(ctx, conn, mgr, connID, userID, frame); err != nil {
			span.RecordError(err)
			log.Printf(`{"level":"warn","message":"Chat write error","session_id":"%s","error":"%v"}`, connID, err)
			return
		}
	}
}

func (s *ChatSocket) handleFrame(ctx context.Context, conn *websocket.Conn, mgr *session.Manager, connID, userID string, frame inboundFrame) error {
	switch frame.Type {
	case FrameNewConversation:
		return conn.WriteJSON(mgr.Reset())

	case FrameUserInput:
		// Acknowledge before the model round trip so the client can show
		// progress; the single-reader loop keeps this ahead of the answer.
		if err := conn.WriteJSON(session.ProcessingEnvelope(language.IsChinese(frame.Content))); err != nil {
			return err
		}

		env := mgr.Submit(ctx, frame.Content)

		s.persistOutcome(ctx, connID, userID, frame.Content, env)
		return conn.WriteJSON(env)

	default:
		log.Printf(`{"level":"warn","message":"Unknown frame type","session_id":"%s","type":"%s"}`, connID, frame.Type)
		return nil
	}
}

// persistOutcome records the optimization turn when a store is wired in.
// Chat keeps flowing even when the database does not.
func (s *ChatSocket) persistOutcome(ctx context.Context, connID, userID, userInput string, env session.Envelope) {
	if s.store == nil {
		return
	}
	record := optimizationRecord(connID, userID, userInput, env)
	if record == nil {
		return
	}
	if _, err := s.store.SaveOptimizationRecord(ctx, *record); err != nil {
		log.Printf(`{"level":"warn","message":"Failed to save optimization record","error":"%v","session_id":"%s"}`, err, connID)
	}
}
