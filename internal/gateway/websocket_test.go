package gateway

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oipromot/office-optimizer/internal/llm"
	"github.com/oipromot/office-optimizer/internal/optimizer"
	"github.com/oipromot/office-optimizer/internal/session"
)

func dialChatSocket(t *testing.T, opt session.RequirementOptimizer) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	socket := NewChatSocket(opt, nil, nil)
	router.GET("/ws/chat", socket.HandleChat)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) session.Envelope {
	t.Helper()
	var env session.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestChatSocket_UserInputYieldsProcessingThenResponse(t *testing.T) {
	stub := &stubOptimizer{
		optimizeResult: &optimizer.Result{Text: "Optimized requirement", ResponseTime: 1500 * time.Millisecond, Mode: optimizer.ModeStandard},
	}
	conn := dialChatSocket(t, stub)

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameUserInput, Content: "help me sort a sheet"}))

	processing := readEnvelope(t, conn)
	assert.Equal(t, session.TypeProcessing, processing.Type)
	assert.Equal(t, "Processing...", processing.Content)

	response := readEnvelope(t, conn)
	assert.Equal(t, session.TypeAIResponse, response.Type)
	assert.Equal(t, "Optimized requirement", response.Content)
	assert.Equal(t, optimizer.ModeStandard, response.Mode)
	assert.InDelta(t, 1.5, response.ResponseTime, 0.001)
}

func TestChatSocket_ChineseInputGetsChineseProcessingNotice(t *testing.T) {
	stub := &stubOptimizer{
		optimizeResult: &optimizer.Result{Text: "优化后的需求", ResponseTime: time.Second, Mode: optimizer.ModeStandard},
	}
	conn := dialChatSocket(t, stub)

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameUserInput, Content: "帮我排序表格"}))

	processing := readEnvelope(t, conn)
	assert.Equal(t, session.TypeProcessing, processing.Type)
	assert.Equal(t, "处理中...", processing.Content)

	readEnvelope(t, conn)
}

func TestChatSocket_FeedbackIsRefined(t *testing.T) {
	stub := &stubOptimizer{
		optimizeResult: &optimizer.Result{Text: "First answer", ResponseTime: time.Second, Mode: optimizer.ModeStandard},
		refineResult:   &optimizer.Result{Text: "Refined answer", ResponseTime: 700 * time.Millisecond, Mode: optimizer.ModeStandard},
	}
	conn := dialChatSocket(t, stub)

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameUserInput, Content: "sort my sheet"}))
	readEnvelope(t, conn) // processing
	readEnvelope(t, conn) // ai_response

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameUserInput, Content: "only column B"}))
	readEnvelope(t, conn) // processing

	refined := readEnvelope(t, conn)
	assert.Equal(t, session.TypeAIResponseRefined, refined.Type)
	assert.Equal(t, "Refined answer", refined.Content)
}

func TestChatSocket_ResetSentinelDuringFeedback(t *testing.T) {
	stub := &stubOptimizer{
		optimizeResult: &optimizer.Result{Text: "First answer", ResponseTime: time.Second, Mode: optimizer.ModeStandard},
	}
	conn := dialChatSocket(t, stub)

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameUserInput, Content: "sort my sheet"}))
	readEnvelope(t, conn) // processing
	readEnvelope(t, conn) // ai_response

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameUserInput, Content: "/n"}))
	readEnvelope(t, conn) // processing

	reset := readEnvelope(t, conn)
	assert.Equal(t, session.TypeNewConversation, reset.Type)
	assert.Equal(t, "开始新对话", reset.Content)
}

func TestChatSocket_NewConversationFrame(t *testing.T) {
	conn := dialChatSocket(t, &stubOptimizer{})

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameNewConversation}))

	reset := readEnvelope(t, conn)
	assert.Equal(t, session.TypeNewConversation, reset.Type)
	assert.Equal(t, "开始新对话", reset.Content)
}

func TestChatSocket_RefineErrorProducesErrorEnvelope(t *testing.T) {
	stub := &stubOptimizer{
		optimizeResult: &optimizer.Result{Text: "First answer", ResponseTime: time.Second, Mode: optimizer.ModeStandard},
		refineErr: &llm.CallError{
			Kind:         llm.KindConnection,
			Message:      "Unable to reach the model service",
			Suggestion:   "Check that the service is running",
			ResponseTime: 200 * time.Millisecond,
		},
	}
	conn := dialChatSocket(t, stub)

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameUserInput, Content: "sort my sheet"}))
	readEnvelope(t, conn) // processing
	readEnvelope(t, conn) // ai_response

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameUserInput, Content: "only column B"}))
	readEnvelope(t, conn) // processing

	errEnv := readEnvelope(t, conn)
	assert.Equal(t, session.TypeError, errEnv.Type)
	assert.Equal(t, string(llm.KindConnection), errEnv.ErrorType)
	assert.Equal(t, "Check that the service is running", errEnv.ErrorSuggestion)
}

func TestChatSocket_UnknownFrameTypeIsIgnored(t *testing.T) {
	stub := &stubOptimizer{
		optimizeResult: &optimizer.Result{Text: "Answer", ResponseTime: time.Second, Mode: optimizer.ModeStandard},
	}
	conn := dialChatSocket(t, stub)

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: "bogus", Content: "x"}))
	require.NoError(t, conn.WriteJSON(inboundFrame{Type: FrameUserInput, Content: "sort my sheet"}))

	// The bogus frame produces nothing; the next envelope is the
	// processing notice for the real input.
	processing := readEnvelope(t, conn)
	assert.Equal(t, session.TypeProcessing, processing.Type)
}
