package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oipromot/office-optimizer/internal/gateway"
	"github.com/oipromot/office-optimizer/internal/llm"
	"github.com/oipromot/office-optimizer/internal/optimizer"
	"github.com/oipromot/office-optimizer/internal/session"
	"github.com/oipromot/office-optimizer/tests/helpers"
)

// newMockModelServer serves OpenAI-compatible chat completions, tracking
// the prompts it receives.
func newMockModelServer(t *testing.T, reply string) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, m := range req.Messages {
			if m.Role == "user" {
				prompts = append(prompts, m.Content)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(helpers.MockCompletionResponse(reply))
	}))
	t.Cleanup(server.Close)

	return server, &prompts
}

func chatTestClient(server *httptest.Server) *llm.Client {
	return llm.NewClient(llm.Config{
		BaseURL:     server.URL + "/v1",
		APIKey:      "sk-test",
		Model:       "qwen3:1.7b",
		MaxTokens:   1500,
		Temperature: 0.1,
		Timeout:     5 * time.Second,
	})
}

func TestChatWebSocketEndToEnd(t *testing.T) {
	modelServer, prompts := newMockModelServer(t, "<think>internal reasoning</think>Sort column B ascending in the current sheet")

	opt := optimizer.New(chatTestClient(modelServer), nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	socket := gateway.NewChatSocket(opt, nil, nil)
	router.GET("/ws/chat", socket.HandleChat)

	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	read := func() session.Envelope {
		var env session.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		return env
	}

	// Initial requirement
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "user_input", "content": "help me sort a sheet"}))

	env := read()
	assert.Equal(t, session.TypeProcessing, env.Type)

	env = read()
	assert.Equal(t, session.TypeAIResponse, env.Type)
	// Think block is stripped before the content reaches the wire
	assert.Equal(t, "Sort column B ascending in the current sheet", env.Content)
	assert.Equal(t, optimizer.ModeStandard, env.Mode)
	assert.Greater(t, env.ResponseTime, 0.0)

	// Feedback round: the refine prompt carries the prior description
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "user_input", "content": "make it descending"}))

	env = read()
	assert.Equal(t, session.TypeProcessing, env.Type)

	env = read()
	assert.Equal(t, session.TypeAIResponseRefined, env.Type)

	require.Len(t, *prompts, 2)
	assert.Contains(t, (*prompts)[1], "Previous requirement description:")
	assert.Contains(t, (*prompts)[1], "User feedback: make it descending")

	// Reset
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "new_conversation"}))
	env = read()
	assert.Equal(t, session.TypeNewConversation, env.Type)
	assert.Equal(t, "开始新对话", env.Content)
}

func TestChatFallbackWhenModelUnreachable(t *testing.T) {
	// Point the client at a closed port: the initial path degrades to the
	// local cleanup transform instead of failing.
	client := llm.NewClient(llm.Config{
		BaseURL:     "http://127.0.0.1:1/v1",
		APIKey:      "sk-test",
		Model:       "qwen3:1.7b",
		MaxTokens:   1500,
		Temperature: 0.1,
		Timeout:     time.Second,
	})
	opt := optimizer.New(client, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := gateway.NewHandler(nil, nil, opt)
	router.POST("/api/messages", handler.PostMessage)

	server := httptest.NewServer(router)
	defer server.Close()

	body := strings.NewReader(`{"message":"please help me sort the sheet"}`)
	resp, err := http.Post(server.URL+"/api/messages", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env session.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, session.TypeAIResponse, env.Type)
	assert.Equal(t, optimizer.ModeFallback, env.Mode)
	assert.Equal(t, "Sort the sheet", env.Content)
}
