package helpers

import (
	"encoding/json"
)

// TestUser represents a test user fixture
type TestUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Default test fixtures
var (
	DefaultTestUser = TestUser{
		Username: "testuser",
		Password: "test-password-123",
	}

	DefaultTestFavorite = map[string]interface{}{
		"command":     "Insert SUM formula for the selected column range",
		"description": "Quick column totals",
	}

	DefaultTestPrompt = map[string]interface{}{
		"title":   "Weekly report summary",
		"content": "Summarize the attached weekly report into five bullet points",
	}
)

// ToJSON converts a fixture to JSON string
func ToJSON(fixture interface{}) string {
	data, _ := json.Marshal(fixture)
	return string(data)
}

// FromJSON parses JSON string to map
func FromJSON(jsonStr string) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal([]byte(jsonStr), &result)
	return result
}

// CreateTestLoginRequest creates a login request payload
func CreateTestLoginRequest(username, password string) map[string]interface{} {
	return map[string]interface{}{
		"username": username,
		"password": password,
	}
}

// CreateTestRegisterRequest creates a registration request payload
func CreateTestRegisterRequest(username, password string) map[string]interface{} {
	return map[string]interface{}{
		"username": username,
		"password": password,
	}
}

// MockCompletionResponse builds an OpenAI-compatible chat completion body
// for httptest model servers.
func MockCompletionResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
	}
}
