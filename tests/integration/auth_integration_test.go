package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oipromot/office-optimizer/internal/auth"
	"github.com/oipromot/office-optimizer/internal/gateway"
	"github.com/oipromot/office-optimizer/tests/helpers"
)

func TestAuthenticationIntegration(t *testing.T) {
	t.Setenv("JWT_SECRET", "integration-test-secret-key-value")

	// Setup test environment with real infrastructure
	testDB := helpers.RequireTestDatabase(t)
	defer testDB.Close()
	defer testDB.CleanupTables(t)

	jwtManager, err := auth.NewJWTManager()
	require.NoError(t, err)

	gatewayHandler := gateway.NewHandler(testDB.Store, jwtManager, nil)

	// Setup Gin router
	gin.SetMode(gin.TestMode)
	router := gin.New()

	api := router.Group("/api")
	api.POST("/auth/login", gatewayHandler.Login)
	api.POST("/auth/register", gatewayHandler.Register)

	protected := api.Group("")
	protected.Use(auth.RequireAuth(jwtManager))
	protected.POST("/favorites", gatewayHandler.CreateFavorite)
	protected.GET("/favorites", gatewayHandler.ListFavorites)
	protected.DELETE("/favorites/:id", gatewayHandler.DeleteFavorite)
	protected.POST("/prompts", gatewayHandler.CreatePrompt)
	protected.GET("/prompts", gatewayHandler.ListPrompts)

	doJSON := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	username := fmt.Sprintf("auth-user-%d", time.Now().UnixNano())
	password := "integration-pass-1"

	var token string

	t.Run("Register And Login", func(t *testing.T) {
		w := doJSON(http.MethodPost, "/api/auth/register", "", helpers.CreateTestRegisterRequest(username, password))
		require.Equal(t, http.StatusCreated, w.Code)

		// Duplicate registration is rejected
		w = doJSON(http.MethodPost, "/api/auth/register", "", helpers.CreateTestRegisterRequest(username, password))
		assert.Equal(t, http.StatusConflict, w.Code)

		w = doJSON(http.MethodPost, "/api/auth/login", "", helpers.CreateTestLoginRequest(username, password))
		require.Equal(t, http.StatusOK, w.Code)

		var login struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
		require.NotEmpty(t, login.Token)
		token = login.Token

		claims, err := jwtManager.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, username, claims.Username)
		assert.True(t, claims.ExpiresAt.After(time.Now()))
	})

	t.Run("Wrong Password Is Rejected", func(t *testing.T) {
		w := doJSON(http.MethodPost, "/api/auth/login", "", helpers.CreateTestLoginRequest(username, "wrong-password-9"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Authentication Required", func(t *testing.T) {
		w := doJSON(http.MethodGet, "/api/favorites", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = doJSON(http.MethodGet, "/api/favorites", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Favorites CRUD", func(t *testing.T) {
		w := doJSON(http.MethodPost, "/api/favorites", token, helpers.DefaultTestFavorite)
		require.Equal(t, http.StatusCreated, w.Code)

		var created struct {
			ID      string `json:"id"`
			Command string `json:"command"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, helpers.DefaultTestFavorite["command"], created.Command)

		w = doJSON(http.MethodGet, "/api/favorites", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var listed []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
		require.Len(t, listed, 1)

		w = doJSON(http.MethodDelete, "/api/favorites/"+created.ID, token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(http.MethodGet, "/api/favorites", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		listed = nil
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
		assert.Empty(t, listed)

		// Deleting again reports not found
		w = doJSON(http.MethodDelete, "/api/favorites/"+created.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Prompts Create And List", func(t *testing.T) {
		w := doJSON(http.MethodPost, "/api/prompts", token, helpers.DefaultTestPrompt)
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(http.MethodGet, "/api/prompts", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var listed []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
		require.NotEmpty(t, listed)
		assert.Equal(t, helpers.DefaultTestPrompt["title"], listed[0]["title"])
	})
}
