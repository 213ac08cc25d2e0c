package gateway

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oipromot/office-optimizer/internal/auth"
	"github.com/oipromot/office-optimizer/internal/capability"
	"github.com/oipromot/office-optimizer/internal/models"
	"github.com/oipromot/office-optimizer/internal/session"
	"github.com/oipromot/office-optimizer/internal/store"
)

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	store      *store.Store
	jwtManager *auth.JWTManager
	optimizer  session.RequirementOptimizer
	analyzer   *capability.Analyzer

	mu       sync.Mutex
	sessions map[string]*session.Manager
}

// NewHandler creates a new gateway handler
func NewHandler(st *store.Store, jwtManager *auth.JWTManager, opt session.RequirementOptimizer) *Handler {
	return &Handler{
		store:      st,
		jwtManager: jwtManager,
		optimizer:  opt,
		analyzer:   capability.NewAnalyzer(),
		sessions:   make(map[string]*session.Manager),
	}
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	user, err := h.store.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		log.Printf(`{"level":"warn","message":"Login failed","username":"%s"}`, req.Username)
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid username or password", Code: models.ErrCodeUnauthorized})
		return
	}

	token, err := h.jwtManager.GenerateToken(c.Request.Context(), user.ID, user.Username, auth.TokenDuration)
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to generate token","error":"%v"}`, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(auth.TokenDuration),
		User:      user.ToUserInfo(),
	})
}

// Register godoc
// @Summary Register user
// @Description Create a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration details"
// @Success 201 {object} models.UserInfo
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeValidationFailed})
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "Username already taken", Code: models.ErrCodeAlreadyExists})
			return
		}
		log.Printf(`{"level":"error","message":"Failed to create user","error":"%v"}`, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create user", Code: models.ErrCodeInternalError})
		return
	}

	log.Printf(`{"level":"info","message":"User registered","user_id":"%s","username":"%s"}`, user.ID, user.Username)
	c.JSON(http.StatusCreated, user.ToUserInfo())
}

// CreateFavorite godoc
// @Summary Save favorite command
// @Description Save a frequently used command for the authenticated user
// @Tags favorites
// @Accept json
// @Produce json
// @Param request body models.FavoriteCommandCreate true "Favorite command"
// @Success 201 {object} models.FavoriteCommand
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /favorites [post]
func (h *Handler) CreateFavorite(c *gin.Context) {
	var req models.FavoriteCommandCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	userID := c.GetString(auth.UserIDKey)
	fav, err := h.store.CreateFavoriteCommand(c.Request.Context(), userID, req)
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to save favorite","error":"%v","user_id":"%s"}`, err, userID)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save favorite", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusCreated, fav)
}

// ListFavorites godoc
// @Summary List favorite commands
// @Description List the authenticated user's favorite commands, newest first
// @Tags favorites
// @Produce json
// @Success 200 {array} models.FavoriteCommand
// @Security BearerAuth
// @Router /favorites [get]
func (h *Handler) ListFavorites(c *gin.Context) {
	userID := c.GetString(auth.UserIDKey)
	favs, err := h.store.GetUserFavoriteCommands(c.Request.Context(), userID)
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to list favorites","error":"%v","user_id":"%s"}`, err, userID)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list favorites", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, favs)
}

// DeleteFavorite godoc
// @Summary Delete favorite command
// @Description Remove one of the authenticated user's favorite commands
// @Tags favorites
// @Produce json
// @Param id path string true "Favorite ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /favorites/{id} [delete]
func (h *Handler) DeleteFavorite(c *gin.Context) {
	userID := c.GetString(auth.UserIDKey)
	favoriteID := c.Param("id")

	if err := h.store.DeleteFavoriteCommand(c.Request.Context(), userID, favoriteID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Favorite not found", Code: models.ErrCodeNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to delete favorite", Code: models.ErrCodeInternalError})
		return
	}

	c.Status(http.StatusNoContent)
}

// CreatePrompt godoc
// @Summary Create prompt
// @Description Store a reusable prompt template
// @Tags prompts
// @Accept json
// @Produce json
// @Param request body models.PromptCreate true "Prompt"
// @Success 201 {object} models.Prompt
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /prompts [post]
func (h *Handler) CreatePrompt(c *gin.Context) {
	var req models.PromptCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	prompt, err := h.store.CreatePrompt(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create prompt", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusCreated, prompt)
}

// ListPrompts godoc
// @Summary List prompts
// @Tags prompts
// @Produce json
// @Success 200 {array} models.Prompt
// @Security BearerAuth
// @Router /prompts [get]
func (h *Handler) ListPrompts(c *gin.Context) {
	prompts, err := h.store.ListPrompts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list prompts", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, prompts)
}

// GetPrompt godoc
// @Summary Get prompt
// @Tags prompts
// @Produce json
// @Param id path string true "Prompt ID"
// @Success 200 {object} models.Prompt
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /prompts/{id} [get]
func (h *Handler) GetPrompt(c *gin.Context) {
	prompt, err := h.store.GetPrompt(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Prompt not found", Code: models.ErrCodeNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load prompt", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, prompt)
}

// UpdatePrompt godoc
// @Summary Update prompt
// @Tags prompts
// @Accept json
// @Produce json
// @Param id path string true "Prompt ID"
// @Param request body models.PromptCreate true "Prompt"
// @Success 200 {object} models.Prompt
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /prompts/{id} [put]
func (h *Handler) UpdatePrompt(c *gin.Context) {
	var req models.PromptCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	prompt, err := h.store.UpdatePrompt(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Prompt not found", Code: models.ErrCodeNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update prompt", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, prompt)
}

// DeletePrompt godoc
// @Summary Delete prompt
// @Tags prompts
// @Param id path string true "Prompt ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /prompts/{id} [delete]
func (h *Handler) DeletePrompt(c *gin.Context) {
	if err := h.store.DeletePrompt(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Prompt not found", Code: models.ErrCodeNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to delete prompt", Code: models.ErrCodeInternalError})
		return
	}

	c.Status(http.StatusNoContent)
}

// AnalyzeRequest is the body for the capability analysis endpoint.
type AnalyzeRequest struct {
	Task string `json:"task" binding:"required"`
}

// Analyze godoc
// @Summary Analyze task capability
// @Description Recommend AI, VBA, or a hybrid approach for an Office task
// @Tags analyze
// @Accept json
// @Produce json
// @Param request body AnalyzeRequest true "Task description"
// @Success 200 {object} capability.Recommendation
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /analyze [post]
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	c.JSON(http.StatusOK, h.analyzer.Analyze(req.Task))
}

// MessageRequest is the body for the form-style chat endpoint.
type MessageRequest struct {
	Message string `json:"message" form:"message" binding:"required"`
}

// sessionFor returns the conversation bound to the given session ID,
// creating it on first use. The boolean reports whether it already existed.
func (h *Handler) sessionFor(sessionID string) (*session.Manager, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if mgr, ok := h.sessions[sessionID]; ok {
		return mgr, true
	}
	mgr := session.NewManager(h.optimizer)
	h.sessions[sessionID] = mgr
	return mgr, false
}

// PostMessage godoc
// @Summary Send chat message
// @Description Submit a requirement or feedback for the session named by X-Session-ID
// @Tags chat
// @Accept json
// @Produce json
// @Param X-Session-ID header string false "Session ID, generated when absent"
// @Param request body MessageRequest true "Message"
// @Success 200 {object} session.Envelope
// @Failure 400 {object} models.ErrorResponse
// @Router /messages [post]
func (h *Handler) PostMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	c.Header("X-Session-ID", sessionID)

	mgr, _ := h.sessionFor(sessionID)
	env := mgr.Submit(c.Request.Context(), req.Message)

	h.recordOptimization(c, sessionID, req.Message, env)
	c.JSON(http.StatusOK, env)
}

// NewConversation godoc
// @Summary Start a new conversation
// @Description Reset the session named by X-Session-ID
// @Tags chat
// @Produce json
// @Param X-Session-ID header string true "Session ID"
// @Success 200 {object} session.Envelope
// @Router /conversations/new [post]
func (h *Handler) NewConversation(c *gin.Context) {
	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	c.Header("X-Session-ID", sessionID)

	mgr, _ := h.sessionFor(sessionID)
	c.JSON(http.StatusOK, mgr.Reset())
}

// recordOptimization persists one optimization outcome. Persistence failures
// never surface to the chat flow.
func (h *Handler) recordOptimization(c *gin.Context, sessionID, userInput string, env session.Envelope) {
	if h.store == nil {
		return
	}
	record := optimizationRecord(sessionID, c.GetString(auth.UserIDKey), userInput, env)
	if record == nil {
		return
	}
	if _, err := h.store.SaveOptimizationRecord(c.Request.Context(), *record); err != nil {
		log.Printf(`{"level":"warn","message":"Failed to save optimization record","error":"%v","session_id":"%s"}`, err, sessionID)
	}
}

// optimizationRecord maps a chat envelope onto a persistence row, or nil for
// envelope types that are not worth recording.
func optimizationRecord(sessionID, userID, userInput string, env session.Envelope) *models.OptimizationRecord {
	record := models.OptimizationRecord{
		SessionID:      sessionID,
		UserID:         userID,
		OriginalPrompt: userInput,
		Mode:           env.Mode,
	}

	switch env.Type {
	case session.TypeAIResponse, session.TypeAIResponseRefined:
		record.OptimizedPrompt = env.Content
		record.Status = models.OptimizationStatusCompleted
		if env.Mode == "fallback" {
			record.Status = models.OptimizationStatusFallback
		}
	case session.TypeError:
		record.Status = models.OptimizationStatusFailed
	default:
		return nil
	}

	return &record
}
