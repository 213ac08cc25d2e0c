// Package store provides the persistence layer: users, favorite commands,
// stored prompts and optimization records on PostgreSQL via pgx.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/oipromot/office-optimizer/internal/models"
)

// BcryptCost is the cost factor for bcrypt hashing (10 = ~100ms)
const BcryptCost = 10

// Sentinel errors surfaced to the gateway layer.
var (
	ErrNotFound           = errors.New("record not found")
	ErrAlreadyExists      = errors.New("record already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Store wraps a pgx connection pool with the application's CRUD operations.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store around an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the application tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username TEXT UNIQUE NOT NULL,
			hashed_password TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_login TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS favorite_commands (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id),
			command TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS prompts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS optimization_records (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			session_id TEXT NOT NULL,
			user_id UUID,
			original_prompt TEXT NOT NULL,
			optimized_prompt TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateUser creates a user with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, HashedPassword: string(hashed), IsActive: true}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO users (username, hashed_password)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		username, string(hashed),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// AuthenticateUser verifies the password for an active user and updates
// last_login on success.
func (s *Store) AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	_, err = s.pool.Exec(ctx,
		`UPDATE users SET last_login = $1, updated_at = $1 WHERE id = $2`,
		now, user.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLogin = &now
	user.UpdatedAt = now

	return user, nil
}

// GetUserByUsername fetches an active user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `username = $1`, username)
}

// GetUserByID fetches an active user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, hashed_password, is_active, created_at, updated_at, last_login
		 FROM users WHERE `+where+` AND is_active = TRUE`,
		arg,
	).Scan(&user.ID, &user.Username, &user.HashedPassword, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateFavoriteCommand saves a favorite command for a user.
func (s *Store) CreateFavoriteCommand(ctx context.Context, userID string, create models.FavoriteCommandCreate) (*models.FavoriteCommand, error) {
	fav := &models.FavoriteCommand{
		UserID:      userID,
		Command:     create.Command,
		Description: create.Description,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO favorite_commands (user_id, command, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		userID, create.Command, create.Description,
	).Scan(&fav.ID, &fav.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create favorite command: %w", err)
	}
	return fav, nil
}

// GetUserFavoriteCommands lists a user's active favorite commands, newest first.
func (s *Store) GetUserFavoriteCommands(ctx context.Context, userID string) ([]models.FavoriteCommand, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, command, description, created_at
		 FROM favorite_commands
		 WHERE user_id = $1 AND is_active = TRUE
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorite commands: %w", err)
	}
	defer rows.Close()

	var favorites []models.FavoriteCommand
	for rows.Next() {
		var fav models.FavoriteCommand
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.Command, &fav.Description, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite command: %w", err)
		}
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

// DeleteFavoriteCommand soft-deletes a favorite command owned by userID.
func (s *Store) DeleteFavoriteCommand(ctx context.Context, userID, favoriteID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE favorite_commands SET is_active = FALSE
		 WHERE id = $1 AND user_id = $2 AND is_active = TRUE`,
		favoriteID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete favorite command: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePrompt stores a reusable prompt.
func (s *Store) CreatePrompt(ctx context.Context, create models.PromptCreate) (*models.Prompt, error) {
	prompt := &models.Prompt{Title: create.Title, Content: create.Content}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO prompts (title, content)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		create.Title, create.Content,
	).Scan(&prompt.ID, &prompt.CreatedAt, &prompt.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt: %w", err)
	}
	return prompt, nil
}

// GetPrompt fetches an active prompt by id.
func (s *Store) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	var prompt models.Prompt
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, content, created_at, updated_at
		 FROM prompts WHERE id = $1 AND is_active = TRUE`,
		id,
	).Scan(&prompt.ID, &prompt.Title, &prompt.Content, &prompt.CreatedAt, &prompt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return &prompt, nil
}

// ListPrompts lists all active prompts, newest first.
func (s *Store) ListPrompts(ctx context.Context) ([]models.Prompt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, created_at, updated_at
		 FROM prompts WHERE is_active = TRUE
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.Prompt
	for rows.Next() {
		var prompt models.Prompt
		if err := rows.Scan(&prompt.ID, &prompt.Title, &prompt.Content, &prompt.CreatedAt, &prompt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		prompts = append(prompts, prompt)
	}
	return prompts, rows.Err()
}

// UpdatePrompt replaces title and content of an active prompt.
func (s *Store) UpdatePrompt(ctx context.Context, id string, update models.PromptCreate) (*models.Prompt, error) {
	var prompt models.Prompt
	err := s.pool.QueryRow(ctx,
		`UPDATE prompts SET title = $1, content = $2, updated_at = now()
		 WHERE id = $3 AND is_active = TRUE
		 RETURNING id, title, content, created_at, updated_at`,
		update.Title, update.Content, id,
	).Scan(&prompt.ID, &prompt.Title, &prompt.Content, &prompt.CreatedAt, &prompt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}
	return &prompt, nil
}

// DeletePrompt soft-deletes a prompt.
func (s *Store) DeletePrompt(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE prompts SET is_active = FALSE WHERE id = $1 AND is_active = TRUE`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveOptimizationRecord persists the trace of one optimization turn.
// userID may be empty for anonymous chat sessions.
func (s *Store) SaveOptimizationRecord(ctx context.Context, record models.OptimizationRecord) (string, error) {
	var userID any
	if record.UserID != "" {
		userID = record.UserID
	}

	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO optimization_records (session_id, user_id, original_prompt, optimized_prompt, mode, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		record.SessionID, userID, record.OriginalPrompt, record.OptimizedPrompt, record.Mode, string(record.Status),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to save optimization record: %w", err)
	}
	return id, nil
}
