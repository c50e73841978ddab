package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/luzzdev/luzzia/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

// Thread methods

func (s *PostgresStorage) ListThreads(ctx context.Context) ([]*models.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, title, type, summary, created_at, updated_at
		FROM threads
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.Thread
	byID := make(map[string]*models.Thread)
	for rows.Next() {
		t := &models.Thread{}
		if err := rows.Scan(&t.ID, &t.AgentID, &t.Title, &t.Type, &t.Summary, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning thread: %w", err)
		}
		threads = append(threads, t)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}

	msgRows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, role, content, agent_name, created_at
		FROM messages
		ORDER BY thread_id, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		m := &models.Message{}
		if err := msgRows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &m.AgentName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		if t, ok := byID[m.ThreadID]; ok {
			t.Messages = append(t.Messages, m)
		}
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return threads, nil
}

func (s *PostgresStorage) CreateThread(ctx context.Context, thread *models.Thread) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	thread.ID = uuid.New().String()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO threads (id, agent_id, title, type, summary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		thread.ID, thread.AgentID, thread.Title, thread.Type, thread.Summary,
	).Scan(&thread.CreatedAt, &thread.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating thread: %w", err)
	}

	for _, m := range thread.Messages {
		m.ThreadID = thread.ID
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if err := insertMessage(ctx, tx, m); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing thread: %w", err)
	}
	return nil
}

func (s *PostgresStorage) AppendMessages(ctx context.Context, threadID string, msgs []*models.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		m.ThreadID = threadID
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if err := insertMessage(ctx, tx, m); err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx, `UPDATE threads SET updated_at = $1 WHERE id = $2`, time.Now(), threadID)
	if err != nil {
		return fmt.Errorf("error touching thread: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing messages: %w", err)
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *models.Message) error {
	var err error
	if m.CreatedAt.IsZero() {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO messages (id, thread_id, role, content, agent_name)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			m.ID, m.ThreadID, m.Role, m.Content, m.AgentName,
		).Scan(&m.CreatedAt)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, thread_id, role, content, agent_name, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, m.ThreadID, m.Role, m.Content, m.AgentName, m.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("error inserting message: %w", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteThread(ctx context.Context, threadID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = $1`, threadID)
	if err != nil {
		return fmt.Errorf("error deleting thread: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStorage) RenameThread(ctx context.Context, threadID, title string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE threads SET title = $1, updated_at = $2 WHERE id = $3`,
		title, time.Now(), threadID)
	if err != nil {
		return fmt.Errorf("error renaming thread: %w", err)
	}
	return requireAffected(result)
}

// Agent methods

func (s *PostgresStorage) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, personality, system_prompt, created_at
		FROM agents
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying agents: %w", err)
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		a := &models.Agent{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Personality, &a.SystemPrompt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *PostgresStorage) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	a := &models.Agent{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, personality, system_prompt, created_at
		FROM agents WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Description, &a.Personality, &a.SystemPrompt, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying agent: %w", err)
	}
	return a, nil
}

func (s *PostgresStorage) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO agents (id, name, description, personality, system_prompt)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		agent.ID, agent.Name, agent.Description, agent.Personality, agent.SystemPrompt,
	).Scan(&agent.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating agent: %w", err)
	}
	return nil
}

func (s *PostgresStorage) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE agents SET name = $1, description = $2, personality = $3, system_prompt = $4
		WHERE id = $5`,
		agent.Name, agent.Description, agent.Personality, agent.SystemPrompt, agent.ID)
	if err != nil {
		return fmt.Errorf("error updating agent: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStorage) DeleteAgent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting agent: %w", err)
	}
	return requireAffected(result)
}

// User methods

func (s *PostgresStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, role, created_at, last_login
		FROM users
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &lastLogin); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning user: %w", err)
	}
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time
	}
	return u, nil
}

func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at, last_login
		FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *PostgresStorage) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		user.ID, user.Username, user.PasswordHash, user.Role,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (s *PostgresStorage) UpdateUser(ctx context.Context, user *models.User) error {
	var lastLogin any
	if !user.LastLogin.IsZero() {
		lastLogin = user.LastLogin
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = $1, role = $2,
			password_hash = COALESCE(NULLIF($3, ''), password_hash),
			last_login = COALESCE($4, last_login)
		WHERE id = $5`,
		user.Username, user.Role, user.PasswordHash, lastLogin, user.ID)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStorage) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	return requireAffected(result)
}

// Provider methods

func (s *PostgresStorage) ListProviders(ctx context.Context) ([]*models.APIProvider, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_id, name, api_key, model, is_active, created_at
		FROM api_providers
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying providers: %w", err)
	}
	defer rows.Close()

	var providers []*models.APIProvider
	for rows.Next() {
		p := &models.APIProvider{}
		if err := rows.Scan(&p.ID, &p.Provider, &p.Name, &p.APIKey, &p.Model, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

func (s *PostgresStorage) GetActiveProvider(ctx context.Context) (*models.APIProvider, error) {
	p := &models.APIProvider{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, provider_id, name, api_key, model, is_active, created_at
		FROM api_providers
		WHERE is_active = TRUE AND api_key <> ''
		ORDER BY created_at ASC
		LIMIT 1`,
	).Scan(&p.ID, &p.Provider, &p.Name, &p.APIKey, &p.Model, &p.IsActive, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying active provider: %w", err)
	}
	return p, nil
}

func (s *PostgresStorage) CreateProvider(ctx context.Context, p *models.APIProvider) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO api_providers (id, provider_id, name, api_key, model, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		p.ID, p.Provider, p.Name, p.APIKey, p.Model, p.IsActive,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating provider: %w", err)
	}
	return nil
}

func (s *PostgresStorage) UpdateProvider(ctx context.Context, p *models.APIProvider) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE api_providers SET api_key = $1, model = $2, is_active = $3
		WHERE id = $4`,
		p.APIKey, p.Model, p.IsActive, p.ID)
	if err != nil {
		return fmt.Errorf("error updating provider: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStorage) DeleteProvider(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM api_providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting provider: %w", err)
	}
	return requireAffected(result)
}

// Webhook methods

func (s *PostgresStorage) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, event, created_at
		FROM webhooks
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*models.Webhook
	for rows.Next() {
		w := &models.Webhook{}
		if err := rows.Scan(&w.ID, &w.Name, &w.URL, &w.Event, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (s *PostgresStorage) CreateWebhook(ctx context.Context, w *models.Webhook) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO webhooks (id, name, url, event)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		w.ID, w.Name, w.URL, w.Event,
	).Scan(&w.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating webhook: %w", err)
	}
	return nil
}

func (s *PostgresStorage) UpdateWebhook(ctx context.Context, w *models.Webhook) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE webhooks SET name = $1, url = $2, event = $3 WHERE id = $4`,
		w.Name, w.URL, w.Event, w.ID)
	if err != nil {
		return fmt.Errorf("error updating webhook: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStorage) DeleteWebhook(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting webhook: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
