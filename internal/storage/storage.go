package storage

import (
	"context"
	"errors"

	"github.com/luzzdev/luzzia/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the persistence boundary for the whole service.
type Storage interface {
	ThreadStorage
	AdminStorage

	Close() error
}

// ThreadStorage persists conversation threads and their messages.
type ThreadStorage interface {
	// ListThreads returns all threads ordered by most recently updated,
	// each with its messages embedded in creation order.
	ListThreads(ctx context.Context) ([]*models.Thread, error)

	// CreateThread persists a new thread together with its initial messages
	// and fills in the storage-issued thread ID and timestamps.
	CreateThread(ctx context.Context, thread *models.Thread) error

	// AppendMessages adds messages to an existing thread and touches its
	// updated_at timestamp.
	AppendMessages(ctx context.Context, threadID string, msgs []*models.Message) error

	DeleteThread(ctx context.Context, threadID string) error
	RenameThread(ctx context.Context, threadID, title string) error
}

// AdminStorage covers the CRUD records managed from the admin console.
type AdminStorage interface {
	ListAgents(ctx context.Context) ([]*models.Agent, error)
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	CreateAgent(ctx context.Context, agent *models.Agent) error
	UpdateAgent(ctx context.Context, agent *models.Agent) error
	DeleteAgent(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error

	ListProviders(ctx context.Context) ([]*models.APIProvider, error)
	// GetActiveProvider returns the active provider row with a non-empty
	// API key, or ErrNotFound when generation is unconfigured.
	GetActiveProvider(ctx context.Context) (*models.APIProvider, error)
	CreateProvider(ctx context.Context, p *models.APIProvider) error
	UpdateProvider(ctx context.Context, p *models.APIProvider) error
	DeleteProvider(ctx context.Context, id string) error

	ListWebhooks(ctx context.Context) ([]*models.Webhook, error)
	CreateWebhook(ctx context.Context, w *models.Webhook) error
	UpdateWebhook(ctx context.Context, w *models.Webhook) error
	DeleteWebhook(ctx context.Context, id string) error
}
