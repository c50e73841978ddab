package ai

import (
	"context"
	"errors"

	"github.com/luzzdev/luzzia/internal/models"
)

// ErrNoProvider indicates that no active provider with a usable API key is
// configured in the admin panel.
var ErrNoProvider = errors.New("no active generation provider configured")

// Turn is one prior exchange turn sent as context to the provider.
type Turn struct {
	Role    models.Role
	Content string
}

// Request carries everything one generation call needs.
type Request struct {
	SystemPrompt string
	History      []Turn
	Text         string
}

// Classification is the result of the title/category call made after the
// first exchange of a thread.
type Classification struct {
	Title    string          `json:"title"`
	Category models.Category `json:"type"`
}

// Generator is the boundary to the text-generation provider.
//
// Generate returns the full assistant reply. When onDelta is non-nil the
// provider is asked to stream and every partial chunk is delivered through
// the callback before the call returns; onDelta is never invoked after
// Generate returns.
type Generator interface {
	// Ready reports whether a usable credential is configured. Returns
	// ErrNoProvider (possibly wrapped) when generation cannot proceed.
	Ready(ctx context.Context) error

	Generate(ctx context.Context, req Request, onDelta func(delta string)) (string, error)

	// Classify derives a short title and a category from the first exchange
	// of a thread: the user's message plus, when available, the assistant's
	// reply. Callers are expected to fall back to defaults on error; a
	// failed classification is never fatal.
	Classify(ctx context.Context, userText, reply string) (*Classification, error)
}
