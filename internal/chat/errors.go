package chat

import "errors"

// Sentinel errors surfaced by the chat service. Callers should check them
// with errors.Is.
var (
	// ErrNoActiveSession indicates a send was attempted with no active
	// agent or thread selected.
	ErrNoActiveSession = errors.New("no active chat session")

	// ErrGenerationUnavailable indicates no usable provider credential is
	// configured in the admin panel.
	ErrGenerationUnavailable = errors.New("generation provider not configured")

	// ErrGenerationFailed indicates the generation call itself failed. The
	// user's message is preserved and a system message records the failure.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrSessionBusy indicates a send is already in flight on the thread.
	ErrSessionBusy = errors.New("a message is already in flight for this session")

	// ErrThreadNotFound indicates the thread identifier is not in the
	// session index.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrPersistenceFailed indicates a storage write failed. In-memory
	// state is intentionally not rolled back; the transcript the user sees
	// may be ahead of what reached storage.
	ErrPersistenceFailed = errors.New("persistence failed")
)
