package chat

import "github.com/google/uuid"

// ThreadID identifies a thread in the session index. A thread starts as a
// draft with a client-local identifier and, after its first completed
// exchange, is promoted to the identifier issued by storage. The draft or
// persisted nature is part of the value, so call sites never have to guess
// from the shape of a string.
type ThreadID struct {
	draft bool
	id    string
}

// NewDraftID allocates a fresh client-local draft identifier, unique within
// the process lifetime.
func NewDraftID() ThreadID {
	return ThreadID{draft: true, id: uuid.New().String()}
}

// PersistedID wraps a storage-issued thread identifier.
func PersistedID(id string) ThreadID {
	return ThreadID{id: id}
}

// RefID reconstructs a ThreadID from its wire representation: the raw
// identifier plus an explicit draft flag.
func RefID(id string, draft bool) ThreadID {
	return ThreadID{draft: draft, id: id}
}

// Value returns the raw identifier without the draft tag.
func (t ThreadID) Value() string { return t.id }

// IsDraft reports whether the thread has not been promoted yet.
func (t ThreadID) IsDraft() bool { return t.draft }

// IsZero reports whether the value identifies nothing.
func (t ThreadID) IsZero() bool { return t.id == "" }

// StorageID returns the storage identifier, or "" for drafts.
func (t ThreadID) StorageID() string {
	if t.draft {
		return ""
	}
	return t.id
}

func (t ThreadID) String() string {
	if t.draft {
		return "draft:" + t.id
	}
	return t.id
}
