// Package store defines the persistence contracts for conversation metadata
// (C1) and message-DAG nodes (C2). Concrete backends live in the postgres,
// mongo, and memory subpackages.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup targets a conversation or node that
// does not exist, or does not belong to the requesting user.
var ErrNotFound = errors.New("store: not found")

// Conversation is the durable header for a DAG-chat conversation (C1).
type Conversation struct {
	ID         string
	UserID     string
	Title      string
	Model      string // comma-joined, insertion-ordered, deduplicated provider set
	CreateTime time.Time
	UpdateTime time.Time
}

// HeaderUpdate is a partial update applied to a Conversation header.
// Nil fields are left unchanged.
type HeaderUpdate struct {
	Title *string
	Model *string
}

// MetadataStore is the contract for C1, the relational conversation store.
type MetadataStore interface {
	Init(ctx context.Context) error

	// Create inserts a new conversation header with an empty title.
	Create(ctx context.Context, id, userID, model string) error

	// UpdateHeader applies a partial update plus a fresh update_time.
	UpdateHeader(ctx context.Context, id string, upd HeaderUpdate) error

	// List returns a page of conversations for userID, newest update_time first.
	List(ctx context.Context, userID string, page, pageSize int) ([]Conversation, int, error)

	// Rename applies a new title. Fails with ErrNotFound if (id, userID)
	// does not match an existing conversation. The title itself is not
	// checked here; the HTTP rename handler rejects empty or >64-rune titles.
	Rename(ctx context.Context, id, userID, newTitle string) error

	// Delete removes the conversation header only; callers must separately
	// ask the NodeStore to cascade-delete its nodes.
	Delete(ctx context.Context, id, userID string) error

	// ReadModels and WriteModels support the model-set update rule (§4.1):
	// read the current comma-joined set, compute the updated set, write it
	// back. Split out so the dispatcher can apply the rule without
	// duplicating parsing logic per backend.
	ReadModels(ctx context.Context, id string) (string, error)
	WriteModels(ctx context.Context, id, models string, updateTime time.Time) error
}

// MessageNode is a document in the message DAG (C2).
type MessageNode struct {
	ID             string
	ConversationID string
	Role           string // "user" | "assistant"
	Content        string
	Reasoning      string
	Model          string
	ParentIDs      []string
	Children       []string
	CreateTime     time.Time
	UpdateTime     time.Time
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NodeStore is the contract for C2, the document-shaped node store.
type NodeStore interface {
	Init(ctx context.Context) error

	// Insert assigns an id (if the document has none) and create/update
	// times (if absent), then persists the document.
	Insert(ctx context.Context, doc MessageNode) (string, error)

	// FindByIDs is a batched primary-key lookup. Unknown ids are silently
	// omitted from the result, never an error.
	FindByIDs(ctx context.Context, ids []string) ([]MessageNode, error)

	// FindByConversation returns every node for convID, create_time ascending.
	FindByConversation(ctx context.Context, convID string) ([]MessageNode, error)

	// AddChild appends childID to node id's children set, idempotently.
	AddChild(ctx context.Context, id, childID string) error

	// DeleteByConversation cascade-deletes every node for convID.
	DeleteByConversation(ctx context.Context, convID string) error
}
