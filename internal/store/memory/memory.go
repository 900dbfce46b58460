// Package memory provides in-memory MetadataStore and NodeStore
// implementations, adapted from the teacher's chat_store_memory.go, used by
// tests and by dev-mode runs without a database.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"dagchat/internal/store"
)

// MetadataStore is an in-memory implementation of store.MetadataStore.
type MetadataStore struct {
	mu            sync.RWMutex
	conversations map[string]store.Conversation
}

// NewMetadataStore returns an empty in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{conversations: make(map[string]store.Conversation)}
}

func (m *MetadataStore) Init(ctx context.Context) error { return nil }

func (m *MetadataStore) Create(ctx context.Context, id, userID, model string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	m.conversations[id] = store.Conversation{
		ID:         id,
		UserID:     userID,
		Model:      model,
		CreateTime: now,
		UpdateTime: now,
	}
	return nil
}

func (m *MetadataStore) UpdateHeader(ctx context.Context, id string, upd store.HeaderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.Model != nil {
		c.Model = *upd.Model
	}
	c.UpdateTime = time.Now().UTC()
	m.conversations[id] = c
	return nil
}

func (m *MetadataStore) List(ctx context.Context, userID string, page, pageSize int) ([]store.Conversation, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []store.Conversation
	for _, c := range m.conversations {
		if c.UserID == userID {
			all = append(all, c)
		}
	}
	sortByUpdateTimeDesc(all)

	total := len(all)
	start := (page - 1) * pageSize
	if start >= total || start < 0 {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	out := make([]store.Conversation, end-start)
	copy(out, all[start:end])
	return out, total, nil
}

func (m *MetadataStore) Rename(ctx context.Context, id, userID, newTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	c.Title = newTitle
	c.UpdateTime = time.Now().UTC()
	m.conversations[id] = c
	return nil
}

func (m *MetadataStore) Delete(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.conversations, id)
	return nil
}

func (m *MetadataStore) ReadModels(ctx context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok {
		return "", store.ErrNotFound
	}
	return c.Model, nil
}

func (m *MetadataStore) WriteModels(ctx context.Context, id, models string, updateTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Model = models
	c.UpdateTime = updateTime
	m.conversations[id] = c
	return nil
}

func sortByUpdateTimeDesc(cs []store.Conversation) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].UpdateTime.After(cs[j-1].UpdateTime); j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

// NodeStore is an in-memory implementation of store.NodeStore.
type NodeStore struct {
	mu      sync.RWMutex
	nodes   map[string]store.MessageNode
	counter int64
}

// NewNodeStore returns an empty in-memory node store.
func NewNodeStore() *NodeStore {
	return &NodeStore{nodes: make(map[string]store.MessageNode)}
}

func (n *NodeStore) Init(ctx context.Context) error { return nil }

func (n *NodeStore) Insert(ctx context.Context, doc store.MessageNode) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if doc.ID == "" {
		n.counter++
		doc.ID = strconv.FormatInt(n.counter, 10)
	}
	now := time.Now().UTC()
	if doc.CreateTime.IsZero() {
		doc.CreateTime = now
	}
	if doc.UpdateTime.IsZero() {
		doc.UpdateTime = now
	}
	n.nodes[doc.ID] = doc
	return doc.ID, nil
}

func (n *NodeStore) FindByIDs(ctx context.Context, ids []string) ([]store.MessageNode, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]store.MessageNode, 0, len(ids))
	for _, id := range ids {
		if doc, ok := n.nodes[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (n *NodeStore) FindByConversation(ctx context.Context, convID string) ([]store.MessageNode, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var out []store.MessageNode
	for _, doc := range n.nodes {
		if doc.ConversationID == convID {
			out = append(out, doc)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreateTime.Before(out[j-1].CreateTime); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (n *NodeStore) AddChild(ctx context.Context, id, childID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	doc, ok := n.nodes[id]
	if !ok {
		return store.ErrNotFound
	}
	for _, c := range doc.Children {
		if c == childID {
			return nil
		}
	}
	doc.Children = append(doc.Children, childID)
	doc.UpdateTime = time.Now().UTC()
	n.nodes[id] = doc
	return nil
}

func (n *NodeStore) DeleteByConversation(ctx context.Context, convID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, doc := range n.nodes {
		if doc.ConversationID == convID {
			delete(n.nodes, id)
		}
	}
	return nil
}
