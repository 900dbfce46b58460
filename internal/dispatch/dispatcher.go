// Package dispatch implements the streaming dispatcher (C6): the per-turn
// protocol that assembles history from the message DAG, resolves a provider,
// relays its token stream, and persists the turn's nodes and edges.
//
// Grounded in original_source's backend/api/routes/chat.py (the generate()/
// save_conversation_to_database() pair) for protocol shape, and in the
// teacher's internal/agentd/handlers_chat.go for the Go-idiomatic SSE-writer
// split (a narrow interface so the dispatcher never touches http.ResponseWriter
// directly and is unit-testable without a live HTTP round trip).
package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"dagchat/internal/dag"
	"dagchat/internal/llm"
	"dagchat/internal/observability"
	"dagchat/internal/store"
)

// ChatRequest is C6's entry contract (§4.6).
type ChatRequest struct {
	ConversationID string
	Message        string
	UserID         string
	ParentIDs      []string
	Model          string
	DeepThinking   bool
}

// Frame is one SSE payload, matching the three JSON shapes in §6.
type Frame struct {
	Content            string `json:"content,omitempty"`
	Reasoning          string `json:"reasoning,omitempty"`
	Error              string `json:"error,omitempty"`
	Details            string `json:"details,omitempty"`
	UserMessageID      string `json:"user_message_id,omitempty"`
	AssistantMessageID string `json:"assistant_message_id,omitempty"`
	Complete           bool   `json:"complete,omitempty"`
}

// SSEWriter is the narrow surface the dispatcher needs from the HTTP layer.
// WriteFrame returns a non-nil error exactly when the underlying transport
// can no longer deliver bytes (client disconnect); the dispatcher treats any
// such error as ClientAborted, never as an upstream failure.
type SSEWriter interface {
	WriteFrame(Frame) error
}

// ProviderResolver resolves a model name to a provider, mirroring C5's
// containment-based Get.
type ProviderResolver interface {
	Get(model string) (name string, provider llm.Provider)
}

// Dispatcher wires C1–C5 together into the per-turn protocol of §4.6.
type Dispatcher struct {
	Meta      store.MetadataStore
	Nodes     store.NodeStore
	Providers ProviderResolver
}

// Dispatch runs one full chat turn against sse, per §4.6.
func (d *Dispatcher) Dispatch(ctx context.Context, sse SSEWriter, req ChatRequest) {
	logger := observability.LoggerWithTrace(ctx)

	history, firstAsk, err := d.buildHistory(ctx, req.ParentIDs)
	if err != nil {
		logger.Warn().Err(err).Msg("subdag build failed, proceeding with empty history")
		history, firstAsk = nil, true
	}
	history = append(history, llm.Message{Role: store.RoleUser, Content: req.Message})

	providerName, provider := d.Providers.Get(req.Model)
	if provider == nil {
		_ = sse.WriteFrame(Frame{Error: "unsupported model: " + req.Model})
		return
	}

	var fullContent, fullReasoning strings.Builder
	upstreamErr := false

	for chunk := range provider.Stream(ctx, history, req.DeepThinking) {
		if chunk.Error != "" {
			_ = sse.WriteFrame(Frame{Error: chunk.Error, Details: chunk.Details})
			upstreamErr = true
			break
		}

		fullContent.WriteString(chunk.Content)
		fullReasoning.WriteString(chunk.Reasoning)

		if err := sse.WriteFrame(Frame{Content: chunk.Content, Reasoning: chunk.Reasoning}); err != nil {
			// Client disconnect: end silently, discard accumulation, no
			// error frame, no persistence (§4.6 client-disconnect semantics).
			logger.Info().Msg("client disconnected mid-stream")
			return
		}
	}

	if upstreamErr {
		return
	}

	userID, assistantID, err := d.persistTurn(ctx, req, providerName, fullContent.String(), fullReasoning.String(), firstAsk, provider)
	if err != nil {
		// Storage failure after a successful stream does not propagate to
		// the client — the tokens already shown stand (§7 StorageFailure).
		logger.Error().Err(err).Msg("post-stream persistence failed")
		return
	}

	_ = sse.WriteFrame(Frame{
		UserMessageID:      userID,
		AssistantMessageID: assistantID,
		Complete:           true,
	})
}

// buildHistory implements step 1 of §4.6.
func (d *Dispatcher) buildHistory(ctx context.Context, parentIDs []string) ([]llm.Message, bool, error) {
	if len(parentIDs) == 0 {
		return nil, true, nil
	}

	sub, err := dag.BuildSubDAG(ctx, d.Nodes, parentIDs)
	if err != nil {
		return nil, true, err
	}
	if len(sub.Nodes) == 0 {
		return nil, true, nil
	}

	ordered := dag.Linearize(sub.Edges())
	history := make([]llm.Message, 0, len(ordered))
	for _, id := range ordered {
		n := sub.Nodes[id]
		history = append(history, llm.Message{Role: n.Role, Content: n.Content})
	}
	return history, false, nil
}

// persistTurn implements step 5 of §4.6: insert the user node, mirror edges
// into existing parents, insert the assistant node with parent_ids seeded at
// insert (per DESIGN.md's Open Question resolution), mirror back onto the
// user node, and update the metadata store (title on first_ask, update_time
// otherwise, plus the model-set update rule in both cases).
func (d *Dispatcher) persistTurn(
	ctx context.Context,
	req ChatRequest,
	providerName string,
	fullContent, fullReasoning string,
	firstAsk bool,
	provider llm.Provider,
) (userID, assistantID string, err error) {
	userID, err = d.Nodes.Insert(ctx, store.MessageNode{
		ConversationID: req.ConversationID,
		Role:           store.RoleUser,
		Content:        req.Message,
		Model:          providerName,
		ParentIDs:      req.ParentIDs,
	})
	if err != nil {
		return "", "", err
	}

	for _, parentID := range req.ParentIDs {
		if parentID == "" {
			continue
		}
		// Mirror onto existing parents only (§4.6 step 5): a stale or
		// invalid parent id that C3 already skipped must not abort an
		// otherwise-successful turn.
		if err := d.Nodes.AddChild(ctx, parentID, userID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", "", err
		}
	}

	assistantID, err = d.Nodes.Insert(ctx, store.MessageNode{
		ConversationID: req.ConversationID,
		Role:           store.RoleAssistant,
		Content:        fullContent,
		Reasoning:      fullReasoning,
		Model:          providerName,
		ParentIDs:      []string{userID},
	})
	if err != nil {
		return "", "", err
	}

	if err := d.Nodes.AddChild(ctx, userID, assistantID); err != nil {
		return "", "", err
	}

	if err := d.updateMetadata(ctx, req, providerName, firstAsk, fullContent, provider); err != nil {
		return "", "", err
	}

	return userID, assistantID, nil
}

func (d *Dispatcher) updateMetadata(ctx context.Context, req ChatRequest, providerName string, firstAsk bool, fullContent string, provider llm.Provider) error {
	now := time.Now().UTC()

	var title string
	if firstAsk {
		title = provider.Title(ctx, req.Message, fullContent)
	}

	models, err := d.Meta.ReadModels(ctx, req.ConversationID)
	if err != nil {
		return err
	}
	updatedModels := addModel(models, providerName)

	if firstAsk {
		if err := d.Meta.UpdateHeader(ctx, req.ConversationID, store.HeaderUpdate{Title: &title}); err != nil {
			return err
		}
	}
	return d.Meta.WriteModels(ctx, req.ConversationID, updatedModels, now)
}

// addModel applies the model-set update rule (§4.1): split by comma, trim,
// drop empties, append providerName if absent, rejoin.
func addModel(models, providerName string) string {
	parts := splitModels(models)
	for _, p := range parts {
		if p == providerName {
			return strings.Join(parts, ",")
		}
	}
	parts = append(parts, providerName)
	return strings.Join(parts, ",")
}

func splitModels(models string) []string {
	if models == "" {
		return nil
	}
	raw := strings.Split(models, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
