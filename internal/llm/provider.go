// Package llm defines the uniform streaming-provider contract (C5) that
// every upstream chat backend implements, generalized from the teacher's
// internal/llm/provider.go (which exposed a much larger surface for tool
// calls, images, and multi-vendor routing this domain does not need).
package llm

import "context"

// Message is one turn in a linearized conversation history.
type Message struct {
	Role    string
	Content string
}

// Chunk is one item from a provider's streaming response. A chunk carries
// Content, Reasoning, or both; a terminal chunk carries only Error, with
// Details alongside it.
type Chunk struct {
	Content   string
	Reasoning string
	Error     string
	Details   string
}

// Provider is the uniform adapter contract every registered model backend
// implements (§4.5).
type Provider interface {
	// Stream relays the upstream token stream as a channel of Chunks. The
	// channel is closed when the upstream stream ends, whether cleanly or
	// with a terminal error chunk already sent. Callers must drain it or
	// cancel ctx to stop early.
	Stream(ctx context.Context, history []Message, deepThinking bool) <-chan Chunk

	// Title produces a short (<=20 rune) summary title from the first user
	// message and the full assistant reply. Implementations degrade to a
	// trimmed prefix of reply on any upstream failure.
	Title(ctx context.Context, userInput, fullReply string) string
}
