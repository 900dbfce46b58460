package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"dagchat/internal/dispatch"
	"dagchat/internal/httpapi"
	"dagchat/internal/llm"
	"dagchat/internal/store/memory"
)

type noopProvider struct{}

func (noopProvider) Stream(ctx context.Context, history []llm.Message, deepThinking bool) <-chan llm.Chunk {
	out := make(chan llm.Chunk, 1)
	out <- llm.Chunk{Content: "hi"}
	close(out)
	return out
}

func (noopProvider) Title(ctx context.Context, userInput, fullReply string) string { return "t" }

type fixedResolver struct{}

func (fixedResolver) Get(model string) (string, llm.Provider) { return "deepseek", noopProvider{} }

type nameRegistry struct{ names []string }

func (n nameRegistry) Names() []string { return n.names }

func newTestServer(t *testing.T) *httpapi.Server {
	t.Helper()
	meta := memory.NewMetadataStore()
	nodes := memory.NewNodeStore()
	return &httpapi.Server{
		Meta:  meta,
		Nodes: nodes,
		Dispatcher: &dispatch.Dispatcher{
			Meta:      meta,
			Nodes:     nodes,
			Providers: fixedResolver{},
		},
		Registry:     nameRegistry{names: []string{"deepseek", "qwen", "kimi", "glm"}},
		DisplayNames: map[string]string{"deepseek": "DeepSeek"},
	}
}

func TestCreateConversation(t *testing.T) {
	s := newTestServer(t)
	mux := s.NewMux()

	body, _ := json.Marshal(map[string]string{"user_id": "u1", "model": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/create-conversation", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			ConversationID string `json:"conversation_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ConversationID)
}

func TestCreateConversation_MissingUserID(t *testing.T) {
	s := newTestServer(t)
	mux := s.NewMux()

	body, _ := json.Marshal(map[string]string{"model": "deepseek"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/create-conversation", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDialogueList_RequiresUserID(t *testing.T) {
	s := newTestServer(t)
	mux := s.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dialogue/list", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModels_ListsDisplayNames(t *testing.T) {
	s := newTestServer(t)
	mux := s.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/models", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "DeepSeek")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	mux := s.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestChat_StreamsSSEFrames(t *testing.T) {
	s := newTestServer(t)
	mux := s.NewMux()

	require.NoError(t, s.Meta.Create(context.Background(), "conv1", "u1", ""))

	body, _ := json.Marshal(map[string]any{
		"conversation_id": "conv1",
		"message":         "hello",
		"user_id":         "u1",
		"model":           "deepseek-chat",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	require.Contains(t, rec.Body.String(), "data: ")
	require.Contains(t, rec.Body.String(), `"complete":true`)
}
