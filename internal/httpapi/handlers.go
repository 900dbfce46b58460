package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"dagchat/internal/dispatch"
	"dagchat/internal/store"
)

type createConversationRequest struct {
	UserID string `json:"user_id"`
	Model  string `json:"model"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	id := uuid.NewString()
	if err := s.Meta.Create(r.Context(), id, req.UserID, req.Model); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"conversation_id": id})
}

type chatRequestBody struct {
	ConversationID string   `json:"conversation_id"`
	Message        string   `json:"message"`
	UserID         string   `json:"user_id"`
	ParentIDs      []string `json:"parent_ids"`
	Model          string   `json:"model"`
	DeepThinking   bool     `json:"deep_thinking"`
}

// sseFrameWriter adapts an http.ResponseWriter + http.Flusher pair to
// dispatch.SSEWriter, matching the teacher's writeSSE closure idiom
// (internal/agentd/handlers_chat.go): one data line per frame, flushed
// immediately. It holds no lock: the dispatcher is its only writer.
type sseFrameWriter struct {
	w  http.ResponseWriter
	fl http.Flusher
}

func (s *sseFrameWriter) WriteFrame(f dispatch.Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	s.fl.Flush()
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		respondError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	fl, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	s.Dispatcher.Dispatch(r.Context(), &sseFrameWriter{w: w, fl: fl}, dispatch.ChatRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		UserID:         req.UserID,
		ParentIDs:      req.ParentIDs,
		Model:          req.Model,
		DeepThinking:   req.DeepThinking,
	})
}

func (s *Server) handleDialogueList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if strings.TrimSpace(userID) == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	page := parseIntOr(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize := parseIntOr(q.Get("page_size"), 20)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 100 {
		pageSize = 100
	}

	rows, total, err := s.Meta.List(r.Context(), userID, page, pageSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"items": rows,
		"total": total,
		"page":  page,
	})
}

type historyNode struct {
	ID                 string   `json:"id"`
	Content            string   `json:"content"`
	Role               string   `json:"role"`
	ParentIDs          []string `json:"parent_ids"`
	Children           []string `json:"children"`
	Model              string   `json:"model"`
	ThinkingContent    string   `json:"thinkingContent,omitempty"`
	IsThinkingExpanded bool     `json:"isThinkingExpanded"`
}

func (s *Server) handleDialogueHistory(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("dialogue_id")
	if strings.TrimSpace(convID) == "" {
		respondError(w, http.StatusBadRequest, "dialogue_id is required")
		return
	}

	nodes, err := s.Nodes.FindByConversation(r.Context(), convID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	out := make([]historyNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, historyNode{
			ID:              n.ID,
			Content:         n.Content,
			Role:            n.Role,
			ParentIDs:       n.ParentIDs,
			Children:        n.Children,
			Model:           n.Model,
			ThinkingContent: n.Reasoning,
		})
	}

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDialogueRename(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	convID := q.Get("conversation_id")
	userID := q.Get("user_id")
	newTitle := q.Get("new_title")

	if strings.TrimSpace(newTitle) == "" {
		respondError(w, http.StatusBadRequest, "new_title is required")
		return
	}
	if len([]rune(newTitle)) > 64 {
		respondError(w, http.StatusBadRequest, "new_title exceeds 64 characters")
		return
	}

	if err := s.Meta.Rename(r.Context(), convID, userID, newTitle); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusInternalServerError, "conversation not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to rename conversation")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDialogueDelete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	convID := q.Get("conversation_id")
	userID := q.Get("user_id")

	if strings.TrimSpace(convID) == "" {
		respondError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	if err := s.Nodes.DeleteByConversation(r.Context(), convID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete nodes")
		return
	}
	if err := s.Meta.Delete(r.Context(), convID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusInternalServerError, "conversation not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	type modelEntry struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
	}

	names := s.Registry.Names()
	out := make([]modelEntry, 0, len(names))
	for _, n := range names {
		out = append(out, modelEntry{Name: n, DisplayName: s.DisplayNames[n]})
	}

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "hello from dagchat"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "dagchat",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func parseIntOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
