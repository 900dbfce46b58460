package httpapi

import (
	"net/http"

	"dagchat/internal/dispatch"
	"dagchat/internal/store"
)

// Registry is the subset of providers.Registry the API surface needs for
// the /models listing endpoint.
type Registry interface {
	Names() []string
}

// Server holds the wiring the conversation API needs to serve requests.
type Server struct {
	Meta       store.MetadataStore
	Nodes      store.NodeStore
	Dispatcher *dispatch.Dispatcher
	Registry   Registry
	// DisplayNames maps a provider's canonical registry name to the friendly
	// name advertised by GET /api/v1/models.
	DisplayNames map[string]string
}

// NewMux builds the http.ServeMux for the conversation API, following the
// teacher's Go 1.22 method-pattern routing style.
func (s *Server) NewMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/create-conversation", withCORS(s.handleCreateConversation))
	mux.HandleFunc("POST /api/v1/chat", withCORS(s.handleChat))
	mux.HandleFunc("GET /api/v1/dialogue/list", withCORS(s.handleDialogueList))
	mux.HandleFunc("GET /api/v1/dialogue/history", withCORS(s.handleDialogueHistory))
	mux.HandleFunc("PUT /api/v1/dialogue/rename", withCORS(s.handleDialogueRename))
	mux.HandleFunc("DELETE /api/v1/dialogue/delete", withCORS(s.handleDialogueDelete))
	mux.HandleFunc("GET /api/v1/models", withCORS(s.handleModels))
	mux.HandleFunc("GET /api/v1/health", withCORS(s.handleHealth))
	mux.HandleFunc("GET /api/v1/hello", withCORS(s.handleHello))
	mux.HandleFunc("GET /api/v1/info", withCORS(s.handleInfo))
	mux.HandleFunc("OPTIONS /api/v1/", withCORS(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	return mux
}

// withCORS allows http://localhost:3000, all methods and headers, with
// credentials, matching §6's CORS requirement and the teacher's
// setChatCORSHeaders idiom.
func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "http://localhost:3000")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		next(w, r)
	}
}
