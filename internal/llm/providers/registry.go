package providers

import (
	"net/http"
	"strings"
	"sync"

	"dagchat/internal/config"
	"dagchat/internal/llm"
)

// factory builds a Provider instance on first use.
type factory func() llm.Provider

// Registry is the process-wide, lazily-initialized name→adapter map (C5).
// Lookup is case-insensitive and containment-based, so a model-variant
// string like "deepseek-chat" resolves to the "deepseek" adapter. Instances
// are cached per canonical provider name; Get holds the registry lock while
// constructing, so each name is constructed at most once.
type Registry struct {
	mu        sync.Mutex
	factories map[string]factory
	instances map[string]llm.Provider
	// order preserves declaration order for listing (§4.7 GET /api/v1/models).
	order []string
}

// DisplayNames maps canonical provider name to the friendly name the
// conversation API advertises.
var DisplayNames = map[string]string{
	"deepseek": "DeepSeek",
	"qwen":     "Qwen",
	"kimi":     "Kimi",
	"glm":      "GLM",
}

// NewRegistry declares the four known adapters against cfg, deferring actual
// construction until first Get. Credentials are not validated.
func NewRegistry(cfg *config.Config, httpClient *http.Client) *Registry {
	r := &Registry{
		factories: make(map[string]factory),
		instances: make(map[string]llm.Provider),
	}

	r.declare("deepseek", func() llm.Provider {
		pc := cfg.Providers["deepseek"]
		return newOpenAICompatAdapter(httpClient, adapterConfig{
			APIKey:            pc.APIKey,
			BaseURL:           pc.BaseURL,
			ChatModel:         "deepseek-chat",
			ReasoningModel:    "deepseek-reasoner",
			TitleModel:        "deepseek-chat",
			SupportsReasoning: true,
		})
	})
	r.declare("qwen", func() llm.Provider {
		pc := cfg.Providers["qwen"]
		return newOpenAICompatAdapter(httpClient, adapterConfig{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			ChatModel:  "qwen-plus",
			TitleModel: "qwen-plus",
		})
	})
	r.declare("kimi", func() llm.Provider {
		pc := cfg.Providers["kimi"]
		return newOpenAICompatAdapter(httpClient, adapterConfig{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			ChatModel:  "moonshot-v1-8k",
			TitleModel: "moonshot-v1-8k",
		})
	})
	r.declare("glm", func() llm.Provider {
		pc := cfg.Providers["glm"]
		return newOpenAICompatAdapter(httpClient, adapterConfig{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			ChatModel:  "glm-4",
			TitleModel: "glm-4",
		})
	})

	return r
}

func (r *Registry) declare(name string, f factory) {
	r.factories[name] = f
	r.order = append(r.order, name)
}

// Get resolves model to a cached or newly-constructed Provider using
// case-insensitive containment matching. Returns ("", nil) if no declared
// adapter name is contained in model.
func (r *Registry) Get(model string) (string, llm.Provider) {
	needle := strings.ToLower(model)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if !strings.Contains(needle, name) {
			continue
		}
		if inst, ok := r.instances[name]; ok {
			return name, inst
		}
		inst := r.factories[name]()
		r.instances[name] = inst
		return name, inst
	}
	return "", nil
}

// Names returns the declared adapter names in registration order, for the
// models listing endpoint (display names come from DisplayNames).
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
