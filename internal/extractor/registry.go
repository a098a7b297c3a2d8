package extractor

import (
	"context"
	"sort"
	"sync"

	"github.com/worq1337/parcer-sub001/internal/logging"
)

// Registry holds one extraction client per bot identity plus a shared
// default. Ingest sources that identify a bot get that bot's client (its own
// API quota); everything else uses the default.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client
	fallback Client
	logger   logging.Logger
}

// ClientInfo describes one registry slot for the admin pool listing.
type ClientInfo struct {
	BotID  string `json:"bot_id"`
	Client string `json:"client"`
}

// NewRegistry creates a registry around the given default client.
func NewRegistry(fallback Client, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Registry{
		clients:  make(map[string]Client),
		fallback: fallback,
		logger:   logger,
	}
}

// BuildRegistry constructs Gemini clients from configuration: one default
// from the main API key, plus one per entry in botKeys.
func BuildRegistry(ctx context.Context, apiKey, model string, botKeys map[string]string, logger logging.Logger) (*Registry, error) {
	fallback, err := NewGemini(ctx, apiKey, model, logger)
	if err != nil {
		return nil, err
	}

	registry := NewRegistry(fallback, logger)
	for botID, key := range botKeys {
		client, err := NewGemini(ctx, key, model, logger)
		if err != nil {
			return nil, err
		}
		registry.Register(botID, client)
	}
	return registry, nil
}

// Register binds a client to a bot identity, replacing any previous one.
func (r *Registry) Register(botID string, client Client) {
	r.mu.Lock()
	r.clients[botID] = client
	r.mu.Unlock()
	r.logger.WithField(logging.FieldBot, botID).Debug("Extraction client registered")
}

// ClientFor returns the client for the given bot, or the default when the
// bot is unknown or empty.
func (r *Registry) ClientFor(botID string) Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if client, ok := r.clients[botID]; ok {
		return client
	}
	return r.fallback
}

// Info lists the registry contents, default first, bots sorted by id.
func (r *Registry) Info() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := []ClientInfo{{BotID: "", Client: r.fallback.Name()}}

	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		info = append(info, ClientInfo{BotID: id, Client: r.clients[id].Name()})
	}
	return info
}

// Close closes every distinct client that supports closing.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[Client]struct{})
	closeOne := func(c Client) {
		if c == nil {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		if closer, ok := c.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				r.logger.WithError(err).Warn("Failed to close extraction client")
			}
		}
	}

	closeOne(r.fallback)
	for _, client := range r.clients {
		closeOne(client)
	}
}
