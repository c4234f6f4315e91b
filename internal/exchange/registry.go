package exchange

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mkurzov/marketd/internal/model"
)

// Factory builds a driver instance with its options already bound.
type Factory func() Client

// Registry maps exchange identifiers to drivers. Driver instances are built
// lazily on first use and then reused; drivers are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	infos     map[string]model.ExchangeInfo
	clients   map[string]Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		infos:     make(map[string]model.ExchangeInfo),
		clients:   make(map[string]Client),
	}
}

// DefaultRegistry returns a registry with every production driver registered.
// The options apply to each driver.
func DefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry()
	r.Register(BinanceInfo(), func() Client { return NewBinance(opts...) })
	r.Register(CoinbaseInfo(), func() Client { return NewCoinbase(opts...) })
	r.Register(KrakenInfo(), func() Client { return NewKraken(opts...) })
	return r
}

// Register adds a driver under info.ID, replacing any previous registration.
func (r *Registry) Register(info model.ExchangeInfo, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[info.ID] = f
	r.infos[info.ID] = info
	delete(r.clients, info.ID)
}

// Client returns the driver for id, building it on first use. Unknown ids
// fail with KindUnsupported.
func (r *Registry) Client(id string) (Client, error) {
	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		return c, nil
	}
	f, ok := r.factories[id]
	if !ok {
		return nil, &Error{
			Kind:     KindUnsupported,
			Exchange: id,
			Message:  fmt.Sprintf("%q is not a supported exchange", id),
		}
	}
	c = f()
	r.clients[id] = c
	return c, nil
}

// Supported reports whether id is registered.
func (r *Registry) Supported(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// IDs returns the registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Info returns the descriptor registered under id.
func (r *Registry) Info(id string) (model.ExchangeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[id]
	return info, ok
}

// Infos returns a copy of every registered descriptor, sorted by ID.
func (r *Registry) Infos() []model.ExchangeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]model.ExchangeInfo, 0, len(r.infos))
	for _, info := range r.infos {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
