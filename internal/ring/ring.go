package ring

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/torua-coordination/ringlock/internal/telemetry"
)

// ErrNoServers is returned by Put/Get when the ring has no servers to route
// to. route() on an empty ring returns none per §4.1's failure semantics.
var ErrNoServers = errors.New("ring: no servers available")

// Backend is the contract a ring parent token's backend must satisfy,
// whether it is an in-process cachenode.Node or a cachenode.RemoteNode
// forwarding over HTTP.
type Backend interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// VirtualNode describes one token on the ring, for diagnostic enumeration.
type VirtualNode struct {
	Name string
	Hash *big.Int
}

// ServerInfo describes a registered server and all of its virtual nodes, the
// shape returned by GET /get_servers.
type ServerInfo struct {
	Server       string
	VirtualNodes []VirtualNode
}

type serverEntry struct {
	tokens []string // decimal-string token keys, parent first, aliases after
}

// Router maps keys to backends via consistent hashing over virtual nodes.
// It owns its token list and parent backends exclusively; see doc.go for the
// membership and concurrency model.
type Router struct {
	mu sync.Mutex

	replicationFactor int
	metrics           *telemetry.Metrics

	tokens     []*big.Int        // sorted ascending
	tokenOwner map[string]string // token decimal string -> parent token decimal string
	backends   map[string]Backend // parent token decimal string -> backend
	servers    map[string]*serverEntry
	order      []string // server insertion order, for stable Enumerate output
}

// NewRouter creates an empty router. replicationFactor must be >= 1 (the
// parent token alone counts as replica 0).
func NewRouter(replicationFactor int, metrics *telemetry.Metrics) *Router {
	if replicationFactor < 1 {
		replicationFactor = 1
	}
	return &Router{
		replicationFactor: replicationFactor,
		metrics:           metrics,
		tokenOwner:        make(map[string]string),
		backends:          make(map[string]Backend),
		servers:           make(map[string]*serverEntry),
	}
}

// AddServer registers server with replicationFactor virtual nodes and the
// given backend as its parent handle. Re-adding an already-registered server
// is a no-op — the source's ring duplicated tokens on repeat add_server
// calls, which is simply a bug, not a behavior worth preserving.
func (r *Router) AddServer(server string, backend Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[server]; exists {
		return
	}

	entry := &serverEntry{}
	parentHash := hashKey(virtualNodeName(server, 0))
	parentKey := parentHash.String()
	r.insertToken(parentHash)
	r.tokenOwner[parentKey] = parentKey
	entry.tokens = append(entry.tokens, parentKey)

	for i := 1; i < r.replicationFactor; i++ {
		aliasHash := hashKey(virtualNodeName(server, i))
		aliasKey := aliasHash.String()
		r.insertToken(aliasHash)
		r.tokenOwner[aliasKey] = parentKey
		entry.tokens = append(entry.tokens, aliasKey)
	}

	r.backends[parentKey] = backend
	r.servers[server] = entry
	r.order = append(r.order, server)
}

// RemoveServer reverses AddServer exactly. It returns false if server is not
// registered.
func (r *Router) RemoveServer(server string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.servers[server]
	if !exists {
		return false
	}

	for _, tokenKey := range entry.tokens {
		r.removeToken(tokenKey)
		delete(r.tokenOwner, tokenKey)
	}
	delete(r.backends, entry.tokens[0])
	delete(r.servers, server)
	for i, s := range r.order {
		if s == server {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// insertToken inserts h into the sorted token slice, after any existing
// equal tokens — ties are resolved by insertion order (§4.1). Caller must
// hold r.mu.
func (r *Router) insertToken(h *big.Int) {
	idx, _ := slices.BinarySearchFunc(r.tokens, h, func(a, b *big.Int) int {
		if a.Cmp(b) <= 0 {
			return -1 // treat equal as "less" so insertion lands after it
		}
		return 1
	})
	r.tokens = slices.Insert(r.tokens, idx, h)
}

// removeToken deletes the single token matching tokenKey from the sorted
// slice. Caller must hold r.mu.
func (r *Router) removeToken(tokenKey string) {
	for i, t := range r.tokens {
		if t.String() == tokenKey {
			r.tokens = slices.Delete(r.tokens, i, i+1)
			return
		}
	}
}

// route returns the backend owning key, or nil if the ring is empty. Caller
// must hold r.mu.
func (r *Router) route(key string) Backend {
	if len(r.tokens) == 0 {
		return nil
	}
	h := hashKey(key)
	idx, exact := slices.BinarySearchFunc(r.tokens, h, func(a, b *big.Int) int { return a.Cmp(b) })
	if !exact && idx == len(r.tokens) {
		idx = 0 // wrap around to the first token
	}
	parentKey := r.tokenOwner[r.tokens[idx].String()]
	return r.backends[parentKey]
}

// Route exposes the routing decision for a key without performing an
// operation against the backend — used by callers that need to know which
// server a key would land on.
func (r *Router) Route(key string) (Backend, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.route(key)
	return b, b != nil
}

// Put stores key/value on the server key routes to.
func (r *Router) Put(ctx context.Context, key, value string) error {
	r.mu.Lock()
	backend := r.route(key)
	r.mu.Unlock()

	if backend == nil {
		if r.metrics != nil {
			r.metrics.RingRouteFailures.Inc()
		}
		return ErrNoServers
	}
	if err := backend.Put(ctx, key, value); err != nil {
		if r.metrics != nil {
			r.metrics.RingBackendErrors.Inc()
		}
		return err
	}
	return nil
}

// Get retrieves key from the server it routes to. found is false both when
// the ring has no servers (err is ErrNoServers) and when the backend simply
// doesn't have the key (err is nil) — callers must check err to distinguish
// the two.
func (r *Router) Get(ctx context.Context, key string) (value string, found bool, err error) {
	r.mu.Lock()
	backend := r.route(key)
	r.mu.Unlock()

	if backend == nil {
		if r.metrics != nil {
			r.metrics.RingRouteFailures.Inc()
		}
		return "", false, ErrNoServers
	}
	value, found, err = backend.Get(ctx, key)
	if err != nil && r.metrics != nil {
		r.metrics.RingBackendErrors.Inc()
	}
	return value, found, err
}

// Enumerate returns every registered server and its virtual nodes, in
// registration order, for the diagnostic GET /get_servers endpoint.
func (r *Router) Enumerate() []ServerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ServerInfo, 0, len(r.order))
	for _, server := range r.order {
		nodes := make([]VirtualNode, 0, r.replicationFactor)
		for i := 0; i < r.replicationFactor; i++ {
			name := virtualNodeName(server, i)
			nodes = append(nodes, VirtualNode{Name: name, Hash: hashKey(name)})
		}
		out = append(out, ServerInfo{Server: server, VirtualNodes: nodes})
	}
	return out
}
