package chat

import (
	"slices"
	"sync"
)

// Peer is the registry's view of a live connection. Implementations must be
// comparable (pointer types) and must not block in Send.
type Peer interface {
	Send(msg Message) error
	Probe()
}

type Entry struct {
	ID   string
	Peer Peer
}

// Registry maps identities to live peers. It does not own the peers:
// closing them is up to whoever accepted the connection.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]Peer
	byPeer map[Peer]string
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]Peer),
		byPeer: make(map[Peer]string),
	}
}

// Register binds id to p, silently replacing any previous binding of id.
// A peer holds at most one identity, so re-registering p under a new id
// releases its old one.
func (r *Registry) Register(id string, p Peer) {
	r.bind(id, p)
}

// bind is Register that also reports the identity p held right before the
// call. held is false when p had none, including when another peer took it.
func (r *Registry) bind(id string, p Peer) (previous string, held bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, held = r.byPeer[p]
	if held && previous != id {
		delete(r.byID, previous)
	}
	if displaced, ok := r.byID[id]; ok && displaced != p {
		delete(r.byPeer, displaced)
	}
	r.byID[id] = p
	r.byPeer[p] = id
	return previous, held
}

// Owns reports whether id is currently bound to p.
func (r *Registry) Owns(id string, p Peer) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.byID[id]
	return ok && owner == p
}

// UnregisterByPeer removes the identity bound to p and returns it.
// ok is false when p never registered or lost its identity to another peer.
func (r *Registry) UnregisterByPeer(p Peer) (id string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok = r.byPeer[p]
	if !ok {
		return "", false
	}
	delete(r.byPeer, p)
	delete(r.byID, id)
	return id, true
}

func (r *Registry) Get(id string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// All returns a point-in-time copy of the table, safe to range over while
// other connections register or leave.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, 0, len(r.byID))
	for id, p := range r.byID {
		entries = append(entries, Entry{ID: id, Peer: p})
	}
	return entries
}

// Identities returns the registered identities in lexical order.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
