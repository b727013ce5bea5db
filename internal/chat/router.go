package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNotInitialized   = errors.New("TEXT received before INIT")
	ErrUnknownRecipient = errors.New("unknown recipient")
	ErrSessionClosed    = errors.New("session closed")
)

// Presence is notified when identities come and go. It only ever sees
// identities, never connections.
type Presence interface {
	Join(ctx context.Context, id string) error
	Leave(ctx context.Context, id string) error
}

type State int

const (
	StateUninitialized State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is the router-side state of one connection. It is owned by the
// connection's receive loop and must not be shared between goroutines.
type Session struct {
	peer  Peer
	id    string
	state State
}

func (s *Session) Identity() string {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

type Router struct {
	registry *Registry
	presence Presence
	logger   *slog.Logger
}

// NewRouter builds a router on top of registry. presence may be nil.
func NewRouter(logger *slog.Logger, registry *Registry, presence Presence) *Router {
	return &Router{
		registry: registry,
		presence: presence,
		logger:   logger,
	}
}

func (r *Router) Registry() *Registry {
	return r.registry
}

func (r *Router) NewSession(p Peer) *Session {
	return &Session{peer: p, state: StateUninitialized}
}

// Handle routes a single inbound frame. All returned errors are recoverable:
// the caller should log them and keep reading. All sends triggered by the
// frame are queued before Handle returns.
func (r *Router) Handle(ctx context.Context, s *Session, frame []byte) error {
	if s.state == StateClosed {
		return ErrSessionClosed
	}

	msg, err := Decode(frame)
	if err != nil {
		s.peer.Probe()
		return err
	}

	switch msg.Type {
	case TypeInit:
		r.init(ctx, s, msg.ID)
		return nil
	case TypeText:
		if s.state != StateActive {
			return ErrNotInitialized
		}
		if !r.registry.Owns(s.id, s.peer) {
			// Another connection registered this identity since.
			r.logger.Debug("identity taken over", "identity", s.id)
			s.id, s.state = "", StateUninitialized
			return ErrNotInitialized
		}
		if msg.IsDirected() {
			return r.direct(s, msg)
		}
		r.fanOut(broadcastText(s.id, msg.Text), s.peer)
		return nil
	}
	return nil
}

func (r *Router) init(ctx context.Context, s *Session, id string) {
	previous, held := r.registry.bind(id, s.peer)
	s.id = id
	s.state = StateActive

	// A connection that never held an identity, or lost it to another
	// connection, joins as new.
	if !held {
		r.logger.Debug("identity registered", "identity", id)
		r.fanOut(userEnter(id), nil)
		r.presenceJoin(ctx, id)
		return
	}
	if previous != id {
		r.logger.Debug("identity changed", "from", previous, "to", id)
		r.fanOut(userLeave(previous), s.peer)
		r.presenceLeave(ctx, previous)
		r.presenceJoin(ctx, id)
	}
}

func (r *Router) direct(s *Session, msg Message) error {
	recipient, ok := r.registry.Get(msg.To)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRecipient, msg.To)
	}
	if err := recipient.Send(directText(s.id, msg.Text)); err != nil {
		r.logger.Warn("failed to deliver direct message", "identity", s.id, "to", msg.To, "error", err)
	}
	return nil
}

// Leave tears the session down: it releases the identity and tells the
// remaining connections. Calling it more than once is a no-op.
func (r *Router) Leave(ctx context.Context, s *Session) {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed

	id, ok := r.registry.UnregisterByPeer(s.peer)
	if !ok {
		return
	}
	r.logger.Debug("identity released", "identity", id)
	r.fanOut(userLeave(id), nil)
	r.presenceLeave(ctx, id)
}

// Announce sends a server-originated MSG to every registered connection and
// returns how many accepted it.
func (r *Router) Announce(_ context.Context, from, text string) int {
	return r.fanOut(broadcastText(from, text), nil)
}

// fanOut delivers msg to a snapshot of the registry, skipping except. A
// failing recipient never stops delivery to the others.
func (r *Router) fanOut(msg Message, except Peer) int {
	delivered := 0
	for _, entry := range r.registry.All() {
		if except != nil && entry.Peer == except {
			continue
		}
		if err := entry.Peer.Send(msg); err != nil {
			r.logger.Warn("failed to deliver message", "identity", entry.ID, "type", msg.Type, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Router) presenceJoin(ctx context.Context, id string) {
	if r.presence == nil {
		return
	}
	if err := r.presence.Join(ctx, id); err != nil {
		r.logger.Warn("failed to record presence", "identity", id, "error", err)
	}
}

func (r *Router) presenceLeave(ctx context.Context, id string) {
	if r.presence == nil {
		return
	}
	if err := r.presence.Leave(ctx, id); err != nil {
		r.logger.Warn("failed to clear presence", "identity", id, "error", err)
	}
}
