package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"wschat/internal/chat"

	"github.com/coder/websocket"
)

const leaveTimeout = 5 * time.Second

type Options struct {
	// ReadLimit caps the size of a single inbound frame, in bytes.
	ReadLimit int64
	// IdleTimeout closes connections that send nothing for that long.
	// Zero disables it.
	IdleTimeout time.Duration
}

// Manager owns the live clients and hands their frames to the router.
type Manager struct {
	router  *chat.Router
	logger  *slog.Logger
	options Options

	clients map[*Client]struct{}
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewManager(ctx context.Context, logger *slog.Logger, router *chat.Router, options Options) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		router:  router,
		logger:  logger,
		options: options,
		clients: make(map[*Client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (m *Manager) Router() *chat.Router {
	return m.router
}

// HandleNewConnection takes ownership of an accepted connection and starts
// its pumps. It returns immediately.
func (m *Manager) HandleNewConnection(conn *websocket.Conn) *Client {
	client := NewClient(conn, m)

	m.mu.Lock()
	m.clients[client] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug("client connected", "clientID", client.ID)
	client.Start()
	return client
}

// leave runs once per client, when its receive loop ends.
func (m *Manager) leave(c *Client, session *chat.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), leaveTimeout)
	defer cancel()
	m.router.Leave(ctx, session)

	m.mu.Lock()
	delete(m.clients, c)
	m.mu.Unlock()

	m.logger.Debug("client disconnected", "clientID", c.ID, "identity", session.Identity())
}

func (m *Manager) forceDisconnect(c *Client) {
	m.logger.Warn("disconnecting slow client", "clientID", c.ID)
	c.closeWith(websocket.StatusPolicyViolation, "too slow")
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *Manager) Shutdown() {
	m.cancel()
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.Unlock()

	for _, client := range clients {
		client.closeWith(websocket.StatusGoingAway, "server shutting down")
	}
}
