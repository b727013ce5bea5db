package ws

import (
	"context"
	"errors"
	"sync"
	"time"
	"wschat/internal/chat"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const (
	// sendChannelSize controls the max number
	// of messages that can be queued for a client.
	sendChannelSize = 16
	pingPeriod      = (60 * 9 * time.Second) / 10
	pingTimeout     = 10 * time.Second
	writeTimeout    = 10 * time.Second
)

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrClientClosed  = errors.New("client closed")
)

// Client is one accepted WebSocket connection. It implements chat.Peer.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Manager *Manager
	send    chan chat.Message
	probe   chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, manager *Manager) *Client {
	ctx, cancel := context.WithCancel(manager.ctx)
	if manager.options.ReadLimit > 0 {
		conn.SetReadLimit(manager.options.ReadLimit)
	}
	return &Client{
		ID:      uuid.NewString(),
		Conn:    conn,
		Manager: manager,
		send:    make(chan chat.Message, sendChannelSize),
		probe:   make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Client) Start() {
	go c.readPump()
	go c.writePump()
}

func (c *Client) Close() {
	c.closeWith(websocket.StatusNormalClosure, "bye")
}

func (c *Client) closeWith(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.cancel()
		if err := c.Conn.Close(code, reason); err != nil {
			c.Manager.logger.Debug("failed to close connection", "clientID", c.ID, "error", err)
		}
	})
}

// Send queues msg without blocking. A client whose queue is full is
// considered too slow and gets disconnected.
func (c *Client) Send(msg chat.Message) error {
	if c.ctx.Err() != nil {
		return ErrClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		go c.Manager.forceDisconnect(c)
		return ErrSendQueueFull
	}
}

// Probe asks the write pump for a keep-alive ping. Probes requested while
// one is already pending are coalesced.
func (c *Client) Probe() {
	select {
	case c.probe <- struct{}{}:
	default:
	}
}

func (c *Client) readPump() {
	session := c.Manager.router.NewSession(c)
	defer func() {
		c.Manager.leave(c, session)
		c.Close()
	}()

	for {
		typ, frame, err := c.read()
		if err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.Manager.logger.Debug("client closed connection", "clientID", c.ID, "identity", session.Identity())
			} else {
				c.Manager.logger.Warn("failed to read message", "clientID", c.ID, "error", err)
			}
			return
		}

		if typ != websocket.MessageText {
			c.Manager.logger.Debug("received non-text frame", "clientID", c.ID)
			c.Probe()
			continue
		}

		if err := c.Manager.router.Handle(c.ctx, session, frame); err != nil {
			c.logHandleError(session, err)
		}
	}
}

// read waits for the next frame, bounded by the idle timeout when one is set.
func (c *Client) read() (websocket.MessageType, []byte, error) {
	if c.Manager.options.IdleTimeout <= 0 {
		return c.Conn.Read(c.ctx)
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.Manager.options.IdleTimeout)
	defer cancel()
	return c.Conn.Read(ctx)
}

func (c *Client) logHandleError(session *chat.Session, err error) {
	switch {
	case errors.Is(err, chat.ErrMalformedFrame):
		c.Manager.logger.Debug("received malformed frame", "clientID", c.ID, "error", err)
	case errors.Is(err, chat.ErrUnknownRecipient):
		c.Manager.logger.Info("dropped direct message", "clientID", c.ID, "identity", session.Identity(), "error", err)
	default:
		c.Manager.logger.Warn("failed to handle message", "clientID", c.ID, "identity", session.Identity(), "error", err)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				c.Manager.logger.Warn("failed to write message", "clientID", c.ID, "error", err)
				return
			}
			c.Manager.logger.Debug("message sent", "clientID", c.ID, "type", msg.Type)
		case <-c.probe:
			if err := c.ping(); err != nil {
				c.Manager.logger.Debug("failed to probe client", "clientID", c.ID, "error", err)
				return
			}
			c.Manager.logger.Debug("liveness ping acknowledged", "clientID", c.ID)
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.Manager.logger.Debug("failed to ping client", "clientID", c.ID, "error", err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) write(msg chat.Message) error {
	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.Conn, msg)
}

func (c *Client) ping() error {
	ctx, cancel := context.WithTimeout(c.ctx, pingTimeout)
	defer cancel()
	return c.Conn.Ping(ctx)
}
