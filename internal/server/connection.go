package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/bigtwo/internal/protocol"
)

// wsConn serves request/reply exchanges over one websocket. Every text
// message is a frame; every frame gets exactly one reply message.
type wsConn struct {
	conn      *websocket.Conn
	category  protocol.Category
	logger    *log.Logger
	closeOnce sync.Once
}

// Close closes the connection
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// handleWebSocket upgrades the request. The optional "category" query
// parameter binds the connection to one category, like a TCP listener.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	cat := protocol.Category(r.URL.Query().Get("category"))
	if cat != "" && !cat.Valid() {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := &wsConn{
		conn:     conn,
		category: cat,
		logger:   s.logger.WithPrefix("ws").With("remote", conn.RemoteAddr()),
	}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = c.Close() // Ignore close errors during cleanup
	}()

	s.readPump(r.Context(), c)
}

// readPump handles incoming frames until the peer goes away or stays idle
// longer than the idle timeout.
func (s *Server) readPump(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(protocol.MaxFrameSize)
	c.logger.Debug("Client connected", "category", c.category)

	for {
		_ = c.conn.SetReadDeadline(s.clock.Now().Add(s.cfg.IdleTimeout()))
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Websocket read error", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		reply := s.process(ctx, c.category, string(data), c.logger)

		_ = c.conn.SetWriteDeadline(s.clock.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			c.logger.Debug("Failed to write reply", "error", err)
			return
		}
	}
}
