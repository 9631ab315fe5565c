// Package client sends single requests to a bigtwo server over TCP or a
// websocket.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/bigtwo/internal/protocol"
)

const defaultTimeout = 10 * time.Second

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("client: closed")

// Client sends one request per TCP connection, or reuses one websocket for
// every request when created WithWebSocket.
type Client struct {
	addr      string
	websocket bool
	category  protocol.Category
	timeout   time.Duration
	logger    *log.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// WithWebSocket sends requests over the server's /ws endpoint. The address
// is then an http, https, ws or wss base URL.
func WithWebSocket() Option {
	return func(c *Client) { c.websocket = true }
}

// WithCategory sends payload-only frames to a category-bound listener.
func WithCategory(cat protocol.Category) Option {
	return func(c *Client) { c.category = cat }
}

// WithTimeout bounds each request, including the dial.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a client for addr: host:port for TCP, or a base URL for a
// websocket.
func New(addr string, logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		addr:    addr,
		timeout: defaultTimeout,
		logger:  logger.WithPrefix("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req and returns the raw reply.
func (c *Client) Do(ctx context.Context, req protocol.Request) (string, error) {
	frame := protocol.Encode(req)
	if c.category != "" {
		if req.Category() != c.category {
			return "", fmt.Errorf("client: %s request sent to %s listener", req.Category(), c.category)
		}
		frame = protocol.EncodePayload(req)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		reply string
		err   error
	)
	if c.websocket {
		reply, err = c.doWebSocket(ctx, frame)
	} else {
		reply, err = c.doTCP(ctx, frame)
	}
	if err != nil {
		return "", err
	}
	c.logger.Debug("Exchanged frame", "request", frame, "reply", reply)
	return reply, nil
}

// Send is Do with the reply parsed.
func (c *Client) Send(ctx context.Context, req protocol.Request) (protocol.Reply, error) {
	raw, err := c.Do(ctx, req)
	if err != nil {
		return protocol.Reply{}, err
	}
	return protocol.ParseReply(raw), nil
}

func (c *Client) doTCP(ctx context.Context, frame string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = conn.Close() }() // Ignore close errors after the reply

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := io.WriteString(conn, frame+"\n"); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	reply, err := io.ReadAll(io.LimitReader(conn, protocol.MaxFrameSize*8))
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return strings.TrimRight(string(reply), "\r\n"), nil
}

func (c *Client) doWebSocket(ctx context.Context, frame string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}
	if c.conn == nil {
		conn, err := c.dialWebSocket(ctx)
		if err != nil {
			return "", err
		}
		c.conn = conn
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		_ = c.conn.SetReadDeadline(deadline)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		c.dropLocked()
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.dropLocked()
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return string(data), nil
}

func (c *Client) dialWebSocket(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.addr)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	if c.category != "" {
		u.RawQuery = url.Values{"category": {c.category.String()}}.Encode()
	}

	c.logger.Debug("Connecting to server", "url", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return conn, nil
}

// dropLocked discards a broken websocket so the next request redials.
func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close releases the websocket, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = c.conn.Close()
	c.conn = nil
	return err
}
