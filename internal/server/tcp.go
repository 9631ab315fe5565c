package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/bigtwo/internal/protocol"
)

// Time allowed to write a reply to the peer
const writeWait = 10 * time.Second

var errFrameTooLarge = errors.New("frame exceeds maximum size")

// serveTCP accepts connections until the listener is closed. Each
// connection carries exactly one request and one reply.
func (s *Server) serveTCP(ctx context.Context, bl boundListener) error {
	logger := s.logger.WithPrefix("tcp").With("listener", bl.cfg.Name)
	logger.Info("Accepting connections", "addr", bl.ln.Addr(), "category", bl.cfg.Category)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := bl.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Warn("Accept timed out", "err", err)
				continue
			}
			return fmt.Errorf("accept on %s: %w", bl.cfg.Name, err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn, bl.category(), logger)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, cat protocol.Category, logger *log.Logger) {
	defer func() { _ = conn.Close() }() // Ignore close errors during cleanup
	logger = logger.With("remote", conn.RemoteAddr())

	_ = conn.SetReadDeadline(s.clock.Now().Add(s.cfg.ReadTimeout()))
	frame, err := readFrame(bufio.NewReaderSize(conn, protocol.MaxFrameSize))

	var reply string
	switch {
	case errors.Is(err, errFrameTooLarge):
		logger.Warn("Rejected oversized frame")
		s.stats.Record(cat.String(), OutcomeMalformed, 0)
		reply = protocol.Fail(protocol.ReasonMalformed)
	case err != nil:
		logger.Debug("Connection closed before a request", "err", err)
		return
	default:
		reply = s.process(ctx, cat, frame, logger)
	}

	_ = conn.SetWriteDeadline(s.clock.Now().Add(writeWait))
	if _, err := io.WriteString(conn, reply+"\n"); err != nil {
		logger.Debug("Failed to write reply", "err", err)
	}
}

// readFrame returns the frame carried by the first read on the
// connection, up to and including its newline if it has one. Clients send
// a frame in one write and may omit the newline.
func readFrame(r *bufio.Reader) (string, error) {
	if _, err := r.Peek(1); err != nil {
		return "", err
	}
	buf, _ := r.Peek(r.Buffered())
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i+1]
	} else if len(buf) >= protocol.MaxFrameSize {
		return "", errFrameTooLarge
	}
	frame := string(buf)
	_, _ = r.Discard(len(buf))
	return frame, nil
}
