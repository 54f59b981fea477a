package boardsyncws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/openboard/boardsync/board"
)

// Conn is one live websocket binding of (socket, board, user). It owns its
// socket and its bounded outbound queue exclusively; everything else talks
// to it by enqueueing frames.
type Conn struct {
	id       string
	boardID  string
	userID   string
	username string

	ws     *websocket.Conn
	send   chan []byte
	logger zerolog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(id, boardID, userID, username string, ws *websocket.Conn, queueSize int, logger zerolog.Logger) *Conn {
	return &Conn{
		id:       id,
		boardID:  boardID,
		userID:   userID,
		username: username,
		ws:       ws,
		send:     make(chan []byte, queueSize),
		logger:   logger,
		closed:   make(chan struct{}),
	}
}

// UserID returns the authenticated user this connection belongs to.
func (c *Conn) UserID() string {
	return c.userID
}

// BoardID returns the board this connection joined.
func (c *Conn) BoardID() string {
	return c.boardID
}

// enqueue offers a frame to the outbound queue without blocking. It reports
// false when the queue is full: the connection is too slow to keep up and
// must be dropped rather than stall the publisher.
func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.closed:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close tears the socket down. Safe to call from any goroutine, any number
// of times; pending reads and writes are cancelled immediately.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("closing websocket")
		}
	})
}

// sendState enqueues a current_state snapshot for this connection. It is
// invoked on the actor goroutine, so it must not block; a full queue drops
// the connection like any other slow consumer.
func (c *Conn) sendState(state board.State) {
	data, err := CurrentStateMessage(state)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode current_state")
		return
	}
	if !c.enqueue(data) {
		c.logger.Warn().Msg("outbound queue full, dropping connection")
		go c.closeWith(websocket.ClosePolicyViolation, "slow consumer")
	}
}

// closeWith sends a close frame with the given code before tearing down.
func (c *Conn) closeWith(code int, reason string) {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.logger.Debug().Err(err).Msg("writing close frame")
	}
	c.Close()
}
