// Package boardsyncws implements the realtime channel of the whiteboard
// server: one websocket per (board, user), a broadcast dispatcher per board,
// and the JSON envelope protocol spoken on the wire.
package boardsyncws

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/openboard/boardsync/board"
	boardsyncauth "github.com/openboard/boardsync/boardsync-auth"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	maxMessageSize      = 1 << 20
)

// Handler accepts websocket connections at the board-scoped endpoint and
// runs each connection's lifecycle: Connecting → Authenticating → Joined →
// Closing → Closed.
type Handler struct {
	Registry   *board.Registry
	Dispatcher *Dispatcher
	Verifier   boardsyncauth.Verifier
	Logger     zerolog.Logger

	// AllowedOrigins restricts the Origin header on upgrade. Empty or "*"
	// allows any origin.
	AllowedOrigins []string

	// QueueSize bounds each connection's outbound queue (default 256).
	QueueSize int

	// WriteTimeout is the per-frame write deadline (default 10s).
	WriteTimeout time.Duration

	// IdleTimeout closes a connection that has sent no frames (including
	// pongs) for this long (default 60s).
	IdleTimeout time.Duration

	connections atomic.Int64
}

func (h *Handler) queueSize() int {
	if h.QueueSize > 0 {
		return h.QueueSize
	}
	return defaultQueueSize
}

func (h *Handler) writeTimeout() time.Duration {
	if h.WriteTimeout > 0 {
		return h.WriteTimeout
	}
	return defaultWriteTimeout
}

func (h *Handler) idleTimeout() time.Duration {
	if h.IdleTimeout > 0 {
		return h.IdleTimeout
	}
	return defaultIdleTimeout
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(h.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.AllowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ServeHTTP authenticates the handshake and, on success, upgrades the
// connection and joins it to the requested board. Authentication failure
// (bad, missing, or expired credential, or a verification timeout) rejects
// the handshake before any current_state is sent.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "board")
	if boardID == "" {
		boardID = r.URL.Query().Get("board")
	}
	if boardID == "" {
		http.Error(w, "missing board id", http.StatusBadRequest)
		return
	}

	connID := uuid.NewString()
	logger := h.Logger.With().
		Str("connection_id", connID).
		Str("board", boardID).
		Logger()

	identity, err := h.Verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		logger.Warn().Err(err).Msg("authentication failed")
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}
	logger = logger.With().Str("user_id", identity.UserID).Logger()

	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := newConn(connID, boardID, identity.UserID, identity.Username, ws, h.queueSize(), logger)
	h.serve(conn)
}

// bearerToken extracts the opaque credential from the handshake: the token
// query parameter, falling back to an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return auth[7:]
	}
	return ""
}

func (h *Handler) serve(c *Conn) {
	actor := h.Registry.Acquire(c.boardID)
	total := h.connections.Add(1)
	c.logger.Info().Int64("connections", total).Msg("client joined")

	// The snapshot reply and the subscription happen together on the actor
	// goroutine, so the joining client receives exactly one full snapshot
	// before any incremental event it did not itself cause: ops applied
	// earlier are folded into the snapshot, ops applied later are delivered
	// behind it. A connection that is already gone by the time the actor
	// gets here never joins at all.
	actor.Enqueue(board.RequestState{Reply: func(state board.State) {
		select {
		case <-c.closed:
			return
		default:
		}
		c.sendState(state)
		h.Dispatcher.Subscribe(c.boardID, c)
	}})

	var g errgroup.Group
	g.Go(func() error {
		defer c.Close()
		return h.writePump(c)
	})
	g.Go(func() error {
		defer c.Close()
		return h.readPump(c, actor)
	})
	if err := g.Wait(); err != nil {
		c.logger.Debug().Err(err).Msg("connection terminated")
	}

	h.Dispatcher.Unsubscribe(c.boardID, c)
	actor.Enqueue(board.RemoveCursor{UserID: c.userID})
	// The join subscription runs on the actor goroutine, so it can land
	// after the direct Unsubscribe above if the client disconnected before
	// the actor processed its join. Queueing a second unsubscribe behind it
	// guarantees the dead connection never lingers in the dispatcher.
	actor.Enqueue(board.RequestState{Reply: func(board.State) {
		h.Dispatcher.Unsubscribe(c.boardID, c)
	}})
	h.Registry.Release(c.boardID)

	total = h.connections.Add(-1)
	c.logger.Info().Int64("connections", total).Msg("client disconnected")
}

// readPump decodes inbound envelopes and forwards the resulting ops to the
// board actor. A message that fails to decode is dropped with a warning; the
// connection stays open. Only transport-level failures end the loop.
func (h *Handler) readPump(c *Conn, actor *board.Actor) error {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(h.idleTimeout()))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(h.idleTimeout()))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			select {
			case <-c.closed:
				return nil
			default:
			}
			return err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(h.idleTimeout()))

		msg, err := ParseMessage(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed message")
			continue
		}

		if msg.Type == MsgRequestState {
			actor.Enqueue(board.RequestState{Reply: c.sendState})
			continue
		}

		op, err := DecodeOp(msg)
		if err != nil {
			c.logger.Warn().Err(err).Str("type", msg.Type).Msg("dropping message")
			continue
		}
		op = h.stampOwner(op, c)
		actor.Enqueue(op)
	}
}

// stampOwner fills in the authenticated user on shape ops whose clients left
// the owner blank.
func (h *Handler) stampOwner(op board.Op, c *Conn) board.Op {
	switch op := op.(type) {
	case board.AddShape:
		if op.Shape.Owner == "" {
			op.Shape.Owner = c.userID
		}
		return op
	case board.UpdateShape:
		if op.Shape.Owner == "" {
			op.Shape.Owner = c.userID
		}
		return op
	default:
		return op
	}
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with pings.
func (h *Handler) writePump(c *Conn) error {
	pingInterval := h.idleTimeout() * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(h.writeTimeout()))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				select {
				case <-c.closed:
					return nil
				default:
				}
				return err
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(h.writeTimeout()))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case <-c.closed:
			return nil
		}
	}
}
