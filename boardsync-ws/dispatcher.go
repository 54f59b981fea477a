package boardsyncws

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/openboard/boardsync/board"
)

// Dispatcher fans board events out to every connection subscribed to that
// board. Delivery is best-effort, at-most-once per event per connection:
// each connection has a bounded outbound queue, and a connection whose queue
// is full is dropped instead of blocking the publisher.
type Dispatcher struct {
	logger zerolog.Logger

	mu     sync.RWMutex
	boards map[string]map[*Conn]struct{}
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		boards: make(map[string]map[*Conn]struct{}),
	}
}

// Subscribe registers conn for events on boardID.
func (d *Dispatcher) Subscribe(boardID string, conn *Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs, ok := d.boards[boardID]
	if !ok {
		subs = make(map[*Conn]struct{})
		d.boards[boardID] = subs
	}
	subs[conn] = struct{}{}
}

// Unsubscribe removes conn from boardID. Unknown subscriptions are ignored.
func (d *Dispatcher) Unsubscribe(boardID string, conn *Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs, ok := d.boards[boardID]
	if !ok {
		return
	}
	delete(subs, conn)
	if len(subs) == 0 {
		delete(d.boards, boardID)
	}
}

// Subscribers returns the number of connections on boardID.
func (d *Dispatcher) Subscribers(boardID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.boards[boardID])
}

// Publish encodes an applied board op and delivers it to every subscriber of
// the board. The server publishes with no exclusion — full echo — so the
// originator hears its own ops through the same ordered channel as everyone
// else. Implements board.EventSink.
func (d *Dispatcher) Publish(boardID string, op board.Op) {
	data, err := EncodeOp(op)
	if err != nil {
		d.logger.Error().Err(err).Str("board", boardID).Msg("failed to encode board event")
		return
	}
	d.Broadcast(boardID, data, nil)
}

// Broadcast delivers an already-encoded frame to every subscriber of
// boardID except exclude (which may be nil).
func (d *Dispatcher) Broadcast(boardID string, data []byte, exclude *Conn) {
	d.mu.RLock()
	subs := make([]*Conn, 0, len(d.boards[boardID]))
	for conn := range d.boards[boardID] {
		if conn == exclude {
			continue
		}
		subs = append(subs, conn)
	}
	d.mu.RUnlock()

	for _, conn := range subs {
		if !conn.enqueue(data) {
			// A slow consumer must not stall the whole board.
			conn.logger.Warn().Msg("outbound queue full, dropping connection")
			go conn.closeWith(websocket.ClosePolicyViolation, "slow consumer")
		}
	}
}
