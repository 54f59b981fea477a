// Package board holds the canonical state of whiteboard sessions: the shape
// store and presence tracker for each board, the actor that serializes all
// mutations to them, and the registry that manages board lifecycles.
package board

import (
	"sync"

	"github.com/rs/zerolog"
)

// Op is an operation accepted by a board Actor. Every state-changing op is
// re-broadcast verbatim to all subscribers of the board, including the
// sender: clients learn the canonical order of truth from what the actor
// emitted, never from what they locally assumed.
type Op interface {
	isOp()
}

type AddShape struct {
	Shape Shape
}

type UpdateShape struct {
	Shape Shape
}

type DeleteShapes struct {
	IDs    []string
	UserID string
}

type ClearShapes struct {
	UserID string
}

type MoveCursor struct {
	Cursor Cursor
}

type RemoveCursor struct {
	UserID string
}

// RequestState asks the actor for a full snapshot. It mutates nothing and is
// never broadcast; Reply is invoked on the actor goroutine with a point-in-
// time copy of the board, so it must not block.
type RequestState struct {
	Reply func(State)
}

func (AddShape) isOp()     {}
func (UpdateShape) isOp()  {}
func (DeleteShapes) isOp() {}
func (ClearShapes) isOp()  {}
func (MoveCursor) isOp()   {}
func (RemoveCursor) isOp() {}
func (RequestState) isOp() {}

// State is a point-in-time copy of one board.
type State struct {
	Shapes  []Shape
	Cursors []Cursor
}

// EventSink receives the ops a board actor has applied, in the order it
// applied them. The ws dispatcher implements this to fan events out to
// subscribers.
type EventSink interface {
	Publish(boardID string, op Op)
}

const intentBuffer = 256

// Actor owns the state of one board. All mutations flow through a single
// goroutine, so accepted ops are applied and broadcast in exactly the order
// they are accepted — no lost updates under concurrent senders, no locks on
// the stores themselves.
type Actor struct {
	id       string
	store    *ShapeStore
	presence *PresenceTracker
	sink     EventSink
	logger   zerolog.Logger

	intents  chan Op
	done     chan struct{}
	stopOnce sync.Once
}

func NewActor(id string, sink EventSink, logger zerolog.Logger) *Actor {
	return &Actor{
		id:       id,
		store:    NewShapeStore(),
		presence: NewPresenceTracker(),
		sink:     sink,
		logger:   logger.With().Str("board", id).Logger(),
		intents:  make(chan Op, intentBuffer),
		done:     make(chan struct{}),
	}
}

// ID returns the board id this actor owns.
func (a *Actor) ID() string {
	return a.id
}

// Run processes ops until Stop is called. It should be started in its own
// goroutine; the registry does this on creation.
func (a *Actor) Run() {
	for {
		select {
		case op := <-a.intents:
			a.apply(op)
		case <-a.done:
			// Ops accepted before the stop still complete and broadcast.
			for {
				select {
				case op := <-a.intents:
					a.apply(op)
				default:
					return
				}
			}
		}
	}
}

// Enqueue hands an op to the actor. It reports false if the actor has been
// stopped; ops accepted before a stop still complete and broadcast.
func (a *Actor) Enqueue(op Op) bool {
	select {
	case <-a.done:
		return false
	default:
	}
	select {
	case a.intents <- op:
		return true
	case <-a.done:
		return false
	}
}

// Stop terminates the actor. Board state is discarded with it.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
	})
}

func (a *Actor) apply(op Op) {
	switch op := op.(type) {
	case AddShape:
		if replaced := a.store.Add(op.Shape); replaced {
			// Duplicate-id add resolves as an update; the client is not told.
			a.logger.Debug().Str("shape_id", op.Shape.ID).Msg("duplicate shape id, treating add as update")
		}
		a.sink.Publish(a.id, op)
	case UpdateShape:
		a.store.Update(op.Shape)
		a.sink.Publish(a.id, op)
	case DeleteShapes:
		a.store.Delete(op.IDs)
		a.sink.Publish(a.id, op)
	case ClearShapes:
		a.store.Clear()
		a.sink.Publish(a.id, op)
	case MoveCursor:
		a.presence.Upsert(op.Cursor)
		a.sink.Publish(a.id, op)
	case RemoveCursor:
		a.presence.Remove(op.UserID)
		a.sink.Publish(a.id, op)
	case RequestState:
		if op.Reply != nil {
			op.Reply(State{
				Shapes:  a.store.Snapshot(),
				Cursors: a.presence.Snapshot(),
			})
		}
	default:
		a.logger.Warn().Type("op", op).Msg("unhandled board op")
	}
}
