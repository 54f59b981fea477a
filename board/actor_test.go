package board

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

// captureSink records published ops in order.
type captureSink struct {
	mu  sync.Mutex
	ops []Op
}

func (s *captureSink) Publish(_ string, op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
}

func (s *captureSink) all() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

func startActor(t *testing.T, sink EventSink) *Actor {
	t.Helper()
	actor := NewActor("test-board", sink, zerolog.Nop())
	go actor.Run()
	t.Cleanup(actor.Stop)
	return actor
}

// await waits until every op enqueued so far has been applied, and returns
// the resulting snapshot.
func await(t *testing.T, actor *Actor) State {
	t.Helper()
	done := make(chan State, 1)
	assert.True(t, actor.Enqueue(RequestState{Reply: func(state State) { done <- state }}))
	select {
	case state := <-done:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for board actor")
		return State{}
	}
}

func TestActor(t *testing.T) {
	t.Run("mutations apply in acceptance order", func(t *testing.T) {
		sink := &captureSink{}
		actor := startActor(t, sink)

		actor.Enqueue(AddShape{Shape: rect("r1", 1)})
		actor.Enqueue(UpdateShape{Shape: rect("r1", 2)})
		actor.Enqueue(UpdateShape{Shape: rect("r1", 3)})

		state := await(t, actor)
		assert.Len(t, state.Shapes, 1)
		assert.Equal(t, Rectangle{X: 3, Width: 10, Height: 10}, state.Shapes[0].Geometry)
	})

	t.Run("every state-changing op is published, mirrored exactly", func(t *testing.T) {
		sink := &captureSink{}
		actor := startActor(t, sink)

		ops := []Op{
			AddShape{Shape: rect("r1", 1)},
			MoveCursor{Cursor: Cursor{UserID: "alice", X: 4, Y: 2}},
			DeleteShapes{IDs: []string{"r1"}, UserID: "bob"},
			ClearShapes{UserID: "bob"},
			RemoveCursor{UserID: "alice"},
		}
		for _, op := range ops {
			actor.Enqueue(op)
		}
		await(t, actor)

		assert.Equal(t, ops, sink.all())
	})

	t.Run("request_state is never broadcast", func(t *testing.T) {
		sink := &captureSink{}
		actor := startActor(t, sink)
		await(t, actor)
		assert.Empty(t, sink.all())
	})

	t.Run("clients replaying the broadcast stream converge on the actor state", func(t *testing.T) {
		sink := &captureSink{}
		actor := startActor(t, sink)

		actor.Enqueue(AddShape{Shape: rect("r1", 1)})
		actor.Enqueue(AddShape{Shape: rect("r2", 2)})
		actor.Enqueue(UpdateShape{Shape: rect("r1", 7)})
		actor.Enqueue(MoveCursor{Cursor: Cursor{UserID: "alice", X: 1}})
		actor.Enqueue(DeleteShapes{IDs: []string{"r2", "missing"}})
		actor.Enqueue(MoveCursor{Cursor: Cursor{UserID: "bob", Y: 2}})
		actor.Enqueue(RemoveCursor{UserID: "bob"})
		state := await(t, actor)

		// Rebuild a client's local state from nothing but the broadcasts.
		store := NewShapeStore()
		presence := NewPresenceTracker()
		for _, op := range sink.all() {
			switch op := op.(type) {
			case AddShape:
				store.Add(op.Shape)
			case UpdateShape:
				store.Update(op.Shape)
			case DeleteShapes:
				store.Delete(op.IDs)
			case ClearShapes:
				store.Clear()
			case MoveCursor:
				presence.Upsert(op.Cursor)
			case RemoveCursor:
				presence.Remove(op.UserID)
			}
		}

		assert.Equal(t, state.Shapes, store.Snapshot())
		assert.Equal(t, state.Cursors, presence.Snapshot())
	})

	t.Run("snapshot reflects exactly the ops accepted before the request", func(t *testing.T) {
		sink := &captureSink{}
		actor := startActor(t, sink)

		actor.Enqueue(AddShape{Shape: rect("r1", 1)})
		actor.Enqueue(MoveCursor{Cursor: Cursor{UserID: "alice"}})
		state := await(t, actor)

		assert.Len(t, state.Shapes, 1)
		assert.Len(t, state.Cursors, 1)
		assert.Equal(t, "alice", state.Cursors[0].UserID)
	})

	t.Run("ops accepted before stop still complete and broadcast", func(t *testing.T) {
		sink := &captureSink{}
		actor := NewActor("draining-board", sink, zerolog.Nop())
		assert.True(t, actor.Enqueue(AddShape{Shape: rect("r1", 1)}))
		assert.True(t, actor.Enqueue(ClearShapes{UserID: "alice"}))
		actor.Stop()

		// Run drains the already-accepted buffer before returning.
		actor.Run()
		published := sink.all()
		assert.Len(t, published, 2)
		assert.Equal(t, AddShape{Shape: rect("r1", 1)}, published[0])
		assert.Equal(t, ClearShapes{UserID: "alice"}, published[1])
	})

	t.Run("enqueue after stop is rejected", func(t *testing.T) {
		sink := &captureSink{}
		actor := NewActor("stopped-board", sink, zerolog.Nop())
		go actor.Run()
		actor.Stop()
		assert.False(t, actor.Enqueue(AddShape{Shape: rect("r1", 1)}))
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		actor := NewActor("b", &captureSink{}, zerolog.Nop())
		go actor.Run()
		actor.Stop()
		actor.Stop()
	})
}
