package board

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry creates and locates board actors by id. Boards are cheap,
// transient collaboration sessions: an actor is created lazily on the first
// connection for its id and discarded, state and all, when the last
// connection releases it.
type Registry struct {
	sink   EventSink
	logger zerolog.Logger

	mu     sync.Mutex
	boards map[string]*registration
}

type registration struct {
	actor *Actor
	refs  int
}

func NewRegistry(sink EventSink, logger zerolog.Logger) *Registry {
	return &Registry{
		sink:   sink,
		logger: logger,
		boards: make(map[string]*registration),
	}
}

// Acquire returns the actor for boardID, creating and starting it if absent,
// and takes a reference on it. Every Acquire must be paired with a Release.
func (r *Registry) Acquire(boardID string) *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.boards[boardID]
	if !ok {
		reg = &registration{actor: NewActor(boardID, r.sink, r.logger)}
		r.boards[boardID] = reg
		go reg.actor.Run()
		r.logger.Info().Str("board", boardID).Int("boards", len(r.boards)).Msg("board created")
	}
	reg.refs++
	return reg.actor
}

// Release drops one reference on boardID. When the last reference goes, the
// actor is stopped and its state evicted. Releasing an unknown board is a
// no-op.
func (r *Registry) Release(boardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.boards[boardID]
	if !ok {
		return
	}
	reg.refs--
	if reg.refs > 0 {
		return
	}
	reg.actor.Stop()
	delete(r.boards, boardID)
	r.logger.Info().Str("board", boardID).Int("boards", len(r.boards)).Msg("board evicted")
}

// Len returns the number of live boards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}
