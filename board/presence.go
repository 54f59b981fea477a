package board

// PresenceTracker holds the cursors of currently connected users on one
// board, keyed by user id in first-seen order. Like ShapeStore it is owned
// by a single Actor and does no locking of its own. Cursors are ephemeral:
// nothing here survives the board.
type PresenceTracker struct {
	cursors map[string]Cursor
	order   []string
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		cursors: make(map[string]Cursor),
	}
}

// Upsert replaces the cursor for cursor.UserID.
func (p *PresenceTracker) Upsert(cursor Cursor) {
	if _, ok := p.cursors[cursor.UserID]; !ok {
		p.order = append(p.order, cursor.UserID)
	}
	p.cursors[cursor.UserID] = cursor
}

// Remove drops the user's cursor. Removing an absent user is a no-op, which
// makes disconnect cleanup safe to run unconditionally.
func (p *PresenceTracker) Remove(userID string) {
	if _, ok := p.cursors[userID]; !ok {
		return
	}
	delete(p.cursors, userID)
	kept := p.order[:0]
	for _, id := range p.order {
		if _, ok := p.cursors[id]; ok {
			kept = append(kept, id)
		}
	}
	p.order = kept
}

// Snapshot returns a copy of the current cursors in first-seen order.
func (p *PresenceTracker) Snapshot() []Cursor {
	out := make([]Cursor, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.cursors[id])
	}
	return out
}

// Len returns the number of tracked cursors.
func (p *PresenceTracker) Len() int {
	return len(p.cursors)
}
