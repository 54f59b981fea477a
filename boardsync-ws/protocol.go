package boardsyncws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openboard/boardsync/board"
)

// Whiteboard realtime protocol message types. The same envelope flows in
// both directions; current_state is server→client only and request_state
// client→server only.
const (
	MsgCursorMove   = "cursor_move"
	MsgShapeAdd     = "shape_add"
	MsgShapeUpdate  = "shape_update"
	MsgShapeDelete  = "shape_delete"
	MsgClear        = "clear"
	MsgRequestState = "request_state"
	MsgCurrentState = "current_state"
)

// ErrUnknownMessageType marks an envelope whose type the server does not
// recognize. Such messages are ignored rather than answered, to keep the
// channel resilient to buggy clients.
var ErrUnknownMessageType = errors.New("unknown message type")

// Message is the wire envelope, both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseMessage parses a wire envelope from raw JSON.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message envelope: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("missing message type")
	}
	return &msg, nil
}

// CursorPayload is the payload of a cursor_move message: either a position
// update or, with Remove set, a cursor removal (pointer left the canvas).
type CursorPayload struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color,omitempty"`
	Username string  `json:"username,omitempty"`
	Remove   bool    `json:"remove,omitempty"`
}

// cursorRemovePayload is the minimal removal form of cursor_move.
type cursorRemovePayload struct {
	ID     string `json:"id"`
	Remove bool   `json:"remove"`
}

// DeletePayload is the payload of a shape_delete message.
type DeletePayload struct {
	IDs    []string `json:"ids"`
	UserID string   `json:"userId,omitempty"`
}

// ClearPayload is the payload of a clear message.
type ClearPayload struct {
	UserID string `json:"userId,omitempty"`
}

// StatePayload is the payload of a current_state message: the full snapshot
// a newly joined (or explicitly requesting) client rebuilds its scene from.
type StatePayload struct {
	Shapes  []board.Shape  `json:"shapes"`
	Cursors []board.Cursor `json:"cursors"`
}

// DecodeOp maps an inbound envelope to a board op. Structural problems
// (missing id, unrecognized shape kind, malformed payload) are returned as
// errors; the caller drops the message and keeps the connection open.
// request_state is not handled here: the connection handler builds that op
// itself because the reply targets its own outbound queue.
func DecodeOp(msg *Message) (board.Op, error) {
	switch msg.Type {
	case MsgCursorMove:
		var p CursorPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshalling cursor_move payload: %w", err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("cursor_move payload is missing an id")
		}
		if p.Remove {
			return board.RemoveCursor{UserID: p.ID}, nil
		}
		return board.MoveCursor{Cursor: board.Cursor{
			UserID:      p.ID,
			X:           p.X,
			Y:           p.Y,
			Color:       p.Color,
			DisplayName: p.Username,
		}}, nil

	case MsgShapeAdd, MsgShapeUpdate:
		var shape board.Shape
		if err := json.Unmarshal(msg.Payload, &shape); err != nil {
			return nil, fmt.Errorf("unmarshalling %v payload: %w", msg.Type, err)
		}
		if msg.Type == MsgShapeAdd {
			return board.AddShape{Shape: shape}, nil
		}
		return board.UpdateShape{Shape: shape}, nil

	case MsgShapeDelete:
		var p DeletePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshalling shape_delete payload: %w", err)
		}
		return board.DeleteShapes{IDs: p.IDs, UserID: p.UserID}, nil

	case MsgClear:
		var p ClearPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return nil, fmt.Errorf("unmarshalling clear payload: %w", err)
			}
		}
		return board.ClearShapes{UserID: p.UserID}, nil

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownMessageType, msg.Type)
	}
}

// EncodeOp maps an applied board op back to its wire envelope. The broadcast
// mirrors the accepted op exactly, so every subscriber — the originator
// included — reconstructs the same state in the same order.
func EncodeOp(op board.Op) ([]byte, error) {
	switch op := op.(type) {
	case board.AddShape:
		return marshalMessage(MsgShapeAdd, op.Shape)
	case board.UpdateShape:
		return marshalMessage(MsgShapeUpdate, op.Shape)
	case board.DeleteShapes:
		return marshalMessage(MsgShapeDelete, DeletePayload{IDs: op.IDs, UserID: op.UserID})
	case board.ClearShapes:
		return marshalMessage(MsgClear, ClearPayload{UserID: op.UserID})
	case board.MoveCursor:
		return marshalMessage(MsgCursorMove, CursorPayload{
			ID:       op.Cursor.UserID,
			X:        op.Cursor.X,
			Y:        op.Cursor.Y,
			Color:    op.Cursor.Color,
			Username: op.Cursor.DisplayName,
		})
	case board.RemoveCursor:
		return marshalMessage(MsgCursorMove, cursorRemovePayload{ID: op.UserID, Remove: true})
	default:
		return nil, fmt.Errorf("op %T has no wire representation", op)
	}
}

// CurrentStateMessage builds the unicast current_state envelope for a state
// snapshot.
func CurrentStateMessage(state board.State) ([]byte, error) {
	shapes := state.Shapes
	if shapes == nil {
		shapes = []board.Shape{}
	}
	cursors := state.Cursors
	if cursors == nil {
		cursors = []board.Cursor{}
	}
	return marshalMessage(MsgCurrentState, StatePayload{Shapes: shapes, Cursors: cursors})
}

func marshalMessage(msgType string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling %v payload: %w", msgType, err)
	}
	data, err := json.Marshal(Message{Type: msgType, Payload: payloadBytes})
	if err != nil {
		return nil, fmt.Errorf("marshalling %v message: %w", msgType, err)
	}
	return data, nil
}
