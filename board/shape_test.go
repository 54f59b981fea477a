package board

import (
	"encoding/json"
	"testing"

	"github.com/tj/assert"
)

func TestShapeUnmarshal(t *testing.T) {
	t.Run("rectangle", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"id":"r1","kind":"rectangle","userId":"alice","x":1,"y":2,"width":10,"height":20,"fill":"#ff0000"}`), &s)
		assert.NoError(t, err)
		assert.Equal(t, "r1", s.ID)
		assert.Equal(t, KindRectangle, s.Kind)
		assert.Equal(t, "alice", s.Owner)
		assert.Equal(t, Rectangle{X: 1, Y: 2, Width: 10, Height: 20}, s.Geometry)
		assert.Equal(t, json.RawMessage(`"#ff0000"`), s.Extra["fill"])
	})

	t.Run("circle", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"id":"c1","kind":"circle","x":5,"y":5,"radius":7}`), &s)
		assert.NoError(t, err)
		assert.Equal(t, Circle{X: 5, Y: 5, Radius: 7}, s.Geometry)
	})

	t.Run("star", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"id":"s1","kind":"star","x":0,"y":0,"innerRadius":4,"outerRadius":9,"numPoints":5}`), &s)
		assert.NoError(t, err)
		assert.Equal(t, Star{InnerRadius: 4, OuterRadius: 9, NumPoints: 5}, s.Geometry)
	})

	t.Run("image", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"id":"i1","kind":"image","x":1,"y":1,"width":100,"height":50,"src":"https://example.com/cat.png"}`), &s)
		assert.NoError(t, err)
		assert.Equal(t, Image{X: 1, Y: 1, Width: 100, Height: 50, Src: "https://example.com/cat.png"}, s.Geometry)
	})

	t.Run("owner fallback to owner key", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"id":"r1","kind":"rectangle","owner":"bob"}`), &s)
		assert.NoError(t, err)
		assert.Equal(t, "bob", s.Owner)
	})

	t.Run("missing geometry fields decode to zero", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"id":"r1","kind":"rectangle"}`), &s)
		assert.NoError(t, err)
		assert.Equal(t, Rectangle{}, s.Geometry)
	})

	t.Run("negative geometry is accepted as-is", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"id":"r1","kind":"rectangle","width":-5}`), &s)
		assert.NoError(t, err)
		assert.Equal(t, Rectangle{Width: -5}, s.Geometry)
	})

	t.Run("missing id fails", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"kind":"rectangle"}`), &s)
		assert.Error(t, err)
	})

	t.Run("missing kind fails", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"id":"r1"}`), &s)
		assert.Error(t, err)
	})

	t.Run("unrecognized kind fails", func(t *testing.T) {
		var s Shape
		err := json.Unmarshal([]byte(`{"id":"x1","kind":"hexagon"}`), &s)
		assert.Error(t, err)
	})
}

func TestShapeMarshal(t *testing.T) {
	t.Run("round trip preserves geometry, owner, and extras", func(t *testing.T) {
		original := Shape{
			ID:       "s1",
			Kind:     KindStar,
			Owner:    "alice",
			Geometry: Star{X: 1, Y: 2, InnerRadius: 3, OuterRadius: 6, NumPoints: 5},
			Extra:    map[string]json.RawMessage{"fill": json.RawMessage(`"gold"`)},
		}
		data, err := json.Marshal(original)
		assert.NoError(t, err)

		var decoded Shape
		assert.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, original, decoded)
	})

	t.Run("wire form is flat", func(t *testing.T) {
		data, err := json.Marshal(rect("r1", 4))
		assert.NoError(t, err)

		var flat map[string]interface{}
		assert.NoError(t, json.Unmarshal(data, &flat))
		assert.Equal(t, "r1", flat["id"])
		assert.Equal(t, "rectangle", flat["kind"])
		assert.Equal(t, "alice", flat["userId"])
		assert.Equal(t, 4.0, flat["x"])
		assert.Equal(t, 10.0, flat["width"])
	})
}
