package board

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the geometry variant carried by a shape.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindStar      Kind = "star"
	KindImage     Kind = "image"
)

// Geometry is the kind-specific payload of a shape. Values are taken as-is
// from the client; the server checks structure, not drawing semantics.
type Geometry interface {
	kind() Kind
}

type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

type Star struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	InnerRadius float64 `json:"innerRadius"`
	OuterRadius float64 `json:"outerRadius"`
	NumPoints   int     `json:"numPoints"`
}

type Image struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Src    string  `json:"src"`
}

func (Rectangle) kind() Kind { return KindRectangle }
func (Circle) kind() Kind    { return KindCircle }
func (Star) kind() Kind      { return KindStar }
func (Image) kind() Kind     { return KindImage }

// Shape is one element of a board's scene. Ids are assigned by the
// originating client and treated as opaque. On the wire a shape is a flat
// object: the geometry fields sit alongside id/kind/userId, so Shape carries
// custom JSON (un)marshalling to map between the flat form and the tagged
// variant. Presentational fields the server does not model (fill, stroke,
// rotation, ...) are carried through untouched in Extra.
type Shape struct {
	ID       string
	Kind     Kind
	Owner    string
	Geometry Geometry
	Extra    map[string]json.RawMessage
}

// headerKeys are the flat wire fields owned by Shape itself rather than by a
// geometry variant.
var headerKeys = map[string]struct{}{
	"id":     {},
	"kind":   {},
	"userId": {},
	"owner":  {},
}

var geometryKeys = map[Kind]map[string]struct{}{
	KindRectangle: {"x": {}, "y": {}, "width": {}, "height": {}},
	KindCircle:    {"x": {}, "y": {}, "radius": {}},
	KindStar:      {"x": {}, "y": {}, "innerRadius": {}, "outerRadius": {}, "numPoints": {}},
	KindImage:     {"x": {}, "y": {}, "width": {}, "height": {}, "src": {}},
}

func newGeometry(kind Kind) Geometry {
	switch kind {
	case KindRectangle:
		return Rectangle{}
	case KindCircle:
		return Circle{}
	case KindStar:
		return Star{}
	case KindImage:
		return Image{}
	default:
		return nil
	}
}

func (s *Shape) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("unmarshalling shape: %w", err)
	}

	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &s.ID); err != nil {
			return fmt.Errorf("unmarshalling shape id: %w", err)
		}
	}
	if s.ID == "" {
		return fmt.Errorf("shape is missing an id")
	}

	var kind Kind
	if raw, ok := fields["kind"]; ok {
		if err := json.Unmarshal(raw, &kind); err != nil {
			return fmt.Errorf("unmarshalling shape kind: %w", err)
		}
	}
	geometry := newGeometry(kind)
	if geometry == nil {
		return fmt.Errorf("shape %v has unrecognized kind %q", s.ID, kind)
	}
	s.Kind = kind

	// Older clients send the owner as "owner"; current ones as "userId".
	for _, key := range []string{"userId", "owner"} {
		if raw, ok := fields[key]; ok {
			if err := json.Unmarshal(raw, &s.Owner); err != nil {
				return fmt.Errorf("unmarshalling shape owner: %w", err)
			}
			break
		}
	}

	// Geometry values are not validated; missing fields decode to zero.
	switch kind {
	case KindRectangle:
		var g Rectangle
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("unmarshalling rectangle geometry: %w", err)
		}
		s.Geometry = g
	case KindCircle:
		var g Circle
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("unmarshalling circle geometry: %w", err)
		}
		s.Geometry = g
	case KindStar:
		var g Star
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("unmarshalling star geometry: %w", err)
		}
		s.Geometry = g
	case KindImage:
		var g Image
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("unmarshalling image geometry: %w", err)
		}
		s.Geometry = g
	}

	s.Extra = nil
	for key, raw := range fields {
		if _, ok := headerKeys[key]; ok {
			continue
		}
		if _, ok := geometryKeys[kind][key]; ok {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		s.Extra[key] = raw
	}
	return nil
}

func (s Shape) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+8)
	for key, raw := range s.Extra {
		out[key] = raw
	}

	if s.Geometry != nil {
		gb, err := json.Marshal(s.Geometry)
		if err != nil {
			return nil, fmt.Errorf("marshalling %v geometry: %w", s.Kind, err)
		}
		var gm map[string]json.RawMessage
		if err := json.Unmarshal(gb, &gm); err != nil {
			return nil, fmt.Errorf("flattening %v geometry: %w", s.Kind, err)
		}
		for key, raw := range gm {
			out[key] = raw
		}
	}

	id, _ := json.Marshal(s.ID)
	kind, _ := json.Marshal(s.Kind)
	out["id"] = id
	out["kind"] = kind
	if s.Owner != "" {
		owner, _ := json.Marshal(s.Owner)
		out["userId"] = owner
	}
	return json.Marshal(out)
}

// Cursor is one user's pointer position on a board. One cursor per user;
// an update for the same user id overwrites the previous one.
type Cursor struct {
	UserID      string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Color       string  `json:"color"`
	DisplayName string  `json:"username"`
}
