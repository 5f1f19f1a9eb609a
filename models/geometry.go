package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidShape is returned when a shape is built with impossible dimensions.
var ErrInvalidShape = errors.New("invalid shape")

// ShapeKind - shape variant tag
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapePolygon   ShapeKind = "polygon"
)

// Position - integer grid coordinate of a shape's top-left corner
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns p shifted by (dx, dy).
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// DistanceTo - Euclidean distance
func (p Position) DistanceTo(o Position) float64 {
	dx := float64(o.X - p.X)
	dy := float64(o.Y - p.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Shape is a positioned shape. Which fields are meaningful depends on Kind:
// rectangles use X/Y/Width/Height, circles use X/Y/Radius (X/Y being the
// corner of the bounding square), polygons use Vertices.
//
// Every overlap test works on the axis-aligned bounding box, whatever the kind.
type Shape struct {
	Kind     ShapeKind  `json:"kind" yaml:"kind"`
	X        int        `json:"x,omitempty" yaml:"x,omitempty"`
	Y        int        `json:"y,omitempty" yaml:"y,omitempty"`
	Width    int        `json:"width,omitempty" yaml:"width,omitempty"`
	Height   int        `json:"height,omitempty" yaml:"height,omitempty"`
	Radius   int        `json:"radius,omitempty" yaml:"radius,omitempty"`
	Vertices []Position `json:"vertices,omitempty" yaml:"vertices,omitempty"`
}

// NewRectangle - rectangle shape, fails on negative extents
func NewRectangle(x, y, width, height int) (Shape, error) {
	s := Rect(x, y, width, height)
	return s, s.Validate()
}

// NewCircle - circle shape whose bounding square starts at (x, y)
func NewCircle(x, y, radius int) (Shape, error) {
	s := Shape{Kind: ShapeCircle, X: x, Y: y, Radius: radius}
	return s, s.Validate()
}

// NewPolygon - polygon shape from an ordered vertex list
func NewPolygon(vertices ...Position) (Shape, error) {
	s := Shape{Kind: ShapePolygon, Vertices: append([]Position(nil), vertices...)}
	return s, s.Validate()
}

// Rect builds a rectangle without validation. Used for footprints whose
// dimensions come from an already validated shape.
func Rect(x, y, width, height int) Shape {
	return Shape{Kind: ShapeRectangle, X: x, Y: y, Width: width, Height: height}
}

// Validate checks the dimensional invariants of the shape.
func (s Shape) Validate() error {
	switch s.Kind {
	case ShapeRectangle:
		if s.Width < 0 || s.Height < 0 {
			return fmt.Errorf("%w: rectangle %dx%d", ErrInvalidShape, s.Width, s.Height)
		}
	case ShapeCircle:
		if s.Radius < 0 {
			return fmt.Errorf("%w: circle radius %d", ErrInvalidShape, s.Radius)
		}
	case ShapePolygon:
		if len(s.Vertices) == 0 {
			return fmt.Errorf("%w: polygon without vertices", ErrInvalidShape)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidShape, s.Kind)
	}
	return nil
}

// Position returns the top-left corner of the bounding box.
func (s Shape) Position() Position {
	if s.Kind == ShapePolygon {
		minX, minY, _, _ := s.polygonBounds()
		return Position{X: minX, Y: minY}
	}
	return Position{X: s.X, Y: s.Y}
}

func (s Shape) BoundsWidth() int {
	switch s.Kind {
	case ShapeCircle:
		return 2 * s.Radius
	case ShapePolygon:
		minX, _, maxX, _ := s.polygonBounds()
		return maxX - minX
	default:
		return s.Width
	}
}

func (s Shape) BoundsHeight() int {
	switch s.Kind {
	case ShapeCircle:
		return 2 * s.Radius
	case ShapePolygon:
		_, minY, _, maxY := s.polygonBounds()
		return maxY - minY
	default:
		return s.Height
	}
}

// Bounds returns the bounding rectangle of the shape.
func (s Shape) Bounds() Shape {
	p := s.Position()
	return Rect(p.X, p.Y, s.BoundsWidth(), s.BoundsHeight())
}

// MovedTo returns a copy of the shape translated so its bounding box starts at p.
func (s Shape) MovedTo(p Position) Shape {
	if s.Kind != ShapePolygon {
		s.X, s.Y = p.X, p.Y
		return s
	}
	cur := s.Position()
	dx, dy := p.X-cur.X, p.Y-cur.Y
	moved := make([]Position, len(s.Vertices))
	for i, v := range s.Vertices {
		moved[i] = v.Add(dx, dy)
	}
	s.Vertices = moved
	return s
}

// Overlaps reports whether the bounding boxes of s and o intersect.
// Intervals are half-open and a zero extent counts as one unit, so a
// degenerate shape still overlaps itself.
func (s Shape) Overlaps(o Shape) bool {
	ap, bp := s.Position(), o.Position()
	aw, ah := unit(s.BoundsWidth()), unit(s.BoundsHeight())
	bw, bh := unit(o.BoundsWidth()), unit(o.BoundsHeight())

	return ap.X < bp.X+bw && bp.X < ap.X+aw &&
		ap.Y < bp.Y+bh && bp.Y < ap.Y+ah
}

// Contains reports whether o's bounding box lies inside s's bounding box.
func (s Shape) Contains(o Shape) bool {
	ap, bp := s.Position(), o.Position()
	return bp.X >= ap.X && bp.Y >= ap.Y &&
		bp.X+o.BoundsWidth() <= ap.X+s.BoundsWidth() &&
		bp.Y+o.BoundsHeight() <= ap.Y+s.BoundsHeight()
}

// Center of the bounding box, rounded down.
func (s Shape) Center() Position {
	p := s.Position()
	return Position{X: p.X + s.BoundsWidth()/2, Y: p.Y + s.BoundsHeight()/2}
}

func (s Shape) polygonBounds() (minX, minY, maxX, maxY int) {
	if len(s.Vertices) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = s.Vertices[0].X, s.Vertices[0].Y
	maxX, maxY = minX, minY
	for _, v := range s.Vertices[1:] {
		minX = min(minX, v.X)
		minY = min(minY, v.Y)
		maxX = max(maxX, v.X)
		maxY = max(maxY, v.Y)
	}
	return minX, minY, maxX, maxY
}

func unit(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func (s Shape) String() string {
	p := s.Position()
	return fmt.Sprintf("%s@%s[%dx%d]", s.Kind, p, s.BoundsWidth(), s.BoundsHeight())
}
