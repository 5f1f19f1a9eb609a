package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeConstructorsRejectInvalidDimensions(t *testing.T) {
	_, err := NewRectangle(0, 0, -1, 4)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = NewCircle(0, 0, -2)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = NewPolygon()
	assert.ErrorIs(t, err, ErrInvalidShape)

	assert.ErrorIs(t, Shape{Kind: "hexagon"}.Validate(), ErrInvalidShape)
}

func TestShapeBoundingExtents(t *testing.T) {
	c, err := NewCircle(5, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, c.BoundsWidth())
	assert.Equal(t, 4, c.BoundsHeight())
	assert.Equal(t, Position{X: 5, Y: 5}, c.Position())

	p, err := NewPolygon(Position{X: 10, Y: 3}, Position{X: 2, Y: 8}, Position{X: 7, Y: 12})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 2, Y: 3}, p.Position())
	assert.Equal(t, 8, p.BoundsWidth())
	assert.Equal(t, 9, p.BoundsHeight())
}

func TestOverlapsIsSymmetric(t *testing.T) {
	rect, _ := NewRectangle(50, 50, 15, 15)
	circle, _ := NewCircle(47, 47, 2)
	poly, _ := NewPolygon(Position{X: 60, Y: 60}, Position{X: 70, Y: 62}, Position{X: 65, Y: 75})
	far, _ := NewRectangle(0, 0, 4, 4)
	touching, _ := NewRectangle(65, 50, 5, 5)
	point := Rect(55, 55, 0, 0)

	shapes := []Shape{rect, circle, poly, far, touching, point}
	for _, a := range shapes {
		for _, b := range shapes {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%s vs %s", a, b)
		}
	}

	assert.True(t, rect.Overlaps(circle))
	assert.True(t, rect.Overlaps(poly))
	assert.True(t, rect.Overlaps(point))
	assert.False(t, rect.Overlaps(far))
	assert.False(t, rect.Overlaps(touching), "edges that only touch do not overlap")
}

func TestOverlapsItself(t *testing.T) {
	for _, s := range []Shape{
		Rect(3, 3, 0, 0),
		Rect(1, 1, 10, 2),
		{Kind: ShapeCircle, X: 4, Y: 4},
		{Kind: ShapePolygon, Vertices: []Position{{X: 1, Y: 1}}},
	} {
		assert.True(t, s.Overlaps(s), s.String())
	}
}

func TestMovedToTranslatesPolygon(t *testing.T) {
	p, err := NewPolygon(Position{X: 2, Y: 2}, Position{X: 6, Y: 2}, Position{X: 4, Y: 7})
	require.NoError(t, err)

	moved := p.MovedTo(Position{X: 10, Y: 20})
	assert.Equal(t, Position{X: 10, Y: 20}, moved.Position())
	assert.Equal(t, p.BoundsWidth(), moved.BoundsWidth())
	assert.Equal(t, Position{X: 2, Y: 2}, p.Vertices[0], "original must be untouched")

	c, _ := NewCircle(0, 0, 3)
	assert.Equal(t, Position{X: 7, Y: 8}, c.MovedTo(Position{X: 7, Y: 8}).Position())
}

func TestContains(t *testing.T) {
	outer := Rect(0, 0, 200, 200)
	assert.True(t, outer.Contains(Rect(196, 196, 4, 4)))
	assert.False(t, outer.Contains(Rect(197, 196, 4, 4)))
	assert.False(t, outer.Contains(Rect(-1, 0, 4, 4)))
}
