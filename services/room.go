package services

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"robotsim-backend/models"
)

const defaultWallThickness = 1

// Room is a walled rectangle. Only the walls obstruct; the floor inside is free
// and each door cuts a gap into one wall.
type Room struct {
	component
	wallThickness int

	mu    sync.Mutex // serializes door registration
	doors []*Door
	walls atomic.Pointer[[]models.Shape]
}

// NewRoom places a room. A thickness of zero means the default of one unit.
func NewRoom(f *Factory, name string, shape models.Shape, wallThickness int, opts ...ComponentOption) (*Room, error) {
	if shape.Kind != models.ShapeRectangle {
		return nil, fmt.Errorf("room %q: %w: rooms must be rectangles", name, models.ErrInvalidShape)
	}
	if wallThickness <= 0 {
		wallThickness = defaultWallThickness
	}
	if 2*wallThickness > shape.Width || 2*wallThickness > shape.Height {
		return nil, fmt.Errorf("room %q: %w: walls of %d do not fit %dx%d", name, models.ErrInvalidShape, wallThickness, shape.Width, shape.Height)
	}

	r := &Room{wallThickness: wallThickness}
	if err := r.component.init(f, models.KindRoom, name, shape, opts); err != nil {
		return nil, err
	}
	r.rebuildWalls()
	f.AddComponent(r)
	return r, nil
}

func (r *Room) WallThickness() int { return r.wallThickness }

func (r *Room) Doors() []*Door {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Door(nil), r.doors...)
}

// Walls returns the wall segments left after cutting out the doors.
func (r *Room) Walls() []models.Shape {
	return *r.walls.Load()
}

func (r *Room) Overlaps(s models.Shape) bool {
	for _, w := range r.Walls() {
		if w.Overlaps(s) {
			return true
		}
	}
	return false
}

func (r *Room) addDoor(d *Door) {
	r.mu.Lock()
	r.doors = append(r.doors, d)
	r.mu.Unlock()
	r.rebuildWalls()
}

// sideLength is the usable length of a wall, the span a door offset is measured along.
func (r *Room) sideLength(side models.WallSide) int {
	s := r.Shape()
	switch side {
	case models.SideTop, models.SideBottom:
		return s.Width
	default:
		return s.Height
	}
}

// segment returns the rectangle of the wall span [offset, offset+length) on side.
func (r *Room) segment(side models.WallSide, offset, length int) models.Shape {
	s := r.Shape()
	t := r.wallThickness
	switch side {
	case models.SideTop:
		return models.Rect(s.X+offset, s.Y, length, t)
	case models.SideBottom:
		return models.Rect(s.X+offset, s.Y+s.Height-t, length, t)
	case models.SideLeft:
		return models.Rect(s.X, s.Y+offset, t, length)
	default:
		return models.Rect(s.X+s.Width-t, s.Y+offset, t, length)
	}
}

func (r *Room) rebuildWalls() {
	gaps := make(map[models.WallSide][][2]int)
	for _, d := range r.Doors() {
		gaps[d.side] = append(gaps[d.side], [2]int{d.offset, d.offset + d.length})
	}

	var walls []models.Shape
	for _, side := range []models.WallSide{models.SideTop, models.SideBottom, models.SideLeft, models.SideRight} {
		for _, span := range subtractSpans(r.sideLength(side), gaps[side]) {
			walls = append(walls, r.segment(side, span[0], span[1]-span[0]))
		}
	}
	r.walls.Store(&walls)
}

// subtractSpans removes the gaps from [0, length) and returns what remains.
func subtractSpans(length int, gaps [][2]int) [][2]int {
	sort.Slice(gaps, func(i, j int) bool { return gaps[i][0] < gaps[j][0] })

	var out [][2]int
	cursor := 0
	for _, g := range gaps {
		if g[0] > cursor {
			out = append(out, [2]int{cursor, g[0]})
		}
		cursor = max(cursor, g[1])
	}
	if cursor < length {
		out = append(out, [2]int{cursor, length})
	}
	return out
}

// ========================================
// Doors
// ========================================

// Door - gap in a room wall; passable only while open
type Door struct {
	component
	room   *Room
	side   models.WallSide
	offset int
	length int
	open   atomic.Bool
}

// NewDoor cuts a door of the given length into one wall of room, offset from
// the wall's start (left end for top/bottom, top end for left/right).
func NewDoor(f *Factory, room *Room, name string, side models.WallSide, offset, length int, open bool, opts ...ComponentOption) (*Door, error) {
	if room == nil {
		return nil, fmt.Errorf("door %q: room is required", name)
	}
	switch side {
	case models.SideTop, models.SideBottom, models.SideLeft, models.SideRight:
	default:
		return nil, fmt.Errorf("door %q: unknown wall side %q", name, side)
	}
	if offset < 0 || length <= 0 || offset+length > room.sideLength(side) {
		return nil, fmt.Errorf("door %q: span [%d,%d) does not fit the %s wall of %q", name, offset, offset+length, side, room.Name())
	}

	d := &Door{room: room, side: side, offset: offset, length: length}
	if err := d.component.init(f, models.KindDoor, name, room.segment(side, offset, length), opts); err != nil {
		return nil, err
	}
	d.open.Store(open)

	room.addDoor(d)
	f.AddComponent(d)
	return d, nil
}

func (d *Door) Room() *Room           { return d.room }
func (d *Door) Side() models.WallSide { return d.side }
func (d *Door) Offset() int           { return d.offset }
func (d *Door) Length() int           { return d.length }
func (d *Door) IsOpen() bool          { return d.open.Load() }

func (d *Door) CanBeOverlaid(models.Shape) bool {
	return d.open.Load()
}

// SetOpen opens or closes the door and notifies observers when it changed.
func (d *Door) SetOpen(open bool) {
	if d.open.Swap(open) == open {
		return
	}
	d.factory.notifyChanged(ChangeEvent{
		Kind:        ChangeComponentUpdated,
		ComponentID: d.id,
		Position:    d.Position(),
	})
}
