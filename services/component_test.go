package services

import (
	"testing"

	"robotsim-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsInitializeComponentsInPlace(t *testing.T) {
	f := newTestFactory(t)
	pf := newTestPathFinder(t)

	m, err := NewMachine(f, "press", models.Rect(50, 50, 10, 10), WithComponentID("m-1"))
	require.NoError(t, err)
	room, err := NewRoom(f, "lab", models.Rect(100, 100, 40, 40), 2, WithComponentID("room-1"))
	require.NoError(t, err)
	door, err := NewDoor(f, room, "lab-door", models.SideLeft, 10, 10, true, WithComponentID("door-1"))
	require.NoError(t, err)
	r := addRobot(t, f, pf, "rover", 5, 5)

	assert.Equal(t, "m-1", m.ID())
	assert.Equal(t, "room-1", room.ID())
	assert.Equal(t, "door-1", door.ID())
	assert.NotEmpty(t, r.ID())
	assert.Equal(t, models.KindDoor, door.Kind())
	assert.Same(t, f, r.Factory())

	// each component publishes its own shape
	r.setShape(r.Shape().MovedTo(models.Position{X: 20, Y: 20}))
	assert.Equal(t, models.Position{X: 20, Y: 20}, r.Position())
	assert.Equal(t, models.Position{X: 50, Y: 50}, m.Position())
	assert.Equal(t, models.Position{X: 100, Y: 100}, room.Position())
}

func TestConstructorsRejectBadInput(t *testing.T) {
	f := newTestFactory(t)

	_, err := NewMachine(nil, "press", models.Rect(0, 0, 5, 5))
	assert.Error(t, err)
	_, err = NewMachine(f, "", models.Rect(0, 0, 5, 5))
	assert.Error(t, err)
	_, err = NewMachine(f, "press", models.Rect(0, 0, -1, 5))
	assert.ErrorIs(t, err, models.ErrInvalidShape)
	assert.Empty(t, f.Components(), "failed constructors register nothing")
}
