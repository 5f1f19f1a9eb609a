package services

import (
	"os"
	"path/filepath"
	"testing"

	"robotsim-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLayout = `
name: assembly-hall
width: 200
height: 200
components:
  - name: press
    kind: machine
    shape: {kind: rectangle, x: 50, y: 50, width: 15, height: 15}
  - name: lab
    kind: room
    shape: {kind: rectangle, x: 100, y: 100, width: 40, height: 40}
    wall_thickness: 2
  - name: lab-door
    kind: door
    room: lab
    side: left
    offset: 10
    length: 10
    open: true
  - name: bench
    kind: machine
    shape: {kind: rectangle, x: 115, y: 115, width: 10, height: 10}
  - name: charger
    kind: charging_station
    shape: {kind: rectangle, x: 180, y: 180, width: 8, height: 8}
  - name: rover
    kind: robot
    shape: {kind: circle, x: 5, y: 5, radius: 2}
    battery: {capacity: 100, level: 80}
    targets: [press, bench, charger]
`

func TestParseLayoutAndBuild(t *testing.T) {
	snap, err := ParseLayout([]byte(sampleLayout))
	require.NoError(t, err)
	assert.Equal(t, "assembly-hall", snap.Name)
	require.Len(t, snap.Components, 6)

	f, err := BuildFactory(snap, newTestPathFinder(t))
	require.NoError(t, err)

	rover, err := f.Component("rover")
	require.NoError(t, err)
	robot := rover.(*Robot)
	var names []string
	for _, target := range robot.Targets() {
		names = append(names, target.Name())
	}
	assert.Equal(t, []string{"press", "bench", "charger"}, names)
	assert.Equal(t, 80.0, robot.Battery().Level)

	lab, err := f.Component("lab")
	require.NoError(t, err)
	require.Len(t, lab.(*Room).Doors(), 1)
	assert.True(t, lab.(*Room).Doors()[0].IsOpen())

	bench, err := f.Component("bench")
	require.NoError(t, err)
	assert.NotEmpty(t, newTestPathFinder(t).FindPath(robot, bench), "bench is reachable through the open door")
}

func TestParseLayoutRejectsBadInput(t *testing.T) {
	_, err := ParseLayout([]byte("width: 0\nheight: 10\n"))
	assert.ErrorIs(t, err, ErrInvalidFactory)

	_, err = ParseLayout([]byte("width: 10\nheight: 10\ncomponents:\n  - kind: machine\n"))
	assert.Error(t, err)

	_, err = ParseLayout([]byte("width: [oops"))
	assert.Error(t, err)
}

func TestBuildFactoryErrors(t *testing.T) {
	pf := newTestPathFinder(t)
	_, err := BuildFactory(nil, pf)
	assert.Error(t, err)

	_, err = BuildFactory(&models.FacilitySnapshot{Name: "x", Width: 50, Height: 50, Components: []models.ComponentSnapshot{
		{Name: "ufo", Kind: "spaceship", Shape: models.Rect(0, 0, 1, 1)},
	}}, pf)
	assert.ErrorIs(t, err, ErrUnknownComponentKind)

	_, err = BuildFactory(&models.FacilitySnapshot{Name: "x", Width: 50, Height: 50, Components: []models.ComponentSnapshot{
		{Name: "r", Kind: models.KindRobot, Shape: models.Rect(0, 0, 4, 4), Targets: []string{"nowhere"}},
	}}, pf)
	assert.ErrorIs(t, err, ErrComponentNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap, err := ParseLayout([]byte(sampleLayout))
	require.NoError(t, err)
	pf := newTestPathFinder(t)
	original, err := BuildFactory(snap, pf)
	require.NoError(t, err)

	captured := original.Snapshot()
	assert.Equal(t, original.ID(), captured.ID)
	assert.False(t, captured.SimulationRunning)
	rebuilt, err := BuildFactory(captured, pf)
	require.NoError(t, err)

	again := rebuilt.Snapshot()
	require.Len(t, again.Components, len(captured.Components))
	for i := range captured.Components {
		want, got := captured.Components[i], again.Components[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.Shape, got.Shape)
		assert.Equal(t, want.Targets, got.Targets)
		assert.Equal(t, want.Open, got.Open)
		assert.Equal(t, want.Room, got.Room)
	}
}

func TestLoadAndMarshalLayoutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleLayout), 0o644))

	snap, err := LoadLayoutFile(path)
	require.NoError(t, err)

	out, err := MarshalLayout(snap)
	require.NoError(t, err)
	back, err := ParseLayout(out)
	require.NoError(t, err)
	assert.Equal(t, snap.Components, back.Components)

	_, err = LoadLayoutFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLayoutGeneratorProducesReachableLayouts(t *testing.T) {
	gen := NewLayoutGenerator(42)
	snap, err := gen.Generate("generated", 200, 200, 4, 3)
	require.NoError(t, err)
	require.Len(t, snap.Components, 4+1+3)

	again, err := NewLayoutGenerator(42).Generate("generated", 200, 200, 4, 3)
	require.NoError(t, err)
	for i := range snap.Components {
		assert.Equal(t, snap.Components[i].Shape, again.Components[i].Shape, "same seed, same layout")
	}

	pf := newTestPathFinder(t)
	f, err := BuildFactory(snap, pf)
	require.NoError(t, err)

	statics := f.Components()[:5]
	for i, a := range statics {
		for _, b := range statics[i+1:] {
			assert.False(t, a.Overlaps(b.Shape()), "%s overlaps %s", a.Name(), b.Name())
		}
	}
	for _, r := range f.Robots() {
		require.Len(t, r.Targets(), 5)
		for _, target := range r.Targets() {
			assert.NotEmpty(t, pf.FindPath(r, target), "%s -> %s", r.Name(), target.Name())
		}
	}
}

func TestLayoutGeneratorValidates(t *testing.T) {
	gen := NewLayoutGenerator(1)
	_, err := gen.Generate("tiny", 20, 20, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidFactory)
	_, err = gen.Generate("empty", 200, 200, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidFactory)
	_, err = gen.Generate("crowded", 200, 200, 1, 50)
	assert.ErrorIs(t, err, ErrInvalidFactory)
}

func TestSnapshotRestoresRobotProgress(t *testing.T) {
	snap, err := ParseLayout([]byte(sampleLayout))
	require.NoError(t, err)
	pf := newTestPathFinder(t)
	f, err := BuildFactory(snap, pf)
	require.NoError(t, err)

	rover, err := f.Component("rover")
	require.NoError(t, err)
	robot := rover.(*Robot)
	robot.Behave()
	require.Equal(t, "press", robot.CurrentTarget().Name())
	memorize(robot, models.Position{X: 15, Y: 15})
	robot.blocked.Store(true)
	robot.setState(StateBlocked)

	captured := f.Snapshot()
	rebuilt, err := BuildFactory(captured, pf)
	require.NoError(t, err)
	rc, err := rebuilt.Component(robot.ID())
	require.NoError(t, err)
	restored := rc.(*Robot)

	require.NotNil(t, restored.CurrentTarget())
	assert.Equal(t, robot.CurrentTarget().ID(), restored.CurrentTarget().ID())
	assert.Equal(t, &models.Position{X: 15, Y: 15}, restored.MemorizedPosition())
	assert.Equal(t, StateBlocked, restored.State())
	assert.True(t, restored.Blocked())
	assert.Equal(t, 1, restored.nextTarget, "bench comes after press")

	restored.Behave()
	assert.Equal(t, "press", restored.CurrentTarget().Name(), "restored target is kept")
	assert.False(t, restored.replan)
}

func TestBuildFactoryKeepsSnapshotOrder(t *testing.T) {
	snap := &models.FacilitySnapshot{Name: "ordered", Width: 200, Height: 200, Components: []models.ComponentSnapshot{
		{Name: "press", Kind: models.KindMachine, Shape: models.Rect(50, 50, 10, 10)},
		{Name: "rover", Kind: models.KindRobot, Shape: models.Rect(5, 5, 4, 4), Targets: []string{"press"}},
		{Name: "lab-door", Kind: models.KindDoor, Room: "lab", Side: models.SideLeft, Offset: 10, Length: 10, Open: true},
		{Name: "lab", Kind: models.KindRoom, Shape: models.Rect(100, 100, 40, 40)},
		{Name: "belt", Kind: models.KindConveyor, Shape: models.Rect(20, 150, 30, 5)},
	}}

	f, err := BuildFactory(snap, newTestPathFinder(t))
	require.NoError(t, err)

	var names []string
	for _, c := range f.Components() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"press", "rover", "lab-door", "lab", "belt"}, names)

	again, err := BuildFactory(f.Snapshot(), newTestPathFinder(t))
	require.NoError(t, err)
	assert.Equal(t, f.Snapshot().Components[1].ID, again.Components()[1].ID())
}
