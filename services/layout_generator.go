package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"robotsim-backend/models"

	"github.com/google/uuid"
)

const (
	robotRadius     = 2
	robotSpacing    = 10
	stationSize     = 8
	minMachineSize  = 10
	maxMachineSize  = 20
	machineClearing = 10 // free corridor kept around every machine
	maxPlacementTry = 200
)

// LayoutGenerator builds random but valid factory layouts.
type LayoutGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLayoutGenerator - a zero seed means seed from the clock
func NewLayoutGenerator(seed int64) *LayoutGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LayoutGenerator{rng: rand.New(rand.NewSource(seed))}
}

// Generate places machines in the middle of the floor, a charging station in
// the bottom-right corner and robots along the left edge. Every robot cycles
// through all machines, starting at a different one, then goes charging.
func (g *LayoutGenerator) Generate(name string, width, height, machines, robots int) (*models.FacilitySnapshot, error) {
	if width < 50 || height < 50 {
		return nil, fmt.Errorf("%w: generated layouts need at least 50x50, got %dx%d", ErrInvalidFactory, width, height)
	}
	if machines < 1 {
		return nil, fmt.Errorf("%w: at least one machine is required", ErrInvalidFactory)
	}
	if robots < 0 || robotSpacing*robots > height-robotSpacing {
		return nil, fmt.Errorf("%w: %d robots do not fit a floor of height %d", ErrInvalidFactory, robots, height)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	snap := &models.FacilitySnapshot{
		ID:     uuid.NewString(),
		Name:   name,
		Width:  width,
		Height: height,
	}

	// 경계에서 안전한 여백 (10%)
	minX, maxX := max(width/10, robotSpacing*2), width-width/10
	minY, maxY := height/10, height-height/10

	station := models.Rect(width-stationSize-2, height-stationSize-2, stationSize, stationSize)
	placed := []models.Shape{station}
	var machineIDs []string
	for i := 0; i < machines; i++ {
		shape, ok := g.placeMachine(minX, maxX, minY, maxY, placed)
		if !ok {
			return nil, fmt.Errorf("%w: could not place machine %d of %d", ErrInvalidFactory, i+1, machines)
		}
		placed = append(placed, shape)

		id := uuid.NewString()
		machineIDs = append(machineIDs, id)
		snap.Components = append(snap.Components, models.ComponentSnapshot{
			ID:    id,
			Name:  fmt.Sprintf("machine-%d", i+1),
			Kind:  models.KindMachine,
			Shape: shape,
		})
	}

	stationID := uuid.NewString()
	snap.Components = append(snap.Components, models.ComponentSnapshot{
		ID:    stationID,
		Name:  "charging-station",
		Kind:  models.KindChargingStation,
		Shape: station,
	})

	for i := 0; i < robots; i++ {
		var targets []string
		for j := range machineIDs {
			targets = append(targets, machineIDs[(i+j)%len(machineIDs)])
		}
		targets = append(targets, stationID)

		snap.Components = append(snap.Components, models.ComponentSnapshot{
			ID:      uuid.NewString(),
			Name:    fmt.Sprintf("robot-%d", i+1),
			Kind:    models.KindRobot,
			Shape:   models.Shape{Kind: models.ShapeCircle, X: 5, Y: 5 + i*robotSpacing, Radius: robotRadius},
			Targets: targets,
			Battery: &models.Battery{Capacity: 100, Level: 100},
		})
	}

	return snap, nil
}

// placeMachine tries random spots until one keeps its distance from every
// machine placed so far.
func (g *LayoutGenerator) placeMachine(minX, maxX, minY, maxY int, placed []models.Shape) (models.Shape, bool) {
	for try := 0; try < maxPlacementTry; try++ {
		w := minMachineSize + g.rng.Intn(maxMachineSize-minMachineSize+1)
		h := minMachineSize + g.rng.Intn(maxMachineSize-minMachineSize+1)
		if maxX-minX <= w || maxY-minY <= h {
			return models.Shape{}, false
		}
		x := minX + g.rng.Intn(maxX-minX-w)
		y := minY + g.rng.Intn(maxY-minY-h)

		candidate := models.Rect(x, y, w, h)
		clearance := models.Rect(x-machineClearing, y-machineClearing, w+2*machineClearing, h+2*machineClearing)

		free := true
		for _, p := range placed {
			if clearance.Overlaps(p) {
				free = false
				break
			}
		}
		if free {
			return candidate, true
		}
	}
	return models.Shape{}, false
}
