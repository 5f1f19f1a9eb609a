package services

import (
	"fmt"
	"sync"
	"sync/atomic"

	"robotsim-backend/logger"
	"robotsim-backend/models"

	"github.com/sirupsen/logrus"
)

const (
	// maxWaitTicks is how long a blocked robot waits before stepping aside.
	maxWaitTicks = 10
	// waitAfterFailedStepAside rewinds the wait counter so the next attempt
	// comes a few ticks later instead of on every tick.
	waitAfterFailedStepAside = 5
)

// RobotState - where a robot is in its behavior cycle
type RobotState int32

const (
	StateIdle RobotState = iota
	StatePlanning
	StateFollowing
	StateBlocked
	StateLivelocked
	StateSteppingAside
	StateReachedTarget
)

func (s RobotState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateFollowing:
		return "following"
	case StateBlocked:
		return "blocked"
	case StateLivelocked:
		return "livelocked"
	case StateSteppingAside:
		return "stepping_aside"
	case StateReachedTarget:
		return "reached_target"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func parseRobotState(s string) (RobotState, bool) {
	for st := StateIdle; st <= StateReachedTarget; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StateIdle, false
}

// stepAsideDirections - neighbor order tried when stepping aside
var stepAsideDirections = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

type targetRef struct {
	c Component
}

// Robot is the only mobile component. Each tick it moves one waypoint towards
// its current target, cycling through its target queue forever.
//
// Behave is only ever called from the robot's own unit; the fields other
// goroutines read (shape, state, blocked, target, memorized position) are atomic.
type Robot struct {
	component
	pathFinder PathFinder
	battery    models.Battery
	log        *logrus.Entry

	targetsMu sync.RWMutex
	targets   []Component

	// owned by the robot's unit
	nextTarget  int
	path        []models.Position
	pathIdx     int
	waitCounter int
	replan      bool // restored target without a path

	current   atomic.Pointer[targetRef]
	memorized atomic.Pointer[models.Position]
	state     atomic.Int32
	blocked   atomic.Bool
}

// NewRobot places a robot and registers it in f.
func NewRobot(f *Factory, name string, shape models.Shape, battery models.Battery, pf PathFinder, opts ...ComponentOption) (*Robot, error) {
	if pf == nil {
		return nil, fmt.Errorf("robot %q: path finder is required", name)
	}
	r := &Robot{
		pathFinder: pf,
		battery:    battery,
	}
	if err := r.component.init(f, models.KindRobot, name, shape, opts); err != nil {
		return nil, err
	}
	if !f.InBounds(shape.Bounds()) {
		return nil, fmt.Errorf("robot %q: %w: %s is outside the factory", name, models.ErrInvalidShape, shape)
	}
	r.log = logger.WithComponent(name).WithField("factory", f.Name())
	f.AddComponent(r)
	return r, nil
}

func (r *Robot) IsMobile() bool                  { return true }
func (r *Robot) CanBeOverlaid(models.Shape) bool { return true }
func (r *Robot) Battery() models.Battery         { return r.battery }
func (r *Robot) State() RobotState               { return RobotState(r.state.Load()) }
func (r *Robot) Blocked() bool                   { return r.blocked.Load() }

func (r *Robot) setState(s RobotState) { r.state.Store(int32(s)) }

// CurrentTarget - target being pursued, nil before the first behavior step
func (r *Robot) CurrentTarget() Component {
	if ref := r.current.Load(); ref != nil {
		return ref.c
	}
	return nil
}

// MemorizedPosition - the waypoint the robot failed to enter and keeps retrying
func (r *Robot) MemorizedPosition() *models.Position {
	if p := r.memorized.Load(); p != nil {
		cp := *p
		return &cp
	}
	return nil
}

// Path returns the remaining waypoints. Only meaningful while the simulation is stopped.
func (r *Robot) Path() []models.Position {
	if r.pathIdx >= len(r.path) {
		return nil
	}
	return append([]models.Position(nil), r.path[r.pathIdx:]...)
}

// ========================================
// Target queue
// ========================================

func (r *Robot) AddTarget(c Component) bool {
	if c == nil || c == Component(r) {
		return false
	}
	r.targetsMu.Lock()
	r.targets = append(r.targets, c)
	r.targetsMu.Unlock()
	r.factory.notifyChanged(ChangeEvent{Kind: ChangeComponentUpdated, ComponentID: r.id, Position: r.Position()})
	return true
}

// RemoveTarget removes the first occurrence of c from the queue.
func (r *Robot) RemoveTarget(c Component) bool {
	r.targetsMu.Lock()
	removed := false
	for i, t := range r.targets {
		if t == c {
			r.targets = append(r.targets[:i], r.targets[i+1:]...)
			removed = true
			break
		}
	}
	r.targetsMu.Unlock()

	if removed {
		r.factory.notifyChanged(ChangeEvent{Kind: ChangeComponentUpdated, ComponentID: r.id, Position: r.Position()})
	}
	return removed
}

func (r *Robot) Targets() []Component {
	r.targetsMu.RLock()
	defer r.targetsMu.RUnlock()
	return append([]Component(nil), r.targets...)
}

// restoreState puts back runtime state captured in a snapshot. Paths are not
// captured; the first behavior step recomputes one towards current.
func (r *Robot) restoreState(current Component, memorized *models.Position, state RobotState, blocked bool) {
	if current != nil {
		targets := r.Targets()
		for i, t := range targets {
			if t == current {
				r.nextTarget = (i + 1) % len(targets)
				break
			}
		}
		r.current.Store(&targetRef{c: current})
		r.replan = true
	}
	if memorized != nil {
		p := *memorized
		r.memorized.Store(&p)
	}
	r.setState(state)
	r.blocked.Store(blocked)
}

// ========================================
// Behavior
// ========================================

// Behave performs one tick: advance the target when the current one has been
// reached, then try to move one waypoint. Reports whether the robot moved.
func (r *Robot) Behave() bool {
	targets := r.Targets()
	if len(targets) == 0 {
		r.setState(StateIdle)
		return false
	}

	cur := r.CurrentTarget()
	if cur == nil || r.hasReached(cur) {
		if cur != nil {
			r.onTargetReached(cur)
		}
		r.selectNextTarget(targets)
		r.computePath()
	} else if r.replan {
		r.computePath()
	}

	return r.moveToNextPathPosition() != 0
}

func (r *Robot) hasReached(target Component) bool {
	return r.Shape().Overlaps(target.Shape())
}

func (r *Robot) onTargetReached(target Component) {
	r.setState(StateReachedTarget)
	r.log.WithField("target", target.Name()).Info("target reached")
	r.factory.metrics.targetReached()
	r.factory.recordEvent(models.EventTargetReached, r, target, "")
}

// selectNextTarget takes the next queue entry, wrapping around at the end.
func (r *Robot) selectNextTarget(targets []Component) {
	next := targets[r.nextTarget%len(targets)]
	r.nextTarget = (r.nextTarget + 1) % len(targets)
	r.current.Store(&targetRef{c: next})
	r.log.WithField("target", next.Name()).Debug("next target")
}

func (r *Robot) computePath() {
	r.setState(StatePlanning)
	r.path = r.pathFinder.FindPath(r, r.CurrentTarget())
	r.pathIdx = 0
	r.replan = false
	r.setState(StateFollowing)
}

// nextDesiredPosition returns the memorized waypoint if there is one,
// otherwise pops the next waypoint of the path.
func (r *Robot) nextDesiredPosition() (models.Position, bool) {
	if p := r.memorized.Load(); p != nil {
		return *p, true
	}
	if r.pathIdx < len(r.path) {
		p := r.path[r.pathIdx]
		r.pathIdx++
		return p, true
	}
	return models.Position{}, false
}

func (r *Robot) moveToNextPathPosition() int {
	desired, ok := r.nextDesiredPosition()
	if !ok {
		r.blocked.Store(true)
		r.handleBlocked()
		return 0
	}

	displacement := r.factory.MoveComponent(Motion{From: r.Position(), To: desired}, r)
	if displacement != 0 {
		r.memorized.Store(nil)
		r.waitCounter = 0
		r.blocked.Store(false)
		r.setState(StateFollowing)
		return displacement
	}

	r.memorized.Store(&desired)
	r.blocked.Store(true)
	if r.IsLivelocked() {
		r.resolveLivelock()
		return 0
	}
	r.handleBlocked()
	return 0
}

// handleBlocked runs when the robot could not advance this tick.
func (r *Robot) handleBlocked() {
	r.waitCounter++
	r.setState(StateBlocked)

	if r.memorized.Load() == nil {
		// nothing to retry: the path ran out before the target was touched
		r.computePath()
		if len(r.path) == 0 {
			r.skipUnreachableTarget()
			return
		}
	}

	if r.waitCounter > maxWaitTicks {
		if !r.stepAside("starvation") {
			r.waitCounter = waitAfterFailedStepAside
		}
	}
}

func (r *Robot) skipUnreachableTarget() {
	target := r.CurrentTarget()
	r.log.WithField("target", target.Name()).Error("target unreachable, skipping")
	r.factory.metrics.unreachable()
	r.factory.recordEvent(models.EventTargetUnreachable, r, target, "")

	r.selectNextTarget(r.Targets())
	r.computePath()
	r.memorized.Store(nil)
	r.waitCounter = 0
	r.blocked.Store(false)
}

// IsLivelocked reports whether the robot standing on our memorized waypoint
// is itself waiting to enter our current position.
func (r *Robot) IsLivelocked() bool {
	memo := r.memorized.Load()
	if memo == nil {
		return false
	}
	peer, ok := r.factory.MobileComponentAtPosition(*memo, r).(*Robot)
	if !ok {
		return false
	}
	peerMemo := peer.memorized.Load()
	return peerMemo != nil && *peerMemo == r.Position()
}

func (r *Robot) resolveLivelock() {
	r.setState(StateLivelocked)
	r.log.WithField("position", r.Position()).Warn("livelock detected")
	r.factory.metrics.livelock()
	r.factory.recordEvent(models.EventLivelock, r, r.CurrentTarget(), "")

	if !r.stepAside("livelock") {
		r.log.Warn("no free neighbour to step aside to, retrying later")
	}
}

// stepAside moves the robot to the first free neighbour one grid stride away,
// forgets the memorized waypoint and plans a fresh path.
func (r *Robot) stepAside(reason string) bool {
	r.setState(StateSteppingAside)

	stride := r.pathFinder.Resolution()
	pos := r.Position()
	candidates := make([]models.Position, 0, len(stepAsideDirections))
	for _, d := range stepAsideDirections {
		candidates = append(candidates, pos.Add(d[0]*stride, d[1]*stride))
	}

	to, ok := r.factory.StepAside(r, candidates)
	if !ok {
		r.setState(StateBlocked)
		return false
	}

	r.memorized.Store(nil)
	r.waitCounter = 0
	r.blocked.Store(false)
	r.computePath()

	r.log.WithFields(logrus.Fields{"from": pos, "to": to, "reason": reason}).Info("stepped aside")
	r.factory.metrics.stepAside()
	r.factory.recordEvent(models.EventStepAside, r, r.CurrentTarget(), reason)
	return true
}
