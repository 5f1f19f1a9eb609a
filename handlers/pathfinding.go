package handlers

import (
	"fmt"

	"robotsim-backend/logger"
	"robotsim-backend/models"
	"robotsim-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// PathfindingRequest - path query for one robot of a stored or running factory
type PathfindingRequest struct {
	FactoryID string `json:"factory_id"`
	Robot     string `json:"robot"`  // id or name
	Target    string `json:"target"` // id or name
	Solver    string `json:"solver,omitempty"`
}

type PathfindingResponse struct {
	Success bool             `json:"success"`
	Path    *models.PathData `json:"path,omitempty"`
	Message string           `json:"message,omitempty"`
}

// HandlePathfinding computes a path on the live factory when it is running,
// otherwise on a fresh build of the stored layout. The robot is not moved.
func (a *API) HandlePathfinding(c *fiber.Ctx) error {
	var req PathfindingRequest
	if err := c.BodyParser(&req); err != nil || req.FactoryID == "" || req.Robot == "" || req.Target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(PathfindingResponse{
			Success: false,
			Message: "잘못된 요청 형식입니다",
		})
	}

	pf, err := a.solverFor(req.Solver)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(PathfindingResponse{
			Success: false,
			Message: err.Error(),
		})
	}

	f, ok := a.Simulations.Get(req.FactoryID)
	if !ok {
		if f, err = a.Simulations.Build(c.UserContext(), req.FactoryID); err != nil {
			return respondError(c, err)
		}
	}

	comp, err := f.Component(req.Robot)
	if err != nil {
		return respondError(c, err)
	}
	robot, ok := comp.(*services.Robot)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(PathfindingResponse{
			Success: false,
			Message: fmt.Sprintf("%s is not a robot", comp.Name()),
		})
	}
	target, err := f.Component(req.Target)
	if err != nil {
		return respondError(c, err)
	}

	log := logger.Log.WithFields(logrus.Fields{
		"factory_id": f.ID(),
		"robot":      robot.Name(),
		"target":     target.Name(),
	})
	log.Debug("📍 경로 탐색 요청")

	points := pf.FindPath(robot, target)
	if len(points) == 0 {
		log.Info("❌ 경로를 찾을 수 없습니다")
		return c.Status(fiber.StatusOK).JSON(PathfindingResponse{
			Success: false,
			Message: "경로를 찾을 수 없습니다",
		})
	}

	data := &models.PathData{
		Robot:     robot.Name(),
		Target:    target.Name(),
		Points:    points,
		Length:    pathLength(robot.Position(), points),
		Algorithm: solverName(pf),
	}
	log.Debugf("✅ 경로 탐색 성공: %d개 웨이포인트", len(points))
	return c.Status(fiber.StatusOK).JSON(PathfindingResponse{
		Success: true,
		Path:    data,
		Message: "경로 탐색 성공",
	})
}

func pathLength(from models.Position, points []models.Position) float64 {
	total := 0.0
	for _, p := range points {
		total += from.DistanceTo(p)
		from = p
	}
	return total
}

func solverName(pf services.PathFinder) string {
	if named, ok := pf.(interface{ SolverName() string }); ok {
		return named.SolverName()
	}
	return ""
}
