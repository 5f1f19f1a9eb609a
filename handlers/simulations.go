package handlers

import (
	"fmt"

	"robotsim-backend/services"

	"github.com/gofiber/fiber/v2"
)

// DoorRequest - open or close a door of a running factory
type DoorRequest struct {
	Open bool `json:"open"`
}

func (a *API) HandleListSimulations(c *fiber.Ctx) error {
	running := a.Simulations.Running()
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(running),
		"running": running,
	})
}

// HandleGetSimulation - 실행 중인 공장의 현재 상태
func (a *API) HandleGetSimulation(c *fiber.Ctx) error {
	snap, err := a.Simulations.Snapshot(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

func (a *API) HandleStartSimulation(c *fiber.Ctx) error {
	f, err := a.Simulations.Start(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"id":      f.ID(),
		"message": "시뮬레이션 시작",
	})
}

func (a *API) HandleStopSimulation(c *fiber.Ctx) error {
	snap, err := a.Simulations.Stop(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"id":       snap.ID,
		"message":  "시뮬레이션 종료",
		"snapshot": snap,
	})
}

func (a *API) HandleSetDoor(c *fiber.Ctx) error {
	f, ok := a.Simulations.Get(c.Params("id"))
	if !ok {
		return respondError(c, fmt.Errorf("%w: %s", services.ErrSimulationNotRunning, c.Params("id")))
	}
	comp, err := f.Component(c.Params("door"))
	if err != nil {
		return respondError(c, err)
	}
	door, ok := comp.(*services.Door)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   fmt.Sprintf("%s is a %s, not a door", comp.Name(), comp.Kind()),
		})
	}

	var req DoorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "잘못된 요청 형식입니다",
		})
	}
	door.SetOpen(req.Open)
	return c.JSON(fiber.Map{
		"success": true,
		"door":    door.Name(),
		"open":    door.IsOpen(),
	})
}
