package handlers

import (
	"fmt"

	"robotsim-backend/logger"
	"robotsim-backend/models"
	"robotsim-backend/services"

	"github.com/gofiber/fiber/v2"
)

// GenerateRequest - random layout parameters
type GenerateRequest struct {
	Name     string `json:"name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Machines int    `json:"machines"`
	Robots   int    `json:"robots"`
}

// HandleListFactories - 저장된 공장 목록
func (a *API) HandleListFactories(c *fiber.Ctx) error {
	recs, err := a.Store.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"count":     len(recs),
		"factories": recs,
	})
}

// HandleGetFactory - 저장된 레이아웃 조회
func (a *API) HandleGetFactory(c *fiber.Ctx) error {
	snap, err := a.Store.Load(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// HandlePutFactory stores a layout under the id in the path. The layout is
// built once to reject invalid component sets before saving.
func (a *API) HandlePutFactory(c *fiber.Ctx) error {
	var snap models.FacilitySnapshot
	if err := c.BodyParser(&snap); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "잘못된 요청 형식입니다",
		})
	}
	snap.ID = c.Params("id")

	built, err := services.BuildFactory(&snap, a.Simulations.PathFinder())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	// 빌드된 상태를 저장해 컴포넌트 id를 고정
	stored := built.Snapshot()
	if err := a.Store.Save(c.UserContext(), stored); err != nil {
		return respondError(c, err)
	}

	logger.Log.WithField("factory_id", stored.ID).Infof("💾 레이아웃 저장: %s (%d components)", stored.Name, len(stored.Components))
	return c.JSON(fiber.Map{
		"success": true,
		"id":      stored.ID,
	})
}

// HandleGenerateFactory - 랜덤 레이아웃 생성 후 저장
func (a *API) HandleGenerateFactory(c *fiber.Ctx) error {
	req := GenerateRequest{Width: 200, Height: 200, Machines: 4, Robots: 3}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "잘못된 요청 형식입니다",
			})
		}
	}
	if req.Name == "" {
		req.Name = fmt.Sprintf("generated-%dx%d", req.Width, req.Height)
	}

	snap, err := a.Generator.Generate(req.Name, req.Width, req.Height, req.Machines, req.Robots)
	if err != nil {
		return respondError(c, err)
	}
	if err := a.Store.Save(c.UserContext(), snap); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(snap)
}
