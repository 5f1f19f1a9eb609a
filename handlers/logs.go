package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

func queryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	return limit
}

func (a *API) eventsUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"success": false,
		"error":   "event log is not configured",
	})
}

// HandleGetRecentEvents - 최근 이벤트 조회
func (a *API) HandleGetRecentEvents(c *fiber.Ctx) error {
	if a.Events == nil {
		return a.eventsUnavailable(c)
	}

	events, err := a.Events.Recent(c.UserContext(), c.Query("factory_id"), queryLimit(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch events",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(events),
		"logs":    events,
	})
}

// HandleGetEventsByType - 이벤트 타입별 조회
func (a *API) HandleGetEventsByType(c *fiber.Ctx) error {
	if a.Events == nil {
		return a.eventsUnavailable(c)
	}

	eventType := c.Query("type")
	if eventType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "type parameter is required",
		})
	}

	events, err := a.Events.ByType(c.UserContext(), c.Query("factory_id"), eventType, queryLimit(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch events",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"type":    eventType,
		"count":   len(events),
		"logs":    events,
	})
}

// HandleGetEventStats - 이벤트 통계
func (a *API) HandleGetEventStats(c *fiber.Ctx) error {
	if a.Events == nil {
		return a.eventsUnavailable(c)
	}

	// 기본: 24시간 전부터
	since := time.Now().Add(-24 * time.Hour)
	if s := c.Query("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid since format (use RFC3339)",
			})
		}
		since = parsed
	}

	stats, err := a.Events.Stats(c.UserContext(), c.Query("factory_id"), since)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}
