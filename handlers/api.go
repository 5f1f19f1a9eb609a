package handlers

import (
	"context"
	"errors"
	"time"

	"robotsim-backend/algorithms"
	"robotsim-backend/models"
	"robotsim-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EventQuerier - read side of the simulation event log
type EventQuerier interface {
	Recent(ctx context.Context, factoryID string, limit int) ([]models.SimulationEvent, error)
	ByType(ctx context.Context, factoryID, eventType string, limit int) ([]models.SimulationEvent, error)
	Stats(ctx context.Context, factoryID string, since time.Time) (*services.EventStats, error)
}

// API bundles what the HTTP handlers need.
type API struct {
	Simulations *services.SimulationManager
	Store       services.FactoryStore
	Events      EventQuerier // nil when no database is configured
	Generator   *services.LayoutGenerator
	Hub         *ClientManager
	Gatherer    prometheus.Gatherer
	Resolution  int
	Metrics     *services.Metrics

	// SnapshotInterval throttles snapshot pushes to websocket viewers.
	SnapshotInterval time.Duration
}

// Register mounts every route on app and hooks the websocket publisher into
// simulations started from now on.
func (a *API) Register(app *fiber.App) {
	if a.SnapshotInterval <= 0 {
		a.SnapshotInterval = 100 * time.Millisecond
	}
	a.Simulations.AddObserverFactory(func(f *services.Factory) services.Observer {
		return NewSnapshotPublisher(f, a.Hub, a.SnapshotInterval)
	})

	api := app.Group("/api")
	api.Get("/health", a.HandleHealth)

	// 공장 레이아웃
	api.Get("/factories", a.HandleListFactories)
	api.Post("/factories/generate", a.HandleGenerateFactory)
	api.Get("/factories/:id", a.HandleGetFactory)
	api.Put("/factories/:id", a.HandlePutFactory)

	// 시뮬레이션 제어
	api.Get("/simulations", a.HandleListSimulations)
	api.Get("/simulations/:id", a.HandleGetSimulation)
	api.Post("/simulations/:id/start", a.HandleStartSimulation)
	api.Post("/simulations/:id/stop", a.HandleStopSimulation)
	api.Post("/simulations/:id/doors/:door", a.HandleSetDoor)

	// 경로 탐색
	api.Post("/pathfinding", a.HandlePathfinding)

	// 이벤트 로그 조회 API
	logsAPI := api.Group("/logs")
	logsAPI.Get("/recent", a.HandleGetRecentEvents)
	logsAPI.Get("/type", a.HandleGetEventsByType)
	logsAPI.Get("/stats", a.HandleGetEventStats)

	if a.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.Gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket
	app.Use("/websocket", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/websocket/web/:id", websocket.New(a.HandleWebClientWebSocket))
}

// HandleHealth - 서버 상태
func (a *API) HandleHealth(c *fiber.Ctx) error {
	clients := 0
	if a.Hub != nil {
		clients = a.Hub.GetClientCount()
	}
	return c.JSON(fiber.Map{
		"status":      "OK",
		"clients":     clients,
		"simulations": len(a.Simulations.Running()),
		"time":        time.Now().Format(time.RFC3339),
	})
}

// solverFor returns a path finder using the named solver, or the shared one.
func (a *API) solverFor(name string) (services.PathFinder, error) {
	if name == "" {
		return a.Simulations.PathFinder(), nil
	}
	solver, err := algorithms.NewSolver(name)
	if err != nil {
		return nil, err
	}
	pf, err := services.NewFactoryPathFinder(a.Resolution, solver, a.Metrics)
	if err != nil {
		return nil, err
	}
	return pf, nil
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrFactoryNotFound),
		errors.Is(err, services.ErrComponentNotFound),
		errors.Is(err, services.ErrSimulationNotRunning):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrSimulationRunning):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidFactory),
		errors.Is(err, services.ErrUnknownComponentKind),
		errors.Is(err, models.ErrInvalidShape):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
