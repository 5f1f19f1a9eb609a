package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"robotsim-backend/algorithms"
	"robotsim-backend/config"
	"robotsim-backend/handlers"
	"robotsim-backend/logger"
	"robotsim-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "robotsim",
		Short:         "Concurrent factory robot simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env 파일 로드
			if err := godotenv.Load(); err != nil {
				logger.Log.Debug("⚠️ .env 파일을 찾을 수 없습니다. 환경 변수를 직접 사용합니다.")
			}

			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			logger.Init(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP / WebSocket server",
		RunE:  runServe,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd, simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("❌ 실행 실패")
		os.Exit(1)
	}
}

// newPathFinder - path finder from the configured resolution and solver
func newPathFinder(metrics *services.Metrics) (*services.FactoryPathFinder, error) {
	solver, err := algorithms.NewSolver(cfg.PathSolver)
	if err != nil {
		return nil, err
	}
	return services.NewFactoryPathFinder(cfg.PathResolution, solver, metrics)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 데이터베이스 초기화
	db, err := services.OpenDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// 이벤트 로그 초기화
	events := services.NewEventLog(db, cfg.EventFlushSize, cfg.EventFlushInterval)
	events.Start()
	defer events.Stop()

	metrics, err := services.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	pf, err := newPathFinder(metrics)
	if err != nil {
		return err
	}

	store := services.NewGormStore(db)
	sims, err := services.NewSimulationManager(services.ManagerConfig{
		Store:        store,
		PathFinder:   pf,
		Metrics:      metrics,
		Events:       events,
		TickInterval: cfg.TickInterval,
	})
	if err != nil {
		return err
	}
	defer sims.StopAll()

	if cfg.LayoutFile != "" {
		snap, err := services.LoadLayoutFile(cfg.LayoutFile)
		if err != nil {
			return err
		}
		if err := store.Save(ctx, snap); err != nil {
			return err
		}
		logger.Log.WithField("factory_id", snap.ID).Infof("📦 레이아웃 로드: %s", cfg.LayoutFile)
	}

	hub := handlers.NewClientManager()
	go hub.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:               "robotsim",
		DisableStartupMessage: true,
	})
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, OPTIONS",
	}))

	api := &handlers.API{
		Simulations: sims,
		Store:       store,
		Events:      events,
		Generator:   services.NewLayoutGenerator(0),
		Hub:         hub,
		Gatherer:    prometheus.DefaultGatherer,
		Resolution:  cfg.PathResolution,
		Metrics:     metrics,
	}
	api.Register(app)

	go func() {
		<-ctx.Done()
		logger.Log.Info("🛑 서버 종료 중...")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Log.WithError(err).Warn("shutdown")
		}
	}()

	logger.Log.Infof("🚀 서버 시작: http://localhost%s", cfg.HTTPAddr)
	logger.Log.Infof("📡 WebSocket: ws://localhost%s/websocket/web/:id", cfg.HTTPAddr)
	logger.Log.Infof("📊 Metrics: http://localhost%s/metrics", cfg.HTTPAddr)
	if err := app.Listen(cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
