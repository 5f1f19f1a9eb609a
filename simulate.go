package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"robotsim-backend/logger"
	"robotsim-backend/models"
	"robotsim-backend/services"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	simLayout      string
	simDuration    time.Duration
	simReportEvery time.Duration
	simOut         string
	simWidth       int
	simHeight      int
	simMachines    int
	simRobots      int
	simSeed        int64

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run a headless simulation and log robot positions",
		Long: `Runs one factory without the HTTP server. The layout comes from --layout,
or is generated when no layout is given.`,
		RunE: runSimulate,
	}
)

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simLayout, "layout", "", "YAML layout file")
	f.DurationVar(&simDuration, "duration", 10*time.Second, "how long to simulate")
	f.DurationVar(&simReportEvery, "report-every", time.Second, "robot position report interval")
	f.StringVar(&simOut, "out", "", "write the final state as YAML to this file")
	f.IntVar(&simWidth, "width", 200, "generated layout width")
	f.IntVar(&simHeight, "height", 200, "generated layout height")
	f.IntVar(&simMachines, "machines", 4, "generated machine count")
	f.IntVar(&simRobots, "robots", 3, "generated robot count")
	f.Int64Var(&simSeed, "seed", 0, "generator seed, 0 for random")
}

// eventCounter tallies simulation events by type.
type eventCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *eventCounter) Record(ev models.SimulationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[ev.EventType]++
}

func (c *eventCounter) fields() logrus.Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := logrus.Fields{}
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

func runSimulate(cmd *cobra.Command, args []string) error {
	snap, err := loadOrGenerate()
	if err != nil {
		return err
	}
	pf, err := newPathFinder(nil)
	if err != nil {
		return err
	}

	counter := &eventCounter{}
	f, err := services.BuildFactory(snap, pf,
		services.WithTickInterval(cfg.TickInterval),
		services.WithEventRecorder(counter),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, simDuration)
	defer cancel()

	logger.Log.WithFields(logrus.Fields{
		"factory":    f.Name(),
		"components": len(f.Components()),
		"robots":     len(f.Robots()),
	}).Infof("🚀 시뮬레이션 시작 (%s)", simDuration)
	f.StartSimulation(ctx)

	ticker := time.NewTicker(simReportEvery)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			reportRobots(f)
		}
	}

	f.StopSimulation()
	if err := f.Wait(); err != nil {
		return err
	}
	reportRobots(f)
	logger.Log.WithFields(counter.fields()).Info("🛑 시뮬레이션 종료")

	if simOut != "" {
		data, err := services.MarshalLayout(f.Snapshot())
		if err != nil {
			return err
		}
		if err := os.WriteFile(simOut, data, 0o644); err != nil {
			return err
		}
		logger.Log.Infof("💾 최종 상태 저장: %s", simOut)
	}
	return nil
}

func loadOrGenerate() (*models.FacilitySnapshot, error) {
	if simLayout == "" && cfg.LayoutFile != "" {
		simLayout = cfg.LayoutFile
	}
	if simLayout != "" {
		return services.LoadLayoutFile(simLayout)
	}
	return services.NewLayoutGenerator(simSeed).Generate("generated", simWidth, simHeight, simMachines, simRobots)
}

func reportRobots(f *services.Factory) {
	for _, r := range f.Robots() {
		entry := logger.Log.WithFields(logrus.Fields{
			"robot":    r.Name(),
			"position": r.Position().String(),
			"state":    r.State().String(),
			"blocked":  r.Blocked(),
		})
		if t := r.CurrentTarget(); t != nil {
			entry = entry.WithField("target", t.Name())
		}
		entry.Info("🤖")
	}
}
