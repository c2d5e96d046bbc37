package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flatsim/flatsim/internal/config"
	_ "github.com/flatsim/flatsim/internal/plugin" // registers built-in plugin types
	"github.com/flatsim/flatsim/internal/timekeeper"
	"github.com/flatsim/flatsim/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/flatsim.toml"
	if p := os.Getenv("FLATSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	w, err := world.Load(cfg.Simulation.WorldFile, log)
	if err != nil {
		return fmt.Errorf("load world: %w", err)
	}
	defer w.Destroy()

	if cfg.Visualization.Enabled {
		w.SetVisualizer(&zapVisualizer{log: log.Named("viz")})
		// Layers never move; publish them once up front.
		w.DebugVisualize(true)
	}

	tk := timekeeper.New(cfg.Simulation.StepSize)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(float64(time.Second) / cfg.Simulation.UpdateRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Publish model poses every vizEvery steps when visualization is on.
	vizEvery := 0
	if cfg.Visualization.Enabled {
		vizEvery = int(cfg.Simulation.UpdateRate / cfg.Visualization.UpdateRate)
		if vizEvery < 1 {
			vizEvery = 1
		}
	}

	log.Info("simulation loop started",
		zap.Float64("step_size", cfg.Simulation.StepSize),
		zap.Float64("update_rate", cfg.Simulation.UpdateRate))

	stepCounter := 0
	for {
		select {
		case <-ticker.C:
			w.Update(tk)
			stepCounter++
			if vizEvery > 0 && stepCounter%vizEvery == 0 {
				w.DebugVisualize(false)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received",
				zap.String("signal", sig.String()),
				zap.Float64("sim_time", tk.Elapsed()))
			return nil
		}
	}
}

// zapVisualizer logs entity poses at debug level. Stands in for an external
// rendering channel.
type zapVisualizer struct {
	log *zap.Logger
}

func (v *zapVisualizer) Publish(name string, bodies []*world.Body) {
	for _, b := range bodies {
		phys := b.Physics()
		if phys == nil {
			continue
		}
		pos := phys.GetPosition()
		v.log.Debug("pose",
			zap.String("entity", name),
			zap.String("body", b.Name()),
			zap.Float64("x", pos.X),
			zap.Float64("y", pos.Y),
			zap.Float64("theta", phys.GetAngle()))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
