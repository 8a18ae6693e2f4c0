package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/normanking/visage/internal/actuator"
	"github.com/normanking/visage/internal/bus"
	"github.com/normanking/visage/internal/config"
	"github.com/normanking/visage/internal/emotion"
	"github.com/normanking/visage/internal/expression"
	"github.com/normanking/visage/internal/logging"
	"github.com/normanking/visage/internal/model"
	"github.com/normanking/visage/internal/motion"
	"github.com/normanking/visage/internal/sampler"
	"github.com/normanking/visage/internal/statesync"
	"github.com/normanking/visage/internal/viseme"
)

const frameInterval = 16 * time.Millisecond

type flags struct {
	modelPath  string
	listenAddr string
	audioFile  string
	speak      string
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVar(&f.modelPath, "model", "", "Path to glTF/GLB model (overrides config)")
	flag.StringVar(&f.listenAddr, "listen", "", "State sync listen address (overrides config)")
	flag.StringVar(&f.audioFile, "audio", "", "WAV file to drive lip sync from instead of live capture")
	flag.StringVar(&f.speak, "speak", "", "Text to lip-sync and emotion-classify on startup")
	flag.Parse()
	return f
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "visage: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	f := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.modelPath != "" {
		cfg.Model.Path = f.modelPath
	}
	if f.listenAddr != "" {
		cfg.Sync.ListenAddr = f.listenAddr
	}

	logger, logFile, err := logging.New(&logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	logger.Info().Msg("Visage starting")

	eventBus := bus.NewEventBus()
	binder := actuator.NewBinder(logger)

	if cfg.Model.Path != "" {
		graph, err := model.LoadGraph(cfg.Model.Path)
		if err != nil {
			return fmt.Errorf("load model %s: %w", cfg.Model.Path, err)
		}
		binder.SetModel(graph)
		eventBus.Publish(bus.Event{
			Type: bus.EventTypeModelLoaded,
			Data: map[string]any{"path": cfg.Model.Path},
		})
		logger.Info().
			Str("path", cfg.Model.Path).
			Int("meshes", len(graph.Meshes)).
			Int("bones", len(graph.Bones)).
			Msg("Model loaded")

		if cfg.Model.WatchFile {
			watcher, err := model.NewWatcher(logger, func(path string, graph *model.Graph) {
				binder.SetModel(graph)
				eventBus.Publish(bus.Event{
					Type: bus.EventTypeModelReloaded,
					Data: map[string]any{"path": path},
				})
			})
			if err != nil {
				return fmt.Errorf("model watcher: %w", err)
			}
			defer watcher.Close()
			if err := watcher.Watch(cfg.Model.Path); err != nil {
				return fmt.Errorf("watch model: %w", err)
			}
		}
	} else {
		logger.Warn().Msg("No model configured; running with empty actuator index")
	}

	mapper := viseme.NewMapper(binder, logger)
	mapper.SetSmoothingFactor(cfg.Viseme.SmoothingFactor)
	mapper.SetNoiseFloor(cfg.Viseme.NoiseFloor)

	expressionCtrl := expression.NewController(binder, logger)
	if cfg.Expression.AutoBlink {
		expressionCtrl.StartBlinking(cfg.Expression.BlinkInterval)
	}

	motionEngine := motion.NewEngine(binder, logger)
	if cfg.Motion.IdleEnabled {
		motionEngine.PlayMotion(motion.GestureIdle, cfg.Motion.IdleIntensity)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Route text through the classifier and into face and mouth.
	onUtterance := func(text string) {
		score := emotion.Analyze(text)
		eventBus.Publish(bus.Event{
			Type: bus.EventTypeEmotionAnalyzed,
			Data: map[string]any{"type": string(score.Type), "score": score.Score},
		})
		expressionCtrl.SetExpressionFromEmotion(string(score.Type), score.Intensity)
		seq := viseme.SequenceFromText(text)
		if len(seq) > 0 {
			mapper.PlayPhonemeSequence(seq, viseme.StepDurationForText(text, len(seq)))
		}
	}

	var syncServer *statesync.Server
	if cfg.Sync.Enabled {
		syncServer = statesync.NewServer(logger, onUtterance)
		go func() {
			if err := syncServer.Start(ctx, cfg.Sync.ListenAddr); err != nil {
				logger.Error().Err(err).Msg("State sync server failed")
			}
		}()
	}

	if f.audioFile != "" {
		source, err := newWAVSource(f.audioFile)
		if err != nil {
			return fmt.Errorf("open audio %s: %w", f.audioFile, err)
		}
		smp := sampler.NewSampler(&sampler.Config{
			SampleRate:   source.sampleRate,
			FFTSize:      cfg.Audio.FFTSize,
			VADThreshold: cfg.Audio.VADThreshold,
			Bands:        sampler.BandEdges(cfg.Audio.BandEdgesHz),
		}, source, eventBus, logger)
		smp.Initialize()
		if err := smp.StartListening(nil, func(bands sampler.BandEnergies) {
			mapper.UpdateFromFrequencyBands(viseme.Bands(bands))
		}); err != nil {
			return fmt.Errorf("start sampler: %w", err)
		}
		defer smp.StopListening()
	}

	if f.speak != "" {
		onUtterance(f.speak)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Msg("Frame loop running")

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			logger.Info().Msg("Shutdown signal received")
			return nil
		case <-ticker.C:
			expressionCtrl.Update()
			motionEngine.Update()
			if syncServer != nil && syncServer.ClientCount() > 0 {
				syncServer.Broadcast(frameState(mapper, expressionCtrl, binder))
			}
		}
	}
}

func frameState(mapper *viseme.Mapper, ctrl *expression.Controller, binder *actuator.Binder) statesync.FrameState {
	state := ctrl.Current()

	fs := statesync.FrameState{
		VisemeWeights: mapper.Weights(),
		Expression: statesync.ExpressionState{
			Type:             string(state.Type),
			Intensity:        state.Intensity,
			EyelidClosedness: state.EyelidClosedness,
			EyebrowHeight:    state.EyebrowHeight,
		},
		Timestamp: time.Now(),
	}

	if graph := binder.Graph(); graph != nil {
		for _, b := range graph.Bones {
			fs.Bones = append(fs.Bones, statesync.BoneState{
				Name:     b.Name,
				Rotation: [3]float32{b.Rotation.X(), b.Rotation.Y(), b.Rotation.Z()},
			})
		}
	}

	return fs
}
