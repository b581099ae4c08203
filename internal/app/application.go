package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"livescribe/internal/assembler"
	"livescribe/internal/capture"
	"livescribe/internal/config"
	"livescribe/internal/logger"
	"livescribe/internal/pipeline"
	"livescribe/internal/server"
	"livescribe/internal/transcript"
	"livescribe/internal/whisper"
)

// sessionHealth tracks the health of the capture-to-transcript pipeline.
type sessionHealth struct {
	mu              sync.RWMutex
	captureActive   bool
	lastSegmentTime time.Time
	totalSegments   int64
}

// Application wires the capture bridge, sample assembler, transcription
// pipeline, transcript store and presentation server into one session.
type Application struct {
	config    *config.Configuration
	zapLogger *zap.Logger
	driver    capture.Driver
	bridge    *capture.Bridge
	model     pipeline.Transcriber
	store     *transcript.Store
	server    *server.Server
	health    *sessionHealth
}

// NewApplication creates an application instance with all components
// initialized from configuration.
func NewApplication() (*Application, error) {
	var cfg *config.Configuration
	var err error

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		cfg, err = config.NewConfigurationFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.NewConfigurationFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	zapLogger := logger.NewLogger()

	driver, err := newDriver(cfg, zapLogger)
	if err != nil {
		return nil, err
	}

	model, err := newModel(cfg, zapLogger)
	if err != nil {
		return nil, err
	}

	return NewApplicationWithComponents(cfg, driver, model, zapLogger), nil
}

// NewApplicationWithComponents creates an application around an explicit
// capture driver and transcription model.
func NewApplicationWithComponents(cfg *config.Configuration, driver capture.Driver, model pipeline.Transcriber, zapLogger *zap.Logger) *Application {
	store := transcript.NewStore()

	var srv *server.Server
	if cfg.GetServerEnabled() {
		srv = server.NewServer(cfg.GetServerAddr(), store, cfg.GetConfidenceThreshold(), zapLogger)
	}

	return &Application{
		config:    cfg,
		zapLogger: zapLogger,
		driver:    driver,
		bridge:    capture.NewBridge(driver, zapLogger),
		model:     model,
		store:     store,
		server:    srv,
		health:    &sessionHealth{},
	}
}

// newDriver selects the capture driver named in configuration.
func newDriver(cfg *config.Configuration, zapLogger *zap.Logger) (capture.Driver, error) {
	switch source := cfg.GetCaptureSource(); source {
	case "wav":
		return capture.NewWavDriver(cfg.GetWavPath(), zapLogger), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", source)
	}
}

// newModel selects the transcription engine named in configuration.
func newModel(cfg *config.Configuration, zapLogger *zap.Logger) (pipeline.Transcriber, error) {
	if cfg.GetUseMockEngine() {
		return whisper.NewMockEngine(), nil
	}
	preset, err := whisper.ParseSource(cfg.GetModelPreset())
	if err != nil {
		return nil, fmt.Errorf("invalid whisper model preset: %w", err)
	}
	return whisper.NewEngine(preset, cfg.GetModelsDir(), zapLogger), nil
}

// Store exposes the transcript store to callers embedding the application.
func (app *Application) Store() *transcript.Store {
	return app.store
}

// Run starts the capture session and processes audio until the context is
// cancelled or the capture source ends.
func (app *Application) Run(ctx context.Context) error {
	app.zapLogger.Info("starting livescribe session",
		zap.Uint32("buffer_size", app.config.GetBufferSize()),
		zap.Bool("from_display", app.config.GetFromDisplay()),
		zap.Float64("end_threshold", app.config.GetEndThreshold()),
		zap.Float64("confidence_threshold", app.config.GetConfidenceThreshold()))

	select {
	case <-ctx.Done():
		app.zapLogger.Info("context cancelled before startup, shutting down immediately")
		return nil
	default:
	}

	opts := capture.NewOptions().
		WithBufferSize(app.config.GetBufferSize()).
		WithFromDisplay(app.config.GetFromDisplay())

	// Capture errors are fatal to the session: surfaced, not retried.
	source, err := app.bridge.Start(opts)
	if err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer source.Close()
	app.setCaptureActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if app.server != nil {
		g.Go(func() error {
			return app.server.Run(gctx)
		})
	}

	g.Go(func() error {
		// A finished source ends the whole session, server included.
		defer cancel()
		defer app.setCaptureActive(false)
		return app.runPipeline(gctx, source)
	})

	g.Go(func() error {
		app.heartbeat(gctx)
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	app.zapLogger.Info("session finished", zap.Int64("total_segments", app.totalSegments()))
	return nil
}

// runPipeline owns the sample stream end to end: assemble, transcribe,
// append.
func (app *Application) runPipeline(ctx context.Context, source *capture.BatchSource) error {
	stream, ok := assembler.Assemble(ctx, source, app.zapLogger)
	if !ok {
		// The source ended before any audio arrived, e.g. permission denied
		// or immediate device failure. Clean termination.
		app.zapLogger.Warn("capture ended before any audio arrived")
		return nil
	}

	p := pipeline.NewPipeline(app.model, app.config.GetEndThreshold(), app.zapLogger)
	p.SetDebug(app.config.GetDebugMode())

	segmentCh, err := p.Run(ctx, stream)
	if err != nil {
		return fmt.Errorf("failed to start transcription: %w", err)
	}

	for segment := range segmentCh {
		app.recordSegment()
		app.store.Append(segment)

		if app.config.GetDebugMode() {
			app.zapLogger.Info("segment appended",
				zap.String("text", segment.Text),
				zap.Int("start_ms", segment.StartMS),
				zap.Int("end_ms", segment.EndMS),
				zap.Float32("no_speech_prob", segment.NoSpeechProb))
		}
	}
	return nil
}

// heartbeat logs periodic session status for monitoring.
func (app *Application) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.health.mu.RLock()
			active := app.health.captureActive
			total := app.health.totalSegments
			last := app.health.lastSegmentTime
			app.health.mu.RUnlock()

			app.zapLogger.Info("session heartbeat",
				zap.Bool("capture_active", active),
				zap.Int64("total_segments", total),
				zap.Time("last_segment_time", last),
				zap.Int("visible_entries", len(app.store.Visible(app.confidenceThreshold()))))
		}
	}
}

func (app *Application) confidenceThreshold() float64 {
	if app.server != nil {
		return app.server.Threshold()
	}
	return app.config.GetConfidenceThreshold()
}

func (app *Application) setCaptureActive(active bool) {
	app.health.mu.Lock()
	defer app.health.mu.Unlock()
	app.health.captureActive = active
}

func (app *Application) recordSegment() {
	app.health.mu.Lock()
	defer app.health.mu.Unlock()
	app.health.lastSegmentTime = time.Now()
	app.health.totalSegments++
}

func (app *Application) totalSegments() int64 {
	app.health.mu.RLock()
	defer app.health.mu.RUnlock()
	return app.health.totalSegments
}

// Shutdown releases components that outlive Run.
func (app *Application) Shutdown() error {
	app.zapLogger.Info("shutting down application components")

	if err := app.model.Close(); err != nil {
		app.zapLogger.Error("error closing transcription model", zap.Error(err))
		return err
	}

	app.zapLogger.Info("application shutdown completed")
	return nil
}
