// Package whisper implements the transcription engine boundary over the
// whisper.cpp Go bindings. The whisper.cpp static library (libwhisper.a) and
// headers must be available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"

	"livescribe/internal/pipeline"
)

// Compile-time assertion that Engine satisfies pipeline.Transcriber.
var _ pipeline.Transcriber = (*Engine)(nil)

// Engine is a whisper.cpp-backed transcriber. The model is downloaded on
// first use and loaded once per engine; each Transcribe call runs in a fresh
// whisper context, so the model itself can be shared.
type Engine struct {
	logger     *zap.Logger
	source     Source
	downloader *Downloader
	model      whisperlib.Model
}

// NewEngine creates an Engine for the given model preset, storing model files
// under modelsDir.
func NewEngine(source Source, modelsDir string, logger *zap.Logger) *Engine {
	return &Engine{
		logger:     logger,
		source:     source,
		downloader: NewDownloader(modelsDir, logger),
	}
}

// Load ensures the model file exists locally and loads it. progress receives
// the combined download/load fraction in [0,1].
func (e *Engine) Load(ctx context.Context, progress func(float64)) error {
	modelPath, err := e.downloader.EnsureModel(ctx, e.source, progress)
	if err != nil {
		return fmt.Errorf("failed to fetch model %s: %w", e.source, err)
	}

	e.logger.Info("loading whisper model",
		zap.String("model", string(e.source)),
		zap.String("path", modelPath))

	model, err := whisperlib.New(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load whisper model from %s: %w", modelPath, err)
	}
	e.model = model

	if progress != nil {
		progress(1)
	}
	e.logger.Info("whisper model loaded", zap.String("model", string(e.source)))
	return nil
}

// Transcribe runs one finished audio chunk through the model and returns its
// segments with chunk-relative timestamps.
func (e *Engine) Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]pipeline.Segment, error) {
	if e.model == nil {
		return nil, errors.New("whisper model not loaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sampleRate != whisperlib.SampleRate {
		samples = resample(samples, sampleRate, whisperlib.SampleRate)
	}

	// Contexts are not thread-safe; the shared model is, so create one per
	// inference.
	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper context: %w", err)
	}

	lang := "auto"
	if e.source.EnglishOnly() {
		lang = "en"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		e.logger.Warn("failed to set language, using model default", zap.String("language", lang), zap.Error(err))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper inference failed: %w", err)
	}

	var segments []pipeline.Segment
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, pipeline.Segment{
			Text:         text,
			StartMS:      int(seg.Start / time.Millisecond),
			EndMS:        int(seg.End / time.Millisecond),
			NoSpeechProb: noSpeechProb(seg),
		})
	}
	return segments, nil
}

// Close releases the loaded model.
func (e *Engine) Close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}

// noSpeechProb derives a no-speech probability from the mean token
// probability of the segment; the bindings do not expose the raw model score.
func noSpeechProb(seg whisperlib.Segment) float32 {
	if len(seg.Tokens) == 0 {
		return 1
	}
	var sum float32
	for _, tok := range seg.Tokens {
		sum += tok.P
	}
	p := 1 - sum/float32(len(seg.Tokens))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// resample converts the chunk to whisper's required sample rate by linear
// interpolation. Capture rates are usually 44.1/48 kHz; whisper wants 16 kHz.
func resample(in []float32, from, to int) []float32 {
	if from == to || from <= 0 || len(in) == 0 {
		return in
	}
	ratio := float64(from) / float64(to)
	outLen := int(float64(len(in)) / ratio)
	if outLen == 0 {
		return nil
	}
	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}
