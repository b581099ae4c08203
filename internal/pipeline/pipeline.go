// Package pipeline drives the capture sample stream through denoising, voice
// activity detection, silence-based rechunking and transcription, yielding a
// live sequence of transcript segments.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"livescribe/internal/assembler"
)

// ErrModelUnavailable indicates the transcription model failed to initialize.
// Fatal to starting a session; the pipeline yields no segments.
var ErrModelUnavailable = errors.New("transcription model unavailable")

// defaultFrameSize is the number of samples per voice activity frame.
const defaultFrameSize = 512

// Pipeline composes the denoise, voice activity, rechunk and transcribe
// stages over one sample stream. Purely a producer: confidence filtering is a
// presentation-layer decision over the transcript store.
type Pipeline struct {
	logger       *zap.Logger
	model        Transcriber
	denoiser     Denoiser
	detector     VoiceDetector
	endThreshold float64
	frameSize    int
	debug        bool
}

// NewPipeline creates a Pipeline with the default denoise and voice activity
// stages.
func NewPipeline(model Transcriber, endThreshold float64, logger *zap.Logger) *Pipeline {
	return NewPipelineWithStages(model, NewDCBlockDenoiser(), NewEnergyDetector(), endThreshold, logger)
}

// NewPipelineWithStages creates a Pipeline with explicit stage
// implementations.
func NewPipelineWithStages(model Transcriber, denoiser Denoiser, detector VoiceDetector, endThreshold float64, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		logger:       logger,
		model:        model,
		denoiser:     denoiser,
		detector:     detector,
		endThreshold: endThreshold,
		frameSize:    defaultFrameSize,
	}
}

// SetDebug enables per-frame voice activity logging.
func (p *Pipeline) SetDebug(debug bool) {
	p.debug = debug
}

// Run loads the model and starts consuming the sample stream, returning a
// channel of transcript segments. The channel is closed when the stream ends
// (capture stopped) or the context is cancelled; a model load failure is
// returned up front as ErrModelUnavailable and no segment is ever yielded.
func (p *Pipeline) Run(ctx context.Context, stream *assembler.SampleStream) (<-chan Segment, error) {
	if p.model == nil {
		return nil, fmt.Errorf("%w: no model configured", ErrModelUnavailable)
	}

	if err := p.model.Load(ctx, p.logProgress); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	segmentCh := make(chan Segment)
	go p.process(ctx, stream, segmentCh)
	return segmentCh, nil
}

func (p *Pipeline) logProgress(fraction float64) {
	p.logger.Info("loading transcription model", zap.Float64("progress", fraction))
}

// process is the single consumer goroutine that owns the sample stream.
func (p *Pipeline) process(ctx context.Context, stream *assembler.SampleStream, segmentCh chan<- Segment) {
	defer close(segmentCh)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic recovered in pipeline", zap.Any("panic", r))
		}
	}()

	sampleRate := int(stream.SampleRate())
	rechunker := NewRechunker(p.endThreshold, sampleRate)

	var consumed int64
	chunkCount := 0
	totalSegments := 0

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("context cancelled, stopping pipeline")
			return
		default:
		}

		frame, ok := stream.NextFrame(ctx, p.frameSize)
		if !ok {
			// End of capture is clean termination, not an error. Transcribe
			// whatever speech is still buffered before closing.
			if chunk, final := rechunker.Flush(); final {
				chunkCount++
				totalSegments += p.transcribeChunk(ctx, chunk, consumed, sampleRate, chunkCount, segmentCh)
			}
			p.logger.Info("sample stream ended, pipeline finished",
				zap.Int("total_chunks", chunkCount),
				zap.Int("total_segments", totalSegments))
			return
		}
		consumed += int64(len(frame))

		denoised := p.denoiser.Denoise(frame)
		probability := p.detector.Probability(denoised)

		if p.debug {
			p.logger.Debug("voice activity", zap.Float64("probability", probability))
		}

		chunk, done := rechunker.Add(denoised, probability)
		if !done {
			continue
		}

		chunkCount++
		totalSegments += p.transcribeChunk(ctx, chunk, consumed, sampleRate, chunkCount, segmentCh)

		if chunkCount%10 == 0 {
			p.logger.Info("pipeline progress",
				zap.Int("chunks_processed", chunkCount),
				zap.Int("total_segments", totalSegments))
		}
	}
}

// transcribeChunk runs one chunk through the model and forwards its segments,
// rebased onto the session timeline. A transcription failure skips the chunk
// and the pipeline continues.
func (p *Pipeline) transcribeChunk(ctx context.Context, chunk []float32, consumed int64, sampleRate int, chunkNumber int, segmentCh chan<- Segment) int {
	// The rechunker buffers the most recent contiguous run of frames, so the
	// chunk start is the consumed position minus the chunk length.
	offsetMS := int((consumed - int64(len(chunk))) * 1000 / int64(sampleRate))

	segments, err := p.model.Transcribe(ctx, chunk, sampleRate)
	if err != nil {
		p.logger.Error("transcription failed for chunk, skipping",
			zap.Error(err),
			zap.Int("chunk_number", chunkNumber))
		return 0
	}

	p.logger.Debug("transcribed chunk",
		zap.Int("chunk_number", chunkNumber),
		zap.Int("chunk_samples", len(chunk)),
		zap.Int("segments_found", len(segments)))

	sent := 0
	for _, segment := range segments {
		segment.StartMS += offsetMS
		segment.EndMS += offsetMS
		select {
		case segmentCh <- segment:
			sent++
		case <-ctx.Done():
			return sent
		}
	}
	return sent
}
