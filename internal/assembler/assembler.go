// Package assembler flattens the bridge's batch stream into one continuous,
// rate-tagged sample sequence.
package assembler

import (
	"context"

	"go.uber.org/zap"

	"livescribe/internal/capture"
)

// Assemble blocks until the first batch arrives to learn the sample rate and
// returns the flattened sample stream. Returns ok=false if the batch source
// ends before any batch arrives.
func Assemble(ctx context.Context, src *capture.BatchSource, logger *zap.Logger) (*SampleStream, bool) {
	first, ok := src.Next(ctx)
	if !ok {
		return nil, false
	}

	logger.Info("sample stream established", zap.Uint32("sample_rate", first.SampleRate))

	return &SampleStream{
		rate:   first.SampleRate,
		src:    src,
		cur:    first.Samples,
		logger: logger,
	}, true
}

// SampleStream is a non-restartable lazy sequence of mono float32 samples at
// a single sample rate, produced by concatenating batches in arrival order.
// It is owned by exactly one consumer.
type SampleStream struct {
	rate   uint32
	src    *capture.BatchSource
	cur    []float32
	pos    int
	logger *zap.Logger
	warned bool
}

// SampleRate returns the rate observed on the first batch. Only that rate is
// authoritative for the session.
func (s *SampleStream) SampleRate() uint32 {
	return s.rate
}

// Next returns the next sample, blocking until one is available. The second
// return is false once the batch source has ended.
func (s *SampleStream) Next(ctx context.Context) (float32, bool) {
	for s.pos >= len(s.cur) {
		batch, ok := s.src.Next(ctx)
		if !ok {
			return 0, false
		}
		// Later batches are not re-validated; a mid-session rate change is a
		// known gap in the capture contract, so flag it rather than resample.
		if batch.SampleRate != s.rate && !s.warned {
			s.logger.Warn("sample rate changed mid-session, keeping first batch's rate",
				zap.Uint32("expected", s.rate),
				zap.Uint32("observed", batch.SampleRate))
			s.warned = true
		}
		s.cur = batch.Samples
		s.pos = 0
	}

	sample := s.cur[s.pos]
	s.pos++
	return sample, true
}

// NextFrame pulls up to n samples into a frame. A short frame is returned
// when the stream ends mid-frame; ok is false only when no samples remain.
func (s *SampleStream) NextFrame(ctx context.Context, n int) ([]float32, bool) {
	frame := make([]float32, 0, n)
	for len(frame) < n {
		sample, ok := s.Next(ctx)
		if !ok {
			break
		}
		frame = append(frame, sample)
	}
	if len(frame) == 0 {
		return nil, false
	}
	return frame, true
}
