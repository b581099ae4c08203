package whisper

import (
	"context"
	"fmt"

	"livescribe/internal/pipeline"
)

// MockEngine is a stand-in transcriber for runs without a model binary. It
// reports chunk shape instead of recognized text.
type MockEngine struct{}

// NewMockEngine creates a mock transcriber.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Load reports immediate completion.
func (m *MockEngine) Load(_ context.Context, progress func(float64)) error {
	if progress != nil {
		progress(1)
	}
	return nil
}

// Transcribe returns one synthetic segment spanning the chunk.
func (m *MockEngine) Transcribe(_ context.Context, samples []float32, sampleRate int) ([]pipeline.Segment, error) {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil, nil
	}
	durationMS := len(samples) * 1000 / sampleRate
	return []pipeline.Segment{{
		Text:         fmt.Sprintf("[chunk samples=%d duration_ms=%d]", len(samples), durationMS),
		StartMS:      0,
		EndMS:        durationMS,
		NoSpeechProb: 0,
	}}, nil
}

// Close is a no-op.
func (m *MockEngine) Close() error { return nil }

var _ pipeline.Transcriber = (*MockEngine)(nil)
