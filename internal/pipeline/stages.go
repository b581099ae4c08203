package pipeline

import (
	"context"
	"math"
)

// Transcriber is the transcription engine boundary: an opaque model that maps
// a finished audio chunk to transcript segments with timestamps relative to
// the start of the chunk.
type Transcriber interface {
	// Load prepares the model. progress, when non-nil, receives loading
	// fractions in [0,1]. A Load failure is fatal to the session.
	Load(ctx context.Context, progress func(float64)) error
	Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]Segment, error)
	Close() error
}

// Denoiser returns a cleaned version of a frame of samples.
type Denoiser interface {
	Denoise(frame []float32) []float32
}

// VoiceDetector estimates the probability in [0,1] that a frame contains
// speech.
type VoiceDetector interface {
	Probability(frame []float32) float64
}

// dcBlockDenoiser is the default Denoiser: a first-order DC-blocking
// high-pass filter that strips capture offset and low-frequency rumble.
type dcBlockDenoiser struct {
	prevIn  float32
	prevOut float32
}

// NewDCBlockDenoiser creates the default denoising stage.
func NewDCBlockDenoiser() Denoiser {
	return &dcBlockDenoiser{}
}

func (d *dcBlockDenoiser) Denoise(frame []float32) []float32 {
	const pole = 0.995
	out := make([]float32, len(frame))
	for i, x := range frame {
		y := x - d.prevIn + pole*d.prevOut
		d.prevIn = x
		d.prevOut = y
		out[i] = y
	}
	return out
}

// energyDetector is the default VoiceDetector: root-mean-square energy mapped
// onto [0,1]. noiseFloor is the RMS level treated as the speech midpoint;
// 0.01 corresponds to roughly 300/32767 in 16-bit PCM units.
type energyDetector struct {
	noiseFloor float64
}

// NewEnergyDetector creates the default voice activity stage.
func NewEnergyDetector() VoiceDetector {
	return &energyDetector{noiseFloor: 0.01}
}

func (e *energyDetector) Probability(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	return rms / (rms + e.noiseFloor)
}
