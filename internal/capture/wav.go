package capture

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

// WavDriver is a Driver that replays a RIFF/WAV file through the capture
// callback, paced at the file's real-time rate. It stands in for a live
// device in replay and test runs.
type WavDriver struct {
	path   string
	logger *zap.Logger
}

// NewWavDriver creates a WAV replay driver for the given file path.
func NewWavDriver(path string, logger *zap.Logger) *WavDriver {
	return &WavDriver{path: path, logger: logger}
}

// RegisterCallback opens the WAV file and starts a goroutine that delivers
// batches of opts.BufferSize mono samples until the file ends or the returned
// deregister function is called. onEnd fires once at end of file.
func (d *WavDriver) RegisterCallback(opts Options, onBatch func(AudioBatch), onEnd func()) (func(), error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file %s: %w", d.path, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("not a valid wav file: %s", d.path)
	}

	stop := make(chan struct{})
	go d.stream(f, dec, opts, onBatch, onEnd, stop)

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}, nil
}

func (d *WavDriver) stream(f *os.File, dec *wav.Decoder, opts Options, onBatch func(AudioBatch), onEnd func(), stop chan struct{}) {
	defer f.Close()
	defer onEnd()

	rate := dec.SampleRate
	channels := int(dec.NumChans)
	if channels == 0 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	d.logger.Info("replaying wav file as capture source",
		zap.String("path", d.path),
		zap.Uint32("sample_rate", rate),
		zap.Int("channels", channels),
		zap.Int("bit_depth", bitDepth))

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: int(rate)},
		Data:   make([]int, int(opts.BufferSize)*channels),
	}

	// One callback per BufferSize mono samples, paced like a live device.
	interval := time.Duration(opts.BufferSize) * time.Second / time.Duration(rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := dec.PCMBuffer(buf)
		if n == 0 {
			return
		}
		if err != nil {
			d.logger.Warn("wav decode stopped", zap.Error(err))
			return
		}

		// Downmix interleaved channels to mono float32 in [-1, 1].
		frames := n / channels
		samples := make([]float32, frames)
		for i := 0; i < frames; i++ {
			var sum float32
			for c := 0; c < channels; c++ {
				sum += float32(buf.Data[i*channels+c]) / scale
			}
			samples[i] = sum / float32(channels)
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		onBatch(AudioBatch{Samples: samples, SampleRate: rate})
	}
}
