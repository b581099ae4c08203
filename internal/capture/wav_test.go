package capture

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeTestWav writes a mono 16-bit WAV file with the given samples.
func writeTestWav(t *testing.T, samples []int, sampleRate int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestWavDriver_DeliversAllSamplesInBatches(t *testing.T) {
	// Arrange: 2048 samples at 16 kHz, batches of 512
	samples := make([]int, 2048)
	for i := range samples {
		samples[i] = (i%64 - 32) * 256
	}
	path := writeTestWav(t, samples, 16000)
	driver := NewWavDriver(path, zap.NewNop())

	batches := make(chan AudioBatch, 16)
	ended := make(chan struct{})

	// Act
	deregister, err := driver.RegisterCallback(NewOptions().WithBufferSize(512), func(b AudioBatch) {
		batches <- b
	}, func() { close(ended) })
	require.NoError(t, err)
	defer deregister()

	// Assert: replay is paced, so allow generous time
	var total int
	timeout := time.After(3 * time.Second)
	for total < len(samples) {
		select {
		case batch := <-batches:
			assert.Equal(t, uint32(16000), batch.SampleRate)
			assert.LessOrEqual(t, len(batch.Samples), 512)
			for _, s := range batch.Samples {
				assert.GreaterOrEqual(t, s, float32(-1))
				assert.LessOrEqual(t, s, float32(1))
			}
			total += len(batch.Samples)
		case <-timeout:
			t.Fatalf("expected %d samples, got %d before timeout", len(samples), total)
		}
	}
	assert.Equal(t, len(samples), total)

	// The driver signals end of stream once the file is exhausted
	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("expected end-of-stream signal")
	}
}

func TestWavDriver_MissingFile(t *testing.T) {
	// Arrange
	driver := NewWavDriver("/nonexistent/audio.wav", zap.NewNop())

	// Act
	deregister, err := driver.RegisterCallback(NewOptions(), func(AudioBatch) {}, func() {})

	// Assert
	assert.Error(t, err)
	assert.Nil(t, deregister)
}

func TestWavDriver_InvalidFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file"), 0644))
	driver := NewWavDriver(path, zap.NewNop())

	// Act
	deregister, err := driver.RegisterCallback(NewOptions(), func(AudioBatch) {}, func() {})

	// Assert
	assert.Error(t, err)
	assert.Nil(t, deregister)
}

func TestWavDriver_DeregisterStopsReplay(t *testing.T) {
	// Arrange: a long file so replay is still running when we deregister
	samples := make([]int, 16000*4)
	path := writeTestWav(t, samples, 16000)
	driver := NewWavDriver(path, zap.NewNop())

	var count atomic.Int32
	deregister, err := driver.RegisterCallback(NewOptions().WithBufferSize(4096), func(AudioBatch) {
		count.Add(1)
	}, func() {})
	require.NoError(t, err)

	// Act
	deregister()
	time.Sleep(600 * time.Millisecond)
	after := count.Load()
	time.Sleep(600 * time.Millisecond)

	// Assert: no further callbacks once deregistered
	assert.Equal(t, after, count.Load())
}
