package assembler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"livescribe/internal/capture"
)

// pushDriver hands the registered callbacks back to the test.
type pushDriver struct {
	fn  func(capture.AudioBatch)
	end func()
}

func (d *pushDriver) RegisterCallback(_ capture.Options, onBatch func(capture.AudioBatch), onEnd func()) (func(), error) {
	d.fn = onBatch
	d.end = onEnd
	return func() {}, nil
}

// newTestSource opens a batch source backed by a test-controlled driver.
func newTestSource(t *testing.T) (*pushDriver, *capture.BatchSource) {
	t.Helper()
	driver := &pushDriver{}
	bridge := capture.NewBridge(driver, zap.NewNop())
	src, err := bridge.Start(capture.NewOptions())
	require.NoError(t, err)
	t.Cleanup(src.Close)
	return driver, src
}

func rampBatch(n int, rate uint32, base float32) capture.AudioBatch {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = base + float32(i)
	}
	return capture.AudioBatch{Samples: samples, SampleRate: rate}
}

func TestAssemble_ConcatenatesBatchesInArrivalOrder(t *testing.T) {
	// Arrange: three batches of 4096 samples at 16 kHz
	driver, src := newTestSource(t)
	for i := 0; i < 3; i++ {
		driver.fn(rampBatch(4096, 16000, float32(i*4096)))
	}

	ctx := context.Background()

	// Act
	stream, ok := Assemble(ctx, src, zap.NewNop())
	require.True(t, ok)

	// Assert: exactly the concatenation, tagged with the first batch's rate
	assert.Equal(t, uint32(16000), stream.SampleRate())

	driver.end()
	var got []float32
	for {
		sample, ok := stream.Next(ctx)
		if !ok {
			break
		}
		got = append(got, sample)
	}
	require.Len(t, got, 12288)
	for i, sample := range got {
		assert.Equal(t, float32(i), sample)
	}
}

func TestAssemble_ReturnsFalseWhenSourceEndsFirst(t *testing.T) {
	// Arrange: the source ends before any batch arrives
	driver, src := newTestSource(t)
	driver.end()

	// Act
	result := make(chan bool, 1)
	go func() {
		_, ok := Assemble(context.Background(), src, zap.NewNop())
		result <- ok
	}()

	// Assert: no false success and no hang
	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Assemble did not return after source ended")
	}
}

func TestAssemble_FirstBatchRateIsAuthoritative(t *testing.T) {
	// Arrange: a later batch declares a different rate
	driver, src := newTestSource(t)
	driver.fn(rampBatch(4, 16000, 0))
	driver.fn(rampBatch(4, 48000, 4))

	ctx := context.Background()

	// Act
	stream, ok := Assemble(ctx, src, zap.NewNop())
	require.True(t, ok)
	driver.end()

	// Assert: rate stays at the first batch's value, samples still flow
	assert.Equal(t, uint32(16000), stream.SampleRate())
	var got []float32
	for {
		sample, ok := stream.Next(ctx)
		if !ok {
			break
		}
		got = append(got, sample)
	}
	assert.Len(t, got, 8)
}

func TestSampleStream_NextFrame(t *testing.T) {
	// Arrange: 10 samples, frames of 4
	driver, src := newTestSource(t)
	driver.fn(rampBatch(10, 16000, 0))

	ctx := context.Background()
	stream, ok := Assemble(ctx, src, zap.NewNop())
	require.True(t, ok)
	driver.end()

	// Act / Assert: two full frames, one short final frame, then end
	frame, ok := stream.NextFrame(ctx, 4)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1, 2, 3}, frame)

	frame, ok = stream.NextFrame(ctx, 4)
	require.True(t, ok)
	assert.Equal(t, []float32{4, 5, 6, 7}, frame)

	frame, ok = stream.NextFrame(ctx, 4)
	require.True(t, ok)
	assert.Equal(t, []float32{8, 9}, frame)

	_, ok = stream.NextFrame(ctx, 4)
	assert.False(t, ok)
}
