package capture

import (
	"errors"
	"fmt"
)

// DefaultBufferSize is the number of samples delivered per driver callback
// when no explicit buffer size is configured.
const DefaultBufferSize = 4096

// AudioBatch is one delivery of raw audio from the capture driver: a run of
// mono float32 samples plus the sample rate they were captured at. Batches
// arrive at irregular intervals on the driver's own schedule.
type AudioBatch struct {
	Samples    []float32 `json:"samples"`
	SampleRate uint32    `json:"sampleRate"`
}

// Options configures a capture session. Immutable once capture starts; a new
// session is required to change them.
type Options struct {
	BufferSize  uint32 `json:"bufferSize"`
	FromDisplay bool   `json:"fromDisplay"`
}

// NewOptions returns capture options with the default buffer size, reading
// from the microphone.
func NewOptions() Options {
	return Options{BufferSize: DefaultBufferSize}
}

// WithBufferSize returns a copy of the options with the given buffer size.
func (o Options) WithBufferSize(size uint32) Options {
	o.BufferSize = size
	return o
}

// WithFromDisplay returns a copy of the options selecting display/system
// audio instead of the microphone.
func (o Options) WithFromDisplay(fromDisplay bool) Options {
	o.FromDisplay = fromDisplay
	return o
}

// Validate checks that the options are supported by the capture layer.
func (o Options) Validate() error {
	if o.BufferSize == 0 || o.BufferSize&(o.BufferSize-1) != 0 {
		return fmt.Errorf("%w: buffer size %d must be a power of two", ErrInvalidOptions, o.BufferSize)
	}
	return nil
}

var (
	// ErrDeviceUnavailable indicates the capture device or permission could
	// not be acquired, or another session already holds the device.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrInvalidOptions indicates unsupported capture options.
	ErrInvalidOptions = errors.New("invalid capture options")
)

// Driver is the external capture boundary: an implementation invokes onBatch
// once per available AudioBatch, on its own schedule and possibly from
// another goroutine, until the returned deregister function is called. onEnd
// is invoked once when the device stops producing (unplugged, end of file);
// batches already delivered remain consumable.
type Driver interface {
	RegisterCallback(opts Options, onBatch func(AudioBatch), onEnd func()) (deregister func(), err error)
}
