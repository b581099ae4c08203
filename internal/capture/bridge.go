package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// sessionActive guards the process-wide capture device: one live BatchSource
// at a time. Released when the source is closed.
var sessionActive atomic.Bool

// Bridge adapts the push-based Driver callback API into a pull-based batch
// source a single consumer can await.
type Bridge struct {
	driver Driver
	logger *zap.Logger
}

// NewBridge creates a Bridge over the given capture driver.
func NewBridge(driver Driver, logger *zap.Logger) *Bridge {
	return &Bridge{driver: driver, logger: logger}
}

// Start validates the options, claims the capture device, registers the
// driver callback and returns a BatchSource the consumer pulls batches from.
func (b *Bridge) Start(opts Options) (*BatchSource, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if !sessionActive.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: another capture session is active", ErrDeviceUnavailable)
	}

	src := &BatchSource{
		logger: b.logger,
		notify: make(chan struct{}, 1),
	}

	deregister, err := b.driver.RegisterCallback(opts, src.push, src.finish)
	if err != nil {
		sessionActive.Store(false)
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	src.deregister = deregister

	b.logger.Info("capture session started",
		zap.Uint32("buffer_size", opts.BufferSize),
		zap.Bool("from_display", opts.FromDisplay))

	return src, nil
}

// BatchSource is the consumer side of the bridge: an unbounded
// multi-producer/single-consumer queue of audio batches. The producer side
// never blocks; batches pushed after Close are counted and discarded.
type BatchSource struct {
	logger *zap.Logger

	mu       sync.Mutex
	queue    []AudioBatch
	closed   bool
	finished bool

	notify     chan struct{}
	deregister func()
	closeOnce  sync.Once
	dropped    atomic.Uint64
}

// push enqueues a batch from the driver callback. Never blocks: the queue
// grows without bound and a closed source drops the batch.
func (s *BatchSource) push(batch AudioBatch) {
	s.mu.Lock()
	if s.closed || s.finished {
		s.mu.Unlock()
		s.dropped.Add(1)
		return
	}
	s.queue = append(s.queue, batch)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next returns the next batch in arrival order, blocking until one is
// available. The second return is false once the source is closed or the
// context is cancelled; no timeout is imposed, an idle device waits
// indefinitely.
func (s *BatchSource) Next(ctx context.Context) (AudioBatch, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			batch := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return batch, true
		}
		if s.closed || s.finished {
			s.mu.Unlock()
			return AudioBatch{}, false
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return AudioBatch{}, false
		case <-s.notify:
		}
	}
}

// finish marks producer-side end-of-stream: the device stopped producing.
// Batches already queued still drain; the consumer then sees a clean end.
func (s *BatchSource) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Close deregisters the driver callback, releases the device and wakes a
// blocked consumer. Batches still queued are discarded; batches the driver
// delivers afterwards are dropped silently.
func (s *BatchSource) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()

		if s.deregister != nil {
			s.deregister()
		}
		sessionActive.Store(false)

		select {
		case s.notify <- struct{}{}:
		default:
		}

		if n := s.dropped.Load(); n > 0 {
			s.logger.Debug("batches dropped after close", zap.Uint64("count", n))
		}
		s.logger.Info("capture session closed")
	})
}

// Dropped reports how many batches the driver delivered after Close.
func (s *BatchSource) Dropped() uint64 {
	return s.dropped.Load()
}
