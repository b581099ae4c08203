package pipeline

// Rechunker groups the annotated frame stream into discrete chunks suitable
// for one transcription call. A chunk is complete once voice activity stays
// below the end threshold for a sustained trailing window, or once the chunk
// reaches the maximum duration.
type Rechunker struct {
	endThreshold float64
	windowMS     int
	maxChunkMS   int
	sampleRate   int

	buf       []float32
	hadSpeech bool
	silenceMS float64
}

const (
	// DefaultEndThreshold is the voice activity probability below which a
	// frame counts as trailing silence.
	DefaultEndThreshold = 0.01

	defaultWindowMS   = 500
	defaultMaxChunkMS = 30_000
)

// NewRechunker creates a Rechunker for the given sample rate. endThreshold
// values <= 0 fall back to the default.
func NewRechunker(endThreshold float64, sampleRate int) *Rechunker {
	if endThreshold <= 0 {
		endThreshold = DefaultEndThreshold
	}
	return &Rechunker{
		endThreshold: endThreshold,
		windowMS:     defaultWindowMS,
		maxChunkMS:   defaultMaxChunkMS,
		sampleRate:   sampleRate,
	}
}

// Add appends an annotated frame to the current chunk. It returns the
// finished chunk and true when the frame completes one, otherwise nil and
// false. Leading silence before any speech is discarded so an idle source
// never grows the buffer.
func (r *Rechunker) Add(frame []float32, probability float64) ([]float32, bool) {
	frameMS := float64(len(frame)) * 1000 / float64(r.sampleRate)

	if probability >= r.endThreshold {
		r.hadSpeech = true
		r.silenceMS = 0
		r.buf = append(r.buf, frame...)
		if r.maxChunkMS > 0 && r.durationMS() >= float64(r.maxChunkMS) {
			return r.take(), true
		}
		return nil, false
	}

	if !r.hadSpeech {
		return nil, false
	}

	r.buf = append(r.buf, frame...)
	r.silenceMS += frameMS
	if r.silenceMS >= float64(r.windowMS) {
		return r.take(), true
	}
	return nil, false
}

// Flush returns any speech-bearing audio still buffered when the stream
// ends.
func (r *Rechunker) Flush() ([]float32, bool) {
	if !r.hadSpeech || len(r.buf) == 0 {
		return nil, false
	}
	return r.take(), true
}

func (r *Rechunker) durationMS() float64 {
	return float64(len(r.buf)) * 1000 / float64(r.sampleRate)
}

func (r *Rechunker) take() []float32 {
	chunk := r.buf
	r.buf = nil
	r.hadSpeech = false
	r.silenceMS = 0
	return chunk
}
