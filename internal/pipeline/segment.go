package pipeline

import "fmt"

// Segment represents a single transcribed span of audio as produced by the
// transcription engine, annotated with the engine's probability that the span
// contains no speech at all. Immutable once produced.
type Segment struct {
	Text         string  `json:"text"`
	StartMS      int     `json:"start_ms"`
	EndMS        int     `json:"end_ms"`
	NoSpeechProb float32 `json:"no_speech_prob"`
}

// Validate checks if the Segment has valid values.
func (s *Segment) Validate() error {
	if s.Text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if s.StartMS < 0 {
		return fmt.Errorf("start_ms cannot be negative")
	}

	if s.EndMS <= s.StartMS {
		return fmt.Errorf("end_ms must be greater than start_ms")
	}

	if s.NoSpeechProb < 0.0 || s.NoSpeechProb > 1.0 {
		return fmt.Errorf("no_speech_prob must be between 0.0 and 1.0")
	}

	return nil
}
