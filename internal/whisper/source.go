package whisper

import (
	"fmt"
	"strings"
)

// Source is a closed set of model presets understood by the transcription
// engine.
type Source string

const (
	SourceTiny           Source = "tiny"
	SourceTinyEN         Source = "tiny-en"
	SourceBase           Source = "base"
	SourceBaseEN         Source = "base-en"
	SourceMedium         Source = "medium"
	SourceMediumEN       Source = "medium-en"
	SourceLargeV3        Source = "large-v3"
	SourceDistilMediumEN Source = "distil-medium-en"
	SourceDistilLargeV35 Source = "distil-large-v3.5"
	SourceDistilLargeV3  Source = "distil-large-v3"
	SourceLargeV3Turbo   Source = "large-v3-turbo"
)

// AllSources lists every supported preset.
func AllSources() []Source {
	return []Source{
		SourceTiny,
		SourceTinyEN,
		SourceBase,
		SourceBaseEN,
		SourceMedium,
		SourceMediumEN,
		SourceLargeV3,
		SourceDistilMediumEN,
		SourceDistilLargeV35,
		SourceDistilLargeV3,
		SourceLargeV3Turbo,
	}
}

// ParseSource maps a configured preset name to a Source.
func ParseSource(name string) (Source, error) {
	for _, s := range AllSources() {
		if strings.EqualFold(name, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown model preset %q", name)
}

// Filename returns the ggml model file name for the preset, the explicit
// mapping onto the engine's configuration.
func (s Source) Filename() string {
	switch s {
	case SourceTinyEN:
		return "ggml-tiny.en.bin"
	case SourceBaseEN:
		return "ggml-base.en.bin"
	case SourceMediumEN:
		return "ggml-medium.en.bin"
	case SourceDistilMediumEN:
		return "ggml-distil-medium.en.bin"
	case SourceDistilLargeV35:
		return "ggml-distil-large-v3.5.bin"
	case SourceDistilLargeV3:
		return "ggml-distil-large-v3.bin"
	default:
		return fmt.Sprintf("ggml-%s.bin", s)
	}
}

// EnglishOnly reports whether the preset is an English-only model.
func (s Source) EnglishOnly() bool {
	switch s {
	case SourceTinyEN, SourceBaseEN, SourceMediumEN, SourceDistilMediumEN:
		return true
	}
	return false
}
