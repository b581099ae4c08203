package whisper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource_KnownPresets(t *testing.T) {
	for _, preset := range AllSources() {
		source, err := ParseSource(string(preset))
		require.NoError(t, err)
		assert.Equal(t, preset, source)
	}
}

func TestParseSource_IsCaseInsensitive(t *testing.T) {
	source, err := ParseSource("TINY-EN")
	require.NoError(t, err)
	assert.Equal(t, SourceTinyEN, source)
}

func TestParseSource_UnknownPreset(t *testing.T) {
	_, err := ParseSource("small-xxl")
	assert.Error(t, err)
}

func TestSource_Filename(t *testing.T) {
	tests := []struct {
		source Source
		want   string
	}{
		{SourceTiny, "ggml-tiny.bin"},
		{SourceTinyEN, "ggml-tiny.en.bin"},
		{SourceBase, "ggml-base.bin"},
		{SourceBaseEN, "ggml-base.en.bin"},
		{SourceMedium, "ggml-medium.bin"},
		{SourceMediumEN, "ggml-medium.en.bin"},
		{SourceLargeV3, "ggml-large-v3.bin"},
		{SourceDistilMediumEN, "ggml-distil-medium.en.bin"},
		{SourceDistilLargeV35, "ggml-distil-large-v3.5.bin"},
		{SourceDistilLargeV3, "ggml-distil-large-v3.bin"},
		{SourceLargeV3Turbo, "ggml-large-v3-turbo.bin"},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.source.Filename())
		})
	}
}

func TestSource_EnglishOnly(t *testing.T) {
	assert.True(t, SourceTinyEN.EnglishOnly())
	assert.True(t, SourceDistilMediumEN.EnglishOnly())
	assert.False(t, SourceTiny.EnglishOnly())
	assert.False(t, SourceLargeV3Turbo.EnglishOnly())
	assert.False(t, SourceDistilLargeV35.EnglishOnly())
}
