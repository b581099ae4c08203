package whisper

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDownloader_ExistingModelSkipsDownload(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	modelPath := filepath.Join(dir, SourceTinyEN.Filename())
	require.NoError(t, os.WriteFile(modelPath, []byte("model-bytes"), 0644))

	d := NewDownloader(dir, zap.NewNop())
	d.baseURL = "http://invalid.localhost" // any fetch attempt would fail

	var fractions []float64

	// Act
	path, err := d.EnsureModel(t.Context(), SourceTinyEN, func(f float64) {
		fractions = append(fractions, f)
	})

	// Assert: present model reports completion immediately
	require.NoError(t, err)
	assert.Equal(t, modelPath, path)
	assert.Equal(t, []float64{1}, fractions)
}

func TestDownloader_FetchesMissingModel(t *testing.T) {
	// Arrange
	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+SourceTiny.Filename(), r.URL.Path)
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, zap.NewNop())
	d.baseURL = srv.URL

	var fractions []float64

	// Act
	path, err := d.EnsureModel(t.Context(), SourceTiny, func(f float64) {
		fractions = append(fractions, f)
	})

	// Assert: file in place with full contents
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Progress stays within [0,1] and is monotone, ending complete
	require.NotEmpty(t, fractions)
	prev := 0.0
	for _, f := range fractions {
		assert.GreaterOrEqual(t, f, prev)
		assert.LessOrEqual(t, f, 1.0)
		prev = f
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])

	// No leftover temp file
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDownloader_HTTPErrorSurfaces(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, zap.NewNop())
	d.baseURL = srv.URL

	// Act
	_, err := d.EnsureModel(t.Context(), SourceBase, nil)

	// Assert: no partial model file left behind
	assert.Error(t, err)
	_, statErr := os.Stat(d.ModelPath(SourceBase))
	assert.True(t, os.IsNotExist(statErr))
}
