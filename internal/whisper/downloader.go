package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Downloader fetches ggml model files from HuggingFace into a local models
// directory, reporting loading progress as a fraction in [0,1].
type Downloader struct {
	logger    *zap.Logger
	modelsDir string
	client    *http.Client
	baseURL   string
}

// NewDownloader creates a model downloader for the given models directory.
func NewDownloader(modelsDir string, logger *zap.Logger) *Downloader {
	return &Downloader{
		logger:    logger,
		modelsDir: modelsDir,
		client: &http.Client{
			Timeout: 10 * time.Minute, // large model files
		},
		baseURL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main",
	}
}

// ModelPath returns the local file path for a preset.
func (d *Downloader) ModelPath(source Source) string {
	return filepath.Join(d.modelsDir, source.Filename())
}

// EnsureModel checks that the model file for the preset exists locally and
// downloads it if it does not. progress, when non-nil, receives fractions in
// [0,1]; an already-present model reports 1 immediately.
func (d *Downloader) EnsureModel(ctx context.Context, source Source, progress func(float64)) (string, error) {
	modelPath := d.ModelPath(source)

	if _, err := os.Stat(modelPath); err == nil {
		d.logger.Info("model already present",
			zap.String("model", string(source)),
			zap.String("path", modelPath))
		if progress != nil {
			progress(1)
		}
		return modelPath, nil
	}

	d.logger.Info("model not found locally, downloading",
		zap.String("model", string(source)),
		zap.String("path", modelPath))

	if err := os.MkdirAll(d.modelsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	if err := d.download(ctx, source, modelPath, progress); err != nil {
		return "", err
	}
	return modelPath, nil
}

// download fetches the model file and moves it into place atomically.
func (d *Downloader) download(ctx context.Context, source Source, modelPath string, progress func(float64)) error {
	url := fmt.Sprintf("%s/%s", d.baseURL, source.Filename())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", "livescribe (Go HTTP Client)")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	tempFile := modelPath + ".tmp"
	defer os.Remove(tempFile)

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	written, err := d.copyWithProgress(out, resp.Body, resp.ContentLength, source, progress)
	if err != nil {
		return fmt.Errorf("failed to download model data: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to flush model file: %w", err)
	}
	if err := os.Rename(tempFile, modelPath); err != nil {
		return fmt.Errorf("failed to move downloaded model into place: %w", err)
	}

	d.logger.Info("model download completed",
		zap.String("model", string(source)),
		zap.String("path", modelPath),
		zap.Int64("bytes", written))
	return nil
}

// copyWithProgress copies the response body while reporting the downloaded
// fraction and logging progress periodically.
func (d *Downloader) copyWithProgress(dst io.Writer, src io.Reader, totalSize int64, source Source, progress func(float64)) (int64, error) {
	buffer := make([]byte, 32*1024)

	var written int64
	lastLogTime := time.Now()
	logInterval := 10 * time.Second

	for {
		nr, er := src.Read(buffer)
		if nr > 0 {
			nw, ew := dst.Write(buffer[0:nr])
			if nw < 0 || nr < nw {
				nw = 0
				if ew == nil {
					ew = fmt.Errorf("invalid write result")
				}
			}
			written += int64(nw)
			if ew != nil {
				return written, ew
			}
			if nr != nw {
				return written, fmt.Errorf("short write")
			}

			if progress != nil && totalSize > 0 {
				progress(float64(written) / float64(totalSize))
			}

			if now := time.Now(); now.Sub(lastLogTime) >= logInterval {
				d.logger.Info("download progress",
					zap.String("model", string(source)),
					zap.Int64("downloaded", written),
					zap.Int64("total", totalSize))
				lastLogTime = now
			}
		}
		if er != nil {
			if er != io.EOF {
				return written, er
			}
			break
		}
	}
	return written, nil
}
