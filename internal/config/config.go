package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Configuration provides type-safe access to application settings
type Configuration struct {
	viper *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("capture.buffer_size", 4096)
	v.SetDefault("capture.from_display", false)
	v.SetDefault("capture.source", "wav")
	v.SetDefault("capture.wav_path", "./audio/input.wav")
	v.SetDefault("whisper.model", "tiny-en")
	v.SetDefault("whisper.models_dir", "./models")
	v.SetDefault("whisper.mock", false)
	v.SetDefault("pipeline.end_threshold", 0.01)
	v.SetDefault("transcript.confidence_threshold", 0.9)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8090")
	v.SetDefault("debug_mode", false)
}

// NewConfiguration creates a new Configuration instance with default settings
func NewConfiguration() *Configuration {
	v := viper.New()
	setDefaults(v)
	return &Configuration{viper: v}
}

// NewConfigurationFromFile creates a Configuration instance from a config file
func NewConfigurationFromFile(configFile string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return &Configuration{viper: v}, nil
}

// NewConfigurationFromEnv creates a Configuration instance that reads from environment variables
func NewConfigurationFromEnv() (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LIVESCRIBE")
	v.AutomaticEnv()

	v.BindEnv("capture.buffer_size", "CAPTURE_BUFFER_SIZE")
	v.BindEnv("capture.from_display", "CAPTURE_FROM_DISPLAY")
	v.BindEnv("capture.source", "CAPTURE_SOURCE")
	v.BindEnv("capture.wav_path", "CAPTURE_WAV_PATH")
	v.BindEnv("whisper.model", "WHISPER_MODEL")
	v.BindEnv("whisper.models_dir", "WHISPER_MODELS_DIR")
	v.BindEnv("whisper.mock", "WHISPER_MOCK")
	v.BindEnv("pipeline.end_threshold", "PIPELINE_END_THRESHOLD")
	v.BindEnv("transcript.confidence_threshold", "CONFIDENCE_THRESHOLD")
	v.BindEnv("server.enabled", "SERVER_ENABLED")
	v.BindEnv("server.addr", "SERVER_ADDR")
	v.BindEnv("debug_mode", "DEBUG_MODE")

	return &Configuration{viper: v}, nil
}

// GetBufferSize returns the capture buffer size in samples per callback
func (c *Configuration) GetBufferSize() uint32 {
	return c.viper.GetUint32("capture.buffer_size")
}

// GetFromDisplay returns whether display/system audio is captured instead of the microphone
func (c *Configuration) GetFromDisplay() bool {
	return c.viper.GetBool("capture.from_display")
}

// GetCaptureSource returns the configured capture driver name
func (c *Configuration) GetCaptureSource() string {
	return c.viper.GetString("capture.source")
}

// GetWavPath returns the WAV file path used by the replay driver
func (c *Configuration) GetWavPath() string {
	return c.viper.GetString("capture.wav_path")
}

// GetModelPreset returns the configured whisper model preset name
func (c *Configuration) GetModelPreset() string {
	return c.viper.GetString("whisper.model")
}

// GetModelsDir returns the directory where model files are stored
func (c *Configuration) GetModelsDir() string {
	return c.viper.GetString("whisper.models_dir")
}

// GetUseMockEngine returns whether the mock transcription engine is used
func (c *Configuration) GetUseMockEngine() bool {
	return c.viper.GetBool("whisper.mock")
}

// GetEndThreshold returns the voice activity threshold that ends a chunk
func (c *Configuration) GetEndThreshold() float64 {
	return c.viper.GetFloat64("pipeline.end_threshold")
}

// GetConfidenceThreshold returns the speech confidence threshold for visible transcript entries
func (c *Configuration) GetConfidenceThreshold() float64 {
	return c.viper.GetFloat64("transcript.confidence_threshold")
}

// GetServerEnabled returns whether the HTTP presentation server is started
func (c *Configuration) GetServerEnabled() bool {
	return c.viper.GetBool("server.enabled")
}

// GetServerAddr returns the HTTP listen address
func (c *Configuration) GetServerAddr() string {
	return c.viper.GetString("server.addr")
}

// GetDebugMode returns whether verbose pipeline logging is enabled
func (c *Configuration) GetDebugMode() bool {
	return c.viper.GetBool("debug_mode")
}
