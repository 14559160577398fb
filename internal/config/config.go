// Package config defines the process configuration and its loading.
//
// Conventions:
// - Keys are flat and snake_case; the same names are used in YAML and, with
//   the KARTPOS_ prefix, in the environment.
// - New() returns the defaults; Load layers file and environment on top and
//   validates the result.
package config

import (
	"fmt"
	"image"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// Addr configures the HTTP control listen address, e.g. ":9080".
	// Empty disables the HTTP surface.
	Addr string `koanf:"addr"`

	// VideoPort is the capture device index of the live video source; -1
	// lists the active ports and asks for one.
	VideoPort int `koanf:"video_port" validate:"gte=-1"`

	// ResolutionWidth and ResolutionHeight are requested from the camera and
	// bound the regions of interest.
	ResolutionWidth  int `koanf:"resolution_width" validate:"gt=0"`
	ResolutionHeight int `koanf:"resolution_height" validate:"gt=0"`

	// Position badge corners on live frames.
	PositionROIMinX int `koanf:"position_roi_min_x" validate:"gte=0"`
	PositionROIMinY int `koanf:"position_roi_min_y" validate:"gte=0"`
	PositionROIMaxX int `koanf:"position_roi_max_x" validate:"gtfield=PositionROIMinX"`
	PositionROIMaxY int `koanf:"position_roi_max_y" validate:"gtfield=PositionROIMinY"`

	// Results table corners on end-of-race screenshots.
	ResultsROIMinX int `koanf:"results_roi_min_x" validate:"gte=0"`
	ResultsROIMinY int `koanf:"results_roi_min_y" validate:"gte=0"`
	ResultsROIMaxX int `koanf:"results_roi_max_x" validate:"gtfield=ResultsROIMinX"`
	ResultsROIMaxY int `koanf:"results_roi_max_y" validate:"gtfield=ResultsROIMinY"`

	// DetectionThreshold is the confidence a prediction must exceed.
	DetectionThreshold float64 `koanf:"detection_threshold" validate:"gte=0,lte=1"`

	// WindowCapacity is the number of agreeing predictions needed for a
	// reading to count as stable.
	WindowCapacity int `koanf:"window_capacity" validate:"gt=0"`

	// PositionCount is the number of possible race positions.
	PositionCount int `koanf:"position_count" validate:"gt=0"`

	// Classifier model and its declared input.
	ModelPath        string `koanf:"model_path"`
	ModelInputWidth  int    `koanf:"model_input_width" validate:"gt=0"`
	ModelInputHeight int    `koanf:"model_input_height" validate:"gt=0"`
	ModelSoftmax     bool   `koanf:"model_softmax"`

	// RecordsPath receives the records of each stopped session.
	RecordsPath string `koanf:"records_path" validate:"required"`

	// ArchivePath is an optional SQLite database keeping every session and
	// finish result.
	ArchivePath string `koanf:"archive_path"`

	// WorkbookPath is the default results sheet for the scores command.
	WorkbookPath string `koanf:"workbook_path" validate:"required"`

	// OCR settings.
	OCRLanguage  string `koanf:"ocr_language" validate:"required"`
	OCRWhitelist string `koanf:"ocr_whitelist"`
	OCRValueMin  int    `koanf:"ocr_value_min" validate:"gte=0,lte=255"`

	// OCRTimeoutMS bounds each OCR call; 0 disables.
	OCRTimeoutMS int `koanf:"ocr_timeout_ms" validate:"gte=0"`

	// PortTimeoutMS bounds each camera and classifier call; 0 disables.
	PortTimeoutMS int `koanf:"port_timeout_ms" validate:"gte=0"`

	// MaxPortFailures is how many consecutive port failures are retried.
	MaxPortFailures int `koanf:"max_port_failures" validate:"gte=0"`

	// CameraProbeLimit is the number of device indices probed for cameras.
	CameraProbeLimit int `koanf:"camera_probe_limit" validate:"gt=0"`
}

// New creates a Config with defaults matching a 1280x720 capture.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		VideoPort:          0,
		ResolutionWidth:    1280,
		ResolutionHeight:   720,
		PositionROIMinX:    1078,
		PositionROIMinY:    574,
		PositionROIMaxX:    1195,
		PositionROIMaxY:    676,
		ResultsROIMinX:     675,
		ResultsROIMinY:     50,
		ResultsROIMaxX:     945,
		ResultsROIMaxY:     670,
		DetectionThreshold: 0.6,
		WindowCapacity:     10,
		PositionCount:      12,
		ModelPath:          "position_model.onnx",
		ModelInputWidth:    117,
		ModelInputHeight:   102,
		RecordsPath:        "records.json",
		WorkbookPath:       "default_workbook.csv",
		OCRLanguage:        "fra",
		OCRWhitelist:       "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789",
		OCRValueMin:        210,
		OCRTimeoutMS:       10000,
		PortTimeoutMS:      2000,
		MaxPortFailures:    5,
		CameraProbeLimit:   10,
	}
}

// PositionROI returns the position badge rectangle.
func (c *Config) PositionROI() image.Rectangle {
	return image.Rect(c.PositionROIMinX, c.PositionROIMinY, c.PositionROIMaxX, c.PositionROIMaxY)
}

// ResultsROI returns the results table rectangle.
func (c *Config) ResultsROI() image.Rectangle {
	return image.Rect(c.ResultsROIMinX, c.ResultsROIMinY, c.ResultsROIMaxX, c.ResultsROIMaxY)
}

// Frame returns the capture frame rectangle.
func (c *Config) Frame() image.Rectangle {
	return image.Rect(0, 0, c.ResolutionWidth, c.ResolutionHeight)
}

// PortTimeout returns PortTimeoutMS as a duration.
func (c *Config) PortTimeout() time.Duration {
	return time.Duration(c.PortTimeoutMS) * time.Millisecond
}

// OCRTimeout returns OCRTimeoutMS as a duration.
func (c *Config) OCRTimeout() time.Duration {
	return time.Duration(c.OCRTimeoutMS) * time.Millisecond
}

// Validate checks field constraints and that the position badge fits in the
// capture frame.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !c.PositionROI().In(c.Frame()) {
		return fmt.Errorf("%w: position roi %v outside the %dx%d frame",
			ErrInvalidConfig, c.PositionROI(), c.ResolutionWidth, c.ResolutionHeight)
	}
	return nil
}
