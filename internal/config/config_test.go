package config_test

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/okian/kartpos/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.DetectionThreshold, convey.ShouldEqual, 0.6)
			convey.So(cfg.WindowCapacity, convey.ShouldEqual, 10)
			convey.So(cfg.PositionCount, convey.ShouldEqual, 12)
			convey.So(cfg.RecordsPath, convey.ShouldEqual, "records.json")
			convey.So(cfg.OCRLanguage, convey.ShouldEqual, "fra")
			convey.So(cfg.PortTimeout(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.OCRTimeout(), convey.ShouldEqual, 10*time.Second)
		})

		convey.Convey("Then the regions of interest are derived from the corners", func() {
			convey.So(cfg.PositionROI(), convey.ShouldResemble, image.Rect(1078, 574, 1195, 676))
			convey.So(cfg.ResultsROI(), convey.ShouldResemble, image.Rect(675, 50, 945, 670))
			convey.So(cfg.Frame(), convey.ShouldResemble, image.Rect(0, 0, 1280, 720))
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"threshold above one", func(c *config.Config) { c.DetectionThreshold = 1.5 }},
		{"negative threshold", func(c *config.Config) { c.DetectionThreshold = -0.1 }},
		{"empty window", func(c *config.Config) { c.WindowCapacity = 0 }},
		{"no positions", func(c *config.Config) { c.PositionCount = 0 }},
		{"unknown log level", func(c *config.Config) { c.LogLevel = "verbose" }},
		{"inverted roi", func(c *config.Config) { c.PositionROIMaxX = c.PositionROIMinX }},
		{"roi outside frame", func(c *config.Config) { c.ResolutionWidth = 640; c.ResolutionHeight = 480 }},
		{"missing records path", func(c *config.Config) { c.RecordsPath = "" }},
		{"value threshold out of range", func(c *config.Config) { c.OCRValueMin = 300 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
