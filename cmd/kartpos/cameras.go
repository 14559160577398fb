package main

import (
	"fmt"
	"io"

	"github.com/okian/kartpos/internal/adapters/vision"
	"github.com/okian/kartpos/internal/config"
)

func runCameras(cfg *config.Config, stdout io.Writer) error {
	return printCameras(stdout, vision.ProbeCameras(cfg.CameraProbeLimit))
}

func printCameras(w io.Writer, ports []int) error {
	if len(ports) == 0 {
		_, err := fmt.Fprintln(w, "no cameras found")
		return err
	}
	for _, p := range ports {
		if _, err := fmt.Fprintf(w, "video port %d\n", p); err != nil {
			return err
		}
	}
	return nil
}
