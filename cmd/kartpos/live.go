package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/kartpos/internal/adapters/control"
	"github.com/okian/kartpos/internal/adapters/http/api"
	"github.com/okian/kartpos/internal/adapters/mq/queue"
	"github.com/okian/kartpos/internal/adapters/repository"
	"github.com/okian/kartpos/internal/adapters/vision"
	service "github.com/okian/kartpos/internal/app"
	"github.com/okian/kartpos/internal/config"
	"github.com/okian/kartpos/internal/domain/recording"
	"github.com/okian/kartpos/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var errCameraUnavailable = errors.New("video port not available")

func runLive(ctx context.Context, cfg *config.Config, opts liveOptions, stdin io.Reader, stdout io.Writer, log logger.Logger) error {
	in := bufio.NewReader(stdin)
	port, err := selectVideoPort(opts.videoPort, vision.ProbeCameras(cfg.CameraProbeLimit), in, stdout)
	if err != nil {
		return err
	}

	cam, err := vision.OpenCamera(port, cfg.ResolutionWidth, cfg.ResolutionHeight)
	if err != nil {
		return err
	}
	defer func() { _ = cam.Close() }()

	classifier, err := vision.LoadONNXClassifier(cfg.ModelPath, vision.Shape{
		Width:     cfg.ModelInputWidth,
		Height:    cfg.ModelInputHeight,
		Positions: cfg.PositionCount,
	}, cfg.ModelSoftmax)
	if err != nil {
		return err
	}
	defer func() { _ = classifier.Close() }()

	store, closeStore, err := openSessionStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	recorder := recording.New(store,
		recording.WithWindowCapacity(cfg.WindowCapacity),
		recording.WithLogger(log.Named("recorder")),
	)
	events := queue.NewInMemoryQueue()
	defer func() { _ = events.Close() }()

	tracker := service.NewTracker(cam,
		vision.NewPreprocessor(cfg.PositionROI(), cfg.ResultsROI(), uint8(cfg.OCRValueMin)),
		classifier,
		service.WithThreshold(cfg.DetectionThreshold),
		service.WithPositionCount(cfg.PositionCount),
		service.WithPortTimeout(cfg.PortTimeout()),
		service.WithMaxPortFailures(cfg.MaxPortFailures),
		service.WithControlQueue(events),
		service.WithRecorder(recorder),
		service.WithLogger(log.Named("tracker")),
	)

	keyboard := control.NewKeyboard(in, events, log.Named("keyboard"))
	go func() {
		if err := keyboard.Run(ctx); err != nil {
			log.Warn(ctx, "keyboard input stopped", logger.Error(err))
		}
	}()
	log.Info(ctx, "press enter to start or stop recording, q to quit",
		logger.Int("videoPort", port),
		logger.String("records", cfg.RecordsPath),
	)

	if cfg.Addr != "" {
		srv := newHTTPServer(ctx, cfg.Addr, tracker)
		go func() {
			log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "HTTP server failed", logger.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error(ctx, "server shutdown failed", logger.Error(err))
			}
		}()
	}

	return tracker.Run(ctx)
}

// selectVideoPort checks that port is among the available devices. With
// promptVideoPort it lists them on out and reads the choice from in.
func selectVideoPort(port int, available []int, in *bufio.Reader, out io.Writer) (int, error) {
	if port == promptVideoPort {
		_, _ = fmt.Fprintln(out, "The following video ports are active:")
		for _, p := range available {
			if p == 0 {
				_, _ = fmt.Fprintln(out, "- Port 0 (on a laptop this is probably the integrated camera)")
				continue
			}
			_, _ = fmt.Fprintf(out, "- Port %d\n", p)
		}
		_, _ = fmt.Fprint(out, "Port: ")

		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return 0, fmt.Errorf("%w: no port chosen: %w", errCameraUnavailable, err)
		}
		port, err = strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a port", errCameraUnavailable, strings.TrimSpace(line))
		}
	}
	if !slices.Contains(available, port) {
		return 0, fmt.Errorf("%w: %d (available: %v)", errCameraUnavailable, port, available)
	}
	return port, nil
}

// openSessionStore returns the records file store, fanned out to the SQLite
// archive when archive_path is set.
func openSessionStore(cfg *config.Config, log logger.Logger) (recording.Store, func(), error) {
	records := repository.NewRecordsStore(cfg.RecordsPath, repository.WithLogger(log.Named("records")))
	if cfg.ArchivePath == "" {
		return records, func() {}, nil
	}
	archive, err := repository.OpenArchive(cfg.ArchivePath, repository.WithLogger(log.Named("archive")))
	if err != nil {
		return nil, nil, err
	}
	return repository.MultiStore{records, archive}, func() { _ = archive.Close() }, nil
}

func newHTTPServer(ctx context.Context, addr string, deps api.Dependencies) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(ctx, mux)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
