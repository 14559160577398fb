// Command kartpos tracks a kart's race position from a live video feed and
// reads finishing positions from end-of-race screenshots.
//
// Usage:
//
//	kartpos live [-video-port N|-1]
//	kartpos scores [-workbook F] [-save-copy] [-header=false] IMG_DIR PLAYER...
//	kartpos cameras
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/kartpos/internal/config"
	"github.com/okian/kartpos/pkg/logger"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

const usage = `usage:
  kartpos live [-video-port N|-1]
  kartpos scores [-workbook F] [-save-copy] [-header=false] IMG_DIR PLAYER...
  kartpos cameras
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = io.WriteString(stderr, usage)
		return exitUsage
	}

	// Initialize logging
	if err := logger.Init(); err != nil {
		_, _ = io.WriteString(stderr, "failed to initialize logging: "+err.Error()+"\n")
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = io.WriteString(stderr, "failed to load config: "+err.Error()+"\n")
		return exitError
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "live":
		opts, err := parseLiveArgs(rest, cfg, stderr)
		if err != nil {
			return exitUsage
		}
		err = runLive(ctx, cfg, opts, stdin, stdout, loggerInstance.Named("live"))
		return report(ctx, loggerInstance, cmd, err)
	case "scores":
		opts, err := parseScoresArgs(rest, cfg, stderr)
		if err != nil {
			return exitUsage
		}
		err = runScores(ctx, cfg, opts, loggerInstance.Named("scores"))
		return report(ctx, loggerInstance, cmd, err)
	case "cameras":
		return report(ctx, loggerInstance, cmd, runCameras(cfg, stdout))
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s", cmd, usage)
		return exitUsage
	}
}

func report(ctx context.Context, l logger.Logger, cmd string, err error) int {
	if err != nil {
		l.Error(ctx, "command failed", logger.String("command", cmd), logger.Error(err))
		return exitError
	}
	return exitOK
}
