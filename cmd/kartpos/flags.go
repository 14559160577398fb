package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/okian/kartpos/internal/config"
)

// promptVideoPort asks for the video port on stdin.
const promptVideoPort = -1

type liveOptions struct {
	videoPort int
}

type scoresOptions struct {
	dir      string
	players  []string
	workbook string
	saveCopy bool
	header   bool
}

func parseLiveArgs(args []string, cfg *config.Config, stderr io.Writer) (liveOptions, error) {
	fs := flag.NewFlagSet("live", flag.ContinueOnError)
	fs.SetOutput(stderr)
	videoPort := fs.Int("video-port", cfg.VideoPort, "Capture device index of the video source; -1 lists the active ports and asks for one")
	if err := fs.Parse(args); err != nil {
		return liveOptions{}, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return liveOptions{}, errUsage
	}
	if *videoPort < promptVideoPort {
		_, _ = fmt.Fprintf(stderr, "invalid video port %d\n", *videoPort)
		return liveOptions{}, errUsage
	}
	return liveOptions{videoPort: *videoPort}, nil
}

func parseScoresArgs(args []string, cfg *config.Config, stderr io.Writer) (scoresOptions, error) {
	fs := flag.NewFlagSet("scores", flag.ContinueOnError)
	fs.SetOutput(stderr)
	workbook := fs.String("workbook", cfg.WorkbookPath, "Results sheet to append rows to")
	saveCopy := fs.Bool("save-copy", false, "Write the sheet next to the original with a _copy suffix")
	header := fs.Bool("header", true, "Write a header row with the player names first; -header=false to skip it")
	if err := fs.Parse(args); err != nil {
		return scoresOptions{}, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() < 2 {
		_, _ = fmt.Fprintln(stderr, "scores needs an image directory and at least one player")
		return scoresOptions{}, errUsage
	}
	return scoresOptions{
		dir:      fs.Arg(0),
		players:  fs.Args()[1:],
		workbook: *workbook,
		saveCopy: *saveCopy,
		header:   *header,
	}, nil
}
