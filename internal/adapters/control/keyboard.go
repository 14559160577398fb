// Package control turns keyboard input into control events.
package control

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/okian/kartpos/internal/adapters/mq/queue"
	"github.com/okian/kartpos/pkg/logger"
)

// Publisher accepts control events.
type Publisher interface {
	Publish(ctx context.Context, k queue.Kind, source string) error
}

// Keyboard reads commands line by line: an empty line or a space toggles
// recording, "q" quits. Other input is ignored.
type Keyboard struct {
	in     io.Reader
	pub    Publisher
	logger logger.Logger
}

// NewKeyboard creates a keyboard control source reading from in.
func NewKeyboard(in io.Reader, pub Publisher, l logger.Logger) *Keyboard {
	if l == nil {
		l = logger.Get().Named("keyboard")
	}
	return &Keyboard{in: in, pub: pub, logger: l}
}

// Parse maps one input line to a control event kind.
func Parse(line string) (queue.Kind, bool) {
	switch strings.ToLower(strings.TrimRight(line, "\r\n")) {
	case "", " ", "t", "toggle":
		return queue.Toggle, true
	case "q", "quit":
		return queue.Quit, true
	default:
		return 0, false
	}
}

// Run reads until EOF, a quit command or ctx is done. The read itself
// cannot be interrupted, so a pending line is consumed before Run notices
// cancellation.
func (k *Keyboard) Run(ctx context.Context) error {
	sc := bufio.NewScanner(k.in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		kind, ok := Parse(sc.Text())
		if !ok {
			k.logger.Debug(ctx, "ignored keyboard input", logger.String("input", sc.Text()))
			continue
		}
		if err := k.pub.Publish(ctx, kind, "keyboard"); err != nil {
			if errors.Is(err, queue.ErrClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			k.logger.Warn(ctx, "control event dropped", logger.String("kind", kind.String()), logger.Error(err))
			continue
		}
		if kind == queue.Quit {
			return nil
		}
	}
	return sc.Err()
}
