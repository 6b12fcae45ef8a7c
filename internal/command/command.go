// Package command parses operator commands typed on the console or sent
// through the Telegram bot.
package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind identifies an operator command.
type Kind int

// Supported commands.
const (
	Stop Kind = iota + 1
	Status
	Clear
	Watch
	Unwatch
	Help
)

func (k Kind) String() string {
	switch k {
	case Stop:
		return "stop"
	case Status:
		return "status"
	case Clear:
		return "clear"
	case Watch:
		return "watch"
	case Unwatch:
		return "unwatch"
	case Help:
		return "help"
	default:
		return "unknown"
	}
}

// ErrEmpty is returned by Parse for blank lines.
var ErrEmpty = errors.New("empty command")

// Command is a parsed operator command. Reply, when set, receives the
// loop's answer in addition to the console status line.
type Command struct {
	Kind  Kind
	ID    int64
	Reply func(text string)
}

// HelpText lists the commands understood by Parse.
const HelpText = `Commands:
  q, quit, stop   stop monitoring
  status          show monitor status
  clear           forget notified listings
  watch <id>      start watching a listing
  unwatch <id>    stop watching a listing
  help            show this help`

// Parse parses a single command line. A leading "/" is accepted so the same
// parser serves bot commands. Bot-style "@botname" suffixes are stripped.
func Parse(line string) (Command, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return Command{}, ErrEmpty
	}

	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	args := fields[1:]

	switch name {
	case "q", "quit", "stop":
		return Command{Kind: Stop}, nil
	case "status":
		return Command{Kind: Status}, nil
	case "clear":
		return Command{Kind: Clear}, nil
	case "help", "start":
		return Command{Kind: Help}, nil
	case "watch", "unwatch":
		kind := Watch
		if name == "unwatch" {
			kind = Unwatch
		}
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: %s <listing id>", name)
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return Command{}, fmt.Errorf("invalid listing id %q", args[0])
		}
		return Command{Kind: kind, ID: id}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q, type help for a list", fields[0])
	}
}

// Listen reads commands line by line from r until EOF, ctx cancellation or a
// stop command. Stop invokes stop instead of being forwarded; everything else
// is sent to out. Lines that fail to parse are passed to invalid.
func Listen(ctx context.Context, r io.Reader, out chan<- Command, stop func(), invalid func(error)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmd, err := Parse(sc.Text())
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			if invalid != nil {
				invalid(err)
			}
			continue
		}
		if cmd.Kind == Stop {
			stop()
			return nil
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}
