package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/abrezinsky/rollcall/internal/logger"
)

// console maps single key presses to server actions
type console struct {
	log       logger.Logger
	out       io.Writer
	dashboard func() string
	open      func(string) error
}

// listen reads keys from in until a quit key. Line buffering and echo are
// switched off on fd while listening.
func (c *console) listen(fd int, in io.Reader, quit chan<- struct{}) {
	restore, err := enterCbreak(fd)
	if err != nil {
		// Can't get terminal state, silently return
		return
	}
	defer restore()

	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if err == io.EOF {
			return
		}
		if err != nil || n == 0 {
			continue
		}
		if c.handleKey(buf[0]) {
			fmt.Fprintf(c.out, "%sShutting down server...%s\n", yellow, reset)
			quit <- struct{}{}
			return
		}
	}
}

// handleKey performs the action bound to key and reports whether the
// server should stop
func (c *console) handleKey(key byte) bool {
	switch key {
	case 'a', 'A':
		url := c.dashboard()
		fmt.Fprintf(c.out, "%sOpening dashboard in browser...%s\n", cyan, reset)
		if err := c.open(url); err != nil {
			fmt.Fprintf(c.out, "%sError opening browser: %v%s\n", red, err, reset)
		}
	case 'h', 'H':
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			fmt.Fprintf(c.out, "%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			fmt.Fprintf(c.out, "%sHTTP logging enabled%s\n", green, reset)
		}
	case 'l', 'L':
		next := nextLogLevel(c.log.GetLevel())
		c.log.SetLevel(next)
		fmt.Fprintf(c.out, "%sLog level: %s%s%s\n", green, yellow, levelName(next), reset)
	case '?':
		printKeyboardHelp(c.out)
	case 'q', 'Q', 0x03: // Ctrl+C
		return true
	}
	return false
}

// nextLogLevel cycles through debug -> info -> warn -> error
func nextLogLevel(current slog.Level) slog.Level {
	switch current {
	case slog.LevelDebug:
		return slog.LevelInfo
	case slog.LevelInfo:
		return slog.LevelWarn
	case slog.LevelWarn:
		return slog.LevelError
	case slog.LevelError:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func levelName(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp(w io.Writer) {
	fmt.Fprintf(w, "\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Fprintf(w, "    %sa%s      - Open organizer dashboard in browser\n", cyan, reset)
	fmt.Fprintf(w, "    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Fprintf(w, "    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Fprintf(w, "    %sq%s      - Quit server\n", cyan, reset)
	fmt.Fprintf(w, "    %s?%s      - Show this help\n\n", cyan, reset)
}
