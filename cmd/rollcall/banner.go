package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"
)

// ANSI escape codes
const (
	clearLine = "\033[2K"
	moveUp    = "\033[%dA"
	reset     = "\033[0m"
	yellow    = "\033[33m"
	red       = "\033[31m"
	green     = "\033[32m"
	cyan      = "\033[36m"
	bold      = "\033[1m"
)

const bannerWidth = 62

var logo = []string{
	"          ____       _ _           _ _                   ",
	"         |  _ \\ ___ | | | ___ __ _| | |                  ",
	"         | |_) / _ \\| | |/ __/ _` | | |                  ",
	"         |  _ < (_) | | | (_| (_| | | |                  ",
	"         |_| \\_\\___/|_|_|\\___\\__,_|_|_|                  ",
}

// seatCount is how many seats the check-in animation fills
const seatCount = 12

// showStartupAnimation draws the logo box, then fills a row of seats in
// random order as if attendees were checking in
func showStartupAnimation(w io.Writer, skipSeats bool) {
	border := strings.Repeat("═", bannerWidth)

	fmt.Fprintf(w, "\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		fmt.Fprintf(w, "  %s║%s%s%s║%s\n", cyan, yellow, pad(line, bannerWidth), cyan, reset)
	}
	fmt.Fprintf(w, "  %s╚%s╝%s\n", cyan, border, reset)

	if skipSeats {
		fmt.Fprint(w, "\n")
		return
	}

	// Turn the bottom edge into a divider and draw the seat row under it
	fmt.Fprintf(w, moveUp, 1)
	fmt.Fprintf(w, "%s  %s╠%s╣%s\n", clearLine, cyan, border, reset)

	order := rand.Perm(seatCount)
	filled := make([]bool, seatCount)
	for frame := 0; frame <= seatCount; frame++ {
		if frame > 0 {
			filled[order[frame-1]] = true
			fmt.Fprintf(w, moveUp, 2)
		}
		fmt.Fprintf(w, "%s  %s║%s%s║%s\n", clearLine, cyan, seatRow(filled), cyan, reset)
		fmt.Fprintf(w, "%s  %s╚%s╝%s\n", clearLine, cyan, border, reset)
		if frame < seatCount {
			time.Sleep(60 * time.Millisecond)
		}
	}
	fmt.Fprint(w, "\n")
}

// seatRow renders the seats and a running count, padded to the banner width
func seatRow(filled []bool) string {
	var b strings.Builder
	count := 0
	b.WriteString(" ")
	for _, f := range filled {
		if f {
			count++
			b.WriteString(green + "[x]" + reset)
		} else {
			b.WriteString("[ ]")
		}
	}
	label := fmt.Sprintf("  %2d/%d in", count, len(filled))
	visible := 1 + 3*len(filled) + len(label)
	b.WriteString(label)
	if visible < bannerWidth {
		b.WriteString(strings.Repeat(" ", bannerWidth-visible))
	}
	return b.String()
}

func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
