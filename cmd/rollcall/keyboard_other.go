//go:build !linux

package main

import "golang.org/x/term"

// enterCbreak falls back to raw mode where termios is not reachable
// through package syscall
func enterCbreak(fd int) (func(), error) {
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() { term.Restore(fd, old) }, nil
}
