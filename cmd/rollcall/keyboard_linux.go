//go:build linux

package main

import (
	"syscall"
	"unsafe"
)

// enterCbreak disables line buffering and echo while keeping output
// processing, so log lines still end with a carriage return
func enterCbreak(fd int) (func(), error) {
	var old syscall.Termios
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), syscall.TCGETS, uintptr(unsafe.Pointer(&old))); errno != 0 {
		return nil, errno
	}

	cbreak := old
	cbreak.Lflag &^= syscall.ICANON | syscall.ECHO
	cbreak.Cc[syscall.VMIN] = 1
	cbreak.Cc[syscall.VTIME] = 0
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), syscall.TCSETS, uintptr(unsafe.Pointer(&cbreak))); errno != 0 {
		return nil, errno
	}

	return func() {
		syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), syscall.TCSETS, uintptr(unsafe.Pointer(&old)))
	}, nil
}
