package review

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether the file descriptor is attached to a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// IsOutputTerminal reports whether stdout is a terminal.
func IsOutputTerminal() bool {
	return IsTTY(os.Stdout.Fd())
}
