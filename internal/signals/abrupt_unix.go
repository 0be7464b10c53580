//go:build unix

package signals

import (
	"os"

	"golang.org/x/sys/unix"
)

// abruptSignals returns SIGUSR1, available on every unix target Go
// supports.
func abruptSignals() []os.Signal {
	return []os.Signal{unix.SIGUSR1}
}

func isAbruptSignal(sig os.Signal) bool {
	return sig == unix.SIGUSR1
}
