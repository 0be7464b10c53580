//go:build !unix

package signals

import "os"

// abruptSignals is empty on platforms with no SIGUSR1 equivalent (e.g.
// Windows); Shutdown is then only reachable programmatically.
func abruptSignals() []os.Signal {
	return nil
}

func isAbruptSignal(sig os.Signal) bool {
	return false
}
