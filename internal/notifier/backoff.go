package notifier

import "time"

// Backoff is the reconnect backoff generator from spec §4.4: exponential
// growth on failure, linear decay on success, wrapped around the
// notifier's own connect loop rather than any generic retry library, since
// its decay rule (scaled by actual connection lifetime) has no off-the-shelf
// equivalent.
//
// The zero sleep is implicit: a freshly constructed Backoff imposes no
// wait before the first connection attempt. Record is called once the
// attempt has ended, with how long it lasted, and returns how long to
// sleep before the next attempt.
type Backoff struct {
	maxSleep  int
	threshold int
	recover   int

	sleep int
}

// NewBackoff constructs a Backoff with the three scenario parameters:
// maxSleep is the hard cap in seconds, threshold is the minimum
// connection lifetime in seconds to count as a success, and recover is
// the linear-decay divisor.
func NewBackoff(maxSleep, threshold, recover int) *Backoff {
	return &Backoff{maxSleep: maxSleep, threshold: threshold, recover: recover}
}

// Record reports that the most recent connection attempt lasted elapsed,
// updates the generator's internal state accordingly, and returns the
// duration to sleep before the next attempt.
func (b *Backoff) Record(elapsed time.Duration) time.Duration {
	elapsedSec := int(elapsed / time.Second)

	var next int
	if elapsedSec < b.threshold {
		next = b.sleep * 2
		if next < 1 {
			next = 1
		}
		if next > b.maxSleep {
			next = b.maxSleep
		}
	} else {
		next = b.sleep - elapsedSec/b.recover
		if next < 0 {
			next = 0
		}
	}

	b.sleep = next
	return time.Duration(next) * time.Second
}

// Sleep returns the currently pending sleep duration without recording a
// new attempt. Used only for introspection/tests.
func (b *Backoff) Sleep() time.Duration {
	return time.Duration(b.sleep) * time.Second
}
