package notifier

import (
	"testing"
	"time"
)

func TestBackoffPureFailure(t *testing.T) {
	b := NewBackoff(300, 30, 5)
	want := []int{0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 300, 300}

	got := make([]int, 0, len(want))
	got = append(got, int(b.Sleep()/time.Second))
	for i := 1; i < len(want); i++ {
		next := b.Record(0) // every attempt fails instantly, well under threshold
		got = append(got, int(next/time.Second))
	}

	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("s_%d = %d, want %d (full sequence got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}

func TestBackoffPureSuccess(t *testing.T) {
	b := NewBackoff(300, 30, 5)
	// Prime the generator directly to its starting sleep of 300.
	b.sleep = 300

	want := []int{300, 294, 288, 282, 276, 270, 264, 258, 252, 246, 240, 234, 228, 222, 216, 210, 204, 198, 192, 186, 180, 174, 168, 162, 156, 150, 144, 138, 132, 126, 120, 114, 108, 102, 96, 90, 84, 78, 72, 66, 60, 54, 48, 42, 36, 30, 24, 18, 12, 6, 0, 0}

	got := make([]int, 0, len(want))
	got = append(got, int(b.Sleep()/time.Second))
	for i := 1; i < len(want); i++ {
		next := b.Record(30 * time.Second)
		got = append(got, int(next/time.Second))
	}

	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("s_%d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBackoffMonotoneUnderSaturatedFailure(t *testing.T) {
	b := NewBackoff(10, 5, 2)
	prev := 0
	for i := 0; i < 20; i++ {
		next := int(b.Record(0) / time.Second)
		if next < prev && next != b.maxSleep {
			t.Fatalf("iteration %d: sleep decreased under pure failure: %d -> %d", i, prev, next)
		}
		if next > b.maxSleep {
			t.Fatalf("iteration %d: sleep %d exceeded maxSleep %d", i, next, b.maxSleep)
		}
		prev = next
	}
	if prev != b.maxSleep {
		t.Errorf("sequence did not saturate at maxSleep: got %d, want %d", prev, b.maxSleep)
	}
}

func TestBackoffReachesZeroUnderSustainedSuccess(t *testing.T) {
	b := NewBackoff(100, 5, 10)
	b.sleep = 100
	for i := 0; i <= 50; i++ {
		if b.Sleep() == 0 {
			return
		}
		b.Record(20 * time.Second)
	}
	t.Fatal("backoff never reached zero under sustained success")
}
