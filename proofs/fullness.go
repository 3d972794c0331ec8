package proofs

import "github.com/storagehub/core/config"

// fullnessTracker is a fixed-size ring buffer of the last BlockFullnessPeriod
// blocks' "not full" classification, backing the spam-detection pause
// (spec §4.D step 4).
type fullnessTracker struct {
	window   []bool
	next     int
	count    int
	notFull  int
}

func newFullnessTracker(period int) *fullnessTracker {
	if period <= 0 {
		period = 1
	}
	return &fullnessTracker{window: make([]bool, period)}
}

// record pushes a block's "not full" classification, evicting the oldest
// entry once the window is full.
func (t *fullnessTracker) record(notFull bool) {
	if t.count == len(t.window) {
		if t.window[t.next] {
			t.notFull--
		}
	} else {
		t.count++
	}
	t.window[t.next] = notFull
	if notFull {
		t.notFull++
	}
	t.next = (t.next + 1) % len(t.window)
}

// shouldPause reports whether fewer than MinNotFullBlocksRatio×period of
// the tracked blocks were not-full.
func (t *fullnessTracker) shouldPause(p *config.Params) bool {
	if t.count < len(t.window) {
		// window not yet full: never pause before there's enough history to
		// judge, matching S6's "30 consecutive blocks" framing where the
		// judgment is only made once a full period has elapsed.
		return false
	}
	threshold := p.MinNotFullBlocksRatio * float64(len(t.window))
	return float64(t.notFull) < threshold
}
