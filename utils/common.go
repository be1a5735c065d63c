package utils

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

func TimeTrack(start time.Time, name string) {
	log.Debugf("%s took %s", name, time.Since(start))
}

func VerbosePrint(format string, a ...interface{}) (n int, err error) {
	if Opts().Verbose() {
		return fmt.Printf(format, a...)
	}
	return 0, nil
}

// Timer accumulates the time spent in repeated invocations of some phase.
type Timer struct {
	total   time.Duration
	max     time.Duration
	count   int
	started time.Time
}

func (t *Timer) Start() {
	t.started = time.Now()
}

func (t *Timer) Stop() {
	if t.started.IsZero() {
		return
	}

	d := time.Since(t.started)
	t.total += d
	if d > t.max {
		t.max = d
	}
	t.count++
	t.started = time.Time{}
}

// Measure runs the given function while the timer is running.
func (t *Timer) Measure(do func()) {
	t.Start()
	defer t.Stop()
	do()
}

func (t *Timer) Count() int {
	return t.count
}

func (t *Timer) String() string {
	if t.count == 0 {
		return "0s"
	}
	return fmt.Sprintf("%s (max: %s, count: %d)", t.total, t.max, t.count)
}

// Percent formats a ratio as a percentage with two decimals.
// A zero denominator yields 0.
func Percent(num, den int) string {
	if den == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(num)/float64(den)*100)
}
