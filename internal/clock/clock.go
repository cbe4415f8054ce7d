// Package clock supplies the monotonic time source behind Core's
// GetTimeTicksNow, kept separate so tests can substitute a fake source
// without touching wall-clock time.
package clock

import "time"

// Source returns a monotonic timestamp in microseconds since an unspecified
// epoch, matching MojoTimeTicks units.
type Source interface {
	NowMicros() int64
}

// System is the real Source, backed by time.Now's monotonic reading.
type System struct{ start time.Time }

// NewSystem returns a System anchored to the current instant.
func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) NowMicros() int64 {
	return time.Since(s.start).Microseconds()
}
