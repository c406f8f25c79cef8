package timing

import (
	"math"
	"time"
)

// EmulatedTime is an absolute timestamp, in nanoseconds since the Unix epoch,
// presented to simulated code in place of the wall clock.
type EmulatedTime uint64

const (
	// UnixEpoch is 1970-01-01T00:00:00Z.
	UnixEpoch EmulatedTime = 0

	// SimulationStart is the emulated instant at which simulation time is
	// zero, 2000-01-01T00:00:00Z.
	SimulationStart EmulatedTime = 946684800 * EmulatedTime(Second)

	// EmulatedTimeMax is the largest representable emulated time.
	EmulatedTimeMax = EmulatedTime(math.MaxUint64)
)

// FromSimulationTime anchors a simulation time at SimulationStart.
func FromSimulationTime(t SimulationTime) EmulatedTime {
	return SimulationStart.Add(t)
}

// SimulationTime converts the timestamp back to time since
// SimulationStart. Instants before the start map to zero.
func (e EmulatedTime) SimulationTime() SimulationTime {
	return e.DurationSince(SimulationStart)
}

// Add advances the timestamp, saturating at EmulatedTimeMax.
func (e EmulatedTime) Add(d SimulationTime) EmulatedTime {
	if uint64(e) > math.MaxUint64-uint64(d) {
		return EmulatedTimeMax
	}

	return e + EmulatedTime(d)
}

// DurationSince returns e-o, clamped to zero.
func (e EmulatedTime) DurationSince(o EmulatedTime) SimulationTime {
	if o >= e {
		return 0
	}

	return SimulationTime(e - o)
}

// Before reports whether e is strictly earlier than o.
func (e EmulatedTime) Before(o EmulatedTime) bool {
	return e < o
}

// After reports whether e is strictly later than o.
func (e EmulatedTime) After(o EmulatedTime) bool {
	return e > o
}

// Time returns the timestamp as a UTC time.Time.
func (e EmulatedTime) Time() time.Time {
	if e > EmulatedTime(math.MaxInt64) {
		return time.Unix(0, math.MaxInt64).UTC()
	}

	return time.Unix(0, int64(e)).UTC()
}

func (e EmulatedTime) String() string {
	return e.Time().Format(time.RFC3339Nano)
}

// MinEmulated returns the earlier of two timestamps.
func MinEmulated(a, b EmulatedTime) EmulatedTime {
	if a < b {
		return a
	}

	return b
}
