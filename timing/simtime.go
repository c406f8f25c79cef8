// Package timing defines the simulated clock used by the engine.
package timing

import (
	"math"
	"time"
)

// SimulationTime is the non-negative time elapsed since the simulation
// started, in nanoseconds.
type SimulationTime uint64

// Common durations in simulated time.
const (
	Nanosecond  SimulationTime = 1
	Microsecond                = 1000 * Nanosecond
	Millisecond                = 1000 * Microsecond
	Second                     = 1000 * Millisecond
	Minute                     = 60 * Second
	Hour                       = 60 * Minute
)

// SimulationTimeMax is the largest representable simulation time.
const SimulationTimeMax = SimulationTime(math.MaxUint64)

// FromNanos creates a SimulationTime from nanoseconds.
func FromNanos(nanos uint64) SimulationTime {
	return SimulationTime(nanos)
}

// FromMicros creates a SimulationTime from microseconds.
func FromMicros(micros uint64) SimulationTime {
	return scale(micros, Microsecond)
}

// FromMillis creates a SimulationTime from milliseconds.
func FromMillis(millis uint64) SimulationTime {
	return scale(millis, Millisecond)
}

// FromSeconds creates a SimulationTime from seconds.
func FromSeconds(secs uint64) SimulationTime {
	return scale(secs, Second)
}

// FromDuration converts a wall-clock duration. Negative durations become
// zero.
func FromDuration(d time.Duration) SimulationTime {
	if d < 0 {
		return 0
	}

	return SimulationTime(d)
}

func scale(v uint64, unit SimulationTime) SimulationTime {
	if v != 0 && uint64(unit) > math.MaxUint64/v {
		return SimulationTimeMax
	}

	return SimulationTime(v) * unit
}

// Nanos returns the time in nanoseconds.
func (t SimulationTime) Nanos() uint64 {
	return uint64(t)
}

// Add returns t+o, saturating at SimulationTimeMax.
func (t SimulationTime) Add(o SimulationTime) SimulationTime {
	if t > SimulationTimeMax-o {
		return SimulationTimeMax
	}

	return t + o
}

// Sub returns t-o, clamped to zero.
func (t SimulationTime) Sub(o SimulationTime) SimulationTime {
	if o >= t {
		return 0
	}

	return t - o
}

// Rem returns t modulo o. A zero modulus yields zero.
func (t SimulationTime) Rem(o SimulationTime) SimulationTime {
	if o == 0 {
		return 0
	}

	return t % o
}

// Duration converts the time into a wall-clock duration, saturating at the
// largest time.Duration.
func (t SimulationTime) Duration() time.Duration {
	if t > SimulationTime(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(t)
}

// Seconds returns the time as floating point seconds.
func (t SimulationTime) Seconds() float64 {
	return float64(t) / float64(Second)
}

func (t SimulationTime) String() string {
	return t.Duration().String()
}

// MinTime returns the smaller of two times.
func MinTime(a, b SimulationTime) SimulationTime {
	if a < b {
		return a
	}

	return b
}

// MaxTime returns the larger of two times.
func MaxTime(a, b SimulationTime) SimulationTime {
	if a > b {
		return a
	}

	return b
}
