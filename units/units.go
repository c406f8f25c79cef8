// Package units provides the strongly typed values that the configuration
// layer hands to the simulator: bit rates, byte counts, fractions and time
// intervals, together with their human-readable string forms.
package units

import (
	"fmt"
	"math"

	dunits "github.com/docker/go-units"
)

// BitRate is a bandwidth in bits per second.
type BitRate uint64

// Decimal and binary bit-rate multiples.
const (
	BitPerSecond BitRate = 1
	Kbit                 = 1000 * BitPerSecond
	Mbit                 = 1000 * Kbit
	Gbit                 = 1000 * Mbit
	Tbit                 = 1000 * Gbit

	Kibit = 1024 * BitPerSecond
	Mibit = 1024 * Kibit
	Gibit = 1024 * Mibit
	Tibit = 1024 * Gibit
)

// BytesPer returns how many whole bytes the rate carries in the given number
// of nanoseconds.
func (r BitRate) BytesPer(nanos uint64) Bytes {
	bits := float64(r) * float64(nanos) / 1e9
	return Bytes(math.Floor(bits / 8))
}

func (r BitRate) String() string {
	return formatScaled(uint64(r), "bit", []unit{
		{"tbit", uint64(Tbit)}, {"gbit", uint64(Gbit)},
		{"mbit", uint64(Mbit)}, {"kbit", uint64(Kbit)},
	})
}

// Bytes is an amount of data in bytes.
type Bytes uint64

// Decimal and binary byte multiples.
const (
	Byte  Bytes = 1
	Kbyte       = 1000 * Byte
	Mbyte       = 1000 * Kbyte
	Gbyte       = 1000 * Mbyte
	Tbyte       = 1000 * Gbyte

	Kibyte = 1024 * Byte
	Mibyte = 1024 * Kibyte
	Gibyte = 1024 * Mibyte
	Tibyte = 1024 * Gibyte
)

func (b Bytes) String() string {
	return formatScaled(uint64(b), "byte", []unit{
		{"tbyte", uint64(Tbyte)}, {"gbyte", uint64(Gbyte)},
		{"mbyte", uint64(Mbyte)}, {"kbyte", uint64(Kbyte)},
	})
}

type unit struct {
	suffix string
	size   uint64
}

func formatScaled(v uint64, base string, scales []unit) string {
	for _, u := range scales {
		if v != 0 && v%u.size == 0 {
			return fmt.Sprintf("%d %s", v/u.size, u.suffix)
		}
	}

	return fmt.Sprintf("%d %s", v, base)
}

// Fraction is a ratio in [0, 1], such as a packet-loss probability.
type Fraction float64

// NewFraction validates v and returns it as a Fraction.
func NewFraction(v float64) (Fraction, error) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, OutOfBoundsError{Lower: 0, Upper: 1, Actual: v}
	}

	return Fraction(v), nil
}

// FractionFromPercent converts a whole percentage in [0, 100].
func FractionFromPercent(percent uint64) (Fraction, error) {
	if percent > 100 {
		return 0, OutOfBoundsError{Lower: 0, Upper: 100, Actual: float64(percent)}
	}

	return Fraction(float64(percent) / 100), nil
}

// Float64 returns the fraction as a plain number.
func (f Fraction) Float64() float64 {
	return float64(f)
}

// Complement returns 1-f.
func (f Fraction) Complement() Fraction {
	return 1 - f
}

func (f Fraction) String() string {
	return fmt.Sprintf("%g%%", float64(f)*100)
}

// OutOfBoundsError reports a value outside of its permitted range.
type OutOfBoundsError struct {
	Lower, Upper float64
	Actual       float64
}

func (e OutOfBoundsError) Error() string {
	return fmt.Sprintf("value `%g` not within bounds `%g..%g`",
		e.Actual, e.Lower, e.Upper)
}

// HumanSize formats b with binary prefixes, such as "1.5MiB".
func (b Bytes) HumanSize() string {
	return dunits.BytesSize(float64(b))
}
