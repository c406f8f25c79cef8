package units

import (
	"fmt"
	"strconv"
	"strings"

	dunits "github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/netsim/timing"
)

// ParseError reports a string that does not describe a valid quantity.
type ParseError struct {
	Kind  string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s (%q): %v", e.Kind, e.Input, e.Err)
	}

	return fmt.Sprintf("invalid %s (%q)", e.Kind, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var bitRateUnits = []unit{
	{"kibit", uint64(Kibit)}, {"mibit", uint64(Mibit)},
	{"gibit", uint64(Gibit)}, {"tibit", uint64(Tibit)},
	{"kbit", uint64(Kbit)}, {"mbit", uint64(Mbit)},
	{"gbit", uint64(Gbit)}, {"tbit", uint64(Tbit)},
	{"bit", uint64(BitPerSecond)},
}

var byteUnits = []unit{
	{"kibyte", uint64(Kibyte)}, {"mibyte", uint64(Mibyte)},
	{"gibyte", uint64(Gibyte)}, {"tibyte", uint64(Tibyte)},
	{"kbyte", uint64(Kbyte)}, {"mbyte", uint64(Mbyte)},
	{"gbyte", uint64(Gbyte)}, {"tbyte", uint64(Tbyte)},
	{"byte", uint64(Byte)},
}

var intervalUnits = []unit{
	{"ns", uint64(timing.Nanosecond)},
	{"us", uint64(timing.Microsecond)},
	{"ms", uint64(timing.Millisecond)},
	{"min", uint64(timing.Minute)},
	{"s", uint64(timing.Second)},
	{"h", uint64(timing.Hour)},
}

func parseScaled(kind, input string, units []unit, bareAllowed bool) (uint64, error) {
	value := strings.ToLower(strings.TrimSpace(input))

	for _, u := range units {
		if !strings.HasSuffix(value, u.suffix) {
			continue
		}

		number := strings.TrimSpace(strings.TrimSuffix(value, u.suffix))
		n, err := strconv.ParseUint(number, 10, 64)
		if err != nil {
			return 0, &ParseError{Kind: kind, Input: input, Err: err}
		}

		return saturatingMul(n, u.size), nil
	}

	if bareAllowed {
		n, err := strconv.ParseUint(value, 10, 64)
		if err == nil {
			return n, nil
		}
	}

	return 0, &ParseError{Kind: kind, Input: input}
}

func saturatingMul(a, b uint64) uint64 {
	if a != 0 && b > ^uint64(0)/a {
		return ^uint64(0)
	}

	return a * b
}

// ParseBitRate parses strings such as "100 mbit" or "1 gibit".
func ParseBitRate(s string) (BitRate, error) {
	v, err := parseScaled("bandwidth", s, bitRateUnits, false)
	return BitRate(v), err
}

// ParseBytes parses strings such as "1500 byte", "64 kibyte" or a bare
// number of bytes. Short binary forms such as "64KiB" or "1.5g" are accepted
// as well.
func ParseBytes(s string) (Bytes, error) {
	v, err := parseScaled("bytes unit", s, byteUnits, true)
	if err == nil {
		return Bytes(v), nil
	}

	if short, serr := dunits.RAMInBytes(strings.TrimSpace(s)); serr == nil && short >= 0 {
		return Bytes(short), nil
	}

	return 0, err
}

// ParseInterval parses strings such as "10 ms", "2 min" or "1 h".
func ParseInterval(s string) (timing.SimulationTime, error) {
	v, err := parseScaled("time interval", s, intervalUnits, false)
	return timing.SimulationTime(v), err
}

// ParseFraction parses either a ratio ("0.05") or a percentage ("5%").
func ParseFraction(s string) (Fraction, error) {
	value := strings.TrimSpace(s)

	percent := strings.HasSuffix(value, "%")
	if percent {
		value = strings.TrimSpace(strings.TrimSuffix(value, "%"))
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &ParseError{Kind: "percentage", Input: s, Err: err}
	}

	if percent {
		v /= 100
	}

	f, err := NewFraction(v)
	if err != nil {
		return 0, &ParseError{Kind: "percentage", Input: s, Err: err}
	}

	return f, nil
}

// Interval is a configured time interval.
type Interval timing.SimulationTime

// SimulationTime returns the interval as simulation time.
func (i Interval) SimulationTime() timing.SimulationTime {
	return timing.SimulationTime(i)
}

func (i Interval) String() string {
	return timing.SimulationTime(i).String()
}

// UnmarshalYAML parses an interval string.
func (i *Interval) UnmarshalYAML(value *yaml.Node) error {
	t, err := ParseInterval(value.Value)
	if err != nil {
		return err
	}

	*i = Interval(t)

	return nil
}

// UnmarshalYAML parses a bit-rate string.
func (r *BitRate) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseBitRate(value.Value)
	if err != nil {
		return err
	}

	*r = v

	return nil
}

// UnmarshalYAML parses a byte-count string.
func (b *Bytes) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseBytes(value.Value)
	if err != nil {
		return err
	}

	*b = v

	return nil
}

// UnmarshalYAML parses a ratio or a percentage.
func (f *Fraction) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseFraction(value.Value)
	if err != nil {
		return err
	}

	*f = v

	return nil
}
