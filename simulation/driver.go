package simulation

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
)

// SeedSize is the size of the seed buffer every random source derives from.
const SeedSize = 32

// A Driver owns the random source of a run. Every host seed derives from it,
// so a configured seed reproduces the whole run.
type Driver struct {
	seed [SeedSize]byte
	rng  *mrand.Rand
}

// NewDriver creates a driver. A nil seed draws one from the system's entropy
// source.
func NewDriver(seed *uint64) *Driver {
	d := &Driver{}

	if seed != nil {
		binary.LittleEndian.PutUint64(d.seed[:8], *seed)
	} else if _, err := rand.Read(d.seed[:]); err != nil {
		panic(err)
	}

	d.rng = mrand.New(mrand.NewChaCha8(d.seed))

	return d
}

// Seed returns the seed of the run.
func (d *Driver) Seed() [SeedSize]byte {
	return d.seed
}

// NextSeed draws a seed for a derived random source.
func (d *Driver) NextSeed() [SeedSize]byte {
	var s [SeedSize]byte
	for i := 0; i < SeedSize; i += 8 {
		binary.LittleEndian.PutUint64(s[i:], d.rng.Uint64())
	}

	return s
}
