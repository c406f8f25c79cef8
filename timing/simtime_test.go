package timing

import (
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SimulationTime", func() {
	It("should convert between units", func() {
		Expect(FromMicros(3)).To(Equal(3 * Microsecond))
		Expect(FromMillis(2)).To(Equal(2_000_000 * Nanosecond))
		Expect(FromSeconds(1)).To(Equal(Second))
		Expect(FromDuration(5 * time.Millisecond)).To(Equal(5 * Millisecond))
		Expect(FromDuration(-time.Second)).To(Equal(SimulationTime(0)))
		Expect(FromMillis(7).Duration()).To(Equal(7 * time.Millisecond))
	})

	It("should saturate on overflow", func() {
		Expect(FromSeconds(1 << 62)).To(Equal(SimulationTimeMax))
		Expect(SimulationTimeMax.Add(Second)).To(Equal(SimulationTimeMax))
	})

	It("should clamp subtraction at zero", func() {
		Expect(Millisecond.Sub(Second)).To(Equal(SimulationTime(0)))
		Expect(Second.Sub(Millisecond)).To(Equal(999 * Millisecond))
	})

	It("should compute the remainder", func() {
		Expect(FromMicros(2500).Rem(Millisecond)).To(Equal(500 * Microsecond))
		Expect(Second.Rem(Millisecond)).To(Equal(SimulationTime(0)))
		Expect(Second.Rem(0)).To(Equal(SimulationTime(0)))
	})

	It("should keep the addition and remainder algebra", func() {
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 1000; i++ {
			a := SimulationTime(rng.Uint64() >> 2)
			b := SimulationTime(rng.Uint64() >> 2)

			Expect(a.Add(b).Sub(b)).To(Equal(a))
			if b > 0 {
				Expect(a.Rem(b)).To(BeNumerically("<", b))
			}
		}
	})

	It("should align to a grid", func() {
		interval := Millisecond
		started := FromMicros(300)
		now := FromMicros(4750)

		next := interval - now.Sub(started).Rem(interval)

		Expect(next).To(Equal(550 * Microsecond))
		Expect(now.Add(next).Sub(started).Rem(interval)).
			To(Equal(SimulationTime(0)))
	})
})

var _ = Describe("EmulatedTime", func() {
	It("should start at the year 2000", func() {
		Expect(SimulationStart.Time()).
			To(Equal(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))
		Expect(UnixEpoch.Time()).To(Equal(time.Unix(0, 0).UTC()))
	})

	It("should convert to and from simulation time", func() {
		t := 42 * Second
		e := FromSimulationTime(t)

		Expect(e).To(Equal(SimulationStart + EmulatedTime(42*Second)))
		Expect(e.SimulationTime()).To(Equal(t))
		Expect(UnixEpoch.SimulationTime()).To(Equal(SimulationTime(0)))
	})

	It("should order timestamps", func() {
		a := FromSimulationTime(Second)
		b := a.Add(Nanosecond)

		Expect(a.Before(b)).To(BeTrue())
		Expect(b.After(a)).To(BeTrue())
		Expect(b.DurationSince(a)).To(Equal(Nanosecond))
		Expect(a.DurationSince(b)).To(Equal(SimulationTime(0)))
		Expect(MinEmulated(a, b)).To(Equal(a))
		Expect(EmulatedTimeMax.Add(Second)).To(Equal(EmulatedTimeMax))
	})
})
