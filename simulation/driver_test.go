package simulation

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Driver", func() {
	It("should derive the same seeds from the same seed", func() {
		seed := uint64(7)
		a := NewDriver(&seed)
		b := NewDriver(&seed)

		for i := 0; i < 4; i++ {
			Expect(a.NextSeed()).To(Equal(b.NextSeed()))
		}
	})

	It("should derive different seeds from different seeds", func() {
		s1, s2 := uint64(1), uint64(2)

		Expect(NewDriver(&s1).NextSeed()).NotTo(Equal(NewDriver(&s2).NextSeed()))
	})

	It("should never repeat a derived seed", func() {
		seed := uint64(7)
		d := NewDriver(&seed)

		Expect(d.NextSeed()).NotTo(Equal(d.NextSeed()))
	})

	It("should place the configured seed in the first bytes", func() {
		seed := uint64(0x0102)
		d := NewDriver(&seed)

		s := d.Seed()
		Expect(s[0]).To(Equal(byte(0x02)))
		Expect(s[1]).To(Equal(byte(0x01)))
		Expect(s[8:]).To(Equal(make([]byte, SeedSize-8)))
	})

	It("should draw a seed when none is configured", func() {
		Expect(NewDriver(nil).Seed()).NotTo(Equal([SeedSize]byte{}))
	})
})
