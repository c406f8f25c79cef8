package apps

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/netsim/timing"
)

var _ = Describe("message", func() {
	It("should survive encoding", func() {
		m := message{
			kind:    echoReply,
			process: 3,
			seq:     9,
			sent:    timing.SimulationStart.Add(timing.Second),
		}

		decoded, err := decodeMessage(m.encode())

		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(m))
	})

	It("should reject foreign payloads", func() {
		_, err := decodeMessage([]byte("hello"))
		Expect(err).To(HaveOccurred())

		b := message{kind: echoRequest}.encode()
		b[0] = 7
		_, err = decodeMessage(b)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("parsePingArgs", func() {
	It("should apply defaults", func() {
		o, err := parsePingArgs([]string{"server"})

		Expect(err).NotTo(HaveOccurred())
		Expect(o).To(Equal(PingOptions{
			Target:   "server",
			Count:    DefaultPingCount,
			Size:     DefaultPingSize,
			Interval: DefaultPingInterval,
		}))
	})

	It("should parse every argument", func() {
		o, err := parsePingArgs([]string{"server", "2", "1 kibyte", "50 ms"})

		Expect(err).NotTo(HaveOccurred())
		Expect(o.Count).To(Equal(2))
		Expect(o.Size).To(BeEquivalentTo(1024))
		Expect(o.Interval).To(Equal(50 * timing.Millisecond))
	})

	DescribeTable("should reject bad arguments",
		func(args []string) {
			_, err := parsePingArgs(args)
			Expect(err).To(HaveOccurred())
		},
		Entry("no target", []string{}),
		Entry("zero count", []string{"server", "0"}),
		Entry("bad size", []string{"server", "1", "lots"}),
		Entry("zero interval", []string{"server", "1", "64 byte", "0 ms"}),
		Entry("too many", []string{"server", "1", "64 byte", "1 ms", "x"}),
	)
})
