package bus_test

import (
	"encoding/binary"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/psxsim/bus"
	"github.com/sarchlab/psxsim/gpu"
	"github.com/sarchlab/psxsim/irq"
	"github.com/sarchlab/psxsim/timing/counter"
)

func TestBus(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bus Suite")
}

var _ = Describe("TranslateAddress", func() {
	It("strips the segment bits of each region", func() {
		Expect(bus.TranslateAddress(0x00001234)).To(Equal(uint32(0x00001234)))
		Expect(bus.TranslateAddress(0x80001234)).To(Equal(uint32(0x00001234)))
		Expect(bus.TranslateAddress(0xa0001234)).To(Equal(uint32(0x00001234)))
		Expect(bus.TranslateAddress(0xbfc00000)).To(Equal(uint32(0x1fc00000)))
		Expect(bus.TranslateAddress(0xfffe0130)).To(Equal(uint32(0xfffe0130)))
	})
})

var _ = Describe("Bus", func() {
	var (
		b    *bus.Bus
		g    *gpu.GPU
		irqs *irq.State
		bios []byte
	)

	BeforeEach(func() {
		bios = make([]byte, bus.BIOSSize)
		binary.LittleEndian.PutUint32(bios, 0x3c080013) // first ROM word

		g = gpu.New()
		irqs = irq.NewState()

		var err error
		b, err = bus.New(bios, g, irqs, counter.New())
		Expect(err).ToNot(HaveOccurred())
	})

	It("rejects a truncated BIOS image", func() {
		_, err := bus.New(make([]byte, 16), g, irqs, counter.New())
		Expect(err).To(MatchError(ContainSubstring("BIOS image")))
	})

	It("reads the BIOS through every segment", func() {
		for _, addr := range []uint32{0x1fc00000, 0x9fc00000, 0xbfc00000} {
			v, err := b.Read32(addr, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(uint32(0x3c080013)))
		}
	})

	It("refuses writes to the BIOS ROM", func() {
		Expect(b.Write32(0xbfc00000, 0)).To(HaveOccurred())
	})

	It("round-trips RAM at every access width", func() {
		Expect(b.Write32(0x80000100, 0x01020304)).To(Succeed())

		v32, err := b.Read32(0x00000100, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(v32).To(Equal(uint32(0x01020304)))

		v16, err := b.Read16(0xa0000102)
		Expect(err).ToNot(HaveOccurred())
		Expect(v16).To(Equal(uint16(0x0102)))

		v8, err := b.Read8(0x80000103)
		Expect(err).ToNot(HaveOccurred())
		Expect(v8).To(Equal(uint8(0x01)))

		Expect(b.Write8(0x80000100, 0xff)).To(Succeed())
		v32, err = b.Read32(0x00000100, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(v32).To(Equal(uint32(0x010203ff)))
	})

	It("exposes the interrupt registers with write-1-to-acknowledge status", func() {
		irqs.Raise(irq.LineVBlank)
		irqs.Raise(irq.LineDMA)

		Expect(b.Write32(0x1f801074, 0xff)).To(Succeed())
		mask, err := b.Read32(0x1f801074, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(mask).To(Equal(uint32(0xff)))

		status, err := b.Read32(0x1f801070, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(uint32(1<<irq.LineVBlank | 1<<irq.LineDMA)))

		// keep only the DMA line pending
		Expect(b.Write32(0x1f801070, 1<<irq.LineDMA)).To(Succeed())
		status, err = b.Read32(0x1f801070, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(uint32(1 << irq.LineDMA)))
	})

	It("routes GP0 writes to the GPU", func() {
		Expect(b.Write32(0x1f801810, 0xe1000123)).To(Succeed())
		Expect(g.WordsReceived()).To(Equal(uint64(1)))
	})

	It("reads GPUSTAT with the ready bits set", func() {
		v, err := b.Read32(0x1f801814, true)
		Expect(err).ToNot(HaveOccurred())

		// receive-command, send-vram and receive-dma-block ready
		Expect(v & (0b111 << 26)).To(Equal(uint32(0b111 << 26)))
	})

	It("faults on unmapped addresses", func() {
		_, err := b.Read32(0x1f900000, true)
		Expect(err).To(MatchError(ContainSubstring("unhandled 32-bit read")))

		Expect(b.Write16(0x1f802000, 0)).
			To(MatchError(ContainSubstring("unhandled 16-bit write")))
	})
})
