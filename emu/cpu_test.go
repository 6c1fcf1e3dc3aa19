package emu_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/psxsim/dma"
	"github.com/sarchlab/psxsim/emu"
	"github.com/sarchlab/psxsim/insts"
	"github.com/sarchlab/psxsim/irq"
	"github.com/sarchlab/psxsim/timing/cache"
	"github.com/sarchlab/psxsim/timing/counter"
)

func TestEmu(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Emu Suite")
}

// stubBus is a word-granular memory with the standard segment mapping.
// Unwritten words read as zero.
type stubBus struct {
	mem map[uint32]uint32
}

func newStubBus() *stubBus {
	return &stubBus{mem: make(map[uint32]uint32)}
}

var segmentMask = [8]uint32{
	0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff,
	0x7fffffff,
	0x1fffffff,
	0xffffffff, 0xffffffff,
}

func (b *stubBus) Translate(addr uint32) uint32 {
	return addr & segmentMask[addr>>29]
}

func (b *stubBus) Read32(addr uint32, _ bool) (uint32, error) {
	return b.mem[b.Translate(addr)&^3], nil
}

func (b *stubBus) Write32(addr uint32, val uint32) error {
	b.mem[b.Translate(addr)&^3] = val
	return nil
}

func (b *stubBus) Read16(addr uint32) (uint16, error) { return 0, nil }

func (b *stubBus) Read8(addr uint32) (uint8, error) { return 0, nil }

func (b *stubBus) Write16(addr uint32, val uint16) error { return nil }

func (b *stubBus) Write8(addr uint32, val uint8) error { return nil }

func (b *stubBus) GP0(word uint32) {}

// scriptExecutor runs a canned action per dispatched instruction,
// ignoring the instruction word itself.
type scriptExecutor struct {
	steps []func(c *emu.CPU) error
	next  int
}

func (e *scriptExecutor) Execute(c *emu.CPU, _ insts.Instruction) error {
	if e.next >= len(e.steps) {
		return nil
	}
	f := e.steps[e.next]
	e.next++
	return f(c)
}

var _ = Describe("CPU", func() {
	var (
		bus    *stubBus
		irqs   *irq.State
		ctr    *counter.Counter
		engine *dma.Engine
	)

	BeforeEach(func() {
		bus = newStubBus()
		irqs = irq.NewState()
		ctr = counter.New()
		engine = dma.New(irqs)
	})

	newCPU := func(ex emu.Executor, opts ...emu.CPUOption) *emu.CPU {
		return emu.NewCPU(bus, engine, irqs, ctr, ex, opts...)
	}

	It("walks pc through the reset sequence", func() {
		cpu := newCPU(&scriptExecutor{})

		Expect(cpu.Step().Err).ToNot(HaveOccurred())
		Expect(cpu.CurrentPC()).To(Equal(uint32(emu.ResetPC)))
		Expect(cpu.PC()).To(Equal(uint32(emu.ResetPC + 4)))
		Expect(cpu.NextPC()).To(Equal(uint32(emu.ResetPC + 8)))

		Expect(cpu.Step().Err).ToNot(HaveOccurred())
		Expect(cpu.PC()).To(Equal(uint32(emu.ResetPC + 8)))
	})

	It("charges four bus cycles per uncached fetch plus one to execute", func() {
		cpu := newCPU(&scriptExecutor{})

		cpu.Step()
		Expect(ctr.Cycles()).To(Equal(int64(5)))

		cpu.Step()
		Expect(ctr.Cycles()).To(Equal(int64(10)))
	})

	It("faults on a misaligned pc without touching the bus", func() {
		cpu := newCPU(&scriptExecutor{})
		cpu.SetPC(0xbfc00002)

		Expect(cpu.Step().Err).ToNot(HaveOccurred())

		Expect((cpu.COP0().Cause >> 2) & 0x1f).To(Equal(uint32(emu.ExcLoadAddressError)))
		Expect(cpu.COP0().EPC).To(Equal(uint32(0xbfc00002)))
		Expect(cpu.PC()).To(Equal(uint32(0x80000080)))
		Expect(ctr.Cycles()).To(BeZero())
	})

	It("keeps register zero hard-wired even through delayed loads", func() {
		cpu := newCPU(&scriptExecutor{steps: []func(c *emu.CPU) error{
			func(c *emu.CPU) error {
				c.ScheduleLoad(0, 0xdead, 0)
				return nil
			},
		}})

		cpu.Step()
		cpu.Step()

		Expect(cpu.Reg(0)).To(BeZero())
	})

	It("lets the executing instruction win over a pending load", func() {
		cpu := newCPU(&scriptExecutor{steps: []func(c *emu.CPU) error{
			func(c *emu.CPU) error {
				c.ScheduleLoad(7, 0x1111, 0)
				return nil
			},
			func(c *emu.CPU) error {
				c.SetReg(7, 0x2222)
				return nil
			},
		}})

		cpu.Step()
		cpu.Step()

		Expect(cpu.Reg(7)).To(Equal(uint32(0x2222)))
	})

	Context("interrupt delivery", func() {
		deliver := func(cpu *emu.CPU) {
			cpu.COP0().SR = 1 | 1<<10
			irqs.SetMask(1 << irq.LineVBlank)
			irqs.Raise(irq.LineVBlank)
		}

		It("vectors to the handler before executing the fetched instruction", func() {
			executed := false
			cpu := newCPU(&scriptExecutor{steps: []func(c *emu.CPU) error{
				func(c *emu.CPU) error {
					executed = true
					return nil
				},
			}})
			deliver(cpu)

			Expect(cpu.Step().Err).ToNot(HaveOccurred())

			Expect(executed).To(BeFalse())
			Expect(cpu.PC()).To(Equal(uint32(0x80000080)))
			Expect((cpu.COP0().Cause >> 2) & 0x1f).To(Equal(uint32(emu.ExcInterrupt)))
			Expect(cpu.COP0().EPC).To(Equal(uint32(emu.ResetPC)))
		})

		It("commits a pending delayed load on entry", func() {
			cpu := newCPU(&scriptExecutor{})
			cpu.ScheduleLoad(9, 0xabc, 0)
			deliver(cpu)

			cpu.Step()

			Expect(cpu.Reg(9)).To(Equal(uint32(0xabc)))
		})

		It("stays quiet while the line is masked", func() {
			cpu := newCPU(&scriptExecutor{})
			cpu.COP0().SR = 1 | 1<<10
			irqs.Raise(irq.LineVBlank) // mask stays zero

			cpu.Step()

			Expect(cpu.PC()).To(Equal(uint32(emu.ResetPC + 4)))
		})
	})

	Context("with an active DMA engine", func() {
		const (
			masterControl = 0x1f8010f0
			otcBase       = 0x1f8010e0
			otcBlock      = 0x1f8010e4
			otcControl    = 0x1f8010e8
			otcStartArgs  = 0x11000002 // to RAM, decrement, manual, enable, trigger
		)

		startOTCClear := func(base, words uint32) {
			Expect(engine.Write(masterControl, 0xffffffff)).To(Succeed())
			Expect(engine.Write(otcBase, base)).To(Succeed())
			Expect(engine.Write(otcBlock, words)).To(Succeed())
			Expect(engine.Write(otcControl, otcStartArgs)).To(Succeed())
		}

		It("services the transfer instead of executing instructions", func() {
			cpu := newCPU(&scriptExecutor{})
			startOTCClear(0x100, 4)
			Expect(engine.Active()).To(BeTrue())

			// one word moves per sweep, and pc never advances
			for words := 0; words < 3; words++ {
				Expect(cpu.Step().Err).ToNot(HaveOccurred())
				Expect(cpu.PC()).To(Equal(uint32(emu.ResetPC)))
				Expect(engine.Active()).To(BeTrue())
			}

			Expect(cpu.Step().Err).ToNot(HaveOccurred())
			Expect(cpu.PC()).To(Equal(uint32(emu.ResetPC)))
			Expect(engine.Active()).To(BeFalse())
			Expect(ctr.Cycles()).To(Equal(int64(4)))

			// ordering table: each entry links to the previous, the last
			// carries the end marker
			Expect(bus.mem[0x100]).To(Equal(uint32(0xfc)))
			Expect(bus.mem[0xf8]).To(Equal(uint32(0xf4)))
			Expect(bus.mem[0xf4]).To(Equal(uint32(0xffffff)))
		})

		It("resumes instruction execution after completion", func() {
			cpu := newCPU(&scriptExecutor{})
			startOTCClear(0x40, 1)

			cpu.Step()
			Expect(engine.Active()).To(BeFalse())

			cpu.Step()
			Expect(cpu.PC()).To(Equal(uint32(emu.ResetPC + 4)))
		})
	})

	Context("with an instruction cache", func() {
		It("charges miss latency once per line and hit latency after", func() {
			ic := cache.New(cache.DefaultIConfig())
			cpu := newCPU(&scriptExecutor{}, emu.WithICache(ic))
			cpu.SetPC(0x80000100)

			cpu.Step()
			Expect(ctr.Cycles()).To(Equal(int64(4 + 1)))

			cpu.Step()
			Expect(ctr.Cycles()).To(Equal(int64(4 + 1 + 1 + 1)))

			Expect(ic.Stats().Accesses).To(Equal(uint64(2)))
			Expect(ic.Stats().Hits).To(Equal(uint64(1)))
			Expect(ic.Stats().Misses).To(Equal(uint64(1)))
		})

		It("bypasses the cache for uncacheable segment fetches", func() {
			ic := cache.New(cache.DefaultIConfig())
			cpu := newCPU(&scriptExecutor{}, emu.WithICache(ic))

			cpu.Step() // reset pc sits in the uncached BIOS segment

			Expect(ic.Stats().Accesses).To(BeZero())
			Expect(ctr.Cycles()).To(Equal(int64(5)))
		})
	})
})
