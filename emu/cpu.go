// Package emu provides the R3000A CPU execution engine and its
// system-control coprocessor.
//
// The engine owns the architectural state and the step loop: fetch,
// exception check, pipeline advance and dispatch. Opcode semantics live
// behind the Executor interface; memory behind the Bus interface. DMA
// shares the bus and preempts instruction execution while active.
package emu

import (
	"github.com/sarchlab/psxsim/dma"
	"github.com/sarchlab/psxsim/insts"
	"github.com/sarchlab/psxsim/irq"
	"github.com/sarchlab/psxsim/timing/cache"
	"github.com/sarchlab/psxsim/timing/counter"
)

// ResetPC is the ROM entry point the CPU starts executing from.
const ResetPC = 0xbfc00000

// Bus is the memory and peripheral access consumed by the CPU. It
// includes everything the DMA engine needs so the CPU can hand it the
// bus while a transfer preempts execution.
type Bus interface {
	dma.Bus

	// Read8 reads a byte.
	Read8(addr uint32) (uint8, error)

	// Read16 reads a 16-bit halfword.
	Read16(addr uint32) (uint16, error)

	// Write16 writes a 16-bit halfword.
	Write16(addr uint32, val uint16) error

	// Write8 writes a byte.
	Write8(addr uint32, val uint8) error

	// Translate maps a CPU virtual address to a physical address.
	Translate(addr uint32) uint32
}

// Executor is the decode/execute collaborator. Given the raw
// instruction word it may mutate registers through the CPU's accessors,
// redirect control flow with Branch (taking effect one instruction
// later), schedule a delayed load with ScheduleLoad, or raise an
// architectural exception with Exception. Errors are reserved for
// fatal faults such as unhandled bus ranges.
type Executor interface {
	Execute(c *CPU, instr insts.Instruction) error
}

// StepResult reports the outcome of a single step.
type StepResult struct {
	// Err is set when the step hit a fatal fault: an unsupported DMA
	// configuration, an unrecognized register offset or an unhandled
	// bus range. Architectural exceptions are never reported here.
	Err error
}

// pendingLoad is the single-slot buffer modeling the one-instruction
// lag before a load's result becomes visible. A second load issued
// before the first commits overwrites it.
type pendingLoad struct {
	reg   uint32
	value uint32
	delay uint16
}

// CPU is the execution engine.
type CPU struct {
	pc        uint32
	nextPC    uint32
	currentPC uint32

	r      [32]uint32
	hi, lo uint32

	cop0 COP0

	branch    bool
	delaySlot bool

	load      pendingLoad
	loadValid bool

	// wrote tracks the register written by the instruction currently
	// dispatching, so an instruction targeting the pending load's
	// register wins over the load.
	wrote int

	bus      Bus
	dma      *dma.Engine
	irqs     irq.Registers
	ctr      *counter.Counter
	executor Executor
	icache   *cache.ICache
}

// CPUOption is a functional option for configuring the CPU.
type CPUOption func(*CPU)

// WithICache attaches an instruction-cache timing model. Fetches from
// cached regions then cost the cache's hit or miss latency instead of
// the flat uncached cost.
func WithICache(ic *cache.ICache) CPUOption {
	return func(c *CPU) {
		c.icache = ic
	}
}

// NewCPU creates a CPU in its reset state: pc at the ROM entry point,
// all registers zero.
func NewCPU(
	b Bus,
	engine *dma.Engine,
	irqs irq.Registers,
	ctr *counter.Counter,
	executor Executor,
	opts ...CPUOption,
) *CPU {
	c := &CPU{
		pc:        ResetPC,
		nextPC:    ResetPC + 4,
		currentPC: ResetPC,
		wrote:     -1,
		bus:       b,
		dma:       engine,
		irqs:      irqs,
		ctr:       ctr,
		executor:  executor,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Step advances emulated time by one unit of work: one instruction, or
// one DMA service sweep if the engine has claimed the bus.
func (c *CPU) Step() StepResult {
	if c.dma.Active() {
		if c.dma.InGap() {
			c.dma.TickGap(c.ctr)

			// a gap blocks the CPU unless chopping lets it interleave
			if !c.dma.ChoppingEnabled() {
				return StepResult{}
			}
		} else {
			count, err := c.dma.Tick(c.bus)
			if err != nil {
				return StepResult{Err: err}
			}
			c.ctr.Tick(count)
			return StepResult{}
		}
	}

	c.currentPC = c.pc

	if c.currentPC&3 != 0 {
		c.Exception(ExcLoadAddressError)
		return StepResult{}
	}

	c.checkIRQs()

	word, err := c.fetchInstruction()
	if err != nil {
		return StepResult{Err: err}
	}

	if c.cop0.InterruptsReady() {
		c.Exception(ExcInterrupt)
		c.CommitDelayedLoad()
		return StepResult{}
	}

	c.delaySlot = c.branch
	c.branch = false

	c.pc = c.nextPC
	c.nextPC += 4

	c.ctr.Tick(1)

	pending, hasPending := c.load, c.loadValid
	c.loadValid = false
	c.wrote = -1

	if err := c.executor.Execute(c, insts.Instruction(word)); err != nil {
		return StepResult{Err: err}
	}

	// the load result lands unless the instruction wrote the register
	// itself
	if hasPending && c.wrote != int(pending.reg) {
		c.setReg(pending.reg, pending.value)
	}

	return StepResult{}
}

// fetchInstruction reads the word at pc. An uncached fetch costs 4 bus
// cycles; with an instruction cache attached, cached-region fetches
// cost the cache's latency instead.
func (c *CPU) fetchInstruction() (uint32, error) {
	if c.icache != nil && c.pc < 0xa0000000 && !c.cop0.CacheIsolated() {
		res := c.icache.Lookup(c.bus.Translate(c.pc))
		c.ctr.Tick(int64(res.Latency))
	} else {
		c.ctr.Tick(4)
	}

	return c.bus.Read32(c.pc, false)
}

// checkIRQs recomputes the hardware-interrupt cause bit from the shared
// interrupt registers.
func (c *CPU) checkIRQs() {
	c.cop0.SetInterrupt(c.irqs.Pending())
}

// Exception redirects control flow to the exception vector. EPC records
// the faulting instruction, or the interrupted pc for a pure external
// interrupt; a fault inside a branch delay slot backs EPC up one
// instruction and sets the cause register's delay flag so the handler
// can return correctly.
func (c *CPU) Exception(cause Cause) {
	addr := c.cop0.EnterException(cause)

	if cause == ExcInterrupt {
		c.cop0.EPC = c.pc
	} else {
		c.cop0.EPC = c.currentPC
	}

	if c.delaySlot {
		c.cop0.EPC -= 4
		c.cop0.Cause |= 1 << 31
	} else {
		c.cop0.Cause &^= 1 << 31
	}

	c.pc = addr
	c.nextPC = addr + 4
}

// Reg reads a general-purpose register.
func (c *CPU) Reg(i uint32) uint32 {
	return c.r[i]
}

// SetReg writes a general-purpose register. Register 0 is hard-wired to
// zero; writes to it are silently discarded.
func (c *CPU) SetReg(i uint32, val uint32) {
	c.wrote = int(i)
	c.setReg(i, val)
}

func (c *CPU) setReg(i uint32, val uint32) {
	if i != 0 {
		c.r[i] = val
	}
}

// ScheduleLoad registers a delayed load. The value becomes visible in
// the target register one instruction later; a load already in the slot
// is overwritten.
func (c *CPU) ScheduleLoad(reg uint32, value uint32, delay uint16) {
	c.load = pendingLoad{reg: reg, value: value, delay: delay}
	c.loadValid = true
}

// CommitDelayedLoad immediately commits the pending load, if any.
func (c *CPU) CommitDelayedLoad() {
	if c.loadValid {
		c.setReg(c.load.reg, c.load.value)
		c.loadValid = false
	}
}

// Branch redirects the to-be-fetched address, taking effect after the
// delay slot executes.
func (c *CPU) Branch(target uint32) {
	c.nextPC = target
	c.branch = true
}

// PC returns the address of the next instruction to fetch. During
// dispatch this is the delay-slot address of the executing instruction.
func (c *CPU) PC() uint32 {
	return c.pc
}

// NextPC returns the address one instruction past PC.
func (c *CPU) NextPC() uint32 {
	return c.nextPC
}

// CurrentPC returns the address of the instruction being executed.
func (c *CPU) CurrentPC() uint32 {
	return c.currentPC
}

// InDelaySlot reports whether the executing instruction sits in a
// branch delay slot.
func (c *CPU) InDelaySlot() bool {
	return c.delaySlot
}

// SetPC redirects execution, clearing any delay-slot state.
func (c *CPU) SetPC(pc uint32) {
	c.pc = pc
	c.nextPC = pc + 4
	c.branch = false
	c.delaySlot = false
}

// Hi returns the multiply/divide high result register.
func (c *CPU) Hi() uint32 { return c.hi }

// SetHi writes the multiply/divide high result register.
func (c *CPU) SetHi(v uint32) { c.hi = v }

// Lo returns the multiply/divide low result register.
func (c *CPU) Lo() uint32 { return c.lo }

// SetLo writes the multiply/divide low result register.
func (c *CPU) SetLo(v uint32) { c.lo = v }

// COP0 returns the system-control coprocessor.
func (c *CPU) COP0() *COP0 {
	return &c.cop0
}

// DMA returns the DMA engine sharing the bus.
func (c *CPU) DMA() *dma.Engine {
	return c.dma
}
