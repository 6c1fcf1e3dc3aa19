package emu

import "github.com/sarchlab/psxsim/dma"

// Memory access helpers for the execute collaborator. Loads return the
// value together with the access duration in cycles so variable bus
// latency can feed the load-delay accounting. Addresses in the DMA
// register window are redirected to the DMA engine.

// Load32 reads a 32-bit word.
func (c *CPU) Load32(addr uint32) (uint32, uint16, error) {
	prev := c.syncAndGetCurrentCycles()

	p := c.bus.Translate(addr)

	var (
		val uint32
		err error
	)
	if p >= dma.WindowStart && p <= dma.WindowEnd {
		val, err = c.dma.Read(p)
	} else {
		val, err = c.bus.Read32(addr, true)
	}

	duration := uint16(c.ctr.Cycles() - prev)
	return val, duration, err
}

// Load16 reads a 16-bit halfword.
func (c *CPU) Load16(addr uint32) (uint16, uint16, error) {
	prev := c.syncAndGetCurrentCycles()

	val, err := c.bus.Read16(addr)

	duration := uint16(c.ctr.Cycles() - prev)
	return val, duration, err
}

// Load8 reads a byte.
func (c *CPU) Load8(addr uint32) (uint8, uint16, error) {
	prev := c.syncAndGetCurrentCycles()

	val, err := c.bus.Read8(addr)

	duration := uint16(c.ctr.Cycles() - prev)
	return val, duration, err
}

// Store32 writes a 32-bit word, routing DMA register window addresses
// to the DMA engine.
func (c *CPU) Store32(addr uint32, val uint32) error {
	p := c.bus.Translate(addr)

	if p >= dma.WindowStart && p <= dma.WindowEnd {
		return c.dma.Write(p, val)
	}
	return c.bus.Write32(addr, val)
}

// Store16 writes a 16-bit halfword.
func (c *CPU) Store16(addr uint32, val uint16) error {
	return c.bus.Write16(addr, val)
}

// Store8 writes a byte.
func (c *CPU) Store8(addr uint32, val uint8) error {
	return c.bus.Write8(addr, val)
}

// syncAndGetCurrentCycles charges bus-access latency around a load and
// returns the cycle count the access started at, so callers can report
// the load's duration.
func (c *CPU) syncAndGetCurrentCycles() int64 {
	if !c.loadValid {
		c.ctr.Tick(2)
	}

	prev := c.ctr.Cycles()

	// completion delay of the load itself
	c.ctr.Tick(2)

	return prev
}
