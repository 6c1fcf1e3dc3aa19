package emu

// Cause identifies why an exception was raised. The values are the
// codes written into the cause register's code field.
type Cause uint32

const (
	ExcInterrupt          Cause = 0x0
	ExcLoadAddressError   Cause = 0x4
	ExcStoreAddressError  Cause = 0x5
	ExcSysCall            Cause = 0x8
	ExcBreak              Cause = 0x9
	ExcIllegalInstruction Cause = 0xa
	ExcCoprocessorError   Cause = 0xb
	ExcOverflow           Cause = 0xc
)

// Exception vector addresses, selected by the status register's
// boot-exception-vector bit.
const (
	vectorNormal = 0x80000080
	vectorBoot   = 0xbfc00180
)

// COP0 is the system-control coprocessor: status, cause and
// exception-return registers plus the mode-stack transitions. Pure data
// and transition logic, no I/O.
type COP0 struct {
	// SR is the status register: interrupt-enable/mode stack in bits
	// [5:0], interrupt mask in bits [15:8], cache isolation in bit 16,
	// boot exception vector select in bit 22.
	SR uint32

	// Cause holds the exception code in bits [6:2], pending-interrupt
	// bits in [15:8] and the branch-delay flag in bit 31.
	Cause uint32

	// EPC is the saved return address.
	EPC uint32
}

// BEV reports whether exceptions vector through the boot ROM.
func (c *COP0) BEV() bool {
	return (c.SR>>22)&1 == 1
}

// CacheIsolated reports whether the cache is isolated from main memory.
func (c *COP0) CacheIsolated() bool {
	return c.SR&0x10000 != 0
}

// InterruptsReady reports whether an interrupt should be taken: the
// global enable bit is set and at least one pending interrupt is
// unmasked.
func (c *COP0) InterruptsReady() bool {
	return c.SR&1 == 1 && c.interruptMask() != 0
}

// interruptMask returns the pending-and-unmasked interrupt bits.
func (c *COP0) interruptMask() uint8 {
	return uint8(c.SR>>8) & uint8(c.Cause>>8)
}

// EnterException pushes the 6-bit interrupt-enable/mode stack, records
// the cause code and returns the exception vector address. Pushing the
// stack disables interrupts and enters kernel mode; the third entry is
// discarded.
func (c *COP0) EnterException(cause Cause) uint32 {
	mode := c.SR & 0x3f
	c.SR &^= 0x3f
	c.SR |= (mode << 2) & 0x3f

	c.Cause &^= 0x7c
	c.Cause |= uint32(cause) << 2

	if c.BEV() {
		return vectorBoot
	}
	return vectorNormal
}

// ReturnFromException pops the mode stack, restoring the pre-exception
// interrupt-enable and mode level.
func (c *COP0) ReturnFromException() {
	mode := c.SR & 0x3f
	c.SR &^= 0xf
	c.SR |= mode >> 2
}

// SetInterrupt sets or clears the hardware-interrupt pending bit in the
// cause register.
func (c *COP0) SetInterrupt(active bool) {
	if active {
		c.Cause |= 1 << 10
	} else {
		c.Cause &^= 1 << 10
	}
}

// SetCause writes the software-interrupt bits of the cause register.
// The remaining bits are hardware controlled.
func (c *COP0) SetCause(val uint32) {
	c.Cause &^= 0x300
	c.Cause |= val & 0x300
}
