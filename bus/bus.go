// Package bus provides the memory bus: BIOS ROM, main RAM, address
// translation and the memory-mapped peripheral register windows the
// core needs. Devices not modeled elsewhere fault loudly instead of
// returning garbage.
package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/psxsim/gpu"
	"github.com/sarchlab/psxsim/irq"
	"github.com/sarchlab/psxsim/timing/counter"
)

const (
	// RAMSize is the 2MB of main memory.
	RAMSize = 2 * 1024 * 1024

	// BIOSSize is the 512KB BIOS ROM.
	BIOSSize = 512 * 1024

	// BIOSStart is the physical base of the BIOS ROM.
	BIOSStart = 0x1fc00000

	// Interrupt register window.
	irqStatusAddr = 0x1f801070
	irqMaskAddr   = 0x1f801074

	// GPU register window.
	gp0Addr     = 0x1f801810
	gpuStatAddr = 0x1f801814
)

// regionMask maps the top three address bits to the mask that strips
// the segment bits: KUSEG and KSEG2 pass through, KSEG0 strips bit 31,
// KSEG1 strips bits 31:29.
var regionMask = [8]uint32{
	0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, // KUSEG: 2048MB
	0x7fffffff, // KSEG0: 512MB
	0x1fffffff, // KSEG1: 512MB
	0xffffffff, 0xffffffff, // KSEG2: 1024MB
}

// TranslateAddress maps a CPU virtual address to its physical address.
func TranslateAddress(addr uint32) uint32 {
	return addr & regionMask[addr>>29]
}

// Bus connects the CPU and DMA engine to memory and peripherals. The
// cycle counter is shared by reference with every device on the bus.
type Bus struct {
	bios []byte
	ram  []byte

	gpu     *gpu.GPU
	irqs    irq.Registers
	counter *counter.Counter
}

// New creates a bus with the given BIOS image. Short images are
// rejected; oversized ones are truncated to the ROM window.
func New(bios []byte, g *gpu.GPU, irqs irq.Registers, ctr *counter.Counter) (*Bus, error) {
	if len(bios) < BIOSSize {
		return nil, fmt.Errorf("bus: BIOS image is %d bytes, want at least %d",
			len(bios), BIOSSize)
	}

	return &Bus{
		bios:    bios[:BIOSSize],
		ram:     make([]byte, RAMSize),
		gpu:     g,
		irqs:    irqs,
		counter: ctr,
	}, nil
}

// Translate maps a CPU virtual address to its physical address.
func (b *Bus) Translate(addr uint32) uint32 {
	return TranslateAddress(addr)
}

// Counter returns the shared cycle counter.
func (b *Bus) Counter() *counter.Counter {
	return b.counter
}

// GP0 pushes one command word into the GPU.
func (b *Bus) GP0(word uint32) {
	b.gpu.GP0(word)
}

// Read32 reads a 32-bit word from the given address.
func (b *Bus) Read32(addr uint32, sideEffects bool) (uint32, error) {
	p := TranslateAddress(addr)

	switch {
	case p < RAMSize:
		return binary.LittleEndian.Uint32(b.ram[p:]), nil
	case p >= BIOSStart && p < BIOSStart+BIOSSize:
		return binary.LittleEndian.Uint32(b.bios[p-BIOSStart:]), nil
	case p == irqStatusAddr:
		return uint32(b.irqs.Status()), nil
	case p == irqMaskAddr:
		return uint32(b.irqs.Mask()), nil
	case p == gpuStatAddr:
		return b.gpu.StatValue(), nil
	case p == gp0Addr:
		// GPUREAD is not modeled; reads return zero
		return 0, nil
	default:
		return 0, fmt.Errorf("bus: unhandled 32-bit read at 0x%08x", addr)
	}
}

// Read16 reads a 16-bit halfword from the given address.
func (b *Bus) Read16(addr uint32) (uint16, error) {
	p := TranslateAddress(addr)

	switch {
	case p < RAMSize:
		return binary.LittleEndian.Uint16(b.ram[p:]), nil
	case p >= BIOSStart && p < BIOSStart+BIOSSize:
		return binary.LittleEndian.Uint16(b.bios[p-BIOSStart:]), nil
	case p == irqStatusAddr:
		return b.irqs.Status(), nil
	case p == irqMaskAddr:
		return b.irqs.Mask(), nil
	default:
		return 0, fmt.Errorf("bus: unhandled 16-bit read at 0x%08x", addr)
	}
}

// Read8 reads a byte from the given address.
func (b *Bus) Read8(addr uint32) (uint8, error) {
	p := TranslateAddress(addr)

	switch {
	case p < RAMSize:
		return b.ram[p], nil
	case p >= BIOSStart && p < BIOSStart+BIOSSize:
		return b.bios[p-BIOSStart], nil
	default:
		return 0, fmt.Errorf("bus: unhandled 8-bit read at 0x%08x", addr)
	}
}

// Write32 writes a 32-bit word to the given address.
func (b *Bus) Write32(addr uint32, val uint32) error {
	p := TranslateAddress(addr)

	switch {
	case p < RAMSize:
		binary.LittleEndian.PutUint32(b.ram[p:], val)
		return nil
	case p == irqStatusAddr:
		b.irqs.Acknowledge(uint16(val))
		return nil
	case p == irqMaskAddr:
		b.irqs.SetMask(uint16(val))
		return nil
	case p == gp0Addr:
		b.gpu.GP0(val)
		return nil
	default:
		return fmt.Errorf("bus: unhandled 32-bit write at 0x%08x", addr)
	}
}

// Write16 writes a 16-bit halfword to the given address.
func (b *Bus) Write16(addr uint32, val uint16) error {
	p := TranslateAddress(addr)

	switch {
	case p < RAMSize:
		binary.LittleEndian.PutUint16(b.ram[p:], val)
		return nil
	case p == irqStatusAddr:
		b.irqs.Acknowledge(val)
		return nil
	case p == irqMaskAddr:
		b.irqs.SetMask(val)
		return nil
	default:
		return fmt.Errorf("bus: unhandled 16-bit write at 0x%08x", addr)
	}
}

// Write8 writes a byte to the given address.
func (b *Bus) Write8(addr uint32, val uint8) error {
	p := TranslateAddress(addr)

	switch {
	case p < RAMSize:
		b.ram[p] = val
		return nil
	default:
		return fmt.Errorf("bus: unhandled 8-bit write at 0x%08x", addr)
	}
}
