// Package dma implements the seven-channel DMA engine.
//
// While any channel is active the engine owns the bus: the CPU step loop
// gives it first refusal, and instruction execution resumes only once
// every channel is idle or merely counting down a gap with chopping
// enabled. Cycle costs are accumulated per sweep and folded into the
// shared counter by the caller.
package dma

import (
	"fmt"

	"github.com/sarchlab/psxsim/irq"
	"github.com/sarchlab/psxsim/timing/counter"
)

// Register window occupied by the engine in the physical address map.
const (
	WindowStart = 0x1f801080
	WindowEnd   = 0x1f8010ff
)

// Bus is the memory and peripheral access the engine performs transfers
// through.
type Bus interface {
	// Read32 reads a 32-bit word. sideEffects is false for DMA accesses,
	// which must not trigger device read side effects.
	Read32(addr uint32, sideEffects bool) (uint32, error)

	// Write32 writes a 32-bit word.
	Write32(addr uint32, val uint32) error

	// GP0 pushes one command word into the GPU.
	GP0(word uint32)
}

// Engine owns the seven channels and the master control and interrupt
// registers.
type Engine struct {
	control   uint32
	interrupt Interrupt
	channels  [7]*Channel

	// activeCount folds per-channel cycle costs into one counter tick
	// per sweep.
	activeCount int64

	irqs irq.Registers
}

// New returns an engine in its reset state with all channels idle.
func New(irqs irq.Registers) *Engine {
	e := &Engine{
		// reset value of the master control register
		control: 0x07654321,
		irqs:    irqs,
	}
	for i := range e.channels {
		e.channels[i] = &Channel{ID: i}
	}
	return e
}

// Channel returns the channel with the given id.
func (e *Engine) Channel(id int) *Channel {
	return e.channels[id]
}

// Interrupt returns the master interrupt register.
func (e *Engine) Interrupt() *Interrupt {
	return &e.interrupt
}

// Active reports whether any channel is mid-transfer.
func (e *Engine) Active() bool {
	for _, ch := range e.channels {
		if ch.Active() {
			return true
		}
	}
	return false
}

// InGap reports whether any channel has an outstanding gap countdown.
func (e *Engine) InGap() bool {
	for _, ch := range e.channels {
		if ch.gapTicks > 0 {
			return true
		}
	}
	return false
}

// ChoppingEnabled reports whether any active channel allows the CPU to
// run during gap periods.
func (e *Engine) ChoppingEnabled() bool {
	for _, ch := range e.channels {
		if ch.Active() && ch.Control.ChoppingEnabled() {
			return true
		}
	}
	return false
}

// Tick sweeps all channels once, servicing each active, master-enabled
// channel according to its synchronization mode. It returns the cycle
// cost of the sweep for the caller to charge to the shared counter.
func (e *Engine) Tick(b Bus) (int64, error) {
	var count int64

	for _, ch := range e.channels {
		if ch.Active() && e.masterEnabled(ch.ID) {
			var err error
			switch ch.Control.Sync() {
			case SyncLinkedList:
				err = e.tickLinkedList(ch, b)
			case SyncManual:
				err = e.tickManual(ch, b)
			case SyncRequest:
				err = e.tickRequest(ch, b)
			default:
				err = fmt.Errorf(
					"dma: channel %d: reserved synchronization mode", ch.ID)
			}
			if err != nil {
				return count, err
			}
		} else {
			ch.finish()
		}

		count += e.activeCount
		e.activeCount = 0
	}

	return count, nil
}

// tickRequest transfers one word of a request-mode channel. Exhausting a
// block inserts a gap tick before the next one, modeling the bus being
// ceded back to the CPU between blocks.
func (e *Engine) tickRequest(ch *Channel, b Bus) error {
	masked := ch.activeAddress & 0x1ffffc

	if ch.Control.FromRAM() {
		word, err := b.Read32(masked, false)
		if err != nil {
			return err
		}

		if ch.ID == 2 {
			b.GP0(word)
		} else {
			return fmt.Errorf(
				"dma: unhandled request-mode transfer from RAM on channel %d",
				ch.ID)
		}
	} else {
		return fmt.Errorf(
			"dma: request-mode transfer to RAM not implemented (channel %d)",
			ch.ID)
	}

	ch.step()
	ch.wordCount--

	if ch.wordCount == 0 {
		e.activeCount += int64(ch.BlockControl.BlockSize())

		ch.blocksRemaining--
		if ch.blocksRemaining > 0 {
			ch.wordCount += ch.BlockControl.BlockSize()
			ch.gapTicks++
		} else {
			e.complete(ch)
		}
	}

	return nil
}

// tickManual transfers one word of a manual-mode channel. Channel 6
// clears the ordering table: it writes the terminator on the final word
// and reverse links otherwise.
func (e *Engine) tickManual(ch *Channel, b Bus) error {
	masked := ch.activeAddress & 0x1ffffc

	if ch.Control.FromRAM() {
		word, err := b.Read32(masked, false)
		if err != nil {
			return err
		}

		if ch.ID == 2 {
			b.GP0(word)
		} else {
			return fmt.Errorf(
				"dma: unhandled manual-mode transfer from RAM on channel %d",
				ch.ID)
		}
	} else {
		var value uint32
		switch ch.ID {
		case 6:
			if ch.wordCount == 1 {
				value = 0xffffff
			} else {
				value = (ch.activeAddress - 4) & 0x1fffff
			}
		default:
			return fmt.Errorf(
				"dma: unhandled manual-mode transfer to RAM on channel %d",
				ch.ID)
		}

		if err := b.Write32(masked, value); err != nil {
			return err
		}
	}

	ch.step()
	ch.wordCount--

	if ch.wordCount == 0 {
		e.activeCount += int64(ch.BlockControl.BlockSize())
		e.complete(ch)
	}

	return nil
}

// tickLinkedList processes one node of a linked-list transfer: the
// header's top 8 bits give the payload word count, the low 24 bits the
// next node address. A next field of 0xffffff terminates the chain;
// otherwise a one-cycle gap models the inter-node fetch latency.
func (e *Engine) tickLinkedList(ch *Channel, b Bus) error {
	if !ch.Control.FromRAM() {
		return fmt.Errorf(
			"dma: linked-list transfer to RAM not supported (channel %d)",
			ch.ID)
	}
	if ch.ID != 2 {
		return fmt.Errorf(
			"dma: only the GPU channel supports linked-list mode, got channel %d",
			ch.ID)
	}

	if ch.gapTicks > 0 {
		ch.gapTicks--
		return nil
	}

	header, err := b.Read32(ch.activeAddress, false)
	if err != nil {
		return err
	}

	words := header >> 24
	for i := uint32(0); i < words; i++ {
		ch.activeAddress = (ch.activeAddress + 4) & 0x1ffffc

		val, err := b.Read32(ch.activeAddress, false)
		if err != nil {
			return err
		}
		b.GP0(val)
	}

	// payload words plus the header fetch
	e.activeCount += int64(words) + 1

	ch.activeAddress = header & 0x1ffffc

	if header&0xffffff == 0xffffff {
		e.complete(ch)
	} else {
		ch.gapTicks++
	}

	return nil
}

// TickGap retires outstanding gap ticks at the rate of cycles elapsed
// since the engine's last synchronization point, never dropping a
// channel below zero.
func (e *Engine) TickGap(ctr *counter.Counter) {
	elapsed := ctr.SyncAndGetElapsedCycles(counter.DeviceDMA)

	for _, ch := range e.channels {
		if ch.gapTicks > 0 {
			ch.gapTicks -= elapsed
			if ch.gapTicks < 0 {
				ch.gapTicks = 0
			}
		}
	}
}

// complete finishes a channel and raises its completion interrupt.
func (e *Engine) complete(ch *Channel) {
	ch.finish()

	if e.interrupt.raise(ch.ID) {
		e.irqs.Raise(irq.LineDMA)
	}
}

func (e *Engine) masterEnabled(channelID int) bool {
	return e.control&(1<<(channelID*4+3)) != 0
}

// Read decodes a load from the register window. The offset's bits [6:4]
// select a channel (0-6) or the master registers (7); bits [3:0] select
// the register within the slot.
func (e *Engine) Read(addr uint32) (uint32, error) {
	offset := addr - WindowStart

	major := (offset & 0x70) >> 4
	minor := offset & 0xf

	if major <= 6 {
		ch := e.channels[major]
		switch minor {
		case 0:
			return ch.BaseAddress, nil
		case 4:
			return uint32(ch.BlockControl), nil
		case 8:
			return uint32(ch.Control), nil
		default:
			return 0, fmt.Errorf("dma: unhandled read at offset 0x%x", offset)
		}
	}

	switch minor {
	case 0:
		return e.control, nil
	case 4:
		return e.interrupt.Value(), nil
	case 6:
		return e.interrupt.Value() >> 16, nil
	default:
		return 0, fmt.Errorf("dma: unhandled read at offset 0x%x", offset)
	}
}

// Write decodes a store to the register window. A control-register write
// that leaves the channel active reinitializes its cursor state from the
// programmed base address and block control.
func (e *Engine) Write(addr uint32, value uint32) error {
	offset := addr - WindowStart

	major := (offset & 0x70) >> 4
	minor := offset & 0xf

	if major <= 6 {
		ch := e.channels[major]
		switch minor {
		case 0:
			ch.BaseAddress = value & 0xfffffc
		case 4:
			ch.BlockControl = BlockControl(value)
		case 8:
			ch.Control = ChannelControl(value)
		default:
			return fmt.Errorf("dma: unhandled write at offset 0x%x", offset)
		}

		if ch.Active() {
			return e.activate(ch)
		}
		return nil
	}

	switch minor {
	case 0:
		e.control = value
	case 4:
		e.interrupt.Set(value)
	default:
		return fmt.Errorf("dma: unhandled write at offset 0x%x", offset)
	}

	return nil
}

// activate derives the runtime cursor state for a freshly enabled
// channel.
func (e *Engine) activate(ch *Channel) error {
	ch.activeAddress = ch.BaseAddress & 0x1ffffc

	switch ch.Control.Sync() {
	case SyncLinkedList:
		// force an immediate header fetch
		ch.wordCount = 1
	case SyncManual:
		ch.wordCount = ch.BlockControl.BlockSize()
	case SyncRequest:
		ch.wordCount = ch.BlockControl.BlockSize()
		ch.blocksRemaining = ch.BlockControl.BlockCount()
	default:
		return fmt.Errorf(
			"dma: channel %d: activated with reserved synchronization mode (from RAM: %v)",
			ch.ID, ch.Control.FromRAM())
	}

	e.activeCount = 0

	if ch.wordCount == 0 {
		e.complete(ch)
	}

	return nil
}
