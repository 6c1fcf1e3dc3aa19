// Package irq models the shared interrupt status and mask registers.
//
// The registers are logically owned by no single component: the CPU polls
// them every step, while the DMA engine and peripherals set pending bits
// when work completes. They are therefore expressed as an interface that
// is handed to each collaborator at construction time.
package irq

// Line identifies one hardware interrupt source.
type Line uint16

const (
	LineVBlank     Line = 0 // GPU vertical blanking
	LineCDROM      Line = 2 // CD-ROM controller
	LineDMA        Line = 3 // DMA transfer complete
	LineTimer0     Line = 4
	LineTimer1     Line = 5
	LineTimer2     Line = 6
	LinePadMemCard Line = 7 // gamepad and memory card controllers
)

// Registers is the read/write contract over the shared interrupt state.
type Registers interface {
	// Pending reports whether any unmasked interrupt is asserted.
	Pending() bool

	// Status returns the raw pending bits.
	Status() uint16

	// Mask returns the interrupt mask.
	Mask() uint16

	// SetMask replaces the interrupt mask.
	SetMask(mask uint16)

	// Acknowledge clears pending bits. A zero bit in ack clears the
	// corresponding status bit; one bits leave it untouched.
	Acknowledge(ack uint16)

	// Raise asserts the pending bit for the given line.
	Raise(line Line)
}

// State is the canonical Registers implementation.
type State struct {
	status uint16
	mask   uint16
}

// NewState returns interrupt registers with nothing pending and
// everything masked.
func NewState() *State {
	return &State{}
}

func (s *State) Pending() bool {
	return s.status&s.mask != 0
}

func (s *State) Status() uint16 {
	return s.status
}

func (s *State) Mask() uint16 {
	return s.mask
}

func (s *State) SetMask(mask uint16) {
	s.mask = mask
}

func (s *State) Acknowledge(ack uint16) {
	s.status &= ack
}

func (s *State) Raise(line Line) {
	s.status |= 1 << line
}
