package dma

// Interrupt is the DMA master interrupt register (DICR).
type Interrupt struct {
	// MasterEnable gates the per-channel interrupt flags.
	MasterEnable bool

	// ChannelEnable holds the per-channel interrupt enable bits.
	ChannelEnable uint8

	// ChannelFlags holds the per-channel completion flags.
	ChannelFlags uint8

	// Force asserts the interrupt unconditionally, even with
	// MasterEnable clear.
	Force bool

	// Dummy preserves bits [5:0], which are read/write with no known
	// function.
	Dummy uint8
}

// Asserted reports the state of the master interrupt line (bit 31).
func (i *Interrupt) Asserted() bool {
	return i.Force || (i.MasterEnable && i.ChannelFlags&i.ChannelEnable != 0)
}

// Value packs the register into its 32-bit representation.
func (i *Interrupt) Value() uint32 {
	var r uint32

	r |= uint32(i.Dummy)
	r |= oneIf(i.Force) << 15
	r |= uint32(i.ChannelEnable) << 16
	r |= oneIf(i.MasterEnable) << 23
	r |= uint32(i.ChannelFlags) << 24
	r |= oneIf(i.Asserted()) << 31

	return r
}

// Set writes the register. Writing 1 to a flag bit acknowledges it.
func (i *Interrupt) Set(val uint32) {
	i.Dummy = uint8(val & 0x3f)
	i.Force = (val>>15)&1 != 0
	i.ChannelEnable = uint8((val >> 16) & 0x7f)
	i.MasterEnable = (val>>23)&1 != 0

	ack := uint8((val >> 24) & 0x7f)
	i.ChannelFlags &^= ack
}

// raise sets the completion flag for a channel if its interrupt is
// enabled. It reports whether the master line is asserted afterwards.
func (i *Interrupt) raise(channelID int) bool {
	if i.ChannelEnable&(1<<channelID) != 0 {
		i.ChannelFlags |= 1 << channelID
	}
	return i.Asserted()
}

func oneIf(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
