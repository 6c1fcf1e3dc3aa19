package dma

// SyncMode is a channel's transfer synchronization mode.
type SyncMode uint32

const (
	// SyncManual transfers one fixed-size block when triggered.
	SyncManual SyncMode = 0
	// SyncRequest transfers block-by-block, ceding the bus between blocks.
	SyncRequest SyncMode = 1
	// SyncLinkedList chains through variable-size nodes in memory.
	SyncLinkedList SyncMode = 2

	// syncReserved is the unused fourth encoding of the mode field.
	syncReserved SyncMode = 3
)

// String implements fmt.Stringer for diagnostics.
func (m SyncMode) String() string {
	switch m {
	case SyncManual:
		return "manual"
	case SyncRequest:
		return "request"
	case SyncLinkedList:
		return "linked-list"
	default:
		return "reserved"
	}
}

// ChannelControl is a channel's raw control register.
type ChannelControl uint32

// FromRAM reports the transfer direction: true for RAM to peripheral.
func (c ChannelControl) FromRAM() bool {
	return uint32(c)&1 == 1
}

// AddressIncrement reports whether the cursor steps forward (+4) rather
// than backward (-4) per word.
func (c ChannelControl) AddressIncrement() bool {
	return (uint32(c)>>1)&1 == 0
}

// ChoppingEnabled reports whether the CPU may interleave with gap
// periods instead of being fully blocked.
func (c ChannelControl) ChoppingEnabled() bool {
	return (uint32(c)>>8)&1 == 1
}

// Sync returns the synchronization mode field.
func (c ChannelControl) Sync() SyncMode {
	return SyncMode((uint32(c) >> 9) & 3)
}

// Enabled reports the enable/busy bit.
func (c ChannelControl) Enabled() bool {
	return (uint32(c)>>24)&1 == 1
}

// Trigger reports the manual-start bit.
func (c ChannelControl) Trigger() bool {
	return (uint32(c)>>28)&1 == 1
}

// BlockControl is a channel's raw block control register. Its
// interpretation depends on the synchronization mode: manual mode uses
// only the block size; request mode uses block size times block count.
type BlockControl uint32

// BlockSize returns the size of one block in words.
func (b BlockControl) BlockSize() uint32 {
	return uint32(b) & 0xffff
}

// BlockCount returns the number of blocks to transfer in request mode.
func (b BlockControl) BlockCount() uint32 {
	return uint32(b) >> 16
}

// Channel is one of the seven DMA transfer channels.
type Channel struct {
	// ID is the channel's slot, 0-6.
	ID int

	// Programmed registers.
	BaseAddress  uint32
	BlockControl BlockControl
	Control      ChannelControl

	// Runtime cursor state, rederived on activation.
	activeAddress   uint32
	wordCount       uint32
	blocksRemaining uint32
	gapTicks        int64
}

// Active reports whether the channel should be transferring. The enable
// bit must be set; manual mode additionally requires the trigger bit.
func (ch *Channel) Active() bool {
	trigger := true
	if ch.Control.Sync() == SyncManual {
		trigger = ch.Control.Trigger()
	}
	return ch.Control.Enabled() && trigger
}

// ActiveAddress returns the current transfer cursor.
func (ch *Channel) ActiveAddress() uint32 {
	return ch.activeAddress
}

// WordCount returns the words remaining in the current block.
func (ch *Channel) WordCount() uint32 {
	return ch.wordCount
}

// BlocksRemaining returns the blocks left in a request-mode transfer.
func (ch *Channel) BlocksRemaining() uint32 {
	return ch.blocksRemaining
}

// GapTicks returns the channel's outstanding gap countdown.
func (ch *Channel) GapTicks() int64 {
	return ch.gapTicks
}

// finish returns the channel to idle, clearing the enable and trigger
// bits.
func (ch *Channel) finish() {
	ch.Control &^= ChannelControl(1<<24 | 1<<28)
}

// step advances the cursor by one word in the programmed direction.
func (ch *Channel) step() {
	if ch.Control.AddressIncrement() {
		ch.activeAddress += 4
	} else {
		ch.activeAddress -= 4
	}
}
