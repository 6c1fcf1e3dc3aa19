package gpu

// TextureColors selects the texture color depth.
type TextureColors uint8

const (
	TextureFourBit    TextureColors = 0
	TextureEightBit   TextureColors = 1
	TextureFifteenBit TextureColors = 2
)

// Field selects the interlace field currently displayed.
type Field uint8

const (
	FieldBottom Field = 0
	FieldTop    Field = 1
)

// VideoMode selects the video standard.
type VideoMode uint8

const (
	VideoNTSC VideoMode = 0
	VideoPAL  VideoMode = 1
)

// ColorDepth selects the display color depth.
type ColorDepth uint8

const (
	ColorFifteenBit    ColorDepth = 0
	ColorTwentyFourBit ColorDepth = 1
)

// DMADirection selects the GPU DMA transfer direction.
type DMADirection uint8

const (
	DMAOff          DMADirection = 0
	DMACPUToGP0     DMADirection = 2
	DMAGPUReadToCPU DMADirection = 3
)

// StatRegister holds the decoded fields of the GPU status word (GPUSTAT).
type StatRegister struct {
	TextureXBase  uint8
	TextureYBase1 uint8
	TextureYBase2 uint8

	SemiTransparency     uint8
	TextureColors        TextureColors
	DitherEnabled        bool
	DrawToDisplay        bool
	ForceMaskBit         bool
	PreserveMaskedPixels bool
	InterlaceField       Field
	ReverseFlag          bool
	HRes1                uint8
	HRes2                uint8
	VRes                 uint8
	VideoMode            VideoMode
	DisplayColorDepth    ColorDepth
	VerticalInterlace    bool
	DisplayEnable        bool
	IrqEnabled           bool
	DMADir               DMADirection
	ReadyForCommand      bool
	ReadyVRAMToCPU       bool
	ReadyReceiveDMABlock bool
	EvenOdd              bool
}

// NewStatRegister returns the status register in its reset state: ready
// for commands, DMA off.
func NewStatRegister() StatRegister {
	return StatRegister{
		ReadyForCommand:      true,
		ReadyVRAMToCPU:       true,
		ReadyReceiveDMABlock: true,
	}
}

// UpdateDrawMode applies a GP0(0xE1) draw mode setting word.
func (s *StatRegister) UpdateDrawMode(val uint32) error {
	s.TextureXBase = uint8(val & 0xf)
	s.TextureYBase1 = uint8((val >> 4) & 1)
	s.SemiTransparency = uint8((val >> 5) & 3)

	switch (val >> 7) & 3 {
	case 0:
		s.TextureColors = TextureFourBit
	case 1:
		s.TextureColors = TextureEightBit
	case 2:
		s.TextureColors = TextureFifteenBit
	default:
		return errReservedTextureDepth
	}

	s.DitherEnabled = (val>>9)&1 == 1
	s.DrawToDisplay = (val>>10)&1 == 1
	s.TextureYBase2 = uint8((val >> 11) & 1)

	return nil
}

// Value packs the register fields into the 32-bit GPUSTAT word.
func (s *StatRegister) Value() uint32 {
	var result uint32

	result |= uint32(s.TextureXBase)
	result |= uint32(s.TextureYBase1) << 4
	result |= uint32(s.SemiTransparency) << 5
	result |= uint32(s.TextureColors) << 7
	result |= oneIf(s.DitherEnabled) << 9
	result |= oneIf(s.DrawToDisplay) << 10
	result |= oneIf(s.ForceMaskBit) << 11
	result |= oneIf(s.PreserveMaskedPixels) << 12
	result |= uint32(s.InterlaceField) << 13
	result |= uint32(s.TextureYBase2) << 15
	result |= uint32(s.HRes2) << 16
	result |= uint32(s.HRes1) << 17
	result |= uint32(s.VRes) << 19
	result |= uint32(s.VideoMode) << 20
	result |= uint32(s.DisplayColorDepth) << 21
	result |= oneIf(s.VerticalInterlace) << 22
	result |= oneIf(s.DisplayEnable) << 23
	result |= oneIf(s.IrqEnabled) << 24

	// ready-for-command, ready-vram-to-cpu and ready-to-receive-DMA are
	// reported as always set at this level of modeling
	result |= 0b111 << 26
	result |= uint32(s.DMADir) << 29

	// bit 25 mirrors the DMA request appropriate for the direction
	var dmaRequest uint32
	switch s.DMADir {
	case DMAOff:
		dmaRequest = 0
	case DMACPUToGP0:
		dmaRequest = (result >> 28) & 1
	case DMAGPUReadToCPU:
		dmaRequest = 1
	}
	result |= dmaRequest << 25

	return result
}

func oneIf(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
