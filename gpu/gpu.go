// Package gpu provides the narrow slice of the graphics processor the
// CPU and DMA engine talk to: the GP0 command intake and the GPUSTAT
// status word. Command execution and rendering are out of scope.
package gpu

import "errors"

var errReservedTextureDepth = errors.New("gpu: reserved texture depth in draw mode setting")

// GPU accepts GP0 command words and maintains the status register.
type GPU struct {
	stat StatRegister

	// wordsReceived counts every word pushed through GP0, commands and
	// parameters alike.
	wordsReceived uint64
}

// New returns a GPU in its reset state.
func New() *GPU {
	return &GPU{stat: NewStatRegister()}
}

// GP0 accepts one 32-bit command word. Side effects only.
func (g *GPU) GP0(word uint32) {
	g.wordsReceived++

	switch word >> 24 {
	case 0xe1:
		// draw mode errors leave the previous mode in place
		_ = g.stat.UpdateDrawMode(word)
	}
}

// Stat returns the decoded status register.
func (g *GPU) Stat() *StatRegister {
	return &g.stat
}

// StatValue returns the packed GPUSTAT word.
func (g *GPU) StatValue() uint32 {
	return g.stat.Value()
}

// WordsReceived returns the number of words accepted through GP0.
func (g *GPU) WordsReceived() uint64 {
	return g.wordsReceived
}
