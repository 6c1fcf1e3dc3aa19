// Package insts provides MIPS R3000A instruction word definitions.
//
// Instructions are fixed 32-bit words. This package does not interpret
// them; it only exposes the encoded fields so an execution engine can
// dispatch on opcode and function codes.
//
// Usage:
//
//	i := insts.Instruction(0x3c080013) // LUI $t0, 0x13
//	fmt.Printf("Op: 0x%02x, Rt: %d, Imm: 0x%04x\n", i.Opcode(), i.Rt(), i.Imm())
package insts

// Instruction is a raw 32-bit R3000A instruction word.
type Instruction uint32

// Opcode returns bits [31:26], the primary opcode.
func (i Instruction) Opcode() uint32 {
	return uint32(i) >> 26
}

// Funct returns bits [5:0], the secondary opcode for SPECIAL instructions.
func (i Instruction) Funct() uint32 {
	return uint32(i) & 0x3f
}

// Rs returns bits [25:21], the source register index.
func (i Instruction) Rs() uint32 {
	return (uint32(i) >> 21) & 0x1f
}

// Rt returns bits [20:16], the target register index.
func (i Instruction) Rt() uint32 {
	return (uint32(i) >> 16) & 0x1f
}

// Rd returns bits [15:11], the destination register index.
func (i Instruction) Rd() uint32 {
	return (uint32(i) >> 11) & 0x1f
}

// Shamt returns bits [10:6], the shift amount.
func (i Instruction) Shamt() uint32 {
	return (uint32(i) >> 6) & 0x1f
}

// Imm returns bits [15:0], the zero-extended immediate.
func (i Instruction) Imm() uint32 {
	return uint32(i) & 0xffff
}

// ImmSE returns bits [15:0] sign-extended to 32 bits.
func (i Instruction) ImmSE() uint32 {
	return uint32(int32(int16(uint16(i))))
}

// Target returns bits [25:0], the jump target field.
func (i Instruction) Target() uint32 {
	return uint32(i) & 0x3ffffff
}

// CopOpcode returns bits [25:21], the coprocessor sub-opcode.
func (i Instruction) CopOpcode() uint32 {
	return i.Rs()
}
