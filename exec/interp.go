// Package exec provides a reference decode/execute table for the
// R3000A, implementing the emu.Executor contract. It covers the
// integer, branch, load/store and system-control instructions the BIOS
// and typical programs rely on; the geometry coprocessor is not
// modeled.
package exec

import (
	"github.com/sarchlab/psxsim/emu"
	"github.com/sarchlab/psxsim/insts"
)

// Interpreter dispatches raw instruction words against the CPU.
type Interpreter struct{}

// New returns a ready interpreter.
func New() *Interpreter {
	return &Interpreter{}
}

// Execute decodes and executes one instruction.
func (it *Interpreter) Execute(c *emu.CPU, i insts.Instruction) error {
	switch i.Opcode() {
	case 0x00:
		return it.executeSpecial(c, i)
	case 0x01:
		it.opBcondZ(c, i)
	case 0x02: // J
		c.Branch(c.PC()&0xf0000000 | i.Target()<<2)
	case 0x03: // JAL
		c.SetReg(31, c.NextPC())
		c.Branch(c.PC()&0xf0000000 | i.Target()<<2)
	case 0x04: // BEQ
		if c.Reg(i.Rs()) == c.Reg(i.Rt()) {
			branch(c, i)
		}
	case 0x05: // BNE
		if c.Reg(i.Rs()) != c.Reg(i.Rt()) {
			branch(c, i)
		}
	case 0x06: // BLEZ
		if int32(c.Reg(i.Rs())) <= 0 {
			branch(c, i)
		}
	case 0x07: // BGTZ
		if int32(c.Reg(i.Rs())) > 0 {
			branch(c, i)
		}
	case 0x08: // ADDI
		s := int32(c.Reg(i.Rs()))
		imm := int32(i.ImmSE())
		v := s + imm
		if addOverflows(s, imm, v) {
			c.Exception(emu.ExcOverflow)
			return nil
		}
		c.SetReg(i.Rt(), uint32(v))
	case 0x09: // ADDIU
		c.SetReg(i.Rt(), c.Reg(i.Rs())+i.ImmSE())
	case 0x0a: // SLTI
		c.SetReg(i.Rt(), boolToReg(int32(c.Reg(i.Rs())) < int32(i.ImmSE())))
	case 0x0b: // SLTIU
		c.SetReg(i.Rt(), boolToReg(c.Reg(i.Rs()) < i.ImmSE()))
	case 0x0c: // ANDI
		c.SetReg(i.Rt(), c.Reg(i.Rs())&i.Imm())
	case 0x0d: // ORI
		c.SetReg(i.Rt(), c.Reg(i.Rs())|i.Imm())
	case 0x0e: // XORI
		c.SetReg(i.Rt(), c.Reg(i.Rs())^i.Imm())
	case 0x0f: // LUI
		c.SetReg(i.Rt(), i.Imm()<<16)
	case 0x10:
		it.executeCOP0(c, i)
	case 0x11, 0x12, 0x13: // COP1, GTE (not modeled), COP3
		c.Exception(emu.ExcCoprocessorError)
	case 0x20:
		return it.opLB(c, i)
	case 0x21:
		return it.opLH(c, i)
	case 0x23:
		return it.opLW(c, i)
	case 0x24:
		return it.opLBU(c, i)
	case 0x25:
		return it.opLHU(c, i)
	case 0x28:
		return it.opSB(c, i)
	case 0x29:
		return it.opSH(c, i)
	case 0x2b:
		return it.opSW(c, i)
	default:
		c.Exception(emu.ExcIllegalInstruction)
	}

	return nil
}

// executeSpecial handles the register-format instructions under
// opcode 0.
func (it *Interpreter) executeSpecial(c *emu.CPU, i insts.Instruction) error {
	switch i.Funct() {
	case 0x00: // SLL
		c.SetReg(i.Rd(), c.Reg(i.Rt())<<i.Shamt())
	case 0x02: // SRL
		c.SetReg(i.Rd(), c.Reg(i.Rt())>>i.Shamt())
	case 0x03: // SRA
		c.SetReg(i.Rd(), uint32(int32(c.Reg(i.Rt()))>>i.Shamt()))
	case 0x04: // SLLV
		c.SetReg(i.Rd(), c.Reg(i.Rt())<<(c.Reg(i.Rs())&0x1f))
	case 0x06: // SRLV
		c.SetReg(i.Rd(), c.Reg(i.Rt())>>(c.Reg(i.Rs())&0x1f))
	case 0x07: // SRAV
		c.SetReg(i.Rd(), uint32(int32(c.Reg(i.Rt()))>>(c.Reg(i.Rs())&0x1f)))
	case 0x08: // JR
		c.Branch(c.Reg(i.Rs()))
	case 0x09: // JALR
		target := c.Reg(i.Rs())
		c.SetReg(i.Rd(), c.NextPC())
		c.Branch(target)
	case 0x0c: // SYSCALL
		c.Exception(emu.ExcSysCall)
	case 0x0d: // BREAK
		c.Exception(emu.ExcBreak)
	case 0x10: // MFHI
		c.SetReg(i.Rd(), c.Hi())
	case 0x11: // MTHI
		c.SetHi(c.Reg(i.Rs()))
	case 0x12: // MFLO
		c.SetReg(i.Rd(), c.Lo())
	case 0x13: // MTLO
		c.SetLo(c.Reg(i.Rs()))
	case 0x18: // MULT
		product := int64(int32(c.Reg(i.Rs()))) * int64(int32(c.Reg(i.Rt())))
		c.SetHi(uint32(uint64(product) >> 32))
		c.SetLo(uint32(uint64(product)))
	case 0x19: // MULTU
		product := uint64(c.Reg(i.Rs())) * uint64(c.Reg(i.Rt()))
		c.SetHi(uint32(product >> 32))
		c.SetLo(uint32(product))
	case 0x1a:
		it.opDIV(c, i)
	case 0x1b:
		it.opDIVU(c, i)
	case 0x20: // ADD
		s := int32(c.Reg(i.Rs()))
		t := int32(c.Reg(i.Rt()))
		v := s + t
		if addOverflows(s, t, v) {
			c.Exception(emu.ExcOverflow)
			return nil
		}
		c.SetReg(i.Rd(), uint32(v))
	case 0x21: // ADDU
		c.SetReg(i.Rd(), c.Reg(i.Rs())+c.Reg(i.Rt()))
	case 0x22: // SUB
		s := int32(c.Reg(i.Rs()))
		t := int32(c.Reg(i.Rt()))
		v := s - t
		if subOverflows(s, t, v) {
			c.Exception(emu.ExcOverflow)
			return nil
		}
		c.SetReg(i.Rd(), uint32(v))
	case 0x23: // SUBU
		c.SetReg(i.Rd(), c.Reg(i.Rs())-c.Reg(i.Rt()))
	case 0x24: // AND
		c.SetReg(i.Rd(), c.Reg(i.Rs())&c.Reg(i.Rt()))
	case 0x25: // OR
		c.SetReg(i.Rd(), c.Reg(i.Rs())|c.Reg(i.Rt()))
	case 0x26: // XOR
		c.SetReg(i.Rd(), c.Reg(i.Rs())^c.Reg(i.Rt()))
	case 0x27: // NOR
		c.SetReg(i.Rd(), ^(c.Reg(i.Rs()) | c.Reg(i.Rt())))
	case 0x2a: // SLT
		c.SetReg(i.Rd(), boolToReg(int32(c.Reg(i.Rs())) < int32(c.Reg(i.Rt()))))
	case 0x2b: // SLTU
		c.SetReg(i.Rd(), boolToReg(c.Reg(i.Rs()) < c.Reg(i.Rt())))
	default:
		c.Exception(emu.ExcIllegalInstruction)
	}

	return nil
}

// opBcondZ handles BLTZ, BGEZ, BLTZAL and BGEZAL: bit 16 of the word
// selects the greater-or-equal test, bits [20:17] equal to 8 request
// linking.
func (it *Interpreter) opBcondZ(c *emu.CPU, i insts.Instruction) {
	isBGEZ := (uint32(i)>>16)&1 == 1
	isLink := (uint32(i)>>17)&0xf == 8

	negative := int32(c.Reg(i.Rs())) < 0
	taken := negative != isBGEZ

	if isLink {
		c.SetReg(31, c.NextPC())
	}
	if taken {
		branch(c, i)
	}
}

// executeCOP0 handles MFC0, MTC0 and RFE.
func (it *Interpreter) executeCOP0(c *emu.CPU, i insts.Instruction) {
	switch i.CopOpcode() {
	case 0x00: // MFC0
		var v uint32
		switch i.Rd() {
		case 12:
			v = c.COP0().SR
		case 13:
			v = c.COP0().Cause
		case 14:
			v = c.COP0().EPC
		}
		// coprocessor moves have the same one-instruction result lag as
		// memory loads
		c.ScheduleLoad(i.Rt(), v, 0)
	case 0x04: // MTC0
		v := c.Reg(i.Rt())
		switch i.Rd() {
		case 12:
			c.COP0().SR = v
		case 13:
			c.COP0().SetCause(v)
		default:
			// breakpoint and unimplemented registers: accepted, unused
		}
	case 0x10: // RFE
		c.COP0().ReturnFromException()
	default:
		c.Exception(emu.ExcCoprocessorError)
	}
}

func (it *Interpreter) opDIV(c *emu.CPU, i insts.Instruction) {
	n := int32(c.Reg(i.Rs()))
	d := int32(c.Reg(i.Rt()))

	switch {
	case d == 0:
		// division by zero has defined garbage results
		c.SetHi(uint32(n))
		if n >= 0 {
			c.SetLo(0xffffffff)
		} else {
			c.SetLo(1)
		}
	case uint32(n) == 0x80000000 && d == -1:
		// the result doesn't fit in 32 bits
		c.SetHi(0)
		c.SetLo(0x80000000)
	default:
		c.SetHi(uint32(n % d))
		c.SetLo(uint32(n / d))
	}
}

func (it *Interpreter) opDIVU(c *emu.CPU, i insts.Instruction) {
	n := c.Reg(i.Rs())
	d := c.Reg(i.Rt())

	if d == 0 {
		c.SetHi(n)
		c.SetLo(0xffffffff)
		return
	}

	c.SetHi(n % d)
	c.SetLo(n / d)
}

func (it *Interpreter) opLW(c *emu.CPU, i insts.Instruction) error {
	addr := c.Reg(i.Rs()) + i.ImmSE()

	if addr&3 != 0 {
		c.Exception(emu.ExcLoadAddressError)
		return nil
	}

	v, duration, err := c.Load32(addr)
	if err != nil {
		return err
	}
	c.ScheduleLoad(i.Rt(), v, duration)
	return nil
}

func (it *Interpreter) opLH(c *emu.CPU, i insts.Instruction) error {
	addr := c.Reg(i.Rs()) + i.ImmSE()

	if addr&1 != 0 {
		c.Exception(emu.ExcLoadAddressError)
		return nil
	}

	v, duration, err := c.Load16(addr)
	if err != nil {
		return err
	}
	c.ScheduleLoad(i.Rt(), uint32(int32(int16(v))), duration)
	return nil
}

func (it *Interpreter) opLHU(c *emu.CPU, i insts.Instruction) error {
	addr := c.Reg(i.Rs()) + i.ImmSE()

	if addr&1 != 0 {
		c.Exception(emu.ExcLoadAddressError)
		return nil
	}

	v, duration, err := c.Load16(addr)
	if err != nil {
		return err
	}
	c.ScheduleLoad(i.Rt(), uint32(v), duration)
	return nil
}

func (it *Interpreter) opLB(c *emu.CPU, i insts.Instruction) error {
	v, duration, err := c.Load8(c.Reg(i.Rs()) + i.ImmSE())
	if err != nil {
		return err
	}
	c.ScheduleLoad(i.Rt(), uint32(int32(int8(v))), duration)
	return nil
}

func (it *Interpreter) opLBU(c *emu.CPU, i insts.Instruction) error {
	v, duration, err := c.Load8(c.Reg(i.Rs()) + i.ImmSE())
	if err != nil {
		return err
	}
	c.ScheduleLoad(i.Rt(), uint32(v), duration)
	return nil
}

func (it *Interpreter) opSW(c *emu.CPU, i insts.Instruction) error {
	if c.COP0().CacheIsolated() {
		// stores while the cache is isolated target the cache, not
		// memory
		return nil
	}

	addr := c.Reg(i.Rs()) + i.ImmSE()

	if addr&3 != 0 {
		c.Exception(emu.ExcStoreAddressError)
		return nil
	}

	return c.Store32(addr, c.Reg(i.Rt()))
}

func (it *Interpreter) opSH(c *emu.CPU, i insts.Instruction) error {
	if c.COP0().CacheIsolated() {
		return nil
	}

	addr := c.Reg(i.Rs()) + i.ImmSE()

	if addr&1 != 0 {
		c.Exception(emu.ExcStoreAddressError)
		return nil
	}

	return c.Store16(addr, uint16(c.Reg(i.Rt())))
}

func (it *Interpreter) opSB(c *emu.CPU, i insts.Instruction) error {
	if c.COP0().CacheIsolated() {
		return nil
	}

	return c.Store8(c.Reg(i.Rs())+i.ImmSE(), uint8(c.Reg(i.Rt())))
}

// branch redirects nextPC relative to the delay-slot address.
func branch(c *emu.CPU, i insts.Instruction) {
	c.Branch(c.PC() + i.ImmSE()<<2)
}

func addOverflows(a, b, result int32) bool {
	return (a >= 0) == (b >= 0) && (result >= 0) != (a >= 0)
}

func subOverflows(a, b, result int32) bool {
	return (a >= 0) != (b >= 0) && (result >= 0) != (a >= 0)
}

func boolToReg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
