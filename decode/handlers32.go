package decode

import "github.com/bassosimone/rv64emu/memory"

// xlenMask returns the bitmask that keeps a value within the current
// XLEN, so RV32 guests never observe the upper half of the 64-bit-wide
// register file (see spec.md's Hart state note on register width).
func xlenMask(c Core) uint64 {
	if c.Xlen() == 32 {
		return 0xffffffff
	}
	return ^uint64(0)
}

func trunc(c Core, v uint64) uint64 { return v & xlenMask(c) }

func setGPR(c Core, rd uint32, v uint64) {
	c.SetGPR(rd, trunc(c, v))
}

func opLUI(c Core, a Args) { setGPR(c, a.Rd, uint64(int64(a.Imm))) }

func opAUIPC(c Core, a Args) { setGPR(c, a.Rd, c.PC()+uint64(a.Imm)) }

func opJAL(c Core, a Args) {
	setGPR(c, a.Rd, c.PC()+4)
	c.SetWantPC(uint64(int64(c.PC()) + a.Imm))
}

func opJALR(c Core, a Args) {
	target := (c.GPR(a.Rs1) + uint64(a.Imm)) &^ 1
	setGPR(c, a.Rd, c.PC()+4)
	c.SetWantPC(target)
}

func branch(c Core, a Args, taken bool) {
	if taken {
		c.SetWantPC(uint64(int64(c.PC()) + a.Imm))
	} else {
		c.SetWantPC(c.PC() + 4)
	}
}

func opBEQ(c Core, a Args)  { branch(c, a, c.GPR(a.Rs1) == c.GPR(a.Rs2)) }
func opBNE(c Core, a Args)  { branch(c, a, c.GPR(a.Rs1) != c.GPR(a.Rs2)) }
func opBLT(c Core, a Args)  { branch(c, a, int64(c.GPR(a.Rs1)) < int64(c.GPR(a.Rs2))) }
func opBGE(c Core, a Args)  { branch(c, a, int64(c.GPR(a.Rs1)) >= int64(c.GPR(a.Rs2))) }
func opBLTU(c Core, a Args) { branch(c, a, c.GPR(a.Rs1) < c.GPR(a.Rs2)) }
func opBGEU(c Core, a Args) { branch(c, a, c.GPR(a.Rs1) >= c.GPR(a.Rs2)) }

func loadAddr(c Core, a Args) uint64 { return c.GPR(a.Rs1) + uint64(a.Imm) }

func opLoadSigned(c Core, a Args) {
	v, err := c.ReadMem(loadAddr(c, a), memory.AccessLoad, a.Width)
	if err != nil {
		surfaceFault(c, err)
		return
	}
	shift := 64 - a.Width*8
	setGPR(c, a.Rd, uint64(int64(v<<shift)>>shift))
}

func opLoadUnsigned(c Core, a Args) {
	v, err := c.ReadMem(loadAddr(c, a), memory.AccessLoad, a.Width)
	if err != nil {
		surfaceFault(c, err)
		return
	}
	setGPR(c, a.Rd, v)
}

func opStore(c Core, a Args) {
	addr := c.GPR(a.Rs1) + uint64(a.Imm)
	if err := c.WriteMem(addr, memory.AccessStore, a.Width, c.GPR(a.Rs2)); err != nil {
		surfaceFault(c, err)
	}
}

func surfaceFault(c Core, err error) {
	if f, ok := err.(memory.Fault); ok {
		c.RaiseTrap(f.Cause, f.TVal)
		return
	}
	c.RaiseTrap(memory.ExcLoadAccessFault, 0)
}

func opADDI(c Core, a Args)  { setGPR(c, a.Rd, c.GPR(a.Rs1)+uint64(a.Imm)) }
func opADDIW(c Core, a Args) { setGPR(c, a.Rd, uint64(int32(uint32(c.GPR(a.Rs1))+uint32(a.Imm)))) }
func opSLTI(c Core, a Args) {
	setGPR(c, a.Rd, boolToU64(int64(c.GPR(a.Rs1)) < a.Imm))
}
func opSLTIU(c Core, a Args) {
	setGPR(c, a.Rd, boolToU64(c.GPR(a.Rs1) < uint64(a.Imm)))
}
func opXORI(c Core, a Args) { setGPR(c, a.Rd, c.GPR(a.Rs1)^uint64(a.Imm)) }
func opORI(c Core, a Args)  { setGPR(c, a.Rd, c.GPR(a.Rs1)|uint64(a.Imm)) }
func opANDI(c Core, a Args) { setGPR(c, a.Rd, c.GPR(a.Rs1)&uint64(a.Imm)) }

func opSLLI(c Core, a Args) { setGPR(c, a.Rd, c.GPR(a.Rs1)<<a.Shamt) }
func opSRLI(c Core, a Args) { setGPR(c, a.Rd, trunc(c, c.GPR(a.Rs1))>>a.Shamt) }
func opSRAI(c Core, a Args) {
	setGPR(c, a.Rd, uint64(int64(c.GPR(a.Rs1))>>a.Shamt))
}
func opSLLIW(c Core, a Args) { setGPR(c, a.Rd, uint64(int32(uint32(c.GPR(a.Rs1))<<a.Shamt))) }
func opSRLIW(c Core, a Args) { setGPR(c, a.Rd, uint64(int32(uint32(c.GPR(a.Rs1))>>a.Shamt))) }
func opSRAIW(c Core, a Args) { setGPR(c, a.Rd, uint64(int32(c.GPR(a.Rs1))>>a.Shamt)) }

func opADD(c Core, a Args) { setGPR(c, a.Rd, c.GPR(a.Rs1)+c.GPR(a.Rs2)) }
func opSUB(c Core, a Args) { setGPR(c, a.Rd, c.GPR(a.Rs1)-c.GPR(a.Rs2)) }
func opSLL(c Core, a Args) { setGPR(c, a.Rd, c.GPR(a.Rs1)<<(c.GPR(a.Rs2)&shamtMaskFor(c))) }
func opSLT(c Core, a Args) {
	setGPR(c, a.Rd, boolToU64(int64(c.GPR(a.Rs1)) < int64(c.GPR(a.Rs2))))
}
func opSLTU(c Core, a Args) { setGPR(c, a.Rd, boolToU64(c.GPR(a.Rs1) < c.GPR(a.Rs2))) }
func opXOR(c Core, a Args)  { setGPR(c, a.Rd, c.GPR(a.Rs1)^c.GPR(a.Rs2)) }
func opSRL(c Core, a Args) {
	setGPR(c, a.Rd, trunc(c, c.GPR(a.Rs1))>>(c.GPR(a.Rs2)&shamtMaskFor(c)))
}
func opSRA(c Core, a Args) {
	setGPR(c, a.Rd, uint64(int64(c.GPR(a.Rs1))>>(c.GPR(a.Rs2)&shamtMaskFor(c))))
}
func opOR(c Core, a Args)  { setGPR(c, a.Rd, c.GPR(a.Rs1)|c.GPR(a.Rs2)) }
func opAND(c Core, a Args) { setGPR(c, a.Rd, c.GPR(a.Rs1)&c.GPR(a.Rs2)) }

func opADDW(c Core, a Args) {
	setGPR(c, a.Rd, uint64(int32(uint32(c.GPR(a.Rs1))+uint32(c.GPR(a.Rs2)))))
}
func opSUBW(c Core, a Args) {
	setGPR(c, a.Rd, uint64(int32(uint32(c.GPR(a.Rs1))-uint32(c.GPR(a.Rs2)))))
}
func opSLLW(c Core, a Args) {
	setGPR(c, a.Rd, uint64(int32(uint32(c.GPR(a.Rs1))<<(c.GPR(a.Rs2)&0x1f))))
}
func opSRLW(c Core, a Args) {
	setGPR(c, a.Rd, uint64(int32(uint32(c.GPR(a.Rs1))>>(c.GPR(a.Rs2)&0x1f))))
}
func opSRAW(c Core, a Args) {
	setGPR(c, a.Rd, uint64(int32(c.GPR(a.Rs1))>>(c.GPR(a.Rs2)&0x1f)))
}

func shamtMaskFor(c Core) uint64 {
	if c.Xlen() == 32 {
		return 0x1f
	}
	return 0x3f
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func opFence(c Core, a Args)  {}
func opFenceI(c Core, a Args) { c.FlushBlocks() }

func opECALL(c Core, a Args)  { c.RaiseEcall() }
func opEBREAK(c Core, a Args) { c.RaiseTrap(memory.ExcBreakpoint, c.PC()) }

func opCSRRW(c Core, a Args) {
	old := c.CSR(a.CSR)
	c.SetCSR(a.CSR, c.GPR(a.Rs1))
	if a.Rd != 0 {
		setGPR(c, a.Rd, old)
	}
}
func opCSRRS(c Core, a Args) {
	old := c.CSR(a.CSR)
	if a.Rs1 != 0 {
		c.SetCSR(a.CSR, old|c.GPR(a.Rs1))
	}
	setGPR(c, a.Rd, old)
}
func opCSRRC(c Core, a Args) {
	old := c.CSR(a.CSR)
	if a.Rs1 != 0 {
		c.SetCSR(a.CSR, old&^c.GPR(a.Rs1))
	}
	setGPR(c, a.Rd, old)
}
func opCSRRWI(c Core, a Args) {
	old := c.CSR(a.CSR)
	c.SetCSR(a.CSR, uint64(a.Imm))
	if a.Rd != 0 {
		setGPR(c, a.Rd, old)
	}
}
func opCSRRSI(c Core, a Args) {
	old := c.CSR(a.CSR)
	if a.Imm != 0 {
		c.SetCSR(a.CSR, old|uint64(a.Imm))
	}
	setGPR(c, a.Rd, old)
}
func opCSRRCI(c Core, a Args) {
	old := c.CSR(a.CSR)
	if a.Imm != 0 {
		c.SetCSR(a.CSR, old&^uint64(a.Imm))
	}
	setGPR(c, a.Rd, old)
}

func opLR(c Core, a Args) {
	addr := c.GPR(a.Rs1)
	v, err := c.ReadMem(addr, memory.AccessLoad, a.Width)
	if err != nil {
		surfaceFault(c, err)
		return
	}
	c.SetReservation(addr, a.Width)
	shift := 64 - a.Width*8
	setGPR(c, a.Rd, uint64(int64(v<<shift)>>shift))
}

func opSC(c Core, a Args) {
	addr := c.GPR(a.Rs1)
	if !c.CheckReservation(addr, a.Width) {
		c.ClearReservation()
		setGPR(c, a.Rd, 1)
		return
	}
	if err := c.WriteMem(addr, memory.AccessStore, a.Width, c.GPR(a.Rs2)); err != nil {
		surfaceFault(c, err)
		return
	}
	c.ClearReservation()
	setGPR(c, a.Rd, 0)
}
