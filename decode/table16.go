package decode

// decodeCompressed covers the subset of the RVC quadrants named in
// SPEC_FULL.md section 4.9 (c.li, c.jr, c.addi, c.mv, c.sw/c.sd, c.lw/c.ld,
// c.beqz/c.bnez, c.j, c.nop) plus c.addiw, c.slli, c.lwsp/c.ldsp,
// c.swsp/c.sdsp, c.add, c.jalr and c.ebreak. Quadrant 1 funct3=001 always
// decodes as c.addiw, so c.jal (its RV32 meaning) is never produced.
// Everything else (compressed floating-point loads/stores, c.addi4spn,
// c.lui/c.addi16sp, c.srli/c.srai/c.andi and the c.sub group) is left
// undecoded and becomes an illegal-instruction trap.
func decodeCompressed(in uint16) (Instruction, bool) {
	quadrant := in & 0x3
	funct3 := uint32((in >> 13) & 0x7)

	switch quadrant {
	case 0b00:
		return decodeQuadrant0(in, funct3)
	case 0b01:
		return decodeQuadrant1(in, funct3)
	case 0b10:
		return decodeQuadrant2(in, funct3)
	}
	return Instruction{}, false
}

func rvcRd(in uint16) uint32  { return uint32((in >> 7) & 0x1f) }
func rvcRs2(in uint16) uint32 { return uint32((in >> 2) & 0x1f) }

// rvcShortReg maps the 3-bit compressed register field to x8..x15.
func rvcShortReg(field uint16) uint32 { return uint32(field&0x7) + 8 }

func cInst(a Args, h Handler) Instruction {
	return Instruction{IncBy: 2, Args: a, Handler: h}
}

func decodeQuadrant0(in uint16, funct3 uint32) (Instruction, bool) {
	rdp := rvcShortReg(in >> 2)
	rs1p := rvcShortReg(in >> 7)
	switch funct3 {
	case 0b010: // c.lw
		imm := ((in>>5)&0x1)<<6 | ((in>>10)&0x7)<<3 | ((in>>6)&0x1)<<2
		return cInst(Args{Rd: rdp, Rs1: rs1p, Imm: int64(imm), Width: 4}, opLoadSigned), true
	case 0b011: // c.ld
		imm := ((in>>10)&0x7)<<3 | ((in>>5)&0x3)<<6
		return cInst(Args{Rd: rdp, Rs1: rs1p, Imm: int64(imm), Width: 8}, opLoadSigned), true
	case 0b110: // c.sw
		imm := ((in>>5)&0x1)<<6 | ((in>>10)&0x7)<<3 | ((in>>6)&0x1)<<2
		return cInst(Args{Rs1: rs1p, Rs2: rdp, Imm: int64(imm), Width: 4}, opStore), true
	case 0b111: // c.sd
		imm := ((in>>10)&0x7)<<3 | ((in>>5)&0x3)<<6
		return cInst(Args{Rs1: rs1p, Rs2: rdp, Imm: int64(imm), Width: 8}, opStore), true
	}
	return Instruction{}, false
}

func decodeQuadrant1(in uint16, funct3 uint32) (Instruction, bool) {
	rd := rvcRd(in)
	immLo := (in >> 2) & 0x1f
	signBit := (in >> 12) & 0x1
	imm6 := signExtend(uint32(signBit)<<5|uint32(immLo), 6)

	switch funct3 {
	case 0b000: // c.addi / c.nop (rd==0)
		return cInst(Args{Rd: rd, Rs1: rd, Imm: imm6}, opADDI), true
	case 0b010: // c.li
		return cInst(Args{Rd: rd, Rs1: 0, Imm: imm6}, opADDI), true
	case 0b001: // c.addiw (RV64 only)
		return cInst(Args{Rd: rd, Rs1: rd, Imm: imm6}, opADDIW), true
	case 0b101: // c.j
		imm := decodeCJImm(in)
		i := cInst(Args{Imm: imm}, opCJ)
		i.Handler = withStopTranslating(i.Handler)
		return i, true
	case 0b110: // c.beqz
		rs1p := rvcShortReg(in >> 7)
		imm := decodeCBImm(in)
		i := cInst(Args{Rs1: rs1p, Imm: imm}, opCBEQZ)
		i.Handler = withStopTranslating(i.Handler)
		return i, true
	case 0b111: // c.bnez
		rs1p := rvcShortReg(in >> 7)
		imm := decodeCBImm(in)
		i := cInst(Args{Rs1: rs1p, Imm: imm}, opCBNEZ)
		i.Handler = withStopTranslating(i.Handler)
		return i, true
	}
	return Instruction{}, false
}

func decodeQuadrant2(in uint16, funct3 uint32) (Instruction, bool) {
	rd := rvcRd(in)
	rs2 := rvcRs2(in)
	bit12 := (in >> 12) & 0x1

	switch funct3 {
	case 0b000: // c.slli
		shamt := uint32(bit12)<<5 | uint32((in>>2)&0x1f)
		return cInst(Args{Rd: rd, Rs1: rd, Shamt: shamt}, opSLLI), true
	case 0b010: // c.lwsp
		imm := ((in>>2)&0x3)<<6 | ((in>>4)&0x7)<<2 | uint16(bit12)<<5
		return cInst(Args{Rd: rd, Rs1: 2, Imm: int64(imm), Width: 4}, opLoadSigned), true
	case 0b011: // c.ldsp
		imm := ((in>>2)&0x7)<<6 | ((in>>5)&0x3)<<3 | uint16(bit12)<<5
		return cInst(Args{Rd: rd, Rs1: 2, Imm: int64(imm), Width: 8}, opLoadSigned), true
	case 0b100:
		if bit12 == 0 {
			if rs2 == 0 { // c.jr
				i := cInst(Args{Rs1: rd}, opCJR)
				i.Handler = withStopTranslating(i.Handler)
				return i, true
			}
			// c.mv
			return cInst(Args{Rd: rd, Rs1: 0, Rs2: rs2}, opCMV), true
		}
		if rs2 == 0 && rd == 0 { // c.ebreak
			i := cInst(Args{}, opEBREAK)
			i.Handler = withStopTranslating(i.Handler)
			return i, true
		}
		if rs2 == 0 { // c.jalr
			i := cInst(Args{Rd: 1, Rs1: rd}, opCJALR)
			i.Handler = withStopTranslating(i.Handler)
			return i, true
		}
		// c.add
		return cInst(Args{Rd: rd, Rs1: rd, Rs2: rs2}, opADD), true
	case 0b110: // c.swsp
		imm := ((in>>7)&0x3)<<6 | ((in>>9)&0xf)<<2
		return cInst(Args{Rs1: 2, Rs2: rvcRd(in), Imm: int64(imm), Width: 4}, opStore), true
	case 0b111: // c.sdsp
		imm := ((in>>7)&0x7)<<6 | ((in>>10)&0x7)<<3
		return cInst(Args{Rs1: 2, Rs2: rvcRd(in), Imm: int64(imm), Width: 8}, opStore), true
	}
	return Instruction{}, false
}

func decodeCJImm(in uint16) int64 {
	bits := (in>>12)&0x1 // bit 11
	var imm uint32
	imm |= uint32(bits) << 11
	imm |= uint32((in>>11)&0x1) << 4
	imm |= uint32((in>>9)&0x3) << 8
	imm |= uint32((in>>8)&0x1) << 10
	imm |= uint32((in>>7)&0x1) << 6
	imm |= uint32((in>>6)&0x1) << 7
	imm |= uint32((in>>3)&0x7) << 1
	imm |= uint32((in>>2)&0x1) << 5
	return signExtend(imm, 12)
}

func decodeCBImm(in uint16) int64 {
	var imm uint32
	imm |= uint32((in>>12)&0x1) << 8
	imm |= uint32((in>>10)&0x3) << 3
	imm |= uint32((in>>5)&0x3) << 6
	imm |= uint32((in>>3)&0x3) << 1
	imm |= uint32((in>>2)&0x1) << 5
	return signExtend(imm, 9)
}

func opCJ(c Core, a Args) { c.SetWantPC(uint64(int64(c.PC()) + a.Imm)) }

func opCJR(c Core, a Args) { c.SetWantPC(c.GPR(a.Rs1)) }

func opCJALR(c Core, a Args) {
	target := c.GPR(a.Rs1) &^ 1
	setGPR(c, a.Rd, c.PC()+2)
	c.SetWantPC(target)
}

func opCMV(c Core, a Args) { setGPR(c, a.Rd, c.GPR(a.Rs2)) }

// cBranch is branch for the 2-byte forms: the not-taken target is pc+2.
func cBranch(c Core, a Args, taken bool) {
	if taken {
		c.SetWantPC(uint64(int64(c.PC()) + a.Imm))
	} else {
		c.SetWantPC(c.PC() + 2)
	}
}

func opCBEQZ(c Core, a Args) { cBranch(c, a, c.GPR(a.Rs1) == 0) }
func opCBNEZ(c Core, a Args) { cBranch(c, a, c.GPR(a.Rs1) != 0) }
