package decode

// Base opcode field (bits 6:2 of the instruction word), named the way
// LMMilewski-riscv-emu/decode.go names them.
type baseOpcode uint32

const (
	boLoad    baseOpcode = 0x00
	boMiscMem baseOpcode = 0x03
	boOpImm   baseOpcode = 0x04
	boAUIPC   baseOpcode = 0x05
	boOpImm32 baseOpcode = 0x06
	boStore   baseOpcode = 0x08
	boAMO     baseOpcode = 0x0b
	boOp      baseOpcode = 0x0c
	boLUI     baseOpcode = 0x0d
	boOp32    baseOpcode = 0x0e
	boBranch  baseOpcode = 0x18
	boJALR    baseOpcode = 0x19
	boJAL     baseOpcode = 0x1b
	boSystem  baseOpcode = 0x1c
)

// decode32 implements the table32 dispatch keyed by funct7|funct3|opcode>>2,
// the scheme used by rvi64Instructions in LMMilewski-riscv-emu/decode.go.
func decode32(in uint32) (Instruction, bool) {
	rd := (in >> 7) & 0x1f
	rs1 := (in >> 15) & 0x1f
	rs2 := (in >> 20) & 0x1f
	funct3 := (in >> 12) & 0x7
	funct7 := (in >> 25) & 0x7f
	bop := baseOpcode((in >> 2) & 0x1f)

	switch bop {
	case boLUI:
		return inst(Args{Rd: rd, Imm: int64(int32(in & 0xfffff000))}, opLUI), true
	case boAUIPC:
		return inst(Args{Rd: rd, Imm: int64(int32(in & 0xfffff000))}, opAUIPC), true
	case boJAL:
		imm := (in>>11)&0x100000 | in&0xff000 | (in>>9)&0x800 | (in>>20)&0x7fe
		i := inst(Args{Rd: rd, Imm: signExtend(imm, 21)}, opJAL)
		i.Handler = withStopTranslating(i.Handler)
		return i, true
	case boJALR:
		if funct3 != 0 {
			return Instruction{}, false
		}
		imm := in >> 20
		i := inst(Args{Rd: rd, Rs1: rs1, Imm: signExtend(imm, 12)}, opJALR)
		i.Handler = withStopTranslating(i.Handler)
		return i, true
	case boBranch:
		imm := (in>>19)&0x1000 | (in<<4)&0x800 | (in>>20)&0x7e0 | (in>>7)&0x1e
		a := Args{Rs1: rs1, Rs2: rs2, Imm: signExtend(imm, 13)}
		h, ok := branchHandlers[funct3]
		if !ok {
			return Instruction{}, false
		}
		i := inst(a, h)
		i.Handler = withStopTranslating(i.Handler)
		return i, true
	case boLoad:
		entry, ok := loadHandlers[funct3]
		if !ok {
			return Instruction{}, false
		}
		imm := in >> 20
		return inst(Args{Rd: rd, Rs1: rs1, Imm: signExtend(imm, 12), Width: entry.width}, entry.h), true
	case boStore:
		entry, ok := storeHandlers[funct3]
		if !ok {
			return Instruction{}, false
		}
		imm := (in>>20)&0xfe0 | (in>>7)&0x1f
		return inst(Args{Rs1: rs1, Rs2: rs2, Imm: signExtend(imm, 12), Width: entry.width}, entry.h), true
	case boOpImm, boOpImm32:
		return decodeOpImm(in, bop, rd, rs1, funct3, funct7)
	case boOp, boOp32:
		return decodeOp(in, bop, rd, rs1, rs2, funct3, funct7)
	case boMiscMem:
		switch funct3 {
		case 0:
			i := inst(Args{
				Pred: (in >> 24) & 0xf,
				Succ: (in >> 20) & 0xf,
			}, opFence)
			i.Handler = withStopTranslating(i.Handler)
			return i, true
		case 1:
			i := inst(Args{}, opFenceI)
			i.Handler = withStopTranslating(i.Handler)
			return i, true
		}
		return Instruction{}, false
	case boSystem:
		return decodeSystem(in, rd, rs1, funct3)
	case boAMO:
		return decodeAMO(in, rd, rs1, rs2, funct3, funct7)
	}
	return Instruction{}, false
}

func inst(a Args, h Handler) Instruction {
	return Instruction{IncBy: 4, Args: a, Handler: h}
}

func withStopTranslating(h Handler) Handler {
	return func(c Core, a Args) {
		h(c, a)
		c.StopTranslating()
	}
}

func signExtend(v uint32, bits uint) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift) >> shift)
}

var branchHandlers = map[uint32]Handler{
	0b000: opBEQ,
	0b001: opBNE,
	0b100: opBLT,
	0b101: opBGE,
	0b110: opBLTU,
	0b111: opBGEU,
}

var loadHandlers = map[uint32]struct {
	h     Handler
	width int
}{
	0b000: {opLoadSigned, 1},
	0b001: {opLoadSigned, 2},
	0b010: {opLoadSigned, 4},
	0b011: {opLoadSigned, 8},
	0b100: {opLoadUnsigned, 1},
	0b101: {opLoadUnsigned, 2},
	0b110: {opLoadUnsigned, 4},
}

var storeHandlers = map[uint32]struct {
	h     Handler
	width int
}{
	0b000: {opStore, 1},
	0b001: {opStore, 2},
	0b010: {opStore, 4},
	0b011: {opStore, 8},
}

func decodeOpImm(in uint32, bop baseOpcode, rd, rs1, funct3, funct7 uint32) (Instruction, bool) {
	imm := in >> 20
	width32 := bop == boOpImm32
	switch funct3 {
	case 0b000:
		h := opADDI
		if width32 {
			h = opADDIW
		}
		return inst(Args{Rd: rd, Rs1: rs1, Imm: signExtend(imm, 12)}, h), true
	case 0b010:
		if width32 {
			return Instruction{}, false
		}
		return inst(Args{Rd: rd, Rs1: rs1, Imm: signExtend(imm, 12)}, opSLTI), true
	case 0b011:
		if width32 {
			return Instruction{}, false
		}
		return inst(Args{Rd: rd, Rs1: rs1, Imm: signExtend(imm, 12)}, opSLTIU), true
	case 0b100:
		if width32 {
			return Instruction{}, false
		}
		return inst(Args{Rd: rd, Rs1: rs1, Imm: signExtend(imm, 12)}, opXORI), true
	case 0b110:
		if width32 {
			return Instruction{}, false
		}
		return inst(Args{Rd: rd, Rs1: rs1, Imm: signExtend(imm, 12)}, opORI), true
	case 0b111:
		if width32 {
			return Instruction{}, false
		}
		return inst(Args{Rd: rd, Rs1: rs1, Imm: signExtend(imm, 12)}, opANDI), true
	case 0b001:
		shamtMask := uint32(0x3f)
		h := opSLLI
		if width32 {
			shamtMask = 0x1f
			h = opSLLIW
		}
		return inst(Args{Rd: rd, Rs1: rs1, Shamt: (in >> 20) & shamtMask}, h), true
	case 0b101:
		shamtMask := uint32(0x3f)
		if width32 {
			shamtMask = 0x1f
		}
		arithmetic := funct7&0x20 != 0
		h := opSRLI
		if width32 {
			h = opSRLIW
		}
		if arithmetic {
			h = opSRAI
			if width32 {
				h = opSRAIW
			}
		}
		return inst(Args{Rd: rd, Rs1: rs1, Shamt: (in >> 20) & shamtMask}, h), true
	}
	return Instruction{}, false
}

func decodeOp(in uint32, bop baseOpcode, rd, rs1, rs2, funct3, funct7 uint32) (Instruction, bool) {
	width32 := bop == boOp32
	if funct7 != 0 && funct7 != 0x20 {
		return Instruction{}, false // M-extension encodings not implemented
	}
	sub := funct7 == 0x20
	a := Args{Rd: rd, Rs1: rs1, Rs2: rs2}
	switch funct3 {
	case 0b000:
		if sub {
			if width32 {
				return inst(a, opSUBW), true
			}
			return inst(a, opSUB), true
		}
		if width32 {
			return inst(a, opADDW), true
		}
		return inst(a, opADD), true
	case 0b001:
		if width32 {
			return inst(a, opSLLW), true
		}
		return inst(a, opSLL), true
	case 0b010:
		if width32 {
			return Instruction{}, false
		}
		return inst(a, opSLT), true
	case 0b011:
		if width32 {
			return Instruction{}, false
		}
		return inst(a, opSLTU), true
	case 0b100:
		if width32 {
			return Instruction{}, false
		}
		return inst(a, opXOR), true
	case 0b101:
		if sub {
			if width32 {
				return inst(a, opSRAW), true
			}
			return inst(a, opSRA), true
		}
		if width32 {
			return inst(a, opSRLW), true
		}
		return inst(a, opSRL), true
	case 0b110:
		if width32 {
			return Instruction{}, false
		}
		return inst(a, opOR), true
	case 0b111:
		if width32 {
			return Instruction{}, false
		}
		return inst(a, opAND), true
	}
	return Instruction{}, false
}

func decodeSystem(in uint32, rd, rs1, funct3 uint32) (Instruction, bool) {
	if funct3 == 0 {
		imm := in >> 20
		var h Handler
		switch imm {
		case 0:
			h = opECALL
		case 1:
			h = opEBREAK
		default:
			return Instruction{}, false
		}
		i := inst(Args{}, h)
		i.Handler = withStopTranslating(i.Handler)
		return i, true
	}
	csr := uint16(in >> 20)
	a := Args{Rd: rd, Rs1: rs1, CSR: csr}
	var h Handler
	switch funct3 {
	case 0b001:
		h = opCSRRW
	case 0b010:
		h = opCSRRS
	case 0b011:
		h = opCSRRC
	case 0b101:
		a.Imm = int64(rs1)
		h = opCSRRWI
	case 0b110:
		a.Imm = int64(rs1)
		h = opCSRRSI
	case 0b111:
		a.Imm = int64(rs1)
		h = opCSRRCI
	default:
		return Instruction{}, false
	}
	i := inst(a, h)
	i.Handler = withStopTranslating(i.Handler)
	return i, true
}

// decodeAMO implements only LR.W/D and SC.W/D, per SPEC_FULL.md section 4.9;
// the remainder of the A extension is left undecoded.
func decodeAMO(in uint32, rd, rs1, rs2, funct3, funct7 uint32) (Instruction, bool) {
	width := 4
	if funct3 == 0b011 {
		width = 8
	} else if funct3 != 0b010 {
		return Instruction{}, false
	}
	op5 := funct7 >> 2
	switch op5 {
	case 0b00010: // LR
		return inst(Args{Rd: rd, Rs1: rs1, Width: width}, opLR), true
	case 0b00011: // SC
		return inst(Args{Rd: rd, Rs1: rs1, Rs2: rs2, Width: width}, opSC), true
	}
	return Instruction{}, false
}
