package encoding

import (
	"testing"

	"github.com/bassosimone/rv64emu/decode"
	"github.com/stretchr/testify/assert"
)

// decodedFields pulls out the fields decode populates on an Args so the
// comparisons below don't depend on unexported Handler identity.
type decodedFields struct {
	incBy uint8
	rd    uint32
	rs1   uint32
	rs2   uint32
	imm   int64
}

func fields(instr decode.Instruction) decodedFields {
	return decodedFields{
		incBy: instr.IncBy,
		rd:    instr.Args.Rd,
		rs1:   instr.Args.Rs1,
		rs2:   instr.Args.Rs2,
		imm:   instr.Args.Imm,
	}
}

func TestRoundTripRType(t *testing.T) {
	enc := RType{Op: "add", Rd: 5, Rs1: 6, Rs2: 7, Funct3: 0, Funct7: 0, Opcode: 0x33}
	word, size, err := enc.Encode()
	assert.NoError(t, err)
	assert.Equal(t, 4, size)

	instr, ok := decode.Decode32(word)
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, decodedFields{incBy: 4, rd: 5, rs1: 6, rs2: 7, imm: 0}, got)
}

func TestRoundTripIType(t *testing.T) {
	enc := IType{Op: "addi", Rd: 3, Rs1: 4, Funct3: 0, Opcode: 0x13, Imm: -17}
	word, _, err := enc.Encode()
	assert.NoError(t, err)

	instr, ok := decode.Decode32(word)
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, decodedFields{incBy: 4, rd: 3, rs1: 4, imm: -17}, got)
}

func TestRoundTripIType_OutOfRange(t *testing.T) {
	enc := IType{Op: "addi", Rd: 1, Rs1: 1, Imm: 1 << 20}
	_, _, err := enc.Encode()
	assert.Error(t, err)
}

func TestRoundTripSType(t *testing.T) {
	enc := SType{Op: "sw", Rs1: 8, Rs2: 9, Funct3: 0b010, Opcode: 0x23, Imm: 40}
	word, _, err := enc.Encode()
	assert.NoError(t, err)

	instr, ok := decode.Decode32(word)
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, uint8(4), got.incBy)
	assert.Equal(t, uint32(8), got.rs1)
	assert.Equal(t, uint32(9), got.rs2)
	assert.Equal(t, int64(40), got.imm)
}

func TestRoundTripBType(t *testing.T) {
	enc := BType{Op: "beq", Rs1: 10, Rs2: 11, Funct3: 0b000, Imm: 64}
	word, _, err := enc.Encode()
	assert.NoError(t, err)

	instr, ok := decode.Decode32(word)
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, uint32(10), got.rs1)
	assert.Equal(t, uint32(11), got.rs2)
	assert.Equal(t, int64(64), got.imm)
}

func TestRoundTripUType(t *testing.T) {
	enc := UType{Op: "lui", Rd: 12, Opcode: 0x37, Imm: 0x12345000}
	word, _, err := enc.Encode()
	assert.NoError(t, err)

	instr, ok := decode.Decode32(word)
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, uint32(12), got.rd)
	assert.Equal(t, int64(0x12345000), got.imm)
}

func TestRoundTripJType(t *testing.T) {
	enc := JType{Rd: 1, Imm: 2048}
	word, _, err := enc.Encode()
	assert.NoError(t, err)

	instr, ok := decode.Decode32(word)
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, uint32(1), got.rd)
	assert.Equal(t, int64(2048), got.imm)
}

func TestRoundTripSystemType(t *testing.T) {
	enc := SystemType{Op: "ecall", Imm: 0}
	word, _, err := enc.Encode()
	assert.NoError(t, err)

	instr, ok := decode.Decode32(word)
	assert.True(t, ok)
	assert.Equal(t, uint8(4), instr.IncBy)
}

func TestRoundTripCSRType(t *testing.T) {
	enc := CSRType{Op: "csrrw", Rd: 1, Rs1: 2, Funct3: 0b001, CSR: 0x300}
	word, _, err := enc.Encode()
	assert.NoError(t, err)

	instr, ok := decode.Decode32(word)
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, uint32(1), got.rd)
	assert.Equal(t, uint32(2), got.rs1)
	assert.Equal(t, uint16(0x300), instr.Args.CSR)
}

func TestRoundTripCIType_Li(t *testing.T) {
	enc := CIType{Op: "c.li", Rd: 5, Imm: 1, Fn: 0b010}
	word, size, err := enc.Encode()
	assert.NoError(t, err)
	assert.Equal(t, 2, size)

	instr, ok := decode.Decode16(uint16(word))
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, uint8(2), got.incBy)
	assert.Equal(t, uint32(5), got.rd)
	assert.Equal(t, int64(1), got.imm)
}

func TestRoundTripCRType_Jr(t *testing.T) {
	enc := CRType{Op: "c.jr", Rd: 1, Rs2: 0, Fn: 0}
	word, size, err := enc.Encode()
	assert.NoError(t, err)
	assert.Equal(t, 2, size)

	instr, ok := decode.Decode16(uint16(word))
	assert.True(t, ok)
	assert.Equal(t, uint8(2), instr.IncBy)
	assert.Equal(t, uint32(1), instr.Args.Rs1)
}

func TestRoundTripCJType(t *testing.T) {
	enc := CJType{Imm: 16}
	word, size, err := enc.Encode()
	assert.NoError(t, err)
	assert.Equal(t, 2, size)

	instr, ok := decode.Decode16(uint16(word))
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, uint8(2), got.incBy)
	assert.Equal(t, int64(16), got.imm)
}

func TestRoundTripCBType_Beqz(t *testing.T) {
	enc := CBType{Op: "c.beqz", Rs1: 9, Imm: 32, Fn: 0b110}
	word, size, err := enc.Encode()
	assert.NoError(t, err)
	assert.Equal(t, 2, size)

	instr, ok := decode.Decode16(uint16(word))
	assert.True(t, ok)
	got := fields(instr)
	assert.Equal(t, uint8(2), got.incBy)
	assert.Equal(t, int64(32), got.imm)
}

func TestRoundTripCLSType_Sw(t *testing.T) {
	enc := CLSType{Op: "c.sw", Rdp: 9, Rs1p: 8, Imm: 4, Width: 4, Store: true}
	word, size, err := enc.Encode()
	assert.NoError(t, err)
	assert.Equal(t, 2, size)

	instr, ok := decode.Decode16(uint16(word))
	assert.True(t, ok)
	assert.Equal(t, uint8(2), instr.IncBy)
}
