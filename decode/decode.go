// Package decode dispatches a 16- or 32-bit RISC-V instruction word to a
// decoded instruction record (handler plus arguments), which the hart's
// block builder appends to its current block.
//
// Decode never imports the hart package: a handler only sees the narrow
// Core surface below, which the hart.Hart type implements. That keeps the
// hot fetch/decode/execute path a one-way dependency (hart depends on
// decode, never the reverse) and lets each opcode handler be written and
// tested as a pure function of (Core, Args).
package decode

import "github.com/bassosimone/rv64emu/memory"

// Core is everything a decoded instruction's Handler may touch. hart.Hart
// implements it; tests may supply a fake.
type Core interface {
	GPR(i uint32) uint64
	SetGPR(i uint32, v uint64)
	PC() uint64
	SetWantPC(pc uint64)
	Xlen() int

	CSR(addr uint16) uint64
	SetCSR(addr uint16, v uint64)
	Priv() int

	ReadMem(vaddr uint64, kind memory.AccessKind, size int) (uint64, error)
	WriteMem(vaddr uint64, kind memory.AccessKind, size int, v uint64) error

	SetReservation(phys uint64, length int)
	CheckReservation(phys uint64, length int) bool
	ClearReservation()

	RaiseTrap(cause memory.Exception, tval uint64)
	RaiseEcall()
	StopExec()
	StopTranslating()
	FlushBlocks()
}

// Args carries every field an opcode handler might need. Unused fields for
// a given opcode are simply left zero; this mirrors the single shared
// payload shape of the teacher's RRR/RRI/RI instruction formats, widened
// to RISC-V's larger field set.
type Args struct {
	Rd, Rs1, Rs2 uint32
	Imm          int64
	Shamt        uint32
	CSR          uint16
	Pred, Succ   uint32
	Width        int // access width in bytes, for load/store/AMO handlers
}

// Handler mutates Core; it never returns a value, matching spec.md's
// decoded-instruction record ("handler is a pure function of (hart, args)
// with no return value").
type Handler func(c Core, a Args)

// Instruction is the decoded-instruction record appended to a block.
type Instruction struct {
	IncBy   uint8
	Args    Args
	Handler Handler
}

// Decode16 dispatches a 16-bit compressed word. ok is false for an
// unrecognized encoding; the caller (the block builder) turns that into an
// illegal-instruction trap.
func Decode16(word uint16) (Instruction, bool) {
	return decodeCompressed(word)
}

// Decode32 dispatches a 32-bit word.
func Decode32(word uint32) (Instruction, bool) {
	return decode32(word)
}

// IsCompressed reports whether the low two bits of the first halfword
// indicate a 16-bit encoding, per spec.md section 4.2.
func IsCompressed(lowHalf uint16) bool {
	return lowHalf&0b11 != 0b11
}
