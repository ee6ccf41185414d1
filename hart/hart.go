// Package hart implements the fetch/decode/execute loop, the basic-block
// cache, and the trap/privilege machinery described in SPEC_FULL.md
// sections 3 and 4.1-4.7. It is the core this repository exists to build;
// memory, decode, usermode, and signal are its external collaborators.
package hart

import (
	"github.com/bassosimone/rv64emu/decode"
	"github.com/bassosimone/rv64emu/memory"
	"github.com/bassosimone/rv64emu/signal"
	"github.com/bassosimone/rv64emu/usermode"
)

// Xlen is the architectural integer width, fixed at construction.
type Xlen int

const (
	Xlen32 Xlen = 32
	Xlen64 Xlen = 64
)

// Priv is a privilege level. The numeric values match the MPP/SPP
// encoding used throughout the trap engine (2 is reserved and unused).
type Priv uint8

const (
	PrivUser       Priv = 0
	PrivSupervisor Priv = 1
	PrivMachine    Priv = 3
)

func (p Priv) String() string {
	switch p {
	case PrivUser:
		return "U"
	case PrivSupervisor:
		return "S"
	case PrivMachine:
		return "M"
	default:
		return "?"
	}
}

// CSR addresses for the fixed set spec.md section 3 names as semantically
// active; every other entry in the 4096-wide file reads/writes as plain
// storage.
const (
	csrSstatus = 0x100
	csrSie     = 0x104
	csrStvec   = 0x105
	csrSepc    = 0x141
	csrScause  = 0x142
	csrStval   = 0x143
	csrSip     = 0x144
	csrSatp    = 0x180

	csrMstatus = 0x300
	csrMedeleg = 0x302
	csrMideleg = 0x303
	csrMie     = 0x304
	csrMtvec   = 0x305
	csrMepc    = 0x341
	csrMcause  = 0x342
	csrMtval   = 0x343
	csrMip     = 0x344
)

// mstatus/sstatus bit positions used by the trap engine and CSR fixups.
const (
	statusSIE      = uint64(1) << 1
	statusMIE      = uint64(1) << 3
	statusSPIE     = uint64(1) << 5
	statusMPIE     = uint64(1) << 7
	statusSPP      = uint64(1) << 8
	statusMPPShift = 11
	statusMPPMask  = uint64(0x3) << statusMPPShift
	statusSUM      = uint64(1) << 18
	statusMXR      = uint64(1) << 19
	statusUXLShift = 32
	statusSXLShift = 34
	statusXLMask   = uint64(0x3)
)

// Reservation is the LR/SC record, per spec.md section 3.
type Reservation struct {
	Valid  bool
	Addr   uint64
	Length int
}

// Trap is the uniform structure EXEC threads through to TRAP/SYS.
type Trap struct {
	Cause memory.Exception
	TVal  uint64
}

// Block is a run of decoded instructions within a single physical page,
// per spec.md's Data Model.
type Block struct {
	Begin  uint64
	End    uint64
	Instrs []decode.Instruction
}

// Hart is a single RISC-V hardware thread. It is not goroutine safe;
// exactly one goroutine should drive Run (see SPEC_FULL.md section 5).
//
// Field names are unexported where an identically-named accessor method
// exists (GPR, PC, Priv, CSR, ...), since decode.Core requires those
// method names and Go forbids a field and method sharing a selector.
type Hart struct {
	regs [32]uint64
	fpr  [32]uint64 // reserved; no floating-point semantics implemented

	pc       uint64
	wantPC   uint64
	haveWant bool
	trapPC   uint64

	csr  [4096]uint64
	priv Priv
	xlen Xlen

	Resv Reservation

	IsCompressed    bool
	stopExec        bool
	stopTranslating bool
	CacheEnabled    bool
	WFI             bool
	Usermode        bool

	Mem    memory.GuestMemory
	Walker memory.PageWalker
	tlb    tlbCache

	Runtime *usermode.Runtime

	Signals       *signal.Table
	SignalPending bool
	PendingSignal signal.Info

	blocks map[uint64][]*Block

	trap *Trap

	exitRequested bool
	exitCode      uint64
}

// ExitCode returns the guest's requested exit status after Run has
// returned ErrGuestExited; it is meaningless otherwise.
func (h *Hart) ExitCode() uint64 { return h.exitCode }

// InitSystemMode constructs a hart for bare-machine (privileged) execution:
// privilege starts at Machine, all CSRs zero, per spec.md's "Produced"
// interface list.
func InitSystemMode(xlen Xlen, mem memory.GuestMemory) *Hart {
	h := newHart(xlen, mem)
	h.priv = PrivMachine
	h.Usermode = false
	return h
}

// InitUserMode constructs a hart for Linux user-mode emulation. Per the
// REDESIGN FLAGS resolution in SPEC_FULL.md, privilege is set directly to
// User rather than replicating the original's Machine-with-usermode-flag
// convention; Usermode continues to select "is a non-ecall trap fatal" at
// the top-level loop.
func InitUserMode(xlen Xlen, rt *usermode.Runtime) *Hart {
	h := newHart(xlen, rt.Memory())
	h.priv = PrivUser
	h.Usermode = true
	h.Runtime = rt
	h.Signals = rt.Signals
	return h
}

func newHart(xlen Xlen, mem memory.GuestMemory) *Hart {
	return &Hart{
		xlen:         xlen,
		Mem:          mem,
		Walker:       memory.Sv39Walker{Mem: mem},
		CacheEnabled: true,
		blocks:       make(map[uint64][]*Block),
	}
}

// SetPC seeds the program counter; used by cmd/ entry points after loading
// a program image, before the first call to Run.
func (h *Hart) SetPC(pc uint64) { h.pc = pc }

// SetXRegister seeds a general-purpose register; used by cmd/ entry points
// and tests to set up initial state before Run.
func (h *Hart) SetXRegister(i uint32, v uint64) { h.regs[i&0x1f] = v }

// XRegister reads a general-purpose register without going through the
// decode.Core selector name, for tests and cmd/ entry points.
func (h *Hart) XRegister(i uint32) uint64 { return h.regs[i&0x1f] }

// PrivLevel exposes the current privilege level as a Priv, for tests and
// cmd/ entry points (decode.Core's Priv() returns a plain int instead).
func (h *Hart) PrivLevel() Priv { return h.priv }

// ProgramCounter exposes pc as a plain getter alongside the decode.Core
// PC() method, named distinctly to avoid ambiguity in doc comments.
func (h *Hart) ProgramCounter() uint64 { return h.pc }
