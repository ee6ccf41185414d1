// Package signal implements the per-process signal action table and
// return-frame construction behind SIG (spec.md section 4.7).
//
// The original source kept the pending-signal flag and its payload in
// thread-locals (SIGNAL_AVAIL/SINFO); this package only owns the
// process-wide action table, while the per-hart pending flag lives
// directly on hart.Hart (see SPEC_FULL.md's REDESIGN FLAGS).
package signal

import "github.com/bassosimone/rv64emu/memory"

// NumSignals matches Linux's full signal range (1..64).
const NumSignals = 64

// SA_RESTORER, the RISC-V Linux sigaction flag bit this spec's rt_sigaction
// handler recognizes (spec.md section 4.6's marshalling hooks).
const SARestorer = 0x04000000

// Info carries the payload of a pending signal.
type Info struct {
	Signum int32
	Code   int32
	Addr   uint64
}

// Sigaction mirrors struct kernel_sigaction as written by rt_sigaction.
type Sigaction struct {
	Handler  uint64
	Flags    uint64
	Restorer uint64
	Mask     uint64
}

// Frame describes the effect of delivering a signal onto the guest stack.
type Frame struct {
	NewSP uint64
}

// Table holds the process-wide sigaction array.
type Table struct {
	actions [NumSignals]Sigaction
	Mem     memory.GuestMemory
}

// NewTable constructs an all-default (SIG_DFL) action table.
func NewTable(mem memory.GuestMemory) *Table {
	return &Table{Mem: mem}
}

// Action returns the registered action for a 1-indexed signal number.
func (t *Table) Action(signum int32) Sigaction {
	if signum <= 0 || int(signum) > NumSignals {
		return Sigaction{}
	}
	return t.actions[signum-1]
}

// SetAction installs a new action, returning the previous one (the shape
// rt_sigaction needs to implement oldact).
func (t *Table) SetAction(signum int32, act Sigaction) Sigaction {
	if signum <= 0 || int(signum) > NumSignals {
		return Sigaction{}
	}
	old := t.actions[signum-1]
	t.actions[signum-1] = act
	return old
}

// BuildFrame writes a minimal RISC-V signal-delivery frame onto the guest
// stack below sp and returns the new stack pointer. This spec implements
// only the bookkeeping the executor needs to retarget pc (spec.md section
// 4.7: "an external frame-builder that writes the signal frame onto the
// guest stack and retargets pc"); the psABI's full ucontext/siginfo layout
// is explicitly out of scope (spec.md section 6, "out of scope here").
func (t *Table) BuildFrame(act Sigaction, info Info, returnPC, sp uint64) Frame {
	const frameSize = 16
	newSP := (sp - frameSize) &^ 0xf
	if t.Mem != nil {
		_ = memory.Write64(t.Mem, newSP, returnPC)
		_ = memory.Write64(t.Mem, newSP+8, uint64(info.Signum))
	}
	return Frame{NewSP: newSP}
}
