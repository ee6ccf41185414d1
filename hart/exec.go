package hart

import (
	"github.com/bassosimone/rv64emu/decode"
	"github.com/bassosimone/rv64emu/memory"
)

// Run enters the top-level loop of spec.md section 4.4. It returns only on
// a fatal emulator error, a clean guest exit (ErrGuestExited), or when the
// WFI field is set (ErrWaitForInterrupt).
func (h *Hart) Run() error {
	for {
		if h.WFI {
			return ErrWaitForInterrupt
		}
		h.stopExec = false

		if h.CacheEnabled {
			if err := h.runCached(); err != nil {
				return err
			}
		} else {
			h.runUncachedOne()
		}

		if h.trap != nil {
			if err := h.handlePendingTrap(); err != nil {
				return err
			}
		}

		if h.exitRequested {
			return ErrGuestExited
		}

		if h.SignalPending {
			h.deliverSignal()
		}

		if h.haveWant {
			h.pc = h.wantPC
			h.haveWant = false
		}

		if h.WFI {
			return ErrWaitForInterrupt
		}
	}
}

// runCached implements spec.md section 4.4's cached loop.
func (h *Hart) runCached() error {
	remaining := memory.PageSize - (h.pc % memory.PageSize)
	if remaining < 4 {
		h.CacheEnabled = false
		h.stopExec = true
		h.runUncachedOne()
		h.CacheEnabled = true
		return nil
	}
	phys, err := h.translate(h.pc, memory.AccessFetch)
	if err != nil {
		h.surfaceTranslationFault(err)
		return nil
	}
	b := h.checkBlock(phys)
	if b == nil {
		b = h.buildBlock(phys)
	}
	if b == nil {
		// Build produced nothing (e.g. immediate fetch fault); fall
		// back to a single uncached step so the fault surfaces.
		h.runUncachedOne()
		return nil
	}
	h.runBlock(b)
	return nil
}

func (h *Hart) runBlock(b *Block) {
	h.stopExec = false
	for _, instr := range b.Instrs {
		h.IsCompressed = instr.IncBy == 2
		instr.Handler(h, instr.Args)
		h.pc += uint64(instr.IncBy)
		h.regs[0] = 0
		if h.stopExec {
			break
		}
	}
}

// runUncachedOne implements spec.md section 4.4's uncached loop, one
// iteration (the top-level loop calls it repeatedly when the cache is
// disabled, and exactly once for a forced page-crossing step).
func (h *Hart) runUncachedOne() {
	phys, err := h.translate(h.pc, memory.AccessFetch)
	if err != nil {
		h.surfaceTranslationFault(err)
		return
	}
	lo, err := memory.Read16(h.Mem, memory.AccessFetch, phys)
	if err != nil {
		h.surfaceTranslationFault(err)
		return
	}
	var instr decode.Instruction
	var ok bool
	if decode.IsCompressed(lo) {
		instr, ok = decode.Decode16(lo)
	} else {
		physHi, herr := h.translate(h.pc+2, memory.AccessFetch)
		if herr != nil {
			h.surfaceTranslationFault(herr)
			return
		}
		hi, herr := memory.Read16(h.Mem, memory.AccessFetch, physHi)
		if herr != nil {
			h.surfaceTranslationFault(herr)
			return
		}
		word := uint32(lo) | uint32(hi)<<16
		instr, ok = decode.Decode32(word)
	}
	if !ok {
		h.RaiseTrap(memory.ExcIllegalInstruction, h.pc)
		return
	}
	h.IsCompressed = instr.IncBy == 2
	instr.Handler(h, instr.Args)
	h.pc += uint64(instr.IncBy)
	h.regs[0] = 0
}

func (h *Hart) surfaceTranslationFault(err error) {
	if f, ok := err.(memory.Fault); ok {
		h.RaiseTrap(f.Cause, f.TVal)
		return
	}
	h.RaiseTrap(memory.ExcInstructionAccessFault, h.pc)
}

// handlePendingTrap implements spec.md section 4.4 step 1.
func (h *Hart) handlePendingTrap() error {
	t := *h.trap
	h.trap = nil

	if h.Usermode {
		if isEcall(t.Cause) {
			h.dispatchSyscall()
			return nil
		}
		return &FatalError{Err: ErrFatalUserTrap, Cause: t, PC: h.trapPC}
	}
	h.enterTrap(t)
	return nil
}

func isEcall(cause memory.Exception) bool {
	switch cause {
	case memory.ExcEnvironmentCallFromUMode,
		memory.ExcEnvironmentCallFromSMode,
		memory.ExcEnvironmentCallFromMMode:
		return true
	}
	return false
}
