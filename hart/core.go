package hart

import "github.com/bassosimone/rv64emu/memory"

// This file implements decode.Core on *Hart: the narrow surface a decoded
// instruction's Handler is allowed to touch. decode never imports hart;
// the compiler checks that *Hart satisfies decode.Core where the executor
// passes h to a Handler (exec.go).

// GPR implements decode.Core.
func (h *Hart) GPR(i uint32) uint64 { return h.regs[i&0x1f] }

// SetGPR implements decode.Core. Register 0 is reinforced to zero by the
// executor after every instruction (spec.md Design Notes: "Register index
// 0"), not by this setter, so handlers may write it freely.
func (h *Hart) SetGPR(i uint32, v uint64) { h.regs[i&0x1f] = v }

// PC implements decode.Core.
func (h *Hart) PC() uint64 { return h.pc }

// SetWantPC implements decode.Core.
func (h *Hart) SetWantPC(pc uint64) { h.wantPC, h.haveWant = pc, true }

// Xlen implements decode.Core.
func (h *Hart) Xlen() int { return int(h.xlen) }

// Priv implements decode.Core.
func (h *Hart) Priv() int { return int(h.priv) }

// StopExec implements decode.Core.
func (h *Hart) StopExec() { h.stopExec = true }

// StopTranslating implements decode.Core.
func (h *Hart) StopTranslating() { h.stopTranslating = true }

// FlushBlocks implements decode.Core; invoked by fence.i per spec.md
// section 5's "conservative implementation flushes the entire block
// index" ordering guarantee.
func (h *Hart) FlushBlocks() {
	h.blocks = make(map[uint64][]*Block)
	h.tlb.flushAll()
}

// CSR implements decode.Core.
func (h *Hart) CSR(addr uint16) uint64 {
	switch addr {
	case csrSstatus:
		return h.csr[csrMstatus] & sstatusMask(h.xlen)
	default:
		return h.csr[addr&0xfff]
	}
}

// SetCSR implements decode.Core. mstatus (and its sstatus restriction)
// gets the fixup invariant from spec.md section 4.5: forbidden bits are
// cleared on every write, and sxl/uxl are forced to the machine's XLEN
// encoding.
func (h *Hart) SetCSR(addr uint16, v uint64) {
	switch addr {
	case csrMstatus:
		h.csr[csrMstatus] = fixupMstatus(v, h.xlen)
	case csrSstatus:
		// Writes through sstatus only affect the bits sstatus exposes;
		// the rest of mstatus is left untouched.
		mask := sstatusMask(h.xlen)
		merged := (h.csr[csrMstatus] &^ mask) | (v & mask)
		h.csr[csrMstatus] = fixupMstatus(merged, h.xlen)
	case csrSatp:
		h.csr[csrSatp] = v
		h.tlb.flushAll()
	default:
		h.csr[addr&0xfff] = v
	}
}

func sstatusMask(xlen Xlen) uint64 {
	mask := statusSIE | statusSPIE | statusSPP | statusSUM | statusMXR
	if xlen == Xlen64 {
		mask |= statusXLMask << statusUXLShift
	}
	return mask
}

// fixupMstatus implements spec.md section 4.5's mstatus fixup invariant.
func fixupMstatus(v uint64, xlen Xlen) uint64 {
	const bit6 = uint64(1) << 6
	v &^= bit6
	if xlen == Xlen64 {
		v &^= (uint64(1) << 36) | (uint64(1) << 37)
		mxl := uint64(2) // MXLEN=64 encoding
		v &^= statusXLMask << statusSXLShift
		v &^= statusXLMask << statusUXLShift
		v |= mxl << statusSXLShift
		v |= mxl << statusUXLShift
	}
	return v
}

// ReadMem implements decode.Core: translate then read, little-endian,
// width in {1,2,4,8} bytes.
func (h *Hart) ReadMem(vaddr uint64, kind memory.AccessKind, width int) (uint64, error) {
	phys, err := h.translate(vaddr, kind)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		v, err := memory.Read8(h.Mem, kind, phys)
		return uint64(v), err
	case 2:
		v, err := memory.Read16(h.Mem, kind, phys)
		return uint64(v), err
	case 4:
		v, err := memory.Read32(h.Mem, kind, phys)
		return uint64(v), err
	case 8:
		return memory.Read64(h.Mem, kind, phys)
	}
	panic("hart: unsupported read width")
}

// WriteMem implements decode.Core.
func (h *Hart) WriteMem(vaddr uint64, kind memory.AccessKind, width int, v uint64) error {
	phys, err := h.translate(vaddr, kind)
	if err != nil {
		return err
	}
	// Any store by this hart clears its own reservation, per spec.md
	// section 5's concurrency model, regardless of address.
	h.Resv.Valid = false
	switch width {
	case 1:
		return memory.Write8(h.Mem, phys, uint8(v))
	case 2:
		return memory.Write16(h.Mem, phys, uint16(v))
	case 4:
		return memory.Write32(h.Mem, phys, uint32(v))
	case 8:
		return memory.Write64(h.Mem, phys, v)
	}
	panic("hart: unsupported write width")
}

func (h *Hart) translate(vaddr uint64, kind memory.AccessKind) (uint64, error) {
	if phys, ok := h.tlb.lookup(vaddr, kind); ok {
		return phys, nil
	}
	phys, err := h.Walker.Translate(vaddr, kind, uint8(h.priv), h.csr[csrMstatus], h.csr[csrSatp])
	if err != nil {
		return 0, err
	}
	h.tlb.insert(vaddr, phys, kind)
	return phys, nil
}

// SetReservation implements decode.Core.
func (h *Hart) SetReservation(addr uint64, length int) {
	h.Resv = Reservation{Valid: true, Addr: addr, Length: length}
}

// CheckReservation implements decode.Core.
func (h *Hart) CheckReservation(addr uint64, length int) bool {
	return h.Resv.Valid && h.Resv.Addr == addr && h.Resv.Length == length
}

// ClearReservation implements decode.Core.
func (h *Hart) ClearReservation() { h.Resv.Valid = false }

// RaiseTrap implements decode.Core: record the pending trap and stop the
// current block. spec.md section 7: "handlers never return errors; they
// mutate the hart's trap slot and set stop_exec."
func (h *Hart) RaiseTrap(cause memory.Exception, tval uint64) {
	h.trap = &Trap{Cause: cause, TVal: tval}
	h.trapPC = h.pc
	h.stopExec = true
}

// RaiseEcall implements decode.Core: the environment-call cause depends on
// the current privilege level (spec.md section 4.6).
func (h *Hart) RaiseEcall() {
	var cause memory.Exception
	switch h.priv {
	case PrivUser:
		cause = memory.ExcEnvironmentCallFromUMode
	case PrivSupervisor:
		cause = memory.ExcEnvironmentCallFromSMode
	default:
		cause = memory.ExcEnvironmentCallFromMMode
	}
	h.RaiseTrap(cause, 0)
}
