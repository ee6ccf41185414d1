package hart

// enterTrap implements the trap engine of spec.md section 4.5: classify,
// consult delegation CSRs, update status/epc/cause/tval, redirect pc,
// change privilege.
func (h *Hart) enterTrap(t Trap) {
	// This emulator raises no interrupts (no interrupt controller is
	// modeled, see spec.md section 4.4 step 4 and the wfi Non-goal), so
	// every cause is an exception and the interrupt bit (bit XLEN-1,
	// spec.md section 4.5 step 1) is always clear here.
	cause := uint64(t.Cause)
	delegated := h.isDelegated(cause)

	prev := h.priv
	if delegated && h.priv != PrivMachine {
		h.deliverSupervisor(cause, t.TVal)
	} else {
		h.deliverMachine(cause, t.TVal)
	}
	// Translation depends on privilege, so cached entries do not survive
	// a privilege change.
	if h.priv != prev {
		h.tlb.flushAll()
	}
}

// isDelegated consults medeleg (spec.md section 4.5 step 2). mideleg is
// still stored in the CSR file for a guest that probes it, but nothing in
// this emulator raises an interrupt to delegate.
func (h *Hart) isDelegated(cause uint64) bool {
	if cause >= 64 {
		return false
	}
	return h.csr[csrMedeleg]&(uint64(1)<<cause) != 0
}

// deliverSupervisor implements spec.md section 4.5 step 3.
func (h *Hart) deliverSupervisor(cause, tval uint64) {
	stvec := h.csr[csrStvec]
	vectored := stvec&1 != 0 && cause&(uint64(1)<<63) != 0
	pc := stvec &^ 1
	if vectored {
		pc += 4 * (cause &^ (uint64(1) << 63))
	}

	h.csr[csrScause] = cause
	h.csr[csrSepc] = h.trapPC
	h.csr[csrStval] = tval

	status := h.csr[csrMstatus]
	sie := status & statusSIE
	status = (status &^ statusSPIE) | (sie << 4) // SIE(bit1) -> SPIE(bit5)
	if h.priv == PrivUser {
		status &^= statusSPP
	} else {
		status |= statusSPP
	}
	status &^= statusSIE
	h.csr[csrMstatus] = fixupMstatus(status, h.xlen)

	h.priv = PrivSupervisor
	h.pc = pc
}

// deliverMachine implements spec.md section 4.5 step 4.
func (h *Hart) deliverMachine(cause, tval uint64) {
	mtvec := h.csr[csrMtvec]
	vectored := mtvec&1 != 0 && cause&(uint64(1)<<63) != 0
	pc := mtvec &^ 1
	if vectored {
		pc += 4 * (cause &^ (uint64(1) << 63))
	}

	h.csr[csrMcause] = cause
	h.csr[csrMepc] = h.trapPC
	h.csr[csrMtval] = tval

	status := h.csr[csrMstatus]
	mie := status & statusMIE
	status = (status &^ statusMPIE) | (mie << 4) // MIE(bit3) -> MPIE(bit7)
	status &^= statusMPPMask
	status |= uint64(h.priv) << statusMPPShift
	status &^= statusMIE
	h.csr[csrMstatus] = fixupMstatus(status, h.xlen)

	h.priv = PrivMachine
	h.pc = pc
}
