package hart

import "github.com/bassosimone/rv64emu/usermode"

// dispatchSyscall implements the syscall bridge of spec.md section 4.6:
// a7 carries the syscall number, a0..a5 the arguments; the primary result
// is written to a0 and, if present, a secondary value to a1.
func (h *Hart) dispatchSyscall() {
	in := usermode.SyscallIn{
		Num: h.regs[17],
		A0:  h.regs[10],
		A1:  h.regs[11],
		A2:  h.regs[12],
		A3:  h.regs[13],
		A4:  h.regs[14],
		A5:  h.regs[15],
	}
	out := usermode.Dispatch(h.Runtime, in)
	h.regs[10] = out.A0
	if out.HasA1 {
		h.regs[11] = out.A1
	}
	if out.Exit {
		h.exitRequested = true
		h.exitCode = out.A0
	}
}
