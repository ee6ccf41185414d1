package hart

// deliverSignal implements spec.md section 4.7's SIG component: consult
// the pending-signal flag, build a return frame on the guest stack, and
// retarget pc to the registered handler. Per the REDESIGN FLAGS
// resolution, SignalPending/PendingSignal live on the Hart rather than in
// a thread-local, since one hart is owned by exactly one goroutine.
func (h *Hart) deliverSignal() {
	info := h.PendingSignal
	h.SignalPending = false

	if h.Signals == nil {
		return
	}
	action := h.Signals.Action(info.Signum)
	if action.Handler == 0 {
		return
	}
	frame := h.Signals.BuildFrame(action, info, h.pc, h.regs[2])
	h.regs[2] = frame.NewSP
	h.pc = action.Handler
	// Blocking of further signals while the handler runs (the Mask
	// field round-tripped by rt_sigaction) is not implemented, matching
	// the gap left open in original_source's own signal delivery path.
}

// Raise marks a signal pending for delivery at the next block boundary,
// the polling entry point the host side of a cmd/ front end uses to
// inject an asynchronous signal (e.g. forwarded SIGINT).
func (h *Hart) Raise(signum int32) {
	h.SignalPending = true
	h.PendingSignal.Signum = signum
}
