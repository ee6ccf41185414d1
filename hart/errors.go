package hart

import (
	"errors"
	"fmt"
)

// Sentinel errors, named in the teacher's ErrHalted/ErrNotPermitted style
// (bassosimone-risc32/pkg/vm.VM): Run's fatal-error taxonomy from
// spec.md section 7.
var (
	// ErrGuestExited is returned by Run when a user-mode guest calls
	// exit or exit_group; it is a normal, non-fatal termination.
	ErrGuestExited = errors.New("hart: guest exited")

	// ErrWaitForInterrupt is returned by Run when the Hart's WFI field is
	// set; no interrupt controller is modeled, so parking has nowhere to
	// resume from (spec.md section 4.4 step 4, "out of scope"). The
	// decoder does not recognize the wfi instruction itself (it decodes
	// as an illegal instruction), so only a caller setting WFI gets here.
	ErrWaitForInterrupt = errors.New("hart: wfi with no interrupt source")

	// ErrFatalUserTrap is returned when a user-mode hart takes any
	// trap other than an environment call; the user-mode runtime
	// implements no in-guest exception handling (spec.md section 4.4
	// step 1 and Design Notes "Trap vs fatal").
	ErrFatalUserTrap = errors.New("hart: fatal trap in user mode")
)

// FatalError wraps ErrFatalUserTrap (or any other terminal condition) with
// the trap detail that caused it, matching the teacher's fmt.Errorf(...,
// %w, ...) wrapping style.
type FatalError struct {
	Err   error
	Cause Trap
	PC    uint64
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: cause=%d tval=%#x pc=%#x", e.Err, e.Cause.Cause, e.Cause.TVal, e.PC)
}

func (e *FatalError) Unwrap() error { return e.Err }
