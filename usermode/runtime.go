// Package usermode implements the Linux user-mode runtime behind SYS
// (spec.md sections 4.6 and 6): brk/mmap bookkeeping, a host fd table, and
// syscall dispatch, plus the architecture-specific marshalling hooks
// (stat, sysinfo, sigaction) spec.md names explicitly.
package usermode

import (
	"os"

	"github.com/bassosimone/rv64emu/memory"
	"github.com/bassosimone/rv64emu/signal"
)

// AuxEntry is one ELF auxiliary-vector entry, kept here because Runtime is
// the natural owner of process-image state. loader.Load writes its auxv to
// the initial stack as raw words and does not use this type, and nothing
// in this package reads Runtime.Auxv.
type AuxEntry struct {
	Type  uint64
	Value uint64
}

// Runtime owns everything a user-mode hart's syscalls read or mutate.
type Runtime struct {
	mem memory.GuestMemory

	brk      uint64
	brkBase  uint64
	mmapNext uint64

	fds    map[int32]*os.File
	nextFD int32

	Auxv    []AuxEntry
	Argv    []string
	Envp    []string
	Signals *signal.Table
}

// NewRuntime constructs a Runtime. brkBase is typically the first page
// above the loaded ELF image's highest segment; mmapBase starts the mmap
// arena and also caps brk, which never grows to mmapBase or beyond.
func NewRuntime(mem memory.GuestMemory, brkBase, mmapBase uint64) *Runtime {
	rt := &Runtime{
		mem:      mem,
		brk:      brkBase,
		brkBase:  brkBase,
		mmapNext: mmapBase,
		fds:      make(map[int32]*os.File),
		nextFD:   3,
		Signals:  signal.NewTable(mem),
	}
	rt.fds[0] = os.Stdin
	rt.fds[1] = os.Stdout
	rt.fds[2] = os.Stderr
	return rt
}

// Memory returns the guest memory backing this runtime, used by
// hart.InitUserMode to seed the hart's own Mem field.
func (rt *Runtime) Memory() memory.GuestMemory { return rt.mem }

func (rt *Runtime) allocFD(f *os.File) int32 {
	fd := rt.nextFD
	rt.nextFD++
	rt.fds[fd] = f
	return fd
}

func (rt *Runtime) fileFor(fd int32) (*os.File, bool) {
	f, ok := rt.fds[fd]
	return f, ok
}
