package usermode

import (
	"os"
	"time"

	"github.com/bassosimone/rv64emu/memory"
)

// SyscallIn is what the bridge extracts from a7/a0..a5 (spec.md section 4.6).
type SyscallIn struct {
	Num                    uint64
	A0, A1, A2, A3, A4, A5 uint64
}

// SyscallOut is written back to a0 and, if HasA1, a1.
type SyscallOut struct {
	A0    uint64
	A1    uint64
	HasA1 bool
	Exit  bool // the hart should stop Run with ErrGuestExited
}

// The architectural (riscv64 Linux) syscall numbers this bridge recognizes,
// grounded on original_source's riscv_translate_syscall table shape.
const (
	sysOpenat         = 56
	sysClose          = 57
	sysRead           = 63
	sysWrite          = 64
	sysFstat          = 80
	sysNewfstatat     = 79
	sysExit           = 93
	sysExitGroup      = 94
	sysSetTidAddress  = 96
	sysSetRobustList  = 99
	sysClockGettime   = 113
	sysRtSigaction    = 134
	sysUname          = 160
	sysGettimeofday   = 169
	sysSysinfo        = 179
	sysBrk            = 214
	sysMunmap         = 215
	sysMmap           = 222
)

const (
	errNOSYS = ^uint64(38) + 1 // -ENOSYS, two's complement
	errBADF  = ^uint64(9) + 1  // -EBADF
	errFAULT = ^uint64(14) + 1 // -EFAULT
)

// Dispatch runs the syscall named by the riscv64 number in in.Num and
// returns the values the hart writes back to a0 (and a1 when HasA1).
// There is no separate translation to a host-neutral enumeration: the
// switch below matches the riscv64 numbers directly, and any number it
// does not list returns the canonical -ENOSYS (spec.md section 7's
// "Unsupported syscall" taxonomy entry), never inventing behavior.
func Dispatch(rt *Runtime, in SyscallIn) SyscallOut {
	switch in.Num {
	case sysExit, sysExitGroup:
		return SyscallOut{A0: in.A0, Exit: true}
	case sysWrite:
		return rt.doWrite(in)
	case sysRead:
		return rt.doRead(in)
	case sysOpenat:
		return rt.doOpenat(in)
	case sysClose:
		return rt.doClose(in)
	case sysBrk:
		return rt.doBrk(in)
	case sysMmap:
		return rt.doMmap(in)
	case sysMunmap:
		return SyscallOut{A0: 0}
	case sysFstat, sysNewfstatat:
		return rt.doFstat(in)
	case sysSysinfo:
		return rt.doSysinfo(in)
	case sysRtSigaction:
		return rt.doRtSigaction(in)
	case sysUname:
		return rt.doUname(in)
	case sysGettimeofday, sysClockGettime:
		return rt.doClockGettime(in)
	case sysSetTidAddress:
		return SyscallOut{A0: 1}
	case sysSetRobustList:
		return SyscallOut{A0: 0}
	default:
		return SyscallOut{A0: errNOSYS}
	}
}

func (rt *Runtime) doWrite(in SyscallIn) SyscallOut {
	f, ok := rt.fileFor(int32(in.A0))
	if !ok {
		return SyscallOut{A0: errBADF}
	}
	buf := make([]byte, in.A2)
	if err := rt.mem.ReadAt(in.A1, buf); err != nil {
		return SyscallOut{A0: errFAULT}
	}
	n, err := f.Write(buf)
	if err != nil {
		return SyscallOut{A0: errFAULT}
	}
	return SyscallOut{A0: uint64(n)}
}

func (rt *Runtime) doRead(in SyscallIn) SyscallOut {
	f, ok := rt.fileFor(int32(in.A0))
	if !ok {
		return SyscallOut{A0: errBADF}
	}
	buf := make([]byte, in.A2)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return SyscallOut{A0: 0}
	}
	if werr := rt.mem.WriteAt(in.A1, buf[:n]); werr != nil {
		return SyscallOut{A0: errFAULT}
	}
	return SyscallOut{A0: uint64(n)}
}

func (rt *Runtime) doOpenat(in SyscallIn) SyscallOut {
	path, err := readCString(rt.mem, in.A1, 4096)
	if err != nil {
		return SyscallOut{A0: errFAULT}
	}
	f, oerr := os.Open(path)
	if oerr != nil {
		return SyscallOut{A0: errBADF}
	}
	return SyscallOut{A0: uint64(rt.allocFD(f))}
}

func (rt *Runtime) doClose(in SyscallIn) SyscallOut {
	fd := int32(in.A0)
	f, ok := rt.fileFor(fd)
	if !ok {
		return SyscallOut{A0: errBADF}
	}
	if fd > 2 {
		_ = f.Close()
		delete(rt.fds, fd)
	}
	return SyscallOut{A0: 0}
}

// doBrk implements the brk syscall: grows/shrinks the break without any
// host mmap of guest address space, since guest memory is already a flat
// Go byte slice (SPEC_FULL.md section 4.10).
func (rt *Runtime) doBrk(in SyscallIn) SyscallOut {
	if in.A0 == 0 {
		return SyscallOut{A0: rt.brk}
	}
	if in.A0 >= rt.mmapNext {
		return SyscallOut{A0: rt.brk}
	}
	rt.brk = in.A0
	return SyscallOut{A0: rt.brk}
}

// doMmap implements an anonymous bump allocator; no file-backed mapping is
// attempted (this spec's Non-goals exclude MMIO/device emulation and no
// filesystem-backed mmap is named by any testable property).
func (rt *Runtime) doMmap(in SyscallIn) SyscallOut {
	length := (in.A1 + uint64(memory.PageSize) - 1) &^ uint64(memory.PageMask)
	if length == 0 {
		length = memory.PageSize
	}
	addr := rt.mmapNext
	rt.mmapNext += length
	return SyscallOut{A0: addr}
}

func (rt *Runtime) doFstat(in SyscallIn) SyscallOut {
	var addr uint64
	var fd int32
	if in.Num == sysFstat {
		fd, addr = int32(in.A0), in.A1
	} else {
		fd, addr = int32(in.A1), in.A2
	}
	if _, ok := rt.fileFor(fd); !ok {
		return SyscallOut{A0: errBADF}
	}
	if err := WriteStat(rt.mem, addr, DefaultStat()); err != nil {
		return SyscallOut{A0: errFAULT}
	}
	return SyscallOut{A0: 0}
}

func (rt *Runtime) doSysinfo(in SyscallIn) SyscallOut {
	if err := WriteSysinfo(rt.mem, in.A0, DefaultSysinfo()); err != nil {
		return SyscallOut{A0: errFAULT}
	}
	return SyscallOut{A0: 0}
}

func (rt *Runtime) doRtSigaction(in SyscallIn) SyscallOut {
	signum := int32(in.A0)
	if in.A1 != 0 {
		act, err := GetSigaction(rt.mem, in.A1)
		if err != nil {
			return SyscallOut{A0: errFAULT}
		}
		old := rt.Signals.SetAction(signum, act)
		if in.A2 != 0 {
			if werr := putSigaction(rt.mem, in.A2, old); werr != nil {
				return SyscallOut{A0: errFAULT}
			}
		}
		return SyscallOut{A0: 0}
	}
	if in.A2 != 0 {
		old := rt.Signals.Action(signum)
		if werr := putSigaction(rt.mem, in.A2, old); werr != nil {
			return SyscallOut{A0: errFAULT}
		}
	}
	return SyscallOut{A0: 0}
}

func (rt *Runtime) doUname(in SyscallIn) SyscallOut {
	if err := writeUname(rt.mem, in.A0); err != nil {
		return SyscallOut{A0: errFAULT}
	}
	return SyscallOut{A0: 0}
}

func (rt *Runtime) doClockGettime(in SyscallIn) SyscallOut {
	now := time.Now()
	sec := uint64(now.Unix())
	nsec := uint64(now.Nanosecond())
	addr := in.A1
	if in.Num == 169 { // gettimeofday: {sec,usec} at a0
		addr = in.A0
		nsec /= 1000
	}
	if err := memory.Write64(rt.mem, addr, sec); err != nil {
		return SyscallOut{A0: errFAULT}
	}
	if err := memory.Write64(rt.mem, addr+8, nsec); err != nil {
		return SyscallOut{A0: errFAULT}
	}
	return SyscallOut{A0: 0}
}

func readCString(mem memory.GuestMemory, addr uint64, max int) (string, error) {
	var buf []byte
	var b [1]byte
	for i := 0; i < max; i++ {
		if err := mem.ReadAt(addr+uint64(i), b[:]); err != nil {
			return "", err
		}
		if b[0] == 0 {
			break
		}
		buf = append(buf, b[0])
	}
	return string(buf), nil
}
