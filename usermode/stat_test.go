package usermode

import (
	"testing"

	"github.com/bassosimone/rv64emu/memory"
	"github.com/stretchr/testify/assert"
)

func TestStatRoundTrip(t *testing.T) {
	mem := memory.NewFlatMemory(4096)
	s := Stat{
		Dev: 1, Ino: 2, Mode: 0100644, Nlink: 1, UID: 1000, GID: 1000,
		Rdev: 0, Size: 4096, Blksize: 4096, Blocks: 8,
		Atime: 100, AtimeNsec: 1, Mtime: 200, MtimeNsec: 2, Ctime: 300, CtimeNsec: 3,
	}
	assert.NoError(t, WriteStat(mem, 0x100, s))

	got, err := ReadStat(mem, 0x100)
	assert.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSysinfoRoundTrip(t *testing.T) {
	mem := memory.NewFlatMemory(4096)
	s := DefaultSysinfo()
	assert.NoError(t, WriteSysinfo(mem, 0x200, s))

	var buf [SysinfoSize]byte
	assert.NoError(t, mem.ReadAt(0x200, buf[:]))
	assert.Equal(t, s.TotalRAM, memory.Endian.Uint64(buf[32:]))
	assert.Equal(t, s.Procs, uint16(memory.Endian.Uint16(buf[80:])))
}

func TestSigactionRoundTrip(t *testing.T) {
	mem := memory.NewFlatMemory(4096)
	rt := NewRuntime(mem, 0x1000, 0x2000)
	in := SyscallIn{Num: sysRtSigaction, A0: 11, A1: 0x300, A2: 0}

	var buf [32]byte
	memory.Endian.PutUint64(buf[0:], 0xdeadbeef)
	memory.Endian.PutUint64(buf[8:], 0)
	memory.Endian.PutUint64(buf[16:], 0xff)
	assert.NoError(t, mem.WriteAt(0x300, buf[:]))

	out := Dispatch(rt, in)
	assert.Equal(t, uint64(0), out.A0)

	act := rt.Signals.Action(11)
	assert.Equal(t, uint64(0xdeadbeef), act.Handler)
	assert.Equal(t, uint64(0xff), act.Mask)
}

func TestUnsupportedSyscallReturnsENOSYS(t *testing.T) {
	mem := memory.NewFlatMemory(4096)
	rt := NewRuntime(mem, 0x1000, 0x2000)
	out := Dispatch(rt, SyscallIn{Num: 0xffff})
	assert.Equal(t, errNOSYS, out.A0)
}
