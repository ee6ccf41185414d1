package usermode

import "github.com/bassosimone/rv64emu/memory"

// Sysinfo mirrors Linux's struct sysinfo with 64-bit fields, the layout
// spec.md section 6 specifies for XLEN=64 guests.
type Sysinfo struct {
	Uptime   int64
	Loads    [3]uint64
	TotalRAM uint64
	FreeRAM  uint64
	SharedRAM uint64
	BufferRAM uint64
	TotalSwap uint64
	FreeSwap  uint64
	Procs     uint16
	TotalHigh uint64
	FreeHigh  uint64
	MemUnit  uint32
}

// DefaultSysinfo reports a single-process, swap-less system with a modest
// amount of RAM; no real host introspection is attempted.
func DefaultSysinfo() Sysinfo {
	const oneGiB = uint64(1) << 30
	return Sysinfo{TotalRAM: oneGiB, FreeRAM: oneGiB, Procs: 1, MemUnit: 1}
}

// SysinfoSize is the wire size of the struct on a 64-bit guest: 4 longs
// header-adjacent fields plus padding, matching glibc's layout.
const SysinfoSize = 112

// WriteSysinfo lays out a Sysinfo in guest memory, little-endian,
// matching spec.md section 4.6's write_sysinfo hook.
func WriteSysinfo(mem memory.GuestMemory, addr uint64, s Sysinfo) error {
	var buf [SysinfoSize]byte
	put64 := func(off int, v uint64) { memory.Endian.PutUint64(buf[off:], v) }
	put16 := func(off int, v uint16) { memory.Endian.PutUint16(buf[off:], v) }

	put64(0, uint64(s.Uptime))
	put64(8, s.Loads[0])
	put64(16, s.Loads[1])
	put64(24, s.Loads[2])
	put64(32, s.TotalRAM)
	put64(40, s.FreeRAM)
	put64(48, s.SharedRAM)
	put64(56, s.BufferRAM)
	put64(64, s.TotalSwap)
	put64(72, s.FreeSwap)
	put16(80, s.Procs)
	put64(88, s.TotalHigh)
	put64(96, s.FreeHigh)
	memory.Endian.PutUint32(buf[104:], s.MemUnit)

	return mem.WriteAt(addr, buf[:])
}
