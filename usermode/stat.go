package usermode

import "github.com/bassosimone/rv64emu/memory"

// Stat mirrors the RISC-V Linux 128-byte stat layout named in spec.md
// section 6, field order: dev, ino, mode, nlink, uid, gid, rdev, __pad,
// size, blksize, __pad2, blocks, atime{,_nsec}, mtime{,_nsec},
// ctime{,_nsec}, __unused x2.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint32
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Blksize int32
	Blocks  int64
	Atime   int64
	AtimeNsec int64
	Mtime   int64
	MtimeNsec int64
	Ctime   int64
	CtimeNsec int64
}

// DefaultStat describes a regular file with benign metadata, used for fds
// this spec does not model a real filesystem entry for.
func DefaultStat() Stat {
	return Stat{Mode: 0100644, Nlink: 1, Blksize: 4096}
}

// StatSize is the wire size of the RISC-V stat structure.
const StatSize = 128

// WriteStat lays out a Stat in guest memory, little-endian, matching
// spec.md section 4.6's write_stat hook.
func WriteStat(mem memory.GuestMemory, addr uint64, s Stat) error {
	var buf [StatSize]byte
	put64 := func(off int, v uint64) { memory.Endian.PutUint64(buf[off:], v) }
	put32 := func(off int, v uint32) { memory.Endian.PutUint32(buf[off:], v) }

	put64(0, s.Dev)
	put64(8, s.Ino)
	put32(16, s.Mode)
	put32(20, s.Nlink)
	put32(24, s.UID)
	put32(28, s.GID)
	put64(32, s.Rdev)
	// bytes 40-47: __pad1, left zero
	put64(48, uint64(s.Size))
	put32(56, uint32(s.Blksize))
	// bytes 60-63: __pad2, left zero
	put64(64, uint64(s.Blocks))
	put64(72, uint64(s.Atime))
	put64(80, uint64(s.AtimeNsec))
	put64(88, uint64(s.Mtime))
	put64(96, uint64(s.MtimeNsec))
	put64(104, uint64(s.Ctime))
	put64(112, uint64(s.CtimeNsec))
	// bytes 120-127: __unused x2, left zero

	return mem.WriteAt(addr, buf[:])
}

// ReadStat is the inverse of WriteStat, used only by tests to exercise the
// round-trip property SPEC_FULL.md section 10 names.
func ReadStat(mem memory.GuestMemory, addr uint64) (Stat, error) {
	var buf [StatSize]byte
	if err := mem.ReadAt(addr, buf[:]); err != nil {
		return Stat{}, err
	}
	get64 := func(off int) uint64 { return memory.Endian.Uint64(buf[off:]) }
	get32 := func(off int) uint32 { return memory.Endian.Uint32(buf[off:]) }
	return Stat{
		Dev:       get64(0),
		Ino:       get64(8),
		Mode:      get32(16),
		Nlink:     get32(20),
		UID:       get32(24),
		GID:       get32(28),
		Rdev:      get64(32),
		Size:      int64(get64(48)),
		Blksize:   int32(get32(56)),
		Blocks:    int64(get64(64)),
		Atime:     int64(get64(72)),
		AtimeNsec: int64(get64(80)),
		Mtime:     int64(get64(88)),
		MtimeNsec: int64(get64(96)),
		Ctime:     int64(get64(104)),
		CtimeNsec: int64(get64(112)),
	}, nil
}
