// Package memory implements the guest-memory and address-translation
// collaborators that the hart's fetch/load/store paths depend on.
//
// GuestMemory is a flat, byte-addressable little-endian backing store.
// PageWalker translates a virtual address into a physical one, honoring
// the Sv39-shaped page table format and the privilege/SUM/MXR rules of
// the RISC-V privileged spec. Neither type knows anything about
// instructions, CSRs, or traps. The hart package drives translation;
// usermode, loader and signal also read and write GuestMemory directly.
package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// AccessKind distinguishes the three ways a hart can touch memory.
type AccessKind uint8

const (
	AccessFetch AccessKind = iota
	AccessLoad
	AccessStore
)

func (k AccessKind) String() string {
	switch k {
	case AccessFetch:
		return "fetch"
	case AccessLoad:
		return "load"
	case AccessStore:
		return "store"
	default:
		return "unknown"
	}
}

// Exception identifies the architectural cause of a Fault. The numeric
// values match the RISC-V privileged spec's exception codes so that
// Fault.Cause can be used directly when building a trap.
type Exception uint64

const (
	ExcInstructionAddressMisaligned Exception = 0
	ExcInstructionAccessFault       Exception = 1
	ExcIllegalInstruction           Exception = 2
	ExcBreakpoint                   Exception = 3
	ExcLoadAddressMisaligned        Exception = 4
	ExcLoadAccessFault              Exception = 5
	ExcStoreAddressMisaligned       Exception = 6
	ExcStoreAccessFault             Exception = 7
	ExcEnvironmentCallFromUMode     Exception = 8
	ExcEnvironmentCallFromSMode     Exception = 9
	ExcEnvironmentCallFromMMode     Exception = 11
	ExcInstructionPageFault         Exception = 12
	ExcLoadPageFault                Exception = 13
	ExcStorePageFault               Exception = 15
)

// Fault is returned by a failed translation or access. It carries enough
// information for the hart to build a Trap: the architectural cause and
// the faulting value to record in *tval.
type Fault struct {
	Cause Exception
	TVal  uint64
}

func (f Fault) Error() string {
	return fmt.Sprintf("memory fault: cause=%d tval=%#x", f.Cause, f.TVal)
}

// ErrOutOfRange indicates a physical address outside the backing store,
// independent of any architectural page-fault handling.
var ErrOutOfRange = errors.New("memory: address out of range")

// Endian is the byte order used for every guest-visible integer. RISC-V
// guests in this spec are always little-endian (see spec.md section 4.2).
var Endian = binary.LittleEndian

// GuestMemory is the minimal flat-addressed read/write surface the hart
// needs from a backing store. Implementations need not be goroutine-safe
// beyond what a single owning hart requires (see spec.md section 5).
type GuestMemory interface {
	ReadAt(phys uint64, p []byte) error
	WriteAt(phys uint64, p []byte) error
	Size() uint64
}

// FlatMemory is a contiguous byte slice implementing GuestMemory, the
// simplest possible backing store and the one used by every cmd/ entry
// point in this repository.
type FlatMemory struct {
	bytes []byte
}

// NewFlatMemory allocates a zeroed backing store of the given size.
func NewFlatMemory(size uint64) *FlatMemory {
	return &FlatMemory{bytes: make([]byte, size)}
}

var _ GuestMemory = (*FlatMemory)(nil)

func (m *FlatMemory) Size() uint64 { return uint64(len(m.bytes)) }

func (m *FlatMemory) bounds(phys uint64, n int) error {
	if phys > uint64(len(m.bytes)) || uint64(len(m.bytes))-phys < uint64(n) {
		return ErrOutOfRange
	}
	return nil
}

func (m *FlatMemory) ReadAt(phys uint64, p []byte) error {
	if err := m.bounds(phys, len(p)); err != nil {
		return err
	}
	copy(p, m.bytes[phys:])
	return nil
}

func (m *FlatMemory) WriteAt(phys uint64, p []byte) error {
	if err := m.bounds(phys, len(p)); err != nil {
		return err
	}
	copy(m.bytes[phys:], p)
	return nil
}

// Read8/16/32/64 and Write8/16/32/64 are convenience wrappers used
// throughout the hart package; they translate ErrOutOfRange into the
// access-fault Exception appropriate for the given AccessKind.
func faultFor(kind AccessKind, addr uint64, err error) error {
	if err == nil {
		return nil
	}
	var cause Exception
	switch kind {
	case AccessFetch:
		cause = ExcInstructionAccessFault
	case AccessStore:
		cause = ExcStoreAccessFault
	default:
		cause = ExcLoadAccessFault
	}
	return Fault{Cause: cause, TVal: addr}
}

func Read8(mem GuestMemory, kind AccessKind, phys uint64) (uint8, error) {
	var buf [1]byte
	if err := mem.ReadAt(phys, buf[:]); err != nil {
		return 0, faultFor(kind, phys, err)
	}
	return buf[0], nil
}

func Read16(mem GuestMemory, kind AccessKind, phys uint64) (uint16, error) {
	var buf [2]byte
	if err := mem.ReadAt(phys, buf[:]); err != nil {
		return 0, faultFor(kind, phys, err)
	}
	return Endian.Uint16(buf[:]), nil
}

func Read32(mem GuestMemory, kind AccessKind, phys uint64) (uint32, error) {
	var buf [4]byte
	if err := mem.ReadAt(phys, buf[:]); err != nil {
		return 0, faultFor(kind, phys, err)
	}
	return Endian.Uint32(buf[:]), nil
}

func Read64(mem GuestMemory, kind AccessKind, phys uint64) (uint64, error) {
	var buf [8]byte
	if err := mem.ReadAt(phys, buf[:]); err != nil {
		return 0, faultFor(kind, phys, err)
	}
	return Endian.Uint64(buf[:]), nil
}

func Write8(mem GuestMemory, phys uint64, v uint8) error {
	if err := mem.WriteAt(phys, []byte{v}); err != nil {
		return faultFor(AccessStore, phys, err)
	}
	return nil
}

func Write16(mem GuestMemory, phys uint64, v uint16) error {
	var buf [2]byte
	Endian.PutUint16(buf[:], v)
	if err := mem.WriteAt(phys, buf[:]); err != nil {
		return faultFor(AccessStore, phys, err)
	}
	return nil
}

func Write32(mem GuestMemory, phys uint64, v uint32) error {
	var buf [4]byte
	Endian.PutUint32(buf[:], v)
	if err := mem.WriteAt(phys, buf[:]); err != nil {
		return faultFor(AccessStore, phys, err)
	}
	return nil
}

func Write64(mem GuestMemory, phys uint64, v uint64) error {
	var buf [8]byte
	Endian.PutUint64(buf[:], v)
	if err := mem.WriteAt(phys, buf[:]); err != nil {
		return faultFor(AccessStore, phys, err)
	}
	return nil
}
