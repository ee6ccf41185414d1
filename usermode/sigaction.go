package usermode

import (
	"github.com/bassosimone/rv64emu/memory"
	"github.com/bassosimone/rv64emu/signal"
)

// GetSigaction reads a struct kernel_sigaction from guest memory, honoring
// the RISC-V SA_RESTORER convention (spec.md section 4.6:
// "get_sigaction(addr) -> sigaction ... SA_RESTORER flag reserved as
// 0x04000000"), grounded on original_source's
// get_generic_sigaction_64(addr, MemEndian::Little, 0x04000000).
func GetSigaction(mem memory.GuestMemory, addr uint64) (signal.Sigaction, error) {
	var buf [32]byte
	if err := mem.ReadAt(addr, buf[:]); err != nil {
		return signal.Sigaction{}, err
	}
	act := signal.Sigaction{
		Handler: memory.Endian.Uint64(buf[0:]),
		Flags:   memory.Endian.Uint64(buf[8:]),
		Mask:    memory.Endian.Uint64(buf[16:]),
	}
	if act.Flags&signal.SARestorer != 0 {
		act.Restorer = memory.Endian.Uint64(buf[24:])
	}
	return act, nil
}

func putSigaction(mem memory.GuestMemory, addr uint64, act signal.Sigaction) error {
	var buf [32]byte
	memory.Endian.PutUint64(buf[0:], act.Handler)
	memory.Endian.PutUint64(buf[8:], act.Flags)
	memory.Endian.PutUint64(buf[16:], act.Mask)
	memory.Endian.PutUint64(buf[24:], act.Restorer)
	return mem.WriteAt(addr, buf[:])
}
