package usermode

import "github.com/bassosimone/rv64emu/memory"

// unameFieldSize matches Linux's struct new_utsname field width (65 bytes
// per field, 6 fields).
const unameFieldSize = 65

// writeUname fills a struct utsname with static, plausible values; no
// host introspection is attempted.
func writeUname(mem memory.GuestMemory, addr uint64) error {
	fields := []string{"Linux", "rv64emu", "6.1.0", "#1 SMP", "riscv64", ""}
	var buf [unameFieldSize * 6]byte
	for i, s := range fields {
		copy(buf[i*unameFieldSize:], s)
	}
	return mem.WriteAt(addr, buf[:])
}
