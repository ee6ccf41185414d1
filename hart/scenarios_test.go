package hart

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/bassosimone/rv64emu/encoding"
	"github.com/bassosimone/rv64emu/memory"
	"github.com/bassosimone/rv64emu/usermode"
	"github.com/stretchr/testify/assert"
)

func write32(t *testing.T, mem memory.GuestMemory, phys uint64, enc encoding.Instruction) {
	t.Helper()
	word, size, err := enc.Encode()
	assert.NoError(t, err)
	assert.Equal(t, 4, size)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], word)
	assert.NoError(t, mem.WriteAt(phys, buf[:]))
}

func write16(t *testing.T, mem memory.GuestMemory, phys uint64, enc encoding.Instruction) {
	t.Helper()
	word, size, err := enc.Encode()
	assert.NoError(t, err)
	assert.Equal(t, 2, size)
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(word))
	assert.NoError(t, mem.WriteAt(phys, buf[:]))
}

// Scenario 1: ADDI sanity.
func TestScenarioADDISanity(t *testing.T) {
	mem := memory.NewFlatMemory(1 << 20)
	rt := usermode.NewRuntime(mem, 0x10000, 0x20000)
	h := InitUserMode(Xlen64, rt)

	write32(t, mem, 0x1000, encoding.IType{Op: "addi", Rd: 1, Rs1: 0, Funct3: 0, Opcode: 0x13, Imm: 5})
	write32(t, mem, 0x1004, encoding.IType{Op: "addi", Rd: 2, Rs1: 1, Funct3: 0, Opcode: 0x13, Imm: -1})
	write32(t, mem, 0x1008, encoding.SystemType{Op: "ecall", Imm: 0})

	h.SetPC(0x1000)
	h.SetXRegister(10, 0)  // a0: exit code
	h.SetXRegister(17, 93) // a7: exit

	err := h.Run()
	assert.True(t, errors.Is(err, ErrGuestExited))
	assert.Equal(t, uint64(0), h.ExitCode())
	assert.Equal(t, uint64(5), h.XRegister(1))
	assert.Equal(t, uint64(4), h.XRegister(2))
}

// Scenario 2: compressed and uncompressed instructions mixed in one block.
func TestScenarioCompressedMix(t *testing.T) {
	mem := memory.NewFlatMemory(1 << 20)
	h := InitSystemMode(Xlen64, mem)

	write16(t, mem, 0x1000, encoding.CIType{Op: "c.li", Rd: 5, Imm: 1, Fn: 0b010})
	write32(t, mem, 0x1002, encoding.IType{Op: "addi", Rd: 6, Rs1: 5, Funct3: 0, Opcode: 0x13, Imm: 2})
	write16(t, mem, 0x1006, encoding.CRType{Op: "c.jr", Rd: 1, Rs2: 0, Fn: 0})

	h.SetPC(0x1000)
	h.SetXRegister(1, 0x2000)

	assert.Nil(t, h.runCached())

	b := h.checkBlock(0x1000)
	assert.NotNil(t, b)
	assert.Len(t, b.Instrs, 3)
	assert.Equal(t, []uint8{2, 4, 2}, []uint8{b.Instrs[0].IncBy, b.Instrs[1].IncBy, b.Instrs[2].IncBy})

	assert.Equal(t, uint64(1), h.XRegister(5))
	assert.Equal(t, uint64(3), h.XRegister(6))
	assert.True(t, h.haveWant)
	assert.Equal(t, uint64(0x2000), h.wantPC)
}

// Scenario 3: an uncompressed instruction straddling a page boundary forces
// the uncached fallback and restores the cache afterward.
func TestScenarioPageCrossingInstruction(t *testing.T) {
	mem := memory.NewFlatMemory(3 * memory.PageSize)
	h := InitSystemMode(Xlen64, mem)

	straddle := uint64(memory.PageSize) - 2 // last 2 bytes of page 0
	write32(t, mem, straddle, encoding.IType{Op: "addi", Rd: 3, Rs1: 0, Funct3: 0, Opcode: 0x13, Imm: 7})

	h.SetPC(straddle)
	assert.True(t, h.CacheEnabled)

	assert.Nil(t, h.runCached())

	assert.True(t, h.CacheEnabled, "cache must be re-enabled after the forced uncached step")
	assert.Equal(t, uint64(7), h.XRegister(3))
	page := straddle &^ uint64(memory.PageMask)
	assert.Empty(t, h.blocks[page])
}

// Scenario 4: an illegal instruction traps with cause IllegalInstruction and
// mtval equal to the trapping PC.
func TestScenarioIllegalInstruction(t *testing.T) {
	mem := memory.NewFlatMemory(1 << 20)
	h := InitSystemMode(Xlen64, mem)

	const addr = uint64(0x5000)
	assert.NoError(t, mem.WriteAt(addr, []byte{0, 0, 0, 0}))
	h.SetPC(addr)

	assert.Nil(t, h.runCached())
	assert.NotNil(t, h.trap)
	assert.NoError(t, h.handlePendingTrap())

	assert.Equal(t, uint64(memory.ExcIllegalInstruction), h.csr[csrMcause])
	assert.Equal(t, addr, h.csr[csrMepc])
	assert.Equal(t, addr, h.csr[csrMtval])
}

// Scenario 5: a delegated load page fault from user privilege retargets pc
// to stvec, records scause/sepc/stval, and switches to Supervisor.
func TestScenarioDelegatedPageFault(t *testing.T) {
	mem := memory.NewFlatMemory(1 << 21)
	h := InitSystemMode(Xlen64, mem)
	h.priv = PrivUser

	// A single Sv39 root-level leaf PTE (a 1GiB superpage) identity-mapping
	// [0, 1<<30) with R|X|U|V, so the code fetch at 0x1000 succeeds while
	// everything outside that PTE's index remains unmapped.
	const pteRXUV = 1 | (1 << 1) | (1 << 3) | (1 << 4)
	assert.NoError(t, memory.Write64(mem, 0, uint64(pteRXUV)))

	h.csr[csrSatp] = uint64(8) << 60 // Sv39, root at phys 0
	h.csr[csrMedeleg] = uint64(1) << uint(memory.ExcLoadPageFault)
	h.csr[csrStvec] = 0x9000

	const dataAddr = uint64(1) << 30 // outside the mapped superpage
	write32(t, mem, 0x1000, encoding.IType{Op: "lw", Rd: 5, Rs1: 6, Funct3: 0b010, Opcode: 0x03, Imm: 0})
	h.SetPC(0x1000)
	h.SetXRegister(6, dataAddr)

	assert.Nil(t, h.runCached())
	assert.NotNil(t, h.trap)
	assert.NoError(t, h.handlePendingTrap())

	assert.Equal(t, PrivSupervisor, h.priv)
	assert.Equal(t, uint64(0x9000), h.pc)
	assert.Equal(t, uint64(memory.ExcLoadPageFault), h.csr[csrScause])
	assert.Equal(t, uint64(0x1000), h.csr[csrSepc])
	assert.Equal(t, dataAddr, h.csr[csrStval])
}

// Scenario 6: a write(1, buf, n) syscall reaches the host and returns n.
func TestScenarioSyscallWrite(t *testing.T) {
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	mem := memory.NewFlatMemory(1 << 20)
	rt := usermode.NewRuntime(mem, 0x10000, 0x20000)
	h := InitUserMode(Xlen64, rt)

	const bufAddr = uint64(0x3000)
	msg := []byte("hi\n")
	assert.NoError(t, mem.WriteAt(bufAddr, msg))

	write32(t, mem, 0x1000, encoding.SystemType{Op: "ecall", Imm: 0})
	h.SetPC(0x1000)
	h.SetXRegister(10, 1)                // a0: fd
	h.SetXRegister(11, bufAddr)          // a1: buf
	h.SetXRegister(12, uint64(len(msg))) // a2: count
	h.SetXRegister(17, 64)               // a7: write

	assert.Nil(t, h.runCached())
	assert.NotNil(t, h.trap)
	assert.NoError(t, h.handlePendingTrap())

	w.Close()
	got, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.Equal(t, uint64(len(msg)), h.XRegister(10))
	assert.Nil(t, h.trap)
}
