package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBareWalkerIsIdentity(t *testing.T) {
	var w BareWalker
	phys, err := w.Translate(0x1234, AccessLoad, privUser, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x1234), phys)
}

// buildSv39 writes a 3-level walk for vaddr 0x4000 -> phys 0x5000 with the
// given leaf permission bits (V|R|W|X|U as needed), root table at phys 0.
func buildSv39(t *testing.T, mem GuestMemory, leafFlags uint64) {
	t.Helper()
	// Level 0 (root) -> level 1 table at 0x1000, pure pointer (rwx=0).
	assert.NoError(t, Write64(mem, 0, (uint64(0x1000>>PageShift)<<10)|pteV))
	// Level 1 -> level 2 table at 0x2000, pure pointer.
	assert.NoError(t, Write64(mem, 0x1000, (uint64(0x2000>>PageShift)<<10)|pteV))
	// Level 2, index 4 (vaddr 0x4000 >> 12 & 0x1ff == 4) -> leaf at 0x5000.
	assert.NoError(t, Write64(mem, 0x2000+4*8, (uint64(0x5000>>PageShift)<<10)|leafFlags))
}

func TestSv39WalkerThreeLevelTranslation(t *testing.T) {
	mem := NewFlatMemory(3 * PageSize)
	buildSv39(t, mem, pteV|pteR|pteW|pteU)

	w := Sv39Walker{Mem: mem}
	satp := uint64(8) << 60 // Sv39 mode, root PPN 0
	phys, err := w.Translate(0x4000, AccessLoad, privUser, 0, satp)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x5000), phys)
}

func TestSv39WalkerUnmappedIndexFaults(t *testing.T) {
	mem := NewFlatMemory(3 * PageSize)
	buildSv39(t, mem, pteV|pteR|pteW|pteU)

	w := Sv39Walker{Mem: mem}
	satp := uint64(8) << 60
	// A different VPN[2] (level-0 index 1) that was never populated.
	_, err := w.Translate(uint64(1)<<30, AccessLoad, privUser, 0, satp)
	f, ok := err.(Fault)
	assert.True(t, ok)
	assert.Equal(t, ExcLoadPageFault, f.Cause)
}

func TestSv39WalkerReservedEncodingFaults(t *testing.T) {
	mem := NewFlatMemory(3 * PageSize)
	buildSv39(t, mem, pteV|pteW) // W without R: reserved (rwx == 0b010)

	w := Sv39Walker{Mem: mem}
	satp := uint64(8) << 60
	_, err := w.Translate(0x4000, AccessLoad, privUser, 0, satp)
	f, ok := err.(Fault)
	assert.True(t, ok)
	assert.Equal(t, ExcLoadPageFault, f.Cause)
}

func TestSv39WalkerUserPageDeniedToSupervisorWithoutSUM(t *testing.T) {
	mem := NewFlatMemory(3 * PageSize)
	buildSv39(t, mem, pteV|pteR|pteW|pteU)

	w := Sv39Walker{Mem: mem}
	satp := uint64(8) << 60
	_, err := w.Translate(0x4000, AccessLoad, privSupervisor, 0, satp)
	f, ok := err.(Fault)
	assert.True(t, ok)
	assert.Equal(t, ExcLoadPageFault, f.Cause)

	// Setting SUM in mstatus allows supervisor access to a U page.
	phys, err := w.Translate(0x4000, AccessLoad, privSupervisor, mstatusSUM, satp)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x5000), phys)
}

func TestSv39WalkerBareModeIsIdentity(t *testing.T) {
	mem := NewFlatMemory(PageSize)
	w := Sv39Walker{Mem: mem}
	phys, err := w.Translate(0x4000, AccessLoad, privUser, 0, 0) // satp mode 0: Bare
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x4000), phys)
}

func TestSv39WalkerMachinePrivBypassesTranslation(t *testing.T) {
	mem := NewFlatMemory(PageSize)
	w := Sv39Walker{Mem: mem}
	satp := uint64(8) << 60
	phys, err := w.Translate(0x4000, AccessLoad, privMachine, 0, satp)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x4000), phys)
}
