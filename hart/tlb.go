package hart

import "github.com/bassosimone/rv64emu/memory"

// tlbCache is a small direct-mapped translation cache, grounded on
// tinyrange-cc/ccvm's tlbRead/tlbWrite/tlbCode arrays: one entry per
// access kind per set, keyed by virtual page number. It is flushed on
// satp writes, by fence.i (see FlushBlocks), and when a trap changes the
// privilege level (see enterTrap), per SPEC_FULL.md section 4.8.
type tlbCache struct {
	entries [3][tlbSets]tlbEntry
}

const tlbSets = 64

type tlbEntry struct {
	valid bool
	vpn   uint64
	phys  uint64
}

func tlbSet(vpn uint64) int { return int(vpn % tlbSets) }

func (t *tlbCache) lookup(vaddr uint64, kind memory.AccessKind) (uint64, bool) {
	vpn := vaddr >> memory.PageShift
	e := &t.entries[kind][tlbSet(vpn)]
	if e.valid && e.vpn == vpn {
		return e.phys | (vaddr & memory.PageMask), true
	}
	return 0, false
}

func (t *tlbCache) insert(vaddr, phys uint64, kind memory.AccessKind) {
	vpn := vaddr >> memory.PageShift
	ppn := phys &^ memory.PageMask
	t.entries[kind][tlbSet(vpn)] = tlbEntry{valid: true, vpn: vpn, phys: ppn}
}

func (t *tlbCache) flushAll() {
	for k := range t.entries {
		for i := range t.entries[k] {
			t.entries[k][i] = tlbEntry{}
		}
	}
}
