package hart

import (
	"fmt"

	"github.com/bassosimone/rv64emu/decode"
	"github.com/bassosimone/rv64emu/memory"
)

// checkBlock implements spec.md section 4.3's check_block: return the
// block beginning at the given physical address within its page's list,
// or nil.
func (h *Hart) checkBlock(phys uint64) *Block {
	page := phys &^ uint64(memory.PageMask)
	for _, b := range h.blocks[page] {
		if b.Begin == phys {
			return b
		}
	}
	return nil
}

// buildBlock implements spec.md section 4.3's build_block.
func (h *Hart) buildBlock(phys uint64) *Block {
	page := phys &^ uint64(memory.PageMask)
	remaining := memory.PageSize - (phys % memory.PageSize)
	addr := phys
	var instrs []decode.Instruction
	h.stopTranslating = false

	for remaining >= 2 && !h.stopTranslating {
		lo, err := memory.Read16(h.Mem, memory.AccessFetch, addr)
		if err != nil {
			return nil // discard partially built block on fetch fault; caller re-fetches and traps
		}
		if decode.IsCompressed(lo) {
			instr, ok := decode.Decode16(lo)
			if !ok {
				instrs = append(instrs, illegalInstruction())
				addr += 2 // so End below lands on the illegal record's address
				break
			}
			instrs = append(instrs, instr)
			addr += 2
			remaining -= 2
			continue
		}
		if remaining < 4 {
			// Per spec.md 4.3 tie-break: terminate the block empty
			// without consuming the half-word; the executor falls
			// back to uncached single-step for this instruction.
			break
		}
		hi, err := memory.Read16(h.Mem, memory.AccessFetch, addr+2)
		if err != nil {
			return nil
		}
		word := uint32(lo) | uint32(hi)<<16
		instr, ok := decode.Decode32(word)
		if !ok {
			instrs = append(instrs, illegalInstruction())
			addr += 2
			break
		}
		instrs = append(instrs, instr)
		addr += 4
		remaining -= 4
	}

	if len(instrs) == 0 {
		return nil
	}
	last := addr - uint64(instrs[len(instrs)-1].IncBy)
	b := &Block{Begin: phys, End: last, Instrs: instrs}
	checkBlockInvariant(b)
	h.blocks[page] = append(h.blocks[page], b)
	return b
}

// illegalInstruction is the decoded record emitted when the decoder fails
// to recognize an encoding; it raises IllegalInstruction and stops the
// block, per spec.md section 4.3 step 1.b.
func illegalInstruction() decode.Instruction {
	return decode.Instruction{
		IncBy: 2,
		Handler: func(c decode.Core, _ decode.Args) {
			c.RaiseTrap(memory.ExcIllegalInstruction, c.PC())
		},
	}
}

// checkBlockInvariant enforces the Block index invariant from spec.md's
// Data Model: every block is fully contained within a single page.
// Violating it is a programming error and halts the emulator.
func checkBlockInvariant(b *Block) {
	mask := ^uint64(memory.PageMask)
	if (b.Begin & mask) != (b.End & mask) {
		panic(fmt.Sprintf("hart: block [%#x, %#x] crosses a page boundary", b.Begin, b.End))
	}
}
