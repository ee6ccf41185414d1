// Package loader implements the ELF64 program loader and initial-stack
// builder behind spec.md section 6's "ELF loader" collaborator, using
// stdlib debug/elf the way iansmith-mazarin's kernel loader walks a
// (bespoke) image format, adapted here to a standard ELF64 binary.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/bassosimone/rv64emu/memory"
)

// Image describes a loaded program: its entry point and the stack pointer
// a hart should start execution with.
type Image struct {
	Entry   uint64
	SP      uint64
	Highest uint64 // first address above every mapped PT_LOAD segment
}

// Auxiliary vector type constants used by Load, a subset of Linux's full
// list sufficient to satisfy a typical libc startup path.
const (
	AtNull     = 0
	AtPhdr     = 3
	AtPhent    = 4
	AtPhnum    = 5
	AtPagesz   = 6
	AtBase     = 7
	AtFlags    = 8
	AtEntry    = 9
	AtUID      = 11
	AtEUID     = 12
	AtGID      = 13
	AtEGID     = 14
	AtHWCap    = 16
	AtRandom   = 25
)

// Load reads an ELF64 RISC-V executable from r, maps its PT_LOAD segments
// into mem, and constructs the initial stack (argv/envp/auxv) growing
// down from stackTop, per the RISC-V Linux ABI layout.
func Load(r io.ReaderAt, mem memory.GuestMemory, stackTop uint64, argv, envp []string) (Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return Image{}, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return Image{}, fmt.Errorf("loader: only 64-bit ELF images are supported")
	}
	if f.Machine != elf.EM_RISCV {
		return Image{}, fmt.Errorf("loader: not a RISC-V image (machine=%s)", f.Machine)
	}

	var highest uint64
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return Image{}, fmt.Errorf("loader: reading segment: %w", err)
		}
		if err := mem.WriteAt(prog.Vaddr, data); err != nil {
			return Image{}, fmt.Errorf("loader: writing segment: %w", err)
		}
		if end := prog.Vaddr + prog.Memsz; end > highest {
			highest = end
		}
	}

	sp, err := buildStack(mem, stackTop, argv, envp, f.Entry)
	if err != nil {
		return Image{}, err
	}
	return Image{Entry: f.Entry, SP: sp, Highest: highest}, nil
}

// BrkBase returns the first page-aligned address above every PT_LOAD
// segment, the natural seed for usermode.NewRuntime's brk/mmap bases.
func BrkBase(highest uint64) uint64 {
	return (highest + uint64(memory.PageMask)) &^ uint64(memory.PageMask)
}

// buildStack writes argv/envp strings, the argv/envp/auxv pointer arrays,
// and argc below stackTop, following the layout glibc's _start expects:
// [argc][argv...][NULL][envp...][NULL][auxv...][AT_NULL] with the string
// bytes stored below all of that.
func buildStack(mem memory.GuestMemory, stackTop uint64, argv, envp []string, entry uint64) (uint64, error) {
	sp := stackTop
	strAddrs := make([]uint64, 0, len(argv)+len(envp))

	writeStr := func(s string) (uint64, error) {
		b := append([]byte(s), 0)
		sp -= uint64(len(b))
		if err := mem.WriteAt(sp, b); err != nil {
			return 0, err
		}
		return sp, nil
	}

	for _, s := range envp {
		addr, err := writeStr(s)
		if err != nil {
			return 0, err
		}
		strAddrs = append(strAddrs, addr)
	}
	envAddrs := append([]uint64(nil), strAddrs[len(strAddrs)-len(envp):]...)

	strAddrs = strAddrs[:0]
	for _, s := range argv {
		addr, err := writeStr(s)
		if err != nil {
			return 0, err
		}
		strAddrs = append(strAddrs, addr)
	}
	argAddrs := strAddrs

	sp &^= 0xf // 16-byte align before the pointer arrays, per the psABI

	auxv := []uint64{AtPagesz, memory.PageSize, AtEntry, entry, AtNull, 0}

	total := 1 + len(argAddrs) + 1 + len(envAddrs) + 1 + len(auxv)
	sp -= uint64(total) * 8
	sp &^= 0xf

	cursor := sp
	putWord := func(v uint64) error {
		err := memory.Write64(mem, cursor, v)
		cursor += 8
		return err
	}

	if err := putWord(uint64(len(argAddrs))); err != nil {
		return 0, err
	}
	for _, a := range argAddrs {
		if err := putWord(a); err != nil {
			return 0, err
		}
	}
	if err := putWord(0); err != nil {
		return 0, err
	}
	for _, a := range envAddrs {
		if err := putWord(a); err != nil {
			return 0, err
		}
	}
	if err := putWord(0); err != nil {
		return 0, err
	}
	for _, v := range auxv {
		if err := putWord(v); err != nil {
			return 0, err
		}
	}

	return sp, nil
}
