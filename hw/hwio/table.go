package hwio

import (
	"fmt"
	"slices"

	"famitone/emu/log"
)

// BankIO8 is implemented by everything that can be mapped into a Table.
type BankIO8 interface {
	Read8(addr uint16) uint8
	Peek8(addr uint16) uint8
	Write8(addr uint16, val uint8)
}

type mapping struct {
	begin, end uint16 // inclusive
	io         BankIO8
}

// Table is an address decoder: it forwards accesses to the device mapped at
// the accessed address.
type Table struct {
	Name string

	// Unmapped, if set, receives accesses to unmapped addresses.
	Unmapped BankIO8

	// Written records every address successfully written to.
	Written Bitset

	maps []mapping // sorted by begin, non overlapping
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.maps = t.maps[:0]
	t.Written.Reset()
}

// MapBank maps a register bank, that is a structure containing multiple Reg8,
// Device or Mem fields. For this function to work, registers must have a
// struct tag "hwio", containing the following fields:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. There is no default value: if this
//	                option is missing, the register is assumed not to be
//	                part of the bank, and is ignored by this call.
//
//	bank=NN         Ordinal bank number (if not specified, default to zero).
//	                This option allows for a structure to expose multiple
//	                banks, as regs can be grouped by bank by specified the
//	                bank number.
//
// MustInitRegs must have been called on the bank beforehand.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.MapMem(addr+reg.offset, r)
		case *Reg8:
			t.MapReg8(addr+reg.offset, r)
		case *Device:
			t.MapDevice(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) UnmapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		begin := addr + reg.offset
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.Unmap(begin, begin+uint16(r.VSize)-1)
		case *Reg8:
			t.Unmap(begin, begin)
		case *Device:
			t.Unmap(begin, begin+uint16(r.Size)-1)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) MapReg8(addr uint16, io *Reg8) {
	t.mapBus8(addr, addr, io)
}

func (t *Table) MapDevice(addr uint16, io *Device) {
	t.mapBus8(addr, addr+uint16(io.Size-1), io)
}

func (t *Table) MapMem(addr uint16, mem *Mem) {
	log.ModHwIo.DebugZ("mapping mem").
		Hex16("addr", addr).
		Hex16("size", uint16(mem.VSize)).
		String("area", mem.Name).
		String("bus", t.Name).
		End()

	if mem.VSize == 0 {
		mem.VSize = len(mem.Data)
	}
	mem.base = addr
	t.mapBus8(addr, addr+uint16(mem.VSize-1), mem)
}

func (t *Table) mapBus8(begin, end uint16, io BankIO8) {
	if end < begin {
		panic(fmt.Sprintf("hwio: invalid range [%04x-%04x] in %s", begin, end, t.Name))
	}
	idx, _ := slices.BinarySearchFunc(t.maps, begin, func(m mapping, a uint16) int {
		return int(m.begin) - int(a)
	})
	if idx > 0 && t.maps[idx-1].end >= begin || idx < len(t.maps) && t.maps[idx].begin <= end {
		panic(fmt.Sprintf("hwio: range [%04x-%04x] overlaps in %s", begin, end, t.Name))
	}
	t.maps = slices.Insert(t.maps, idx, mapping{begin: begin, end: end, io: io})
}

// Unmap removes all mappings in [begin, end]. Mappings that straddle the
// boundaries are trimmed.
func (t *Table) Unmap(begin, end uint16) {
	out := t.maps[:0]
	var tail []mapping
	for _, m := range t.maps {
		if m.end < begin || m.begin > end {
			out = append(out, m)
			continue
		}
		if m.begin < begin {
			out = append(out, mapping{begin: m.begin, end: begin - 1, io: m.io})
		}
		if m.end > end {
			tail = append(tail, mapping{begin: end + 1, end: m.end, io: m.io})
		}
	}
	t.maps = append(out, tail...)
	slices.SortFunc(t.maps, func(a, b mapping) int { return int(a.begin) - int(b.begin) })
}

func (t *Table) search(addr uint16) BankIO8 {
	idx, found := slices.BinarySearchFunc(t.maps, addr, func(m mapping, a uint16) int {
		return int(m.begin) - int(a)
	})
	if found {
		return t.maps[idx].io
	}
	if idx > 0 && t.maps[idx-1].end >= addr {
		return t.maps[idx-1].io
	}
	return nil
}

// Read8 searches in the table for the device mapped at the given address and
// forwards the read to it.
func (t *Table) Read8(addr uint16) uint8 {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			return t.Unmapped.Read8(addr)
		}
		return 0
	}
	return io.Read8(addr)
}

// Peek8 reads without side effects.
func (t *Table) Peek8(addr uint16) uint8 {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			return t.Unmapped.Peek8(addr)
		}
		return 0
	}
	return io.Peek8(addr)
}

func (t *Table) Write8(addr uint16, val uint8) {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			t.Unmapped.Write8(addr, val)
		}
		return
	}
	t.Written.Set(uint(addr))
	io.Write8(addr, val)
}

// Mapped reports whether addr is mapped to a device.
func (t *Table) Mapped(addr uint16) bool {
	return t.search(addr) != nil
}
