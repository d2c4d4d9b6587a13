package hwio

import "famitone/emu/log"

// Device is a BankIO8 implementation that allows manual management of an entire
// range of addresses.
type Device struct {
	Name  string // name of the memory area (for debugging)
	Size  int    // size of the memory area
	Flags RWFlags

	ReadCb  func(addr uint16) uint8
	PeekCb  func(addr uint16) uint8
	WriteCb func(addr uint16, val uint8)
}

func (d *Device) Read8(addr uint16) uint8 {
	switch {
	case d.Flags&WriteOnlyFlag != 0:
		log.ModHwIo.DebugZ("Read8 from writeonly device").
			String("name", d.Name).
			Hex16("addr", addr).
			End()
		fallthrough
	case d.ReadCb == nil:
		return 0
	}
	return d.ReadCb(addr)
}

func (d *Device) Peek8(addr uint16) uint8 {
	if d.PeekCb != nil {
		return d.PeekCb(addr)
	}
	return 0
}

func (d *Device) Write8(addr uint16, val uint8) {
	switch {
	case d.Flags&ReadOnlyFlag != 0:
		log.ModHwIo.WarnZ("invalid Write8 to readonly device").
			String("name", d.Name).
			Hex16("addr", addr).
			End()
		fallthrough
	case d.WriteCb == nil:
		return
	}
	d.WriteCb(addr, val)
}

// Mem is a linear memory area, mirrored over VSize bytes if VSize is bigger
// than the buffer. WriteCb, if set, is called after each write.
type Mem struct {
	Name    string
	Data    []byte
	VSize   int
	Flags   RWFlags
	WriteCb func(addr uint16, val uint8)

	base uint16
}

func (m *Mem) off(addr uint16) int {
	return int(addr-m.base) % len(m.Data)
}

func (m *Mem) Read8(addr uint16) uint8 {
	if m.Flags&WriteOnlyFlag != 0 {
		return 0
	}
	return m.Data[m.off(addr)]
}

func (m *Mem) Peek8(addr uint16) uint8 {
	return m.Data[m.off(addr)]
}

func (m *Mem) Write8(addr uint16, val uint8) {
	if m.Flags&ReadOnlyFlag != 0 {
		log.ModHwIo.WarnZ("Write8 to readonly memory").
			String("name", m.Name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
		return
	}
	m.Data[m.off(addr)] = val
	if m.WriteCb != nil {
		m.WriteCb(addr, val)
	}
}
