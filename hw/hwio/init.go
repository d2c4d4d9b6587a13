package hwio

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type bankReg struct {
	offset uint16
	regPtr any
}

type regTag struct {
	bank      int
	offset    int // -1 if missing
	size      int
	vsize     int
	reset     uint8
	rwmask    uint8
	hasRwmask bool
	readonly  bool
	writeonly bool
	rcb, wcb  string
	pcb       string
}

func parseTag(tag string) (regTag, error) {
	rt := regTag{offset: -1}
	for _, opt := range strings.Split(tag, ",") {
		key, val, _ := strings.Cut(strings.TrimSpace(opt), "=")
		num := func() (int, error) {
			n, err := strconv.ParseInt(val, 0, 32)
			if err != nil {
				return 0, fmt.Errorf("option %q: %w", key, err)
			}
			return int(n), nil
		}
		var err error
		var n int
		switch key {
		case "":
		case "bank":
			rt.bank, err = num()
		case "offset":
			rt.offset, err = num()
		case "size":
			rt.size, err = num()
		case "vsize":
			rt.vsize, err = num()
		case "reset":
			n, err = num()
			rt.reset = uint8(n)
		case "rwmask":
			n, err = num()
			rt.rwmask = uint8(n)
			rt.hasRwmask = true
		case "readonly":
			rt.readonly = true
		case "writeonly":
			rt.writeonly = true
		case "rcb":
			rt.rcb = cbName(val)
		case "wcb":
			rt.wcb = cbName(val)
		case "pcb":
			rt.pcb = cbName(val)
		default:
			err = fmt.Errorf("unknown option %q", key)
		}
		if err != nil {
			return rt, err
		}
	}
	return rt, nil
}

// cbName returns the explicit callback name, or "*" meaning "use the default
// method name".
func cbName(val string) string {
	if val == "" {
		return "*"
	}
	return val
}

func (rt *regTag) flags() RWFlags {
	var f RWFlags
	if rt.readonly {
		f |= ReadOnlyFlag
	}
	if rt.writeonly {
		f |= WriteOnlyFlag
	}
	return f
}

// MustInitRegs initializes all the Reg8, Device and Mem fields of the
// structure pointed to by ptr, according to their "hwio" struct tags. Callback
// methods are bound by name: with option "wcb" on field Foo, the method
// WriteFOO is used, unless an explicit name is given with "wcb=Name".
//
// Register callbacks have signatures:
//
//	ReadFOO(val uint8) uint8
//	PeekFOO(val uint8) uint8
//	WriteFOO(old, val uint8)
//
// Device and Mem callbacks have signatures:
//
//	ReadFOO(addr uint16) uint8
//	PeekFOO(addr uint16) uint8
//	WriteFOO(addr uint16, val uint8)
func MustInitRegs(ptr any) {
	if err := initRegs(ptr); err != nil {
		panic(fmt.Errorf("hwio: %T: %w", ptr, err))
	}
}

var (
	typReg8   = reflect.TypeFor[Reg8]()
	typDevice = reflect.TypeFor[Device]()
	typMem    = reflect.TypeFor[Mem]()
)

func initRegs(ptr any) error {
	pv := reflect.ValueOf(ptr)
	if pv.Kind() != reflect.Pointer || pv.Elem().Kind() != reflect.Struct {
		return errors.New("not a pointer to struct")
	}
	v := pv.Elem()
	typ := v.Type()

	for i := range typ.NumField() {
		field := typ.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		rt, err := parseTag(tag)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}

		upper := strings.ToUpper(field.Name)
		method := func(cb, prefix string) reflect.Value {
			if cb == "" {
				return reflect.Value{}
			}
			name := cb
			if cb == "*" {
				name = prefix + upper
			}
			m := pv.MethodByName(name)
			if !m.IsValid() {
				err = fmt.Errorf("field %s: missing method %s", field.Name, name)
			}
			return m
		}

		fv := v.Field(i)
		switch field.Type {
		case typReg8:
			reg := fv.Addr().Interface().(*Reg8)
			reg.Name = field.Name
			reg.Value = rt.reset
			reg.Flags = rt.flags()
			if rt.hasRwmask {
				reg.RoMask = ^rt.rwmask
			}
			if m := method(rt.rcb, "Read"); m.IsValid() {
				reg.ReadCb = m.Interface().(func(uint8) uint8)
			}
			if m := method(rt.pcb, "Peek"); m.IsValid() {
				reg.PeekCb = m.Interface().(func(uint8) uint8)
			}
			if m := method(rt.wcb, "Write"); m.IsValid() {
				reg.WriteCb = m.Interface().(func(uint8, uint8))
			}

		case typDevice:
			dev := fv.Addr().Interface().(*Device)
			dev.Name = field.Name
			dev.Size = rt.size
			dev.Flags = rt.flags()
			if dev.Size == 0 {
				return fmt.Errorf("field %s: device without size", field.Name)
			}
			if m := method(rt.rcb, "Read"); m.IsValid() {
				dev.ReadCb = m.Interface().(func(uint16) uint8)
			}
			if m := method(rt.pcb, "Peek"); m.IsValid() {
				dev.PeekCb = m.Interface().(func(uint16) uint8)
			}
			if m := method(rt.wcb, "Write"); m.IsValid() {
				dev.WriteCb = m.Interface().(func(uint16, uint8))
			}

		case typMem:
			mem := fv.Addr().Interface().(*Mem)
			mem.Name = field.Name
			mem.Flags = rt.flags()
			if rt.size == 0 {
				return fmt.Errorf("field %s: mem without size", field.Name)
			}
			if len(mem.Data) != rt.size {
				mem.Data = make([]byte, rt.size)
			}
			mem.VSize = rt.vsize
			if mem.VSize == 0 {
				mem.VSize = rt.size
			}
			if m := method(rt.wcb, "Write"); m.IsValid() {
				mem.WriteCb = m.Interface().(func(uint16, uint8))
			}

		default:
			return fmt.Errorf("field %s: unsupported type %s", field.Name, field.Type)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func bankGetRegs(bank any, bankNum int) ([]bankReg, error) {
	pv := reflect.ValueOf(bank)
	if pv.Kind() != reflect.Pointer || pv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("hwio: bank %T is not a pointer to struct", bank)
	}
	v := pv.Elem()
	typ := v.Type()

	var regs []bankReg
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		rt, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("hwio: %T field %s: %w", bank, field.Name, err)
		}
		if rt.offset < 0 || rt.bank != bankNum {
			continue
		}
		regs = append(regs, bankReg{
			offset: uint16(rt.offset),
			regPtr: v.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}
