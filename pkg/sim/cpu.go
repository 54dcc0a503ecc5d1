package sim

import (
	"fmt"

	"github.com/pkg/errors"

	"nesgen/pkg/isa"
)

var (
	// ErrStepLimit reports a run that did not finish within its step budget.
	ErrStepLimit = errors.New("step limit reached")
	// ErrBadOperand reports an operand the simulator cannot evaluate, such
	// as a jump to a numeric address outside the loaded code.
	ErrBadOperand = errors.New("unsupported operand")
	// ErrRanOff reports execution past the last instruction.
	ErrRanOff = errors.New("execution ran past the end of the code")
)

// returnSentinel is pushed by Call; popping it with RTS halts the CPU.
const returnSentinel = 0xFFFF

const (
	flagC = 0x01
	flagZ = 0x02
	flagI = 0x04
	flagD = 0x08
	flagB = 0x10
	flagU = 0x20
	flagV = 0x40
	flagN = 0x80
)

// TraceEvent describes one executed instruction, with the registers as
// they were before it ran.
type TraceEvent struct {
	Step  int
	PC    int
	Proc  string
	Inst  isa.Instruction
	A     byte
	X     byte
	Y     byte
	SP    byte
	Flags byte
}

// CPU is a 6502 without decimal mode, running an Image. PC is an index
// into the image's instruction list; return addresses on the stack are
// such indexes too.
type CPU struct {
	A  byte
	X  byte
	Y  byte
	SP byte
	PC int

	N bool
	V bool
	D bool
	I bool
	Z bool
	C bool

	Memory [0x10000]byte

	PPU *PPU
	Pad *Controller

	Halted bool
	Steps  int

	// Trace, when set, is called before each instruction executes.
	Trace func(TraceEvent)

	img *Image
}

// New creates a CPU with img's data blocks copied into memory, the stack
// pointer at $FD and interrupts disabled.
func New(img *Image) *CPU {
	c := &CPU{
		SP:  0xFD,
		I:   true,
		PPU: &PPU{},
		Pad: &Controller{},
		img: img,
	}
	for addr, buf := range img.rom {
		copy(c.Memory[addr:], buf)
	}
	return c
}

// Flags packs the status register.
func (c *CPU) Flags() byte {
	p := byte(flagU)
	for _, f := range []struct {
		on  bool
		bit byte
	}{{c.N, flagN}, {c.V, flagV}, {c.D, flagD}, {c.I, flagI}, {c.Z, flagZ}, {c.C, flagC}} {
		if f.on {
			p |= f.bit
		}
	}
	return p
}

func (c *CPU) setFlags(p byte) {
	c.N = p&flagN != 0
	c.V = p&flagV != 0
	c.D = p&flagD != 0
	c.I = p&flagI != 0
	c.Z = p&flagZ != 0
	c.C = p&flagC != 0
}

func (c *CPU) device(addr uint16) Device {
	switch {
	case addr >= 0x2000 && addr <= 0x3FFF:
		return c.PPU
	case addr == 0x4016:
		return c.Pad
	}
	return nil
}

// ReadByte reads addr, dispatching hardware registers to their device.
func (c *CPU) ReadByte(addr uint16) byte {
	if d := c.device(addr); d != nil {
		return d.Read(addr)
	}
	return c.Memory[addr]
}

// WriteByte writes addr. A write to $4014 copies a page of memory into OAM.
func (c *CPU) WriteByte(addr uint16, v byte) {
	if addr == 0x4014 {
		base := uint16(v) << 8
		for i := 0; i < 256; i++ {
			c.PPU.OAM[byte(int(c.PPU.OAMAddr)+i)] = c.Memory[base+uint16(i)]
		}
		return
	}
	if d := c.device(addr); d != nil {
		d.Write(addr, v)
		return
	}
	c.Memory[addr] = v
}

func (c *CPU) push(v byte) {
	c.Memory[0x0100|uint16(c.SP)] = v
	c.SP--
}

func (c *CPU) pull() byte {
	c.SP++
	return c.Memory[0x0100|uint16(c.SP)]
}

func (c *CPU) pushWord(v uint16) {
	c.push(byte(v >> 8))
	c.push(byte(v))
}

func (c *CPU) pullWord() uint16 {
	lo := c.pull()
	hi := c.pull()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) setNZ(v byte) {
	c.Z = v == 0
	c.N = v&0x80 != 0
}

// Start points the CPU at the named subroutine without touching the stack.
func (c *CPU) Start(name string) error {
	pc, err := c.img.Entry(name)
	if err != nil {
		return err
	}
	c.PC = pc
	c.Halted = false
	return nil
}

// Call runs the named subroutine until it returns, or until maxSteps
// instructions have executed.
func (c *CPU) Call(name string, maxSteps int) error {
	if err := c.Start(name); err != nil {
		return err
	}
	c.pushWord(returnSentinel)
	return c.Run(maxSteps)
}

// Interrupt runs the named handler the way the hardware enters an
// interrupt: return address and status pushed, interrupts disabled. It
// returns once the handler executes RTI.
func (c *CPU) Interrupt(name string, maxSteps int) error {
	if err := c.Start(name); err != nil {
		return err
	}
	c.pushWord(returnSentinel)
	c.push(c.Flags())
	c.I = true
	return c.Run(maxSteps)
}

// Run steps until the CPU halts or maxSteps instructions have executed.
func (c *CPU) Run(maxSteps int) error {
	for i := 0; i < maxSteps; i++ {
		if c.Halted {
			return nil
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	if c.Halted {
		return nil
	}
	return errors.Wrapf(ErrStepLimit, "after %d steps", maxSteps)
}

// Step executes one instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if c.PC >= len(c.img.code) {
		c.Halted = true
		return ErrRanOff
	}
	pc := c.PC
	in := c.img.code[pc]
	if c.Trace != nil {
		c.Trace(TraceEvent{
			Step: c.Steps, PC: pc, Proc: c.img.procs[c.img.owner[pc]], Inst: in,
			A: c.A, X: c.X, Y: c.Y, SP: c.SP, Flags: c.Flags(),
		})
	}
	c.Steps++
	c.PC++
	if err := c.exec(pc, in); err != nil {
		c.Halted = true
		return errors.Wrapf(err, "%s at %d (%s)", in.Op, pc, c.img.procs[c.img.owner[pc]])
	}
	return nil
}

func (c *CPU) exec(pc int, in isa.Instruction) error {
	switch in.Op {
	case isa.LDA, isa.LDX, isa.LDY, isa.ADC, isa.SBC, isa.AND, isa.ORA,
		isa.EOR, isa.CMP, isa.CPX, isa.CPY, isa.BIT:
		m, err := c.load(in.Operand)
		if err != nil {
			return err
		}
		c.alu(in.Op, m)

	case isa.STA, isa.STX, isa.STY:
		addr, err := c.address(in.Operand)
		if err != nil {
			return err
		}
		v := c.A
		if in.Op == isa.STX {
			v = c.X
		} else if in.Op == isa.STY {
			v = c.Y
		}
		c.WriteByte(addr, v)

	case isa.INC, isa.DEC, isa.ASL, isa.LSR, isa.ROL, isa.ROR:
		if _, ok := in.Operand.(isa.Accumulator); ok {
			c.A = c.modify(in.Op, c.A)
			return nil
		}
		addr, err := c.address(in.Operand)
		if err != nil {
			return err
		}
		c.WriteByte(addr, c.modify(in.Op, c.ReadByte(addr)))

	case isa.INX:
		c.X++
		c.setNZ(c.X)
	case isa.INY:
		c.Y++
		c.setNZ(c.Y)
	case isa.DEX:
		c.X--
		c.setNZ(c.X)
	case isa.DEY:
		c.Y--
		c.setNZ(c.Y)
	case isa.TAX:
		c.X = c.A
		c.setNZ(c.X)
	case isa.TAY:
		c.Y = c.A
		c.setNZ(c.Y)
	case isa.TXA:
		c.A = c.X
		c.setNZ(c.A)
	case isa.TYA:
		c.A = c.Y
		c.setNZ(c.A)
	case isa.TSX:
		c.X = c.SP
		c.setNZ(c.X)
	case isa.TXS:
		c.SP = c.X

	case isa.PHA:
		c.push(c.A)
	case isa.PLA:
		c.A = c.pull()
		c.setNZ(c.A)
	case isa.PHP:
		c.push(c.Flags() | flagB)
	case isa.PLP:
		c.setFlags(c.pull())

	case isa.SEI:
		c.I = true
	case isa.CLI:
		c.I = false
	case isa.SEC:
		c.C = true
	case isa.CLC:
		c.C = false
	case isa.SED:
		c.D = true
	case isa.CLD:
		c.D = false
	case isa.CLV:
		c.V = false

	case isa.BNE, isa.BEQ, isa.BCC, isa.BCS, isa.BMI, isa.BPL, isa.BVC, isa.BVS:
		if !c.taken(in.Op) {
			return nil
		}
		return c.jump(pc, in.Operand)

	case isa.JMP:
		return c.jump(pc, in.Operand)
	case isa.JSR:
		c.pushWord(uint16(c.PC))
		return c.jump(pc, in.Operand)
	case isa.RTS:
		ret := c.pullWord()
		if ret == returnSentinel {
			c.Halted = true
			return nil
		}
		c.PC = int(ret)
	case isa.RTI:
		c.setFlags(c.pull())
		ret := c.pullWord()
		if ret == returnSentinel {
			c.Halted = true
			return nil
		}
		c.PC = int(ret)

	case isa.BRK:
		c.Halted = true
	case isa.NOP:

	default:
		return errors.Wrap(isa.ErrUnknownOperation, in.Op.String())
	}
	return nil
}

func (c *CPU) alu(op isa.Opcode, m byte) {
	switch op {
	case isa.LDA:
		c.A = m
		c.setNZ(m)
	case isa.LDX:
		c.X = m
		c.setNZ(m)
	case isa.LDY:
		c.Y = m
		c.setNZ(m)
	case isa.ADC:
		c.add(m)
	case isa.SBC:
		c.add(^m)
	case isa.AND:
		c.A &= m
		c.setNZ(c.A)
	case isa.ORA:
		c.A |= m
		c.setNZ(c.A)
	case isa.EOR:
		c.A ^= m
		c.setNZ(c.A)
	case isa.CMP:
		c.compare(c.A, m)
	case isa.CPX:
		c.compare(c.X, m)
	case isa.CPY:
		c.compare(c.Y, m)
	case isa.BIT:
		c.Z = c.A&m == 0
		c.N = m&0x80 != 0
		c.V = m&0x40 != 0
	}
}

func (c *CPU) add(m byte) {
	sum := uint16(c.A) + uint16(m)
	if c.C {
		sum++
	}
	r := byte(sum)
	c.V = (c.A^r)&(m^r)&0x80 != 0
	c.C = sum > 0xFF
	c.A = r
	c.setNZ(r)
}

func (c *CPU) compare(reg, m byte) {
	c.C = reg >= m
	c.setNZ(reg - m)
}

func (c *CPU) modify(op isa.Opcode, v byte) byte {
	switch op {
	case isa.INC:
		v++
	case isa.DEC:
		v--
	case isa.ASL:
		c.C = v&0x80 != 0
		v <<= 1
	case isa.LSR:
		c.C = v&0x01 != 0
		v >>= 1
	case isa.ROL:
		carry := c.C
		c.C = v&0x80 != 0
		v <<= 1
		if carry {
			v |= 0x01
		}
	case isa.ROR:
		carry := c.C
		c.C = v&0x01 != 0
		v >>= 1
		if carry {
			v |= 0x80
		}
	}
	c.setNZ(v)
	return v
}

func (c *CPU) taken(op isa.Opcode) bool {
	switch op {
	case isa.BNE:
		return !c.Z
	case isa.BEQ:
		return c.Z
	case isa.BCC:
		return !c.C
	case isa.BCS:
		return c.C
	case isa.BMI:
		return c.N
	case isa.BPL:
		return !c.N
	case isa.BVC:
		return !c.V
	case isa.BVS:
		return c.V
	}
	return false
}

func (c *CPU) jump(pc int, o isa.Operand) error {
	l, ok := o.(isa.Label)
	if !ok {
		return errors.Wrapf(ErrBadOperand, "jump through %s operand", o.Mode())
	}
	t, err := c.img.target(pc, l)
	if err != nil {
		return err
	}
	c.PC = t
	return nil
}

// load returns the byte an operand reads.
func (c *CPU) load(o isa.Operand) (byte, error) {
	switch o := o.(type) {
	case isa.Immediate:
		return o.Value, nil
	case isa.ImmediateLabel:
		a, err := c.img.dataAddr(o.Label)
		if err != nil {
			return 0, err
		}
		if o.High {
			return byte(a >> 8), nil
		}
		return byte(a), nil
	}
	addr, err := c.address(o)
	if err != nil {
		return 0, err
	}
	return c.ReadByte(addr), nil
}

func (c *CPU) base(b interface{}) (uint16, error) {
	switch b := b.(type) {
	case isa.ZpAddress:
		return uint16(b.Value()), nil
	case isa.AbsAddress:
		return b.Value(), nil
	case isa.Label:
		return c.img.dataAddr(b)
	}
	return 0, errors.Wrapf(ErrBadOperand, "index base %T", b)
}

func (c *CPU) zpWord(zp byte) uint16 {
	return uint16(c.Memory[uint16(zp+1)])<<8 | uint16(c.Memory[uint16(zp)])
}

// address computes an operand's effective address.
func (c *CPU) address(o isa.Operand) (uint16, error) {
	switch o := o.(type) {
	case isa.ZeroPage:
		return uint16(o.Addr.Value()), nil
	case isa.Absolute:
		return o.Addr.Value(), nil
	case isa.ZeroPageX:
		b, err := c.base(o.Base)
		return uint16(byte(b) + c.X), err
	case isa.ZeroPageY:
		b, err := c.base(o.Base)
		return uint16(byte(b) + c.Y), err
	case isa.AbsoluteX:
		b, err := c.base(o.Base)
		return b + uint16(c.X), err
	case isa.AbsoluteY:
		b, err := c.base(o.Base)
		return b + uint16(c.Y), err
	case isa.IndexedIndirectX:
		return c.zpWord(o.Addr.Value() + c.X), nil
	case isa.IndirectIndexedY:
		return c.zpWord(o.Addr.Value()) + uint16(c.Y), nil
	case isa.Indirect:
		a := o.Addr.Value()
		hi := a&0xFF00 | uint16(byte(a)+1)
		return uint16(c.Memory[hi])<<8 | uint16(c.Memory[a]), nil
	}
	return 0, errors.Wrapf(ErrBadOperand, "%s operand has no address", o.Mode())
}

// String renders the registers the way the trace command prints them.
func (c *CPU) String() string {
	return fmt.Sprintf("A=%02X X=%02X Y=%02X SP=%02X P=%02X", c.A, c.X, c.Y, c.SP, c.Flags())
}
