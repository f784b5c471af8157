package vm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	MaxProgramSize  = MemorySize - int(ProgramStart)
	InstructionSize = 2

	FontAddress   = uint16(0x000)
	FontGlyphSize = 5

	flagRegister = 0x0F
)

// Display is a snapshot of the 64x32 framebuffer, row-major.
type Display [ScreenWidth * ScreenHeight]bool

// Pixel reports whether the pixel at (x, y) is set.
// Coordinates outside the screen are never set.
func (d *Display) Pixel(x, y int) bool {
	if x < 0 || x >= ScreenWidth || y < 0 || y >= ScreenHeight {
		return false
	}
	return d[x+y*ScreenWidth]
}

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// Machine holds the complete CHIP-8 CPU state. It is not safe for
// concurrent use; the host serializes all calls.
type Machine struct {
	memory    [MemorySize]uint8    // Memory (4k)
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    uint16            // Number of stack entries in use

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	display  Display        // Graphics buffer
	keypad   [KeyCount]bool // Keypad
	drawFlag bool           // Indicates the display changed since the last Redraw

	randByte func() uint8
}

type Option func(*Machine)

// WithRandom replaces the random byte source used by the rand instruction.
func WithRandom(fn func() uint8) Option {
	return func(m *Machine) {
		m.randByte = fn
	}
}

func New(opts ...Option) *Machine {
	m := &Machine{
		randByte: func() uint8 {
			return uint8(rand.Intn(256))
		},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.Reset()
	return m
}

// Reset restores the machine to its freshly constructed state. Loaded
// program bytes are cleared as well.
func (m *Machine) Reset() {
	m.pc = ProgramStart
	m.index = 0
	m.sp = 0
	m.stack = [StackSize]uint16{}
	m.registers = [RegisterCount]uint8{}
	m.keypad = [KeyCount]bool{}

	m.display = Display{}
	m.drawFlag = true

	m.memory = [MemorySize]uint8{}
	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontAddress), "n", len(chip8Font))
	copy(m.memory[FontAddress:], chip8Font)

	m.delayTimer = 0
	m.soundTimer = 0
}

// LoadProgram copies raw program bytes into memory at ProgramStart.
func (m *Machine) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d fit", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))
	copy(m.memory[ProgramStart:], program)
	return nil
}

// Tick fetches, decodes and executes exactly one instruction. On failure
// the returned error is a *Fault and the program counter is left pointing
// at the offending instruction.
func (m *Machine) Tick() error {
	pc := m.pc

	opcode, err := m.fetchOpcode()
	if err != nil {
		return &Fault{PC: pc, Err: err}
	}

	instr := Decode(opcode)
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", pc),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.String(),
		)
	}

	if err := m.execute(instr); err != nil {
		m.pc = pc
		return &Fault{PC: pc, Opcode: opcode, Err: err}
	}

	return nil
}

// TickTimers decrements both timers by one, never below zero. It reports
// true when the sound timer has just run out, which is when the host
// should sound its beep.
func (m *Machine) TickTimers() (beep bool) {
	if m.delayTimer > 0 {
		m.delayTimer--
	}

	if m.soundTimer > 0 {
		beep = m.soundTimer == 1
		m.soundTimer--
	}

	return beep
}

func (m *Machine) fetchOpcode() (uint16, error) {
	if int(m.pc)+1 >= MemorySize {
		return 0, fmt.Errorf("%w: fetch at 0x%04x", ErrMemoryOutOfRange, m.pc)
	}

	hi := m.memory[m.pc]
	lo := m.memory[m.pc+1]
	m.pc += InstructionSize

	return uint16(hi)<<8 | uint16(lo), nil
}

func (m *Machine) push(addr uint16) error {
	if int(m.sp) >= StackSize {
		return ErrStackOverflow
	}
	m.stack[m.sp] = addr
	m.sp++
	return nil
}

func (m *Machine) pop() (uint16, error) {
	if m.sp == 0 {
		return 0, ErrStackUnderflow
	}
	m.sp--
	return m.stack[m.sp], nil
}

// Display returns a copy of the framebuffer.
func (m *Machine) Display() Display {
	return m.display
}

// Redraw reports whether the display changed since the previous call and
// clears the flag.
func (m *Machine) Redraw() bool {
	changed := m.drawFlag
	m.drawFlag = false
	return changed
}

// SetKey records the pressed state of one keypad key.
func (m *Machine) SetKey(key Key, pressed bool) error {
	if int(key) >= KeyCount {
		return fmt.Errorf("%w: %d", ErrInvalidKey, key)
	}
	m.keypad[key] = pressed
	return nil
}

// Key reports whether key is pressed. Out of range keys are never pressed.
func (m *Machine) Key(key Key) bool {
	if int(key) >= KeyCount {
		return false
	}
	return m.keypad[key]
}

func (m *Machine) PC() uint16 {
	return m.pc
}

func (m *Machine) Index() uint16 {
	return m.index
}

func (m *Machine) DelayTimer() uint8 {
	return m.delayTimer
}

func (m *Machine) SoundTimer() uint8 {
	return m.soundTimer
}

// StackDepth returns the number of return addresses on the stack.
func (m *Machine) StackDepth() int {
	return int(m.sp)
}

// Register returns Vi; i is masked to a register index.
func (m *Machine) Register(i int) uint8 {
	return m.registers[i&0x0F]
}

// Memory returns the byte stored at addr.
func (m *Machine) Memory(addr uint16) (uint8, error) {
	if int(addr) >= MemorySize {
		return 0, fmt.Errorf("%w: read at 0x%04x", ErrMemoryOutOfRange, addr)
	}
	return m.memory[addr], nil
}
