package emulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kapitanov/chip8emu/internal/vm"
)

var (
	ErrReboot        = errors.New("reboot")
	ErrQuit          = errors.New("quit")
	ErrInvalidConfig = errors.New("invalid config")
)

// HAL is the host side of the emulator: renderer, input mapper and audio.
// ReadInput may return ErrQuit or ErrReboot.
type HAL interface {
	ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error
	Draw(display vm.Display) error
	Beep() error
}

type Config struct {
	InstructionsPerSecond int // CPU rate
	TimerHz               int // timer and frame rate
}

func DefaultConfig() Config {
	return Config{
		InstructionsPerSecond: 700,
		TimerHz:               60,
	}
}

func (c Config) Validate() error {
	if c.TimerHz <= 0 {
		return fmt.Errorf("%w: timer rate must be positive, got %d", ErrInvalidConfig, c.TimerHz)
	}
	if c.InstructionsPerSecond < c.TimerHz {
		return fmt.Errorf("%w: instruction rate %d is below timer rate %d", ErrInvalidConfig, c.InstructionsPerSecond, c.TimerHz)
	}
	return nil
}

// StepsPerFrame is the number of instructions executed between two timer ticks.
func (c Config) StepsPerFrame() int {
	return c.InstructionsPerSecond / c.TimerHz
}

func (c Config) FrameDuration() time.Duration {
	return time.Second / time.Duration(c.TimerHz)
}

type Emulator struct {
	machine *vm.Machine
	hal     HAL
	program []byte
	cfg     Config
	halted  bool
}

func New(machine *vm.Machine, hal HAL, program []byte, cfg Config) (*Emulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(program) > vm.MaxProgramSize {
		return nil, fmt.Errorf("%w: %d bytes", vm.ErrProgramTooLarge, len(program))
	}

	return &Emulator{
		machine: machine,
		hal:     hal,
		program: program,
		cfg:     cfg,
	}, nil
}

// Run boots the machine and executes frames at the configured timer rate
// until the host quits or ctx is done. A reboot request restarts the program.
func (e *Emulator) Run(ctx context.Context) error {
	if err := e.Boot(); err != nil {
		return err
	}

	ticker := time.NewTicker(e.cfg.FrameDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("emulator: context done", "err", ctx.Err())
			return nil
		case <-ticker.C:
		}

		err := e.Frame()
		switch {
		case errors.Is(err, ErrReboot):
			slog.Info("reboot")
			if err := e.Boot(); err != nil {
				return err
			}

		case errors.Is(err, ErrQuit):
			return nil

		case err != nil:
			return err
		}
	}
}

// Boot resets the machine and loads the program.
func (e *Emulator) Boot() error {
	e.machine.Reset()
	e.halted = false

	if err := e.machine.LoadProgram(e.program); err != nil {
		return fmt.Errorf("unable to load program: %w", err)
	}
	return nil
}

// Frame executes one frame worth of instructions, ticks the timers once,
// redraws the display if it changed and polls the input.
func (e *Emulator) Frame() error {
	for i := 0; i < e.cfg.StepsPerFrame() && !e.halted; i++ {
		if e.looped() {
			slog.Info("program looped", "pc", fmt.Sprintf("0x%04x", e.machine.PC()))
			e.halted = true
			break
		}

		if err := e.machine.Tick(); err != nil {
			return err
		}
	}

	if e.machine.TickTimers() {
		if err := e.hal.Beep(); err != nil {
			return err
		}
	}

	if e.machine.Redraw() {
		if err := e.hal.Draw(e.machine.Display()); err != nil {
			return err
		}
	}

	return e.hal.ReadInput(e.keyDown, e.keyUp)
}

// Halted reports whether the program has entered a jump-to-self loop.
func (e *Emulator) Halted() bool {
	return e.halted
}

// looped reports whether the next instruction jumps to its own address.
func (e *Emulator) looped() bool {
	pc := e.machine.PC()

	hi, err := e.machine.Memory(pc)
	if err != nil {
		return false
	}
	lo, err := e.machine.Memory(pc + 1)
	if err != nil {
		return false
	}

	instr := vm.Decode(uint16(hi)<<8 | uint16(lo))
	return instr.Op == vm.OpJump && instr.NNN == pc
}

func (e *Emulator) keyDown(key vm.Key) {
	e.setKey(key, true)
}

func (e *Emulator) keyUp(key vm.Key) {
	e.setKey(key, false)
}

func (e *Emulator) setKey(key vm.Key, pressed bool) {
	if err := e.machine.SetKey(key, pressed); err != nil {
		slog.Warn("ignore key", "key", key, "err", err)
	}
}
