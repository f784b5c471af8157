package vm

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode    = errors.New("unknown opcode")
	ErrMemoryOutOfRange = errors.New("memory out of range")
	ErrStackOverflow    = errors.New("stack overflow")
	ErrStackUnderflow   = errors.New("stack underflow")
	ErrProgramTooLarge  = errors.New("program too large")
	ErrInvalidKey       = errors.New("invalid key")
)

// Fault is returned by Tick when an instruction cannot be executed.
// PC is the address the opcode was fetched from.
type Fault struct {
	PC     uint16
	Opcode uint16
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("pc 0x%04x opcode 0x%04x: %v", f.PC, f.Opcode, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
