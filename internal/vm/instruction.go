package vm

import "fmt"

// Op identifies one instruction of the base CHIP-8 set.
type Op uint8

const (
	OpUnknown = Op(iota)
	OpNop
	OpClear
	OpReturn
	OpJump
	OpCall
	OpSkipEqualImm
	OpSkipNotEqualImm
	OpSkipEqualReg
	OpLoadImm
	OpAddImm
	OpMove
	OpOr
	OpAnd
	OpXor
	OpAdd
	OpSub
	OpShiftRight
	OpSubReverse
	OpShiftLeft
	OpSkipNotEqualReg
	OpLoadIndex
	OpJumpOffset
	OpRandom
	OpDraw
	OpSkipKeyPressed
	OpSkipKeyNotPressed
	OpGetDelay
	OpWaitKey
	OpSetDelay
	OpSetSound
	OpAddIndex
	OpFont
	OpBCD
	OpStoreRegisters
	OpLoadRegisters
)

// Instruction is a decoded opcode with its operand fields extracted.
type Instruction struct {
	Op  Op
	X   uint8  // register index from the second nibble
	Y   uint8  // register index from the third nibble
	N   uint8  // low nibble
	NN  uint8  // low byte
	NNN uint16 // low 12 bits
}

// Decode splits opcode into nibbles and matches it against the instruction set.
// Opcodes that match nothing decode to OpUnknown.
func Decode(opcode uint16) Instruction {
	instr := Instruction{
		X:   uint8(opcode>>8) & 0x0F,
		Y:   uint8(opcode>>4) & 0x0F,
		N:   uint8(opcode) & 0x0F,
		NN:  uint8(opcode),
		NNN: opcode & 0x0FFF,
	}
	instr.Op = decodeOp(opcode)
	return instr
}

func decodeOp(opcode uint16) Op {
	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x0000:
			return OpNop
		case 0x00E0:
			// 00E0 - Clear screen
			return OpClear
		case 0x00EE:
			// 00EE - Return from subroutine
			return OpReturn
		}

	case 0x1000:
		return OpJump

	case 0x2000:
		return OpCall

	case 0x3000:
		return OpSkipEqualImm

	case 0x4000:
		return OpSkipNotEqualImm

	case 0x5000:
		if opcode&0x000F == 0 {
			return OpSkipEqualReg
		}

	case 0x6000:
		return OpLoadImm

	case 0x7000:
		return OpAddImm

	case 0x8000:
		switch opcode & 0x000F {
		case 0x0:
			return OpMove
		case 0x1:
			return OpOr
		case 0x2:
			return OpAnd
		case 0x3:
			return OpXor
		case 0x4:
			return OpAdd
		case 0x5:
			return OpSub
		case 0x6:
			return OpShiftRight
		case 0x7:
			return OpSubReverse
		case 0xE:
			return OpShiftLeft
		}

	case 0x9000:
		if opcode&0x000F == 0 {
			return OpSkipNotEqualReg
		}

	case 0xA000:
		return OpLoadIndex

	case 0xB000:
		return OpJumpOffset

	case 0xC000:
		return OpRandom

	case 0xD000:
		return OpDraw

	case 0xE000:
		switch opcode & 0x00FF {
		case 0x9E:
			return OpSkipKeyPressed
		case 0xA1:
			return OpSkipKeyNotPressed
		}

	case 0xF000:
		switch opcode & 0x00FF {
		case 0x07:
			return OpGetDelay
		case 0x0A:
			return OpWaitKey
		case 0x15:
			return OpSetDelay
		case 0x18:
			return OpSetSound
		case 0x1E:
			return OpAddIndex
		case 0x29:
			return OpFont
		case 0x33:
			return OpBCD
		case 0x55:
			return OpStoreRegisters
		case 0x65:
			return OpLoadRegisters
		}
	}

	return OpUnknown
}

// String renders the instruction as a mnemonic for trace logs.
func (i Instruction) String() string {
	switch i.Op {
	case OpNop:
		return "nop"
	case OpClear:
		return "cls"
	case OpReturn:
		return "rts"
	case OpJump:
		return fmt.Sprintf("jmp 0x%04x", i.NNN)
	case OpCall:
		return fmt.Sprintf("jsr 0x%04x", i.NNN)
	case OpSkipEqualImm:
		return fmt.Sprintf("skeq v%x, %d", i.X, i.NN)
	case OpSkipNotEqualImm:
		return fmt.Sprintf("skne v%x, %d", i.X, i.NN)
	case OpSkipEqualReg:
		return fmt.Sprintf("skeq v%x, v%x", i.X, i.Y)
	case OpLoadImm:
		return fmt.Sprintf("mov v%x, %d", i.X, i.NN)
	case OpAddImm:
		return fmt.Sprintf("add v%x, %d", i.X, i.NN)
	case OpMove:
		return fmt.Sprintf("mov v%x, v%x", i.X, i.Y)
	case OpOr:
		return fmt.Sprintf("or v%x, v%x", i.X, i.Y)
	case OpAnd:
		return fmt.Sprintf("and v%x, v%x", i.X, i.Y)
	case OpXor:
		return fmt.Sprintf("xor v%x, v%x", i.X, i.Y)
	case OpAdd:
		return fmt.Sprintf("add v%x, v%x", i.X, i.Y)
	case OpSub:
		return fmt.Sprintf("sub v%x, v%x", i.X, i.Y)
	case OpShiftRight:
		return fmt.Sprintf("shr v%x", i.X)
	case OpSubReverse:
		return fmt.Sprintf("rsb v%x, v%x", i.X, i.Y)
	case OpShiftLeft:
		return fmt.Sprintf("shl v%x", i.X)
	case OpSkipNotEqualReg:
		return fmt.Sprintf("skne v%x, v%x", i.X, i.Y)
	case OpLoadIndex:
		return fmt.Sprintf("mvi 0x%04x", i.NNN)
	case OpJumpOffset:
		return fmt.Sprintf("jmi 0x%04x", i.NNN)
	case OpRandom:
		return fmt.Sprintf("rand v%x, %d", i.X, i.NN)
	case OpDraw:
		return fmt.Sprintf("sprite v%x, v%x, %d", i.X, i.Y, i.N)
	case OpSkipKeyPressed:
		return fmt.Sprintf("skpr v%x", i.X)
	case OpSkipKeyNotPressed:
		return fmt.Sprintf("skup v%x", i.X)
	case OpGetDelay:
		return fmt.Sprintf("gdelay v%x", i.X)
	case OpWaitKey:
		return fmt.Sprintf("key v%x", i.X)
	case OpSetDelay:
		return fmt.Sprintf("sdelay v%x", i.X)
	case OpSetSound:
		return fmt.Sprintf("ssound v%x", i.X)
	case OpAddIndex:
		return fmt.Sprintf("adi v%x", i.X)
	case OpFont:
		return fmt.Sprintf("font v%x", i.X)
	case OpBCD:
		return fmt.Sprintf("bcd v%x", i.X)
	case OpStoreRegisters:
		return fmt.Sprintf("str %d", i.X)
	case OpLoadRegisters:
		return fmt.Sprintf("ldr %d", i.X)
	default:
		return "unknown"
	}
}
