package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		opcode uint16
		op     Op
		name   string
	}{
		{0x0000, OpNop, "nop"},
		{0x00E0, OpClear, "cls"},
		{0x00EE, OpReturn, "rts"},
		{0x1ABC, OpJump, "jmp 0x0abc"},
		{0x2ABC, OpCall, "jsr 0x0abc"},
		{0x3A12, OpSkipEqualImm, "skeq va, 18"},
		{0x4A12, OpSkipNotEqualImm, "skne va, 18"},
		{0x5AB0, OpSkipEqualReg, "skeq va, vb"},
		{0x6A12, OpLoadImm, "mov va, 18"},
		{0x7A12, OpAddImm, "add va, 18"},
		{0x8AB0, OpMove, "mov va, vb"},
		{0x8AB1, OpOr, "or va, vb"},
		{0x8AB2, OpAnd, "and va, vb"},
		{0x8AB3, OpXor, "xor va, vb"},
		{0x8AB4, OpAdd, "add va, vb"},
		{0x8AB5, OpSub, "sub va, vb"},
		{0x8AB6, OpShiftRight, "shr va"},
		{0x8AB7, OpSubReverse, "rsb va, vb"},
		{0x8ABE, OpShiftLeft, "shl va"},
		{0x9AB0, OpSkipNotEqualReg, "skne va, vb"},
		{0xA123, OpLoadIndex, "mvi 0x0123"},
		{0xB123, OpJumpOffset, "jmi 0x0123"},
		{0xCA0F, OpRandom, "rand va, 15"},
		{0xDAB5, OpDraw, "sprite va, vb, 5"},
		{0xEA9E, OpSkipKeyPressed, "skpr va"},
		{0xEAA1, OpSkipKeyNotPressed, "skup va"},
		{0xFA07, OpGetDelay, "gdelay va"},
		{0xFA0A, OpWaitKey, "key va"},
		{0xFA15, OpSetDelay, "sdelay va"},
		{0xFA18, OpSetSound, "ssound va"},
		{0xFA1E, OpAddIndex, "adi va"},
		{0xFA29, OpFont, "font va"},
		{0xFA33, OpBCD, "bcd va"},
		{0xFA55, OpStoreRegisters, "str 10"},
		{0xFA65, OpLoadRegisters, "ldr 10"},
		{0x0200, OpUnknown, "unknown"},
		{0x5AB1, OpUnknown, "unknown"},
		{0x8AB8, OpUnknown, "unknown"},
		{0x9AB1, OpUnknown, "unknown"},
		{0xEA00, OpUnknown, "unknown"},
		{0xFA00, OpUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := Decode(tt.opcode)

			assert.Equal(t, tt.op, instr.Op)
			assert.Equal(t, tt.name, instr.String())
		})
	}
}

func TestDecodeFields(t *testing.T) {
	instr := Decode(0xD12F)

	assert.Equal(t, uint8(0x1), instr.X)
	assert.Equal(t, uint8(0x2), instr.Y)
	assert.Equal(t, uint8(0xF), instr.N)
	assert.Equal(t, uint8(0x2F), instr.NN)
	assert.Equal(t, uint16(0x12F), instr.NNN)
}

func FuzzDecode(f *testing.F) {
	f.Add(uint16(0x0000))
	f.Add(uint16(0xFFFF))
	f.Add(uint16(0xD125))

	f.Fuzz(func(t *testing.T, opcode uint16) {
		m := New()
		m.memory[ProgramStart] = uint8(opcode >> 8)
		m.memory[ProgramStart+1] = uint8(opcode)

		err := m.Tick()

		if Decode(opcode).Op == OpUnknown {
			assert.ErrorIs(t, err, ErrUnknownOpcode)
			assert.Equal(t, ProgramStart, m.PC())
		} else if err != nil {
			// Only stack and memory faults are possible from a fresh machine.
			var fault *Fault
			assert.ErrorAs(t, err, &fault)
			assert.NotErrorIs(t, err, ErrUnknownOpcode)
		}
	})
}
