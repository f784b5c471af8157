package vm

import "fmt"

func (m *Machine) execute(instr Instruction) error {
	vx := m.registers[instr.X]
	vy := m.registers[instr.Y]

	switch instr.Op {
	case OpNop:

	case OpClear:
		m.display = Display{}
		m.drawFlag = true

	case OpReturn:
		addr, err := m.pop()
		if err != nil {
			return err
		}
		m.pc = addr

	case OpJump:
		m.pc = instr.NNN

	case OpCall:
		if err := m.push(m.pc); err != nil {
			return err
		}
		m.pc = instr.NNN

	case OpSkipEqualImm:
		m.skipIf(vx == instr.NN)

	case OpSkipNotEqualImm:
		m.skipIf(vx != instr.NN)

	case OpSkipEqualReg:
		m.skipIf(vx == vy)

	case OpLoadImm:
		m.registers[instr.X] = instr.NN

	case OpAddImm:
		// No carry generated
		m.registers[instr.X] = vx + instr.NN

	case OpMove:
		m.registers[instr.X] = vy

	case OpOr:
		m.registers[instr.X] = vx | vy

	case OpAnd:
		m.registers[instr.X] = vx & vy

	case OpXor:
		m.registers[instr.X] = vx ^ vy

	case OpAdd:
		sum := uint16(vx) + uint16(vy)
		m.registers[instr.X] = uint8(sum)
		m.setFlag(sum > 0xFF)

	case OpSub:
		m.registers[instr.X] = vx - vy
		m.setFlag(vx >= vy)

	case OpShiftRight:
		m.registers[flagRegister] = vx & 0x01
		m.registers[instr.X] = vx >> 1

	case OpSubReverse:
		m.registers[instr.X] = vy - vx
		m.setFlag(vy >= vx)

	case OpShiftLeft:
		m.registers[flagRegister] = vx >> 7
		m.registers[instr.X] = vx << 1

	case OpSkipNotEqualReg:
		m.skipIf(vx != vy)

	case OpLoadIndex:
		m.index = instr.NNN

	case OpJumpOffset:
		m.pc = instr.NNN + uint16(m.registers[0])

	case OpRandom:
		m.registers[instr.X] = m.randByte() & instr.NN

	case OpDraw:
		return m.drawSprite(vx, vy, instr.N)

	case OpSkipKeyPressed:
		m.skipIf(m.Key(Key(vx)))

	case OpSkipKeyNotPressed:
		m.skipIf(!m.Key(Key(vx)))

	case OpGetDelay:
		m.registers[instr.X] = m.delayTimer

	case OpWaitKey:
		for i, pressed := range m.keypad {
			if pressed {
				m.registers[instr.X] = uint8(i)
				return nil
			}
		}
		// Fetch the same instruction again on the next tick.
		m.pc -= InstructionSize

	case OpSetDelay:
		m.delayTimer = vx

	case OpSetSound:
		m.soundTimer = vx

	case OpAddIndex:
		m.index += uint16(vx)

	case OpFont:
		m.index = FontAddress + uint16(vx&0x0F)*FontGlyphSize

	case OpBCD:
		if err := m.checkRange(m.index, 3); err != nil {
			return err
		}
		m.memory[m.index] = vx / 100
		m.memory[m.index+1] = (vx / 10) % 10
		m.memory[m.index+2] = vx % 10

	case OpStoreRegisters:
		n := int(instr.X) + 1
		if err := m.checkRange(m.index, n); err != nil {
			return err
		}
		copy(m.memory[m.index:], m.registers[:n])

	case OpLoadRegisters:
		n := int(instr.X) + 1
		if err := m.checkRange(m.index, n); err != nil {
			return err
		}
		copy(m.registers[:n], m.memory[m.index:])

	default:
		return ErrUnknownOpcode
	}

	return nil
}

func (m *Machine) skipIf(cond bool) {
	if cond {
		m.pc += InstructionSize
	}
}

func (m *Machine) setFlag(set bool) {
	if set {
		m.registers[flagRegister] = 1
	} else {
		m.registers[flagRegister] = 0
	}
}

func (m *Machine) checkRange(addr uint16, n int) error {
	if int(addr)+n > MemorySize {
		return fmt.Errorf("%w: %d bytes at 0x%04x", ErrMemoryOutOfRange, n, addr)
	}
	return nil
}

// drawSprite XORs an 8-pixel wide sprite of height rows from memory[I] onto
// the display at (x, y). Coordinates wrap around both screen edges. VF is
// rewritten after every row with the collision flag accumulated so far.
func (m *Machine) drawSprite(x, y uint8, height uint8) error {
	if err := m.checkRange(m.index, int(height)); err != nil {
		return err
	}

	const width = 8
	collision := false
	for row := 0; row < int(height); row++ {
		pixels := m.memory[int(m.index)+row]

		for col := 0; col < width; col++ {
			if pixels&(0x80>>col) == 0 {
				continue
			}

			addr := screenAddr(int(x)+col, int(y)+row)
			if m.display[addr] {
				collision = true
			}
			m.display[addr] = !m.display[addr]
		}

		m.setFlag(collision)
	}

	m.drawFlag = true
	return nil
}

func screenAddr(x, y int) int {
	x %= ScreenWidth
	y %= ScreenHeight

	return ScreenWidth*y + x
}
