package chip8vm

import (
	"fmt"
	"io"
)

func (cpu *Cpu) execute(ins Instruction) (StepResult, error) {
	x, y := ins.X, ins.Y
	next := cpu.Pc + 2

	switch ins.Kind {
	case KindHalt:
		// 0000 :: Stop the machine.
		cpu.halted.Store(true)
		return Halted, nil

	case KindCls:
		// CLS :: Clear the display.
		cpu.Screen.Clear()
		cpu.isScreenDirty = true

	case KindRet:
		// RET :: Return from a subroutine.
		if cpu.Sp == 0 {
			return cpu.fail(fmt.Errorf("RET at PC=%03X: %w", cpu.Pc, ErrStackUnderflow))
		}
		cpu.Sp--
		next = cpu.Stack[cpu.Sp]

	case KindJp:
		// JP addr :: Jump to location nnn.
		next = ins.NNN

	case KindCall:
		// CALL addr :: Call subroutine at nnn.
		if int(cpu.Sp) >= len(cpu.Stack) {
			return cpu.fail(fmt.Errorf("CALL at PC=%03X: %w", cpu.Pc, ErrStackOverflow))
		}
		cpu.Stack[cpu.Sp] = next
		cpu.Sp++
		next = ins.NNN

	case KindSeVxByte:
		// SE Vx, byte :: Skip next instruction if Vx = kk.
		if cpu.V[x] == ins.KK {
			next += 2
		}

	case KindSneVxByte:
		// SNE Vx, byte :: Skip next instruction if Vx != kk.
		if cpu.V[x] != ins.KK {
			next += 2
		}

	case KindSeVxVy:
		// SE Vx, Vy :: Skip next instruction if Vx = Vy.
		if cpu.V[x] == cpu.V[y] {
			next += 2
		}

	case KindLdVxByte:
		// LD Vx, byte :: Set Vx = kk.
		cpu.V[x] = ins.KK

	case KindAddVxByte:
		// ADD Vx, byte :: Set Vx = Vx + kk. VF is untouched.
		cpu.V[x] += ins.KK

	case KindLdVxVy:
		// LD Vx, Vy :: Set Vx = Vy.
		cpu.V[x] = cpu.V[y]

	case KindOr:
		// OR Vx, Vy :: Set Vx = Vx OR Vy.
		cpu.V[x] |= cpu.V[y]
		cpu.resetFlagQuirk()

	case KindAnd:
		// AND Vx, Vy :: Set Vx = Vx AND Vy.
		cpu.V[x] &= cpu.V[y]
		cpu.resetFlagQuirk()

	case KindXor:
		// XOR Vx, Vy :: Set Vx = Vx XOR Vy.
		cpu.V[x] ^= cpu.V[y]
		cpu.resetFlagQuirk()

	case KindAddVxVy:
		// ADD Vx, Vy :: Set Vx = Vx + Vy, set VF = carry.
		sum := uint16(cpu.V[x]) + uint16(cpu.V[y])
		cpu.V[x] = byte(sum)
		cpu.V[0xF] = byte(sum >> 8)

	case KindSub:
		// SUB Vx, Vy :: Set Vx = Vx - Vy, set VF = NOT borrow.
		notBorrow := cpu.V[x] >= cpu.V[y]
		cpu.V[x] -= cpu.V[y]
		cpu.V[0xF] = bool2byte(notBorrow)

	case KindShr:
		// SHR Vx :: Set Vx = Vx SHR 1, VF = shifted out bit.
		src := cpu.shiftSource(x, y)
		cpu.V[x] = src >> 1
		cpu.V[0xF] = src & 0x01

	case KindSubn:
		// SUBN Vx, Vy :: Set Vx = Vy - Vx, set VF = NOT borrow.
		notBorrow := cpu.V[y] >= cpu.V[x]
		cpu.V[x] = cpu.V[y] - cpu.V[x]
		cpu.V[0xF] = bool2byte(notBorrow)

	case KindShl:
		// SHL Vx :: Set Vx = Vx SHL 1, VF = shifted out bit.
		src := cpu.shiftSource(x, y)
		cpu.V[x] = src << 1
		cpu.V[0xF] = src >> 7

	case KindSneVxVy:
		// SNE Vx, Vy :: Skip next instruction if Vx != Vy.
		if cpu.V[x] != cpu.V[y] {
			next += 2
		}

	case KindLdI:
		// LD I, addr :: Set I = nnn.
		cpu.I = ins.NNN

	case KindJpV0:
		// JP V0, addr :: Jump to location nnn + V0.
		base := cpu.V[0]
		if cpu.quirks.Has(QuirkJumpUsesVx) {
			base = cpu.V[x]
		}
		next = ins.NNN + uint16(base)

	case KindRnd:
		// RND Vx, byte :: Set Vx = random byte AND kk.
		var b [1]byte
		if _, err := io.ReadFull(cpu.random, b[:]); err != nil {
			return cpu.fail(fmt.Errorf("RND at PC=%03X: %w", cpu.Pc, err))
		}
		cpu.V[x] = b[0] & ins.KK

	case KindDrw:
		// DRW Vx, Vy, nibble :: Display n-byte sprite starting at memory location I at (Vx, Vy), set VF = collision.
		sprite := make([]byte, ins.N)
		for i := range sprite {
			b, err := cpu.Memory.Read(cpu.I + uint16(i))
			if err != nil {
				return cpu.fail(err)
			}
			sprite[i] = b
		}
		collision := cpu.Screen.DrawSprite(cpu.V[x], cpu.V[y], sprite)
		cpu.V[0xF] = bool2byte(collision)
		cpu.isScreenDirty = true

	case KindSkp:
		// SKP Vx :: Skip next instruction if key with the value of Vx is pressed.
		if cpu.Keyboard.IsPressed(cpu.V[x]) {
			next += 2
		}

	case KindSknp:
		// SKNP Vx :: Skip next instruction if key with the value of Vx is not pressed.
		if !cpu.Keyboard.IsPressed(cpu.V[x]) {
			next += 2
		}

	case KindLdVxDt:
		// LD Vx, DT :: Set Vx = delay timer value.
		cpu.V[x] = cpu.Timers.Delay

	case KindLdVxK:
		// LD Vx, K :: Wait for a key press, store the value of the key in Vx.
		// The PC stays here until a key goes down after this point.
		cpu.waitingForKey.Store(true)
		cpu.keyDstRegister = x
		cpu.keysAtWait = cpu.Keyboard.State()
		return Waiting, nil

	case KindLdDtVx:
		// LD DT, Vx :: Set delay timer = Vx.
		cpu.Timers.Delay = cpu.V[x]

	case KindLdStVx:
		// LD ST, Vx :: Set sound timer = Vx.
		cpu.Timers.Sound = cpu.V[x]

	case KindAddIVx:
		// ADD I, Vx :: Set I = I + Vx.
		cpu.I = (cpu.I + uint16(cpu.V[x])) & addressMask

	case KindLdFVx:
		// LD F, Vx :: Set I = location of sprite for digit Vx.
		cpu.I = StartOfFont + uint16(cpu.V[x]&0x0F)*FontSpriteSize

	case KindLdBVx:
		// LD B, Vx :: Store BCD representation of Vx in memory locations I, I+1, and I+2.
		v := cpu.V[x]
		for i, digit := range [3]byte{v / 100, (v / 10) % 10, v % 10} {
			if err := cpu.Memory.Write(cpu.I+uint16(i), digit); err != nil {
				return cpu.fail(err)
			}
		}

	case KindLdMemVx:
		// LD [I], Vx :: Store registers V0 through Vx in memory starting at location I.
		for i := uint16(0); i <= uint16(x); i++ {
			if err := cpu.Memory.Write(cpu.I+i, cpu.V[i]); err != nil {
				return cpu.fail(err)
			}
		}
		cpu.moveIndexQuirk(x)

	case KindLdVxMem:
		// LD Vx, [I] :: Read registers V0 through Vx from memory starting at location I.
		for i := uint16(0); i <= uint16(x); i++ {
			b, err := cpu.Memory.Read(cpu.I + i)
			if err != nil {
				return cpu.fail(err)
			}
			cpu.V[i] = b
		}
		cpu.moveIndexQuirk(x)

	default:
		return cpu.fail(&DecodeError{OpCode: ins.OpCode, Pc: cpu.Pc})
	}

	cpu.Pc = next

	return Executed, nil
}

func (cpu *Cpu) resetFlagQuirk() {
	if cpu.quirks.Has(QuirkVfReset) {
		cpu.V[0xF] = 0
	}
}

func (cpu *Cpu) shiftSource(x, y byte) byte {
	if cpu.quirks.Has(QuirkShiftUsesVy) {
		return cpu.V[y]
	}

	return cpu.V[x]
}

func (cpu *Cpu) moveIndexQuirk(x byte) {
	if cpu.quirks.Has(QuirkMemoryMovesIndex) {
		cpu.I = (cpu.I + uint16(x) + 1) & addressMask
	}
}
