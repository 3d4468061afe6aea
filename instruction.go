package chip8vm

import "fmt"

// Kind identifies one instruction variant of the CHIP-8 set.
type Kind byte

const (
	KindHalt Kind = iota
	KindCls
	KindRet
	KindJp
	KindCall
	KindSeVxByte
	KindSneVxByte
	KindSeVxVy
	KindLdVxByte
	KindAddVxByte
	KindLdVxVy
	KindOr
	KindAnd
	KindXor
	KindAddVxVy
	KindSub
	KindShr
	KindSubn
	KindShl
	KindSneVxVy
	KindLdI
	KindJpV0
	KindRnd
	KindDrw
	KindSkp
	KindSknp
	KindLdVxDt
	KindLdVxK
	KindLdDtVx
	KindLdStVx
	KindAddIVx
	KindLdFVx
	KindLdBVx
	KindLdMemVx
	KindLdVxMem
)

var kindNames = [...]string{
	KindHalt:      "HALT",
	KindCls:       "CLS",
	KindRet:       "RET",
	KindJp:        "JP",
	KindCall:      "CALL",
	KindSeVxByte:  "SE",
	KindSneVxByte: "SNE",
	KindSeVxVy:    "SE",
	KindLdVxByte:  "LD",
	KindAddVxByte: "ADD",
	KindLdVxVy:    "LD",
	KindOr:        "OR",
	KindAnd:       "AND",
	KindXor:       "XOR",
	KindAddVxVy:   "ADD",
	KindSub:       "SUB",
	KindShr:       "SHR",
	KindSubn:      "SUBN",
	KindShl:       "SHL",
	KindSneVxVy:   "SNE",
	KindLdI:       "LD",
	KindJpV0:      "JP",
	KindRnd:       "RND",
	KindDrw:       "DRW",
	KindSkp:       "SKP",
	KindSknp:      "SKNP",
	KindLdVxDt:    "LD",
	KindLdVxK:     "LD",
	KindLdDtVx:    "LD",
	KindLdStVx:    "LD",
	KindAddIVx:    "ADD",
	KindLdFVx:     "LD",
	KindLdBVx:     "LD",
	KindLdMemVx:   "LD",
	KindLdVxMem:   "LD",
}

// Mnemonic returns the assembler name of the kind.
func (k Kind) Mnemonic() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "???"
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Kind   Kind
	OpCode uint16
	// X register operand
	X byte
	// Y register operand
	Y byte
	// N 4-bit immediate
	N byte
	// KK 8-bit immediate
	KK byte
	// NNN 12-bit address
	NNN uint16
}

// Decode splits the instruction word into its nibbles and selects the
// variant. The high nibble picks the family, the low nibble or low byte
// picks the variant inside it.
func Decode(opCode uint16) (Instruction, error) {
	ins := Instruction{
		OpCode: opCode,
		X:      byte((opCode & 0x0F00) >> 8),
		Y:      byte((opCode & 0x00F0) >> 4),
		N:      byte(opCode & 0x000F),
		KK:     byte(opCode & 0x00FF),
		NNN:    opCode & 0x0FFF,
	}

	switch opCode & 0xF000 {
	case 0x0000:
		switch opCode {
		case 0x0000:
			ins.Kind = KindHalt
		case 0x00E0:
			ins.Kind = KindCls
		case 0x00EE:
			ins.Kind = KindRet
		default:
			// 0NNN machine code routines are not supported
			return ins, &DecodeError{OpCode: opCode}
		}

	case 0x1000:
		ins.Kind = KindJp
	case 0x2000:
		ins.Kind = KindCall
	case 0x3000:
		ins.Kind = KindSeVxByte
	case 0x4000:
		ins.Kind = KindSneVxByte
	case 0x5000:
		if ins.N != 0 {
			return ins, &DecodeError{OpCode: opCode}
		}
		ins.Kind = KindSeVxVy
	case 0x6000:
		ins.Kind = KindLdVxByte
	case 0x7000:
		ins.Kind = KindAddVxByte

	case 0x8000:
		switch ins.N {
		case 0x0:
			ins.Kind = KindLdVxVy
		case 0x1:
			ins.Kind = KindOr
		case 0x2:
			ins.Kind = KindAnd
		case 0x3:
			ins.Kind = KindXor
		case 0x4:
			ins.Kind = KindAddVxVy
		case 0x5:
			ins.Kind = KindSub
		case 0x6:
			ins.Kind = KindShr
		case 0x7:
			ins.Kind = KindSubn
		case 0xE:
			ins.Kind = KindShl
		default:
			return ins, &DecodeError{OpCode: opCode}
		}

	case 0x9000:
		if ins.N != 0 {
			return ins, &DecodeError{OpCode: opCode}
		}
		ins.Kind = KindSneVxVy
	case 0xA000:
		ins.Kind = KindLdI
	case 0xB000:
		ins.Kind = KindJpV0
	case 0xC000:
		ins.Kind = KindRnd
	case 0xD000:
		ins.Kind = KindDrw

	case 0xE000:
		switch ins.KK {
		case 0x9E:
			ins.Kind = KindSkp
		case 0xA1:
			ins.Kind = KindSknp
		default:
			return ins, &DecodeError{OpCode: opCode}
		}

	case 0xF000:
		switch ins.KK {
		case 0x07:
			ins.Kind = KindLdVxDt
		case 0x0A:
			ins.Kind = KindLdVxK
		case 0x15:
			ins.Kind = KindLdDtVx
		case 0x18:
			ins.Kind = KindLdStVx
		case 0x1E:
			ins.Kind = KindAddIVx
		case 0x29:
			ins.Kind = KindLdFVx
		case 0x33:
			ins.Kind = KindLdBVx
		case 0x55:
			ins.Kind = KindLdMemVx
		case 0x65:
			ins.Kind = KindLdVxMem
		default:
			return ins, &DecodeError{OpCode: opCode}
		}
	}

	return ins, nil
}

// String formats the instruction as assembler source.
func (ins Instruction) String() string {
	name := ins.Kind.Mnemonic()

	switch ins.Kind {
	case KindHalt, KindCls, KindRet:
		return name
	case KindJp, KindCall:
		return fmt.Sprintf("%s $%03X", name, ins.NNN)
	case KindJpV0:
		return fmt.Sprintf("%s V0, $%03X", name, ins.NNN)
	case KindSeVxByte, KindSneVxByte, KindLdVxByte, KindAddVxByte, KindRnd:
		return fmt.Sprintf("%s V%X, $%02X", name, ins.X, ins.KK)
	case KindSeVxVy, KindSneVxVy, KindLdVxVy, KindOr, KindAnd, KindXor, KindAddVxVy, KindSub, KindSubn:
		return fmt.Sprintf("%s V%X, V%X", name, ins.X, ins.Y)
	case KindShr, KindShl, KindSkp, KindSknp:
		return fmt.Sprintf("%s V%X", name, ins.X)
	case KindLdI:
		return fmt.Sprintf("%s I, $%03X", name, ins.NNN)
	case KindDrw:
		return fmt.Sprintf("%s V%X, V%X, %d", name, ins.X, ins.Y, ins.N)
	case KindLdVxDt:
		return fmt.Sprintf("%s V%X, DT", name, ins.X)
	case KindLdVxK:
		return fmt.Sprintf("%s V%X, K", name, ins.X)
	case KindLdDtVx:
		return fmt.Sprintf("%s DT, V%X", name, ins.X)
	case KindLdStVx:
		return fmt.Sprintf("%s ST, V%X", name, ins.X)
	case KindAddIVx:
		return fmt.Sprintf("%s I, V%X", name, ins.X)
	case KindLdFVx:
		return fmt.Sprintf("%s F, V%X", name, ins.X)
	case KindLdBVx:
		return fmt.Sprintf("%s B, V%X", name, ins.X)
	case KindLdMemVx:
		return fmt.Sprintf("%s [I], V%X", name, ins.X)
	case KindLdVxMem:
		return fmt.Sprintf("%s V%X, [I]", name, ins.X)
	}

	return fmt.Sprintf("DW $%04X", ins.OpCode)
}
