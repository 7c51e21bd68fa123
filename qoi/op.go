package qoi

// opKind identifies one of the opcodes of the stream.
type opKind uint8

const (
	kindIndex opKind = iota + 1
	kindDiff
	kindLuma
	kindRun
	kindRGB
	kindRGBA
)

func (k opKind) String() string {
	switch k {
	case kindIndex:
		return "index"
	case kindDiff:
		return "diff"
	case kindLuma:
		return "luma"
	case kindRun:
		return "run"
	case kindRGB:
		return "rgb"
	case kindRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// size is the number of bytes the opcode occupies, tag byte included.
func (k opKind) size() int {
	switch k {
	case kindIndex, kindDiff, kindRun:
		return 1
	case kindLuma:
		return 2
	case kindRGB:
		return 4
	case kindRGBA:
		return 5
	default:
		return 0
	}
}

// classify maps a leading byte to its opcode. The 8 bit tags are checked
// before the 2 bit tags since both rgb and rgba start with 0b11.
func classify(b1 byte) opKind {
	switch {
	case b1 == opRGBA:
		return kindRGBA
	case b1 == opRGB:
		return kindRGB
	}

	switch b1 & maskOP {
	case opINDEX:
		return kindIndex
	case opDIFF:
		return kindDiff
	case opLUMA:
		return kindLuma
	case opRUN:
		return kindRun
	}

	return 0
}
