package sts

import "fmt"

// Frame layout offsets and sizes.
const (
	header1 = 0xFF
	header2 = 0xFF

	pktID          = 2
	pktLength      = 3
	pktInstruction = 4
	pktError       = 4
	pktParam0      = 5

	// statusOverhead is the number of non-parameter bytes in a status frame:
	// two header bytes, id, length, error byte and checksum.
	statusOverhead = 6

	// maxParamLen bounds the parameter block so the length byte
	// (paramLen+2) cannot wrap.
	maxParamLen = 250
)

// Checksum computes the one-byte integrity field: the bitwise complement of
// the modulo-256 sum of body, which must span everything between the two
// header bytes and the checksum itself (id, length, instruction or error
// byte, and parameters).
func Checksum(body []byte) byte {
	var sum byte
	for _, v := range body {
		sum += v
	}

	return ^sum
}

// EncodeInstruction builds a complete instruction frame addressed to id.
// A fresh slice is returned on every call; frames are never reused.
//
// It fails only on caller misuse (id outside the address space, or a
// parameter block too long for the one-byte length field), never on I/O.
func EncodeInstruction(id byte, instr byte, params []byte) ([]byte, error) {
	if id > BroadcastID {
		return nil, fmt.Errorf("%w: id %d out of range", ErrTxError, id)
	}
	if len(params) > maxParamLen {
		return nil, fmt.Errorf("%w: %d parameter bytes exceed the frame limit", ErrTxError, len(params))
	}

	frame := make([]byte, 0, len(params)+statusOverhead)
	frame = append(frame, header1, header2, id, byte(len(params)+2), instr)
	frame = append(frame, params...)
	frame = append(frame, Checksum(frame[pktID:]))

	return frame, nil
}

// DecodeStatus scans buf for a status frame from id carrying exactly paramLen
// parameter bytes, and returns the frame's error byte and a copy of its
// parameters.
//
// The scan advances a 3-byte sliding window one byte at a time looking for
// 0xFF 0xFF id, which recovers from leading noise, partial frames, and other
// devices' replies interleaved in the same buffer: frames whose id does not
// match are skipped, not consumed, so a later call can still decode them.
// When the window aligns, the length byte must equal paramLen+2; on mismatch
// the scan resumes from the next byte rather than rewinding to the matched
// header. The checksum is accumulated while the parameters are copied and
// compared against the trailing byte.
//
// CommRxCorrupt is returned when the buffer is exhausted without a valid
// match, or when an aligned frame fails its checksum.
func DecodeStatus(buf []byte, id byte, paramLen int) (ErrorBits, []byte, CommResult) {
	idx := 0
	n := len(buf)

	for idx+statusOverhead+paramLen <= n {
		var win [3]byte
		for idx < n {
			win[2], win[1], win[0] = win[1], win[0], buf[idx]
			idx++

			if win[2] == header1 && win[1] == header2 && win[0] == id {
				break
			}
		}

		// idx now points at the length byte; the length byte, error byte,
		// parameters and checksum must still fit.
		if idx+3+paramLen > n {
			break
		}

		if buf[idx] != byte(paramLen+2) {
			// Narrow resync: keep scanning from the next byte.
			idx++
			continue
		}
		idx++

		errByte := buf[idx]
		idx++

		sum := id + byte(paramLen+2) + errByte
		params := make([]byte, paramLen)
		for i := 0; i < paramLen; i++ {
			params[i] = buf[idx]
			sum += buf[idx]
			idx++
		}

		if ^sum != buf[idx] {
			return 0, nil, CommRxCorrupt
		}

		return ErrorBits(errByte), params, CommSuccess
	}

	return 0, nil, CommRxCorrupt
}

// --- Multi-byte register composition ---
//
// Registers wider than one byte are transmitted little-endian. These helpers
// are shared by the single-target and group read paths.

// MakeWord composes a 16-bit value from its low and high bytes.
func MakeWord(lo, hi byte) uint16 {
	return uint16(lo) | uint16(hi)<<8
}

// MakeDWord composes a 32-bit value from its low and high words.
func MakeDWord(lo, hi uint16) uint32 {
	return uint32(lo) | uint32(hi)<<16
}

// LoByte returns the low byte of a 16-bit value.
func LoByte(w uint16) byte { return byte(w) }

// HiByte returns the high byte of a 16-bit value.
func HiByte(w uint16) byte { return byte(w >> 8) }

// LoWord returns the low word of a 32-bit value.
func LoWord(d uint32) uint16 { return uint16(d) }

// HiWord returns the high word of a 32-bit value.
func HiWord(d uint32) uint16 { return uint16(d >> 16) }

// --- Sign-magnitude conversion ---
//
// Some registers (present speed, goal speed, position offset) pack the sign
// into a high bit of the magnitude rather than using two's complement. The
// conversion is per-register and explicit; a generic signed-integer read
// would silently misdecode these fields.

// ToHost converts a sign-magnitude register value to a host integer.
// signBit is the bit index carrying the sign (15 for speed, 11 for offset).
func ToHost(v int, signBit uint) int {
	if v&(1<<signBit) != 0 {
		return -(v &^ (1 << signBit))
	}

	return v
}

// ToBus converts a host integer to its sign-magnitude register encoding.
// The magnitude must already be within the field; it is not clamped here.
func ToBus(v int, signBit uint) int {
	if v < 0 {
		return -v | 1<<signBit
	}

	return v
}
