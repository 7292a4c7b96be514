package wire

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
)

// ObfuscationKey is the 4-byte repeating XOR key applied to every frame,
// keyed from the frame's starting offset within the connection stream
// (spec.md §4.1).
var ObfuscationKey = [4]byte{0xA6, 0x77, 0x95, 0x7C}

const (
	HeaderLength = 8  // opcode(2) + length(2) + packet_count(4)
	DigestLength = 16 // MD5
)

var (
	ErrShortFrame   = errors.New("wire: short frame")
	ErrBadChecksum  = errors.New("wire: digest mismatch")
	ErrFrameTooLong = errors.New("wire: frame body too long")
)

// MaxBodyLength bounds a single frame's body so a corrupt length field
// cannot make the codec try to buffer unbounded memory.
const MaxBodyLength = 1 << 20

// Opcode identifies a wire message type.
type Opcode uint16

// Header is the 8-byte frame header: opcode, body length, packet count.
type Header struct {
	Opcode      Opcode
	Length      uint16
	PacketCount uint32
}

func (h Header) MarshalBinary() []byte {
	b := make([]byte, HeaderLength)
	binary.BigEndian.PutUint16(b[0:2], uint16(h.Opcode))
	binary.BigEndian.PutUint16(b[2:4], h.Length)
	binary.BigEndian.PutUint32(b[4:8], h.PacketCount)
	return b
}

func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLength {
		return Header{}, ErrShortFrame
	}
	return Header{
		Opcode:      Opcode(binary.BigEndian.Uint16(b[0:2])),
		Length:      binary.BigEndian.Uint16(b[2:4]),
		PacketCount: binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// Frame is a fully decoded header+digest+body unit.
type Frame struct {
	Header Header
	Digest [DigestLength]byte
	Body   []byte
}

// xorFrom obfuscates/deobfuscates b in place, cycling the key starting at
// the given byte offset within the overall connection stream.
func xorFrom(b []byte, offset int) {
	for i := range b {
		b[i] ^= ObfuscationKey[(offset+i)%4]
	}
}

// Deobfuscate XORs b (read starting at the given stream offset) in place
// and returns it for convenience.
func Deobfuscate(b []byte, offset int) []byte {
	xorFrom(b, offset)
	return b
}

// Obfuscate XORs b (to be written starting at the given stream offset) in
// place and returns it for convenience. The operation is its own inverse.
func Obfuscate(b []byte, offset int) []byte {
	xorFrom(b, offset)
	return b
}

func digestOf(headerBytes, body []byte) [DigestLength]byte {
	h := md5.New()
	h.Write(headerBytes)
	h.Write(body)
	var out [DigestLength]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Codec parses and emits frames for a single connection, tracking the
// per-connection monotonic send counter (spec.md §4.1).
type Codec struct {
	sendCount uint32
}

// NextPacketCount returns the next monotonically increasing packet count,
// starting at 1 and incrementing on every send.
func (c *Codec) NextPacketCount() uint32 {
	c.sendCount++
	return c.sendCount
}

// TryParse attempts to parse one frame from the front of buf, assuming buf
// holds bytes starting at the given stream offset (so obfuscation keys
// correctly). It returns the parsed frame, the number of bytes consumed
// from buf, and whether a complete frame was available.
//
// This implements the parse contract of spec.md §4.1 steps 1-5: wait for
// more bytes, deobfuscate the header, wait for the full frame, deobfuscate
// it, verify the digest, and yield.
func TryParse(buf []byte, streamOffset int) (Frame, int, bool, error) {
	if len(buf) < HeaderLength {
		return Frame{}, 0, false, nil
	}

	headerBytes := append([]byte(nil), buf[:HeaderLength]...)
	Deobfuscate(headerBytes, streamOffset)

	header, err := ParseHeader(headerBytes)
	if err != nil {
		return Frame{}, 0, false, err
	}
	if int(header.Length) > MaxBodyLength {
		return Frame{}, 0, false, ErrFrameTooLong
	}

	total := HeaderLength + DigestLength + int(header.Length)
	if len(buf) < total {
		return Frame{}, 0, false, nil
	}

	whole := append([]byte(nil), buf[:total]...)
	Deobfuscate(whole, streamOffset)

	gotDigest := whole[HeaderLength : HeaderLength+DigestLength]
	body := whole[HeaderLength+DigestLength : total]

	wantDigest := digestOf(whole[:HeaderLength], body)
	if !digestsEqual(gotDigest, wantDigest[:]) {
		return Frame{}, 0, false, ErrBadChecksum
	}

	frame := Frame{Header: header, Body: body}
	copy(frame.Digest[:], gotDigest)

	return frame, total, true, nil
}

func digestsEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Encode assigns the next packet count, builds the header+digest+body
// frame for opcode/body, obfuscates it from the given stream offset, and
// returns the bytes ready to write to the connection (spec.md §4.1 emit
// contract).
func (c *Codec) Encode(opcode Opcode, body []byte, streamOffset int) ([]byte, error) {
	if len(body) > MaxBodyLength {
		return nil, ErrFrameTooLong
	}
	header := Header{
		Opcode:      opcode,
		Length:      uint16(len(body)),
		PacketCount: c.NextPacketCount(),
	}
	headerBytes := header.MarshalBinary()
	digest := digestOf(headerBytes, body)

	frame := make([]byte, 0, HeaderLength+DigestLength+len(body))
	frame = append(frame, headerBytes...)
	frame = append(frame, digest[:]...)
	frame = append(frame, body...)

	return Obfuscate(frame, streamOffset), nil
}

// EmptyOK is the 4-zero-byte "polite ignore" body for unknown opcodes and
// for otherwise-contentless acknowledgements (spec.md §4.2, §6).
func EmptyOK() []byte { return make([]byte, 4) }

// ErrorCode is a 4-byte big-endian wire error code whose high three bytes
// are always 0xFF (spec.md §6, §7).
type ErrorCode uint32

const (
	ErrCodeUnknownUser        ErrorCode = 0xffffff10
	ErrCodeAlreadyOnline      ErrorCode = 0xffffff11
	ErrCodeRosterHashRejected ErrorCode = 0xffffff12
	ErrCodeProfileNameTaken   ErrorCode = 0xfffffefc
	ErrCodeRoomNameTaken      ErrorCode = 0xffffff10
	ErrCodeRoomPasswordWrong  ErrorCode = 0xfffffdda
	ErrCodeRoomFull           ErrorCode = 0xfffffdb6
	ErrCodeDeadlinePassed     ErrorCode = 0xfffffdbb
	ErrCodeGameVersion        ErrorCode = 0xfffffdcb
	ErrCodeGeneric            ErrorCode = 0xfffffe00
)

func (e ErrorCode) Bytes() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(e))
	return b
}

func (e ErrorCode) Error() string {
	return fmt.Sprintf("wire: error code 0x%08x", uint32(e))
}
