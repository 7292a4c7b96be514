// Package wire implements the obfuscated, checksummed, length-prefixed
// binary protocol spoken by both game client dialects.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// StreamMode selects whether an EasyStream reads or writes.
type StreamMode int

const (
	DecodeMode StreamMode = iota
	EncodeMode
)

// EasyStream is a single read/write cursor shared by every wire message's
// Stream method, the way the teacher's (unvendored) evr.EasyStream backs
// every evr.Message.Stream implementation.
type EasyStream struct {
	mode StreamMode
	buf  *bytes.Buffer
	r    []byte
	pos  int
}

func NewEasyStream(mode StreamMode, data []byte) *EasyStream {
	s := &EasyStream{mode: mode}
	if mode == EncodeMode {
		s.buf = bytes.NewBuffer(append([]byte(nil), data...))
	} else {
		s.r = data
	}
	return s
}

func (s *EasyStream) IsReading() bool { return s.mode == DecodeMode }
func (s *EasyStream) IsWriting() bool { return s.mode == EncodeMode }

func (s *EasyStream) Bytes() []byte {
	if s.mode == EncodeMode {
		return s.buf.Bytes()
	}
	return s.r
}

func (s *EasyStream) Len() int {
	if s.mode == EncodeMode {
		return s.buf.Len()
	}
	return len(s.r) - s.pos
}

// Read copies the next len(p) bytes into p, advancing the cursor.
func (s *EasyStream) Read(p []byte) (int, error) {
	if s.mode != DecodeMode {
		return 0, fmt.Errorf("wire: Read called on an encoding stream")
	}
	if s.pos+len(p) > len(s.r) {
		return 0, fmt.Errorf("wire: short read: want %d bytes, have %d", len(p), len(s.r)-s.pos)
	}
	copy(p, s.r[s.pos:s.pos+len(p)])
	s.pos += len(p)
	return len(p), nil
}

// Write appends p to the stream, returning an error if called while reading.
func (s *EasyStream) Write(p []byte) (int, error) {
	if s.mode != EncodeMode {
		return 0, fmt.Errorf("wire: Write called on a decoding stream")
	}
	return s.buf.Write(p)
}

// StreamUint16 reads or writes a big-endian u16.
func (s *EasyStream) StreamUint16(v *uint16) error {
	if s.IsReading() {
		b := make([]byte, 2)
		if _, err := s.Read(b); err != nil {
			return err
		}
		*v = binary.BigEndian.Uint16(b)
		return nil
	}
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, *v)
	_, err := s.Write(b)
	return err
}

// StreamUint32 reads or writes a big-endian u32.
func (s *EasyStream) StreamUint32(v *uint32) error {
	if s.IsReading() {
		b := make([]byte, 4)
		if _, err := s.Read(b); err != nil {
			return err
		}
		*v = binary.BigEndian.Uint32(b)
		return nil
	}
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, *v)
	_, err := s.Write(b)
	return err
}

// StreamUint64 reads or writes a big-endian u64.
func (s *EasyStream) StreamUint64(v *uint64) error {
	if s.IsReading() {
		b := make([]byte, 8)
		if _, err := s.Read(b); err != nil {
			return err
		}
		*v = binary.BigEndian.Uint64(b)
		return nil
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, *v)
	_, err := s.Write(b)
	return err
}

// StreamByte reads or writes a single byte.
func (s *EasyStream) StreamByte(v *byte) error {
	if s.IsReading() {
		b := make([]byte, 1)
		if _, err := s.Read(b); err != nil {
			return err
		}
		*v = b[0]
		return nil
	}
	_, err := s.Write([]byte{*v})
	return err
}

// StreamBytes reads or writes exactly n raw bytes.
func (s *EasyStream) StreamBytes(v *[]byte, n int) error {
	if s.IsReading() {
		b := make([]byte, n)
		if _, err := s.Read(b); err != nil {
			return err
		}
		*v = b
		return nil
	}
	b := make([]byte, n)
	copy(b, *v)
	_, err := s.Write(b)
	return err
}

// StreamFixedString reads or writes a zero-padded, fixed-width UTF-8 string
// of exactly n bytes on the wire (spec.md §6: 16/32/48/64/256-byte fields).
func (s *EasyStream) StreamFixedString(v *string, n int) error {
	if s.IsReading() {
		b := make([]byte, n)
		if _, err := s.Read(b); err != nil {
			return err
		}
		if idx := bytes.IndexByte(b, 0); idx >= 0 {
			b = b[:idx]
		}
		*v = string(b)
		return nil
	}
	b := make([]byte, n)
	copy(b, []byte(*v))
	_, err := s.Write(b)
	return err
}

// RunErrorFunctions runs fns in order, stopping at (and returning) the
// first error, mirroring the teacher's combinator of the same name used by
// every evr.Message.Stream implementation.
func RunErrorFunctions(fns []func() error) error {
	for _, fn := range fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
