package wire

// ChatWire is the on-wire shape of a 0x4400 chat request/broadcast
// (spec.md §4.6, §3 ChatMessage). Text is truncated to 126 bytes on the
// wire; the special tag is present only for private messages.
type ChatWire struct {
	Type      ChatType
	FromID    uint32
	ToID      uint32
	HasToID   bool
	Special   [4]byte
	HasSpecial bool
	Text      string
}

const ChatTextWireLength = 126

func (m *ChatWire) Stream(s *EasyStream) error {
	t := uint16(m.Type)
	if err := s.StreamUint16(&t); err != nil {
		return err
	}
	if s.IsReading() {
		m.Type = ChatType(t)
	}
	if err := s.StreamUint32(&m.FromID); err != nil {
		return err
	}

	switch m.Type {
	case ChatPrivate:
		m.HasToID = true
		if err := s.StreamUint32(&m.ToID); err != nil {
			return err
		}
		m.HasSpecial = true
		special := m.Special[:]
		if err := s.StreamBytes(&special, 4); err != nil {
			return err
		}
		if s.IsReading() {
			copy(m.Special[:], special)
		}
	}

	return s.StreamFixedString(&m.Text, ChatTextWireLength)
}

// TruncateText truncates s to at most ChatTextWireLength bytes, matching
// the wire's fixed-width chat field (spec.md §3).
func TruncateText(s string) string {
	b := []byte(s)
	if len(b) <= ChatTextWireLength {
		return s
	}
	return string(b[:ChatTextWireLength])
}
