package wire

// Streamable is implemented by every wire message type via a single
// shared Stream(*EasyStream) error method (spec.md §4.1, grounded on the
// teacher's referenced evr.Message/EasyStream pattern).
type Streamable interface {
	Stream(s *EasyStream) error
}

// Marshal serializes a Streamable to its wire bytes.
func Marshal(m Streamable) ([]byte, error) {
	s := NewEasyStream(EncodeMode, nil)
	if err := m.Stream(s); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// Unmarshal populates m by reading body through a decoding EasyStream.
func Unmarshal(body []byte, m Streamable) error {
	s := NewEasyStream(DecodeMode, body)
	return m.Stream(s)
}
