package wire

import "encoding/hex"

// AuthenticateRequest is the 0x3003 payload. The user hash lives at
// bytes 32-48, the roster hash at bytes 48-64 (dialect-A) or 58-74
// (dialect-B), per spec.md §4.4.
type AuthenticateRequest struct {
	Raw []byte
}

func (m *AuthenticateRequest) Stream(s *EasyStream) error {
	if s.IsReading() {
		m.Raw = append([]byte(nil), s.Bytes()...)
		return nil
	}
	_, err := s.Write(m.Raw)
	return err
}

// UserHash returns the hex-encoded user identity hash (bytes 32-48, the
// same offset in both dialects).
func (m *AuthenticateRequest) UserHash() (string, error) {
	return sliceHex(m.Raw, 32, 48)
}

// RosterHashDialectA returns the raw 16-byte client roster hash at its
// dialect-A offset.
func (m *AuthenticateRequest) RosterHashDialectA() ([]byte, error) {
	return sliceBytes(m.Raw, 48, 64)
}

// RosterHashDialectB returns the raw 16-byte client roster hash at its
// dialect-B offset.
func (m *AuthenticateRequest) RosterHashDialectB() ([]byte, error) {
	return sliceBytes(m.Raw, 58, 74)
}

func sliceBytes(b []byte, from, to int) ([]byte, error) {
	if len(b) < to {
		return nil, ErrShortFrame
	}
	return b[from:to], nil
}

func sliceHex(b []byte, from, to int) (string, error) {
	raw, err := sliceBytes(b, from, to)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// HasFourZeroRun reports whether b contains four consecutive zero bytes,
// the heuristic spec.md §4.4 uses to reject a roster hash that clearly
// isn't a real MD5 digest.
func HasFourZeroRun(b []byte) bool {
	run := 0
	for _, v := range b {
		if v == 0 {
			run++
			if run >= 4 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// ProfileRecord is one fixed-layout 0x3010 profile slot.
type ProfileRecord struct {
	Ordinal       byte
	ID            uint32
	Name          string
	FavouriteTeam uint32
	FavouritePlayer uint32
	Points        int32
	Rank          int32
	GamesPlayed   uint32
}

func (m *ProfileRecord) Stream(s *EasyStream) error {
	id := m.ID
	fav := m.FavouriteTeam
	favPlayer := m.FavouritePlayer
	points := uint32(m.Points)
	rank := uint32(m.Rank)
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamByte(&m.Ordinal) },
		func() error { return s.StreamUint32(&id) },
		func() error { return s.StreamFixedString(&m.Name, 32) },
		func() error { return s.StreamUint32(&fav) },
		func() error { return s.StreamUint32(&favPlayer) },
		func() error { return s.StreamUint32(&points) },
		func() error { return s.StreamUint32(&rank) },
		func() error { return s.StreamUint32(&m.GamesPlayed) },
		func() error {
			if s.IsReading() {
				m.ID = id
				m.FavouriteTeam = fav
				m.FavouritePlayer = favPlayer
				m.Points = int32(points)
				m.Rank = int32(rank)
			}
			return nil
		},
	})
}

// ProfileList is the 0x3010 response: exactly 3 ordinal slots (spec.md §3).
type ProfileList struct {
	Slots [3]ProfileRecord
}

func (m *ProfileList) Stream(s *EasyStream) error {
	for i := range m.Slots {
		if err := m.Slots[i].Stream(s); err != nil {
			return err
		}
	}
	return nil
}

// CreateProfileRequest is the 0x3020 payload.
type CreateProfileRequest struct {
	Ordinal byte
	Name    string
}

func (m *CreateProfileRequest) Stream(s *EasyStream) error {
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamByte(&m.Ordinal) },
		func() error { return s.StreamFixedString(&m.Name, 32) },
	})
}

// SettingsBlobPair is the two opaque compressed settings blobs stored per
// profile (spec.md §3, §4.4).
type SettingsBlobPair struct {
	Blob1 []byte
	Blob2 []byte
}

func (m *SettingsBlobPair) Stream(s *EasyStream) error {
	l1 := uint32(len(m.Blob1))
	l2 := uint32(len(m.Blob2))
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamUint32(&l1) },
		func() error { return s.StreamBytes(&m.Blob1, int(l1)) },
		func() error { return s.StreamUint32(&l2) },
		func() error { return s.StreamBytes(&m.Blob2, int(l2)) },
	})
}
