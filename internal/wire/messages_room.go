package wire

// CreateRoomRequest is the 0x4310 payload (spec.md §4.6).
type CreateRoomRequest struct {
	Name     string
	Password string
}

func (m *CreateRoomRequest) Stream(s *EasyStream) error {
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamFixedString(&m.Name, 64) },
		func() error { return s.StreamFixedString(&m.Password, 32) },
	})
}

// JoinRequest is the 0x4320 payload: dialect-A "challenge", dialect-B
// "join" (spec.md §4.6).
type JoinRequest struct {
	RoomID      uint32
	GameVersion uint32
	RosterHash  [16]byte
	Password    string // dialect-B only
}

func (m *JoinRequest) Stream(s *EasyStream) error {
	roster := m.RosterHash[:]
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamUint32(&m.RoomID) },
		func() error { return s.StreamUint32(&m.GameVersion) },
		func() error { return s.StreamBytes(&roster, 16) },
		func() error { return s.StreamFixedString(&m.Password, 32) },
		func() error {
			if s.IsReading() {
				copy(m.RosterHash[:], roster)
			}
			return nil
		},
	})
}

// ChallengeResponseRequest is the dialect-A 0x4323 payload.
type ChallengeResponseRequest struct {
	Accept bool
}

func (m *ChallengeResponseRequest) Stream(s *EasyStream) error {
	v := byte(0)
	if m.Accept {
		v = 1
	}
	if err := s.StreamByte(&v); err != nil {
		return err
	}
	if s.IsReading() {
		m.Accept = v != 0
	}
	return nil
}

// TeamSelectRequest carries a single team id pick (spec.md §4.6 Team
// selection, both dialects use a single team-id field at different
// opcodes).
type TeamSelectRequest struct {
	TeamID uint32
}

func (m *TeamSelectRequest) Stream(s *EasyStream) error {
	return s.StreamUint32(&m.TeamID)
}

// GoalScoredRequest is the 0x4368/0x4375 payload: first byte selects side
// (spec.md §4.6: "first byte selects side").
type GoalScoredRequest struct {
	Home bool
}

func (m *GoalScoredRequest) Stream(s *EasyStream) error {
	v := byte(0)
	if !m.Home {
		v = 1
	}
	if err := s.StreamByte(&v); err != nil {
		return err
	}
	if s.IsReading() {
		m.Home = v == 0
	}
	return nil
}

// MatchStateRequest is the dialect-B 0x4377 payload.
type MatchStateRequest struct {
	State uint16
}

func (m *MatchStateRequest) Stream(s *EasyStream) error {
	return s.StreamUint16(&m.State)
}

// MatchClockRequest is the dialect-B 0x4385 payload.
type MatchClockRequest struct {
	Minute uint16
}

func (m *MatchClockRequest) Stream(s *EasyStream) error {
	return s.StreamUint16(&m.Minute)
}

// MatchExitRequest is the dialect-A 0x4370 payload: per-side exit type
// (spec.md §4.6 MatchExit).
type MatchExitRequest struct {
	Home     bool
	ExitType byte // model.ExitType
}

func (m *MatchExitRequest) Stream(s *EasyStream) error {
	home := byte(0)
	if m.Home {
		home = 1
	}
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamByte(&home) },
		func() error { return s.StreamByte(&m.ExitType) },
		func() error {
			if s.IsReading() {
				m.Home = home != 0
			}
			return nil
		},
	})
}

// ForceCancelRequest is the dialect-B 0x4380 payload: the owner evicts a
// participant by profile id (spec.md §4.6).
type ForceCancelRequest struct {
	ProfileID uint32
}

func (m *ForceCancelRequest) Stream(s *EasyStream) error {
	return s.StreamUint32(&m.ProfileID)
}

// RoomRenameRequest is the dialect-B 0x434d payload.
type RoomRenameRequest struct {
	NewName string
}

func (m *RoomRenameRequest) Stream(s *EasyStream) error {
	return s.StreamFixedString(&m.NewName, 64)
}

// OwnerChangeRequest is the dialect-B 0x4349 payload.
type OwnerChangeRequest struct {
	NewOwnerProfileID uint32
}

func (m *OwnerChangeRequest) Stream(s *EasyStream) error {
	return s.StreamUint32(&m.NewOwnerProfileID)
}

// PingRequest is the dialect-A 0x4b00 payload: the target profile id
// whose endpoints the caller wants relayed (spec.md §4.6).
type PingRequest struct {
	TargetProfileID uint32
}

func (m *PingRequest) Stream(s *EasyStream) error {
	return s.StreamUint32(&m.TargetProfileID)
}
