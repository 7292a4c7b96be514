package wire

// LobbyInfo is one row of the GetLobbies (0x4200) response (spec.md §4.5).
type LobbyInfo struct {
	Index       uint16
	Name        string
	TypeCode    uint16
	PlayerCount uint16
}

func (m *LobbyInfo) Stream(s *EasyStream) error {
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamUint16(&m.Index) },
		func() error { return s.StreamFixedString(&m.Name, 64) },
		func() error { return s.StreamUint16(&m.TypeCode) },
		func() error { return s.StreamUint16(&m.PlayerCount) },
	})
}

// LobbyList is the GetLobbies (0x4200) response body.
type LobbyList struct {
	Lobbies []LobbyInfo
}

func (m *LobbyList) Stream(s *EasyStream) error {
	count := uint16(len(m.Lobbies))
	if err := s.StreamUint16(&count); err != nil {
		return err
	}
	if s.IsReading() {
		m.Lobbies = make([]LobbyInfo, count)
	}
	for i := range m.Lobbies {
		if err := m.Lobbies[i].Stream(s); err != nil {
			return err
		}
	}
	return nil
}

// PlayerInfo is a single (profile id, name) pair broadcast on join/leave
// and enumerated by GetUserList (0x4210) (spec.md §4.5).
type PlayerInfo struct {
	ProfileID uint32
	Name      string
}

func (m *PlayerInfo) Stream(s *EasyStream) error {
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamUint32(&m.ProfileID) },
		func() error { return s.StreamFixedString(&m.Name, 32) },
	})
}

// PlayerList is the GetUserList (0x4210) response body.
type PlayerList struct {
	Players []PlayerInfo
}

func (m *PlayerList) Stream(s *EasyStream) error {
	count := uint16(len(m.Players))
	if err := s.StreamUint16(&count); err != nil {
		return err
	}
	if s.IsReading() {
		m.Players = make([]PlayerInfo, count)
	}
	for i := range m.Players {
		if err := m.Players[i].Stream(s); err != nil {
			return err
		}
	}
	return nil
}

// RoomInfo is one row of the GetRoomList (0x4300) response.
type RoomInfo struct {
	ID          uint32
	Name        string
	PlayerCount uint16
	HasPassword bool
}

func (m *RoomInfo) Stream(s *EasyStream) error {
	hasPW := byte(0)
	if m.HasPassword {
		hasPW = 1
	}
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamUint32(&m.ID) },
		func() error { return s.StreamFixedString(&m.Name, 64) },
		func() error { return s.StreamUint16(&m.PlayerCount) },
		func() error { return s.StreamByte(&hasPW) },
		func() error {
			if s.IsReading() {
				m.HasPassword = hasPW != 0
			}
			return nil
		},
	})
}

// RoomList is the GetRoomList (0x4300) response body.
type RoomList struct {
	Rooms []RoomInfo
}

func (m *RoomList) Stream(s *EasyStream) error {
	count := uint16(len(m.Rooms))
	if err := s.StreamUint16(&count); err != nil {
		return err
	}
	if s.IsReading() {
		m.Rooms = make([]RoomInfo, count)
	}
	for i := range m.Rooms {
		if err := m.Rooms[i].Stream(s); err != nil {
			return err
		}
	}
	return nil
}

// RoomUpdate is broadcast whenever a room's membership, phase, or score
// changes (spec.md §4.6).
type RoomUpdate struct {
	RoomID    uint32
	Phase     uint16
	ScoreHome int32
	ScoreAway int32
}

func (m *RoomUpdate) Stream(s *EasyStream) error {
	scoreHome := uint32(m.ScoreHome)
	scoreAway := uint32(m.ScoreAway)
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamUint32(&m.RoomID) },
		func() error { return s.StreamUint16(&m.Phase) },
		func() error { return s.StreamUint32(&scoreHome) },
		func() error { return s.StreamUint32(&scoreAway) },
		func() error {
			if s.IsReading() {
				m.ScoreHome = int32(scoreHome)
				m.ScoreAway = int32(scoreAway)
			}
			return nil
		},
	})
}

// SelectLobbyRequest carries the client's two endpoint tuples presented at
// lobby entry, used later for peer-to-peer relay (spec.md §4.5, §4.6 Ping).
type SelectLobbyRequest struct {
	LobbyIndex uint16
	Endpoint1IP   [4]byte
	Endpoint1Port uint16
	Endpoint2IP   [4]byte
	Endpoint2Port uint16
}

func (m *SelectLobbyRequest) Stream(s *EasyStream) error {
	ip1 := m.Endpoint1IP[:]
	ip2 := m.Endpoint2IP[:]
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamUint16(&m.LobbyIndex) },
		func() error { return s.StreamBytes(&ip1, 4) },
		func() error { return s.StreamUint16(&m.Endpoint1Port) },
		func() error { return s.StreamBytes(&ip2, 4) },
		func() error { return s.StreamUint16(&m.Endpoint2Port) },
		func() error {
			if s.IsReading() {
				copy(m.Endpoint1IP[:], ip1)
				copy(m.Endpoint2IP[:], ip2)
			}
			return nil
		},
	})
}

// PeerEndpoints is the 0x4330/0x4347 peer-info exchange and the 0x4b00
// ping response: a peer's two advertised endpoint tuples (spec.md §4.6).
type PeerEndpoints struct {
	ProfileID     uint32
	Endpoint1IP   [4]byte
	Endpoint1Port uint16
	Endpoint2IP   [4]byte
	Endpoint2Port uint16
}

func (m *PeerEndpoints) Stream(s *EasyStream) error {
	ip1 := m.Endpoint1IP[:]
	ip2 := m.Endpoint2IP[:]
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamUint32(&m.ProfileID) },
		func() error { return s.StreamBytes(&ip1, 4) },
		func() error { return s.StreamUint16(&m.Endpoint1Port) },
		func() error { return s.StreamBytes(&ip2, 4) },
		func() error { return s.StreamUint16(&m.Endpoint2Port) },
		func() error {
			if s.IsReading() {
				copy(m.Endpoint1IP[:], ip1)
				copy(m.Endpoint2IP[:], ip2)
			}
			return nil
		},
	})
}
