package session

import (
	"context"
	"time"

	"github.com/juce/fiveserver/internal/fiveserver"
	"github.com/juce/fiveserver/internal/lobby"
	"github.com/juce/fiveserver/internal/wire"
)

// RoleNetworkMenu serves spec.md §4.5: the lobby layer above login.
func RoleNetworkMenu() map[wire.Opcode]Handler {
	return map[wire.Opcode]Handler{
		wire.OpGetLobbies:       handleGetLobbies,
		wire.OpSelectLobby:      handleSelectLobby,
		wire.OpGetUserList:      handleGetUserList,
		wire.OpGetRoomList:      handleGetRoomList,
		wire.OpFavouriteTeam:    handleFavouriteTeam,
		wire.OpFavouritePlayer:  handleFavouritePlayer,
		wire.OpQuickMatchSearch: handleQuickMatchSearch,
		wire.OpDisconnect:       handleDisconnectOpcode,
	}
}

func handleGetLobbies(s *Session, _ []byte) error {
	list := &wire.LobbyList{}
	for idx, l := range s.Server.Lobbies() {
		list.Lobbies = append(list.Lobbies, wire.LobbyInfo{
			Index:       uint16(idx),
			Name:        l.DisplayName,
			TypeCode:    uint16(l.TypeCode),
			PlayerCount: uint16(l.PlayerCount()),
		})
	}
	body, err := wire.Marshal(list)
	if err != nil {
		return err
	}
	return s.SendFrame(uint16(wire.OpGetLobbies+1), body)
}

func handleSelectLobby(s *Session, body []byte) error {
	req := &wire.SelectLobbyRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}

	l := s.Server.Lobby(int(req.LobbyIndex))
	if l == nil {
		return s.SendFrame(uint16(wire.OpSelectLobby+1), wire.ErrCodeGeneric.Bytes())
	}

	s.Endpoints[0] = Endpoint{IP: net4(req.Endpoint1IP), Port: req.Endpoint1Port}
	s.Endpoints[1] = Endpoint{IP: net4(req.Endpoint2IP), Port: req.Endpoint2Port}
	s.LobbyIndex = int(req.LobbyIndex)
	l.Enter(s.UserHash, s.ProfileID)

	s.broadcastPlayerInfo(l)

	if err := s.SendFrame(uint16(wire.OpSelectLobby+1), wire.EmptyOK()); err != nil {
		return err
	}

	// Replay bounded chat history to the new joiner after a short delay so
	// the client has time to finish rendering the lobby screen (spec.md
	// §4.5 SelectLobby, §5 suspension points).
	time.AfterFunc(3*time.Second, func() {
		s.replayChatHistory(l)
	})

	return nil
}

func (s *Session) broadcastPlayerInfo(l *lobby.Lobby) {
	BroadcastPlayerInfo(s.Server, l, s.ProfileID)
}

// BroadcastPlayerInfo announces profileID to every connected player in l.
// Exported for the same reason as BroadcastRoomUpdate: teardown paths
// without a live *Session (spec.md §5 step 4, "broadcast departure")
// still need to notify the lobby.
func BroadcastPlayerInfo(srv *fiveserver.Server, l *lobby.Lobby, profileID int64) {
	info := &wire.PlayerInfo{ProfileID: uint32(profileID)}
	body, err := wire.Marshal(info)
	if err != nil {
		return
	}
	for hash := range l.Players() {
		if peer, ok := srv.Find(hash); ok {
			_ = peer.SendFrame(uint16(wire.OpSelectLobby+2), body)
		}
	}
}

func (s *Session) replayChatHistory(l *lobby.Lobby) {
	for _, msg := range l.History.Snapshot() {
		chat := &wire.ChatWire{
			Type:   wire.ChatLobby,
			FromID: uint32(msg.FromProfileID),
			Text:   wire.TruncateText(msg.Text),
		}
		if msg.Private() {
			if *msg.ToProfileID != s.ProfileID && msg.FromProfileID != s.ProfileID {
				continue
			}
			chat.Type = wire.ChatPrivate
			chat.HasToID = true
			chat.ToID = uint32(*msg.ToProfileID)
		}
		if body, err := wire.Marshal(chat); err == nil {
			_ = s.SendFrame(uint16(wire.OpChat+1), body)
		}
	}
}

func handleGetUserList(s *Session, _ []byte) error {
	l := s.Server.Lobby(s.LobbyIndex)
	list := &wire.PlayerList{}
	if l != nil {
		for _, profileID := range l.Players() {
			list.Players = append(list.Players, wire.PlayerInfo{ProfileID: uint32(profileID)})
		}
	}
	body, err := wire.Marshal(list)
	if err != nil {
		return err
	}
	return s.SendFrame(uint16(wire.OpGetUserList+1), body)
}

func handleGetRoomList(s *Session, _ []byte) error {
	l := s.Server.Lobby(s.LobbyIndex)
	list := &wire.RoomList{}
	if l != nil {
		for _, r := range l.Rooms() {
			list.Rooms = append(list.Rooms, wire.RoomInfo{
				ID:          uint32(r.ID),
				Name:        r.Name,
				PlayerCount: uint16(len(r.Players)),
				HasPassword: r.Password != "",
			})
		}
	}
	body, err := wire.Marshal(list)
	if err != nil {
		return err
	}
	return s.SendFrame(uint16(wire.OpGetRoomList+1), body)
}

func handleFavouriteTeam(s *Session, body []byte) error {
	return s.updateFavourite(wire.OpFavouriteTeam, body, true)
}

func handleFavouritePlayer(s *Session, body []byte) error {
	return s.updateFavourite(wire.OpFavouritePlayer, body, false)
}

func (s *Session) updateFavourite(opcode wire.Opcode, body []byte, team bool) error {
	if s.ProfileID == 0 || len(body) < 4 {
		return s.SendFrame(uint16(opcode+1), wire.ErrCodeGeneric.Bytes())
	}
	id := int32(beUint32(body))

	ctx := context.Background()
	profile, err := s.Server.Store.Profiles().Get(ctx, s.ProfileID)
	if err != nil {
		return err
	}
	if team {
		profile.FavouriteTeamID = id
	} else {
		profile.FavouritePlayerID = id
	}
	if err := s.Server.Store.Profiles().Store(ctx, profile); err != nil {
		return err
	}
	return s.SendFrame(uint16(opcode+1), wire.EmptyOK())
}

func handleQuickMatchSearch(s *Session, _ []byte) error {
	if l := s.Server.Lobby(s.LobbyIndex); l != nil {
		l.Exit(s.UserHash)
	}
	return s.SendFrame(uint16(wire.OpQuickMatchSearch+1), wire.EmptyOK())
}

func handleDisconnectOpcode(s *Session, _ []byte) error {
	s.disconnect()
	return nil
}

func net4(b [4]byte) []byte {
	out := make([]byte, 4)
	copy(out, b[:])
	return out
}
