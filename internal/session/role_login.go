package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/match"
	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/store"
	"github.com/juce/fiveserver/internal/wire"
)

// RoleLogin serves spec.md §4.4: authentication and profile management.
func RoleLogin() map[wire.Opcode]Handler {
	table := map[wire.Opcode]Handler{
		wire.OpAuthenticate:  handleAuthenticate,
		wire.OpGetProfiles:   handleGetProfiles,
		wire.OpCreateProfile: handleCreateProfile,
		wire.OpDeleteProfile: handleDeleteProfile,
		wire.OpSelectProfile: handleSelectProfile,
		wire.OpSettingsGet:   handleSettingsGet,
		wire.OpSettingsSet1:  handleSettingsSet1,
		wire.OpSettingsSet2:  handleSettingsSet2,
	}
	return table
}

// RoleLoginDialectA adds dialect-A's match-series-exit handler, installed
// in addition to RoleLogin (spec.md §4.4: "dialect-A only").
func RoleLoginDialectA() map[wire.Opcode]Handler {
	return map[wire.Opcode]Handler{
		wire.OpMatchSeriesExit: handleMatchSeriesExit,
	}
}

func handleAuthenticate(s *Session, body []byte) error {
	req := &wire.AuthenticateRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}

	userHash, err := req.UserHash()
	if err != nil {
		return err
	}

	ctx := context.Background()
	u, err := s.Server.Store.Users().FindByHash(ctx, userHash)
	if err != nil {
		return s.sendAuthError(wire.ErrCodeUnknownUser)
	}

	if s.Server.IsOnline(userHash) {
		return s.sendAuthError(wire.ErrCodeAlreadyOnline)
	}

	if s.Server.Config.CompareHash {
		var roster []byte
		if s.Dialect == DialectA {
			roster, err = req.RosterHashDialectA()
		} else {
			roster, err = req.RosterHashDialectB()
		}
		if err != nil {
			return err
		}
		if wire.HasFourZeroRun(roster) {
			return s.sendAuthError(wire.ErrCodeRosterHashRejected)
		}
	}

	s.UserHash = userHash
	s.User = u
	s.Server.MarkOnline(userHash, s)

	s.logger.Info("user authenticated", zap.String("user_hash", userHash), zap.String("username", u.Username))
	return s.SendFrame(uint16(wire.OpAuthenticate+1), wire.EmptyOK())
}

func (s *Session) sendAuthError(code wire.ErrorCode) error {
	return s.SendFrame(uint16(wire.OpAuthenticate+1), code.Bytes())
}

func handleGetProfiles(s *Session, _ []byte) error {
	if s.User == nil {
		return s.SendFrame(uint16(wire.OpGetProfiles+1), wire.ErrCodeUnknownUser.Bytes())
	}

	ctx := context.Background()
	profiles, err := s.Server.Store.Profiles().ListByUser(ctx, s.User.ID)
	if err != nil {
		return err
	}

	list := &wire.ProfileList{}
	for i := 0; i < len(profiles) && i < len(list.Slots); i++ {
		p := profiles[i]
		if !s.Server.Config.ShowStats {
			pristine := p.Pristine()
			p = &pristine
		}
		list.Slots[i] = wire.ProfileRecord{
			Ordinal:         byte(p.Ordinal),
			ID:              uint32(p.ID),
			Name:            p.Name,
			FavouriteTeam:   uint32(p.FavouriteTeamID),
			FavouritePlayer: uint32(p.FavouritePlayerID),
			Points:          int32(p.Points),
			Rank:            int32(p.Rank),
		}
	}

	body, err := wire.Marshal(list)
	if err != nil {
		return err
	}
	return s.SendFrame(uint16(wire.OpGetProfiles+1), body)
}

func handleCreateProfile(s *Session, body []byte) error {
	if s.User == nil {
		return s.SendFrame(uint16(wire.OpCreateProfile+1), wire.ErrCodeUnknownUser.Bytes())
	}

	req := &wire.CreateProfileRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}

	ctx := context.Background()
	taken, err := s.Server.Store.Profiles().NameTaken(ctx, req.Name, 0)
	if err != nil {
		return err
	}
	if taken {
		return s.SendFrame(uint16(wire.OpCreateProfile+1), wire.ErrCodeProfileNameTaken.Bytes())
	}

	profile := &model.Profile{
		UserID:  s.User.ID,
		Ordinal: int(req.Ordinal),
		Name:    req.Name,
	}
	if err := s.Server.Store.Profiles().Store(ctx, profile); err != nil {
		if err == store.ErrNameTaken {
			return s.SendFrame(uint16(wire.OpCreateProfile+1), wire.ErrCodeProfileNameTaken.Bytes())
		}
		return err
	}

	return s.SendFrame(uint16(wire.OpCreateProfile+1), wire.EmptyOK())
}

func handleDeleteProfile(s *Session, body []byte) error {
	if len(body) < 4 {
		return wire.ErrShortFrame
	}
	id := int64(beUint32(body))
	if err := s.Server.Store.Profiles().Delete(context.Background(), id); err != nil {
		return err
	}
	if s.ProfileID == id {
		s.ProfileID = 0
	}
	return s.SendFrame(uint16(wire.OpDeleteProfile+1), wire.EmptyOK())
}

func handleSelectProfile(s *Session, body []byte) error {
	if len(body) < 4 {
		return wire.ErrShortFrame
	}
	s.ProfileID = int64(beUint32(body))
	return s.SendFrame(uint16(wire.OpSelectProfile+1), wire.EmptyOK())
}

func handleSettingsGet(s *Session, _ []byte) error {
	if s.ProfileID == 0 {
		return s.SendFrame(uint16(wire.OpSettingsGet+1), wire.ErrCodeGeneric.Bytes())
	}
	pair, err := s.Server.Store.Settings().Get(context.Background(), s.ProfileID)
	if err != nil {
		pair = &model.SettingsBlobPair{}
	}
	wirePair := &wire.SettingsBlobPair{Blob1: pair.Blob1, Blob2: pair.Blob2}
	body, err := wire.Marshal(wirePair)
	if err != nil {
		return err
	}
	return s.SendFrame(uint16(wire.OpSettingsGet+1), body)
}

func handleSettingsSet1(s *Session, body []byte) error {
	return s.storeSettingsBlob(wire.OpSettingsSet1, body, true)
}

func handleSettingsSet2(s *Session, body []byte) error {
	return s.storeSettingsBlob(wire.OpSettingsSet2, body, false)
}

func (s *Session) storeSettingsBlob(opcode wire.Opcode, body []byte, first bool) error {
	if s.ProfileID == 0 {
		return s.SendFrame(uint16(opcode+1), wire.ErrCodeGeneric.Bytes())
	}
	if !s.Server.StoreSettingsEnabled() {
		return s.SendFrame(uint16(opcode+1), wire.EmptyOK())
	}
	ctx := context.Background()
	pair, err := s.Server.Store.Settings().Get(ctx, s.ProfileID)
	if err != nil {
		pair = &model.SettingsBlobPair{}
	}
	if first {
		pair.Blob1 = append([]byte(nil), body...)
	} else {
		pair.Blob2 = append([]byte(nil), body...)
	}
	if err := s.Server.Store.Settings().Upsert(ctx, s.ProfileID, *pair); err != nil {
		return err
	}
	return s.SendFrame(uint16(opcode+1), wire.EmptyOK())
}

// handleMatchSeriesExit implements spec.md §4.4's dialect-A match-series
// exit path. The match is discarded when both sides recorded a clean exit,
// when CountExitAsLoss is off and at least one side has an exit flag, or
// when the lobby keeps no stats; otherwise it is recorded, play time is
// credited, and points are recomputed.
func handleMatchSeriesExit(s *Session, _ []byte) error {
	l := s.Server.Lobby(s.LobbyIndex)
	if l == nil {
		return s.SendFrame(uint16(wire.OpMatchSeriesExit+1), wire.EmptyOK())
	}
	room, ok := l.Room(s.RoomName)
	if !ok {
		return s.SendFrame(uint16(wire.OpMatchSeriesExit+1), wire.EmptyOK())
	}
	m, ok := room.Match.(*match.MatchA)
	if !ok || m == nil {
		return s.SendFrame(uint16(wire.OpMatchSeriesExit+1), wire.EmptyOK())
	}

	countAsLoss := s.Server.Config.CountExitAsLoss || (m.Data.HomeExit == nil && m.Data.AwayExit == nil)
	if m.Data.BothExited() || !countAsLoss {
		room.Match = nil
		return s.SendFrame(uint16(wire.OpMatchSeriesExit+1), wire.EmptyOK())
	}

	if l.NoStats() {
		room.Match = nil
		return s.SendFrame(uint16(wire.OpMatchSeriesExit+1), wire.EmptyOK())
	}

	homeOutcome, awayOutcome := match.Outcomes(m.Data.ScoreHome, m.Data.ScoreAway)
	duration := time.Since(m.Data.Start)

	result := store.MatchResult{
		ScoreHome:  m.Data.ScoreHome,
		ScoreAway:  m.Data.ScoreAway,
		TeamIDHome: m.Data.HomeTeamID,
		TeamIDAway: m.Data.AwayTeamID,
		Duration:   duration,
		Participants: []store.Participant{
			{ProfileID: m.Data.HomeProfileID, Home: true, Outcome: homeOutcome},
			{ProfileID: m.Data.AwayProfileID, Home: false, Outcome: awayOutcome},
		},
	}

	if err := s.Server.Store.Matches().RecordMatchResult(context.Background(), result); err != nil {
		return err
	}
	room.Match = nil
	return s.SendFrame(uint16(wire.OpMatchSeriesExit+1), wire.EmptyOK())
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
