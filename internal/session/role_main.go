package session

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/fiveserver"
	"github.com/juce/fiveserver/internal/lobby"
	"github.com/juce/fiveserver/internal/match"
	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/rating"
	"github.com/juce/fiveserver/internal/store"
	"github.com/juce/fiveserver/internal/wire"
)

// RoleMain serves the opcodes shared by both dialects in spec.md §4.6:
// room create/exit, join/challenge, and chat.
func RoleMain() map[wire.Opcode]Handler {
	return map[wire.Opcode]Handler{
		wire.OpCreateRoom:      handleCreateRoom,
		wire.OpExitRoom:        handleExitRoom,
		wire.OpJoinOrChallenge: handleJoinOrChallenge,
		wire.OpChat:            handleChat,
	}
}

// RoleMainDialectA adds dialect-A-only opcodes (spec.md §4.6).
func RoleMainDialectA() map[wire.Opcode]Handler {
	return map[wire.Opcode]Handler{
		wire.OpChallengeResponse: handleChallengeResponse,
		wire.OpToggleReadyA:      handleToggleReadyA,
		wire.OpTeamSelectA:       handleTeamSelectA,
		wire.OpGoalScoredA:       handleGoalScoredA,
		wire.OpMatchExitA:        handleMatchExitA,
		wire.OpPingA:             handlePing,
	}
}

// RoleMainDialectB adds dialect-B-only opcodes (spec.md §4.6). The 0x3087
// handler is explicitly a no-op per spec.md §9's open question decision
// (recorded in SPEC_FULL.md): no logic is shared with dialect-A's
// MatchSeriesExit handler at the same opcode number.
func RoleMainDialectB() map[wire.Opcode]Handler {
	return map[wire.Opcode]Handler{
		wire.OpToggleReadyB: handleToggleReadyB,
		wire.OpTeamSelectB:  handleTeamSelectB,
		wire.OpGoalScoredB:  handleGoalScoredB,
		wire.OpMatchStateB:  handleMatchStateB,
		wire.OpMatchClockB:  handleMatchClockB,
		wire.OpForceCancelB: handleForceCancelB,
		wire.OpRoomRenameB:  handleRoomRename,
		wire.OpOwnerChangeB: handleOwnerChange,
		wire.OpMatchSeriesExit: handleNoOp, // dialect-B's 3087: true no-op
	}
}

func handleNoOp(s *Session, _ []byte) error { return nil }

func (s *Session) currentLobby() *lobby.Lobby { return s.Server.Lobby(s.LobbyIndex) }

func (s *Session) currentRoom() (*lobby.Lobby, *lobby.Room, bool) {
	l := s.currentLobby()
	if l == nil {
		return nil, nil, false
	}
	r, ok := l.Room(s.RoomName)
	return l, r, ok
}

func handleCreateRoom(s *Session, body []byte) error {
	req := &wire.CreateRoomRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}

	l := s.currentLobby()
	if l == nil {
		return s.SendFrame(uint16(wire.OpCreateRoom+1), wire.ErrCodeGeneric.Bytes())
	}

	room, ok := l.CreateRoom(req.Name, req.Password, s.ProfileID)
	if !ok {
		return s.SendFrame(uint16(wire.OpCreateRoom+1), wire.ErrCodeRoomNameTaken.Bytes())
	}
	s.RoomName = room.Name

	s.broadcastRoomUpdate(l, room)
	s.broadcastPlayerInfo(l)
	return s.SendFrame(uint16(wire.OpCreateRoom+1), wire.EmptyOK())
}

func handleExitRoom(s *Session, _ []byte) error {
	l, room, ok := s.currentRoom()
	if !ok {
		return s.SendFrame(uint16(wire.OpExitRoom+1), wire.EmptyOK())
	}

	empty := room.Exit(s.ProfileID)
	s.RoomName = ""

	if empty {
		l.RemoveRoomIfEmpty(room.Name)
	} else {
		s.broadcastRoomUpdate(l, room)
	}
	s.broadcastPlayerInfo(l)
	return s.SendFrame(uint16(wire.OpExitRoom+1), wire.EmptyOK())
}

func handleJoinOrChallenge(s *Session, body []byte) error {
	req := &wire.JoinRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}

	l := s.currentLobby()
	if l == nil {
		return s.SendFrame(uint16(wire.OpJoinOrChallenge+1), wire.ErrCodeGeneric.Bytes())
	}
	room, ok := l.RoomByID(int64(req.RoomID))
	if !ok {
		return s.SendFrame(uint16(wire.OpJoinOrChallenge+1), wire.ErrCodeRoomNameTaken.Bytes())
	}

	if s.Server.Config.GameVersion != 0 && req.GameVersion != s.Server.Config.GameVersion {
		return s.SendFrame(uint16(wire.OpJoinOrChallenge+1), wire.ErrCodeGameVersion.Bytes())
	}

	if s.Dialect == DialectB && room.Password != "" && room.Password != req.Password {
		return s.SendFrame(uint16(wire.OpJoinOrChallenge+1), wire.ErrCodeRoomPasswordWrong.Bytes())
	}

	if l.CheckRosterHash && s.Server.Config.CompareHash && wire.HasFourZeroRun(req.RosterHash[:]) {
		return s.SendFrame(uint16(wire.OpJoinOrChallenge+1), wire.ErrCodeRosterHashRejected.Bytes())
	}

	room.Enter(s.ProfileID)
	s.RoomName = room.Name
	if err := room.AddParticipant(s.ProfileID, time.Now()); err != nil {
		room.Exit(s.ProfileID)
		s.RoomName = ""
		return s.SendFrame(uint16(wire.OpJoinOrChallenge+1), wire.ErrCodeRoomFull.Bytes())
	}

	s.exchangePeerInfo(l, room)
	s.broadcastRoomUpdate(l, room)
	s.broadcastPlayerInfo(l)
	return s.SendFrame(uint16(wire.OpJoinOrChallenge+1), wire.EmptyOK())
}

// exchangePeerInfo sends every current room member's two endpoint tuples
// to the newly joined session and vice versa (spec.md §4.6: "peer-info
// packets (0x4330, 0x4347) are exchanged so that each side learns the
// others' two endpoint tuples").
func (s *Session) exchangePeerInfo(l *lobby.Lobby, room *lobby.Room) {
	for hash, profileID := range l.Players() {
		if profileID == s.ProfileID {
			continue
		}
		if !containsProfile(room.Players, profileID) {
			continue
		}
		peer, ok := s.Server.Find(hash)
		if !ok {
			continue
		}
		peerSess, ok := peer.(*Session)
		if !ok {
			continue
		}

		toJoiner := peerEndpointsOf(profileID, peerSess)
		if body, err := wire.Marshal(toJoiner); err == nil {
			_ = s.SendFrame(uint16(wire.OpPeerInfoA), body)
		}
		toPeer := peerEndpointsOf(s.ProfileID, s)
		if body, err := wire.Marshal(toPeer); err == nil {
			_ = peer.SendFrame(uint16(wire.OpPeerInfoA), body)
		}
	}
}

func peerEndpointsOf(profileID int64, s *Session) *wire.PeerEndpoints {
	out := &wire.PeerEndpoints{ProfileID: uint32(profileID)}
	copy(out.Endpoint1IP[:], []byte(s.Endpoints[0].IP.To4()))
	out.Endpoint1Port = s.Endpoints[0].Port
	copy(out.Endpoint2IP[:], []byte(s.Endpoints[1].IP.To4()))
	out.Endpoint2Port = s.Endpoints[1].Port
	return out
}

func containsProfile(players []int64, id int64) bool {
	for _, p := range players {
		if p == id {
			return true
		}
	}
	return false
}

func handleChallengeResponse(s *Session, body []byte) error {
	req := &wire.ChallengeResponseRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}

	l, room, ok := s.currentRoom()
	if !ok {
		return nil
	}

	if req.Accept {
		return s.SendFrame(uint16(wire.OpChallengeResponse+1), wire.EmptyOK())
	}

	// Decline: evict the most recent entrant (the challenger) and
	// broadcast the resulting membership (spec.md §4.6 ChallengeResponse).
	if len(room.Players) > 0 {
		challenger := room.Players[len(room.Players)-1]
		room.Exit(challenger)
		s.broadcastRoomUpdate(l, room)
		s.broadcastPlayerInfo(l)
	}
	return s.SendFrame(uint16(wire.OpChallengeResponse+1), wire.EmptyOK())
}

func handleToggleReadyA(s *Session, _ []byte) error {
	l, room, ok := s.currentRoom()
	if !ok {
		return nil
	}

	room.ReadyCount++
	if room.ReadyCount >= 2 && len(room.Participants) == 2 {
		room.ReadyCount = 0
		if m, ok := room.Match.(*match.MatchA); !ok || m == nil {
			room.Match = match.NewMatchA(room.Participants[0], room.Participants[1], 0, 0)
		}
		if m, ok := room.Match.(*match.MatchA); ok && m.Data.Start.IsZero() {
			m.Data.Start = time.Now()
		}
		s.broadcastRoomUpdate(l, room)
	}
	return s.SendFrame(uint16(wire.OpToggleReadyA+1), wire.EmptyOK())
}

func handleToggleReadyB(s *Session, _ []byte) error {
	_, room, ok := s.currentRoom()
	if !ok {
		return nil
	}

	switch room.Phase {
	case model.PhaseMatchFinished:
		room.Phase = model.PhaseIdle
	default:
		room.Phase = room.Phase.Next()
		if room.Phase == model.PhaseMatchStarted && room.Selection != nil {
			room.Match = match.NewMatchB(*room.Selection, time.Now())
		}
	}
	return s.SendFrame(uint16(wire.OpToggleReadyB+1), wire.EmptyOK())
}

func handleTeamSelectA(s *Session, body []byte) error {
	req := &wire.TeamSelectRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	_, room, ok := s.currentRoom()
	if !ok {
		return nil
	}
	m, ok := room.Match.(*match.MatchA)
	if !ok || m == nil {
		return s.SendFrame(uint16(wire.OpTeamSelectA+1), wire.EmptyOK())
	}
	if room.HasOwner(s.ProfileID) {
		m.Data.HomeTeamID = int32(req.TeamID)
	} else {
		m.Data.AwayTeamID = int32(req.TeamID)
	}
	return s.SendFrame(uint16(wire.OpTeamSelectA+1), wire.EmptyOK())
}

func handleTeamSelectB(s *Session, body []byte) error {
	req := &wire.TeamSelectRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	_, room, ok := s.currentRoom()
	if !ok || room.Selection == nil {
		return s.SendFrame(uint16(wire.OpTeamSelectB+1), wire.EmptyOK())
	}
	switch s.ProfileID {
	case room.Selection.HomeCaptainProfileID:
		room.Selection.HomeTeamID = int32(req.TeamID)
	case room.Selection.AwayCaptainProfileID:
		room.Selection.AwayTeamID = int32(req.TeamID)
	}
	return s.SendFrame(uint16(wire.OpTeamSelectB+1), wire.EmptyOK())
}

func handleGoalScoredA(s *Session, body []byte) error {
	req := &wire.GoalScoredRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	_, room, ok := s.currentRoom()
	if !ok {
		return nil
	}
	if m, ok := room.Match.(*match.MatchA); ok && m != nil {
		match.AddGoalA(m, req.Home)
	}
	return s.SendFrame(uint16(wire.OpGoalScoredA+1), wire.EmptyOK())
}

func handleGoalScoredB(s *Session, body []byte) error {
	req := &wire.GoalScoredRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	l, room, ok := s.currentRoom()
	if !ok {
		return nil
	}
	if m, ok := room.Match.(*match.MatchB); ok && m != nil {
		match.AddGoalB(m, req.Home)
		// dialect-B broadcasts a room-update on every goal so live
		// scoreboards refresh (spec.md §4.6).
		s.broadcastRoomUpdate(l, room)
	}
	return s.SendFrame(uint16(wire.OpGoalScoredB+1), wire.EmptyOK())
}

func handleMatchStateB(s *Session, body []byte) error {
	req := &wire.MatchStateRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	l, room, ok := s.currentRoom()
	if !ok {
		return nil
	}

	newState := model.MatchState(req.State)
	if newState == model.FirstHalf && room.Selection != nil {
		if _, isB := room.Match.(*match.MatchB); !isB {
			room.Match = match.NewMatchB(*room.Selection, time.Now())
		}
	}
	if m, ok := room.Match.(*match.MatchB); ok && m != nil {
		m.Data.State = newState
	}

	if newState == model.Finished {
		if err := s.recordDialectBMatch(l, room); err != nil {
			return err
		}
		room.Phase = model.PhaseMatchFinished
	}

	return s.SendFrame(uint16(wire.OpMatchStateB+1), wire.EmptyOK())
}

// recordDialectBMatch persists the completed dialect-B match, covering up
// to two extra players per side in addition to the captains (spec.md
// §4.7, §3 TeamSelection).
func (s *Session) recordDialectBMatch(l *lobby.Lobby, room *lobby.Room) error {
	if l.NoStats() {
		room.Match = nil
		return nil
	}
	m, ok := room.Match.(*match.MatchB)
	if !ok || m == nil || room.Selection == nil {
		return nil
	}

	scoreHome, scoreAway := match.ScoreB(m)
	homeOutcome, awayOutcome := match.Outcomes(scoreHome, scoreAway)

	participants := []store.Participant{
		{ProfileID: room.Selection.HomeCaptainProfileID, Home: true, Outcome: homeOutcome},
		{ProfileID: room.Selection.AwayCaptainProfileID, Home: false, Outcome: awayOutcome},
	}
	for _, id := range room.Selection.HomeExtraProfileIDs {
		participants = append(participants, store.Participant{ProfileID: id, Home: true, Outcome: homeOutcome})
	}
	for _, id := range room.Selection.AwayExtraProfileIDs {
		participants = append(participants, store.Participant{ProfileID: id, Home: false, Outcome: awayOutcome})
	}

	result := store.MatchResult{
		ScoreHome:    scoreHome,
		ScoreAway:    scoreAway,
		TeamIDHome:   room.Selection.HomeTeamID,
		TeamIDAway:   room.Selection.AwayTeamID,
		Duration:     time.Since(m.Data.Start),
		Participants: participants,
	}
	ctx := context.Background()
	if err := s.Server.Store.Matches().RecordMatchResult(ctx, result); err != nil {
		return err
	}

	s.updateDialectBRatings(ctx, participants, homeOutcome)

	room.Match = nil
	return nil
}

// updateDialectBRatings applies one openskill update per side, keyed off
// the captains' current ratings, and writes the resulting mu back onto
// every participant on that side (SPEC_FULL.md's domain-stack section:
// dialect-B's optional Profile.Rating is recomputed after every completed
// match). Failures are logged, not propagated: a rating miss must never
// block the match result that already committed above.
func (s *Session) updateDialectBRatings(ctx context.Context, participants []store.Participant, homeOutcome model.Outcome) {
	var homeIDs, awayIDs []int64
	for _, p := range participants {
		if p.Home {
			homeIDs = append(homeIDs, p.ProfileID)
		} else {
			awayIDs = append(awayIDs, p.ProfileID)
		}
	}
	if len(homeIDs) == 0 || len(awayIDs) == 0 {
		return
	}

	homeCaptain, err := s.Server.Store.Profiles().Get(ctx, homeIDs[0])
	if err != nil {
		s.logger.Warn("rating update: home captain lookup failed", zap.Error(err))
		return
	}
	awayCaptain, err := s.Server.Store.Profiles().Get(ctx, awayIDs[0])
	if err != nil {
		s.logger.Warn("rating update: away captain lookup failed", zap.Error(err))
		return
	}

	newHomeMu, newAwayMu := rating.UpdateProfileRatings(homeCaptain.Rating, awayCaptain.Rating, homeOutcome)

	for _, id := range homeIDs {
		s.storeProfileRating(ctx, id, newHomeMu)
	}
	for _, id := range awayIDs {
		s.storeProfileRating(ctx, id, newAwayMu)
	}
}

func (s *Session) storeProfileRating(ctx context.Context, profileID int64, mu float64) {
	p, err := s.Server.Store.Profiles().Get(ctx, profileID)
	if err != nil {
		s.logger.Warn("rating update: profile lookup failed", zap.Int64("profile_id", profileID), zap.Error(err))
		return
	}
	p.Rating = &mu
	if err := s.Server.Store.Profiles().Store(ctx, p); err != nil {
		s.logger.Warn("rating update: profile store failed", zap.Int64("profile_id", profileID), zap.Error(err))
	}
}

func handleMatchClockB(s *Session, body []byte) error {
	req := &wire.MatchClockRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	_, room, ok := s.currentRoom()
	if !ok {
		return nil
	}
	if m, ok := room.Match.(*match.MatchB); ok && m != nil {
		m.Data.ClockMin = int(req.Minute)
	}
	return s.SendFrame(uint16(wire.OpMatchClockB+1), wire.EmptyOK())
}

func handleMatchExitA(s *Session, body []byte) error {
	req := &wire.MatchExitRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	_, room, ok := s.currentRoom()
	if !ok {
		return nil
	}
	m, ok := room.Match.(*match.MatchA)
	if !ok || m == nil {
		return s.SendFrame(uint16(wire.OpMatchExitA+1), wire.EmptyOK())
	}

	exitType := model.ExitType(req.ExitType)
	if req.Home {
		m.Data.HomeExit = &exitType
	} else {
		m.Data.AwayExit = &exitType
	}
	return s.SendFrame(uint16(wire.OpMatchExitA+1), wire.EmptyOK())
}

func handleChat(s *Session, body []byte) error {
	req := &wire.ChatWire{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	req.Text = wire.TruncateText(req.Text)

	l := s.currentLobby()
	if l == nil {
		return nil
	}

	if s.Dialect == DialectA && req.Type == wire.ChatLobby {
		req.Text = censor(req.Text, s.Server.Config.BannedWords)
	}

	switch req.Type {
	case wire.ChatLobby:
		s.appendAndBroadcastLobbyChat(l, req, nil)
	case wire.ChatPrivate:
		to := int64(req.ToID)
		s.appendAndBroadcastLobbyChat(l, req, &to)
	default:
		// Room/match/stadium chat: fan out to the current room only, not
		// persisted to lobby history (spec.md §4.6).
		if _, room, ok := s.currentRoom(); ok {
			s.broadcastToRoom(l, room, uint16(wire.OpChat+1), req)
		}
	}

	return s.SendFrame(uint16(wire.OpChat+1), wire.EmptyOK())
}

func censor(text string, bannedWords []string) string {
	lower := strings.ToLower(text)
	for _, w := range bannedWords {
		if w == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(w)) {
			return "[message removed]"
		}
	}
	return text
}

func (s *Session) appendAndBroadcastLobbyChat(l *lobby.Lobby, req *wire.ChatWire, to *int64) {
	msg := model.ChatMessage{
		FromProfileID: int64(req.FromID),
		Text:          req.Text,
		ToProfileID:   to,
		Timestamp:     time.Now(),
	}
	l.History.Append(msg)

	body, err := wire.Marshal(req)
	if err != nil {
		return
	}
	for hash, profileID := range l.Players() {
		if to != nil && profileID != *to && int64(req.FromID) != profileID {
			continue
		}
		if peer, ok := s.Server.Find(hash); ok {
			_ = peer.SendFrame(uint16(wire.OpChat+1), body)
		}
	}
}

func (s *Session) broadcastToRoom(l *lobby.Lobby, room *lobby.Room, opcode uint16, msg wire.Streamable) {
	body, err := wire.Marshal(msg)
	if err != nil {
		return
	}
	for hash, profileID := range l.Players() {
		if !containsProfile(room.Players, profileID) {
			continue
		}
		if peer, ok := s.Server.Find(hash); ok {
			_ = peer.SendFrame(opcode, body)
		}
	}
}

func (s *Session) broadcastRoomUpdate(l *lobby.Lobby, room *lobby.Room) {
	BroadcastRoomUpdate(s.Server, l, room)
}

// BroadcastRoomUpdate sends room's current phase/score to every connected
// player in l. Exported so teardown paths with no live *Session of their
// own to drive the notification (cmd/fiveserver's disconnect
// hook, spec.md §5 step 3) can still broadcast the room + player updates a
// normal handler would.
func BroadcastRoomUpdate(srv *fiveserver.Server, l *lobby.Lobby, room *lobby.Room) {
	update := &wire.RoomUpdate{RoomID: uint32(room.ID), Phase: uint16(room.Phase)}
	if m, ok := room.Match.(*match.MatchA); ok && m != nil {
		update.ScoreHome, update.ScoreAway = int32(m.Data.ScoreHome), int32(m.Data.ScoreAway)
	}
	if m, ok := room.Match.(*match.MatchB); ok && m != nil {
		home, away := match.ScoreB(m)
		update.ScoreHome, update.ScoreAway = int32(home), int32(away)
	}
	body, err := wire.Marshal(update)
	if err != nil {
		return
	}
	for hash := range l.Players() {
		if peer, ok := srv.Find(hash); ok {
			_ = peer.SendFrame(uint16(wire.OpRoomUpdate), body)
		}
	}
}

func handlePing(s *Session, body []byte) error {
	req := &wire.PingRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}

	l := s.currentLobby()
	if l == nil {
		return s.SendFrame(uint16(wire.OpPingA+1), wire.ErrCodeGeneric.Bytes())
	}
	for hash, profileID := range l.Players() {
		if profileID != int64(req.TargetProfileID) {
			continue
		}
		peer, ok := s.Server.Find(hash)
		if !ok {
			break
		}
		peerSess, ok := peer.(*Session)
		if !ok {
			break
		}
		out := peerEndpointsOf(profileID, peerSess)
		body, err := wire.Marshal(out)
		if err != nil {
			return err
		}
		return s.SendFrame(uint16(wire.OpPingA+1), body)
	}
	return s.SendFrame(uint16(wire.OpPingA+1), wire.ErrCodeGeneric.Bytes())
}

func handleForceCancelB(s *Session, body []byte) error {
	req := &wire.ForceCancelRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	_, room, ok := s.currentRoom()
	if !ok || !room.HasOwner(s.ProfileID) {
		return s.SendFrame(uint16(wire.OpForceCancelB+1), wire.ErrCodeGeneric.Bytes())
	}
	room.ForceCancel(int64(req.ProfileID), time.Now())
	return s.SendFrame(uint16(wire.OpForceCancelB+1), wire.EmptyOK())
}

func handleRoomRename(s *Session, body []byte) error {
	req := &wire.RoomRenameRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	l, room, ok := s.currentRoom()
	if !ok {
		return nil
	}
	if _, taken := l.Room(req.NewName); taken {
		return s.SendFrame(uint16(wire.OpRoomRenameB+1), wire.ErrCodeRoomNameTaken.Bytes())
	}
	room.Name = req.NewName
	s.RoomName = req.NewName
	return s.SendFrame(uint16(wire.OpRoomRenameB+1), wire.EmptyOK())
}

func handleOwnerChange(s *Session, body []byte) error {
	req := &wire.OwnerChangeRequest{}
	if err := wire.Unmarshal(body, req); err != nil {
		return err
	}
	_, room, ok := s.currentRoom()
	if !ok {
		return nil
	}
	if !containsProfile(room.Players, int64(req.NewOwnerProfileID)) {
		return s.SendFrame(uint16(wire.OpOwnerChangeB+1), wire.ErrCodeGeneric.Bytes())
	}
	room.Owner = int64(req.NewOwnerProfileID)
	return s.SendFrame(uint16(wire.OpOwnerChangeB+1), wire.EmptyOK())
}

