package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/rating"
)

// memStore is an in-memory Store implementation used by the unit tests of
// cmd/fiveserver, internal/admin, internal/store and internal/tasks, where
// spinning up modernc.org/sqlite
// would add nothing. It obeys the same transactional guarantees as
// sqlitestore: RecordMatchResult and RecomputeRanks mutate their tables
// atomically under a single mutex.
type memStore struct {
	mu sync.Mutex

	nextUserID    int64
	nextProfileID int64

	users       map[int64]*model.User
	profiles    map[int64]*model.Profile
	streaks     map[int64]*model.Streak
	settings    map[int64]*model.SettingsBlobPair
	matchCounts map[int64]matchCountTotals
}

// NewMemStore returns a fresh in-memory Store.
func NewMemStore() Store {
	return &memStore{
		users:       make(map[int64]*model.User),
		profiles:    make(map[int64]*model.Profile),
		streaks:     make(map[int64]*model.Streak),
		settings:    make(map[int64]*model.SettingsBlobPair),
		matchCounts: make(map[int64]matchCountTotals),
	}
}

func (m *memStore) Close() error { return nil }

func (m *memStore) Users() Users       { return (*memUsers)(m) }
func (m *memStore) Profiles() Profiles { return (*memProfiles)(m) }
func (m *memStore) Streaks() Streaks   { return (*memStreaks)(m) }
func (m *memStore) Settings() Settings { return (*memSettings)(m) }
func (m *memStore) Matches() Matches   { return (*memMatches)(m) }

type memUsers memStore

func (m *memUsers) Get(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Deleted {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if !u.Deleted && u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) FindByHash(_ context.Context, hash string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if !u.Deleted && u.Hash == hash {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) FindByNonce(_ context.Context, nonce string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if nonce == "" {
		return nil, ErrNotFound
	}
	for _, u := range m.users {
		if !u.Deleted && u.ResetNonce == nonce {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) Store(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.users {
		if other.ID != u.ID && !other.Deleted && other.Username == u.Username {
			return ErrUsernameTaken
		}
	}

	if u.ID == 0 {
		m.nextUserID++
		u.ID = m.nextUserID
	}
	u.UpdatedOn = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Deleted = true
	return nil
}

func (m *memUsers) Browse(_ context.Context, offset, limit int) (int, []*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []*model.User
	for _, u := range m.users {
		if !u.Deleted {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })

	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	out := make([]*model.User, end-offset)
	for i, u := range all[offset:end] {
		cp := *u
		out[i] = &cp
	}
	return total, out, nil
}

type memProfiles memStore

func (m *memProfiles) Get(_ context.Context, id int64) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || p.Deleted {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) GetByName(_ context.Context, name string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if !p.Deleted && p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memProfiles) ListByUser(_ context.Context, userID int64) ([]*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Profile
	for _, p := range m.profiles {
		if !p.Deleted && p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (m *memProfiles) Browse(_ context.Context, offset, limit int) (int, []*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []*model.Profile
	for _, p := range m.profiles {
		if !p.Deleted {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if offset >= total {
		return total, nil, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return total, all[offset:end], nil
}

func (m *memProfiles) NameTaken(_ context.Context, name string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if !p.Deleted && p.Name == name && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProfiles) Store(_ context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.profiles {
		if other.ID != p.ID && !other.Deleted && other.Name == p.Name {
			return ErrNameTaken
		}
	}

	if p.ID == 0 {
		m.nextProfileID++
		p.ID = m.nextProfileID
	}
	p.UpdatedOn = time.Now()
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *memProfiles) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.Deleted = true
	return nil
}

// RecomputeRanks implements spec.md §4.9/§8 property 7: profiles ordered by
// (points DESC, seconds_played DESC) get dense-competition ranks, where
// rank only advances when points strictly drop from the previous row.
func (m *memProfiles) RecomputeRanks(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []*model.Profile
	for _, p := range m.profiles {
		if !p.Deleted {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Points != all[j].Points {
			return all[i].Points > all[j].Points
		}
		return all[i].PlayTime > all[j].PlayTime
	})

	rank := 0
	lastPoints := 0
	havePrev := false
	for i, p := range all {
		if !havePrev || p.Points != lastPoints {
			rank = i + 1
		}
		p.Rank = rank
		lastPoints = p.Points
		havePrev = true
	}
	return nil
}

type memStreaks memStore

func (m *memStreaks) Get(_ context.Context, profileID int64) (*model.Streak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streaks[profileID]
	if !ok {
		return &model.Streak{ProfileID: profileID}, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStreaks) Upsert(_ context.Context, s *model.Streak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.streaks[s.ProfileID] = &cp
	return nil
}

type memSettings memStore

func (m *memSettings) Get(_ context.Context, profileID int64) (*model.SettingsBlobPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[profileID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSettings) Upsert(_ context.Context, profileID int64, pair model.SettingsBlobPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := pair
	m.settings[profileID] = &cp
	return nil
}

type memMatches memStore

// RecordMatchResult implements spec.md §4.7 against the in-memory store:
// skip entirely for no-stats lobbies, otherwise update streaks, play time
// and recomputed points for every participant as a single critical
// section (memStore's mutex stands in for a SQL transaction).
func (m *memMatches) RecordMatchResult(ctx context.Context, result MatchResult) error {
	if result.LobbyNoStats {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, participant := range result.Participants {
		streak := m.streaks[participant.ProfileID]
		if streak == nil {
			streak = &model.Streak{ProfileID: participant.ProfileID}
		}
		streak.Apply(participant.Outcome)
		m.streaks[participant.ProfileID] = streak

		profile := m.profiles[participant.ProfileID]
		if profile == nil {
			continue
		}
		profile.PlayTime += result.Duration

		wins, losses, draws := recordToStatsCounts(m, participant.ProfileID, participant.Outcome)
		profile.Points = rating.Points(wins, draws, losses)
	}
	return nil
}

// recordToStatsCounts folds one more match outcome into the profile's
// running win/loss/draw totals. spec.md §3 defines Stats as
// derived-not-stored; a real SQL store derives it with a COUNT query over
// matches/matches_played (see sqlitestore). The in-memory store keeps the
// same derivation cheaply in a side map instead of a fake "matches" table.
func recordToStatsCounts(m *memMatches, profileID int64, outcome model.Outcome) (wins, losses, draws int) {
	counts := m.matchCounts[profileID]
	switch outcome {
	case model.OutcomeWin:
		counts.wins++
	case model.OutcomeLoss:
		counts.losses++
	case model.OutcomeDraw:
		counts.draws++
	}
	m.matchCounts[profileID] = counts
	return counts.wins, counts.losses, counts.draws
}

// Stats folds a profile's running match-count totals and streak row into
// a model.Stats (spec.md §3). The in-memory store never tracked
// goals-for/against per match (only aggregate outcome counts), so
// GoalsScored/GoalsAllowed stay zero here; sqlitestore derives the real
// figures from its matches table.
func (m *memMatches) Stats(_ context.Context, profileID int64) (model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.matchCounts[profileID]
	streak := m.streaks[profileID]

	stats := model.Stats{
		Wins:   counts.wins,
		Losses: counts.losses,
		Draws:  counts.draws,
	}
	if streak != nil {
		stats.CurrentStreak = streak.Wins
		stats.BestStreak = streak.Best
	}
	return stats, nil
}

type matchCountTotals struct {
	wins, losses, draws int
}
