package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/rating"
)

// sqliteStore is the modernc.org/sqlite-backed Store, grounded on the
// query shapes of the original `fiveserver.data`/`fiveserver.data6`
// modules (original_source/lib/fiveserver/{data,data6}.py): typed reads,
// soft-deletes via a `deleted` column, and one UPDATE-only upsert per
// table. Schema per spec.md §6.
type sqliteStore struct {
	db *sql.DB
}

// Open opens (and migrates) a sqlite database at path.
func Open(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite: single-writer

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			serial TEXT NOT NULL,
			hash TEXT NOT NULL UNIQUE,
			reset_nonce TEXT NOT NULL DEFAULT '',
			deleted INTEGER NOT NULL DEFAULT 0,
			updated_on DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			ordinal INTEGER NOT NULL,
			name TEXT NOT NULL UNIQUE,
			fav_player INTEGER NOT NULL DEFAULT 0,
			fav_team INTEGER NOT NULL DEFAULT 0,
			rank INTEGER NOT NULL DEFAULT 0,
			points INTEGER NOT NULL DEFAULT 0,
			disconnects INTEGER NOT NULL DEFAULT 0,
			seconds_played INTEGER NOT NULL DEFAULT 0,
			rating REAL,
			comment TEXT NOT NULL DEFAULT '',
			deleted INTEGER NOT NULL DEFAULT 0,
			updated_on DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id_home INTEGER,
			profile_id_away INTEGER,
			score_home INTEGER NOT NULL,
			score_away INTEGER NOT NULL,
			team_id_home INTEGER NOT NULL,
			team_id_away INTEGER NOT NULL,
			created_on DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS matches_played (
			match_id INTEGER NOT NULL,
			profile_id INTEGER NOT NULL,
			home INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS streaks (
			profile_id INTEGER PRIMARY KEY,
			wins INTEGER NOT NULL DEFAULT 0,
			best INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			profile_id INTEGER PRIMARY KEY,
			settings1 BLOB,
			settings2 BLOB
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Users() Users       { return &sqlUsers{db: s.db} }
func (s *sqliteStore) Profiles() Profiles { return &sqlProfiles{db: s.db} }
func (s *sqliteStore) Streaks() Streaks   { return &sqlStreaks{db: s.db} }
func (s *sqliteStore) Settings() Settings { return &sqlSettings{db: s.db} }
func (s *sqliteStore) Matches() Matches   { return &sqlMatches{db: s.db} }

type sqlUsers struct{ db *sql.DB }

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	var deleted int
	if err := row.Scan(&u.ID, &u.Username, &u.Serial, &u.Hash, &u.ResetNonce, &deleted, &u.UpdatedOn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Deleted = deleted != 0
	return u, nil
}

const userColumns = "id, username, serial, hash, reset_nonce, deleted, updated_on"

func (s *sqlUsers) Get(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE deleted = 0 AND id = ?", id)
	return scanUser(row)
}

func (s *sqlUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE deleted = 0 AND username = ?", username)
	return scanUser(row)
}

func (s *sqlUsers) FindByHash(ctx context.Context, hash string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE deleted = 0 AND hash = ?", hash)
	return scanUser(row)
}

func (s *sqlUsers) FindByNonce(ctx context.Context, nonce string) (*model.User, error) {
	if nonce == "" {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE deleted = 0 AND reset_nonce = ?", nonce)
	return scanUser(row)
}

func (s *sqlUsers) Store(ctx context.Context, u *model.User) error {
	if u.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO users (username, serial, hash, reset_nonce, deleted) VALUES (?, ?, ?, ?, 0)`,
			u.Username, u.Serial, u.Hash, u.ResetNonce)
		if err != nil {
			return translateUnique(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		u.ID = id
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = ?, serial = ?, hash = ?, reset_nonce = ?, deleted = 0, updated_on = CURRENT_TIMESTAMP WHERE id = ?`,
		u.Username, u.Serial, u.Hash, u.ResetNonce, u.ID)
	return translateUnique(err)
}

func (s *sqlUsers) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET deleted = 1 WHERE id = ?`, id)
	return err
}

func (s *sqlUsers) Browse(ctx context.Context, offset, limit int) (int, []*model.User, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(id) FROM users WHERE deleted = 0`).Scan(&total); err != nil {
		return 0, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted = 0 ORDER BY username LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return 0, nil, err
		}
		out = append(out, u)
	}
	return total, out, rows.Err()
}

type sqlProfiles struct{ db *sql.DB }

const profileColumns = "id, user_id, ordinal, name, fav_player, fav_team, `rank`, points, disconnects, seconds_played, rating, comment, deleted, updated_on"

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	p := &model.Profile{}
	var secondsPlayed int64
	var rating sql.NullFloat64
	var deleted int
	if err := row.Scan(&p.ID, &p.UserID, &p.Ordinal, &p.Name, &p.FavouritePlayerID, &p.FavouriteTeamID,
		&p.Rank, &p.Points, &p.Disconnects, &secondsPlayed, &rating, &p.Comment, &deleted, &p.UpdatedOn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.PlayTime = time.Duration(secondsPlayed) * time.Second
	if rating.Valid {
		v := rating.Float64
		p.Rating = &v
	}
	p.Deleted = deleted != 0
	return p, nil
}

func (s *sqlProfiles) Get(ctx context.Context, id int64) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE deleted = 0 AND id = ?", id)
	return scanProfile(row)
}

func (s *sqlProfiles) GetByName(ctx context.Context, name string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE deleted = 0 AND name = ?", name)
	return scanProfile(row)
}

func (s *sqlProfiles) ListByUser(ctx context.Context, userID int64) ([]*model.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE deleted = 0 AND user_id = ? ORDER BY ordinal ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlProfiles) Browse(ctx context.Context, offset, limit int) (int, []*model.Profile, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(id) FROM profiles WHERE deleted = 0`).Scan(&total); err != nil {
		return 0, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE deleted = 0 ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var out []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return 0, nil, err
		}
		out = append(out, p)
	}
	return total, out, rows.Err()
}

func (s *sqlProfiles) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(id) FROM profiles WHERE deleted = 0 AND name = ? AND id != ?`, name, excludeID).Scan(&count)
	return count > 0, err
}

func (s *sqlProfiles) Store(ctx context.Context, p *model.Profile) error {
	secondsPlayed := int64(p.PlayTime / time.Second)
	var ratingVal any
	if p.Rating != nil {
		ratingVal = *p.Rating
	}

	if p.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO profiles (user_id, ordinal, name, fav_player, fav_team, points, disconnects, seconds_played, rating, comment)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.UserID, p.Ordinal, p.Name, p.FavouritePlayerID, p.FavouriteTeamID, p.Points, p.Disconnects, secondsPlayed, ratingVal, p.Comment)
		if err != nil {
			return translateUnique(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET name = ?, fav_player = ?, fav_team = ?, points = ?, disconnects = ?,
		 seconds_played = ?, rating = ?, comment = ?, deleted = 0, updated_on = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Name, p.FavouritePlayerID, p.FavouriteTeamID, p.Points, p.Disconnects, secondsPlayed, ratingVal, p.Comment, p.ID)
	return translateUnique(err)
}

func (s *sqlProfiles) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE profiles SET deleted = 1 WHERE id = ?`, id)
	return err
}

// RecomputeRanks is the single transaction of spec.md §4.9: page through
// profiles by (points DESC, seconds_played DESC) and assign
// dense-competition ranks (§8 property 7), grounded directly on
// `ProfileData._computeRanksTxn` in original_source/lib/fiveserver/data.py.
func (s *sqlProfiles) RecomputeRanks(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const limit = 50
	offset := 0
	rank := 0
	count := 1
	havePrev := false
	var lastPoints int

	for {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, points FROM profiles WHERE deleted = 0 ORDER BY points DESC, seconds_played DESC LIMIT ? OFFSET ?`,
			limit, offset)
		if err != nil {
			return err
		}

		type row struct {
			id     int64
			points int
		}
		var batch []row
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.id, &r.points); err != nil {
				rows.Close()
				return err
			}
			batch = append(batch, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, r := range batch {
			if !havePrev {
				rank = count
			} else if lastPoints > r.points {
				rank = count
			}
			if _, err := tx.ExecContext(ctx, `UPDATE profiles SET rank = ? WHERE id = ?`, rank, r.id); err != nil {
				return err
			}
			lastPoints = r.points
			havePrev = true
			count++
		}

		if len(batch) < limit {
			break
		}
		offset += limit
	}

	return tx.Commit()
}

type sqlStreaks struct{ db *sql.DB }

func (s *sqlStreaks) Get(ctx context.Context, profileID int64) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx, `SELECT profile_id, wins, best FROM streaks WHERE profile_id = ?`, profileID)
	st := &model.Streak{}
	if err := row.Scan(&st.ProfileID, &st.Wins, &st.Best); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.Streak{ProfileID: profileID}, nil
		}
		return nil, err
	}
	return st, nil
}

func (s *sqlStreaks) Upsert(ctx context.Context, st *model.Streak) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO streaks (profile_id, wins, best) VALUES (?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET wins = excluded.wins, best = excluded.best`,
		st.ProfileID, st.Wins, st.Best)
	return err
}

type sqlSettings struct{ db *sql.DB }

func (s *sqlSettings) Get(ctx context.Context, profileID int64) (*model.SettingsBlobPair, error) {
	row := s.db.QueryRowContext(ctx, `SELECT settings1, settings2 FROM settings WHERE profile_id = ?`, profileID)
	pair := &model.SettingsBlobPair{}
	if err := row.Scan(&pair.Blob1, &pair.Blob2); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return pair, nil
}

func (s *sqlSettings) Upsert(ctx context.Context, profileID int64, pair model.SettingsBlobPair) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (profile_id, settings1, settings2) VALUES (?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET settings1 = excluded.settings1, settings2 = excluded.settings2`,
		profileID, pair.Blob1, pair.Blob2)
	return err
}

type sqlMatches struct{ db *sql.DB }

// RecordMatchResult is the single transaction of spec.md §4.7: insert the
// match row, insert matches_played link rows, update streaks, add play
// time, and recompute + persist points for every participant.
func (s *sqlMatches) RecordMatchResult(ctx context.Context, result MatchResult) error {
	if result.LobbyNoStats {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var homeID, awayID *int64
	for i := range result.Participants {
		p := &result.Participants[i]
		if p.Home && homeID == nil {
			homeID = &p.ProfileID
		}
		if !p.Home && awayID == nil {
			awayID = &p.ProfileID
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO matches (profile_id_home, profile_id_away, score_home, score_away, team_id_home, team_id_away)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		homeID, awayID, result.ScoreHome, result.ScoreAway, result.TeamIDHome, result.TeamIDAway)
	if err != nil {
		return err
	}
	matchID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, p := range result.Participants {
		home := 0
		if p.Home {
			home = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO matches_played (match_id, profile_id, home) VALUES (?, ?, ?)`,
			matchID, p.ProfileID, home); err != nil {
			return err
		}

		if err := applyStreakTx(ctx, tx, p.ProfileID, p.Outcome); err != nil {
			return err
		}
		if err := addPlayTimeAndRecomputePointsTx(ctx, tx, p.ProfileID, result.Duration); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func applyStreakTx(ctx context.Context, tx *sql.Tx, profileID int64, outcome model.Outcome) error {
	st := &model.Streak{ProfileID: profileID}
	row := tx.QueryRowContext(ctx, `SELECT wins, best FROM streaks WHERE profile_id = ?`, profileID)
	if err := row.Scan(&st.Wins, &st.Best); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	st.Apply(outcome)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO streaks (profile_id, wins, best) VALUES (?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET wins = excluded.wins, best = excluded.best`,
		st.ProfileID, st.Wins, st.Best)
	return err
}

func addPlayTimeAndRecomputePointsTx(ctx context.Context, tx *sql.Tx, profileID int64, duration time.Duration) error {
	var secondsPlayed int64
	if err := tx.QueryRowContext(ctx, `SELECT seconds_played FROM profiles WHERE id = ?`, profileID).Scan(&secondsPlayed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	secondsPlayed += int64(duration / time.Second)

	var wins, losses, draws int
	row := tx.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN (mp.home = 1 AND m.score_home > m.score_away) OR (mp.home = 0 AND m.score_away > m.score_home) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN (mp.home = 1 AND m.score_home < m.score_away) OR (mp.home = 0 AND m.score_away < m.score_home) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN m.score_home = m.score_away THEN 1 ELSE 0 END), 0)
		FROM matches_played mp JOIN matches m ON m.id = mp.match_id
		WHERE mp.profile_id = ?`, profileID)
	if err := row.Scan(&wins, &losses, &draws); err != nil {
		return err
	}

	points := rating.Points(wins, draws, losses)

	_, err := tx.ExecContext(ctx,
		`UPDATE profiles SET seconds_played = ?, points = ? WHERE id = ?`, secondsPlayed, points, profileID)
	return err
}

// Stats derives a profile's full win/loss/draw/goal history plus its
// current streak row, for the admin profile detail view. Grounded on
// admin.py's ProfilesResource, which pairs a profile with exactly this
// stats tuple.
func (s *sqlMatches) Stats(ctx context.Context, profileID int64) (model.Stats, error) {
	var stats model.Stats

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN (mp.home = 1 AND m.score_home > m.score_away) OR (mp.home = 0 AND m.score_away > m.score_home) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN (mp.home = 1 AND m.score_home < m.score_away) OR (mp.home = 0 AND m.score_away < m.score_home) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN m.score_home = m.score_away THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN mp.home = 1 THEN m.score_home ELSE m.score_away END), 0),
			COALESCE(SUM(CASE WHEN mp.home = 1 THEN m.score_away ELSE m.score_home END), 0)
		FROM matches_played mp JOIN matches m ON m.id = mp.match_id
		WHERE mp.profile_id = ?`, profileID)
	if err := row.Scan(&stats.Wins, &stats.Losses, &stats.Draws, &stats.GoalsScored, &stats.GoalsAllowed); err != nil {
		return model.Stats{}, err
	}

	var wins, best int
	err := s.db.QueryRowContext(ctx, `SELECT wins, best FROM streaks WHERE profile_id = ?`, profileID).Scan(&wins, &best)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Stats{}, err
	}
	stats.CurrentStreak = wins
	stats.BestStreak = best

	return stats, nil
}

func translateUnique(err error) error {
	if err == nil {
		return nil
	}
	// modernc.org/sqlite surfaces UNIQUE constraint violations as a plain
	// error string; a dedicated error code check is avoided here since
	// sentinel matching on driver-specific error types would need an
	// import of the driver's internal error package.
	msg := err.Error()
	if containsAny(msg, "UNIQUE constraint failed: users.username") {
		return ErrUsernameTaken
	}
	if containsAny(msg, "UNIQUE constraint failed: profiles.name") {
		return ErrNameTaken
	}
	return err
}

func containsAny(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
