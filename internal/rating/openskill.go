package rating

import (
	"github.com/intinig/go-openskill/rating"
	"github.com/intinig/go-openskill/types"

	"github.com/juce/fiveserver/internal/model"
)

const (
	defaultMu    = 25.0
	defaultSigma = 8.333
)

func f64(v float64) *float64 { return &v }

// NewSkillRating returns the default openskill rating for a profile that
// has never had one computed (spec.md §3: Profile.Rating is optional,
// dialect-B only).
func NewSkillRating() types.Rating {
	return rating.NewWithOptions(&types.OpenSkillOptions{Mu: f64(defaultMu), Sigma: f64(defaultSigma)})
}

// SkillRatingFromMu reconstructs a rating from the single scalar persisted
// on the Profile row, holding sigma at its default (the profile only
// stores one float, so sigma is not round-tripped across restarts; this
// matches the overlay being additive rather than spec-mandated, per
// SPEC_FULL.md's domain-stack section).
func SkillRatingFromMu(mu *float64) types.Rating {
	if mu == nil {
		return NewSkillRating()
	}
	return rating.NewWithOptions(&types.OpenSkillOptions{Mu: f64(*mu), Sigma: f64(defaultSigma)})
}

// UpdateSkillRatings runs one openskill update for a two-team match and
// returns the new (home, away) ratings, given which side won. Draws go
// through UpdateSkillRatingsDraw instead.
func UpdateSkillRatings(home, away types.Rating, homeWon bool) (newHome, newAway types.Rating) {
	homeTeam := types.Team{home}
	awayTeam := types.Team{away}

	var result []types.Team
	if homeWon {
		result = rating.Rate([]types.Team{homeTeam, awayTeam}, nil)
	} else {
		result = rating.Rate([]types.Team{awayTeam, homeTeam}, nil)
	}

	if homeWon {
		return result[0][0], result[1][0]
	}
	return result[1][0], result[0][0]
}

// UpdateSkillRatingsDraw runs an openskill update treating both teams as
// tied.
func UpdateSkillRatingsDraw(home, away types.Rating) (newHome, newAway types.Rating) {
	result := rating.Rate([]types.Team{{home}, {away}}, nil)
	return result[0][0], result[1][0]
}

// MuOf extracts the scalar mu persisted on Profile.Rating (spec.md §3:
// "the profile only stores one float").
func MuOf(r types.Rating) float64 {
	return r.Mu
}

// UpdateProfileRatings runs the dialect-B skill-rating update for one
// finished match and returns the new (home, away) mu scalars to persist
// on Profile.Rating (SPEC_FULL.md's domain-stack section: "computed with
// an openskill rating update after every completed dialect-B match").
func UpdateProfileRatings(homeMu, awayMu *float64, homeOutcome model.Outcome) (newHomeMu, newAwayMu float64) {
	home := SkillRatingFromMu(homeMu)
	away := SkillRatingFromMu(awayMu)

	var newHome, newAway types.Rating
	if homeOutcome == model.OutcomeDraw {
		newHome, newAway = UpdateSkillRatingsDraw(home, away)
	} else {
		newHome, newAway = UpdateSkillRatings(home, away, homeOutcome == model.OutcomeWin)
	}
	return MuOf(newHome), MuOf(newAway)
}
