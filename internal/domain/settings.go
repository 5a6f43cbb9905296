package domain

// Clamp ranges for each settings field. Out-of-range writes are clamped
// silently, never rejected; increment/decrement buttons on clients can
// request arbitrary values and the host is the final arbiter.
const (
	MinRounds = 1
	MaxRounds = 10

	MinCategoriesPerRound = 2
	MaxCategoriesPerRound = 8

	MinAnswerTimerSeconds = 30
	MaxAnswerTimerSeconds = 180

	MinVotingTimerSeconds = 15
	MaxVotingTimerSeconds = 120
)

// Settings holds the host-configurable game parameters. Mutable only by
// the host, before or between rounds.
type Settings struct {
	RoundCount         int `json:"roundCount"`
	CategoriesPerRound int `json:"categoriesPerRound"`
	AnswerTimerSeconds int `json:"answerTimerSeconds"`
	VotingTimerSeconds int `json:"votingTimerSeconds"`
}

// DefaultSettings returns the default game settings
func DefaultSettings() Settings {
	return Settings{
		RoundCount:         3,
		CategoriesPerRound: 5,
		AnswerTimerSeconds: 90,
		VotingTimerSeconds: 45,
	}
}

// Clamped returns a copy with every field independently clamped to its
// allowed range.
func (s Settings) Clamped() Settings {
	return Settings{
		RoundCount:         clamp(s.RoundCount, MinRounds, MaxRounds),
		CategoriesPerRound: clamp(s.CategoriesPerRound, MinCategoriesPerRound, MaxCategoriesPerRound),
		AnswerTimerSeconds: clamp(s.AnswerTimerSeconds, MinAnswerTimerSeconds, MaxAnswerTimerSeconds),
		VotingTimerSeconds: clamp(s.VotingTimerSeconds, MinVotingTimerSeconds, MaxVotingTimerSeconds),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
