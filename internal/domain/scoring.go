package domain

import (
	"sort"
	"strings"
)

// DefaultMinNetVotes is the net-vote threshold an answer needs to count.
const DefaultMinNetVotes = 1

// CalculateNetVotes returns upvotes minus downvotes, 0 for missing data.
func CalculateNetVotes(votes *AnswerVotes) int {
	if votes == nil {
		return 0
	}
	return len(votes.Upvotes) - len(votes.Downvotes)
}

// IsAnswerValid reports whether an answer counts for points: non-blank,
// starting with the round letter, and at or above the net-vote
// threshold.
func IsAnswerValid(answer, letter string, netVotes, minNetVotes int) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}
	if !StartsWithLetter(answer, letter) {
		return false
	}
	return netVotes >= minNetVotes
}

// CalculatePoints converts validity and uniqueness into points: 2 for a
// unique valid answer, 1 for a duplicated valid answer, 0 otherwise.
func CalculatePoints(isUnique, isValid bool) int {
	if !isValid {
		return 0
	}
	if isUnique {
		return 2
	}
	return 1
}

// AnswerResult is the computed breakdown for one submitted answer.
type AnswerResult struct {
	PlayerID      string `json:"playerId"`
	Answer        string `json:"answer"`
	Normalized    string `json:"normalized"`
	NetVotes      int    `json:"netVotes"`
	IsValid       bool   `json:"isValid"`
	IsUnique      bool   `json:"isUnique"`
	Points        int    `json:"points"`
	StartsCorrect bool   `json:"startsCorrect"`
}

// CategoryResult is the per-category answer breakdown.
type CategoryResult struct {
	Category string         `json:"category"`
	Answers  []AnswerResult `json:"answers"`
}

// RoundResults is one round's full computed outcome. A player absent
// from PlayerScores scored 0; callers must default missing entries,
// never treat absence as an error.
type RoundResults struct {
	CategoryResults []CategoryResult `json:"categoryResults"`
	PlayerScores    map[string]int   `json:"playerScores"`
}

// CalculateRoundResults converts the round's answers and votes into
// per-answer validity, uniqueness, and points, and a per-player total.
// Each category's answers are sorted valid-before-invalid, then by
// higher net votes.
func CalculateRoundResults(answers map[string]map[int]string, votes RoundVotes, categories []string, letter string) *RoundResults {
	results := &RoundResults{
		CategoryResults: make([]CategoryResult, 0, len(categories)),
		PlayerScores:    make(map[string]int),
	}

	for idx, category := range categories {
		submitted := make(map[string]string)
		for playerID, byCategory := range answers {
			answer := strings.TrimSpace(byCategory[idx])
			if answer != "" {
				submitted[playerID] = answer
			}
		}

		groups := GroupDuplicateAnswers(submitted)

		categoryResult := CategoryResult{
			Category: category,
			Answers:  make([]AnswerResult, 0, len(submitted)),
		}

		for playerID, answer := range submitted {
			normalized := NormalizeAnswer(answer)
			netVotes := CalculateNetVotes(votes.ForAnswer(idx, answer))
			isValid := IsAnswerValid(answer, letter, netVotes, DefaultMinNetVotes)
			isUnique := len(groups[normalized]) == 1
			points := CalculatePoints(isUnique, isValid)

			categoryResult.Answers = append(categoryResult.Answers, AnswerResult{
				PlayerID:      playerID,
				Answer:        answer,
				Normalized:    normalized,
				NetVotes:      netVotes,
				IsValid:       isValid,
				IsUnique:      isUnique,
				Points:        points,
				StartsCorrect: StartsWithLetter(answer, letter),
			})

			results.PlayerScores[playerID] += points
		}

		sort.SliceStable(categoryResult.Answers, func(i, j int) bool {
			a, b := categoryResult.Answers[i], categoryResult.Answers[j]
			if a.IsValid != b.IsValid {
				return a.IsValid
			}
			return a.NetVotes > b.NetVotes
		})

		results.CategoryResults = append(results.CategoryResults, categoryResult)
	}

	return results
}

// LeaderboardEntry is one row of the score table.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Leaderboard maps players to score rows sorted descending by score.
// Players missing from scores default to 0.
func Leaderboard(scores map[string]int, players []*Player) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, LeaderboardEntry{
			ID:    p.ID,
			Name:  p.Name,
			Score: scores[p.ID],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	return entries
}

// Winners returns every player id whose score equals the maximum score.
// Empty input yields empty output.
func Winners(scores map[string]int) []string {
	if len(scores) == 0 {
		return nil
	}

	max := 0
	first := true
	for _, score := range scores {
		if first || score > max {
			max = score
			first = false
		}
	}

	winners := make([]string, 0, 1)
	for id, score := range scores {
		if score == max {
			winners = append(winners, id)
		}
	}
	sort.Strings(winners)
	return winners
}
