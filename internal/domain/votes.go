package domain

// VoteType is a client's judgment of one answer.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
	VoteNone VoteType = "none" // clears any existing vote
)

// IsValid reports whether v is one of the three known vote types.
func (v VoteType) IsValid() bool {
	return v == VoteUp || v == VoteDown || v == VoteNone
}

// AnswerVotes holds the voter sets for one answer. A voter id appears in
// at most one of the two sets.
type AnswerVotes struct {
	Upvotes   []string `json:"upvotes"`
	Downvotes []string `json:"downvotes"`
}

// Apply records a vote with last-write-wins semantics: the voter is
// removed from both sets unconditionally, then added to the requested
// set. VoteNone performs only the removal.
func (v *AnswerVotes) Apply(voterID string, vote VoteType) {
	v.Upvotes = removeID(v.Upvotes, voterID)
	v.Downvotes = removeID(v.Downvotes, voterID)

	switch vote {
	case VoteUp:
		v.Upvotes = append(v.Upvotes, voterID)
	case VoteDown:
		v.Downvotes = append(v.Downvotes, voterID)
	}
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// RoundVotes maps category index to answer text to voter sets.
type RoundVotes map[int]map[string]*AnswerVotes

// Apply records a vote for (categoryIndex, answer), creating the
// intermediate containers as needed.
func (rv RoundVotes) Apply(categoryIndex int, answer, voterID string, vote VoteType) {
	byAnswer, ok := rv[categoryIndex]
	if !ok {
		byAnswer = make(map[string]*AnswerVotes)
		rv[categoryIndex] = byAnswer
	}

	votes, ok := byAnswer[answer]
	if !ok {
		votes = &AnswerVotes{}
		byAnswer[answer] = votes
	}

	votes.Apply(voterID, vote)
}

// ForAnswer returns the voter sets for (categoryIndex, answer), or nil
// if nobody has voted on it.
func (rv RoundVotes) ForAnswer(categoryIndex int, answer string) *AnswerVotes {
	byAnswer, ok := rv[categoryIndex]
	if !ok {
		return nil
	}
	return byAnswer[answer]
}
