package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGame_AddPlayer(t *testing.T) {
	g := NewGame("ROOM01")

	host, err := g.AddPlayer("p1", "Alice")
	require.NoError(t, err)
	assert.True(t, host.IsHost)

	guest, err := g.AddPlayer("p2", "Bob")
	require.NoError(t, err)
	assert.False(t, guest.IsHost)

	assert.Equal(t, 0, g.Scores["p1"])
	assert.Equal(t, 0, g.Scores["p2"])
}

func TestGame_AddPlayerCapacity(t *testing.T) {
	g := NewGame("ROOM01")

	for i := 0; i < MaxPlayers; i++ {
		_, err := g.AddPlayer(string(rune('a'+i)), "Player")
		require.NoError(t, err)
	}

	_, err := g.AddPlayer("overflow", "Late")
	assert.ErrorIs(t, err, ErrGameFull)
}

func TestGame_RejoinUpdatesInsteadOfDuplicating(t *testing.T) {
	g := NewGame("ROOM01")

	_, err := g.AddPlayer("p1", "Alice")
	require.NoError(t, err)
	p, err := g.GetPlayer("p1")
	require.NoError(t, err)
	p.IsReady = true
	p.Disconnect()

	rejoined, err := g.AddPlayer("p1", "Alicia")
	require.NoError(t, err)

	assert.Len(t, g.Players, 1)
	assert.Equal(t, "Alicia", rejoined.Name)
	assert.False(t, rejoined.IsReady)
	assert.True(t, rejoined.IsConnected())
}

func TestGame_AddPlayerTruncatesName(t *testing.T) {
	g := NewGame("ROOM01")

	long := strings.Repeat("x", MaxNameLength+10)
	p, err := g.AddPlayer("p1", long)
	require.NoError(t, err)
	assert.Len(t, p.Name, MaxNameLength)

	_, err = g.AddPlayer("p2", "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestGame_AllReadyRequiresTwoPlayers(t *testing.T) {
	g := NewGame("ROOM01")

	p1, _ := g.AddPlayer("p1", "Alice")
	p1.IsReady = true
	assert.False(t, g.AllReady())

	p2, _ := g.AddPlayer("p2", "Bob")
	assert.False(t, g.AllReady())

	p2.IsReady = true
	assert.True(t, g.AllReady())
}

func TestGame_AllReadySkipsDisconnected(t *testing.T) {
	g := NewGame("ROOM01")

	p1, _ := g.AddPlayer("p1", "Alice")
	p2, _ := g.AddPlayer("p2", "Bob")
	p3, _ := g.AddPlayer("p3", "Carol")

	p1.IsReady = true
	p2.IsReady = true
	p3.Disconnect()

	assert.True(t, g.AllReady())
}

func TestGame_StartRoundClearsRoundState(t *testing.T) {
	g := NewGame("ROOM01")
	p1, _ := g.AddPlayer("p1", "Alice")
	g.AddPlayer("p2", "Bob")
	p1.IsReady = true

	g.StartRound("C", []string{"Animal", "City"})
	require.NoError(t, g.SetAnswers("p1", map[int]string{0: "Cat"}))
	require.NoError(t, g.ApplyVote(0, "Cat", "p2", VoteUp))
	g.RoundResults = &RoundResults{}

	g.StartRound("D", []string{"Food or drink", "Movie"})

	assert.Equal(t, 2, g.CurrentRound)
	assert.Equal(t, "D", g.Letter)
	assert.True(t, g.UsedLetters["C"])
	assert.True(t, g.UsedLetters["D"])
	assert.Empty(t, g.Answers)
	assert.Empty(t, g.Votes)
	assert.Nil(t, g.RoundResults)
	assert.False(t, p1.IsReady)
}

func TestGame_SetAnswersDropsOutOfRange(t *testing.T) {
	g := NewGame("ROOM01")
	g.AddPlayer("p1", "Alice")
	g.StartRound("C", []string{"Animal", "City"})

	require.NoError(t, g.SetAnswers("p1", map[int]string{0: "Cat", 5: "Canberra", -1: "Cod"}))

	assert.Equal(t, map[int]string{0: "Cat"}, g.Answers["p1"])
}

func TestGame_SetAnswersTrimsWhitespace(t *testing.T) {
	g := NewGame("ROOM01")
	g.AddPlayer("p1", "Alice")
	g.AddPlayer("p2", "Bob")
	g.StartRound("C", []string{"Animal"})

	require.NoError(t, g.SetAnswers("p1", map[int]string{0: " Cat "}))
	assert.Equal(t, "Cat", g.Answers["p1"][0])

	// The stored text is what gets revealed, so votes cast on it must
	// land on the same key the scorer looks up.
	require.NoError(t, g.ApplyVote(0, g.Answers["p1"][0], "p2", VoteUp))

	results := CalculateRoundResults(g.Answers, g.Votes, g.Categories, g.Letter)
	require.Len(t, results.CategoryResults, 1)
	require.Len(t, results.CategoryResults[0].Answers, 1)
	answer := results.CategoryResults[0].Answers[0]
	assert.Equal(t, 1, answer.NetVotes)
	assert.True(t, answer.IsValid)
	assert.Equal(t, 2, answer.Points)
	assert.Equal(t, 2, results.PlayerScores["p1"])
}

func TestGame_ApplyVoteValidation(t *testing.T) {
	g := NewGame("ROOM01")
	g.AddPlayer("p1", "Alice")
	g.StartRound("C", []string{"Animal"})

	assert.ErrorIs(t, g.ApplyVote(3, "Cat", "p1", VoteUp), ErrInvalidCategory)
	assert.ErrorIs(t, g.ApplyVote(0, "Cat", "p1", VoteType("sideways")), ErrInvalidVoteType)
	assert.ErrorIs(t, g.ApplyVote(0, "Cat", "ghost", VoteUp), ErrPlayerNotFound)
	assert.NoError(t, g.ApplyVote(0, "Cat", "p1", VoteUp))
}

func TestGame_AddRoundScoresAccumulatesAndMirrors(t *testing.T) {
	g := NewGame("ROOM01")
	p1, _ := g.AddPlayer("p1", "Alice")
	g.AddPlayer("p2", "Bob")

	g.AddRoundScores(&RoundResults{PlayerScores: map[string]int{"p1": 4, "p2": 1}})
	g.AddRoundScores(&RoundResults{PlayerScores: map[string]int{"p1": 2}})

	assert.Equal(t, 6, g.Scores["p1"])
	assert.Equal(t, 1, g.Scores["p2"])
	assert.Equal(t, 6, p1.Score)
}

func TestGame_ResetForNewGame(t *testing.T) {
	g := NewGame("ROOM01")
	p1, _ := g.AddPlayer("p1", "Alice")
	g.AddPlayer("p2", "Bob")

	g.StartRound("C", []string{"Animal"})
	g.AddRoundScores(&RoundResults{PlayerScores: map[string]int{"p1": 4}})
	p1.IsReady = true

	g.ResetForNewGame()

	assert.Equal(t, 0, g.CurrentRound)
	assert.Empty(t, g.UsedLetters)
	assert.Equal(t, map[string]int{"p1": 0, "p2": 0}, g.Scores)
	assert.Equal(t, 0, p1.Score)
	assert.False(t, p1.IsReady)
	assert.Len(t, g.Players, 2)
}

func TestGame_RemoveHostLeavesNoHost(t *testing.T) {
	g := NewGame("ROOM01")
	g.AddPlayer("p1", "Alice")
	g.AddPlayer("p2", "Bob")

	require.NoError(t, g.RemovePlayer("p1"))
	assert.Nil(t, g.Host())
	assert.ErrorIs(t, g.RemovePlayer("p1"), ErrPlayerNotFound)
}

func TestSettings_Clamped(t *testing.T) {
	clamped := Settings{
		RoundCount:         99,
		CategoriesPerRound: 0,
		AnswerTimerSeconds: 7,
		VotingTimerSeconds: 9999,
	}.Clamped()

	assert.Equal(t, MaxRounds, clamped.RoundCount)
	assert.Equal(t, MinCategoriesPerRound, clamped.CategoriesPerRound)
	assert.Equal(t, MinAnswerTimerSeconds, clamped.AnswerTimerSeconds)
	assert.Equal(t, MaxVotingTimerSeconds, clamped.VotingTimerSeconds)

	defaults := DefaultSettings()
	assert.Equal(t, defaults, defaults.Clamped())
}

func TestGame_Snapshot(t *testing.T) {
	g := NewGame("ROOM01")
	g.AddPlayer("p1", "Alice")
	g.AddPlayer("p2", "Bob")
	g.StartRound("C", []string{"Animal", "City"})

	snap := g.Snapshot(PhaseAnswering)

	assert.Equal(t, PhaseAnswering, snap.Phase)
	assert.Equal(t, "p1", snap.HostID)
	assert.Len(t, snap.Players, 2)
	assert.Equal(t, 1, snap.CurrentRound)
	assert.Equal(t, "C", snap.Letter)
	assert.Equal(t, []string{"C"}, snap.UsedLetters)
	assert.Equal(t, []string{"Animal", "City"}, snap.Categories)
}
