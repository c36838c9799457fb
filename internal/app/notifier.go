package app

import "trivia-room-service/internal/domain"

// Notifier delivers game events to connected clients. ToRoom fans out to every
// channel grouped under the room code (moderator included); ToChannel targets
// a single connection. Delivery is best-effort: a dead channel is skipped, the
// game does not wait for it.
type Notifier interface {
	ToRoom(roomCode, event string, payload any)
	ToChannel(channelID, event string, payload any)
}

// Outbound event names.
const (
	EventPlayerListChanged = "playerListChanged"
	EventQuestionBroadcast = "questionBroadcast"
	EventAnswerOutcome     = "answerOutcome"
	EventQuestionRevealed  = "questionRevealed"
	EventScoreboardUpdate  = "scoreboardUpdate"
	EventGameEnded         = "gameEnded"
	EventFinalLeaderboard  = "finalLeaderboard"
)

// PlayerSummary is the aggregate view pushed to the moderator: name and
// running score, never per-answer detail.
type PlayerSummary struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type PlayerListPayload struct {
	Players []PlayerSummary `json:"players"`
}

type ScoreboardPayload struct {
	Players []PlayerSummary `json:"players"`
}

// QuestionPayload is broadcast to the whole room. It deliberately omits the
// correct answer label.
type QuestionPayload struct {
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
	Duration int    `json:"duration"`
}

// AnswerOutcomePayload goes privately to the player who just answered.
type AnswerOutcomePayload struct {
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	CorrectAnswer string `json:"correctAnswer"`
}

// RevealPayload closes a question for the whole room.
type RevealPayload struct {
	CorrectAnswer string `json:"correctAnswer"`
	NextInSeconds int    `json:"nextInSeconds"`
}

// GameEndedPayload goes privately to each player when the game ends.
type GameEndedPayload struct {
	Score int `json:"score"`
	Rank  int `json:"rank"`
	Total int `json:"total"`
}

type RankedPlayer struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// LeaderboardPayload is the moderator's final ranked list.
type LeaderboardPayload struct {
	Players []RankedPlayer `json:"players"`
}

func playerSummaries(players []domain.Player) []PlayerSummary {
	out := make([]PlayerSummary, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerSummary{Username: p.Username, Score: p.Score})
	}
	return out
}
