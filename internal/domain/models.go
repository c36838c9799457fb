package domain

import (
	"strings"
	"time"
)

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusActive  RoomStatus = "active"
	StatusEnded   RoomStatus = "ended"
)

// Question types supported by the bank.
const (
	QuestionTypeText  = "text"
	QuestionTypeImage = "image"
)

// The two answer labels every question draws its correct answer from.
const (
	AnswerReal = "REAL"
	AnswerAI   = "AI"
)

// Answer is one player's verdict on one question. Choice is nil when the
// countdown expired before the player answered.
type Answer struct {
	QuestionIndex int     `json:"questionIndex"`
	Choice        *string `json:"choice"`
	Correct       bool    `json:"correct"`
	Points        int     `json:"points"`
}

// Player is a participant in a room, identified by username. ChannelID is the
// player's current live connection; it is overwritten on reconnect and kept
// after disconnect.
type Player struct {
	Username  string    `json:"username"`
	ChannelID string    `json:"channelId"`
	Score     int       `json:"score"`
	Answers   []Answer  `json:"answers"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// AnswerFor returns the player's answer for a question index, if any.
func (p *Player) AnswerFor(index int) (Answer, bool) {
	for _, a := range p.Answers {
		if a.QuestionIndex == index {
			return a, true
		}
	}
	return Answer{}, false
}

// HasAnswered reports whether the player has a recorded answer for index.
func (p *Player) HasAnswered(index int) bool {
	_, ok := p.AnswerFor(index)
	return ok
}

// Room is one game session. Players are kept in join order; QuestionIDs is
// fixed once the game starts.
type Room struct {
	Code                 string     `json:"code"`
	Status               RoomStatus `json:"status"`
	ModeratorChannelID   string     `json:"moderatorChannelId,omitempty"`
	Players              []Player   `json:"players"`
	QuestionIDs          []string   `json:"questionIds"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// PlayerByUsername finds a player by case-insensitive username match.
func (r *Room) PlayerByUsername(username string) *Player {
	for i := range r.Players {
		if strings.EqualFold(r.Players[i].Username, username) {
			return &r.Players[i]
		}
	}
	return nil
}

// PlayerByChannel finds a player by live connection identity.
func (r *Room) PlayerByChannel(channelID string) *Player {
	for i := range r.Players {
		if r.Players[i].ChannelID == channelID {
			return &r.Players[i]
		}
	}
	return nil
}

// AnsweredCount returns how many players have an answer recorded for index.
func (r *Room) AnsweredCount(index int) int {
	count := 0
	for i := range r.Players {
		if r.Players[i].HasAnswered(index) {
			count++
		}
	}
	return count
}

// Clone returns a deep copy so callers can mutate freely without aliasing
// store-held state.
func (r Room) Clone() Room {
	out := r
	out.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		cp := p
		cp.Answers = append([]Answer(nil), p.Answers...)
		out.Players[i] = cp
	}
	out.QuestionIDs = append([]string(nil), r.QuestionIDs...)
	return out
}

// Question is bank content, read-only to the game core. Content holds the
// statement text or the image URL depending on Type.
type Question struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	CorrectAnswer string    `json:"correctAnswer"`
	CreatedAt     time.Time `json:"createdAt"`
}
