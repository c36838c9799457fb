package app

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"trivia-room-service/internal/domain"
)

// RoomStore abstracts the persisted room documents (in-memory, Redis, etc).
// It is the single source of truth for room status and question index.
type RoomStore interface {
	FindRoomByCode(ctx context.Context, code string) (domain.Room, error)
	CreateRoom(ctx context.Context, room domain.Room) error
	UpdateRoom(ctx context.Context, room domain.Room) error
	DeleteRoom(ctx context.Context, code string) error
	ListRooms(ctx context.Context) ([]domain.Room, error)
}

// QuestionBank provides question content and the admin CRUD surface.
type QuestionBank interface {
	ListQuestions(ctx context.Context) ([]domain.Question, error)
	FindQuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error)
	UpdateQuestion(ctx context.Context, q domain.Question) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
}

const (
	questionDuration    = 20 * time.Second
	revealDelay         = 3 * time.Second
	maxQuestionsPerGame = 20

	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeAttempts = 5
)

// GameService drives rooms through their lifecycle: creation, joining, the
// per-question countdown protocol, scoring, and the final ranking. Every
// mutation of a given room is serialized through that room's mutex, so
// interleaved answer submissions and timer expiries never act on a stale
// snapshot.
type GameService struct {
	rooms    RoomStore
	bank     QuestionBank
	notifier Notifier
	sched    *Scheduler
	clock    clockwork.Clock

	adminPassword string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewGameService(rooms RoomStore, bank QuestionBank, notifier Notifier, adminPassword string) *GameService {
	return NewGameServiceWithClock(rooms, bank, notifier, adminPassword,
		clockwork.NewRealClock(), rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGameServiceWithClock injects the clock and random source so countdowns
// and question selection are deterministic in tests.
func NewGameServiceWithClock(rooms RoomStore, bank QuestionBank, notifier Notifier, adminPassword string, clock clockwork.Clock, rnd *rand.Rand) *GameService {
	return &GameService{
		rooms:         rooms,
		bank:          bank,
		notifier:      notifier,
		sched:         NewScheduler(clock),
		clock:         clock,
		adminPassword: adminPassword,
		locks:         make(map[string]*sync.Mutex),
		rnd:           rnd,
	}
}

// CheckAdminPassword validates a moderator credential.
func (s *GameService) CheckAdminPassword(password string) bool {
	return s.adminPassword != "" && password == s.adminPassword
}

func (s *GameService) lockRoom(code string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[code]
	if !ok {
		l = &sync.Mutex{}
		s.locks[code] = l
	}
	s.locksMu.Unlock()
	l.Lock()
	return l.Unlock
}

// CreateRoom opens a fresh waiting room owned by the calling moderator
// channel and returns it. Code collisions are resolved by regenerating.
func (s *GameService) CreateRoom(ctx context.Context, password, channelID string) (domain.Room, error) {
	if !s.CheckAdminPassword(password) {
		return domain.Room{}, domain.ErrUnauthorized
	}

	var lastErr error
	for i := 0; i < roomCodeAttempts; i++ {
		room := domain.Room{
			Code:               s.newRoomCode(),
			Status:             domain.StatusWaiting,
			ModeratorChannelID: channelID,
			CreatedAt:          s.clock.Now(),
		}
		err := s.rooms.CreateRoom(ctx, room)
		if err == nil {
			log.Info().Str("room", room.Code).Msg("room created")
			return room, nil
		}
		if err != domain.ErrRoomCodeTaken {
			return domain.Room{}, err
		}
		lastErr = err
	}
	return domain.Room{}, fmt.Errorf("generate room code: %w", lastErr)
}

// JoinAsModerator re-attaches a moderator channel to an existing room,
// superseding any previous moderator channel.
func (s *GameService) JoinAsModerator(ctx context.Context, password, roomCode, channelID string) (domain.Room, error) {
	if !s.CheckAdminPassword(password) {
		return domain.Room{}, domain.ErrUnauthorized
	}
	defer s.lockRoom(roomCode)()

	room, err := s.rooms.FindRoomByCode(ctx, roomCode)
	if err != nil {
		return domain.Room{}, err
	}
	room.ModeratorChannelID = channelID
	if err := s.rooms.UpdateRoom(ctx, room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// JoinAsPlayer adds a player to a waiting or active room. Rejoining with an
// existing username (case-insensitive) re-attaches that player's channel and
// keeps score and answer history.
func (s *GameService) JoinAsPlayer(ctx context.Context, roomCode, username, channelID string) (reconnected bool, err error) {
	defer s.lockRoom(roomCode)()

	room, err := s.rooms.FindRoomByCode(ctx, roomCode)
	if err != nil {
		return false, err
	}
	if room.Status == domain.StatusEnded {
		return false, domain.ErrGameEnded
	}

	if existing := room.PlayerByUsername(username); existing != nil {
		existing.ChannelID = channelID
		reconnected = true
	} else {
		room.Players = append(room.Players, domain.Player{
			Username:  username,
			ChannelID: channelID,
			JoinedAt:  s.clock.Now(),
		})
	}
	if err := s.rooms.UpdateRoom(ctx, room); err != nil {
		return false, err
	}

	if room.ModeratorChannelID != "" {
		s.notifier.ToChannel(room.ModeratorChannelID, EventPlayerListChanged,
			PlayerListPayload{Players: playerSummaries(room.Players)})
	}
	log.Info().Str("room", roomCode).Str("player", username).Bool("reconnected", reconnected).Msg("player joined")
	return reconnected, nil
}

// StartGame fixes the question set and emits the first question. Legal only
// from the waiting state with a non-empty bank.
func (s *GameService) StartGame(ctx context.Context, password, roomCode string) error {
	if !s.CheckAdminPassword(password) {
		return domain.ErrUnauthorized
	}
	defer s.lockRoom(roomCode)()

	room, err := s.rooms.FindRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.Status != domain.StatusWaiting {
		return domain.ErrGameAlreadyStarted
	}

	all, err := s.bank.ListQuestions(ctx)
	if err != nil {
		return err
	}
	if len(all) < 1 {
		return domain.ErrEmptyQuestionBank
	}

	selected := s.sampleQuestions(all)
	room.QuestionIDs = make([]string, len(selected))
	for i, q := range selected {
		room.QuestionIDs[i] = q.ID
	}
	room.Status = domain.StatusActive
	room.CurrentQuestionIndex = 0
	if err := s.rooms.UpdateRoom(ctx, room); err != nil {
		return err
	}

	s.sched.CacheQuestions(roomCode, selected)
	log.Info().Str("room", roomCode).Int("questions", len(selected)).Msg("game started")
	return s.emitQuestion(ctx, roomCode, 0)
}

// sampleQuestions picks up to maxQuestionsPerGame uniformly at random without
// replacement, using the whole bank when it is smaller.
func (s *GameService) sampleQuestions(all []domain.Question) []domain.Question {
	shuffled := append([]domain.Question(nil), all...)
	s.rndMu.Lock()
	s.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.rndMu.Unlock()
	if len(shuffled) > maxQuestionsPerGame {
		shuffled = shuffled[:maxQuestionsPerGame]
	}
	return shuffled
}

func (s *GameService) newRoomCode() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[s.rnd.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}

// SubmitAnswer records a player's answer for the room's current question and
// awards points. Stale indices, unknown channels, duplicate submissions, and
// inactive rooms are dropped silently: they are race artifacts of client
// timer drift, not caller errors.
func (s *GameService) SubmitAnswer(ctx context.Context, roomCode, channelID string, questionIndex int, choice string, remainingSeconds float64) error {
	defer s.lockRoom(roomCode)()

	room, err := s.rooms.FindRoomByCode(ctx, roomCode)
	if err != nil {
		return nil
	}
	if room.Status != domain.StatusActive || questionIndex != room.CurrentQuestionIndex {
		return nil
	}
	player := room.PlayerByChannel(channelID)
	if player == nil || player.HasAnswered(questionIndex) {
		return nil
	}

	questions, err := s.questionsFor(ctx, &room)
	if err != nil || questionIndex >= len(questions) {
		return err
	}
	question := questions[questionIndex]

	correct := answerMatches(choice, question.CorrectAnswer)
	points := 0
	if correct {
		points = answerPoints(remainingSeconds)
	}
	submitted := choice
	player.Answers = append(player.Answers, domain.Answer{
		QuestionIndex: questionIndex,
		Choice:        &submitted,
		Correct:       correct,
		Points:        points,
	})
	player.Score += points
	// One whole-document write: answer record, score, nothing partial.
	if err := s.rooms.UpdateRoom(ctx, room); err != nil {
		log.Error().Err(err).Str("room", roomCode).Msg("persist answer")
		return err
	}

	s.notifier.ToChannel(channelID, EventAnswerOutcome, AnswerOutcomePayload{
		Correct:       correct,
		Points:        points,
		CorrectAnswer: question.CorrectAnswer,
	})
	s.pushScoreboard(&room)

	log.Debug().Str("room", roomCode).Int("index", questionIndex).
		Int("answered", room.AnsweredCount(questionIndex)).Int("players", len(room.Players)).
		Msg("answer recorded")

	if room.AnsweredCount(questionIndex) >= len(room.Players) {
		s.closeQuestion(ctx, &room, questionIndex, question)
	}
	return nil
}

// questionTimedOut is the countdown expiry handler: it back-fills a timed-out
// answer for every player who has none and closes the question. Armed by
// emitQuestion; already superseded timers never reach here.
func (s *GameService) questionTimedOut(roomCode string, index int) {
	ctx := context.Background()
	defer s.lockRoom(roomCode)()

	room, err := s.rooms.FindRoomByCode(ctx, roomCode)
	if err != nil {
		return
	}
	if room.Status != domain.StatusActive || room.CurrentQuestionIndex != index {
		return
	}
	// If every player already answered, the early-advance path closed this
	// question while this handler waited for the room lock.
	if len(room.Players) > 0 && room.AnsweredCount(index) >= len(room.Players) {
		return
	}

	for i := range room.Players {
		if !room.Players[i].HasAnswered(index) {
			room.Players[i].Answers = append(room.Players[i].Answers, domain.Answer{
				QuestionIndex: index,
				Choice:        nil,
				Correct:       false,
				Points:        0,
			})
		}
	}
	if err := s.rooms.UpdateRoom(ctx, room); err != nil {
		log.Error().Err(err).Str("room", roomCode).Msg("persist timeout backfill")
		return
	}

	questions, err := s.questionsFor(ctx, &room)
	if err != nil || index >= len(questions) {
		return
	}
	log.Info().Str("room", roomCode).Int("index", index).Msg("countdown expired")
	s.closeQuestion(ctx, &room, index, questions[index])
}

// closeQuestion runs the reveal → scoreboard → delayed-advance sequence.
// Arming the advance delay replaces the countdown timer, so there is never
// more than one live timer per room, and the sequence runs at most once per
// (room, index): both trigger paths re-check room state before calling here.
func (s *GameService) closeQuestion(ctx context.Context, room *domain.Room, index int, question domain.Question) {
	s.sched.Arm(room.Code, revealDelay, func() {
		s.advance(room.Code, index+1)
	})
	s.notifier.ToRoom(room.Code, EventQuestionRevealed, RevealPayload{
		CorrectAnswer: question.CorrectAnswer,
		NextInSeconds: int(revealDelay / time.Second),
	})
	s.pushScoreboard(room)
}

// advance moves the room to the next question once the reveal delay elapses.
func (s *GameService) advance(roomCode string, nextIndex int) {
	ctx := context.Background()
	defer s.lockRoom(roomCode)()

	room, err := s.rooms.FindRoomByCode(ctx, roomCode)
	if err != nil {
		return
	}
	if room.Status != domain.StatusActive || room.CurrentQuestionIndex >= nextIndex {
		return
	}
	if err := s.emitQuestion(ctx, roomCode, nextIndex); err != nil {
		log.Error().Err(err).Str("room", roomCode).Int("index", nextIndex).Msg("advance question")
	}
}

// emitQuestion broadcasts question index to the room and arms its countdown,
// or ends the game when the sequence is exhausted. Caller holds the room lock.
func (s *GameService) emitQuestion(ctx context.Context, roomCode string, index int) error {
	room, err := s.rooms.FindRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	questions, err := s.questionsFor(ctx, &room)
	if err != nil {
		return err
	}
	if index >= len(questions) {
		return s.endGame(ctx, &room)
	}

	room.CurrentQuestionIndex = index
	if err := s.rooms.UpdateRoom(ctx, room); err != nil {
		return err
	}

	question := questions[index]
	s.sched.Arm(roomCode, questionDuration, func() {
		s.questionTimedOut(roomCode, index)
	})
	s.notifier.ToRoom(roomCode, EventQuestionBroadcast, QuestionPayload{
		Index:    index,
		Total:    len(questions),
		Type:     question.Type,
		Content:  question.Content,
		ImageURL: question.ImageURL,
		Duration: int(questionDuration / time.Second),
	})
	log.Info().Str("room", roomCode).Int("index", index).Int("total", len(questions)).Msg("question sent")
	return nil
}

// endGame marks the room ended, notifies everyone of the final ranking, and
// releases the room's scratch state. The persisted room and answer history
// stay behind for inspection.
func (s *GameService) endGame(ctx context.Context, room *domain.Room) error {
	room.Status = domain.StatusEnded
	if err := s.rooms.UpdateRoom(ctx, *room); err != nil {
		return err
	}

	ranked := rankPlayers(room.Players)
	for _, rp := range ranked {
		player := room.PlayerByUsername(rp.Username)
		if player == nil || player.ChannelID == "" {
			continue
		}
		s.notifier.ToChannel(player.ChannelID, EventGameEnded, GameEndedPayload{
			Score: rp.Score,
			Rank:  rp.Rank,
			Total: len(ranked),
		})
	}
	if room.ModeratorChannelID != "" {
		s.notifier.ToChannel(room.ModeratorChannelID, EventFinalLeaderboard, LeaderboardPayload{Players: ranked})
		s.notifier.ToChannel(room.ModeratorChannelID, EventScoreboardUpdate, ScoreboardPayload{
			Players: rankedSummaries(ranked),
		})
	}

	s.sched.Release(room.Code)
	log.Info().Str("room", room.Code).Int("players", len(room.Players)).Msg("game ended")
	return nil
}

// rankPlayers orders by descending score; exact ties keep join order, so the
// earlier joiner takes the higher rank.
func rankPlayers(players []domain.Player) []RankedPlayer {
	sorted := append([]domain.Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	ranked := make([]RankedPlayer, len(sorted))
	for i, p := range sorted {
		ranked[i] = RankedPlayer{Username: p.Username, Score: p.Score, Rank: i + 1}
	}
	return ranked
}

func rankedSummaries(ranked []RankedPlayer) []PlayerSummary {
	out := make([]PlayerSummary, len(ranked))
	for i, rp := range ranked {
		out[i] = PlayerSummary{Username: rp.Username, Score: rp.Score}
	}
	return out
}

func (s *GameService) pushScoreboard(room *domain.Room) {
	if room.ModeratorChannelID == "" {
		return
	}
	s.notifier.ToChannel(room.ModeratorChannelID, EventScoreboardUpdate, ScoreboardPayload{
		Players: playerSummaries(room.Players),
	})
}

// questionsFor resolves the room's question sequence, preferring the
// scheduler cache and falling back to the bank (preserving the order fixed
// in QuestionIDs) after a cache loss.
func (s *GameService) questionsFor(ctx context.Context, room *domain.Room) ([]domain.Question, error) {
	if qs, ok := s.sched.Questions(room.Code); ok {
		return qs, nil
	}
	loaded, err := s.bank.FindQuestionsByIDs(ctx, room.QuestionIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Question, len(loaded))
	for _, q := range loaded {
		byID[q.ID] = q
	}
	ordered := make([]domain.Question, 0, len(room.QuestionIDs))
	for _, id := range room.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("resolve question %s: %w", id, domain.ErrQuestionNotFound)
		}
		ordered = append(ordered, q)
	}
	s.sched.CacheQuestions(room.Code, ordered)
	return ordered, nil
}

// DeleteRoom removes the room document and any live countdown. Legal in any
// state; rooms are never garbage-collected implicitly.
func (s *GameService) DeleteRoom(ctx context.Context, roomCode string) error {
	unlock := s.lockRoom(roomCode)
	s.sched.Release(roomCode)
	err := s.rooms.DeleteRoom(ctx, roomCode)
	unlock()

	s.locksMu.Lock()
	delete(s.locks, roomCode)
	s.locksMu.Unlock()
	return err
}

// ListRooms returns all persisted rooms for the admin surface.
func (s *GameService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.ListRooms(ctx)
}
