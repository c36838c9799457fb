package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"trivia-room-service/internal/domain"
)

// Scheduler owns the process-local scratch state of running games: at most
// one live timer per room code, plus the cached question sequence fixed at
// game start. Neither is authoritative for game state; the persisted room
// record is. Losing this state (process restart) freezes a room mid-question,
// which is accepted.
type Scheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	gen    uint64
	timers map[string]*armedTimer
	cache  map[string][]domain.Question
}

type armedTimer struct {
	gen   uint64
	timer clockwork.Timer
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		clock:  clock,
		timers: make(map[string]*armedTimer),
		cache:  make(map[string][]domain.Question),
	}
}

// Arm schedules fire to run after d, replacing (and cancelling) any timer
// already armed for the room. A replaced timer that has started firing but
// not yet claimed its slot becomes a no-op, so fire runs at most once per
// armed generation even when cancellation races the clock.
func (s *Scheduler) Arm(roomCode string, d time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[roomCode]; ok {
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	at := &armedTimer{gen: gen}
	at.timer = s.clock.AfterFunc(d, func() {
		if !s.claim(roomCode, gen) {
			return
		}
		fire()
	})
	s.timers[roomCode] = at
}

// claim removes the armed timer iff gen is still current for the room.
func (s *Scheduler) claim(roomCode string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.timers[roomCode]
	if !ok || at.gen != gen {
		return false
	}
	delete(s.timers, roomCode)
	return true
}

// Cancel stops any pending timer for the room.
func (s *Scheduler) Cancel(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at, ok := s.timers[roomCode]; ok {
		at.timer.Stop()
		delete(s.timers, roomCode)
	}
}

// CacheQuestions stores the question sequence selected at game start.
func (s *Scheduler) CacheQuestions(roomCode string, questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[roomCode] = questions
}

// Questions returns the cached sequence for the room.
func (s *Scheduler) Questions(roomCode string) ([]domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs, ok := s.cache[roomCode]
	return qs, ok
}

// Release drops all scratch state for a room: pending timer and cached
// questions. Called on game end and room deletion.
func (s *Scheduler) Release(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at, ok := s.timers[roomCode]; ok {
		at.timer.Stop()
		delete(s.timers, roomCode)
	}
	delete(s.cache, roomCode)
}
