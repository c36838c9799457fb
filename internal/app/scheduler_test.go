package app

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"trivia-room-service/internal/domain"
)

func TestSchedulerFiresAfterDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan struct{}, 1)
	sched.Arm("ROOM01", 20*time.Second, func() { fired <- struct{}{} })

	clock.Advance(19 * time.Second)
	select {
	case <-fired:
		t.Fatalf("timer fired before the countdown elapsed")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Second)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire at the deadline")
	}
}

func TestSchedulerArmReplacesPendingTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan string, 2)
	sched.Arm("ROOM01", 20*time.Second, func() { fired <- "first" })
	sched.Arm("ROOM01", 3*time.Second, func() { fired <- "second" })

	clock.Advance(30 * time.Second)
	select {
	case got := <-fired:
		if got != "second" {
			t.Fatalf("expected replacement timer to fire, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("replacement timer did not fire")
	}
	select {
	case got := <-fired:
		t.Fatalf("replaced timer fired anyway: %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerCancelStopsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan struct{}, 1)
	sched.Arm("ROOM01", 5*time.Second, func() { fired <- struct{}{} })
	sched.Cancel("ROOM01")

	clock.Advance(10 * time.Second)
	select {
	case <-fired:
		t.Fatalf("cancelled timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerTimersAreIndependentPerRoom(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan string, 2)
	sched.Arm("ROOM01", 5*time.Second, func() { fired <- "ROOM01" })
	sched.Arm("ROOM02", 5*time.Second, func() { fired <- "ROOM02" })
	sched.Cancel("ROOM01")

	clock.Advance(5 * time.Second)
	select {
	case got := <-fired:
		if got != "ROOM02" {
			t.Fatalf("expected ROOM02 timer, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ROOM02 timer did not fire")
	}
}

func TestSchedulerReleaseDropsScratchState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan struct{}, 1)
	sched.Arm("ROOM01", 5*time.Second, func() { fired <- struct{}{} })
	sched.CacheQuestions("ROOM01", []domain.Question{{ID: "q1"}})

	sched.Release("ROOM01")

	if _, ok := sched.Questions("ROOM01"); ok {
		t.Fatalf("expected question cache dropped")
	}
	clock.Advance(10 * time.Second)
	select {
	case <-fired:
		t.Fatalf("released timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}
