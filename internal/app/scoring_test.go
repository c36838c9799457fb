package app

import "testing"

func TestAnswerPoints(t *testing.T) {
	cases := []struct {
		remaining float64
		want      int
	}{
		{15.7, 25},
		{20, 30},
		{0, 10},
		{0.9, 10},
		{-3.2, 10},
	}
	for _, tc := range cases {
		if got := answerPoints(tc.remaining); got != tc.want {
			t.Errorf("answerPoints(%v) = %d, want %d", tc.remaining, got, tc.want)
		}
	}
}

func TestAnswerMatches(t *testing.T) {
	if !answerMatches("  real ", "REAL") {
		t.Errorf("expected whitespace/case-normalized match")
	}
	if !answerMatches("ai", "AI") {
		t.Errorf("expected case-insensitive match")
	}
	if answerMatches("AI", "REAL") {
		t.Errorf("expected mismatch")
	}
	if answerMatches("", "REAL") {
		t.Errorf("expected empty choice to mismatch")
	}
}
