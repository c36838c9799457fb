package app

import (
	"math"
	"strings"
)

// basePoints is the flat reward for any correct answer; the speed bonus adds
// one point per whole second left on the countdown.
const basePoints = 10

// answerPoints computes the award for a correct answer submitted with the
// given seconds remaining. Clients report fractional seconds; the bonus
// floors them, so 15.7s remaining is worth 10+15 points.
func answerPoints(remainingSeconds float64) int {
	return basePoints + int(math.Floor(math.Max(0, remainingSeconds)))
}

// answerMatches compares a submitted choice against the correct label,
// ignoring case and surrounding whitespace.
func answerMatches(choice, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(choice), strings.TrimSpace(correct))
}
