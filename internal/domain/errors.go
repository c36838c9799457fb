package domain

import "errors"

var (
	// ErrUnauthorized is returned when a moderator credential does not match.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRoomNotFound is returned when a room code does not resolve.
	ErrRoomNotFound = errors.New("room not found")
	// ErrGameEnded is returned when a player tries to join an ended room.
	ErrGameEnded = errors.New("game has ended")
	// ErrGameAlreadyStarted is returned when a start is attempted outside the waiting state.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrEmptyQuestionBank is returned when a game is started with no questions in the bank.
	ErrEmptyQuestionBank = errors.New("no questions in bank")
	// ErrRoomCodeTaken indicates a room code collision on create; callers regenerate and retry.
	ErrRoomCodeTaken = errors.New("room code already taken")
	// ErrQuestionNotFound indicates a question ID is not in the bank.
	ErrQuestionNotFound = errors.New("question not found")
)
