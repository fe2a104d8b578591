package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no active session owns a room code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a room has reached its game-type capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrGameAlreadyStarted is returned when joining or restarting a room past waiting.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrAlreadyJoined is returned when a user is already bound to an active session.
	ErrAlreadyJoined = errors.New("user already in a room")
	// ErrNotAllReady is returned when start is attempted with unready participants.
	ErrNotAllReady = errors.New("not all participants are ready")
	// ErrInsufficientParticipants is returned when start is attempted with fewer than two players.
	ErrInsufficientParticipants = errors.New("at least two participants required")
	// ErrNotHost is returned when a host-only action comes from a non-host.
	ErrNotHost = errors.New("only the host may do that")
	// ErrSessionNotInProgress is returned for round actions outside an in-progress game.
	ErrSessionNotInProgress = errors.New("session is not in progress")
	// ErrAlreadyAnswered is returned on a second submission in the same round.
	ErrAlreadyAnswered = errors.New("answer already submitted for this round")
	// ErrUnknownSession is returned when a user id is not bound to any session.
	ErrUnknownSession = errors.New("no session for user")
	// ErrUnknownQuestion is returned when no question is active for the round.
	ErrUnknownQuestion = errors.New("no active question")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrBankExhausted indicates a bank holds fewer questions than requested.
	ErrBankExhausted = errors.New("question bank has too few questions")
)
