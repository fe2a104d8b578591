package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quiz-battle-service/internal/domain"
)

// SessionStore abstracts the session registry: lookup by id, by room
// code, and via the participant index. Implementations must apply each
// call atomically with respect to other store calls.
type SessionStore interface {
	// Register indexes the session by id and code; it reports false on a
	// room-code collision so the caller can regenerate.
	Register(session *Session) bool
	Get(sessionID string) (*Session, bool)
	GetByCode(code string) (*Session, bool)
	// SessionFor answers "what session am I in" in O(1).
	SessionFor(userID string) (*Session, bool)
	// Bind reserves the user in the index; it fails with ErrAlreadyJoined
	// when the user is bound to any live session.
	Bind(userID, sessionID string) error
	Unbind(userID string)
	Delete(sessionID string)
	All() []*Session
}

// QuestionProvider supplies the ordered question list for a game.
type QuestionProvider interface {
	GetQuestions(ctx context.Context, subject, difficulty string, count int) ([]domain.Question, error)
}

// RewardLedger is the external progress store rewards are deposited into.
type RewardLedger interface {
	AddPoints(ctx context.Context, userID string, amount int) error
	AddExperience(ctx context.Context, userID string, amount int) error
	AwardBadge(ctx context.Context, userID, badgeID string) error
}

// GameService contains the multiplayer session use cases.
type GameService struct {
	sessions  SessionStore
	questions QuestionProvider
	rewards   *RewardDispatcher
	now       func() time.Time
}

func NewGameService(store SessionStore, questions QuestionProvider, ledger RewardLedger) *GameService {
	return NewGameServiceWithClock(store, questions, ledger, time.Now)
}

// NewGameServiceWithClock is test-only for deterministic timestamps.
func NewGameServiceWithClock(store SessionStore, questions QuestionProvider, ledger RewardLedger, now func() time.Time) *GameService {
	return &GameService{
		sessions:  store,
		questions: questions,
		rewards:   NewRewardDispatcher(ledger),
		now:       now,
	}
}

// CreateRoom opens a waiting session with the host as its only, ready
// participant and returns the initial snapshot carrying the room code.
func (s *GameService) CreateRoom(ctx context.Context, hostID, displayName, avatar string, gameType domain.GameType, subject, difficulty string, overrides *domain.SettingsUpdate) (domain.RoomSnapshot, error) {
	if _, ok := s.sessions.SessionFor(hostID); ok {
		return domain.RoomSnapshot{}, domain.ErrAlreadyJoined
	}
	if !gameType.Valid() {
		gameType = domain.GameTypeQuizBattle
	}

	settings := domain.DefaultSettings()
	if overrides != nil {
		if overrides.TimeLimitSeconds != nil && *overrides.TimeLimitSeconds > 0 {
			settings.TimeLimitSeconds = *overrides.TimeLimitSeconds
		}
		if overrides.RoundCount != nil && *overrides.RoundCount > 0 {
			settings.RoundCount = *overrides.RoundCount
		}
		if overrides.AllowHints != nil {
			settings.AllowHints = *overrides.AllowHints
		}
		if overrides.FriendlyMode != nil {
			settings.FriendlyMode = *overrides.FriendlyMode
		}
	}

	for {
		code, err := GenerateRoomCode()
		if err != nil {
			return domain.RoomSnapshot{}, fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := s.sessions.GetByCode(code); taken {
			continue
		}
		session := NewSessionWithClock(uuid.NewString(), code, hostID, displayName, avatar, gameType, subject, difficulty, settings, s.now)
		if !s.sessions.Register(session) {
			continue
		}
		if err := s.sessions.Bind(hostID, session.ID()); err != nil {
			s.sessions.Delete(session.ID())
			return domain.RoomSnapshot{}, err
		}
		return session.snapshot(), nil
	}
}

// JoinRoom adds a participant to the waiting room owning the code.
func (s *GameService) JoinRoom(ctx context.Context, code, userID, displayName, avatar string) (domain.RoomSnapshot, error) {
	session, ok := s.sessions.GetByCode(NormalizeRoomCode(code))
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}
	// Reserve the index slot first so a failed join leaves no state behind.
	if err := s.sessions.Bind(userID, session.ID()); err != nil {
		return domain.RoomSnapshot{}, err
	}
	if err := session.join(userID, displayName, avatar); err != nil {
		s.sessions.Unbind(userID)
		return domain.RoomSnapshot{}, err
	}
	return session.snapshot(), nil
}

// SetReady toggles the pre-start ready flag.
func (s *GameService) SetReady(userID string, ready bool) error {
	session, ok := s.sessions.SessionFor(userID)
	if !ok {
		return domain.ErrUnknownSession
	}
	session.setReady(userID, ready)
	return nil
}

// SetConnected records transport-layer liveness for the participant.
func (s *GameService) SetConnected(userID string, connected bool) error {
	session, ok := s.sessions.SessionFor(userID)
	if !ok {
		return domain.ErrUnknownSession
	}
	session.setConnected(userID, connected)
	return nil
}

// UpdateSettings applies host overrides; non-host or post-start calls
// are silently ignored, per the room contract.
func (s *GameService) UpdateSettings(userID string, upd domain.SettingsUpdate) error {
	session, ok := s.sessions.SessionFor(userID)
	if !ok {
		return domain.ErrUnknownSession
	}
	session.updateSettings(userID, upd)
	return nil
}

// Start transitions the host's room to in-progress, fetching the
// question list for the configured round count.
func (s *GameService) Start(ctx context.Context, hostID string) (domain.RoomSnapshot, error) {
	session, ok := s.sessions.SessionFor(hostID)
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrUnknownSession
	}
	subject, difficulty, count, err := session.startRequirements(hostID)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}
	questions, err := s.questions.GetQuestions(ctx, subject, difficulty, count)
	if err != nil {
		return domain.RoomSnapshot{}, fmt.Errorf("load questions: %w", err)
	}
	if err := session.begin(hostID, questions); err != nil {
		return domain.RoomSnapshot{}, err
	}
	return session.snapshot(), nil
}

// SubmitAnswer records one answer per participant per round. A retry of
// a submission that already landed is rejected, never overwritten.
func (s *GameService) SubmitAnswer(userID, answer string, responseSeconds float64) (domain.AnswerResult, error) {
	session, ok := s.sessions.SessionFor(userID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrUnknownSession
	}
	return session.submitAnswer(userID, answer, responseSeconds)
}

// Advance moves the host's room to the next round, or finalizes it on
// the last round and deposits rewards. The returned ranking is non-nil
// only on finalization.
func (s *GameService) Advance(ctx context.Context, hostID string) (hasMore bool, final []domain.RankEntry, err error) {
	session, ok := s.sessions.SessionFor(hostID)
	if !ok {
		return false, nil, domain.ErrUnknownSession
	}
	hasMore, final, err = session.advance(hostID)
	if err != nil {
		return false, nil, err
	}
	if !hasMore {
		// Deposits never affect the completed session; failures are
		// logged inside the dispatcher.
		s.rewards.Dispatch(ctx, session.ID(), final, session.TotalRounds())
	}
	return hasMore, final, nil
}

// Abort closes an unfinished room without dispatching rewards.
func (s *GameService) Abort(hostID string) error {
	session, ok := s.sessions.SessionFor(hostID)
	if !ok {
		return domain.ErrUnknownSession
	}
	return session.abort(hostID)
}

// Leave removes the participant, reassigning the host to the earliest
// remaining joiner, and deletes the room when it empties.
func (s *GameService) Leave(userID string) error {
	session, ok := s.sessions.SessionFor(userID)
	if !ok {
		return domain.ErrUnknownSession
	}
	empty := session.leave(userID)
	s.sessions.Unbind(userID)
	if empty {
		s.sessions.Delete(session.ID())
	}
	return nil
}

// Snapshot returns the current room projection for the user's session.
func (s *GameService) Snapshot(userID string) (domain.RoomSnapshot, error) {
	session, ok := s.sessions.SessionFor(userID)
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrUnknownSession
	}
	return session.snapshot(), nil
}

// Subscribe returns a channel receiving room snapshots on every
// mutation. The caller must invoke the cancel function to avoid leaks.
func (s *GameService) Subscribe(userID string) (<-chan domain.RoomSnapshot, func(), error) {
	session, ok := s.sessions.SessionFor(userID)
	if !ok {
		return nil, nil, domain.ErrUnknownSession
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}
