package app

import (
	"fmt"
	"math"
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

// Session is the in-memory state of one room. Every mutation runs under
// mu, so operations on the same room are serialized while unrelated
// rooms never contend on a shared lock.
type Session struct {
	id        string
	code      string
	createdAt time.Time
	now       func() time.Time

	mu           sync.RWMutex
	hostID       string
	gameType     domain.GameType
	subject      string
	difficulty   string
	settings     domain.Settings
	status       domain.SessionStatus
	participants []*participant // insertion order, the stable ranking tiebreak
	questions    []domain.Question
	cursor       int
	startedAt    time.Time
	endedAt      time.Time
	subscribers  map[chan domain.RoomSnapshot]struct{}
}

type participant struct {
	userID         string
	displayName    string
	avatar         string
	score          int
	correctAnswers int
	ready          bool
	connected      bool

	// answer is nil until the participant submits for the current round.
	answer          *string
	responseSeconds float64
}

// NewSession creates a waiting room with the host as its sole, ready participant.
func NewSession(id, code, hostID, hostName, avatar string, gameType domain.GameType, subject, difficulty string, settings domain.Settings) *Session {
	return NewSessionWithClock(id, code, hostID, hostName, avatar, gameType, subject, difficulty, settings, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id, code, hostID, hostName, avatar string, gameType domain.GameType, subject, difficulty string, settings domain.Settings, now func() time.Time) *Session {
	return &Session{
		id:         id,
		code:       code,
		createdAt:  now(),
		now:        now,
		hostID:     hostID,
		gameType:   gameType,
		subject:    subject,
		difficulty: difficulty,
		settings:   settings,
		status:     domain.StatusWaiting,
		participants: []*participant{{
			userID:      hostID,
			displayName: hostName,
			avatar:      avatar,
			ready:       true,
			connected:   true,
		}},
		subscribers: make(map[chan domain.RoomSnapshot]struct{}),
	}
}

// ID returns the immutable session identifier.
func (s *Session) ID() string { return s.id }

// Code returns the room join code.
func (s *Session) Code() string { return s.code }

// ParticipantIDs lists current participants, used by the store to keep
// its user index consistent on deletion.
func (s *Session) ParticipantIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.participants))
	for _, p := range s.participants {
		ids = append(ids, p.userID)
	}
	return ids
}

// AgeBasis is the timestamp the reaper measures retention against:
// start time once started, creation time otherwise.
func (s *Session) AgeBasis() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.startedAt.IsZero() {
		return s.startedAt
	}
	return s.createdAt
}

// TotalRounds returns the question count once started, zero before.
func (s *Session) TotalRounds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}

func (s *Session) findLocked(userID string) *participant {
	for _, p := range s.participants {
		if p.userID == userID {
			return p
		}
	}
	return nil
}

func (s *Session) join(userID, displayName, avatar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusWaiting {
		return domain.ErrGameAlreadyStarted
	}
	if len(s.participants) >= s.gameType.MaxParticipants() {
		return domain.ErrRoomFull
	}
	if s.findLocked(userID) != nil {
		return domain.ErrAlreadyJoined
	}

	s.participants = append(s.participants, &participant{
		userID:      userID,
		displayName: displayName,
		avatar:      avatar,
		connected:   true,
	})
	s.broadcastLocked()
	return nil
}

// leave removes the participant and promotes the earliest-joined
// remaining participant when the host leaves. It reports whether the
// room is now empty so the caller can drop it from the store.
func (s *Session) leave(userID string) (empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.participants {
		if p.userID == userID {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			break
		}
	}
	if len(s.participants) == 0 {
		return true
	}
	if s.hostID == userID {
		s.hostID = s.participants[0].userID
	}
	s.broadcastLocked()
	return false
}

func (s *Session) setReady(userID string, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findLocked(userID)
	if p == nil {
		return
	}
	p.ready = ready
	s.broadcastLocked()
}

func (s *Session) setConnected(userID string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findLocked(userID)
	if p == nil {
		return
	}
	p.connected = connected
	s.broadcastLocked()
}

// updateSettings applies partial overrides. Non-host callers and
// started rooms are silently ignored.
func (s *Session) updateSettings(userID string, upd domain.SettingsUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID != s.hostID || s.status != domain.StatusWaiting {
		return
	}
	if upd.GameType != nil && upd.GameType.Valid() {
		s.gameType = *upd.GameType
	}
	if upd.TimeLimitSeconds != nil && *upd.TimeLimitSeconds > 0 {
		s.settings.TimeLimitSeconds = *upd.TimeLimitSeconds
	}
	if upd.RoundCount != nil && *upd.RoundCount > 0 {
		s.settings.RoundCount = *upd.RoundCount
	}
	if upd.AllowHints != nil {
		s.settings.AllowHints = *upd.AllowHints
	}
	if upd.FriendlyMode != nil {
		s.settings.FriendlyMode = *upd.FriendlyMode
	}
	s.broadcastLocked()
}

func (s *Session) checkStartLocked(hostID string) error {
	if hostID != s.hostID {
		return domain.ErrNotHost
	}
	if s.status != domain.StatusWaiting {
		return domain.ErrGameAlreadyStarted
	}
	if len(s.participants) < 2 {
		return domain.ErrInsufficientParticipants
	}
	for _, p := range s.participants {
		if !p.ready {
			return domain.ErrNotAllReady
		}
	}
	return nil
}

// startRequirements validates start preconditions and returns what the
// question provider needs. The provider call happens outside the lock,
// so begin revalidates.
func (s *Session) startRequirements(hostID string) (subject, difficulty string, count int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkStartLocked(hostID); err != nil {
		return "", "", 0, err
	}
	return s.subject, s.difficulty, s.settings.RoundCount, nil
}

func (s *Session) begin(hostID string, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkStartLocked(hostID); err != nil {
		return err
	}
	for _, p := range s.participants {
		p.score = 0
		p.correctAnswers = 0
		p.answer = nil
		p.responseSeconds = 0
	}
	s.questions = questions
	s.cursor = 0
	s.status = domain.StatusInProgress
	s.startedAt = s.now()
	s.broadcastLocked()
	return nil
}

func (s *Session) submitAnswer(userID, answer string, responseSeconds float64) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress {
		return domain.AnswerResult{}, domain.ErrSessionNotInProgress
	}
	if s.cursor < 0 || s.cursor >= len(s.questions) {
		return domain.AnswerResult{}, domain.ErrUnknownQuestion
	}
	p := s.findLocked(userID)
	if p == nil {
		return domain.AnswerResult{}, domain.ErrUnknownSession
	}
	if p.answer != nil {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}

	question := s.questions[s.cursor]
	correct := answer == question.CorrectAnswer

	p.answer = &answer
	p.responseSeconds = responseSeconds

	result := domain.AnswerResult{
		Correct:           correct,
		TotalParticipants: len(s.participants),
	}
	if correct {
		result.Awarded = question.Points + speedBonus(s.settings.TimeLimitSeconds, responseSeconds)
		p.score += result.Awarded
		p.correctAnswers++
	} else {
		result.Explanation = fmt.Sprintf("The correct answer is %s.", question.CorrectAnswer)
	}
	result.TotalScore = p.score

	for _, other := range s.participants {
		if other.answer != nil {
			result.Answered++
		}
	}
	result.Ranking = rankParticipants(s.participants)

	s.broadcastLocked()
	return result, nil
}

// advance moves the cursor forward by one. Reaching the end finalizes
// the session and returns the final ranking; otherwise per-round
// participant state is cleared for the next question.
func (s *Session) advance(hostID string) (hasMore bool, final []domain.RankEntry, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hostID != s.hostID {
		return false, nil, domain.ErrNotHost
	}
	if s.status != domain.StatusInProgress {
		return false, nil, domain.ErrSessionNotInProgress
	}

	s.cursor++
	if s.cursor >= len(s.questions) {
		s.status = domain.StatusCompleted
		s.endedAt = s.now()
		final = rankParticipants(s.participants)
		s.broadcastLocked()
		return false, final, nil
	}

	for _, p := range s.participants {
		p.answer = nil
		p.responseSeconds = 0
	}
	s.broadcastLocked()
	return true, nil, nil
}

// abort closes an unfinished session without dispatching rewards.
// Completed sessions are left untouched.
func (s *Session) abort(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hostID != s.hostID {
		return domain.ErrNotHost
	}
	if s.status == domain.StatusCompleted {
		return nil
	}
	s.status = domain.StatusCompleted
	s.endedAt = s.now()
	s.broadcastLocked()
	return nil
}

// speedBonus is a 0-10 point bonus, linear in unused time: the full
// bonus at zero elapsed time, none at or past the limit.
func speedBonus(limitSeconds int, responseSeconds float64) int {
	if limitSeconds <= 0 {
		return 0
	}
	remaining := (float64(limitSeconds) - responseSeconds) / float64(limitSeconds)
	if remaining < 0 {
		remaining = 0
	}
	return int(math.Round(remaining * 10))
}

func (s *Session) subscribe() (<-chan domain.RoomSnapshot, func()) {
	ch := make(chan domain.RoomSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.RoomSnapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale update so a slow client never blocks the room.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshot() domain.RoomSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.RoomSnapshot {
	entries := make([]domain.ParticipantSnapshot, 0, len(s.participants))
	for _, p := range s.participants {
		entries = append(entries, domain.ParticipantSnapshot{
			UserID:         p.userID,
			DisplayName:    p.displayName,
			Avatar:         p.avatar,
			Score:          p.score,
			CorrectAnswers: p.correctAnswers,
			Ready:          p.ready,
			Answered:       p.answer != nil,
			Connected:      p.connected,
		})
	}

	snap := domain.RoomSnapshot{
		SessionID:    s.id,
		RoomCode:     s.code,
		HostID:       s.hostID,
		GameType:     s.gameType,
		Status:       s.status,
		Subject:      s.subject,
		Difficulty:   s.difficulty,
		Settings:     s.settings,
		Round:        s.cursor,
		TotalRounds:  len(s.questions),
		Participants: entries,
		UpdatedAt:    s.now(),
	}
	if s.status == domain.StatusCompleted {
		snap.Ranking = rankParticipants(s.participants)
	}
	return snap
}
