package domain

import "time"

// GameType selects the room flavour; fixed at creation, mutable only pre-start.
type GameType string

const (
	GameTypeQuizBattle     GameType = "quiz-battle"
	GameTypeCooperative    GameType = "cooperative"
	GameTypeSpeedChallenge GameType = "speed-challenge"
	GameTypeTeamRelay      GameType = "team-relay"
)

// Valid reports whether g is one of the known game types.
func (g GameType) Valid() bool {
	switch g {
	case GameTypeQuizBattle, GameTypeCooperative, GameTypeSpeedChallenge, GameTypeTeamRelay:
		return true
	}
	return false
}

// MaxParticipants returns the room capacity for the game type.
func (g GameType) MaxParticipants() int {
	if g == GameTypeTeamRelay {
		return 6
	}
	return 4
}

// SessionStatus is the room lifecycle state; completed is terminal.
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "waiting"
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
)

// Settings are the host-controlled room parameters.
type Settings struct {
	TimeLimitSeconds int  `json:"timeLimitSeconds"`
	RoundCount       int  `json:"roundCount"`
	AllowHints       bool `json:"allowHints"`
	FriendlyMode     bool `json:"friendlyMode"`
}

// DefaultSettings returns the room defaults applied at creation.
func DefaultSettings() Settings {
	return Settings{TimeLimitSeconds: 30, RoundCount: 5}
}

// SettingsUpdate carries partial overrides; nil fields are left untouched.
type SettingsUpdate struct {
	GameType         *GameType `json:"gameType,omitempty"`
	TimeLimitSeconds *int      `json:"timeLimitSeconds,omitempty"`
	RoundCount       *int      `json:"roundCount,omitempty"`
	AllowHints       *bool     `json:"allowHints,omitempty"`
	FriendlyMode     *bool     `json:"friendlyMode,omitempty"`
}

// Question is one round's content. The engine treats it as opaque apart
// from CorrectAnswer (exact value equality) and Points.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        int      `json:"points"`
}

// QuestionBank is an ordered pool of questions for one subject/difficulty.
type QuestionBank struct {
	Subject    string     `json:"subject"`
	Difficulty string     `json:"difficulty"`
	Questions  []Question `json:"questions"`
}

// Take returns a copy of the first count questions of the bank.
func (b QuestionBank) Take(count int) ([]Question, error) {
	if count <= 0 || count > len(b.Questions) {
		return nil, ErrBankExhausted
	}
	questions := make([]Question, count)
	copy(questions, b.Questions[:count])
	return questions, nil
}

// ParticipantSnapshot is the transport-safe view of one participant.
// It reports whether they answered the current round, never what.
type ParticipantSnapshot struct {
	UserID         string `json:"userId"`
	DisplayName    string `json:"displayName"`
	Avatar         string `json:"avatar,omitempty"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
	Ready          bool   `json:"ready"`
	Answered       bool   `json:"answered"`
	Connected      bool   `json:"connected"`
}

// RankEntry is one row of a live or final ranking.
type RankEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"userId"`
	DisplayName    string `json:"displayName"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
}

// RoomSnapshot is the serializable projection of a session pushed to clients.
type RoomSnapshot struct {
	SessionID    string                `json:"sessionId"`
	RoomCode     string                `json:"roomCode"`
	HostID       string                `json:"hostId"`
	GameType     GameType              `json:"gameType"`
	Status       SessionStatus         `json:"status"`
	Subject      string                `json:"subject"`
	Difficulty   string                `json:"difficulty"`
	Settings     Settings              `json:"settings"`
	Round        int                   `json:"round"`
	TotalRounds  int                   `json:"totalRounds"`
	Participants []ParticipantSnapshot `json:"participants"`
	Ranking      []RankEntry           `json:"ranking,omitempty"` // set once completed
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// AnswerResult summarizes the outcome of a submission for a single user.
type AnswerResult struct {
	Correct           bool        `json:"correct"`
	Explanation       string      `json:"explanation,omitempty"`
	Awarded           int         `json:"awarded"`
	TotalScore        int         `json:"totalScore"`
	Answered          int         `json:"answered"`
	TotalParticipants int         `json:"totalParticipants"`
	Ranking           []RankEntry `json:"ranking"`
}
