package app_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
)

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func testBank() domain.QuestionBank {
	return domain.QuestionBank{
		Subject:    "math",
		Difficulty: "easy",
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: 10},
			{ID: "q2", Text: "What is 2 x 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: 10},
			{ID: "q3", Text: "What is 8 / 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: 10},
			{ID: "q4", Text: "What is 9 - 5?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: 10},
			{ID: "q5", Text: "What is 1 + 3?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: 10},
		},
	}
}

func newTestService(t *testing.T) (*app.GameService, *memory.Ledger) {
	t.Helper()
	loader := memory.NewStaticBankLoader([]domain.QuestionBank{testBank()})
	questions := memory.NewQuestionRepository(loader, 5*time.Minute)
	ledger := memory.NewLedger()
	return app.NewGameService(memory.NewSessionStore(), questions, ledger), ledger
}

func createRoom(t *testing.T, svc *app.GameService, hostID string, overrides *domain.SettingsUpdate) domain.RoomSnapshot {
	t.Helper()
	room, err := svc.CreateRoom(context.Background(), hostID, "Host "+hostID, "", domain.GameTypeQuizBattle, "math", "easy", overrides)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func TestCreateRoomGeneratesJoinableCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	room := createRoom(t, svc, "host", nil)
	if !roomCodePattern.MatchString(room.RoomCode) {
		t.Fatalf("room code %q does not match the 6-char format", room.RoomCode)
	}
	if room.Status != domain.StatusWaiting || room.HostID != "host" {
		t.Fatalf("unexpected initial room: %+v", room)
	}
	if len(room.Participants) != 1 || !room.Participants[0].Ready {
		t.Fatalf("host must start as the only, ready participant: %+v", room.Participants)
	}

	// Codes are matched case-insensitively with surrounding space ignored.
	joined, err := svc.JoinRoom(ctx, "  "+strings.ToLower(room.RoomCode)+" ", "u2", "Player 2", "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(joined.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %+v", joined.Participants)
	}

	if _, err := svc.JoinRoom(ctx, room.RoomCode, "u2", "Player 2", ""); err != domain.ErrAlreadyJoined {
		t.Fatalf("rejoining user: expected ErrAlreadyJoined, got %v", err)
	}
	if _, err := svc.CreateRoom(ctx, "u2", "Player 2", "", domain.GameTypeQuizBattle, "math", "easy", nil); err != domain.ErrAlreadyJoined {
		t.Fatalf("create while joined: expected ErrAlreadyJoined, got %v", err)
	}
}

func TestJoinUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.JoinRoom(context.Background(), "ZZZZZZ", "u1", "Player", ""); err != domain.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestJoinFullRoom(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	room := createRoom(t, svc, "host", nil)
	for _, id := range []string{"u2", "u3", "u4"} {
		if _, err := svc.JoinRoom(ctx, room.RoomCode, id, "Player "+id, ""); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	if _, err := svc.JoinRoom(ctx, room.RoomCode, "u5", "Player u5", ""); err != domain.ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	// The rejected user holds no binding and may create their own room.
	if _, err := svc.CreateRoom(ctx, "u5", "Player u5", "", domain.GameTypeQuizBattle, "math", "easy", nil); err != nil {
		t.Fatalf("rejected joiner should be free to create: %v", err)
	}
}

func TestStartPreconditionsAtServiceLevel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	room := createRoom(t, svc, "host", nil)
	if _, err := svc.Start(ctx, "host"); err != domain.ErrInsufficientParticipants {
		t.Fatalf("solo start: expected ErrInsufficientParticipants, got %v", err)
	}

	if _, err := svc.JoinRoom(ctx, room.RoomCode, "u2", "Player 2", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := svc.Start(ctx, "host"); err != domain.ErrNotAllReady {
		t.Fatalf("unready start: expected ErrNotAllReady, got %v", err)
	}

	if err := svc.SetReady("u2", true); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if _, err := svc.Start(ctx, "u2"); err != domain.ErrNotHost {
		t.Fatalf("non-host start: expected ErrNotHost, got %v", err)
	}

	started, err := svc.Start(ctx, "host")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != domain.StatusInProgress || started.TotalRounds != domain.DefaultSettings().RoundCount {
		t.Fatalf("unexpected started room: %+v", started)
	}

	if _, err := svc.JoinRoom(ctx, room.RoomCode, "u3", "Latecomer", ""); err != domain.ErrGameAlreadyStarted {
		t.Fatalf("late join: expected ErrGameAlreadyStarted, got %v", err)
	}
	if _, err := svc.Start(ctx, "host"); err != domain.ErrGameAlreadyStarted {
		t.Fatalf("double start: expected ErrGameAlreadyStarted, got %v", err)
	}
}

func TestStartFailsWhenBankTooSmall(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rounds := 9
	room := createRoom(t, svc, "host", &domain.SettingsUpdate{RoundCount: &rounds})
	if _, err := svc.JoinRoom(ctx, room.RoomCode, "u2", "Player 2", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.SetReady("u2", true); err != nil {
		t.Fatalf("ready: %v", err)
	}

	if _, err := svc.Start(ctx, "host"); !errors.Is(err, domain.ErrBankExhausted) {
		t.Fatalf("expected wrapped ErrBankExhausted, got %v", err)
	}
	// A failed start leaves the room in the lobby.
	snap, err := svc.Snapshot("host")
	if err != nil || snap.Status != domain.StatusWaiting {
		t.Fatalf("room should still be waiting: %+v err=%v", snap, err)
	}
}

func TestFullGameAwardsRewards(t *testing.T) {
	svc, ledger := newTestService(t)
	ctx := context.Background()

	rounds := 3
	room := createRoom(t, svc, "host", &domain.SettingsUpdate{RoundCount: &rounds})
	if _, err := svc.JoinRoom(ctx, room.RoomCode, "u2", "Player 2", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.SetReady("u2", true); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if _, err := svc.Start(ctx, "host"); err != nil {
		t.Fatalf("start: %v", err)
	}

	var final []domain.RankEntry
	for round := 0; round < rounds; round++ {
		for _, id := range []string{"host", "u2"} {
			result, err := svc.SubmitAnswer(id, "4", 0)
			if err != nil {
				t.Fatalf("round %d submit %s: %v", round, id, err)
			}
			if !result.Correct || result.Awarded != 20 {
				t.Fatalf("round %d submit %s: want 20 awarded, got %+v", round, id, result)
			}
		}
		hasMore, ranking, err := svc.Advance(ctx, "host")
		if err != nil {
			t.Fatalf("round %d advance: %v", round, err)
		}
		if wantMore := round < rounds-1; hasMore != wantMore {
			t.Fatalf("round %d advance: hasMore=%v, want %v", round, hasMore, wantMore)
		}
		final = ranking
	}

	if len(final) != 2 {
		t.Fatalf("expected a 2-row final ranking, got %+v", final)
	}
	// Both scored 60; the earlier joiner wins the tie.
	if final[0].UserID != "host" || final[0].Rank != 1 || final[0].Score != 60 || final[0].CorrectAnswers != 3 {
		t.Fatalf("unexpected winner row: %+v", final[0])
	}
	if final[1].UserID != "u2" || final[1].Rank != 2 || final[1].Score != 60 {
		t.Fatalf("unexpected runner-up row: %+v", final[1])
	}

	// Points mirror the final score; xp is correct*5 + placement + 10.
	if got := ledger.Points("host"); got != 60 {
		t.Fatalf("host points = %d, want 60", got)
	}
	if got := ledger.Experience("host"); got != 45 {
		t.Fatalf("host experience = %d, want 45", got)
	}
	if got := ledger.Experience("u2"); got != 40 {
		t.Fatalf("u2 experience = %d, want 40", got)
	}
	if !ledger.HasBadge("host", app.BadgeChampion) || !ledger.HasBadge("host", app.BadgePerfectGame) {
		t.Fatalf("host should hold both badges")
	}
	if ledger.HasBadge("u2", app.BadgeChampion) {
		t.Fatalf("runner-up must not hold the champion badge")
	}
	if !ledger.HasBadge("u2", app.BadgePerfectGame) {
		t.Fatalf("u2 answered every round and should hold the perfect-game badge")
	}
}

func TestAbortSkipsRewards(t *testing.T) {
	svc, ledger := newTestService(t)
	ctx := context.Background()

	room := createRoom(t, svc, "host", nil)
	if _, err := svc.JoinRoom(ctx, room.RoomCode, "u2", "Player 2", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.SetReady("u2", true); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if _, err := svc.Start(ctx, "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.SubmitAnswer("host", "4", 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.Abort("u2"); err != domain.ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := svc.Abort("host"); err != nil {
		t.Fatalf("abort: %v", err)
	}

	snap, err := svc.Snapshot("host")
	if err != nil || snap.Status != domain.StatusCompleted {
		t.Fatalf("aborted room should be completed: %+v err=%v", snap, err)
	}
	if ledger.Points("host") != 0 || ledger.Experience("host") != 0 {
		t.Fatalf("abort must not deposit rewards")
	}
}

func TestLeaveEmptiesAndUnbinds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	room := createRoom(t, svc, "host", nil)
	if err := svc.Leave("host"); err != nil {
		t.Fatalf("leave: %v", err)
	}

	if _, err := svc.Snapshot("host"); err != domain.ErrUnknownSession {
		t.Fatalf("expected ErrUnknownSession after leaving, got %v", err)
	}
	if _, err := svc.JoinRoom(ctx, room.RoomCode, "u2", "Player 2", ""); err != domain.ErrRoomNotFound {
		t.Fatalf("emptied room code should be gone, got %v", err)
	}
	// The former host is free to open a new room.
	if _, err := svc.CreateRoom(ctx, "host", "Host", "", domain.GameTypeQuizBattle, "math", "easy", nil); err != nil {
		t.Fatalf("re-create after leave: %v", err)
	}
}

func TestHostLeaveHandsOffRoom(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	room := createRoom(t, svc, "host", nil)
	for _, id := range []string{"u2", "u3"} {
		if _, err := svc.JoinRoom(ctx, room.RoomCode, id, "Player "+id, ""); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	if err := svc.Leave("host"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	snap, err := svc.Snapshot("u2")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.HostID != "u2" || len(snap.Participants) != 2 {
		t.Fatalf("host should pass to the earliest remaining joiner: %+v", snap)
	}
}

func TestOperationsRequireMembership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SetReady("ghost", true); err != domain.ErrUnknownSession {
		t.Fatalf("SetReady: expected ErrUnknownSession, got %v", err)
	}
	if err := svc.UpdateSettings("ghost", domain.SettingsUpdate{}); err != domain.ErrUnknownSession {
		t.Fatalf("UpdateSettings: expected ErrUnknownSession, got %v", err)
	}
	if _, err := svc.Start(ctx, "ghost"); err != domain.ErrUnknownSession {
		t.Fatalf("Start: expected ErrUnknownSession, got %v", err)
	}
	if _, err := svc.SubmitAnswer("ghost", "4", 0); err != domain.ErrUnknownSession {
		t.Fatalf("SubmitAnswer: expected ErrUnknownSession, got %v", err)
	}
	if _, _, err := svc.Advance(ctx, "ghost"); err != domain.ErrUnknownSession {
		t.Fatalf("Advance: expected ErrUnknownSession, got %v", err)
	}
	if err := svc.Leave("ghost"); err != domain.ErrUnknownSession {
		t.Fatalf("Leave: expected ErrUnknownSession, got %v", err)
	}
	if _, _, err := svc.Subscribe("ghost"); err != domain.ErrUnknownSession {
		t.Fatalf("Subscribe: expected ErrUnknownSession, got %v", err)
	}
}

func TestInvalidGameTypeFallsBack(t *testing.T) {
	svc, _ := newTestService(t)
	room, err := svc.CreateRoom(context.Background(), "host", "Host", "", domain.GameType("bogus"), "math", "easy", nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.GameType != domain.GameTypeQuizBattle {
		t.Fatalf("invalid game type should fall back to quiz-battle, got %s", room.GameType)
	}
}
