package memory

import (
	"context"
	"sync"
)

// Ledger is an in-memory reward ledger for development and tests.
type Ledger struct {
	mu         sync.Mutex
	points     map[string]int
	experience map[string]int
	badges     map[string]map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		points:     make(map[string]int),
		experience: make(map[string]int),
		badges:     make(map[string]map[string]struct{}),
	}
}

func (l *Ledger) AddPoints(_ context.Context, userID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.points[userID] += amount
	return nil
}

func (l *Ledger) AddExperience(_ context.Context, userID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.experience[userID] += amount
	return nil
}

func (l *Ledger) AwardBadge(_ context.Context, userID, badgeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.badges[userID] == nil {
		l.badges[userID] = make(map[string]struct{})
	}
	l.badges[userID][badgeID] = struct{}{}
	return nil
}

func (l *Ledger) Points(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.points[userID]
}

func (l *Ledger) Experience(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.experience[userID]
}

func (l *Ledger) HasBadge(userID, badgeID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.badges[userID][badgeID]
	return ok
}
