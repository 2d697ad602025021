package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/storage"
	"github.com/sirupsen/logrus"
)

// ErrNonPositiveAmount is returned when a credit is zero or negative
var ErrNonPositiveAmount = errors.New("credit amount must be positive")

// Standings updates the balance ledger and the leaderboard together and hands
// back the post-update values, so callers never re-read state to build replies.
type Standings struct {
	mu       sync.Mutex
	balances *BalanceStore
	rankings *RankingStore
}

// NewStandings wires existing stores together
func NewStandings(balances *BalanceStore, rankings *RankingStore) *Standings {
	return &Standings{balances: balances, rankings: rankings}
}

// Open loads all three durable stores from one storage backend
func Open(s storage.StorageInterface) (*ProcessedStore, *Standings, error) {
	processed, err := NewProcessedStore(s)
	if err != nil {
		return nil, nil, err
	}
	balances, err := NewBalanceStore(s)
	if err != nil {
		return nil, nil, err
	}
	rankings, err := NewRankingStore(s)
	if err != nil {
		return nil, nil, err
	}

	objects, err := s.List("")
	if err != nil {
		logrus.Warnf("Could not list state objects: %v", err)
	} else {
		logrus.Debugf("State objects in storage: %v", objects)
	}

	logrus.Infof("Loaded state: %d processed mentions, %d balances, %d ranked users",
		processed.Len(), len(balances.All()), len(rankings.Entries()))

	return processed, NewStandings(balances, rankings), nil
}

// Credit adds amount to the user's balance, updates the leaderboard and
// returns the new balance and rank. A user missing from the leaderboard is
// reported as rank 1.
func (s *Standings) Credit(fid, username string, amount int64) (models.Standing, error) {
	if amount <= 0 {
		return models.Standing{}, fmt.Errorf("credit for %s: %w", fid, ErrNonPositiveAmount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newBalance := s.balances.Get(fid) + amount
	if err := s.balances.Set(fid, newBalance); err != nil {
		return models.Standing{}, err
	}

	rank, err := s.rankings.Upsert(models.RankingEntry{
		FID:      fid,
		Username: username,
		Balance:  newBalance,
	})
	if err != nil {
		return models.Standing{Balance: newBalance, Rank: 1}, fmt.Errorf("balance saved but leaderboard update failed: %w", err)
	}
	if rank == 0 {
		rank = 1
	}

	return models.Standing{Balance: newBalance, Rank: rank}, nil
}

// Balance returns the current ledger balance for a user
func (s *Standings) Balance(fid string) int64 {
	return s.balances.Get(fid)
}

// Rank returns the user's 1-based leaderboard position, or 0 if unranked
func (s *Standings) Rank(fid string) int {
	return s.rankings.Rank(fid)
}

// Leaderboard returns the first n ranking entries; n <= 0 returns all
func (s *Standings) Leaderboard(n int) []models.RankingEntry {
	return s.rankings.Top(n)
}
