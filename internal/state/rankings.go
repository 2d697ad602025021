package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/storage"
)

// RankingsFile holds the leaderboard, sorted descending by balance
const RankingsFile = "rankings.json"

// RankingStore is the leaderboard projection of the balance ledger
type RankingStore struct {
	storage storage.StorageInterface
	mu      sync.RWMutex
	entries []models.RankingEntry
}

// NewRankingStore loads the leaderboard from storage
func NewRankingStore(s storage.StorageInterface) (*RankingStore, error) {
	r := &RankingStore{storage: s}

	data, err := s.Retrieve(RankingsFile)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to load rankings: %w", err)
	}

	if err := json.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", RankingsFile, err)
	}
	sortEntries(r.entries)

	return r, nil
}

// Upsert sets a user's balance on the leaderboard, resorts and persists it.
// It returns the user's 1-based rank after the update.
func (r *RankingStore) Upsert(entry models.RankingEntry) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := append([]models.RankingEntry(nil), r.entries...)

	found := false
	for i := range r.entries {
		if r.entries[i].FID == entry.FID {
			r.entries[i].Balance = entry.Balance
			if entry.Username != "" {
				r.entries[i].Username = entry.Username
			}
			found = true
			break
		}
	}
	if !found {
		r.entries = append(r.entries, entry)
	}
	sortEntries(r.entries)

	if err := r.save(); err != nil {
		r.entries = previous
		return 0, err
	}

	return r.rankLocked(entry.FID), nil
}

// Rank returns the user's 1-based position, or 0 if the user is not ranked
func (r *RankingStore) Rank(fid string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rankLocked(fid)
}

// Entries returns a copy of the full leaderboard
func (r *RankingStore) Entries() []models.RankingEntry {
	return r.Top(0)
}

// Top returns the first n entries; n <= 0 returns all of them
func (r *RankingStore) Top(n int) []models.RankingEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	return append([]models.RankingEntry(nil), r.entries[:n]...)
}

func (r *RankingStore) rankLocked(fid string) int {
	for i, e := range r.entries {
		if e.FID == fid {
			return i + 1
		}
	}
	return 0
}

func (r *RankingStore) save() error {
	entries := r.entries
	if entries == nil {
		entries = []models.RankingEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rankings: %w", err)
	}
	if err := r.storage.Store(RankingsFile, data); err != nil {
		return fmt.Errorf("failed to persist rankings: %w", err)
	}
	return nil
}

// sortEntries orders by balance descending; equal balances keep their order
func sortEntries(entries []models.RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Balance > entries[j].Balance
	})
}
