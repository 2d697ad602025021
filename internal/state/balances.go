package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mrcasterbaldman/caster-bot/internal/storage"
)

// BalancesFile holds the fid -> cumulative reward mapping
const BalancesFile = "balances.json"

// ErrNegativeAmount is returned when a balance would be set below zero
var ErrNegativeAmount = errors.New("amount must not be negative")

// BalanceStore is the durable per-user cumulative reward ledger
type BalanceStore struct {
	storage  storage.StorageInterface
	mu       sync.RWMutex
	balances map[string]int64
}

// NewBalanceStore loads balances from storage
func NewBalanceStore(s storage.StorageInterface) (*BalanceStore, error) {
	b := &BalanceStore{
		storage:  s,
		balances: make(map[string]int64),
	}

	data, err := s.Retrieve(BalancesFile)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return b, nil
		}
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}

	if err := json.Unmarshal(data, &b.balances); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", BalancesFile, err)
	}
	if b.balances == nil {
		b.balances = make(map[string]int64)
	}

	return b, nil
}

// Get returns the balance for a user, zero if unknown
func (b *BalanceStore) Get(fid string) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[fid]
}

// Set overwrites a user's balance. Used for credits and explicit corrections.
func (b *BalanceStore) Set(fid string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("balance for %s: %w", fid, ErrNegativeAmount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	previous, existed := b.balances[fid]
	b.balances[fid] = amount
	if err := b.save(); err != nil {
		if existed {
			b.balances[fid] = previous
		} else {
			delete(b.balances, fid)
		}
		return err
	}
	return nil
}

// All returns a copy of every balance
func (b *BalanceStore) All() map[string]int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int64, len(b.balances))
	for k, v := range b.balances {
		out[k] = v
	}
	return out
}

func (b *BalanceStore) save() error {
	data, err := json.MarshalIndent(b.balances, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal balances: %w", err)
	}
	if err := b.storage.Store(BalancesFile, data); err != nil {
		return fmt.Errorf("failed to persist balances: %w", err)
	}
	return nil
}
