package state

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mrcasterbaldman/caster-bot/internal/storage"
)

// ProcessedFile holds the newline-delimited list of handled mention IDs
const ProcessedFile = "processed_ids.txt"

// ProcessedStore is the durable set of mention IDs that were already handled.
// IDs are only ever added.
type ProcessedStore struct {
	storage storage.StorageInterface
	mu      sync.RWMutex
	ids     []string
	seen    map[string]struct{}
}

// NewProcessedStore loads the processed set from storage
func NewProcessedStore(s storage.StorageInterface) (*ProcessedStore, error) {
	p := &ProcessedStore{
		storage: s,
		seen:    make(map[string]struct{}),
	}

	data, err := s.Retrieve(ProcessedFile)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return p, nil
		}
		return nil, fmt.Errorf("failed to load processed ids: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		id := strings.TrimSpace(line)
		if id == "" {
			continue
		}
		if _, ok := p.seen[id]; ok {
			continue
		}
		p.seen[id] = struct{}{}
		p.ids = append(p.ids, id)
	}

	return p, nil
}

// Contains reports whether the mention ID was already handled
func (p *ProcessedStore) Contains(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.seen[id]
	return ok
}

// Add records the mention ID and rewrites the file. The ID stays in memory
// even if persisting fails.
func (p *ProcessedStore) Add(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.seen[id]; ok {
		return nil
	}
	p.seen[id] = struct{}{}
	p.ids = append(p.ids, id)

	var b strings.Builder
	for _, existing := range p.ids {
		b.WriteString(existing)
		b.WriteByte('\n')
	}
	if err := p.storage.Store(ProcessedFile, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to persist processed id %s: %w", id, err)
	}
	return nil
}

// Len returns the number of processed IDs
func (p *ProcessedStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ids)
}
