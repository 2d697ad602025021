package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mrcasterbaldman/caster-bot/internal/clock"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/sources"
	"github.com/sirupsen/logrus"
)

const (
	PollInterval = 10 * time.Second
	ErrorBackoff = 60 * time.Second
	MentionDelay = 5 * time.Second
)

// Selector picks the action for a mention
type Selector interface {
	Select(ctx context.Context, mention models.Mention) models.Selection
}

// Dispatcher executes the selected action
type Dispatcher interface {
	Dispatch(ctx context.Context, mention models.Mention, selection models.Selection) models.Outcome
}

// Marker records handled mention IDs
type Marker interface {
	Add(id string) error
}

// Service is the dispatch loop: it polls for mentions and handles them one at a time
type Service struct {
	source     sources.Source
	selector   Selector
	dispatcher Dispatcher
	processed  Marker
	sleep      clock.Sleeper

	runMu   sync.Mutex // one pass at a time, even with manual triggers
	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds dispatch loop metrics
type Metrics struct {
	Source          string         `json:"source"`
	TotalMentions   int            `json:"total_mentions"`
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	LastRunMentions int            `json:"last_run_mentions"`
	Actions         map[string]int `json:"actions"`
	Outcomes        map[string]int `json:"outcomes"`
	ErrorCount      int            `json:"error_count"`
}

// NewService creates a new dispatch loop
func NewService(source sources.Source, selector Selector, dispatcher Dispatcher, processed Marker) *Service {
	return &Service{
		source:     source,
		selector:   selector,
		dispatcher: dispatcher,
		processed:  processed,
		sleep:      clock.Sleep,
		metrics: &Metrics{
			Source:   source.GetName(),
			Actions:  make(map[string]int),
			Outcomes: make(map[string]int),
		},
	}
}

// WithSleeper replaces the loop's waits, for tests
func (s *Service) WithSleeper(sleeper clock.Sleeper) *Service {
	s.sleep = sleeper
	return s
}

// Run loops until ctx is cancelled. A failed pass waits ErrorBackoff
// instead of PollInterval.
func (s *Service) Run(ctx context.Context) error {
	logrus.Info("Dispatch loop started, monitoring mentions...")

	for {
		_, err := s.RunOnce(ctx)
		if ctx.Err() != nil {
			logrus.Info("Dispatch loop stopped")
			return ctx.Err()
		}

		wait := PollInterval
		if err != nil {
			logrus.Errorf("Main loop error: %v", err)
			wait = ErrorBackoff
		}

		if err := s.sleep(ctx, wait); err != nil {
			logrus.Info("Dispatch loop stopped")
			return err
		}
	}
}

// RunOnce fetches new mentions and handles each of them. It returns the number
// of mentions handled. Panics are recovered and returned as errors.
func (s *Service) RunOnce(ctx context.Context) (handled int, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch pass panicked: %v", r)
		}
		s.recordRun(handled, time.Since(start), err)
	}()

	mentions := s.source.FetchMentions(ctx)
	if len(mentions) == 0 {
		return 0, nil
	}
	logrus.Infof("Processing %d mentions from %s", len(mentions), s.source.GetName())

	for _, mention := range mentions {
		if ctx.Err() != nil {
			return handled, ctx.Err()
		}

		s.handle(ctx, mention)
		handled++

		if err := s.sleep(ctx, MentionDelay); err != nil {
			return handled, err
		}
	}

	return handled, nil
}

func (s *Service) handle(ctx context.Context, mention models.Mention) {
	selection := s.selector.Select(ctx, mention)
	outcome := s.dispatcher.Dispatch(ctx, mention, selection)

	// Marked even when the dispatch failed, so a failed reward is never retried.
	if err := s.processed.Add(mention.ID); err != nil {
		logrus.Errorf("Failed to mark mention %s processed: %v", mention.ID, err)
	}

	s.mu.Lock()
	s.metrics.TotalMentions++
	s.metrics.Actions[selection.Action.String()]++
	s.metrics.Outcomes[outcome.Kind()]++
	s.mu.Unlock()
}

func (s *Service) recordRun(handled int, duration time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.LastRunMentions = handled
	if err != nil && err != context.Canceled {
		s.metrics.ErrorCount++
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
