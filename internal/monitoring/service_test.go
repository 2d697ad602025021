package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mrcasterbaldman/caster-bot/internal/clock"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/state"
	"github.com/mrcasterbaldman/caster-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubSource hands out one batch per call and filters against the processed store
type stubSource struct {
	batches   [][]models.Mention
	processed *state.ProcessedStore
	calls     int
}

func (s *stubSource) GetName() string { return "stub" }

func (s *stubSource) FetchMentions(ctx context.Context) []models.Mention {
	s.calls++
	if len(s.batches) == 0 {
		return []models.Mention{}
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]

	fresh := []models.Mention{}
	for _, m := range batch {
		if !s.processed.Contains(m.ID) {
			fresh = append(fresh, m)
		}
	}
	return fresh
}

type MockSelector struct {
	mock.Mock
}

func (m *MockSelector) Select(ctx context.Context, mention models.Mention) models.Selection {
	return m.Called(ctx, mention).Get(0).(models.Selection)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, mention models.Mention, selection models.Selection) models.Outcome {
	return m.Called(ctx, mention, selection).Get(0).(models.Outcome)
}

type failingMarker struct{}

func (failingMarker) Add(string) error { return errors.New("disk full") }

func newProcessed(t *testing.T) *state.ProcessedStore {
	processed, err := state.NewProcessedStore(storage.NewMemoryStorage())
	require.NoError(t, err)
	return processed
}

func plain() models.Selection {
	return models.Selection{Action: models.PlainReward, Address: "0x1111111111111111111111111111111111111111"}
}

func TestService_RunOnceHandlesEachMentionOnce(t *testing.T) {
	processed := newProcessed(t)
	m1, m2 := models.Mention{ID: "m1"}, models.Mention{ID: "m2"}
	source := &stubSource{
		batches:   [][]models.Mention{{m1, m2}, {m1, m2}},
		processed: processed,
	}

	selector := &MockSelector{}
	selector.On("Select", mock.Anything, mock.Anything).Return(plain())
	dispatcher := &MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything, plain()).Return(models.Replied())

	recorder := &clock.Recorder{}
	service := NewService(source, selector, dispatcher, processed).WithSleeper(recorder.Sleep)

	handled, err := service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, handled)

	handled, err = service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, handled)

	dispatcher.AssertNumberOfCalls(t, "Dispatch", 2)
	assert.True(t, processed.Contains("m1"))
	assert.True(t, processed.Contains("m2"))
	assert.Equal(t, []time.Duration{MentionDelay, MentionDelay}, recorder.Durations())
	assert.Contains(t, service.GetMetrics(), `"source": "stub"`)
}

func TestService_FailedDispatchIsStillMarked(t *testing.T) {
	processed := newProcessed(t)
	source := &stubSource{batches: [][]models.Mention{{{ID: "m1"}}}, processed: processed}

	selector := &MockSelector{}
	selector.On("Select", mock.Anything, mock.Anything).Return(plain())
	dispatcher := &MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything, mock.Anything).
		Return(models.Failed(models.ReasonTransferError))

	service := NewService(source, selector, dispatcher, processed).WithSleeper((&clock.Recorder{}).Sleep)

	_, err := service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, processed.Contains("m1"))
	assert.Contains(t, service.GetMetrics(), `"transfer_error": 1`)
}

func TestService_MarkFailureDoesNotStopPass(t *testing.T) {
	source := &stubSource{batches: [][]models.Mention{{{ID: "m1"}, {ID: "m2"}}}, processed: newProcessed(t)}

	selector := &MockSelector{}
	selector.On("Select", mock.Anything, mock.Anything).Return(plain())
	dispatcher := &MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything, mock.Anything).Return(models.Replied())

	service := NewService(source, selector, dispatcher, failingMarker{}).WithSleeper((&clock.Recorder{}).Sleep)

	handled, err := service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
}

func TestService_RunOnceRecoversPanic(t *testing.T) {
	processed := newProcessed(t)
	source := &stubSource{batches: [][]models.Mention{{{ID: "m1"}}}, processed: processed}

	selector := &MockSelector{}
	selector.On("Select", mock.Anything, mock.Anything).Panic("boom")

	service := NewService(source, selector, &MockDispatcher{}, processed).WithSleeper((&clock.Recorder{}).Sleep)

	_, err := service.RunOnce(context.Background())
	assert.ErrorContains(t, err, "boom")
	assert.Contains(t, service.GetMetrics(), `"error_count": 1`)
}

func TestService_RunWaitsBetweenPasses(t *testing.T) {
	processed := newProcessed(t)
	source := &stubSource{batches: [][]models.Mention{{{ID: "m1"}}}, processed: processed}

	selector := &MockSelector{}
	selector.On("Select", mock.Anything, mock.Anything).Return(plain())
	dispatcher := &MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything, mock.Anything).Return(models.Replied())

	ctx, cancel := context.WithCancel(context.Background())
	recorder := &clock.Recorder{Limit: 3, Cancel: cancel}
	service := NewService(source, selector, dispatcher, processed).WithSleeper(recorder.Sleep)

	err := service.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{MentionDelay, PollInterval, PollInterval}, recorder.Durations())
}

func TestService_RunBacksOffAfterPanic(t *testing.T) {
	processed := newProcessed(t)
	source := &stubSource{batches: [][]models.Mention{{{ID: "m1"}}}, processed: processed}

	selector := &MockSelector{}
	selector.On("Select", mock.Anything, mock.Anything).Panic("rpc exploded").Once()

	ctx, cancel := context.WithCancel(context.Background())
	recorder := &clock.Recorder{Limit: 2, Cancel: cancel}
	service := NewService(source, selector, &MockDispatcher{}, processed).WithSleeper(recorder.Sleep)

	err := service.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{ErrorBackoff, PollInterval}, recorder.Durations())
	assert.Equal(t, 2, source.calls)
}
