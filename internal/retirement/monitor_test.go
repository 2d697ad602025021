package retirement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mrcasterbaldman/caster-bot/internal/clock"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/neynar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFeed struct {
	mock.Mock
}

func (m *MockFeed) ListMentions(ctx context.Context, fid int64) ([]models.Mention, error) {
	args := m.Called(ctx, fid)
	mentions, _ := args.Get(0).([]models.Mention)
	return mentions, args.Error(1)
}

func (m *MockFeed) ListPosts(ctx context.Context, fid int64, cursor string, limit int) (*models.PostPage, error) {
	args := m.Called(ctx, fid, cursor, limit)
	page, _ := args.Get(0).(*models.PostPage)
	return page, args.Error(1)
}

func (m *MockFeed) PublishCast(ctx context.Context, text string, opts neynar.CastOptions) (*models.Post, error) {
	args := m.Called(ctx, text, opts)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *MockFeed) DeletePost(ctx context.Context, hash string) error {
	return m.Called(ctx, hash).Error(0)
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func post(hash string, minutes int) models.Post {
	return models.Post{Hash: hash, Timestamp: base.Add(time.Duration(minutes) * time.Minute)}
}

func latest(posts ...models.Post) *models.PostPage {
	return &models.PostPage{Posts: posts}
}

func TestMonitor_FirstTickSetsWatermark(t *testing.T) {
	feed := &MockFeed{}
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(latest(post("p3", 3), post("p2", 2)), nil)

	monitor := NewMonitor(feed, 42)
	deleted, err := monitor.Tick(context.Background())

	require.NoError(t, err)
	assert.Empty(t, deleted)
	watermark, ok := monitor.Watermark()
	assert.True(t, ok)
	assert.Equal(t, base.Add(3*time.Minute), watermark)
	feed.AssertNotCalled(t, "DeletePost", mock.Anything, mock.Anything)
}

func TestMonitor_NewPostRetiresOldest(t *testing.T) {
	feed := &MockFeed{}
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(latest(post("p3", 3)), nil).Once()
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(latest(post("p4", 4), post("p3", 3)), nil).Once()
	feed.On("ListPosts", mock.Anything, int64(42), "", pageSize).
		Return(&models.PostPage{Posts: []models.Post{post("p4", 4), post("p3", 3)}, NextCursor: "c1"}, nil)
	feed.On("ListPosts", mock.Anything, int64(42), "c1", pageSize).
		Return(&models.PostPage{Posts: []models.Post{post("p1", 1), post("p2", 2)}}, nil)
	feed.On("DeletePost", mock.Anything, "p1").Return(nil).Once()

	recorder := &clock.Recorder{}
	monitor := NewMonitor(feed, 42).WithSleeper(recorder.Sleep)

	_, err := monitor.Tick(context.Background())
	require.NoError(t, err)

	deleted, err := monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p1", deleted)
	assert.Equal(t, []time.Duration{pageDelay}, recorder.Durations())
	feed.AssertExpectations(t)
}

func TestMonitor_UnchangedNewestDeletesNothing(t *testing.T) {
	feed := &MockFeed{}
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(latest(post("p3", 3)), nil)

	monitor := NewMonitor(feed, 42)
	for i := 0; i < 3; i++ {
		deleted, err := monitor.Tick(context.Background())
		require.NoError(t, err)
		assert.Empty(t, deleted)
	}
	feed.AssertNotCalled(t, "DeletePost", mock.Anything, mock.Anything)
}

func TestMonitor_OneDeletionPerDetectedPost(t *testing.T) {
	feed := &MockFeed{}
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(latest(post("p3", 3)), nil).Once()
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(latest(post("p5", 5), post("p4", 4)), nil)
	feed.On("ListPosts", mock.Anything, int64(42), "", pageSize).
		Return(&models.PostPage{Posts: []models.Post{post("p5", 5), post("p4", 4), post("p1", 1)}}, nil)
	feed.On("DeletePost", mock.Anything, "p1").Return(nil)

	monitor := NewMonitor(feed, 42)
	for i := 0; i < 3; i++ {
		_, err := monitor.Tick(context.Background())
		require.NoError(t, err)
	}

	feed.AssertNumberOfCalls(t, "DeletePost", 1)
}

func TestMonitor_StopsPagingAtCap(t *testing.T) {
	feed := &MockFeed{}
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(latest(post("new", 0)), nil).Once()
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(latest(post("newer", 1)), nil).Once()

	for i := 0; i < 10; i++ {
		cursor := ""
		if i > 0 {
			cursor = fmt.Sprintf("c%d", i)
		}
		posts := make([]models.Post, pageSize)
		for j := range posts {
			posts[j] = post(fmt.Sprintf("p%d-%d", i, j), -(i*pageSize + j))
		}
		feed.On("ListPosts", mock.Anything, int64(42), cursor, pageSize).
			Return(&models.PostPage{Posts: posts, NextCursor: fmt.Sprintf("c%d", i+1)}, nil)
	}
	feed.On("DeletePost", mock.Anything, "p4-99").Return(nil)

	monitor := NewMonitor(feed, 42).WithSleeper((&clock.Recorder{}).Sleep)
	_, err := monitor.Tick(context.Background())
	require.NoError(t, err)

	deleted, err := monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p4-99", deleted)
	feed.AssertNotCalled(t, "ListPosts", mock.Anything, int64(42), "c5", pageSize)
}

func TestMonitor_FetchErrorIsReturned(t *testing.T) {
	feed := &MockFeed{}
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(nil, errors.New("502"))

	_, err := NewMonitor(feed, 42).Tick(context.Background())
	assert.ErrorContains(t, err, "502")
}

func TestMonitor_RunBacksOffOnError(t *testing.T) {
	feed := &MockFeed{}
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(nil, errors.New("502")).Once()
	feed.On("ListPosts", mock.Anything, int64(42), "", latestBatch).Return(latest(post("p1", 1)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	recorder := &clock.Recorder{Limit: 3, Cancel: cancel}

	err := NewMonitor(feed, 42).WithSleeper(recorder.Sleep).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{ErrorBackoff, PollInterval, PollInterval}, recorder.Durations())
}
