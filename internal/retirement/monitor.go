// Package retirement keeps the bot's own feed short by deleting its oldest
// cast whenever a new one appears.
package retirement

import (
	"context"
	"fmt"
	"time"

	"github.com/mrcasterbaldman/caster-bot/internal/clock"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/neynar"
	"github.com/sirupsen/logrus"
)

const (
	PollInterval = 5 * time.Second
	ErrorBackoff = time.Minute

	latestBatch = 10
	pageSize    = 100
	maxScanned  = 500
	pageDelay   = 100 * time.Millisecond
)

// Monitor watches the newest own post and retires the oldest one each time the
// newest timestamp moves past the watermark.
type Monitor struct {
	feed  neynar.FeedInterface
	fid   int64
	sleep clock.Sleeper

	watermark    time.Time
	hasWatermark bool
}

// NewMonitor creates a monitor for the posts of fid
func NewMonitor(feed neynar.FeedInterface, fid int64) *Monitor {
	return &Monitor{
		feed:  feed,
		fid:   fid,
		sleep: clock.Sleep,
	}
}

// WithSleeper replaces the monitor's waits, for tests
func (m *Monitor) WithSleeper(s clock.Sleeper) *Monitor {
	m.sleep = s
	return m
}

// Watermark returns the newest post timestamp seen so far
func (m *Monitor) Watermark() (time.Time, bool) {
	return m.watermark, m.hasWatermark
}

// Run polls until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) error {
	logrus.Infof("Starting cast retirement monitor for FID %d", m.fid)

	for {
		wait := PollInterval
		if _, err := m.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logrus.Errorf("Error in retirement loop: %v", err)
			wait = ErrorBackoff
		}

		if err := m.sleep(ctx, wait); err != nil {
			logrus.Info("Cast retirement monitor stopped")
			return err
		}
	}
}

// Tick runs one detection pass. It returns the hash of the deleted post, or ""
// when nothing was deleted. The first successful fetch only records the
// watermark.
func (m *Monitor) Tick(ctx context.Context) (string, error) {
	page, err := m.feed.ListPosts(ctx, m.fid, "", latestBatch)
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest casts: %w", err)
	}
	if len(page.Posts) == 0 {
		logrus.Debug("No casts found, retrying...")
		return "", nil
	}

	newest := newestPost(page.Posts)
	if !m.hasWatermark {
		m.watermark = newest.Timestamp
		m.hasWatermark = true
		logrus.Infof("Initial latest cast timestamp: %s", newest.Timestamp.Format(time.RFC3339))
		return "", nil
	}
	if !newest.Timestamp.After(m.watermark) {
		return "", nil
	}

	logrus.Infof("New cast detected: %s (%s)", newest.Hash, newest.Timestamp.Format(time.RFC3339))
	m.watermark = newest.Timestamp

	oldest, err := m.oldestPost(ctx)
	if err != nil {
		return "", err
	}
	if oldest == nil {
		logrus.Info("No casts available to delete")
		return "", nil
	}

	if err := m.feed.DeletePost(ctx, oldest.Hash); err != nil {
		logrus.Errorf("Failed to delete oldest cast %s: %v", oldest.Hash, err)
		return "", nil
	}

	logrus.Infof("Deleted oldest cast: %s", oldest.Hash)
	return oldest.Hash, nil
}

// oldestPost pages through up to maxScanned own posts and returns the one with
// the smallest timestamp. A page failure after the first keeps what was read.
func (m *Monitor) oldestPost(ctx context.Context) (*models.Post, error) {
	var posts []models.Post
	cursor := ""

	for {
		page, err := m.feed.ListPosts(ctx, m.fid, cursor, pageSize)
		if err != nil {
			if len(posts) == 0 {
				return nil, fmt.Errorf("failed to fetch casts for deletion: %w", err)
			}
			logrus.Warnf("Stopped paging casts after %d: %v", len(posts), err)
			break
		}

		posts = append(posts, page.Posts...)
		cursor = page.NextCursor
		if cursor == "" || len(posts) >= maxScanned {
			break
		}
		if err := m.sleep(ctx, pageDelay); err != nil {
			return nil, err
		}
	}

	if len(posts) == 0 {
		return nil, nil
	}

	oldest := posts[0]
	for _, p := range posts[1:] {
		if p.Timestamp.Before(oldest.Timestamp) {
			oldest = p
		}
	}
	return &oldest, nil
}

func newestPost(posts []models.Post) models.Post {
	newest := posts[0]
	for _, p := range posts[1:] {
		if p.Timestamp.After(newest.Timestamp) {
			newest = p
		}
	}
	return newest
}
