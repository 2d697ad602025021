package sources

import (
	"context"
	"time"

	"github.com/mrcasterbaldman/caster-bot/internal/clock"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/neynar"
	"github.com/sirupsen/logrus"
)

const (
	fetchAttempts   = 3
	fetchRetryDelay = 5 * time.Second
)

// FarcasterSource polls Neynar notifications for new mentions of one account
type FarcasterSource struct {
	feed      neynar.FeedInterface
	fid       int64
	processed ProcessedChecker
	sleep     clock.Sleeper
}

var _ Source = (*FarcasterSource)(nil)

// NewFarcasterSource creates a new Farcaster mention source
func NewFarcasterSource(feed neynar.FeedInterface, fid int64, processed ProcessedChecker) *FarcasterSource {
	return &FarcasterSource{
		feed:      feed,
		fid:       fid,
		processed: processed,
		sleep:     clock.Sleep,
	}
}

// WithSleeper replaces the retry wait, for tests
func (f *FarcasterSource) WithSleeper(s clock.Sleeper) *FarcasterSource {
	f.sleep = s
	return f
}

func (f *FarcasterSource) GetName() string {
	return "farcaster"
}

// FetchMentions returns unprocessed mentions in feed order. Transient network
// failures are retried a fixed number of times; anything else gives up.
func (f *FarcasterSource) FetchMentions(ctx context.Context) []models.Mention {
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		logrus.Debug("Fetching notifications...")
		mentions, err := f.feed.ListMentions(ctx, f.fid)
		if err == nil {
			fresh := f.filterProcessed(mentions)
			logrus.Infof("Found %d new mentions", len(fresh))
			return fresh
		}

		if !neynar.IsTransient(err) || attempt == fetchAttempts {
			logrus.Errorf("Error fetching mentions: %v", err)
			return []models.Mention{}
		}

		logrus.Warnf("Network error, retrying in %v... (attempt %d): %v", fetchRetryDelay, attempt, err)
		if err := f.sleep(ctx, fetchRetryDelay); err != nil {
			return []models.Mention{}
		}
	}
	return []models.Mention{}
}

func (f *FarcasterSource) filterProcessed(mentions []models.Mention) []models.Mention {
	fresh := make([]models.Mention, 0, len(mentions))
	seen := make(map[string]bool)

	for _, mention := range mentions {
		if mention.ID == "" || seen[mention.ID] || f.processed.Contains(mention.ID) {
			continue
		}
		seen[mention.ID] = true
		fresh = append(fresh, mention)
	}

	return fresh
}
