package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mrcasterbaldman/caster-bot/internal/config"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/neynar"
	"github.com/mrcasterbaldman/caster-bot/internal/notifications"
	"github.com/mrcasterbaldman/caster-bot/internal/state"
	"github.com/mrcasterbaldman/caster-bot/internal/textgen"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	broadcastSchedule = "@every 20m"
	broadcastTimeout  = 2 * time.Minute
	reportLeaders     = 10
)

// Service runs the periodic channel broadcast and the leaderboard report
type Service struct {
	config    *config.Config
	feed      neynar.FeedInterface
	text      textgen.Generator
	standings *state.Standings
	notifier  notifications.NotificationInterface
	cron      *cron.Cron
}

// NewService creates a new scheduler service
func NewService(
	cfg *config.Config,
	feed neynar.FeedInterface,
	text textgen.Generator,
	standings *state.Standings,
	notifier notifications.NotificationInterface,
) *Service {
	return &Service{
		config:    cfg,
		feed:      feed,
		text:      text,
		standings: standings,
		notifier:  notifier,
		cron:      cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
	}
}

// Start registers the jobs and starts the cron runner
func (s *Service) Start() error {
	if s.config.EnableBroadcast {
		_, err := s.cron.AddFunc(broadcastSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
			defer cancel()
			if err := s.Broadcast(ctx); err != nil {
				logrus.Errorf("Channel broadcast failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	_, err := s.cron.AddFunc(reportExpression(s.config.ReportSchedule), func() {
		logrus.Info("Sending scheduled leaderboard report")
		if err := s.SendReport(); err != nil {
			logrus.Errorf("Scheduled leaderboard report failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s leaderboard report (broadcast enabled: %t)",
		s.config.ReportSchedule, s.config.EnableBroadcast)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}

func reportExpression(schedule string) string {
	switch schedule {
	case "weekly":
		// Monday at 9 AM UTC
		return "0 0 9 * * MON"
	default:
		// Daily at 9 AM UTC
		return "0 0 9 * * *"
	}
}

// Broadcast posts a generated promotional cast to the configured channel
func (s *Service) Broadcast(ctx context.Context) error {
	prompt := fmt.Sprintf(
		"Generate a concise message for Mr. Caster Baldman to post to the %s channel on Farcaster. "+
			"Encourage users to mention the bot to receive %s tokens and check their rankings on %s.",
		s.config.Channel, s.config.TokenSymbol, s.config.RankingsURL)

	text := s.text.Generate(ctx, prompt)
	if text == textgen.FallbackText {
		return fmt.Errorf("text generation unavailable, skipping broadcast")
	}

	if _, err := s.feed.PublishCast(ctx, text, neynar.CastOptions{ChannelID: s.config.Channel}); err != nil {
		return fmt.Errorf("failed to post to %s: %w", s.config.Channel, err)
	}

	logrus.Infof("Posted to %s: %s", s.config.Channel, text)
	return nil
}

// BuildReport summarizes the current leaderboard
func (s *Service) BuildReport() *models.Report {
	all := s.standings.Leaderboard(0)

	var distributed int64
	for _, entry := range all {
		distributed += entry.Balance
	}

	leaders := all
	if len(leaders) > reportLeaders {
		leaders = leaders[:reportLeaders]
	}

	return &models.Report{
		GeneratedAt: time.Now().UTC(),
		Period:      s.config.ReportSchedule,
		TotalUsers:  len(all),
		Leaders:     leaders,
		Summary: map[string]any{
			"total_distributed": distributed,
			"token_symbol":      s.config.TokenSymbol,
		},
	}
}

// SendReport builds the leaderboard report and hands it to the notifier
func (s *Service) SendReport() error {
	report := s.BuildReport()
	if err := s.notifier.SendReport(report); err != nil {
		return fmt.Errorf("failed to send leaderboard report: %w", err)
	}
	logrus.Infof("Leaderboard report sent: %d users, %d leaders", report.TotalUsers, len(report.Leaders))
	return nil
}
