package neynar

import (
	"context"

	"github.com/mrcasterbaldman/caster-bot/internal/models"
)

// FeedInterface defines the contract for the Farcaster feed collaborator
type FeedInterface interface {
	ListMentions(ctx context.Context, fid int64) ([]models.Mention, error)
	ListPosts(ctx context.Context, fid int64, cursor string, limit int) (*models.PostPage, error)
	PublishCast(ctx context.Context, text string, opts CastOptions) (*models.Post, error)
	DeletePost(ctx context.Context, hash string) error
}

// CastOptions controls where a published cast lands
type CastOptions struct {
	ReplyTo   string // parent cast hash
	ChannelID string
}
