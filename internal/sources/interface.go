package sources

import (
	"context"

	"github.com/mrcasterbaldman/caster-bot/internal/models"
)

// Source defines the contract for mention sources. FetchMentions never
// fails: collaborator errors are logged and yield an empty result.
type Source interface {
	GetName() string
	FetchMentions(ctx context.Context) []models.Mention
}

// ProcessedChecker reports whether a mention was already handled
type ProcessedChecker interface {
	Contains(id string) bool
}
