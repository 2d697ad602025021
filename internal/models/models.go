package models

import "time"

// Author identifies the Farcaster account behind a cast
type Author struct {
	FID               int64    `json:"fid"`
	Username          string   `json:"username"`
	CustodyAddress    string   `json:"custody_address"`
	VerifiedAddresses []string `json:"verified_addresses"`
}

// UserID returns the identity used as the key in the balance ledger and rankings
func (a Author) UserID() string {
	return formatFID(a.FID)
}

// Mention represents a cast that references the bot's account
type Mention struct {
	ID        string    `json:"id"` // cast hash
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Post is one of the bot's own casts
type Post struct {
	Hash      string    `json:"hash"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PostPage is a single page of casts returned by the feed
type PostPage struct {
	Posts      []Post `json:"posts"`
	NextCursor string `json:"next_cursor"`
}

// RankingEntry is a single row of the leaderboard
type RankingEntry struct {
	FID      string `json:"fid"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

// Standing is a user's balance and 1-based leaderboard position right after a credit
type Standing struct {
	Balance int64 `json:"balance"`
	Rank    int   `json:"rank"`
}

// DeploymentRequest describes a token deployment. It is never persisted.
type DeploymentRequest struct {
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	Image            string `json:"image"`
	RequestorAddress string `json:"requestorAddress"`
	RequestKey       string `json:"requestKey"`
	RequestorFID     int64  `json:"requestorFid,omitempty"`
}

// Report represents a periodic leaderboard digest for operators
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Period      string         `json:"period"`
	TotalUsers  int            `json:"total_users"`
	Leaders     []RankingEntry `json:"leaders"`
	Summary     map[string]any `json:"summary"`
}

// Alert represents an urgent operator notification
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // "critical", "urgent", "info"
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Mention   *Mention  `json:"mention,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
