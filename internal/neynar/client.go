package neynar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// Client talks to the Neynar v2 Farcaster REST API
type Client struct {
	apiKey     string
	signerUUID string
	baseURL    string
	client     *resty.Client
}

// Ensure Client implements FeedInterface
var _ FeedInterface = (*Client)(nil)

type notificationsResponse struct {
	Notifications []notification `json:"notifications"`
	Next          *nextCursor    `json:"next"`
}

type notification struct {
	Type string `json:"type"`
	Cast *cast  `json:"cast"`
}

type cast struct {
	Hash      string      `json:"hash"`
	Text      string      `json:"text"`
	Timestamp string      `json:"timestamp"`
	Author    *castAuthor `json:"author"`
}

type castAuthor struct {
	FID            int64    `json:"fid"`
	Username       string   `json:"username"`
	CustodyAddress string   `json:"custody_address"`
	Verifications  []string `json:"verifications"`
}

type castsResponse struct {
	Casts []cast      `json:"casts"`
	Next  *nextCursor `json:"next"`
}

type nextCursor struct {
	Cursor *string `json:"cursor"`
}

type publishCastRequest struct {
	SignerUUID string `json:"signer_uuid"`
	Text       string `json:"text"`
	Parent     string `json:"parent,omitempty"`
	ChannelID  string `json:"channel_id,omitempty"`
}

type publishCastResponse struct {
	Success bool  `json:"success"`
	Cast    *cast `json:"cast"`
}

type deleteCastRequest struct {
	SignerUUID string `json:"signer_uuid"`
	TargetHash string `json:"target_hash"`
}

// NewClient creates a new Neynar client
func NewClient(apiKey, signerUUID, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		signerUUID: signerUUID,
		baseURL:    baseURL,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "Caster-Bot/1.0").
			SetHeader("accept", "application/json"),
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey)
}

// ListMentions returns mention notifications for fid, newest first
func (c *Client) ListMentions(ctx context.Context, fid int64) ([]models.Mention, error) {
	resp, err := c.request(ctx).
		SetQueryParams(map[string]string{
			"fid":  strconv.FormatInt(fid, 10),
			"type": "mentions",
		}).
		Get(c.baseURL + "/notifications")
	if err != nil {
		return nil, transportError(ctx, "list notifications", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{Operation: "list notifications", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var parsed notificationsResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse notifications: %w: %v", ErrInvalidResponse, err)
	}

	var mentions []models.Mention
	for _, n := range parsed.Notifications {
		if n.Type != "mention" || n.Cast == nil || n.Cast.Hash == "" {
			continue
		}
		if n.Cast.Author == nil {
			logrus.Warnf("Skipping mention %s without author", n.Cast.Hash)
			continue
		}
		mentions = append(mentions, toMention(n.Cast))
	}

	logrus.Debugf("Neynar returned %d notifications, %d mentions", len(parsed.Notifications), len(mentions))
	return mentions, nil
}

// ListPosts returns one page of casts authored by fid
func (c *Client) ListPosts(ctx context.Context, fid int64, cursor string, limit int) (*models.PostPage, error) {
	params := map[string]string{
		"fid":   strconv.FormatInt(fid, 10),
		"limit": strconv.Itoa(limit),
	}
	if cursor != "" {
		params["cursor"] = cursor
	}

	resp, err := c.request(ctx).
		SetQueryParams(params).
		Get(c.baseURL + "/feed/user/casts")
	if err != nil {
		return nil, transportError(ctx, "list casts", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{Operation: "list casts", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var parsed castsResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse casts: %w: %v", ErrInvalidResponse, err)
	}
	if parsed.Casts == nil {
		return nil, fmt.Errorf("casts missing from response: %w", ErrInvalidResponse)
	}

	page := &models.PostPage{}
	for _, item := range parsed.Casts {
		ts, err := parseTimestamp(item.Timestamp)
		if err != nil {
			logrus.Errorf("Failed to parse cast timestamp %q: %v", item.Timestamp, err)
			continue
		}
		page.Posts = append(page.Posts, models.Post{Hash: item.Hash, Text: item.Text, Timestamp: ts})
	}
	if parsed.Next != nil && parsed.Next.Cursor != nil {
		page.NextCursor = *parsed.Next.Cursor
	}

	return page, nil
}

// PublishCast posts text as the bot, optionally as a reply or into a channel
func (c *Client) PublishCast(ctx context.Context, text string, opts CastOptions) (*models.Post, error) {
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(publishCastRequest{
			SignerUUID: c.signerUUID,
			Text:       text,
			Parent:     opts.ReplyTo,
			ChannelID:  opts.ChannelID,
		}).
		Post(c.baseURL + "/cast")
	if err != nil {
		return nil, transportError(ctx, "publish cast", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{Operation: "publish cast", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var parsed publishCastResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse publish response: %w: %v", ErrInvalidResponse, err)
	}

	post := &models.Post{Text: text, Timestamp: time.Now().UTC()}
	if parsed.Cast != nil {
		post.Hash = parsed.Cast.Hash
		if ts, err := parseTimestamp(parsed.Cast.Timestamp); err == nil {
			post.Timestamp = ts
		}
	}

	logrus.Infof("Published cast %s (reply_to=%q channel=%q)", post.Hash, opts.ReplyTo, opts.ChannelID)
	return post, nil
}

// DeletePost deletes one of the bot's casts
func (c *Client) DeletePost(ctx context.Context, hash string) error {
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(deleteCastRequest{SignerUUID: c.signerUUID, TargetHash: hash}).
		Delete(c.baseURL + "/cast")
	if err != nil {
		return transportError(ctx, "delete cast", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return &APIError{Operation: "delete cast", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

func toMention(c *cast) models.Mention {
	ts, err := parseTimestamp(c.Timestamp)
	if err != nil {
		logrus.Debugf("Mention %s has unparsable timestamp %q", c.Hash, c.Timestamp)
	}
	return models.Mention{
		ID:   c.Hash,
		Text: c.Text,
		Author: models.Author{
			FID:               c.Author.FID,
			Username:          c.Author.Username,
			CustodyAddress:    c.Author.CustodyAddress,
			VerifiedAddresses: c.Author.Verifications,
		},
		Timestamp: ts,
	}
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}
