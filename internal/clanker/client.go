package clanker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrDeployFailed is returned when the service answers without a contract address
var ErrDeployFailed = errors.New("clanker deployment failed")

// Deployer defines the contract for token deployment
type Deployer interface {
	Deploy(ctx context.Context, req models.DeploymentRequest) (string, error)
}

// Client calls the Clanker token deployment API
type Client struct {
	apiKey string
	url    string
	client *resty.Client
}

var _ Deployer = (*Client)(nil)

type deployResponse struct {
	Success         bool   `json:"success"`
	ContractAddress string `json:"contract_address"`
	Error           string `json:"error"`
}

// NewClient creates a new Clanker client
func NewClient(apiKey, url string) *Client {
	return &Client{
		apiKey: apiKey,
		url:    url,
		client: resty.New().SetTimeout(60 * time.Second),
	}
}

// NewRequestKey returns a fresh idempotency key for a deployment
func NewRequestKey() string {
	return "clanker_" + uuid.NewString()
}

// Deploy requests a token deployment and returns the new contract address
func (c *Client) Deploy(ctx context.Context, req models.DeploymentRequest) (string, error) {
	if req.RequestKey == "" {
		req.RequestKey = NewRequestKey()
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", c.apiKey).
		SetBody(req).
		Post(c.url)
	if err != nil {
		return "", fmt.Errorf("failed to call clanker: %w", err)
	}

	var parsed deployResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse clanker response (status %d): %w", resp.StatusCode(), err)
	}

	if !parsed.Success || parsed.ContractAddress == "" {
		reason := parsed.Error
		if reason == "" {
			reason = fmt.Sprintf("unknown error (status %d)", resp.StatusCode())
		}
		return "", fmt.Errorf("%w: %s", ErrDeployFailed, reason)
	}

	logrus.Infof("Clanker token deployed at %s for %s (key %s)", parsed.ContractAddress, req.RequestorAddress, req.RequestKey)
	return parsed.ContractAddress, nil
}
