package eligibility

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mrcasterbaldman/caster-bot/internal/chain"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// Selector decides what to do with a mention
type Selector struct {
	gate    chain.Gate
	trigger string
}

// NewSelector creates a selector; trigger is matched case-insensitively
func NewSelector(gate chain.Gate, trigger string) *Selector {
	return &Selector{
		gate:    gate,
		trigger: strings.ToLower(strings.TrimSpace(trigger)),
	}
}

// RewardAddress returns the first verified address, falling back to custody
func RewardAddress(author models.Author) string {
	for _, addr := range author.VerifiedAddresses {
		if addr != "" {
			return addr
		}
	}
	return author.CustodyAddress
}

// Select returns the action for the mention and the address rewards go to.
// Any failure to verify the gate makes the mention ineligible.
func (s *Selector) Select(ctx context.Context, mention models.Mention) models.Selection {
	address := RewardAddress(mention.Author)
	selection := models.Selection{Action: models.Ineligible, Address: address}

	if !common.IsHexAddress(address) {
		logrus.Warnf("Mention %s from @%s has no usable reward address", mention.ID, mention.Author.Username)
		return selection
	}

	holds, err := s.gate.HoldsAsset(ctx, address)
	if err != nil {
		logrus.Errorf("Error checking NFT ownership for %s: %v", address, err)
		return selection
	}
	if !holds {
		return selection
	}

	if s.trigger != "" && strings.Contains(strings.ToLower(mention.Text), s.trigger) {
		selection.Action = models.RewardAndDeploy
	} else {
		selection.Action = models.PlainReward
	}
	return selection
}
