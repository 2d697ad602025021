package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/mrcasterbaldman/caster-bot/internal/chain"
	"github.com/mrcasterbaldman/caster-bot/internal/clanker"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/neynar"
	"github.com/mrcasterbaldman/caster-bot/internal/notifications"
	"github.com/mrcasterbaldman/caster-bot/internal/state"
	"github.com/mrcasterbaldman/caster-bot/internal/textgen"
	"github.com/sirupsen/logrus"
)

// DefaultRewardUnits is the number of whole tokens sent per successful mention
const DefaultRewardUnits = 100

// Options tunes reply wording and deployment parameters
type Options struct {
	RewardUnits    int64
	TokenSymbol    string
	RankingsURL    string
	DeployName     string
	DeploySymbol   string
	DeployImageURL string
}

// Dispatcher executes the selected action for a mention
type Dispatcher struct {
	feed      neynar.FeedInterface
	text      textgen.Generator
	ledger    chain.Ledger
	deployer  clanker.Deployer
	standings *state.Standings
	notifier  notifications.NotificationInterface
	opts      Options
}

// NewDispatcher creates a dispatcher. notifier may be nil.
func NewDispatcher(
	feed neynar.FeedInterface,
	text textgen.Generator,
	ledger chain.Ledger,
	deployer clanker.Deployer,
	standings *state.Standings,
	notifier notifications.NotificationInterface,
	opts Options,
) *Dispatcher {
	if opts.RewardUnits <= 0 {
		opts.RewardUnits = DefaultRewardUnits
	}
	return &Dispatcher{
		feed:      feed,
		text:      text,
		ledger:    ledger,
		deployer:  deployer,
		standings: standings,
		notifier:  notifier,
		opts:      opts,
	}
}

// Dispatch runs the action and reports whether a reply went out
func (d *Dispatcher) Dispatch(ctx context.Context, mention models.Mention, selection models.Selection) models.Outcome {
	log := logrus.WithFields(logrus.Fields{
		"mention": mention.ID,
		"user":    mention.Author.Username,
		"action":  selection.Action.String(),
	})

	var outcome models.Outcome
	switch selection.Action {
	case models.PlainReward:
		outcome = d.reward(ctx, mention, selection.Address, "")
	case models.RewardAndDeploy:
		outcome = d.deployAndReward(ctx, mention, selection.Address)
	default:
		outcome = d.instruct(ctx, mention)
	}

	if outcome.Replied {
		log.Info("Mention dispatched")
	} else {
		log.WithField("reason", outcome.Reason).Warn("Mention dispatch failed")
	}
	return outcome
}

func (d *Dispatcher) instruct(ctx context.Context, mention models.Mention) models.Outcome {
	prompt := fmt.Sprintf(
		"Generate a concise reply for @%s who mentioned me on Farcaster. Inform them: \"Make sure your Warplet holds Caster ID to receive your %s tokens. Go to MrCasterbaldman.Space and verify your Caster Account to be eligible for all ecosystem perks. Check your rankings on %s.\"",
		mention.Author.Username, d.opts.TokenSymbol, d.opts.RankingsURL,
	)
	return d.reply(ctx, mention, d.text.Generate(ctx, prompt))
}

func (d *Dispatcher) deployAndReward(ctx context.Context, mention models.Mention, address string) models.Outcome {
	logrus.Infof("Deploying Clanker token for @%s...", mention.Author.Username)

	contract, err := d.deployer.Deploy(ctx, models.DeploymentRequest{
		Name:             d.opts.DeployName,
		Symbol:           d.opts.DeploySymbol,
		Image:            d.opts.DeployImageURL,
		RequestorAddress: address,
		RequestKey:       clanker.NewRequestKey(),
		RequestorFID:     mention.Author.FID,
	})
	if err != nil {
		logrus.Errorf("Error deploying Clanker token for @%s: %v", mention.Author.Username, err)
		return models.Failed(models.ReasonDeployError)
	}

	return d.reward(ctx, mention, address, contract)
}

// reward transfers tokens, credits the ledger and replies. A non-empty
// contract means a token was just deployed and the reply uses the fixed
// deployment template.
func (d *Dispatcher) reward(ctx context.Context, mention models.Mention, address, contract string) models.Outcome {
	amount := chain.Tokens(d.opts.RewardUnits)

	custodial, err := d.ledger.BalanceOf(ctx, d.ledger.Custodian())
	if err != nil {
		logrus.Errorf("Failed to read custodial balance: %v", err)
		return models.Failed(models.ReasonTransferError)
	}
	if custodial.Cmp(amount) < 0 {
		logrus.Errorf("Insufficient %s balance: %s %s", d.opts.TokenSymbol, chain.FormatTokens(custodial), d.opts.TokenSymbol)
		d.alertUnderfunded(mention, custodial.String())
		return models.Failed(models.ReasonInsufficientFunds)
	}

	txHash, err := d.ledger.Transfer(ctx, address, amount)
	if err != nil {
		logrus.Errorf("Token transfer to %s failed: %v", address, err)
		return models.Failed(models.ReasonTransferError)
	}

	standing, err := d.standings.Credit(mention.Author.UserID(), mention.Author.Username, d.opts.RewardUnits)
	if err != nil {
		logrus.Errorf("Failed to record credit for @%s (tx %s): %v", mention.Author.Username, txHash, err)
		if standing.Balance == 0 {
			return models.Failed(models.ReasonLedgerError)
		}
	}

	var text string
	if contract != "" {
		text = fmt.Sprintf(
			"Hey @%s, your Clanker token is deployed at https://dexscreener.com/base/%s! I've sent you %d %s (TX: https://basescan.org/tx/%s). Your balance is now %d %s, and your ranking is %d. Check it out at %s!",
			mention.Author.Username, contract, d.opts.RewardUnits, d.opts.TokenSymbol, txHash,
			standing.Balance, d.opts.TokenSymbol, standing.Rank, d.opts.RankingsURL,
		)
	} else {
		prompt := fmt.Sprintf(
			"Generate a concise reply for @%s who mentioned me on Farcaster with: %q. Inform them I've sent %d %s (TX: https://basescan.org/tx/%s), their total balance is now %d %s, and their ranking is %d. Encourage them to check their ranking on %s.",
			mention.Author.Username, mention.Text, d.opts.RewardUnits, d.opts.TokenSymbol, txHash,
			standing.Balance, d.opts.TokenSymbol, standing.Rank, d.opts.RankingsURL,
		)
		text = d.text.Generate(ctx, prompt)
	}

	return d.reply(ctx, mention, text)
}

func (d *Dispatcher) reply(ctx context.Context, mention models.Mention, text string) models.Outcome {
	if _, err := d.feed.PublishCast(ctx, text, neynar.CastOptions{ReplyTo: mention.ID}); err != nil {
		logrus.Errorf("Error posting reply to %s: %v", mention.ID, err)
		return models.Failed(models.ReasonReplyError)
	}
	logrus.Debugf("Posted reply to %s: %s", mention.ID, text)
	return models.Replied()
}

func (d *Dispatcher) alertUnderfunded(mention models.Mention, balance string) {
	if d.notifier == nil {
		return
	}
	alert := &models.Alert{
		ID:        "underfunded-" + mention.ID,
		Type:      "critical",
		Title:     "Reward wallet underfunded",
		Message:   fmt.Sprintf("Wallet %s holds %s base units of %s, below the %d token reward. Mention %s from @%s was not rewarded.", d.ledger.Custodian(), balance, d.opts.TokenSymbol, d.opts.RewardUnits, mention.ID, mention.Author.Username),
		Mention:   &mention,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.notifier.SendAlert(alert); err != nil {
		logrus.Errorf("Failed to send underfunded alert: %v", err)
	}
}
