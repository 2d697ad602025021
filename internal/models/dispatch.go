package models

import "strconv"

// Action is what the bot does in response to a mention
type Action int

const (
	Ineligible Action = iota
	PlainReward
	RewardAndDeploy
)

func (a Action) String() string {
	switch a {
	case Ineligible:
		return "ineligible"
	case PlainReward:
		return "plain_reward"
	case RewardAndDeploy:
		return "reward_and_deploy"
	default:
		return "unknown"
	}
}

// Selection pairs the chosen action with the address rewards are sent to
type Selection struct {
	Action  Action `json:"action"`
	Address string `json:"address"`
}

// Failure reasons reported by the dispatcher
const (
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonTransferError     = "transfer_error"
	ReasonDeployError       = "deploy_error"
	ReasonReplyError        = "reply_error"
	ReasonLedgerError       = "ledger_error"
)

// Outcome is the result of dispatching one mention
type Outcome struct {
	Replied bool   `json:"replied"`
	Reason  string `json:"reason,omitempty"`
}

// Replied is the successful outcome
func Replied() Outcome {
	return Outcome{Replied: true}
}

// Failed builds a failed outcome with the given reason
func Failed(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Kind returns "replied" or the failure reason, for metrics and logs
func (o Outcome) Kind() string {
	if o.Replied {
		return "replied"
	}
	return o.Reason
}

func formatFID(fid int64) string {
	return strconv.FormatInt(fid, 10)
}
