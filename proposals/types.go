// Package proposals implements the project engine: milestone-gated custody of
// raised funds, weighted milestone voting with auto-finalisation, withdrawal
// accounting, whole-project no-confidence rounds and the dispute hand-off.
package proposals

import (
	"errors"

	"fundgate/disputes"
	"fundgate/host"
)

type ProjectKey = uint64
type MilestoneKey = uint64

// AgreementHash is the opaque content digest the project was converted under,
// hex text as supplied by the brief module.
type AgreementHash = string

// RoundType tags the two voting state machines sharing the round tables.
type RoundType uint8

const (
	RoundVoting       RoundType = 0
	RoundNoConfidence RoundType = 1
)

// String prints the round type for events and bucket entries.
func (rt RoundType) String() string {
	if rt == RoundNoConfidence {
		return "no_confidence"
	}
	return "voting"
}

// FundingType records where a project's money came from.
type FundingType uint8

const (
	FundingProposal FundingType = 0
	FundingBrief    FundingType = 1
	FundingTreasury FundingType = 2
)

func (ft FundingType) String() string {
	switch ft {
	case FundingBrief:
		return "brief"
	case FundingTreasury:
		return "treasury"
	default:
		return "proposal"
	}
}

// Milestone is one percentage-of-funds unlock gate inside a project.
type Milestone struct {
	ProjectKey         ProjectKey   `json:"project_key"`
	MilestoneKey       MilestoneKey `json:"milestone_key"`
	PercentageToUnlock uint8        `json:"percentage_to_unlock"`
	IsApproved         bool         `json:"is_approved"`
	CanRefund          bool         `json:"can_refund"`
	IsRefunded         bool         `json:"is_refunded"`
}

// ProposedMilestone is the caller-facing shape used at conversion time.
type ProposedMilestone struct {
	PercentageToUnlock uint8 `json:"percentage_to_unlock"`
}

// Contribution is one account's stake in a project, immutable after
// conversion. Vote weight equals Value.
type Contribution struct {
	Value     host.Balance `json:"value"`
	Timestamp uint64       `json:"timestamp"`
}

// Project is the stored record of a funded project.
type Project struct {
	AgreementHash AgreementHash                 `json:"agreement_hash"`
	Milestones    map[MilestoneKey]Milestone    `json:"milestones"`
	Contributions map[host.Address]Contribution `json:"contributions"`
	CurrencyID    host.CurrencyID               `json:"currency_id"`
	WithdrawnFunds host.Balance                 `json:"withdrawn_funds"`
	RaisedFunds   host.Balance                  `json:"raised_funds"`
	Initiator     host.Address                  `json:"initiator"`
	CreatedOn     uint64                        `json:"created_on"`
	Cancelled     bool                          `json:"cancelled"`
	FundingType   FundingType                   `json:"funding_type"`
	DepositAmount host.Balance                  `json:"deposit_amount"`
}

// contributionOf returns the caller's stake, the vote weight everywhere.
func (p *Project) contributionOf(who host.Address) (host.Balance, bool) {
	c, ok := p.Contributions[who]
	if !ok {
		return 0, false
	}
	return c.Value, true
}

// Vote is the aggregate tally of one open round, weights in the same unit as
// contributions.
type Vote struct {
	Yay        host.Balance `json:"yay"`
	Nay        host.Balance `json:"nay"`
	IsApproved bool         `json:"is_approved"`
}

// DisputeRaiser is the capability the engine calls to open a formal dispute.
// disputes.Engine satisfies it.
type DisputeRaiser interface {
	RaiseDispute(key disputes.DisputeKey, raisedBy host.Address, jury []host.Address, specifiers []disputes.SpecificID) error
}

// JuryProvider selects the panel for a project's dispute. Panel assembly
// (fellowship, randomness) is the embedding runtime's business.
type JuryProvider interface {
	SelectJury(projectKey ProjectKey) []host.Address
}

// StaticJury always returns the same panel, the test and demo provider.
type StaticJury []host.Address

func (s StaticJury) SelectJury(ProjectKey) []host.Address {
	return s
}

// RefundHandler routes the remaining funds of a cancelled project back to
// wherever they came from. The engine only owes the call, not the transport.
type RefundHandler interface {
	SendRefund(from host.Address, amount host.Balance, currency host.CurrencyID, funding FundingType) error
}

// NoopRefundHandler acknowledges refunds without moving anything, for tests
// and deployments where remediation is handled off-engine.
type NoopRefundHandler struct{}

func (NoopRefundHandler) SendRefund(host.Address, host.Balance, host.CurrencyID, FundingType) error {
	return nil
}

var (
	// ErrProjectDoesNotExist - unknown project key (or the project concluded).
	ErrProjectDoesNotExist = errors.New("project does not exist")
	// ErrUserIsNotInitiator - the caller does not own the project.
	ErrUserIsNotInitiator = errors.New("user is not the initiator")
	// ErrMilestoneDoesNotExist - unknown milestone key within the project.
	ErrMilestoneDoesNotExist = errors.New("milestone does not exist")
	// ErrMilestoneAlreadyApproved - approved milestones cannot be resubmitted.
	ErrMilestoneAlreadyApproved = errors.New("milestone already approved")
	// ErrVotingRoundNotStarted - no open voting round for this milestone.
	ErrVotingRoundNotStarted = errors.New("voting round not started")
	// ErrMilestonesAlreadyInDispute - a disputed milestone cannot be voted on or re-disputed.
	ErrMilestonesAlreadyInDispute = errors.New("milestones already in dispute")
	// ErrOnlyContributorsCanVote - vote weight comes from contributions.
	ErrOnlyContributorsCanVote = errors.New("only contributors can vote")
	// ErrProjectWithdrawn - the project was cancelled.
	ErrProjectWithdrawn = errors.New("project withdrawn")
	// ErrNoAvailableFundsToWithdraw - nothing unlocked beyond what was taken.
	ErrNoAvailableFundsToWithdraw = errors.New("no available funds to withdraw")
	// ErrOverflow - a per-block expiry bucket is at capacity, retry next block.
	ErrOverflow = errors.New("round expiry bucket overflow")
	// ErrRoundStarted - a round of this type is already open.
	ErrRoundStarted = errors.New("round already started")
	// ErrNoActiveRound - no round of this type is open.
	ErrNoActiveRound = errors.New("no active round")
	// ErrVoteAlreadyExists - no-confidence votes cannot be changed.
	ErrVoteAlreadyExists = errors.New("vote already exists")
	// ErrVoteThresholdNotMet - the stored weight does not clear the threshold.
	ErrVoteThresholdNotMet = errors.New("vote threshold not met")
	// ErrTooManyMilestones - milestone list exceeds the configured bound.
	ErrTooManyMilestones = errors.New("too many milestones")
	// ErrTooManyContributors - contribution map exceeds the configured bound.
	ErrTooManyContributors = errors.New("too many contributors")
	// ErrTooManyProjects - the initiator's completed-projects list is full.
	ErrTooManyProjects = errors.New("too many completed projects")
	// ErrNoContributions - a project cannot exist without raised funds.
	ErrNoContributions = errors.New("no contributions")
	// ErrNoMilestones - a project needs at least one unlock gate.
	ErrNoMilestones = errors.New("no milestones")
	// ErrMilestonesTotalPercentageMustEqual100 - unlock percentages must account
	// for every raised unit, no more and no less.
	ErrMilestonesTotalPercentageMustEqual100 = errors.New("milestone percentages must total 100")
	// ErrNoSpecifiedMilestones - a dispute must name at least one milestone.
	ErrNoSpecifiedMilestones = errors.New("no specified milestones")
)
