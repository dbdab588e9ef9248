package proposals

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"fundgate/config"
	"fundgate/events"
	"fundgate/expiry"
	"fundgate/host"
	"fundgate/state"
)

// Engine owns the project table, both round tables and the per-block round
// schedule. Every public operation is transactional per call: it validates
// everything first and only then writes, so a returned error means no visible
// mutation.
type Engine struct {
	store  state.Store
	clock  host.BlockClock
	ledger host.CurrencyLedger
	sink   events.Sink
	log    *zap.Logger

	rounds  *expiry.Index
	raiser  DisputeRaiser
	jury    JuryProvider
	refunds RefundHandler

	params config.Params
}

func NewEngine(
	store state.Store,
	clock host.BlockClock,
	ledger host.CurrencyLedger,
	sink events.Sink,
	log *zap.Logger,
	raiser DisputeRaiser,
	jury JuryProvider,
	refunds RefundHandler,
	params config.Params,
) *Engine {
	return &Engine{
		store:   store,
		clock:   clock,
		ledger:  ledger,
		sink:    sink,
		log:     log,
		rounds:  expiry.New(store, kRoundsExpiring, params.ExpiringRoundsPerBlock),
		raiser:  raiser,
		jury:    jury,
		refunds: refunds,
		params:  params,
	}
}

// projectAccount derives the custody account holding a project's raised
// funds. Derivation is collision-free against user addresses because "//" is
// rejected in those.
func (e *Engine) projectAccount(key ProjectKey) host.Address {
	return host.SubAccount(host.Address(e.params.PalletAccount), key)
}

// mulFloorPercent computes amount*pct/100 rounded down, without the overflow
// a naive amount*pct would hit near the top of the balance range.
func mulFloorPercent(amount host.Balance, pct uint64) host.Balance {
	return (amount/100)*pct + (amount%100)*pct/100
}

// threshold is the weight a side needs to settle a round.
func (e *Engine) threshold(raised host.Balance) host.Balance {
	return mulFloorPercent(raised, uint64(e.params.PercentRequiredForVoteToPass))
}

// ConvertToProject is the conversion capability consumed by the brief and
// grant surfaces. Contributions arrive reserved in the contributors' own
// accounts; conversion moves them into the project's custody account, except
// for treasury funding where the money is already parked there by the
// treasury pipeline.
func (e *Engine) ConvertToProject(
	currency host.CurrencyID,
	contributions map[host.Address]Contribution,
	agreementHash AgreementHash,
	beneficiary host.Address,
	milestones []ProposedMilestone,
	fundingType FundingType,
) (ProjectKey, error) {
	if !beneficiary.IsValid() {
		return 0, fmt.Errorf("invalid beneficiary %q", beneficiary)
	}
	if len(milestones) == 0 {
		return 0, ErrNoMilestones
	}
	if len(milestones) > e.params.MaxMilestonesPerProject {
		return 0, ErrTooManyMilestones
	}
	if len(contributions) == 0 {
		return 0, ErrNoContributions
	}
	if len(contributions) > e.params.MaxContributorsPerProject {
		return 0, ErrTooManyContributors
	}
	totalPct := 0
	for _, pm := range milestones {
		totalPct += int(pm.PercentageToUnlock)
	}
	if totalPct != 100 {
		return 0, ErrMilestonesTotalPercentageMustEqual100
	}

	var raised host.Balance
	for _, c := range contributions {
		raised += c.Value
	}

	// Reserve the deposit before any contribution moves: a beneficiary who
	// cannot cover it aborts the conversion with nothing touched.
	deposit := e.params.ProjectStorageDeposit
	if err := e.ledger.Reserve(host.CurrencyNative, beneficiary, deposit); err != nil {
		return 0, fmt.Errorf("reserve storage deposit: %w", err)
	}

	// The key is derived here but only persisted once the record lands.
	key := e.ProjectCount() + 1
	account := e.projectAccount(key)

	if fundingType != FundingTreasury {
		// The originating surface reserved every contribution before calling
		// in, so a failing transfer here means the host broke that invariant.
		// Wind back whatever this call already moved regardless; the
		// contributors must not pay for a host fault.
		collected := make([]host.Address, 0, len(contributions))
		for who, c := range contributions {
			e.ledger.Unreserve(currency, who, c.Value)
			if err := e.ledger.Transfer(currency, who, account, c.Value); err != nil {
				e.ledger.Reserve(currency, who, c.Value) //nolint:errcheck
				for _, prev := range collected {
					e.ledger.Transfer(currency, account, prev, contributions[prev].Value) //nolint:errcheck
					e.ledger.Reserve(currency, prev, contributions[prev].Value)           //nolint:errcheck
				}
				e.ledger.Unreserve(host.CurrencyNative, beneficiary, deposit)
				return 0, fmt.Errorf("collect contribution of %s: %w", who, err)
			}
			collected = append(collected, who)
		}
	}

	e.setProjectCount(key)
	ms := make(map[MilestoneKey]Milestone, len(milestones))
	for i, pm := range milestones {
		mk := MilestoneKey(i)
		ms[mk] = Milestone{
			ProjectKey:         key,
			MilestoneKey:       mk,
			PercentageToUnlock: pm.PercentageToUnlock,
		}
	}

	e.saveProject(key, &Project{
		AgreementHash: agreementHash,
		Milestones:    ms,
		Contributions: contributions,
		CurrencyID:    currency,
		RaisedFunds:   raised,
		Initiator:     beneficiary,
		CreatedOn:     e.clock.Number(),
		FundingType:   fundingType,
		DepositAmount: deposit,
	})
	e.saveIndividualVotes(key, make(individualVotes))

	e.sink.Emit(events.E(events.ProjectCreated,
		"project", strconv.FormatUint(key, 10),
		"initiator", beneficiary.String(),
		"raised", strconv.FormatUint(raised, 10),
		"currency", string(currency),
		"funding", fundingType.String(),
	))
	return key, nil
}

// SubmitMilestone opens the voting round for a milestone. Initiator only, one
// open round per milestone, approved milestones are final.
func (e *Engine) SubmitMilestone(who host.Address, projectKey ProjectKey, milestoneKey MilestoneKey) error {
	p, ok := e.Get(projectKey)
	if !ok {
		return ErrProjectDoesNotExist
	}
	if p.Cancelled {
		return ErrProjectWithdrawn
	}
	if p.Initiator != who {
		return ErrUserIsNotInitiator
	}
	m, ok := p.Milestones[milestoneKey]
	if !ok {
		return ErrMilestoneDoesNotExist
	}
	if m.IsApproved {
		return ErrMilestoneAlreadyApproved
	}
	if e.MilestonesInDispute(projectKey)[milestoneKey] {
		return ErrMilestonesAlreadyInDispute
	}
	if _, open := e.Round(projectKey, RoundVoting, milestoneKey); open {
		return ErrRoundStarted
	}

	expiration := e.clock.Number() + e.params.MilestoneVotingWindow
	if err := e.rounds.Insert(expiration, roundEntry(projectKey, RoundVoting, milestoneKey)); err != nil {
		return fmt.Errorf("%w: block %d", ErrOverflow, expiration)
	}
	e.saveRound(projectKey, RoundVoting, milestoneKey, expiration)
	e.saveMilestoneVote(projectKey, RoundVoting, milestoneKey, &Vote{})
	// A fresh round must not inherit ballots from an earlier one.
	iv := e.loadIndividualVotes(projectKey)
	if _, stale := iv[milestoneKey]; stale {
		delete(iv, milestoneKey)
		e.saveIndividualVotes(projectKey, iv)
	}

	e.sink.Emit(events.E(events.VotingRoundCreated,
		"project", strconv.FormatUint(projectKey, 10),
		"milestone", strconv.FormatUint(milestoneKey, 10),
		"expires", strconv.FormatUint(expiration, 10),
	))
	e.sink.Emit(events.E(events.MilestoneSubmitted,
		"project", strconv.FormatUint(projectKey, 10),
		"milestone", strconv.FormatUint(milestoneKey, 10),
		"by", who.String(),
	))
	return nil
}

// VoteOnMilestone records a contribution-weighted ballot. A changed mind is
// honoured: the voter's weight is moved from the old side to the new one, so
// the aggregate always equals the sum over current individual ballots. When
// either side reaches the pass threshold the round settles immediately.
func (e *Engine) VoteOnMilestone(who host.Address, projectKey ProjectKey, milestoneKey MilestoneKey, approve bool) error {
	p, ok := e.Get(projectKey)
	if !ok {
		return ErrProjectDoesNotExist
	}
	if p.Cancelled {
		return ErrProjectWithdrawn
	}
	weight, ok := p.contributionOf(who)
	if !ok {
		return ErrOnlyContributorsCanVote
	}
	if _, ok := p.Milestones[milestoneKey]; !ok {
		return ErrMilestoneDoesNotExist
	}
	if e.MilestonesInDispute(projectKey)[milestoneKey] {
		return ErrMilestonesAlreadyInDispute
	}
	if _, open := e.Round(projectKey, RoundVoting, milestoneKey); !open {
		return ErrVotingRoundNotStarted
	}

	vote, ok := e.MilestoneVote(projectKey, RoundVoting, milestoneKey)
	if !ok {
		return ErrVotingRoundNotStarted
	}
	iv := e.loadIndividualVotes(projectKey)
	ballots := iv[milestoneKey]
	if ballots == nil {
		ballots = make(map[host.Address]bool)
		iv[milestoneKey] = ballots
	}
	if prev, voted := ballots[who]; voted {
		// Overwrite: pull the earlier ballot's weight before adding the new
		// one. A same-value repeat is a harmless net no-op.
		if prev {
			vote.Yay -= weight
		} else {
			vote.Nay -= weight
		}
	}
	if approve {
		vote.Yay += weight
	} else {
		vote.Nay += weight
	}
	ballots[who] = approve

	e.saveMilestoneVote(projectKey, RoundVoting, milestoneKey, vote)
	e.saveIndividualVotes(projectKey, iv)

	e.sink.Emit(events.E(events.VoteSubmitted,
		"project", strconv.FormatUint(projectKey, 10),
		"milestone", strconv.FormatUint(milestoneKey, 10),
		"who", who.String(),
		"vote", strconv.FormatBool(approve),
		"weight", strconv.FormatUint(weight, 10),
	))

	threshold := e.threshold(p.RaisedFunds)
	if vote.Yay >= threshold {
		return e.settleMilestone(p, projectKey, milestoneKey, vote, true)
	}
	if vote.Nay >= threshold {
		return e.settleMilestone(p, projectKey, milestoneKey, vote, false)
	}
	return nil
}

// settleMilestone closes a voting round with a verdict. Approval is recorded
// on the milestone; rejection just ends the round, the initiator may submit
// again.
func (e *Engine) settleMilestone(p *Project, projectKey ProjectKey, milestoneKey MilestoneKey, vote *Vote, approved bool) error {
	if approved {
		m := p.Milestones[milestoneKey]
		m.IsApproved = true
		p.Milestones[milestoneKey] = m
		vote.IsApproved = true
		e.saveProject(projectKey, p)
	}
	e.closeVotingRound(projectKey, milestoneKey)

	kind := events.MilestoneApproved
	if !approved {
		kind = events.MilestoneRejected
	}
	e.sink.Emit(events.E(kind,
		"project", strconv.FormatUint(projectKey, 10),
		"milestone", strconv.FormatUint(milestoneKey, 10),
		"yay", strconv.FormatUint(vote.Yay, 10),
		"nay", strconv.FormatUint(vote.Nay, 10),
	))
	return nil
}

// closeVotingRound tears down the round state of a milestone: forward entry,
// schedule entry, tally and individual ballots.
func (e *Engine) closeVotingRound(projectKey ProjectKey, milestoneKey MilestoneKey) {
	if exp, ok := e.Round(projectKey, RoundVoting, milestoneKey); ok {
		e.rounds.Remove(exp, roundEntry(projectKey, RoundVoting, milestoneKey))
		e.deleteRound(projectKey, RoundVoting, milestoneKey)
	}
	e.deleteMilestoneVote(projectKey, RoundVoting, milestoneKey)

	iv := e.loadIndividualVotes(projectKey)
	if _, ok := iv[milestoneKey]; ok {
		delete(iv, milestoneKey)
		e.saveIndividualVotes(projectKey, iv)
	}
}
