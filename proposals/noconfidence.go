package proposals

import (
	"fmt"
	"strconv"

	"fundgate/events"
	"fundgate/host"
)

// RaiseNoConfidenceRound opens the whole-project kill switch. Any contributor
// may raise it; their full weight is recorded as the first nay. One round per
// project at a time.
func (e *Engine) RaiseNoConfidenceRound(who host.Address, projectKey ProjectKey) error {
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
	if _, open := e.Round(projectKey, RoundNoConfidence, 0); open {
		return ErrRoundStarted
	}

	expiration := e.clock.Number() + e.params.NoConfidenceTimeLimit
	if err := e.rounds.Insert(expiration, roundEntry(projectKey, RoundNoConfidence, 0)); err != nil {
		return fmt.Errorf("%w: block %d", ErrOverflow, expiration)
	}
	e.saveRound(projectKey, RoundNoConfidence, 0, expiration)
	e.saveMilestoneVote(projectKey, RoundNoConfidence, 0, &Vote{Nay: weight})
	e.saveNoConfidenceVoters(projectKey, map[host.Address]bool{who: false})

	e.sink.Emit(events.E(events.NoConfidenceRoundCreated,
		"project", strconv.FormatUint(projectKey, 10),
		"by", who.String(),
		"expires", strconv.FormatUint(expiration, 10),
	))
	return nil
}

// VoteOnNoConfidenceRound adds a contributor's weight to one side. Unlike
// milestone ballots these are final, a second vote is rejected outright.
func (e *Engine) VoteOnNoConfidenceRound(who host.Address, projectKey ProjectKey, isYay bool) error {
	p, ok := e.Get(projectKey)
	if !ok {
		return ErrProjectDoesNotExist
	}
	weight, ok := p.contributionOf(who)
	if !ok {
		return ErrOnlyContributorsCanVote
	}
	if _, open := e.Round(projectKey, RoundNoConfidence, 0); !open {
		return ErrNoActiveRound
	}
	voters := e.loadNoConfidenceVoters(projectKey)
	if _, voted := voters[who]; voted {
		return ErrVoteAlreadyExists
	}

	vote, ok := e.MilestoneVote(projectKey, RoundNoConfidence, 0)
	if !ok {
		return ErrNoActiveRound
	}
	if isYay {
		vote.Yay += weight
	} else {
		vote.Nay += weight
	}
	voters[who] = isYay
	e.saveMilestoneVote(projectKey, RoundNoConfidence, 0, vote)
	e.saveNoConfidenceVoters(projectKey, voters)

	e.sink.Emit(events.E(events.NoConfidenceRoundVotedUpon,
		"project", strconv.FormatUint(projectKey, 10),
		"who", who.String(),
		"vote", strconv.FormatBool(isYay),
		"weight", strconv.FormatUint(weight, 10),
	))
	return nil
}

// FinaliseNoConfidenceRound settles the round once the nay side holds the
// pass threshold of raised funds. The project is cancelled and whatever is
// still in custody is routed through the refund handler.
func (e *Engine) FinaliseNoConfidenceRound(who host.Address, projectKey ProjectKey) error {
	p, ok := e.Get(projectKey)
	if !ok {
		return ErrProjectDoesNotExist
	}
	if _, ok := p.contributionOf(who); !ok {
		return ErrOnlyContributorsCanVote
	}
	exp, open := e.Round(projectKey, RoundNoConfidence, 0)
	if !open {
		return ErrNoActiveRound
	}
	vote, ok := e.MilestoneVote(projectKey, RoundNoConfidence, 0)
	if !ok {
		return ErrNoActiveRound
	}
	if vote.Nay < e.threshold(p.RaisedFunds) {
		return ErrVoteThresholdNotMet
	}

	remaining := p.RaisedFunds - p.WithdrawnFunds
	if err := e.refunds.SendRefund(e.projectAccount(projectKey), remaining, p.CurrencyID, p.FundingType); err != nil {
		return fmt.Errorf("refund hand-off: %w", err)
	}

	e.rounds.Remove(exp, roundEntry(projectKey, RoundNoConfidence, 0))
	e.deleteRound(projectKey, RoundNoConfidence, 0)
	e.deleteMilestoneVote(projectKey, RoundNoConfidence, 0)
	e.store.Delete(noConfidenceVotersKey(projectKey))

	p.Cancelled = true
	e.saveProject(projectKey, p)

	e.sink.Emit(events.E(events.NoConfidenceRoundFinalised,
		"project", strconv.FormatUint(projectKey, 10),
		"by", who.String(),
		"refunded", strconv.FormatUint(remaining, 10),
	))
	return nil
}
