package proposals

import (
	"fmt"
	"strconv"

	"fundgate/events"
	"fundgate/host"
)

// Withdraw pays the initiator everything unlocked by approved milestones that
// has not been taken yet, minus the protocol fee. The call is all or nothing:
// both transfers are checked against the custody balance up front, and state
// only mutates after the money moved. Withdrawing the last unit concludes the
// project.
func (e *Engine) Withdraw(who host.Address, projectKey ProjectKey) error {
	p, ok := e.Get(projectKey)
	if !ok {
		return ErrProjectDoesNotExist
	}
	if p.Initiator != who {
		return ErrUserIsNotInitiator
	}
	if p.Cancelled {
		return ErrProjectWithdrawn
	}

	unlockedPct := 0
	for _, m := range p.Milestones {
		if m.IsApproved {
			unlockedPct += int(m.PercentageToUnlock)
		}
	}
	unlocked := mulFloorPercent(p.RaisedFunds, uint64(unlockedPct))
	if unlocked > p.RaisedFunds {
		// Conversion enforces a 100% total, so this only trips on a record
		// written before that invariant held. Raised funds are the ceiling.
		unlocked = p.RaisedFunds
	}
	if unlocked <= p.WithdrawnFunds {
		return ErrNoAvailableFundsToWithdraw
	}
	withdrawable := unlocked - p.WithdrawnFunds
	fee := mulFloorPercent(withdrawable, uint64(e.params.ProtocolFeePercent))
	principal := withdrawable - fee

	concludes := p.WithdrawnFunds+withdrawable == p.RaisedFunds
	if concludes {
		// The bounded completed-projects list must have room before any
		// money moves, otherwise the call could not conclude atomically.
		if len(e.CompletedProjects(who)) >= e.params.MaxCompletedProjectsPerAccount {
			return ErrTooManyProjects
		}
	}

	account := e.projectAccount(projectKey)
	if free := e.ledger.FreeBalance(p.CurrencyID, account); free < withdrawable {
		return fmt.Errorf("custody account holds %d, need %d: %w", free, withdrawable, ErrNoAvailableFundsToWithdraw)
	}
	if fee > 0 {
		if err := e.ledger.Transfer(p.CurrencyID, account, host.Address(e.params.FeeAccount), fee); err != nil {
			return fmt.Errorf("protocol fee transfer: %w", err)
		}
	}
	if err := e.ledger.Transfer(p.CurrencyID, account, who, principal); err != nil {
		return fmt.Errorf("principal transfer: %w", err)
	}

	p.WithdrawnFunds += withdrawable
	e.sink.Emit(events.E(events.ProjectFundsWithdrawn,
		"project", strconv.FormatUint(projectKey, 10),
		"who", who.String(),
		"amount", strconv.FormatUint(principal, 10),
		"fee", strconv.FormatUint(fee, 10),
	))

	if !concludes {
		e.saveProject(projectKey, p)
		return nil
	}
	e.concludeProject(who, projectKey, p)
	return nil
}

// concludeProject retires a fully withdrawn project: releases the storage
// deposit, records the key on the initiator's completed list and removes all
// engine state for the project.
func (e *Engine) concludeProject(who host.Address, projectKey ProjectKey, p *Project) {
	e.ledger.Unreserve(host.CurrencyNative, who, p.DepositAmount)
	e.saveCompletedProjects(who, append(e.CompletedProjects(who), projectKey))
	e.removeProject(projectKey, p)

	e.sink.Emit(events.E(events.ProjectCompleted,
		"project", strconv.FormatUint(projectKey, 10),
		"initiator", who.String(),
	))
}

// removeProject deletes every record keyed by the project, including any
// rounds that happen to still be open.
func (e *Engine) removeProject(projectKey ProjectKey, p *Project) {
	for mk := range p.Milestones {
		e.closeVotingRound(projectKey, mk)
	}
	if exp, ok := e.Round(projectKey, RoundNoConfidence, 0); ok {
		e.rounds.Remove(exp, roundEntry(projectKey, RoundNoConfidence, 0))
		e.deleteRound(projectKey, RoundNoConfidence, 0)
		e.deleteMilestoneVote(projectKey, RoundNoConfidence, 0)
		e.store.Delete(noConfidenceVotersKey(projectKey))
	}
	e.deleteIndividualVotes(projectKey)
	e.store.Delete(projectsInDisputeKey(projectKey))
	e.store.Delete(projectStoreKey(projectKey))
}
