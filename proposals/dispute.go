package proposals

import (
	"fmt"

	"fundgate/disputes"
	"fundgate/host"
)

// RaiseDispute escalates one or more unapproved milestones to the jury. The
// dispute engine keys the dispute by the project key, so at most one dispute
// per project is open at a time; the named milestones are carried as
// specifiers and locked until the verdict lands.
func (e *Engine) RaiseDispute(who host.Address, projectKey ProjectKey, milestoneKeys []MilestoneKey) error {
	p, ok := e.Get(projectKey)
	if !ok {
		return ErrProjectDoesNotExist
	}
	if p.Cancelled {
		return ErrProjectWithdrawn
	}
	if _, ok := p.contributionOf(who); !ok {
		return ErrOnlyContributorsCanVote
	}
	if len(milestoneKeys) == 0 {
		return ErrNoSpecifiedMilestones
	}
	locked := e.MilestonesInDispute(projectKey)
	for _, mk := range milestoneKeys {
		m, ok := p.Milestones[mk]
		if !ok {
			return ErrMilestoneDoesNotExist
		}
		if m.IsApproved {
			return ErrMilestoneAlreadyApproved
		}
		if locked[mk] {
			return ErrMilestonesAlreadyInDispute
		}
	}

	specifiers := make([]disputes.SpecificID, len(milestoneKeys))
	for i, mk := range milestoneKeys {
		specifiers[i] = disputes.SpecificID(mk)
	}
	if err := e.raiser.RaiseDispute(projectKey, who, e.jury.SelectJury(projectKey), specifiers); err != nil {
		return fmt.Errorf("raise dispute for project %d: %w", projectKey, err)
	}

	for _, mk := range milestoneKeys {
		locked[mk] = true
	}
	e.saveMilestonesInDispute(projectKey, locked)
	return nil
}

// OnDisputeComplete is the disputes.CompletionHandler implementation. It
// always releases the milestone locks; only a successful dispute changes the
// milestones, flagging them refundable. A verdict for a project that has
// since concluded is acknowledged and dropped.
func (e *Engine) OnDisputeComplete(key disputes.DisputeKey, specifiers []disputes.SpecificID, result disputes.Result) error {
	projectKey := ProjectKey(key)

	locked := e.MilestonesInDispute(projectKey)
	for _, s := range specifiers {
		delete(locked, MilestoneKey(s))
	}
	e.saveMilestonesInDispute(projectKey, locked)

	p, ok := e.Get(projectKey)
	if !ok {
		return nil
	}
	if result == disputes.ResultSuccess {
		for _, s := range specifiers {
			mk := MilestoneKey(s)
			if m, ok := p.Milestones[mk]; ok {
				m.CanRefund = true
				p.Milestones[mk] = m
			}
		}
		e.saveProject(projectKey, p)
	}
	return nil
}
