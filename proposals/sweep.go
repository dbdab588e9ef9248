package proposals

import (
	"strconv"

	"go.uber.org/zap"

	"fundgate/events"
)

// OnInitialize drains the round schedule for the block and closes every round
// that genuinely expires on it. Rounds settled early leave stale bucket
// entries behind; the forward table is authoritative, so those are skipped.
func (e *Engine) OnInitialize(block uint64) {
	for _, entry := range e.rounds.Drain(block) {
		projectKey, roundType, milestoneKey, ok := parseRoundEntry(entry)
		if !ok {
			e.log.Warn("unparseable round entry dropped",
				zap.Uint64("block", block),
				zap.String("entry", entry),
			)
			continue
		}
		exp, open := e.Round(projectKey, roundType, milestoneKey)
		if !open || exp != block {
			continue
		}
		switch roundType {
		case RoundVoting:
			e.expireVotingRound(projectKey, milestoneKey)
		case RoundNoConfidence:
			e.expireNoConfidenceRound(projectKey)
		}
	}
}

// expireVotingRound ends a milestone round that ran out of time. The
// milestone stays unapproved; the initiator may submit it again.
func (e *Engine) expireVotingRound(projectKey ProjectKey, milestoneKey MilestoneKey) {
	vote, _ := e.MilestoneVote(projectKey, RoundVoting, milestoneKey)
	if vote == nil {
		vote = &Vote{}
	}
	e.closeVotingRound(projectKey, milestoneKey)
	e.sink.Emit(events.E(events.VotingRoundExpired,
		"project", strconv.FormatUint(projectKey, 10),
		"milestone", strconv.FormatUint(milestoneKey, 10),
		"yay", strconv.FormatUint(vote.Yay, 10),
		"nay", strconv.FormatUint(vote.Nay, 10),
	))
}

// expireNoConfidenceRound ends a no-confidence round that never reached the
// threshold. The project continues untouched.
func (e *Engine) expireNoConfidenceRound(projectKey ProjectKey) {
	e.deleteRound(projectKey, RoundNoConfidence, 0)
	e.deleteMilestoneVote(projectKey, RoundNoConfidence, 0)
	e.store.Delete(noConfidenceVotersKey(projectKey))
	e.sink.Emit(events.E(events.NoConfidenceRoundExpired,
		"project", strconv.FormatUint(projectKey, 10),
	))
}
