// Package events is the append-only observability surface of the engines.
// Every successful state transition emits exactly one event to the configured
// sink; sinks must not fail, they either record or log.
package events

// Kind names a state transition.
type Kind string

const (
	ProjectCreated             Kind = "project_created"
	MilestoneSubmitted         Kind = "milestone_submitted"
	VotingRoundCreated         Kind = "voting_round_created"
	VoteSubmitted              Kind = "vote_submitted"
	MilestoneApproved          Kind = "milestone_approved"
	MilestoneRejected          Kind = "milestone_rejected"
	VotingRoundExpired         Kind = "voting_round_expired"
	ProjectFundsWithdrawn      Kind = "project_funds_withdrawn"
	ProjectCompleted           Kind = "project_completed"
	NoConfidenceRoundCreated   Kind = "no_confidence_round_created"
	NoConfidenceRoundVotedUpon Kind = "no_confidence_round_voted_upon"
	NoConfidenceRoundFinalised Kind = "no_confidence_round_finalised"
	NoConfidenceRoundExpired   Kind = "no_confidence_round_expired"
	DisputeRaised              Kind = "dispute_raised"
	DisputeVotedOn             Kind = "dispute_voted_on"
	DisputeCompleted           Kind = "dispute_completed"
	DisputeExtended            Kind = "dispute_extended"
	DisputeForced              Kind = "dispute_forced"
)

// Event is one emitted transition. Attrs hold the terse key/value pairs the
// explorers index on (ids, accounts, amounts as decimal strings).
type Event struct {
	Kind  Kind
	Attrs map[string]string
}

// E builds an event from alternating key/value pairs so emit call sites stay
// one-liners.
func E(kind Kind, kv ...string) Event {
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return Event{Kind: kind, Attrs: attrs}
}

type Sink interface {
	Emit(e Event)
}
