// Package disputes implements the jury-based dispute state machine: an
// externally keyed dispute with a fixed panel, boolean votes, unanimous
// auto-finalisation, a one-shot time extension and a per-block sweep that
// settles whatever reached its expiry height.
package disputes

import (
	"errors"

	"fundgate/host"
)

// DisputeKey identifies a dispute. The raiser supplies it; the project engine
// uses its project keys here.
type DisputeKey = uint64

// SpecificID names the entities a dispute is raised on, milestone keys in
// practice.
type SpecificID = uint64

// Result is the binary outcome handed to the completion hook.
type Result uint8

const (
	ResultFailure Result = 0
	ResultSuccess Result = 1
)

// String prints the result as lower-case text for events and logs.
func (r Result) String() string {
	if r == ResultSuccess {
		return "success"
	}
	return "failure"
}

// Dispute is the stored record of one open dispute.
type Dispute struct {
	RaisedBy   host.Address          `json:"raised_by"`
	Votes      map[host.Address]bool `json:"votes"`
	Jury       []host.Address        `json:"jury"`
	Specifiers []SpecificID          `json:"specifiers"`
	IsExtended bool                  `json:"is_extended"`
	Expiration uint64                `json:"expiration"`
}

// onJury reports whether who sits on this dispute's panel.
func (d *Dispute) onJury(who host.Address) bool {
	for _, j := range d.Jury {
		if j == who {
			return true
		}
	}
	return false
}

// winner settles a dispute that ran out its clock: simple count comparison,
// yays win ties.
func (d *Dispute) winner() Result {
	yay := 0
	for _, v := range d.Votes {
		if v {
			yay++
		}
	}
	if yay >= len(d.Votes)-yay {
		return ResultSuccess
	}
	return ResultFailure
}

// CompletionHandler is the callback into whichever module raised the dispute.
// A failing handler is logged and swallowed so a dispute is always cleared.
type CompletionHandler interface {
	OnDisputeComplete(key DisputeKey, specifiers []SpecificID, result Result) error
}

var (
	// ErrDisputeDoesNotExist - the dispute key is absent (or already finalised).
	ErrDisputeDoesNotExist = errors.New("dispute does not exist")
	// ErrDisputeAlreadyExists - the dispute key is taken.
	ErrDisputeAlreadyExists = errors.New("dispute already exists")
	// ErrNotAJuryAccount - the caller is not on the dispute's panel.
	ErrNotAJuryAccount = errors.New("not a jury account")
	// ErrTooManyDisputesThisBlock - the finalise bucket for the target block is full, retry next block.
	ErrTooManyDisputesThisBlock = errors.New("too many disputes this block")
	// ErrDisputeAlreadyExtended - a dispute can be extended exactly once.
	ErrDisputeAlreadyExtended = errors.New("dispute already extended")
	// ErrTooManyDisputeVotes - the vote map would exceed the panel bound.
	ErrTooManyDisputeVotes = errors.New("too many dispute votes")
	// ErrTooManyJurors - the proposed panel exceeds the configured bound.
	ErrTooManyJurors = errors.New("too many jurors")
	// ErrTooManySpecifics - the dispute names more entities than allowed.
	ErrTooManySpecifics = errors.New("too many specifics")
	// ErrEmptyJury - a dispute without a panel could never finalise by vote.
	ErrEmptyJury = errors.New("empty jury")
)
