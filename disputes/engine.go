package disputes

import (
	"fmt"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"fundgate/config"
	"fundgate/events"
	"fundgate/expiry"
	"fundgate/host"
	"fundgate/state"
)

// Engine owns the dispute table and its finalise schedule. All public
// operations are transactional per call: either every write lands or the
// operation fails with no visible mutation.
type Engine struct {
	store      state.Store
	clock      host.BlockClock
	sink       events.Sink
	log        *zap.Logger
	authority  host.AuthorityOrigin
	finaliseOn *expiry.Index

	votingTimeLimit uint64
	maxJurySize     int
	maxSpecifics    int

	handler CompletionHandler
}

func NewEngine(
	store state.Store,
	clock host.BlockClock,
	sink events.Sink,
	log *zap.Logger,
	authority host.AuthorityOrigin,
	params config.Params,
) *Engine {
	return &Engine{
		store:           store,
		clock:           clock,
		sink:            sink,
		log:             log,
		authority:       authority,
		finaliseOn:      expiry.New(store, kFinaliseOn, params.MaxDisputesPerBlock),
		votingTimeLimit: params.DisputeVotingTimeLimit,
		maxJurySize:     params.MaxJurySize,
		maxSpecifics:    params.MaxSpecifics,
	}
}

// SetCompletionHandler wires the module that gets called back when a dispute
// settles. Set once at startup, before any block is processed.
func (e *Engine) SetCompletionHandler(h CompletionHandler) {
	e.handler = h
}

// Get returns a stored dispute, mainly for the query surface and tests.
func (e *Engine) Get(key DisputeKey) (*Dispute, bool) {
	ptr := e.store.Get(disputeKey(key))
	if ptr == nil || *ptr == "" {
		return nil, false
	}
	d, err := decodeDispute(*ptr)
	if err != nil {
		panic(fmt.Errorf("decode dispute %d: %w", key, err))
	}
	return d, true
}

func (e *Engine) save(key DisputeKey, d *Dispute) {
	e.store.Set(disputeKey(key), encodeDispute(d))
}

// RaiseDispute is the capability consumed by the project engine. It never
// fails for a well-formed request unless the key is taken or the finalise
// bucket for the expiry block is already at capacity.
func (e *Engine) RaiseDispute(key DisputeKey, raisedBy host.Address, jury []host.Address, specifiers []SpecificID) error {
	if len(jury) == 0 {
		return ErrEmptyJury
	}
	if len(jury) > e.maxJurySize {
		return ErrTooManyJurors
	}
	if len(specifiers) > e.maxSpecifics {
		return ErrTooManySpecifics
	}
	if _, ok := e.Get(key); ok {
		return ErrDisputeAlreadyExists
	}

	expiration := e.clock.Number() + e.votingTimeLimit
	if err := e.finaliseOn.Insert(expiration, bucketEntry(key)); err != nil {
		return fmt.Errorf("%w: %d", ErrTooManyDisputesThisBlock, expiration)
	}
	e.save(key, &Dispute{
		RaisedBy:   raisedBy,
		Votes:      make(map[host.Address]bool, len(jury)),
		Jury:       jury,
		Specifiers: specifiers,
		IsExtended: false,
		Expiration: expiration,
	})
	e.sink.Emit(events.E(events.DisputeRaised,
		"dispute", bucketEntry(key),
		"by", raisedBy.String(),
		"expires", strconv.FormatUint(expiration, 10),
	))
	return nil
}

// VoteOnDispute records a juror's boolean vote, overwriting any earlier one.
// Once the whole panel has voted, a unanimous result finalises the dispute on
// the spot; a split panel stays open until the sweep, an extension or a
// privileged force call.
func (e *Engine) VoteOnDispute(who host.Address, key DisputeKey, isYay bool) error {
	d, ok := e.Get(key)
	if !ok {
		return ErrDisputeDoesNotExist
	}
	if !d.onJury(who) {
		return ErrNotAJuryAccount
	}
	if _, voted := d.Votes[who]; !voted && len(d.Votes) >= e.maxJurySize {
		// Unreachable while the panel bound equals the vote-map bound, kept
		// as a hard stop against state corruption.
		return ErrTooManyDisputeVotes
	}
	d.Votes[who] = isYay
	e.save(key, d)

	e.sink.Emit(events.E(events.DisputeVotedOn,
		"dispute", bucketEntry(key),
		"who", who.String(),
		"vote", strconv.FormatBool(isYay),
	))

	if len(d.Votes) == len(d.Jury) {
		allYay, allNay := true, true
		for _, v := range d.Votes {
			if v {
				allNay = false
			} else {
				allYay = false
			}
		}
		if allYay {
			return e.tryFinaliseWithResult(key, ResultSuccess, false)
		}
		if allNay {
			return e.tryFinaliseWithResult(key, ResultFailure, false)
		}
	}
	return nil
}

// ExtendDispute pushes the expiry out by one more voting window. One shot per
// dispute, jurors only.
func (e *Engine) ExtendDispute(who host.Address, key DisputeKey) error {
	d, ok := e.Get(key)
	if !ok {
		return ErrDisputeDoesNotExist
	}
	if d.IsExtended {
		return ErrDisputeAlreadyExtended
	}
	if !d.onJury(who) {
		return ErrNotAJuryAccount
	}

	newExpiry := d.Expiration + e.votingTimeLimit
	if err := e.finaliseOn.Insert(newExpiry, bucketEntry(key)); err != nil {
		return fmt.Errorf("%w: %d", ErrTooManyDisputesThisBlock, newExpiry)
	}
	// Make sure the dispute does not settle on the old date. Best-effort,
	// the sweep skips entries whose dispute moved on.
	e.finaliseOn.Remove(d.Expiration, bucketEntry(key))

	d.Expiration = newExpiry
	d.IsExtended = true
	e.save(key, d)

	e.sink.Emit(events.E(events.DisputeExtended,
		"dispute", bucketEntry(key),
		"by", who.String(),
		"expires", strconv.FormatUint(newExpiry, 10),
	))
	return nil
}

// ForceFailDispute settles a dispute as failed, bypassing the jury. Authority
// origin only.
func (e *Engine) ForceFailDispute(origin host.Address, key DisputeKey) error {
	return e.force(origin, key, ResultFailure)
}

// ForceSucceedDispute settles a dispute as succeeded, bypassing the jury.
// Authority origin only.
func (e *Engine) ForceSucceedDispute(origin host.Address, key DisputeKey) error {
	return e.force(origin, key, ResultSuccess)
}

func (e *Engine) force(origin host.Address, key DisputeKey, result Result) error {
	if err := e.authority.EnsureAuthority(origin); err != nil {
		return err
	}
	if _, ok := e.Get(key); !ok {
		return ErrDisputeDoesNotExist
	}
	return e.tryFinaliseWithResult(key, result, true)
}

// OnInitialize is the per-block sweep. It drains the finalise bucket for the
// block and settles every still-open dispute in it by simple count
// comparison. Hook failures are aggregated and logged, never propagated: the
// sweep has no caller to report to and the disputes must clear regardless.
func (e *Engine) OnInitialize(block uint64) {
	var errs error
	for _, entry := range e.finaliseOn.Drain(block) {
		key, ok := parseBucketEntry(entry)
		if !ok {
			continue
		}
		d, ok := e.Get(key)
		if !ok || d.Expiration != block {
			// Stale bucket entry: the dispute finalised early or was moved by
			// an extension. The forward state is authoritative, skip it.
			continue
		}
		if err := e.tryFinaliseWithResult(key, d.winner(), false); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dispute %d: %w", key, err))
		}
	}
	if errs != nil {
		e.log.Warn("dispute sweep finished degraded",
			zap.Uint64("block", block),
			zap.Error(errs),
		)
	}
}

// tryFinaliseWithResult is the single exit path for every dispute: remove the
// record, clean up the schedule, call the completion hook, emit. Guarded by
// the existence check so finalisation is not repeatable.
func (e *Engine) tryFinaliseWithResult(key DisputeKey, result Result, forced bool) error {
	d, ok := e.Get(key)
	if !ok {
		return ErrDisputeDoesNotExist
	}
	e.finaliseOn.Remove(d.Expiration, bucketEntry(key))

	if e.handler != nil {
		if err := e.handler.OnDisputeComplete(key, d.Specifiers, result); err != nil {
			// Swallowed: the dispute must clear even when the subject module
			// cannot apply the outcome.
			e.log.Error("dispute completion hook failed",
				zap.Uint64("dispute", key),
				zap.String("result", result.String()),
				zap.Error(err),
			)
		}
	}
	// Removal is the last step; the hook still sees the settled record.
	e.store.Delete(disputeKey(key))

	kind := events.DisputeCompleted
	if forced {
		kind = events.DisputeForced
	}
	e.sink.Emit(events.E(kind,
		"dispute", bucketEntry(key),
		"result", result.String(),
	))
	return nil
}
