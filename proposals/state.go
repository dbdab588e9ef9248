package proposals

import (
	"encoding/json"
	"fmt"
	"strconv"

	"fundgate/host"
)

// Accessor layer over the raw store. Decode failures panic: a record we wrote
// that no longer parses is corruption, not an input error.

// Get returns a stored project, for queries and tests.
func (e *Engine) Get(key ProjectKey) (*Project, bool) {
	ptr := e.store.Get(projectStoreKey(key))
	if ptr == nil || *ptr == "" {
		return nil, false
	}
	var p Project
	if err := json.Unmarshal([]byte(*ptr), &p); err != nil {
		panic(fmt.Errorf("decode project %d: %w", key, err))
	}
	if p.Milestones == nil {
		p.Milestones = make(map[MilestoneKey]Milestone)
	}
	if p.Contributions == nil {
		p.Contributions = make(map[host.Address]Contribution)
	}
	return &p, true
}

func (e *Engine) saveProject(key ProjectKey, p *Project) {
	e.store.Set(projectStoreKey(key), encodeJSON(p))
}

// ProjectCount returns the number of keys ever issued.
func (e *Engine) ProjectCount() uint64 {
	ptr := e.store.Get(string(kProjectCount))
	if ptr == nil || *ptr == "" {
		return 0
	}
	n, err := strconv.ParseUint(*ptr, 10, 64)
	if err != nil {
		panic(fmt.Errorf("decode project count: %w", err))
	}
	return n
}

// setProjectCount persists the counter. Keys start at 1 and are never
// reused; callers bump only when the project record is actually stored.
func (e *Engine) setProjectCount(n uint64) {
	e.store.Set(string(kProjectCount), strconv.FormatUint(n, 10))
}

// MilestoneVote returns the aggregate tally of an open round, if any.
func (e *Engine) MilestoneVote(project ProjectKey, roundType RoundType, milestone MilestoneKey) (*Vote, bool) {
	ptr := e.store.Get(milestoneVoteKey(project, roundType, milestone))
	if ptr == nil || *ptr == "" {
		return nil, false
	}
	var v Vote
	if err := json.Unmarshal([]byte(*ptr), &v); err != nil {
		panic(fmt.Errorf("decode vote %d/%s/%d: %w", project, roundType, milestone, err))
	}
	return &v, true
}

func (e *Engine) saveMilestoneVote(project ProjectKey, roundType RoundType, milestone MilestoneKey, v *Vote) {
	e.store.Set(milestoneVoteKey(project, roundType, milestone), encodeJSON(v))
}

func (e *Engine) deleteMilestoneVote(project ProjectKey, roundType RoundType, milestone MilestoneKey) {
	e.store.Delete(milestoneVoteKey(project, roundType, milestone))
}

// individualVotes is the per-project record of who voted which way on which
// milestone, keyed once per project to keep re-vote adjustment a single read.
type individualVotes map[MilestoneKey]map[host.Address]bool

func (e *Engine) loadIndividualVotes(project ProjectKey) individualVotes {
	ptr := e.store.Get(individualVotesKey(project))
	if ptr == nil || *ptr == "" {
		return make(individualVotes)
	}
	// JSON objects key on strings, so the map round-trips through one.
	var raw map[string]map[host.Address]bool
	if err := json.Unmarshal([]byte(*ptr), &raw); err != nil {
		panic(fmt.Errorf("decode individual votes %d: %w", project, err))
	}
	out := make(individualVotes, len(raw))
	for k, v := range raw {
		m, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			panic(fmt.Errorf("decode individual votes %d: bad milestone key %q", project, k))
		}
		out[m] = v
	}
	return out
}

func (e *Engine) saveIndividualVotes(project ProjectKey, iv individualVotes) {
	raw := make(map[string]map[host.Address]bool, len(iv))
	for k, v := range iv {
		raw[strconv.FormatUint(k, 10)] = v
	}
	e.store.Set(individualVotesKey(project), encodeJSON(raw))
}

func (e *Engine) deleteIndividualVotes(project ProjectKey) {
	e.store.Delete(individualVotesKey(project))
}

// Round returns the expiry block of an open round, if one exists.
func (e *Engine) Round(project ProjectKey, roundType RoundType, milestone MilestoneKey) (uint64, bool) {
	ptr := e.store.Get(roundStoreKey(project, roundType, milestone))
	if ptr == nil || *ptr == "" {
		return 0, false
	}
	exp, err := strconv.ParseUint(*ptr, 10, 64)
	if err != nil {
		panic(fmt.Errorf("decode round %d/%s/%d: %w", project, roundType, milestone, err))
	}
	return exp, true
}

func (e *Engine) saveRound(project ProjectKey, roundType RoundType, milestone MilestoneKey, expiry uint64) {
	e.store.Set(roundStoreKey(project, roundType, milestone), strconv.FormatUint(expiry, 10))
}

func (e *Engine) deleteRound(project ProjectKey, roundType RoundType, milestone MilestoneKey) {
	e.store.Delete(roundStoreKey(project, roundType, milestone))
}

func (e *Engine) loadNoConfidenceVoters(project ProjectKey) map[host.Address]bool {
	ptr := e.store.Get(noConfidenceVotersKey(project))
	if ptr == nil || *ptr == "" {
		return make(map[host.Address]bool)
	}
	var voters map[host.Address]bool
	if err := json.Unmarshal([]byte(*ptr), &voters); err != nil {
		panic(fmt.Errorf("decode no-confidence voters %d: %w", project, err))
	}
	return voters
}

func (e *Engine) saveNoConfidenceVoters(project ProjectKey, voters map[host.Address]bool) {
	e.store.Set(noConfidenceVotersKey(project), encodeJSON(voters))
}

// MilestonesInDispute returns the set of milestone keys currently locked
// behind a dispute for the project.
func (e *Engine) MilestonesInDispute(project ProjectKey) map[MilestoneKey]bool {
	ptr := e.store.Get(projectsInDisputeKey(project))
	if ptr == nil || *ptr == "" {
		return make(map[MilestoneKey]bool)
	}
	var keys []MilestoneKey
	if err := json.Unmarshal([]byte(*ptr), &keys); err != nil {
		panic(fmt.Errorf("decode dispute lock %d: %w", project, err))
	}
	set := make(map[MilestoneKey]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func (e *Engine) saveMilestonesInDispute(project ProjectKey, set map[MilestoneKey]bool) {
	if len(set) == 0 {
		e.store.Delete(projectsInDisputeKey(project))
		return
	}
	keys := make([]MilestoneKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	e.store.Set(projectsInDisputeKey(project), encodeJSON(keys))
}

// CompletedProjects lists the keys of projects the account saw through to the
// final withdrawal, newest last.
func (e *Engine) CompletedProjects(who host.Address) []ProjectKey {
	ptr := e.store.Get(completedProjectsKey(who))
	if ptr == nil || *ptr == "" {
		return nil
	}
	var keys []ProjectKey
	if err := json.Unmarshal([]byte(*ptr), &keys); err != nil {
		panic(fmt.Errorf("decode completed projects %s: %w", who, err))
	}
	return keys
}

func (e *Engine) saveCompletedProjects(who host.Address, keys []ProjectKey) {
	e.store.Set(completedProjectsKey(who), encodeJSON(keys))
}

// EnsureStorageVersion stamps a fresh store and refuses a store written by an
// incompatible layout generation.
func (e *Engine) EnsureStorageVersion() error {
	ptr := e.store.Get(string(kStorageVersion))
	if ptr == nil || *ptr == "" {
		e.store.Set(string(kStorageVersion), StorageVersion)
		return nil
	}
	if *ptr != StorageVersion {
		return fmt.Errorf("storage version mismatch: store has %q, engine speaks %q", *ptr, StorageVersion)
	}
	return nil
}
