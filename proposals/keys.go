package proposals

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"fundgate/host"
)

// Storage key prefixes for the project engine. Disjoint from the dispute
// engine's 0x30 range so both can share one store.
const (
	// kProject stores encoded Project records.
	kProject byte = 0x10
	// kProjectCount holds the monotonically increasing key counter.
	kProjectCount byte = 0x11
	// kMilestoneVote stores the aggregate Vote of an open round.
	kMilestoneVote byte = 0x12
	// kIndividualVotes stores per-project individual milestone ballots.
	kIndividualVotes byte = 0x13
	// kRound maps (project, round type, milestone) to its expiry block.
	kRound byte = 0x14
	// kRoundsExpiring holds the per-block round buckets (managed by expiry.Index).
	kRoundsExpiring byte = 0x15
	// kNoConfidenceVoters records who already voted in a no-confidence round.
	kNoConfidenceVoters byte = 0x16
	// kProjectsInDispute marks milestones locked behind an open dispute.
	kProjectsInDispute byte = 0x17
	// kCompletedProjects lists concluded project keys per initiator.
	kCompletedProjects byte = 0x18
	// kStorageVersion marks the on-disk layout generation.
	kStorageVersion byte = 0x19
)

// StorageVersion is bumped whenever the encoded layout changes shape.
const StorageVersion = "v1"

func packU64LEInline(x uint64, dst []byte) {
	dst[0] = byte(x)
	dst[1] = byte(x >> 8)
	dst[2] = byte(x >> 16)
	dst[3] = byte(x >> 24)
	dst[4] = byte(x >> 32)
	dst[5] = byte(x >> 40)
	dst[6] = byte(x >> 48)
	dst[7] = byte(x >> 56)
}

func prefixedU64(prefix byte, x uint64) string {
	var buf [9]byte
	buf[0] = prefix
	packU64LEInline(x, buf[1:])
	return string(buf[:])
}

func projectStoreKey(key ProjectKey) string {
	return prefixedU64(kProject, key)
}

func milestoneVoteKey(project ProjectKey, roundType RoundType, milestone MilestoneKey) string {
	var buf [18]byte
	buf[0] = kMilestoneVote
	packU64LEInline(project, buf[1:])
	buf[9] = byte(roundType)
	packU64LEInline(milestone, buf[10:])
	return string(buf[:])
}

func individualVotesKey(project ProjectKey) string {
	return prefixedU64(kIndividualVotes, project)
}

func roundStoreKey(project ProjectKey, roundType RoundType, milestone MilestoneKey) string {
	var buf [18]byte
	buf[0] = kRound
	packU64LEInline(project, buf[1:])
	buf[9] = byte(roundType)
	packU64LEInline(milestone, buf[10:])
	return string(buf[:])
}

func noConfidenceVotersKey(project ProjectKey) string {
	return prefixedU64(kNoConfidenceVoters, project)
}

func projectsInDisputeKey(project ProjectKey) string {
	return prefixedU64(kProjectsInDispute, project)
}

func completedProjectsKey(who host.Address) string {
	return string(kCompletedProjects) + string(who)
}

// roundEntry encodes a round identity for the expiring-rounds bucket.
func roundEntry(project ProjectKey, roundType RoundType, milestone MilestoneKey) string {
	return fmt.Sprintf("%d:%d:%d", project, roundType, milestone)
}

// parseRoundEntry is the inverse; a garbled entry is skipped by the sweep.
func parseRoundEntry(s string) (project ProjectKey, roundType RoundType, milestone MilestoneKey, ok bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	p, err1 := strconv.ParseUint(parts[0], 10, 64)
	rt, err2 := strconv.ParseUint(parts[1], 10, 8)
	m, err3 := strconv.ParseUint(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || rt > uint64(RoundNoConfidence) {
		return 0, 0, 0, false
	}
	return p, RoundType(rt), m, true
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
