package proposals_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundgate/events"
	"fundgate/host"
	"fundgate/proposals"
)

// =============================================================================
// Conversion
// =============================================================================

func TestConvertToProjectMovesFundsIntoCustody(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)

	p, ok := f.projects.Get(key)
	require.True(t, ok)
	assert.Equal(t, alice, p.Initiator)
	assert.Equal(t, host.Balance(1_000_000), p.RaisedFunds)
	assert.Equal(t, host.Balance(0), p.WithdrawnFunds)
	assert.Len(t, p.Milestones, 3)
	assert.False(t, p.Milestones[0].IsApproved)

	// Contributions left the contributors and landed in custody.
	assert.Equal(t, host.Balance(1_000_000), f.ledger.FreeBalance(testCurrency, f.custodyAccount(key)))
	assert.Equal(t, host.Balance(0), f.ledger.FreeBalance(testCurrency, bob))
	assert.Equal(t, host.Balance(0), f.ledger.ReservedBalance(testCurrency, bob))

	// Storage deposit locked on the initiator.
	assert.Equal(t, testDeposit, f.ledger.ReservedBalance(host.CurrencyNative, alice))

	last := f.sink.OfKind(events.ProjectCreated)
	require.Len(t, last, 1)
	assert.Equal(t, "1000000", last[0].Attrs["raised"])
}

func TestConvertToProjectKeysAreSequential(t *testing.T) {
	f := newFixture(t)
	first := f.createProject(t)
	second := f.createProject(t)
	assert.Equal(t, first+1, second)
	assert.Equal(t, uint64(2), f.projects.ProjectCount())
}

func TestConvertToProjectRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	contributions := map[host.Address]proposals.Contribution{bob: {Value: 100}}
	ms := []proposals.ProposedMilestone{{PercentageToUnlock: 100}}

	_, err := f.projects.ConvertToProject(testCurrency, contributions, "0x00", alice, nil, proposals.FundingProposal)
	assert.ErrorIs(t, err, proposals.ErrNoMilestones)

	_, err = f.projects.ConvertToProject(testCurrency, nil, "0x00", alice, ms, proposals.FundingProposal)
	assert.ErrorIs(t, err, proposals.ErrNoContributions)

	tooMany := make([]proposals.ProposedMilestone, f.params.MaxMilestonesPerProject+1)
	_, err = f.projects.ConvertToProject(testCurrency, contributions, "0x00", alice, tooMany, proposals.FundingProposal)
	assert.ErrorIs(t, err, proposals.ErrTooManyMilestones)
}

// TestConvertToProjectRequiresPercentagesTotal100 checks the unlock schedule
// accounts for every raised unit: one off either way is refused, exactly 100
// converts.
func TestConvertToProjectRequiresPercentagesTotal100(t *testing.T) {
	f := newFixture(t)
	f.fundAndReserve(t, bob, bobStake)
	f.ledger.Deposit(host.CurrencyNative, alice, testDeposit)
	contributions := map[host.Address]proposals.Contribution{bob: {Value: bobStake}}

	for _, percentages := range [][]uint8{{40, 30, 29}, {40, 30, 31}, {100, 100, 100}} {
		ms := make([]proposals.ProposedMilestone, len(percentages))
		for i, pct := range percentages {
			ms[i] = proposals.ProposedMilestone{PercentageToUnlock: pct}
		}
		_, err := f.projects.ConvertToProject(testCurrency, contributions, "0x00", alice, ms, proposals.FundingProposal)
		assert.ErrorIs(t, err, proposals.ErrMilestonesTotalPercentageMustEqual100)
		// Refusal leaves the world untouched.
		assert.Equal(t, bobStake, f.ledger.ReservedBalance(testCurrency, bob))
		assert.Equal(t, uint64(0), f.projects.ProjectCount())
	}

	_, err := f.projects.ConvertToProject(testCurrency, contributions, "0x00", alice,
		[]proposals.ProposedMilestone{{PercentageToUnlock: 40}, {PercentageToUnlock: 30}, {PercentageToUnlock: 30}},
		proposals.FundingProposal)
	assert.NoError(t, err)
}

// TestConvertToProjectAbortsCleanlyWithoutDeposit checks a beneficiary who
// cannot cover the storage deposit aborts the conversion with no contribution
// moved and no key burned.
func TestConvertToProjectAbortsCleanlyWithoutDeposit(t *testing.T) {
	f := newFixture(t)
	f.fundAndReserve(t, bob, bobStake)
	// Alice holds no native balance at all.

	_, err := f.projects.ConvertToProject(
		testCurrency,
		map[host.Address]proposals.Contribution{bob: {Value: bobStake}},
		"0x00", alice,
		[]proposals.ProposedMilestone{{PercentageToUnlock: 100}},
		proposals.FundingProposal,
	)
	require.ErrorIs(t, err, host.ErrInsufficientBalance)

	// Bob's stake never left reservation and no custody account was funded.
	assert.Equal(t, bobStake, f.ledger.ReservedBalance(testCurrency, bob))
	assert.Equal(t, host.Balance(0), f.ledger.FreeBalance(testCurrency, bob))
	assert.Equal(t, host.Balance(0), f.ledger.FreeBalance(testCurrency, f.custodyAccount(1)))
	assert.Equal(t, uint64(0), f.projects.ProjectCount())
	_, ok := f.projects.Get(1)
	assert.False(t, ok)

	// Once funded, the very same conversion goes through under key 1.
	f.ledger.Deposit(host.CurrencyNative, alice, testDeposit)
	key, err := f.projects.ConvertToProject(
		testCurrency,
		map[host.Address]proposals.Contribution{bob: {Value: bobStake}},
		"0x00", alice,
		[]proposals.ProposedMilestone{{PercentageToUnlock: 100}},
		proposals.FundingProposal,
	)
	require.NoError(t, err)
	assert.Equal(t, proposals.ProjectKey(1), key)
	assert.Equal(t, bobStake, f.ledger.FreeBalance(testCurrency, f.custodyAccount(key)))
}

func TestConvertToProjectTreasurySkipsCollection(t *testing.T) {
	f := newFixture(t)
	f.ledger.Deposit(host.CurrencyNative, alice, testDeposit)
	// Nothing reserved anywhere: treasury funding means the money is already
	// parked in custody by the treasury pipeline.
	key, err := f.projects.ConvertToProject(
		testCurrency,
		map[host.Address]proposals.Contribution{bob: {Value: 5_000}},
		"0x00", alice,
		[]proposals.ProposedMilestone{{PercentageToUnlock: 100}},
		proposals.FundingTreasury,
	)
	require.NoError(t, err)
	p, ok := f.projects.Get(key)
	require.True(t, ok)
	assert.Equal(t, proposals.FundingTreasury, p.FundingType)
	assert.Equal(t, host.Balance(0), f.ledger.FreeBalance(testCurrency, f.custodyAccount(key)))
}

// =============================================================================
// Milestone submission
// =============================================================================

func TestSubmitMilestoneOpensRound(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)

	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))

	exp, open := f.projects.Round(key, proposals.RoundVoting, 0)
	require.True(t, open)
	assert.Equal(t, f.clock.Number()+f.params.MilestoneVotingWindow, exp)
	assert.Len(t, f.sink.OfKind(events.VotingRoundCreated), 1)
	assert.Len(t, f.sink.OfKind(events.MilestoneSubmitted), 1)
}

func TestSubmitMilestoneGuards(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)

	assert.ErrorIs(t, f.projects.SubmitMilestone(bob, key, 0), proposals.ErrUserIsNotInitiator)
	assert.ErrorIs(t, f.projects.SubmitMilestone(alice, key, 99), proposals.ErrMilestoneDoesNotExist)
	assert.ErrorIs(t, f.projects.SubmitMilestone(alice, key+100, 0), proposals.ErrProjectDoesNotExist)

	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))
	assert.ErrorIs(t, f.projects.SubmitMilestone(alice, key, 0), proposals.ErrRoundStarted)

	f.submitAndApprove(t, key, 1)
	assert.ErrorIs(t, f.projects.SubmitMilestone(alice, key, 1), proposals.ErrMilestoneAlreadyApproved)
}

// =============================================================================
// Milestone voting
// =============================================================================

func TestVoteOnMilestoneApprovesAtThreshold(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)
	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))

	// 600k of 1M is short of the 75% threshold, the round stays open.
	require.NoError(t, f.projects.VoteOnMilestone(bob, key, 0, true))
	p, _ := f.projects.Get(key)
	assert.False(t, p.Milestones[0].IsApproved)
	_, open := f.projects.Round(key, proposals.RoundVoting, 0)
	assert.True(t, open)

	// Charlie's 400k tips it over: approved and settled on the spot.
	require.NoError(t, f.projects.VoteOnMilestone(charlie, key, 0, true))
	p, _ = f.projects.Get(key)
	assert.True(t, p.Milestones[0].IsApproved)
	_, open = f.projects.Round(key, proposals.RoundVoting, 0)
	assert.False(t, open)
	_, voteStored := f.projects.MilestoneVote(key, proposals.RoundVoting, 0)
	assert.False(t, voteStored)
	assert.Len(t, f.sink.OfKind(events.MilestoneApproved), 1)
}

func TestVoteOnMilestoneRejectsAtThreshold(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)
	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))

	require.NoError(t, f.projects.VoteOnMilestone(bob, key, 0, false))
	require.NoError(t, f.projects.VoteOnMilestone(charlie, key, 0, false))

	p, _ := f.projects.Get(key)
	assert.False(t, p.Milestones[0].IsApproved)
	assert.Len(t, f.sink.OfKind(events.MilestoneRejected), 1)

	// Rejection ends the round, it does not end the milestone.
	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))
}

// TestVoteOnMilestoneDeltaAdjustsOnChangedVote checks a changed ballot moves
// the voter's whole weight across, so the tally never double-counts.
func TestVoteOnMilestoneDeltaAdjustsOnChangedVote(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)
	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))

	require.NoError(t, f.projects.VoteOnMilestone(bob, key, 0, true))
	require.NoError(t, f.projects.VoteOnMilestone(bob, key, 0, false))

	vote, ok := f.projects.MilestoneVote(key, proposals.RoundVoting, 0)
	require.True(t, ok)
	assert.Equal(t, host.Balance(0), vote.Yay)
	assert.Equal(t, bobStake, vote.Nay)

	// A same-value repeat is an idempotent overwrite, not a double count.
	require.NoError(t, f.projects.VoteOnMilestone(bob, key, 0, false))
	vote, ok = f.projects.MilestoneVote(key, proposals.RoundVoting, 0)
	require.True(t, ok)
	assert.Equal(t, host.Balance(0), vote.Yay)
	assert.Equal(t, bobStake, vote.Nay)

	// Coming back to yay restores the weight and can still settle the round.
	require.NoError(t, f.projects.VoteOnMilestone(bob, key, 0, true))
	require.NoError(t, f.projects.VoteOnMilestone(charlie, key, 0, true))
	p, _ := f.projects.Get(key)
	assert.True(t, p.Milestones[0].IsApproved)
}

func TestVoteOnMilestoneGuards(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)

	assert.ErrorIs(t, f.projects.VoteOnMilestone(bob, key, 0, true), proposals.ErrVotingRoundNotStarted)
	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))
	assert.ErrorIs(t, f.projects.VoteOnMilestone(mallory, key, 0, true), proposals.ErrOnlyContributorsCanVote)
	assert.ErrorIs(t, f.projects.VoteOnMilestone(bob, key, 99, true), proposals.ErrMilestoneDoesNotExist)
	assert.ErrorIs(t, f.projects.VoteOnMilestone(bob, key+100, 0, true), proposals.ErrProjectDoesNotExist)
}

// =============================================================================
// Round expiry sweep
// =============================================================================

func TestVotingRoundExpiresViaSweep(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)
	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))
	require.NoError(t, f.projects.VoteOnMilestone(bob, key, 0, true))

	expiration := f.clock.Number() + f.params.MilestoneVotingWindow
	f.clock.Set(expiration)
	f.projects.OnInitialize(expiration)

	_, open := f.projects.Round(key, proposals.RoundVoting, 0)
	assert.False(t, open)
	p, _ := f.projects.Get(key)
	assert.False(t, p.Milestones[0].IsApproved)
	assert.Len(t, f.sink.OfKind(events.VotingRoundExpired), 1)

	// The milestone goes back through the normal door afterwards.
	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))
}

// TestResubmittedRoundStartsWithCleanBallots checks a voter from an expired
// round counts exactly once in the next one.
func TestResubmittedRoundStartsWithCleanBallots(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)
	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))
	require.NoError(t, f.projects.VoteOnMilestone(bob, key, 0, true))

	expiration := f.clock.Number() + f.params.MilestoneVotingWindow
	f.clock.Set(expiration)
	f.projects.OnInitialize(expiration)

	require.NoError(t, f.projects.SubmitMilestone(alice, key, 0))
	vote, ok := f.projects.MilestoneVote(key, proposals.RoundVoting, 0)
	require.True(t, ok)
	assert.Equal(t, host.Balance(0), vote.Yay, "the new round opens with an empty tally")

	require.NoError(t, f.projects.VoteOnMilestone(bob, key, 0, true))
	vote, _ = f.projects.MilestoneVote(key, proposals.RoundVoting, 0)
	assert.Equal(t, bobStake, vote.Yay, "the earlier round's ballot must not pile on")
}

// TestSweepSkipsSettledRound checks the stale bucket entry of a round that
// settled early is a harmless no-op at its original expiry block.
func TestSweepSkipsSettledRound(t *testing.T) {
	f := newFixture(t)
	key := f.createProject(t)
	expiration := f.clock.Number() + f.params.MilestoneVotingWindow
	f.submitAndApprove(t, key, 0)

	f.clock.Set(expiration)
	f.projects.OnInitialize(expiration)
	assert.Empty(t, f.sink.OfKind(events.VotingRoundExpired))
}
