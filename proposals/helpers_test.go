package proposals_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fundgate/config"
	"fundgate/disputes"
	"fundgate/events"
	"fundgate/host"
	"fundgate/proposals"
	"fundgate/state"
)

const (
	alice   = host.Address("user:alice")
	bob     = host.Address("user:bob")
	charlie = host.Address("user:charlie")
	mallory = host.Address("user:mallory")
	juror1  = host.Address("user:juror1")
	juror2  = host.Address("user:juror2")
	rootAcc = host.Address("system:root")

	bobStake     = host.Balance(600_000)
	charlieStake = host.Balance(400_000)
	testDeposit  = host.Balance(500)

	testCurrency = host.CurrencyUSDT
)

// fixture wires both engines against in-memory everything, the way the
// daemon wires them against real storage.
type fixture struct {
	store    *state.MemoryStore
	clock    *host.Counter
	ledger   *host.MockLedger
	sink     *events.MemorySink
	params   config.Params
	projects *proposals.Engine
	juries   *disputes.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	params := config.Default()
	params.ProjectStorageDeposit = testDeposit
	return newFixtureWithParams(t, params)
}

// newFixtureWithCompletedBound shrinks the completed-projects list so its
// overflow path is reachable in a test.
func newFixtureWithCompletedBound(t *testing.T, bound int) *fixture {
	t.Helper()
	params := config.Default()
	params.ProjectStorageDeposit = testDeposit
	params.MaxCompletedProjectsPerAccount = bound
	return newFixtureWithParams(t, params)
}

func newFixtureWithParams(t *testing.T, params config.Params) *fixture {
	t.Helper()
	f := &fixture{
		store:  state.NewMemoryStore(),
		clock:  host.NewCounter(1),
		ledger: host.NewMockLedger(),
		sink:   events.NewMemorySink(),
		params: params,
	}
	log := zap.NewNop()
	f.juries = disputes.NewEngine(f.store, f.clock, f.sink, log, host.NewStaticAuthority(rootAcc), params)
	f.projects = proposals.NewEngine(
		f.store, f.clock, f.ledger, f.sink, log,
		f.juries, proposals.StaticJury{juror1, juror2},
		proposals.NoopRefundHandler{}, params,
	)
	f.juries.SetCompletionHandler(f.projects)
	require.NoError(t, f.projects.EnsureStorageVersion())
	return f
}

// fundAndReserve puts a contribution into an account the way the crowdfunding
// surface would leave it: reserved, waiting for conversion.
func (f *fixture) fundAndReserve(t *testing.T, who host.Address, amount host.Balance) {
	t.Helper()
	f.ledger.Deposit(testCurrency, who, amount)
	require.NoError(t, f.ledger.Reserve(testCurrency, who, amount))
}

// createProject converts the standard two-contributor project: bob 600k,
// charlie 400k, milestones 40/30/30, alice as initiator.
func (f *fixture) createProject(t *testing.T) proposals.ProjectKey {
	t.Helper()
	return f.createProjectWithMilestones(t, []uint8{40, 30, 30})
}

func (f *fixture) createProjectWithMilestones(t *testing.T, percentages []uint8) proposals.ProjectKey {
	t.Helper()
	f.fundAndReserve(t, bob, bobStake)
	f.fundAndReserve(t, charlie, charlieStake)
	f.ledger.Deposit(host.CurrencyNative, alice, testDeposit)

	milestones := make([]proposals.ProposedMilestone, len(percentages))
	for i, pct := range percentages {
		milestones[i] = proposals.ProposedMilestone{PercentageToUnlock: pct}
	}
	key, err := f.projects.ConvertToProject(
		testCurrency,
		map[host.Address]proposals.Contribution{
			bob:     {Value: bobStake, Timestamp: f.clock.Number()},
			charlie: {Value: charlieStake, Timestamp: f.clock.Number()},
		},
		"0xfeedbeef",
		alice,
		milestones,
		proposals.FundingProposal,
	)
	require.NoError(t, err)
	return key
}

// submitAndApprove runs one milestone through its whole round: submission,
// then both contributors voting yay, which clears the 75% threshold.
func (f *fixture) submitAndApprove(t *testing.T, key proposals.ProjectKey, milestone proposals.MilestoneKey) {
	t.Helper()
	require.NoError(t, f.projects.SubmitMilestone(alice, key, milestone))
	require.NoError(t, f.projects.VoteOnMilestone(bob, key, milestone, true))
	require.NoError(t, f.projects.VoteOnMilestone(charlie, key, milestone, true))
}

// custodyAccount mirrors the engine's derivation for balance assertions.
func (f *fixture) custodyAccount(key proposals.ProjectKey) host.Address {
	return host.SubAccount(host.Address(f.params.PalletAccount), key)
}
