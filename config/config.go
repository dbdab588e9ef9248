// Package config collects every tunable limit and time window of the funding
// engines. All bounds are explicit inputs, never hard-coded in the engines,
// so deployments can size the capacity ceilings and tests can shrink them.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	defaultMilestoneVotingWindow   = 100_800 // ~1 week of 6s blocks
	defaultNoConfidenceTimeLimit   = 201_600 // ~2 weeks
	defaultDisputeVotingTimeLimit  = 100_800
	defaultPercentRequired         = 75
	defaultProtocolFeePercent      = 5
	defaultMaxMilestones           = 10
	defaultMaxContributors         = 5_000
	defaultMaxJurySize             = 9
	defaultMaxSpecifics            = 10
	defaultExpiringRoundsPerBlock  = 100
	defaultMaxDisputesPerBlock     = 1_000
	defaultMaxCompletedProjects    = 100
	defaultProjectStorageDeposit   = 1_000
	defaultFeeAccount              = "system:fee_pot"
	defaultPalletAccount           = "pallet:fundgate"
)

// Params are the runtime constants of both engines.
type Params struct {
	// MilestoneVotingWindow is the length in blocks of a milestone voting round.
	MilestoneVotingWindow uint64
	// NoConfidenceTimeLimit is the longer window for whole-project no-confidence rounds.
	NoConfidenceTimeLimit uint64
	// DisputeVotingTimeLimit is the dispute expiry window, also the one-shot extension length.
	DisputeVotingTimeLimit uint64
	// PercentRequiredForVoteToPass is the inclusive threshold, in percent of
	// raised funds, for milestone and no-confidence votes.
	PercentRequiredForVoteToPass uint8
	// ProtocolFeePercent is taken from every withdrawal and sent to FeeAccount.
	ProtocolFeePercent uint8
	// MaxMilestonesPerProject bounds the milestone map of a project.
	MaxMilestonesPerProject int
	// MaxContributorsPerProject bounds the contribution map of a project.
	MaxContributorsPerProject int
	// MaxJurySize bounds a dispute's panel and therefore its vote map.
	MaxJurySize int
	// MaxSpecifics bounds the milestone keys one dispute may cover.
	MaxSpecifics int
	// ExpiringRoundsPerBlock caps the round-expiry bucket of one block.
	ExpiringRoundsPerBlock int
	// MaxDisputesPerBlock caps the dispute finalise bucket of one block.
	MaxDisputesPerBlock int
	// MaxCompletedProjectsPerAccount bounds the completed-projects list.
	MaxCompletedProjectsPerAccount int
	// ProjectStorageDeposit is reserved from the initiator on project creation
	// and released when the project fully withdraws.
	ProjectStorageDeposit uint64
	// FeeAccount receives the protocol fee.
	FeeAccount string
	// PalletAccount is the base account custody sub-accounts derive from.
	PalletAccount string
}

// Default returns the production parameter set.
func Default() Params {
	return Params{
		MilestoneVotingWindow:          defaultMilestoneVotingWindow,
		NoConfidenceTimeLimit:          defaultNoConfidenceTimeLimit,
		DisputeVotingTimeLimit:         defaultDisputeVotingTimeLimit,
		PercentRequiredForVoteToPass:   defaultPercentRequired,
		ProtocolFeePercent:             defaultProtocolFeePercent,
		MaxMilestonesPerProject:        defaultMaxMilestones,
		MaxContributorsPerProject:      defaultMaxContributors,
		MaxJurySize:                    defaultMaxJurySize,
		MaxSpecifics:                   defaultMaxSpecifics,
		ExpiringRoundsPerBlock:         defaultExpiringRoundsPerBlock,
		MaxDisputesPerBlock:            defaultMaxDisputesPerBlock,
		MaxCompletedProjectsPerAccount: defaultMaxCompletedProjects,
		ProjectStorageDeposit:          defaultProjectStorageDeposit,
		FeeAccount:                     defaultFeeAccount,
		PalletAccount:                  defaultPalletAccount,
	}
}

// Load reads the parameters from the environment (FUNDGATE_* variables) and
// an optional config file, falling back to the defaults.
func Load() (Params, error) {
	v := viper.New()
	v.SetEnvPrefix("fundgate")
	v.AutomaticEnv()
	v.SetConfigName("fundgate")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Params{}, err
		}
	}

	d := Default()
	v.SetDefault("milestone_voting_window", d.MilestoneVotingWindow)
	v.SetDefault("no_confidence_time_limit", d.NoConfidenceTimeLimit)
	v.SetDefault("dispute_voting_time_limit", d.DisputeVotingTimeLimit)
	v.SetDefault("percent_required_for_vote_to_pass", d.PercentRequiredForVoteToPass)
	v.SetDefault("protocol_fee_percent", d.ProtocolFeePercent)
	v.SetDefault("max_milestones_per_project", d.MaxMilestonesPerProject)
	v.SetDefault("max_contributors_per_project", d.MaxContributorsPerProject)
	v.SetDefault("max_jury_size", d.MaxJurySize)
	v.SetDefault("max_specifics", d.MaxSpecifics)
	v.SetDefault("expiring_rounds_per_block", d.ExpiringRoundsPerBlock)
	v.SetDefault("max_disputes_per_block", d.MaxDisputesPerBlock)
	v.SetDefault("max_completed_projects_per_account", d.MaxCompletedProjectsPerAccount)
	v.SetDefault("project_storage_deposit", d.ProjectStorageDeposit)
	v.SetDefault("fee_account", d.FeeAccount)
	v.SetDefault("pallet_account", d.PalletAccount)

	p := Params{
		MilestoneVotingWindow:          v.GetUint64("milestone_voting_window"),
		NoConfidenceTimeLimit:          v.GetUint64("no_confidence_time_limit"),
		DisputeVotingTimeLimit:         v.GetUint64("dispute_voting_time_limit"),
		PercentRequiredForVoteToPass:   uint8(v.GetUint("percent_required_for_vote_to_pass")),
		ProtocolFeePercent:             uint8(v.GetUint("protocol_fee_percent")),
		MaxMilestonesPerProject:        v.GetInt("max_milestones_per_project"),
		MaxContributorsPerProject:      v.GetInt("max_contributors_per_project"),
		MaxJurySize:                    v.GetInt("max_jury_size"),
		MaxSpecifics:                   v.GetInt("max_specifics"),
		ExpiringRoundsPerBlock:         v.GetInt("expiring_rounds_per_block"),
		MaxDisputesPerBlock:            v.GetInt("max_disputes_per_block"),
		MaxCompletedProjectsPerAccount: v.GetInt("max_completed_projects_per_account"),
		ProjectStorageDeposit:          v.GetUint64("project_storage_deposit"),
		FeeAccount:                     v.GetString("fee_account"),
		PalletAccount:                  v.GetString("pallet_account"),
	}
	return p, p.Validate()
}

// Validate rejects parameter sets the engines cannot run with.
func (p Params) Validate() error {
	if p.PercentRequiredForVoteToPass == 0 || p.PercentRequiredForVoteToPass > 100 {
		return fmt.Errorf("percent_required_for_vote_to_pass must be in 1..100, got %d", p.PercentRequiredForVoteToPass)
	}
	if p.ProtocolFeePercent > 99 {
		return fmt.Errorf("protocol_fee_percent must be in 0..99, got %d", p.ProtocolFeePercent)
	}
	if p.MilestoneVotingWindow == 0 || p.NoConfidenceTimeLimit == 0 || p.DisputeVotingTimeLimit == 0 {
		return fmt.Errorf("voting windows must be nonzero")
	}
	if p.MaxJurySize <= 0 || p.MaxSpecifics <= 0 {
		return fmt.Errorf("jury and specifics bounds must be positive")
	}
	if p.ExpiringRoundsPerBlock <= 0 || p.MaxDisputesPerBlock <= 0 {
		return fmt.Errorf("per-block bucket capacities must be positive")
	}
	if p.MaxMilestonesPerProject <= 0 || p.MaxContributorsPerProject <= 0 || p.MaxCompletedProjectsPerAccount <= 0 {
		return fmt.Errorf("project bounds must be positive")
	}
	if p.FeeAccount == "" || p.PalletAccount == "" {
		return fmt.Errorf("fee_account and pallet_account must be set")
	}
	return nil
}
