package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"fundgate/disputes"
	"fundgate/host"
	"fundgate/proposals"
)

type contributionBody struct {
	Value     host.Balance `json:"value"`
	Timestamp uint64       `json:"timestamp"`
}

type convertRequest struct {
	Currency      host.CurrencyID                   `json:"currency"`
	Contributions map[host.Address]contributionBody `json:"contributions"`
	AgreementHash string                            `json:"agreement_hash"`
	Beneficiary   host.Address                      `json:"beneficiary"`
	// Percentages ride as plain numbers; []uint8 would mean base64 to encoding/json.
	Milestones  []int  `json:"milestone_percentages"`
	FundingType string `json:"funding_type"`
}

func parseFundingType(s string) proposals.FundingType {
	switch s {
	case "brief":
		return proposals.FundingBrief
	case "treasury":
		return proposals.FundingTreasury
	default:
		return proposals.FundingProposal
	}
}

func (s *Server) handleConvertToProject(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if !s.decode(w, r, &req) {
		return
	}
	contributions := make(map[host.Address]proposals.Contribution, len(req.Contributions))
	for who, c := range req.Contributions {
		contributions[who] = proposals.Contribution{Value: c.Value, Timestamp: c.Timestamp}
	}
	milestones := make([]proposals.ProposedMilestone, len(req.Milestones))
	for i, pct := range req.Milestones {
		if pct < 0 || pct > 100 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "milestone percentage out of range"})
			return
		}
		milestones[i] = proposals.ProposedMilestone{PercentageToUnlock: uint8(pct)}
	}
	key, err := s.projects.ConvertToProject(
		req.Currency, contributions, req.AgreementHash,
		req.Beneficiary, milestones, parseFundingType(req.FundingType),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]uint64{"project_key": key})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	key, err := pathU64(r, "key")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad project key"})
		return
	}
	p, ok := s.projects.Get(key)
	if !ok {
		s.writeError(w, proposals.ErrProjectDoesNotExist)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

type callerBody struct {
	Who host.Address `json:"who"`
}

type voteBody struct {
	Who     host.Address `json:"who"`
	Approve bool         `json:"approve"`
}

func (s *Server) projectOp(w http.ResponseWriter, r *http.Request, op func(key proposals.ProjectKey) error) {
	key, err := pathU64(r, "key")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad project key"})
		return
	}
	if err := op(key); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmitMilestone(w http.ResponseWriter, r *http.Request) {
	milestone, err := pathU64(r, "milestone")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad milestone key"})
		return
	}
	var req callerBody
	if !s.decode(w, r, &req) {
		return
	}
	s.projectOp(w, r, func(key proposals.ProjectKey) error {
		return s.projects.SubmitMilestone(req.Who, key, milestone)
	})
}

func (s *Server) handleVoteOnMilestone(w http.ResponseWriter, r *http.Request) {
	milestone, err := pathU64(r, "milestone")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad milestone key"})
		return
	}
	var req voteBody
	if !s.decode(w, r, &req) {
		return
	}
	s.projectOp(w, r, func(key proposals.ProjectKey) error {
		return s.projects.VoteOnMilestone(req.Who, key, milestone, req.Approve)
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req callerBody
	if !s.decode(w, r, &req) {
		return
	}
	s.projectOp(w, r, func(key proposals.ProjectKey) error {
		return s.projects.Withdraw(req.Who, key)
	})
}

func (s *Server) handleRaiseNoConfidence(w http.ResponseWriter, r *http.Request) {
	var req callerBody
	if !s.decode(w, r, &req) {
		return
	}
	s.projectOp(w, r, func(key proposals.ProjectKey) error {
		return s.projects.RaiseNoConfidenceRound(req.Who, key)
	})
}

func (s *Server) handleVoteNoConfidence(w http.ResponseWriter, r *http.Request) {
	var req voteBody
	if !s.decode(w, r, &req) {
		return
	}
	s.projectOp(w, r, func(key proposals.ProjectKey) error {
		return s.projects.VoteOnNoConfidenceRound(req.Who, key, req.Approve)
	})
}

func (s *Server) handleFinaliseNoConfidence(w http.ResponseWriter, r *http.Request) {
	var req callerBody
	if !s.decode(w, r, &req) {
		return
	}
	s.projectOp(w, r, func(key proposals.ProjectKey) error {
		return s.projects.FinaliseNoConfidenceRound(req.Who, key)
	})
}

type raiseDisputeBody struct {
	Who        host.Address             `json:"who"`
	Milestones []proposals.MilestoneKey `json:"milestone_keys"`
}

func (s *Server) handleRaiseDispute(w http.ResponseWriter, r *http.Request) {
	var req raiseDisputeBody
	if !s.decode(w, r, &req) {
		return
	}
	s.projectOp(w, r, func(key proposals.ProjectKey) error {
		return s.projects.RaiseDispute(req.Who, key, req.Milestones)
	})
}

func (s *Server) handleCompletedProjects(w http.ResponseWriter, r *http.Request) {
	// The route cannot match on an empty address, no validation needed.
	who := host.Address(mux.Vars(r)["address"])
	s.writeJSON(w, http.StatusOK, map[string]any{
		"address":  who,
		"projects": s.projects.CompletedProjects(who),
	})
}

// ---------------------------------------------------------------------------
// dispute surface

func (s *Server) disputeOp(w http.ResponseWriter, r *http.Request, op func(key disputes.DisputeKey) error) {
	key, err := pathU64(r, "key")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad dispute key"})
		return
	}
	if err := op(key); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetDispute(w http.ResponseWriter, r *http.Request) {
	key, err := pathU64(r, "key")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad dispute key"})
		return
	}
	d, ok := s.juries.Get(key)
	if !ok {
		s.writeError(w, disputes.ErrDisputeDoesNotExist)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleVoteOnDispute(w http.ResponseWriter, r *http.Request) {
	var req voteBody
	if !s.decode(w, r, &req) {
		return
	}
	s.disputeOp(w, r, func(key disputes.DisputeKey) error {
		return s.juries.VoteOnDispute(req.Who, key, req.Approve)
	})
}

func (s *Server) handleExtendDispute(w http.ResponseWriter, r *http.Request) {
	var req callerBody
	if !s.decode(w, r, &req) {
		return
	}
	s.disputeOp(w, r, func(key disputes.DisputeKey) error {
		return s.juries.ExtendDispute(req.Who, key)
	})
}

type forceBody struct {
	Origin  host.Address `json:"origin"`
	Succeed bool         `json:"succeed"`
}

func (s *Server) handleForceDispute(w http.ResponseWriter, r *http.Request) {
	var req forceBody
	if !s.decode(w, r, &req) {
		return
	}
	s.disputeOp(w, r, func(key disputes.DisputeKey) error {
		if req.Succeed {
			return s.juries.ForceSucceedDispute(req.Origin, key)
		}
		return s.juries.ForceFailDispute(req.Origin, key)
	})
}
