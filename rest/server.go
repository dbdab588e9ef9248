// Package rest exposes both engines over a small JSON HTTP surface. It is a
// trusted-gateway API: the caller address arrives in the request body and is
// taken at face value, authentication belongs to the deployment in front.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fundgate/disputes"
	"fundgate/host"
	"fundgate/proposals"
)

type Server struct {
	projects *proposals.Engine
	juries   *disputes.Engine
	log      *zap.Logger
	router   *mux.Router
}

func NewServer(projects *proposals.Engine, juries *disputes.Engine, log *zap.Logger) *Server {
	s := &Server{
		projects: projects,
		juries:   juries,
		log:      log,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.router.ServeHTTP(w, r)
	s.log.Debug("request served",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Server) routes() {
	v1 := s.router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/projects", s.handleConvertToProject).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{key}", s.handleGetProject).Methods(http.MethodGet)
	v1.HandleFunc("/projects/{key}/milestones/{milestone}/submit", s.handleSubmitMilestone).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{key}/milestones/{milestone}/vote", s.handleVoteOnMilestone).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{key}/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{key}/no-confidence", s.handleRaiseNoConfidence).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{key}/no-confidence/vote", s.handleVoteNoConfidence).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{key}/no-confidence/finalise", s.handleFinaliseNoConfidence).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{key}/disputes", s.handleRaiseDispute).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{address}/completed-projects", s.handleCompletedProjects).Methods(http.MethodGet)

	v1.HandleFunc("/disputes/{key}", s.handleGetDispute).Methods(http.MethodGet)
	v1.HandleFunc("/disputes/{key}/vote", s.handleVoteOnDispute).Methods(http.MethodPost)
	v1.HandleFunc("/disputes/{key}/extend", s.handleExtendDispute).Methods(http.MethodPost)
	v1.HandleFunc("/disputes/{key}/force", s.handleForceDispute).Methods(http.MethodPost)
}

// ---------------------------------------------------------------------------
// plumbing

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response write failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps engine sentinels onto HTTP statuses. Anything unmapped is a
// server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, proposals.ErrProjectDoesNotExist),
		errors.Is(err, proposals.ErrMilestoneDoesNotExist),
		errors.Is(err, disputes.ErrDisputeDoesNotExist):
		return http.StatusNotFound
	case errors.Is(err, proposals.ErrUserIsNotInitiator),
		errors.Is(err, proposals.ErrOnlyContributorsCanVote),
		errors.Is(err, disputes.ErrNotAJuryAccount),
		errors.Is(err, host.ErrBadOrigin):
		return http.StatusForbidden
	case errors.Is(err, proposals.ErrMilestoneAlreadyApproved),
		errors.Is(err, proposals.ErrMilestonesAlreadyInDispute),
		errors.Is(err, proposals.ErrProjectWithdrawn),
		errors.Is(err, proposals.ErrRoundStarted),
		errors.Is(err, proposals.ErrVoteAlreadyExists),
		errors.Is(err, disputes.ErrDisputeAlreadyExists),
		errors.Is(err, disputes.ErrDisputeAlreadyExtended):
		return http.StatusConflict
	case errors.Is(err, proposals.ErrVotingRoundNotStarted),
		errors.Is(err, proposals.ErrNoActiveRound),
		errors.Is(err, proposals.ErrVoteThresholdNotMet),
		errors.Is(err, proposals.ErrNoAvailableFundsToWithdraw):
		return http.StatusUnprocessableEntity
	case errors.Is(err, proposals.ErrOverflow),
		errors.Is(err, disputes.ErrTooManyDisputesThisBlock):
		return http.StatusTooManyRequests
	case errors.Is(err, proposals.ErrMilestonesTotalPercentageMustEqual100),
		errors.Is(err, proposals.ErrTooManyMilestones),
		errors.Is(err, proposals.ErrTooManyContributors),
		errors.Is(err, proposals.ErrTooManyProjects),
		errors.Is(err, proposals.ErrNoMilestones),
		errors.Is(err, proposals.ErrNoContributions),
		errors.Is(err, proposals.ErrNoSpecifiedMilestones),
		errors.Is(err, disputes.ErrTooManyJurors),
		errors.Is(err, disputes.ErrTooManySpecifics),
		errors.Is(err, disputes.ErrEmptyJury):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body: " + err.Error()})
		return false
	}
	return true
}

func pathU64(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)[name], 10, 64)
}
