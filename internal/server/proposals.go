package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
)

type decisionResponse struct {
	ID       uuid.UUID          `json:"id"`
	Decision constants.Decision `json:"decision"`
	// IndexRefreshed is false when the market index still predates the decision.
	IndexRefreshed bool `json:"index_refreshed"`
}

func (s *Server) listProposals(w http.ResponseWriter, r *http.Request) {
	pending, err := s.deps.Proposals.ListPending(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, pending)
}

func (s *Server) decide(decision constants.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, common.NewValidationError("proposal id must be a UUID", err))
			return
		}
		if err := s.deps.Proposals.ApplyProposal(r.Context(), id, decision); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.deps.Metrics.ObserveDecision(decision)
		resp := decisionResponse{ID: id, Decision: decision}
		if decision == constants.DecisionApprove {
			resp.IndexRefreshed = s.refreshIndex(r.Context(), id)
		}
		writeSuccess(w, http.StatusOK, resp)
	}
}

// refreshIndex rebuilds the market index after an approval changed the active
// catalog. A failure leaves the previous index in place until the next
// scheduled rebuild; the decision itself is already committed.
func (s *Server) refreshIndex(ctx context.Context, id uuid.UUID) bool {
	if s.deps.Rebuilder == nil {
		return false
	}
	if _, err := s.deps.Rebuilder.Rebuild(ctx); err != nil {
		s.logger.Warn("http.proposal.rebuild_failed", zap.String("proposal_id", id.String()), zap.Error(err))
		return false
	}
	return true
}
