package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/price-intel/internal/analyzer"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

type marketResponse struct {
	BuiltAt *time.Time                `json:"built_at,omitempty"`
	Count   int                       `json:"count"`
	Entries []entity.MarketPriceEntry `json:"entries"`
}

// market lists the current index, optionally filtered by ?trade= and ?unit=.
func (s *Server) market(w http.ResponseWriter, r *http.Request) {
	ix := s.deps.Index.Load()
	trade := strings.TrimSpace(r.URL.Query().Get("trade"))
	unit := strings.TrimSpace(r.URL.Query().Get("unit"))

	entries := make([]entity.MarketPriceEntry, 0, ix.Len())
	for _, e := range ix.Entries() {
		if trade != "" && !strings.EqualFold(e.TradeCategory, trade) {
			continue
		}
		if unit != "" && !strings.EqualFold(e.Unit, unit) {
			continue
		}
		entries = append(entries, e)
	}
	resp := marketResponse{Count: len(entries), Entries: entries}
	if built := ix.BuiltAt(); !built.IsZero() {
		resp.BuiltAt = &built
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) rebuild(w http.ResponseWriter, r *http.Request) {
	if s.deps.Rebuilder == nil {
		s.writeError(w, r, common.NewInternalError("index rebuild is not configured", nil))
		return
	}
	ix, err := s.deps.Rebuilder.Rebuild(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	built := ix.BuiltAt()
	writeSuccess(w, http.StatusOK, marketResponse{BuiltAt: &built, Count: ix.Len()})
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	var t pricing.Target
	if err := decodeJSON(r, &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, pricing.Recommend(t, s.deps.Index.Load(), s.cfg.Economics))
}

type assessRequest struct {
	Message   string                      `json:"message"`
	Documents []string                    `json:"documents"`
	Context   *analyzer.AssessmentContext `json:"context,omitempty"`
}

func (s *Server) assess(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assessor == nil {
		s.writeError(w, r, common.NewDependencyError("no generation backend configured", nil))
		return
	}
	var req assessRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.deps.Assessor.Assess(r.Context(), req.Message, req.Documents, req.Context)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}
