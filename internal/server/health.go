package server

import (
	"net/http"

	"github.com/joseph-ayodele/price-intel/internal/common"
)

type healthResponse struct {
	Status      string            `json:"status"`
	IndexLoaded bool              `json:"index_loaded"`
	IndexSize   int               `json:"index_size"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// health runs every registered check. One failure turns the response into 503.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := common.WithTimeout(r.Context(), s.cfg.HealthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		IndexLoaded: s.deps.Index.Loaded(),
		IndexSize:   s.deps.Index.Load().Len(),
	}
	status := http.StatusOK
	if len(s.deps.Checks) > 0 {
		resp.Checks = make(map[string]string, len(s.deps.Checks))
	}
	for _, c := range s.deps.Checks {
		if err := c.Check(ctx); err != nil {
			resp.Checks[c.Name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	writeJSON(w, status, resp)
}
