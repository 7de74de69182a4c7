package handlers

import (
	"net/http"

	"github.com/diewo77/go-gstbooks/httpx"
	"github.com/diewo77/go-gstbooks/internal/reconcile"
	"github.com/rs/zerolog"
)

type ReconcileHandler struct {
	engine *reconcile.Engine
	log    zerolog.Logger
}

func NewReconcileHandler(engine *reconcile.Engine, log zerolog.Logger) *ReconcileHandler {
	return &ReconcileHandler{engine: engine, log: log}
}

type reconcileResponse struct {
	reconcile.Result
	Reconciled bool `json:"reconciled"`
}

// Create handles POST /api/reconciliations. A nonzero difference is a
// normal 200 response.
func (h *ReconcileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reconcile.Request
	if err := httpx.Decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	res := h.engine.Run(req)
	h.log.Info().
		Str("run_id", res.RunID).
		Int("matched", len(res.MatchedPairs)).
		Stringer("difference", res.Difference).
		Msg("reconciliation run")
	httpx.JSON(w, http.StatusOK, reconcileResponse{Result: res, Reconciled: res.Reconciled()})
}
