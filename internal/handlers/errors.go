package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/diewo77/go-gstbooks/httpx"
	"github.com/diewo77/go-gstbooks/internal/ledger"
	"github.com/diewo77/go-gstbooks/internal/report"
	"github.com/diewo77/go-gstbooks/internal/sequence"
	"github.com/diewo77/go-gstbooks/internal/tax"
	"github.com/diewo77/go-gstbooks/validation"
	"github.com/rs/zerolog"
)

// RetryAfter is advertised when invoice numbering is temporarily unavailable.
var RetryAfter = 2 * time.Second

// writeError maps domain errors to HTTP responses. Unknown errors are logged
// and reported as 500 without detail.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var (
		lineErr    *tax.InvalidLineItemError
		violations validation.Violations
	)
	switch {
	case errors.As(err, &lineErr):
		field := "line_items"
		if lineErr.Index >= 0 {
			field = fmt.Sprintf("line_items[%d].%s", lineErr.Index, lineErr.Field)
		}
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{field: lineErr.Reason})
	case errors.As(err, &violations):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", violations)
	case errors.Is(err, ledger.ErrInvalidDates):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"due_date": "before_issue_date"})
	case errors.Is(err, ledger.ErrInvalidDirection):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"direction": "not_allowed"})
	case errors.Is(err, report.ErrGranularity):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"granularity": "not_allowed"})
	case errors.Is(err, report.ErrRange):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"to": "before_start"})
	case errors.Is(err, httpx.ErrBadBody):
		httpx.JSONErrorMessage(w, http.StatusBadRequest, "invalid_body", err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, sequence.ErrUnavailable):
		log.Warn().Err(err).Msg("invoice numbering unavailable")
		httpx.Unavailable(w, RetryAfter, "invoice numbering is temporarily unavailable, retry the request")
	default:
		log.Error().Err(err).Msg("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
