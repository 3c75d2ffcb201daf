package leave

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aldenpython/payrollsystem/hr"
)

var transitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "leave",
	Name:      "transitions_total",
	Help:      "Leave request transitions attempted, by transition and result.",
}, []string{"transition", "result"})

// resultOf maps an error to a low-cardinality label.
func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, hr.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, hr.ErrNotFound):
		return "not_found"
	case errors.Is(err, hr.ErrOverlap):
		return "overlap"
	case errors.Is(err, hr.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, hr.ErrValidationFailed):
		return "invalid"
	default:
		return "error"
	}
}
