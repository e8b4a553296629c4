package reports

import (
	"fmt"

	"github.com/hollis/reportline/internal/database/models"
)

// transitions holds the directed edges of the report lifecycle. Movement is
// one-directional except the escalation re-entry into investigating.
var transitions = map[models.ReportStatus][]models.ReportStatus{
	models.StatusSubmitted:     {models.StatusUnderReview},
	models.StatusUnderReview:   {models.StatusInvestigating},
	models.StatusInvestigating: {models.StatusResolved, models.StatusClosed, models.StatusEscalated},
	models.StatusEscalated:     {models.StatusInvestigating},
	models.StatusResolved:      {},
	models.StatusClosed:        {},
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another.
func CanTransition(from, to models.ReportStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status ends the lifecycle.
func IsTerminal(s models.ReportStatus) bool {
	return s == models.StatusResolved || s == models.StatusClosed
}

// IsValidStatus reports whether s is a known lifecycle state.
func IsValidStatus(s models.ReportStatus) bool {
	_, ok := transitions[s]
	return ok
}

// InvalidTransitionError names the current and requested states of a
// rejected transition.
type InvalidTransitionError struct {
	Current   models.ReportStatus
	Requested models.ReportStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Requested)
}
