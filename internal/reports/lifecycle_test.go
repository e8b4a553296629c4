package reports

import (
	"testing"

	"github.com/hollis/reportline/internal/database/models"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to models.ReportStatus }{
		{models.StatusSubmitted, models.StatusUnderReview},
		{models.StatusUnderReview, models.StatusInvestigating},
		{models.StatusInvestigating, models.StatusResolved},
		{models.StatusInvestigating, models.StatusClosed},
		{models.StatusInvestigating, models.StatusEscalated},
		{models.StatusEscalated, models.StatusInvestigating},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to models.ReportStatus }{
		{models.StatusSubmitted, models.StatusResolved},
		{models.StatusSubmitted, models.StatusInvestigating},
		{models.StatusUnderReview, models.StatusSubmitted},
		{models.StatusResolved, models.StatusInvestigating},
		{models.StatusClosed, models.StatusSubmitted},
		{models.StatusEscalated, models.StatusResolved},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(models.StatusResolved) || !IsTerminal(models.StatusClosed) {
		t.Error("resolved and closed are terminal")
	}
	for _, s := range []models.ReportStatus{
		models.StatusSubmitted, models.StatusUnderReview,
		models.StatusInvestigating, models.StatusEscalated,
	} {
		if IsTerminal(s) {
			t.Errorf("%s is not terminal", s)
		}
	}
}

func TestIsValidStatus(t *testing.T) {
	if !IsValidStatus(models.StatusEscalated) {
		t.Error("escalated is a known status")
	}
	if IsValidStatus("on_hold") {
		t.Error("on_hold is not a known status")
	}
}
