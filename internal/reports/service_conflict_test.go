package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hollis/reportline/internal/database/models"
	"github.com/hollis/reportline/internal/testutil"
)

// Two movers race on the same report: the conditional write lets exactly one
// through and the other observes a stale status.
func TestUpdateStatus_ConcurrentMoversOneWinner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	// Each connection to a :memory: database is its own database, so the
	// pool must stay at one connection.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	enc := testutil.CreateTestEncryptor(t)
	svcA := NewService(ServiceConfig{DB: db, Logger: logger, Encryptor: enc})
	svcB := NewService(ServiceConfig{DB: db, Logger: logger, Encryptor: enc})

	tenant := testutil.CreateTestTenant(t, db)
	ctx := context.Background()

	report, err := svcA.Create(ctx, tenant.ID, CreateInput{
		Category:    models.CategoryHealthSafety,
		Title:       "Machine guard removed",
		Description: "The guard on the packing line press was removed during the night shift.",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, next := range []models.ReportStatus{models.StatusUnderReview, models.StatusInvestigating} {
		if report, err = svcA.UpdateStatus(ctx, tenant.ID, report.ID, StatusInput{Status: next}); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}

	// Hold B between its read and its conditional write so A moves the
	// report first; the clock hook sits exactly in that window for
	// terminal transitions.
	reading := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	svcB.now = func() time.Time {
		once.Do(func() {
			close(reading)
			<-release
		})
		return time.Now()
	}

	done := make(chan error, 1)
	go func() {
		_, err := svcB.UpdateStatus(ctx, tenant.ID, report.ID, StatusInput{Status: models.StatusResolved})
		done <- err
	}()

	<-reading
	if _, err := svcA.UpdateStatus(ctx, tenant.ID, report.ID, StatusInput{Status: models.StatusClosed}); err != nil {
		t.Fatalf("winner update: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("loser error = %v, want ErrStatusConflict", err)
	}

	final, err := svcA.Get(ctx, tenant.ID, report.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != models.StatusClosed {
		t.Errorf("final status = %s, want %s", final.Status, models.StatusClosed)
	}
	if final.ResolvedAt == nil {
		t.Error("closing did not stamp the resolution time")
	}
}
