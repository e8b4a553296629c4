package reports_test

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hollis/reportline/internal/audit"
	"github.com/hollis/reportline/internal/database/models"
	"github.com/hollis/reportline/internal/notify"
	"github.com/hollis/reportline/internal/reports"
	"github.com/hollis/reportline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*reports.Service, *gorm.DB, *models.Tenant) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := reports.NewService(reports.ServiceConfig{
		DB:         db,
		Logger:     logger,
		Encryptor:  testutil.CreateTestEncryptor(t),
		Ledger:     audit.NewLedger(db, logger),
		Dispatcher: notify.NewLogDispatcher(logger),
		Files:      testutil.NewMemoryFileStore(),
	})

	tenant := testutil.CreateTestTenant(t, db)
	return svc, db, tenant
}

func validInput() reports.CreateInput {
	return reports.CreateInput{
		Category:    models.CategoryHealthSafety,
		Title:       "Machine guard removed",
		Description: "The guard on the packing line press was removed during the night shift and not replaced.",
	}
}

func TestService_Create(t *testing.T) {
	svc, db, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	t.Run("assigns reference number and submitted status", func(t *testing.T) {
		report, err := svc.Create(ctx, tenant.ID, validInput())
		require.NoError(t, err)

		year := time.Now().UTC().Year()
		assert.Equal(t, fmt.Sprintf("REF-%d-0001", year), report.ReferenceNumber)
		assert.Equal(t, models.StatusSubmitted, report.Status)
		assert.Equal(t, models.PriorityMedium, report.Priority)
		assert.Equal(t, 0, report.BadFaithScore)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		input := validInput()
		input.Category = "gossip"
		_, err := svc.Create(ctx, tenant.ID, input)

		var ve *reports.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "category", ve.Field)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		input := validInput()
		input.Title = "   "
		_, err := svc.Create(ctx, tenant.ID, input)

		var ve *reports.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "title", ve.Field)
	})

	t.Run("writes an audit entry", func(t *testing.T) {
		report, err := svc.Create(ctx, tenant.ID, validInput())
		require.NoError(t, err)

		var entry models.AuditLog
		err = db.
			Where("tenant_id = ? AND action = ? AND entity_id = ?",
				tenant.ID, "report_created", report.ID.String()).
			First(&entry).Error
		require.NoError(t, err)
		assert.Contains(t, entry.Details, report.ReferenceNumber)
	})
}

func TestService_AnonymousMasking(t *testing.T) {
	svc, db, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	input := validInput()
	input.IsAnonymous = true
	input.ReporterName = "Jordan Smith"
	input.ReporterEmail = "jordan@example.com"
	input.ReporterPhone = "555-0100"

	report, err := svc.Create(ctx, tenant.ID, input)
	require.NoError(t, err)

	assert.True(t, report.IsAnonymous)
	assert.Empty(t, report.ReporterName)
	assert.Empty(t, report.ReporterEmailEnc)
	assert.Empty(t, report.ReporterPhoneEnc)

	var stored models.Report
	require.NoError(t, db.First(&stored, "id = ?", report.ID).Error)
	assert.Empty(t, stored.ReporterEmailEnc)
}

func TestService_ContactEncryption(t *testing.T) {
	svc, db, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	input := validInput()
	input.ReporterName = "Jordan Smith"
	input.ReporterEmail = "jordan@example.com"
	input.ReporterPhone = "555-0100"

	report, err := svc.Create(ctx, tenant.ID, input)
	require.NoError(t, err)

	var stored models.Report
	require.NoError(t, db.First(&stored, "id = ?", report.ID).Error)
	assert.NotEmpty(t, stored.ReporterEmailEnc)
	assert.NotContains(t, stored.ReporterEmailEnc, "jordan@example.com")

	email, phone, err := svc.ReporterContact(ctx, tenant.ID, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "jordan@example.com", email)
	assert.Equal(t, "555-0100", phone)
}

func TestService_ReferenceSequencePerTenant(t *testing.T) {
	svc, db, tenantA := newTestService(t)
	ctx := testutil.TestContext(t)
	tenantB := testutil.CreateTestTenant(t, db)

	year := time.Now().UTC().Year()

	seen := make(map[string]bool)
	for i := 1; i <= 5; i++ {
		report, err := svc.Create(ctx, tenantA.ID, validInput())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("REF-%d-%04d", year, i), report.ReferenceNumber)
		assert.False(t, seen[report.ReferenceNumber], "duplicate reference number")
		seen[report.ReferenceNumber] = true
	}

	// A second tenant starts its own sequence at one.
	report, err := svc.Create(ctx, tenantB.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("REF-%d-0001", year), report.ReferenceNumber)
}

func TestService_ConcurrentCreatesGetDistinctReferences(t *testing.T) {
	svc, db, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	// Each connection to a :memory: database is its own database, so the
	// pool must stay at one connection for concurrent callers to share it.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const n = 8
	refs := make(chan string, n)
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := svc.Create(ctx, tenant.ID, validInput())
			if err != nil {
				errs <- err
				return
			}
			refs <- report.ReferenceNumber
		}()
	}
	wg.Wait()
	close(refs)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent create failed: %v", err)
	}

	seen := make(map[string]bool)
	for ref := range refs {
		assert.False(t, seen[ref], "reference %s issued twice", ref)
		seen[ref] = true
	}
	assert.Len(t, seen, n)
}

func TestService_GetByReference(t *testing.T) {
	svc, _, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	created, err := svc.Create(ctx, tenant.ID, validInput())
	require.NoError(t, err)

	byID, err := svc.Get(ctx, tenant.ID, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ReferenceNumber, byID.ReferenceNumber)

	byRef, err := svc.Get(ctx, tenant.ID, created.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byRef.ID)
}

func TestService_TenantIsolation(t *testing.T) {
	svc, db, tenantA := newTestService(t)
	ctx := testutil.TestContext(t)
	tenantB := testutil.CreateTestTenant(t, db)

	report, err := svc.Create(ctx, tenantA.ID, validInput())
	require.NoError(t, err)

	// The other tenant cannot see it, by id or by reference.
	_, err = svc.Get(ctx, tenantB.ID, report.ID.String())
	assert.ErrorIs(t, err, reports.ErrReportNotFound)
	_, err = svc.Get(ctx, tenantB.ID, report.ReferenceNumber)
	assert.ErrorIs(t, err, reports.ErrReportNotFound)

	listA, totalA, err := svc.List(ctx, tenantA.ID, reports.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), totalA)
	assert.Len(t, listA, 1)

	_, totalB, err := svc.List(ctx, tenantB.ID, reports.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), totalB)
}

func TestService_Lifecycle(t *testing.T) {
	svc, _, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	t.Run("walks the full path to resolution", func(t *testing.T) {
		report, err := svc.Create(ctx, tenant.ID, validInput())
		require.NoError(t, err)

		for _, next := range []models.ReportStatus{
			models.StatusUnderReview,
			models.StatusInvestigating,
		} {
			report, err = svc.UpdateStatus(ctx, tenant.ID, report.ID, reports.StatusInput{Status: next})
			require.NoError(t, err)
			assert.Equal(t, next, report.Status)
			assert.Nil(t, report.ResolvedAt)
		}

		report, err = svc.UpdateStatus(ctx, tenant.ID, report.ID, reports.StatusInput{
			Status:          models.StatusResolved,
			ResolutionNotes: "Guard reinstalled and interlock tested.",
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, report.Status)
		require.NotNil(t, report.ResolvedAt)
		assert.Equal(t, "Guard reinstalled and interlock tested.", report.ResolutionNotes)
	})

	t.Run("closing also stamps the resolution time", func(t *testing.T) {
		report, err := svc.Create(ctx, tenant.ID, validInput())
		require.NoError(t, err)

		for _, next := range []models.ReportStatus{
			models.StatusUnderReview, models.StatusInvestigating,
		} {
			report, err = svc.UpdateStatus(ctx, tenant.ID, report.ID, reports.StatusInput{Status: next})
			require.NoError(t, err)
		}

		report, err = svc.UpdateStatus(ctx, tenant.ID, report.ID, reports.StatusInput{
			Status:          models.StatusClosed,
			ResolutionNotes: "Could not be substantiated.",
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusClosed, report.Status)
		require.NotNil(t, report.ResolvedAt)
		assert.Equal(t, "Could not be substantiated.", report.ResolutionNotes)
	})

	t.Run("rejects skipping stages", func(t *testing.T) {
		report, err := svc.Create(ctx, tenant.ID, validInput())
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, tenant.ID, report.ID, reports.StatusInput{Status: models.StatusResolved})
		var te *reports.InvalidTransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, models.StatusSubmitted, te.Current)
		assert.Equal(t, models.StatusResolved, te.Requested)
	})

	t.Run("terminal states reject further moves", func(t *testing.T) {
		report, err := svc.Create(ctx, tenant.ID, validInput())
		require.NoError(t, err)

		for _, next := range []models.ReportStatus{
			models.StatusUnderReview, models.StatusInvestigating, models.StatusClosed,
		} {
			report, err = svc.UpdateStatus(ctx, tenant.ID, report.ID, reports.StatusInput{Status: next})
			require.NoError(t, err)
		}

		_, err = svc.UpdateStatus(ctx, tenant.ID, report.ID, reports.StatusInput{Status: models.StatusInvestigating})
		var te *reports.InvalidTransitionError
		assert.ErrorAs(t, err, &te)
	})

	t.Run("escalation re-enters investigation", func(t *testing.T) {
		report, err := svc.Create(ctx, tenant.ID, validInput())
		require.NoError(t, err)

		for _, next := range []models.ReportStatus{
			models.StatusUnderReview, models.StatusInvestigating,
			models.StatusEscalated, models.StatusInvestigating,
		} {
			report, err = svc.UpdateStatus(ctx, tenant.ID, report.ID, reports.StatusInput{Status: next})
			require.NoError(t, err)
			assert.Equal(t, next, report.Status)
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		report, err := svc.Create(ctx, tenant.ID, validInput())
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, tenant.ID, report.ID, reports.StatusInput{Status: "on_hold"})
		var ve *reports.ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestService_Assign(t *testing.T) {
	svc, db, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	staff := testutil.CreateTestUser(t, db, tenant, models.RoleManager)
	report, err := svc.Create(ctx, tenant.ID, validInput())
	require.NoError(t, err)

	t.Run("assigns a tenant user", func(t *testing.T) {
		updated, err := svc.Assign(ctx, tenant.ID, report.ID, staff.ID, nil)
		require.NoError(t, err)
		require.NotNil(t, updated.AssigneeID)
		assert.Equal(t, staff.ID, *updated.AssigneeID)
	})

	t.Run("rejects a user from another tenant", func(t *testing.T) {
		other := testutil.CreateTestTenant(t, db)
		outsider := testutil.CreateTestUser(t, db, other, models.RoleManager)

		_, err := svc.Assign(ctx, tenant.ID, report.ID, outsider.ID, nil)
		assert.ErrorIs(t, err, reports.ErrAssigneeNotFound)
	})
}

func TestService_UpdatesThread(t *testing.T) {
	svc, db, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	author := testutil.CreateTestUser(t, db, tenant, models.RoleCompliance)
	report, err := svc.Create(ctx, tenant.ID, validInput())
	require.NoError(t, err)

	_, err = svc.AddUpdate(ctx, tenant.ID, report.ID, &author.ID, "Spoke with the shift lead.", models.VisibilityInternal)
	require.NoError(t, err)
	_, err = svc.AddUpdate(ctx, tenant.ID, report.ID, &author.ID, "We are looking into your report.", models.VisibilityReporter)
	require.NoError(t, err)

	updates, err := svc.ListUpdates(ctx, tenant.ID, report.ID)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "Spoke with the shift lead.", updates[0].Message)
	assert.Equal(t, models.VisibilityReporter, updates[1].Visibility)

	t.Run("rejects empty message", func(t *testing.T) {
		_, err := svc.AddUpdate(ctx, tenant.ID, report.ID, &author.ID, "  ", models.VisibilityInternal)
		var ve *reports.ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestService_Attachments(t *testing.T) {
	svc, _, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	report, err := svc.Create(ctx, tenant.ID, validInput())
	require.NoError(t, err)

	body := strings.NewReader("fake image bytes")
	att, err := svc.AddAttachment(ctx, tenant.ID, report.ID, reports.FileInput{
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		Size:        16,
		Body:        body,
	})
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", att.FileName)
	assert.NotEmpty(t, att.StorageKey)

	atts, err := svc.ListAttachments(ctx, tenant.ID, report.ID)
	require.NoError(t, err)
	assert.Len(t, atts, 1)
}

func TestService_Stats(t *testing.T) {
	svc, _, tenant := newTestService(t)
	ctx := testutil.TestContext(t)

	categories := []models.ReportCategory{
		models.CategoryHealthSafety,
		models.CategoryHealthSafety,
		models.CategoryMisconduct,
		models.CategoryHarassment,
	}
	var last *models.Report
	for _, cat := range categories {
		input := validInput()
		input.Category = cat
		report, err := svc.Create(ctx, tenant.ID, input)
		require.NoError(t, err)
		last = report
	}

	_, err := svc.UpdateStatus(ctx, tenant.ID, last.ID, reports.StatusInput{Status: models.StatusUnderReview})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, tenant.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.ByCategory[string(models.CategoryHealthSafety)])
	assert.Equal(t, int64(1), stats.ByCategory[string(models.CategoryMisconduct)])
	assert.Equal(t, int64(3), stats.ByStatus[string(models.StatusSubmitted)])
	assert.Equal(t, int64(1), stats.ByStatus[string(models.StatusUnderReview)])
	assert.LessOrEqual(t, len(stats.Recent), 5)
}
