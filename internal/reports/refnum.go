package reports

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/database/models"
	"gorm.io/gorm"
)

// RefGenerator issues reference numbers unique within a tenant partition.
// Next runs inside the transaction that creates the report so the counter
// advance and the insert commit together.
type RefGenerator interface {
	Next(tx *gorm.DB, tenantID uuid.UUID, now time.Time) (string, error)
}

// SequenceGenerator produces REF-<year>-<zero-padded sequence> from a
// per-tenant, per-year counter row. The row update takes a write lock for
// the remainder of the transaction, so concurrent creations in the same
// tenant serialize here; the composite unique index on
// (tenant_id, reference_number) backstops the guarantee.
type SequenceGenerator struct{}

func (SequenceGenerator) Next(tx *gorm.DB, tenantID uuid.UUID, now time.Time) (string, error) {
	year := now.UTC().Year()

	res := tx.Model(&models.ReportSequence{}).
		Where("tenant_id = ? AND year = ?", tenantID, year).
		Update("counter", gorm.Expr("counter + 1"))
	if res.Error != nil {
		return "", fmt.Errorf("advancing sequence: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		seq := models.ReportSequence{TenantID: tenantID, Year: year, Counter: 1}
		if err := tx.Create(&seq).Error; err != nil {
			// Another transaction created the row first; retry the update.
			res = tx.Model(&models.ReportSequence{}).
				Where("tenant_id = ? AND year = ?", tenantID, year).
				Update("counter", gorm.Expr("counter + 1"))
			if res.Error != nil || res.RowsAffected == 0 {
				return "", errors.Join(fmt.Errorf("initializing sequence: %w", err), res.Error)
			}
		}
	}

	var seq models.ReportSequence
	if err := tx.Where("tenant_id = ? AND year = ?", tenantID, year).First(&seq).Error; err != nil {
		return "", fmt.Errorf("reading sequence: %w", err)
	}

	return fmt.Sprintf("REF-%d-%04d", year, seq.Counter), nil
}
