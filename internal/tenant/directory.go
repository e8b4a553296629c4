package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrSubdomainTaken = errors.New("subdomain already in use")
)

var subdomainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Directory resolves tenant identifiers to their isolated data partition.
// Every read/write path into tenant-owned data goes through a tenant id
// obtained here; an unknown identifier is a hard rejection, never a fallback.
type Directory struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewDirectory(db *gorm.DB, logger *slog.Logger) *Directory {
	return &Directory{db: db, logger: logger}
}

// Resolve looks a tenant up by id or subdomain. Deactivated tenants do not
// resolve.
func (d *Directory) Resolve(ctx context.Context, identifier string) (*models.Tenant, error) {
	identifier = strings.TrimSpace(strings.ToLower(identifier))
	if identifier == "" {
		return nil, ErrTenantNotFound
	}

	query := d.db.WithContext(ctx).Where("is_active = ?", true)
	if id, err := uuid.Parse(identifier); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("subdomain = ?", identifier)
	}

	var t models.Tenant
	if err := query.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("resolving tenant: %w", err)
	}
	return &t, nil
}

type ProvisionInput struct {
	Name         string
	Subdomain    string
	ContactEmail string
	AdminEmail   string
	OpsEmail     string
	Plan         models.PlanTier
}

// Provision creates a new tenant partition following the shared table layout.
func (d *Directory) Provision(ctx context.Context, input ProvisionInput) (*models.Tenant, error) {
	sub := strings.TrimSpace(strings.ToLower(input.Subdomain))
	if !subdomainRegex.MatchString(sub) {
		return nil, fmt.Errorf("invalid subdomain %q", input.Subdomain)
	}

	plan := input.Plan
	if plan == "" {
		plan = models.PlanFree
	}

	t := models.Tenant{
		Name:         input.Name,
		Subdomain:    sub,
		ContactEmail: input.ContactEmail,
		AdminEmail:   input.AdminEmail,
		OpsEmail:     input.OpsEmail,
		Plan:         plan,
		IsActive:     true,
		Settings:     "{}",
		Branding:     "{}",
	}

	// The unique index on subdomain is the single arbiter; a separate
	// existence check would race with concurrent provisioning.
	if err := d.db.WithContext(ctx).Create(&t).Error; err != nil {
		if isDuplicateSubdomain(err) {
			return nil, ErrSubdomainTaken
		}
		return nil, fmt.Errorf("provisioning tenant: %w", err)
	}

	d.logger.Info("provisioned tenant", "id", t.ID, "subdomain", t.Subdomain, "plan", t.Plan)
	return &t, nil
}

func isDuplicateSubdomain(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Deactivate flips the active flag. Tenants are never hard-deleted.
func (d *Directory) Deactivate(ctx context.Context, tenantID uuid.UUID) error {
	res := d.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivating tenant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// Seed ensures the two default partitions exist so a fresh deployment can
// serve traffic: a demo partition and one named customer partition.
func (d *Directory) Seed(ctx context.Context) error {
	defaults := []models.Tenant{
		{
			Name:         "Reportline Demo",
			Subdomain:    "demo",
			ContactEmail: "contact@demo.reportline.io",
			AdminEmail:   "admin@demo.reportline.io",
			OpsEmail:     "ops@demo.reportline.io",
			Plan:         models.PlanFree,
			IsActive:     true,
			Settings:     "{}",
			Branding:     "{}",
		},
		{
			Name:         "Acme Manufacturing",
			Subdomain:    "acme",
			ContactEmail: "contact@acme.example",
			AdminEmail:   "compliance@acme.example",
			OpsEmail:     "ops@acme.example",
			Plan:         models.PlanProfessional,
			IsActive:     true,
			Settings:     "{}",
			Branding:     "{}",
		},
	}

	for i := range defaults {
		t := &defaults[i]
		err := d.db.WithContext(ctx).
			Where("subdomain = ?", t.Subdomain).
			FirstOrCreate(t).Error
		if err != nil {
			return fmt.Errorf("seeding tenant %s: %w", t.Subdomain, err)
		}
	}
	return nil
}
