package models

type PlanTier string

const (
	PlanFree         PlanTier = "free"
	PlanStarter      PlanTier = "starter"
	PlanProfessional PlanTier = "professional"
	PlanEnterprise   PlanTier = "enterprise"
)

// Tenant is the unit of isolation. Every report, user, and ledger row belongs
// to exactly one tenant; a tenant is deactivated, never hard-deleted.
type Tenant struct {
	Base
	Name      string `gorm:"not null" json:"name"`
	Subdomain string `gorm:"uniqueIndex;not null" json:"subdomain"`

	ContactEmail string `json:"contact_email"`
	AdminEmail   string `json:"admin_email"`
	OpsEmail     string `json:"ops_email"`

	Settings string   `gorm:"type:jsonb;default:'{}'" json:"settings"`
	Branding string   `gorm:"type:jsonb;default:'{}'" json:"branding"`
	Plan     PlanTier `gorm:"default:'free'" json:"plan"`
	IsActive bool     `gorm:"default:true" json:"is_active"`

	// Relationships
	Users   []User   `gorm:"foreignKey:TenantID" json:"-"`
	Reports []Report `gorm:"foreignKey:TenantID" json:"-"`
}

func (Tenant) TableName() string {
	return "tenants"
}
