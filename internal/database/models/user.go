package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleManager    UserRole = "manager"
	RoleCompliance UserRole = "compliance"
	RoleUser       UserRole = "user"
)

// User is a tenant-scoped identity. The same email may exist under different
// tenants as distinct users; uniqueness holds on (tenant_id, email).
type User struct {
	Base
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_users_tenant_email" json:"tenant_id"`
	Email        string     `gorm:"not null;uniqueIndex:idx_users_tenant_email" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Name         string     `json:"name"`
	Role         UserRole   `gorm:"default:'user'" json:"role"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`

	// Password-reset token lifecycle: set on request, cleared on reset or expiry.
	ResetToken        string `gorm:"index" json:"-"`
	ResetTokenExpires int64  `json:"-"`

	// Relationships
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

func (User) TableName() string {
	return "users"
}
