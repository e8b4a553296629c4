package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

const resetTokenTTL = time.Hour

// Service handles tenant-scoped authentication. The same email can register
// under different tenants; every lookup carries the tenant id.
type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

type RegisterInput struct {
	TenantID uuid.UUID
	Email    string
	Password string
	Name     string
	Role     models.UserRole
}

type LoginInput struct {
	TenantID uuid.UUID
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var existing models.User
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", input.TenantID, email).
		First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}

	user := models.User{
		TenantID:     input.TenantID,
		Email:        email,
		PasswordHash: hash,
		Name:         input.Name,
		Role:         role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.TenantID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: &user}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", input.TenantID, email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	s.db.WithContext(ctx).Model(&user).Update("last_login_at", &now)

	token, err := s.jwt.GenerateToken(user.ID, user.TenantID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: &user}, nil
}

func (s *Service) GetUserByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// RequestPasswordReset issues a short-lived reset token. The caller decides
// how to deliver it; an unknown email yields no error so the endpoint does
// not reveal which addresses exist.
func (s *Service) RequestPasswordReset(ctx context.Context, tenantID uuid.UUID, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND email = ? AND is_active = ?", tenantID, email, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"reset_token":         token,
		"reset_token_expires": time.Now().Add(resetTokenTTL).Unix(),
	}).Error
	if err != nil {
		return "", err
	}

	return token, nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, tenantID uuid.UUID, token, newPassword string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND reset_token = ?", tenantID, token).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if user.ResetTokenExpires < time.Now().Unix() {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"password_hash":       hash,
		"reset_token":         "",
		"reset_token_expires": 0,
	}).Error
}
