package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flagforge/flagforge/internal/models"
	"github.com/flagforge/flagforge/pkg/crypto"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
	"github.com/flagforge/flagforge/pkg/logger"
	"github.com/flagforge/flagforge/pkg/metrics"
)

// AdminService authenticates operator accounts.
type AdminService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db, log: logger.WithModule("admin")}
}

// Authenticate verifies an operator's credentials. Email matching is
// case-insensitive; a wrong password and an unknown email both return the
// same invalid-credentials error so the response leaks nothing.
func (s *AdminService) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("admin", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var admin models.Admin
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.AuthAttempts.WithLabelValues("admin", "failure").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(err, "failed to load admin")
	}

	if !crypto.VerifyPassword(admin.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues("admin", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Model(&admin).
		Update("last_login_at", now).Error
	if err != nil {
		s.log.Warn("failed to record admin login time", zap.String("admin_id", admin.ID), zap.Error(err))
	} else {
		admin.LastLoginAt = &now
	}

	metrics.AuthAttempts.WithLabelValues("admin", "success").Inc()
	return &admin, nil
}

// GetByID loads an admin account.
func (s *AdminService) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load admin")
	}
	return &admin, nil
}

// EnsureBootstrapAdmin creates an operator account at startup when none with
// the given email exists. Used so a fresh deployment is reachable.
func (s *AdminService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Admin{}).
		Where("LOWER(email) = LOWER(?)", email).
		Count(&count).Error
	if err != nil {
		return apperrors.Wrap(err, "failed to check for admin")
	}
	if count > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return apperrors.Wrap(err, "failed to hash admin password")
	}

	admin := models.Admin{Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return apperrors.Wrap(err, "failed to create admin")
	}

	s.log.Info("bootstrap admin created", zap.String("email", email))
	return nil
}
