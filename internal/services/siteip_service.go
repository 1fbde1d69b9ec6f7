package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/flagforge/flagforge/internal/models"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
)

// SiteIPService reads and updates the singleton published address.
type SiteIPService struct {
	db *gorm.DB
}

// NewSiteIPService constructs a SiteIPService.
func NewSiteIPService(db *gorm.DB) *SiteIPService {
	return &SiteIPService{db: db}
}

// Get returns the current site address.
func (s *SiteIPService) Get(ctx context.Context) (*models.SiteIP, error) {
	var row models.SiteIP
	err := s.db.WithContext(ctx).Where("id = ?", models.SiteIPRowID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load site address")
	}
	return &row, nil
}

// Update sets a new site address. Writing the value already stored is a
// no-op: the guard keeps the update idempotent and UpdatedAt honest. The
// value is stored as given; operators sometimes publish hostnames or
// addr:port pairs here, so no syntax check is applied.
func (s *SiteIPService) Update(ctx context.Context, ipAddress string) (*models.SiteIP, error) {
	ipAddress = strings.TrimSpace(ipAddress)
	if ipAddress == "" {
		return nil, apperrors.NewBadRequest("ip address is required")
	}

	err := s.db.WithContext(ctx).Model(&models.SiteIP{}).
		Where("id = ? AND ip_address <> ?", models.SiteIPRowID, ipAddress).
		Update("ip_address", ipAddress).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to update site address")
	}

	return s.Get(ctx)
}
